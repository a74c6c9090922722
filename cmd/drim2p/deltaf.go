package main

import (
	"github.com/spf13/cobra"

	"github.com/drim2p/drim2p/internal/deltaf"
	"github.com/drim2p/drim2p/internal/monitoring"
	"github.com/drim2p/drim2p/internal/stage"
	"github.com/drim2p/drim2p/internal/store"
)

var (
	deltafMethod      string
	deltafPercentile  float64
	deltafWindowWidth int
	deltafPaddingMode string
	deltafConstant    float64
	deltafRecursive   bool
	deltafInclude     string
	deltafExclude     string
	deltafForce       bool
)

var deltafCmd = &cobra.Command{
	Use:   "deltaf",
	Short: "Compute ΔF/F0 traces from converted recordings",
}

var deltafComputeCmd = &cobra.Command{
	Use:   "compute SOURCE",
	Short: "Compute the ΔF/F0 trace of canonical containers",
	Long: `Computes the per-channel ΔF/F0 trace of canonical containers.

The baseline F0 is estimated per channel with the chosen method, either
globally (window width 0) or over a rolling window padded according to the
padding mode. The corrected imaging stack is preferred as the source; the
raw stack is used when no motion correction has been run.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		opts := deltaf.Options{
			Method:        deltaf.Method(deltafMethod),
			WindowWidth:   deltafWindowWidth,
			PaddingMode:   deltaf.PaddingMode(deltafPaddingMode),
			ConstantValue: deltafConstant,
		}
		if cmd.Flags().Changed("percentile") || opts.Method == deltaf.MethodPercentile {
			opts.Percentile = &deltafPercentile
		}

		paths, err := collectSources(args[0], []string{store.Extension}, deltafRecursive, deltafInclude, deltafExclude)
		if err != nil {
			fatal("Failed to collect containers", err)
		}

		runner := stage.NewRunner()
		for _, path := range paths {
			monitoring.Debugf("Computing ΔF/F for '%s'.", path)
			computeOne(runner, path, opts)
		}
	},
}

func computeOne(runner *stage.Runner, path string, opts deltaf.Options) {
	c, err := store.Open(path)
	if err != nil {
		monitoring.Errorf("Failed to open container '%s', skipping file: %v.", path, err)
		return
	}
	defer c.Close()

	s := &deltaf.BaselineStage{Container: c, Options: opts}
	if err := runner.Run(c, path, s, deltafForce); err != nil {
		monitoring.Errorf("Failed to compute ΔF/F for '%s', skipping file: %v.", path, err)
	}
}

func init() {
	rootCmd.AddCommand(deltafCmd)
	deltafCmd.AddCommand(deltafComputeCmd)

	deltafComputeCmd.Flags().StringVar(&deltafMethod, "method", string(deltaf.MethodPercentile),
		"Baseline method to use (percentile, mean or median)")
	deltafComputeCmd.Flags().Float64Var(&deltafPercentile, "percentile", 5,
		"Percentile to use for the percentile method")
	deltafComputeCmd.Flags().IntVar(&deltafWindowWidth, "window-width", 0,
		"Rolling window width in frames; 0 computes a single global baseline")
	deltafComputeCmd.Flags().StringVar(&deltafPaddingMode, "padding-mode", string(deltaf.PadReflect),
		"Padding mode for rolling baselines (constant, edge or reflect)")
	deltafComputeCmd.Flags().Float64Var(&deltafConstant, "constant-value", 0,
		"Fill value for the constant padding mode")
	deltafComputeCmd.Flags().BoolVarP(&deltafRecursive, "recursive", "r", false,
		"Whether to search directories recursively when looking for containers")
	deltafComputeCmd.Flags().StringVarP(&deltafInclude, "include", "i", "",
		"Include filter (regular expression), applied before any exclude filter")
	deltafComputeCmd.Flags().StringVarP(&deltafExclude, "exclude", "e", "",
		"Exclude filter (regular expression), applied after all include filters")
	deltafComputeCmd.Flags().BoolVar(&deltafForce, "force", false,
		"Whether to overwrite output datasets if they exist")
}

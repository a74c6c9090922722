package main

import (
	"github.com/spf13/cobra"

	"github.com/drim2p/drim2p/internal/monitoring"
	"github.com/drim2p/drim2p/internal/motion"
	"github.com/drim2p/drim2p/internal/stage"
	"github.com/drim2p/drim2p/internal/store"
)

var (
	motionSettingsPath string
	motionRecursive    bool
	motionInclude      string
	motionExclude      string
	motionCompression  string
	motionAggression   int
	motionEstimator    string
	motionForce        bool
)

var motionCmd = &cobra.Command{
	Use:   "motion",
	Short: "Motion-correct converted recordings",
}

var motionCorrectCmd = &cobra.Command{
	Use:   "correct SOURCE",
	Short: "Apply motion correction to canonical containers",
	Long: `Applies motion correction to canonical containers.

The motion correction is configured through a YAML settings file. The file
allows customising behaviour such as the strategy to use or the maximum
displacement allowed. The estimation itself runs in an external estimator
process exchanging data through the stage's scratch directory.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if motionSettingsPath == "" {
			monitoring.Errorf("Please provide a settings file.")
			return
		}
		settings, err := motion.LoadSettings(motionSettingsPath)
		if err != nil {
			fatal("Failed to load settings", err)
		}

		compression := store.CompressionNone
		if motionCompression != "" {
			if compression, err = store.ParseCompression(motionCompression); err != nil {
				fatal("Failed to parse compression", err)
			}
		}

		paths, err := collectSources(args[0], []string{store.Extension}, motionRecursive, motionInclude, motionExclude)
		if err != nil {
			fatal("Failed to collect containers", err)
		}

		runner := stage.NewRunner()
		for _, path := range paths {
			monitoring.Debugf("Motion correcting '%s'.", path)
			correctOne(runner, path, settings, compression)
		}
	},
}

// correctOne runs the correction stage on one container; failures are
// diagnosed and skipped so the batch continues.
func correctOne(runner *stage.Runner, path string, settings *motion.Settings, compression store.Compression) {
	c, err := store.Open(path)
	if err != nil {
		monitoring.Errorf("Failed to open container '%s', skipping file: %v.", path, err)
		return
	}
	defer c.Close()

	s := &motion.CorrectionStage{
		Container:   c,
		Settings:    settings,
		Estimator:   &motion.ExecEstimator{Command: motionEstimator},
		Compression: compression,
		Level:       motionAggression,
	}
	if err := runner.Run(c, path, s, motionForce); err != nil {
		monitoring.Errorf("Failed to motion correct '%s', skipping file: %v.", path, err)
		return
	}

	if _, _, err := motion.WriteFigures(c); err != nil {
		monitoring.Errorf("Failed to write QA figures for '%s': %v.", path, err)
	}
}

func init() {
	rootCmd.AddCommand(motionCmd)
	motionCmd.AddCommand(motionCorrectCmd)

	motionCorrectCmd.Flags().StringVarP(&motionSettingsPath, "settings-path", "s", "",
		"Path to the settings file to use")
	motionCorrectCmd.Flags().BoolVarP(&motionRecursive, "recursive", "r", false,
		"Whether to search directories recursively when looking for containers")
	motionCorrectCmd.Flags().StringVarP(&motionInclude, "include", "i", "",
		"Include filter (regular expression), applied before any exclude filter")
	motionCorrectCmd.Flags().StringVarP(&motionExclude, "exclude", "e", "",
		"Exclude filter (regular expression), applied after all include filters")
	motionCorrectCmd.Flags().StringVarP(&motionCompression, "compression", "c", "",
		"Compression algorithm to use for the corrected dataset")
	motionCorrectCmd.Flags().IntVar(&motionAggression, "aggression", 4,
		"Aggression level to use for deflate compression (0-9). Ignored for other algorithms")
	motionCorrectCmd.Flags().StringVar(&motionEstimator, "estimator", "drim2p-estimate",
		"External estimator command to run")
	motionCorrectCmd.Flags().BoolVar(&motionForce, "force", false,
		"Whether to overwrite output datasets if they exist")
}

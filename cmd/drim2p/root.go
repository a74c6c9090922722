package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/drim2p/drim2p/internal/monitoring"
)

var verbosity int

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "drim2p",
	Short: "Preprocessing pipeline for two-photon calcium imaging recordings",
	Long: `drim2p converts vendor RAW recordings into canonical containers and runs
the downstream preprocessing stages on them: motion correction, ΔF/F0
baseline extraction and report generation.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		monitoring.SetVerbosity(verbosity)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v",
		"Increase logging verbosity (-v for progress, -vv for per-file debugging)")
}

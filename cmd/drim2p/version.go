package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/drim2p/drim2p/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of drim2p",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("drim2p %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

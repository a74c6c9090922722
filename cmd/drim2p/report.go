package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/drim2p/drim2p/internal/monitoring"
	"github.com/drim2p/drim2p/internal/motion"
	"github.com/drim2p/drim2p/internal/report"
	"github.com/drim2p/drim2p/internal/store"
)

var (
	reportOutDir    string
	reportRecursive bool
	reportInclude   string
	reportExclude   string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate HTML reports from processed recordings",
}

var reportMotionCmd = &cobra.Command{
	Use:   "motion SOURCE",
	Short: "Generate motion-correction reports for canonical containers",
	Long: `Generates one motion-correction report page per container.

The report summarises the session (frame count, duration, container size)
and, when motion correction has been run, its attributes and QA figures.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		renderer, err := report.NewRenderer()
		if err != nil {
			fatal("Failed to initialise renderer", err)
		}

		paths, err := collectSources(args[0], []string{store.Extension}, reportRecursive, reportInclude, reportExclude)
		if err != nil {
			fatal("Failed to collect containers", err)
		}

		for _, path := range paths {
			monitoring.Debugf("Reporting on '%s'.", path)
			reportOne(renderer, path)
		}
	},
}

func reportOne(renderer *report.Renderer, path string) {
	c, err := store.Open(path)
	if err != nil {
		monitoring.Errorf("Failed to open container '%s', skipping file: %v.", path, err)
		return
	}
	defer c.Close()

	// QA figures written by the correction stage live next to the container;
	// only those actually present are embedded.
	var figures []string
	dir := filepath.Dir(path)
	for _, name := range []string{motion.MeanProjectionFile, motion.DisplacementsFile} {
		figure := filepath.Join(dir, name)
		if _, err := os.Stat(figure); err == nil {
			figures = append(figures, figure)
		}
	}

	r, err := report.BuildMotionReport(c, figures)
	if err != nil {
		monitoring.Errorf("Failed to collect report data for '%s', skipping file: %v.", path, err)
		return
	}

	outDir := reportOutDir
	if outDir == "" {
		outDir = dir
	}
	stem := strings.TrimSuffix(filepath.Base(path), store.Extension)
	outPath := filepath.Join(outDir, stem+".motion.html")
	if err := renderer.RenderMotion(r, outPath); err != nil {
		monitoring.Errorf("Failed to render report for '%s': %v.", path, err)
	}
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.AddCommand(reportMotionCmd)

	reportMotionCmd.Flags().StringVarP(&reportOutDir, "out-dir", "o", "",
		"Output directory for the report pages. Default is next to each container")
	reportMotionCmd.Flags().BoolVarP(&reportRecursive, "recursive", "r", false,
		"Whether to search directories recursively when looking for containers")
	reportMotionCmd.Flags().StringVarP(&reportInclude, "include", "i", "",
		"Include filter (regular expression), applied before any exclude filter")
	reportMotionCmd.Flags().StringVarP(&reportExclude, "exclude", "e", "",
		"Exclude filter (regular expression), applied after all include filters")
}

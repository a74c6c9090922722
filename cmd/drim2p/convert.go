package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/drim2p/drim2p/internal/metadata"
	"github.com/drim2p/drim2p/internal/monitoring"
	"github.com/drim2p/drim2p/internal/rawio"
	"github.com/drim2p/drim2p/internal/store"
)

var (
	convertINIPath       string
	convertXMLPath       string
	convertOut           string
	convertRecursive     bool
	convertInclude       string
	convertExclude       string
	convertNoCompression bool
	convertTimestamps    bool
	convertForce         bool
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert vendor acquisition files to canonical containers",
}

var convertRawCmd = &cobra.Command{
	Use:   "raw SOURCE",
	Short: "Convert RAW recordings and their metadata to canonical containers",
	Long: `Converts RAW data and metadata to canonical containers.

SOURCE can be either a single file or a directory. If it is a directory,
all the RAW files it contains will be converted.

If '--ini-path' is not provided, it will default to the same path as the
source file with the extension changed to '.ini'.
If '--xml-path' is not provided, it will default to the same path as the
source file with the extension changed to '.xml', and the 'XYT' ending
changed to 'OME'. Note the OME-XML path is optional if the INI file contains
the OME-XML as an entry.

If '--generate-timestamps' is set, a '.notes.txt' file with the same name as
the RAW file should also be present.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		source := args[0]
		info, err := os.Stat(source)
		if err != nil {
			fatal("Failed to read source", err)
		}

		paths, err := collectSources(source, []string{".raw"}, convertRecursive, convertInclude, convertExclude)
		if err != nil {
			fatal("Failed to collect RAW files", err)
		}

		if len(paths) > 0 && convertOut != "" {
			// Only a single missing directory level is created; a typo in a
			// deep path should not silently create a hierarchy.
			if _, err := os.Stat(filepath.Dir(convertOut)); err != nil {
				monitoring.Errorf("Neither provided output directory '%s' nor its parent exist. Aborting.", convertOut)
				return
			}
			if err := os.MkdirAll(convertOut, 0o755); err != nil {
				fatal("Failed to create output directory", err)
			}
		}

		resolver := metadata.Resolver{}
		if !info.IsDir() {
			// Explicit metadata overrides only apply to a single-file source.
			resolver.INIPath = convertINIPath
			resolver.XMLPath = convertXMLPath
		}

		for _, path := range paths {
			convertOne(path, resolver)
		}
	},
}

// convertOne ingests a single RAW recording; failures are diagnosed and
// skipped so the batch continues.
func convertOne(path string, resolver metadata.Resolver) {
	outPath := store.ContainerPath(path, convertOut)
	if _, err := os.Stat(outPath); err == nil {
		// A container without the raw dataset was left by an interrupted
		// run; reconvert it instead of skipping.
		if !convertForce && containerIngested(outPath) {
			monitoring.Infof("Skipping '%s' as it already exists and --force is not set.", path)
			return
		}
		if err := os.Remove(outPath); err != nil {
			monitoring.Errorf("Failed to remove existing output '%s', skipping file: %v.", outPath, err)
			return
		}
	}

	monitoring.Debugf("Converting '%s'.", path)

	bundle, err := resolver.Resolve(path)
	if err != nil {
		monitoring.Errorf("Failed to resolve metadata for '%s', skipping file: %v.", path, err)
		return
	}

	var timestamps []float64
	if convertTimestamps {
		timestamps = generateTimestamps(path, bundle)
	}

	monitoring.Debugf("Reading as array using metadata: shape=%v, dtype=%s.", bundle.Shape, bundle.DType)
	stack, err := rawio.DecodeStack(path, bundle.Shape, bundle.DType)
	if err != nil {
		monitoring.Errorf("Failed to decode '%s', skipping file: %v.", path, err)
		return
	}

	compression := store.CompressionFast
	if convertNoCompression {
		compression = store.CompressionNone
	}

	monitoring.Debugf("Writing to container (%s).", outPath)
	c, err := store.Open(outPath)
	if err != nil {
		monitoring.Errorf("Failed to open container for '%s', skipping file: %v.", path, err)
		return
	}
	ingested := false
	defer func() {
		c.Close()
		// Do not leave a partial container behind; it would mask the
		// failure from the next non-forced run.
		if !ingested {
			os.Remove(outPath)
		}
	}()

	opts := store.CreateOptions{PerFrameChunks: true, Compression: compression}
	if err := c.Create(store.RawImagingPath, stack, opts); err != nil {
		monitoring.Errorf("Failed to write imaging data for '%s', skipping file: %v.", path, err)
		return
	}
	if err := c.SetAttributes(store.RawImagingPath, bundle.Values); err != nil {
		monitoring.Errorf("Failed to write metadata attributes for '%s': %v.", path, err)
		return
	}
	ingested = true

	if timestamps != nil {
		err := c.Create(store.TimestampsPath, rawio.Float64Stack(timestamps), store.CreateOptions{
			Compression: compression,
		})
		if err != nil {
			monitoring.Errorf("Failed to write timestamps for '%s': %v.", path, err)
		}
	}
}

// containerIngested reports whether an existing container holds the raw
// imaging dataset.
func containerIngested(path string) bool {
	c, err := store.Open(path)
	if err != nil {
		return false
	}
	defer c.Close()

	exists, err := c.Exists(store.RawImagingPath)
	return err == nil && exists
}

// generateTimestamps derives the per-frame acquisition timestamps from the
// recording's notes file. Conversion proceeds without timestamps when the
// notes are missing or ambiguous.
func generateTimestamps(path string, bundle *metadata.Bundle) []float64 {
	notesPath := metadata.NotesPath(path)
	text, err := os.ReadFile(notesPath)
	if err != nil {
		monitoring.Errorf("Failed to read notes for '%s' at '%s': %v.", path, notesPath, err)
		return nil
	}

	entries, err := metadata.ParseNotes(string(text))
	if err != nil {
		monitoring.Errorf("Failed to parse notes for '%s': %v.", path, err)
		return nil
	}
	entry, err := metadata.MatchEntry(entries, filepath.Base(path))
	if err != nil {
		monitoring.Errorf("Failed to match notes entry for '%s': %v.", path, err)
		return nil
	}

	timestamps, err := metadata.GenerateTimestamps(entry, bundle.FrameCount())
	if err != nil {
		monitoring.Errorf("Failed to generate timestamps for '%s': %v.", path, err)
		return nil
	}
	return timestamps
}

func init() {
	rootCmd.AddCommand(convertCmd)
	convertCmd.AddCommand(convertRawCmd)

	convertRawCmd.Flags().StringVar(&convertINIPath, "ini-path", "",
		"Path to the INI file containing metadata about SOURCE. Ignored if SOURCE is a directory")
	convertRawCmd.Flags().StringVar(&convertXMLPath, "xml-path", "",
		"Path to the OME-XML file containing metadata about SOURCE. Ignored if SOURCE is a directory")
	convertRawCmd.Flags().StringVarP(&convertOut, "out", "o", "",
		"Output directory in which to put the converted files. Default is next to SOURCE")
	convertRawCmd.Flags().BoolVarP(&convertRecursive, "recursive", "r", false,
		"Whether to search directories recursively when looking for RAW files")
	convertRawCmd.Flags().StringVarP(&convertInclude, "include", "i", "",
		"Include filter (regular expression), applied before any exclude filter")
	convertRawCmd.Flags().StringVarP(&convertExclude, "exclude", "e", "",
		"Exclude filter (regular expression), applied after all include filters")
	convertRawCmd.Flags().BoolVar(&convertNoCompression, "no-compression", false,
		"Whether to disable compression for the output containers")
	convertRawCmd.Flags().BoolVar(&convertTimestamps, "generate-timestamps", false,
		"Whether to generate timestamps from the notes entries of the RAW files")
	convertRawCmd.Flags().BoolVar(&convertForce, "force", false,
		"Whether to overwrite output files if they exist")
}

package main

import (
	"github.com/drim2p/drim2p/internal/fsutil"
)

// collectSources resolves a source file or directory into the list of files
// to process, applying include filters before exclude filters.
func collectSources(source string, extensions []string, recursive bool, include, exclude string) ([]string, error) {
	paths, err := fsutil.CollectPathsFromExtensions(source, extensions, recursive, true)
	if err != nil {
		return nil, err
	}

	var includes, excludes []string
	if include != "" {
		includes = []string{include}
	}
	if exclude != "" {
		excludes = []string{exclude}
	}
	return fsutil.FilterPaths(paths, includes, excludes)
}

// Package fsutil provides filesystem helpers for locating recordings on disk.
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// CollectPathsFromExtensions collects file paths under root whose extension
// matches one of extensions (given with their leading dot, e.g. ".raw").
//
// When strict is set, only the final extension of a file is checked; otherwise
// any extension in the file's dotted suffix chain may match, so "a.raw.bak"
// still matches ".raw". When recursive is unset, subdirectories are not
// visited. If root is itself a file, it is the only candidate.
func CollectPathsFromExtensions(root string, extensions []string, recursive, strict bool) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %q: %w", root, err)
	}

	if !info.IsDir() {
		if matchesExtensions(filepath.Base(root), extensions, strict) {
			return []string{root}, nil
		}
		return nil, nil
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %q: %w", root, err)
	}

	var collected []string
	for _, entry := range entries {
		path := filepath.Join(root, entry.Name())
		if entry.IsDir() {
			if !recursive {
				continue
			}
			nested, err := CollectPathsFromExtensions(path, extensions, recursive, strict)
			if err != nil {
				return nil, err
			}
			collected = append(collected, nested...)
			continue
		}
		if matchesExtensions(entry.Name(), extensions, strict) {
			collected = append(collected, path)
		}
	}

	return collected, nil
}

func matchesExtensions(name string, extensions []string, strict bool) bool {
	var candidates []string
	if strict {
		if ext := filepath.Ext(name); ext != "" {
			candidates = []string{ext}
		}
	} else {
		candidates = suffixes(name)
	}

	for _, candidate := range candidates {
		for _, ext := range extensions {
			if candidate == ext {
				return true
			}
		}
	}
	return false
}

// suffixes returns the dotted suffix chain of a file name, so "a.raw.bak"
// yields [".raw", ".bak"].
func suffixes(name string) []string {
	parts := strings.Split(name, ".")
	if len(parts) < 2 {
		return nil
	}
	out := make([]string, 0, len(parts)-1)
	for _, part := range parts[1:] {
		out = append(out, "."+part)
	}
	return out
}

// FilterPaths applies include and exclude regular-expression filters to paths.
// Include filters are applied before any exclude filters; an empty include set
// keeps everything. A path is kept when it matches at least one include filter
// and no exclude filter.
func FilterPaths(paths []string, include, exclude []string) ([]string, error) {
	includes, err := compilePatterns(include)
	if err != nil {
		return nil, fmt.Errorf("invalid include filter: %w", err)
	}
	excludes, err := compilePatterns(exclude)
	if err != nil {
		return nil, fmt.Errorf("invalid exclude filter: %w", err)
	}

	var kept []string
	for _, path := range paths {
		if len(includes) > 0 && !matchesAny(includes, path) {
			continue
		}
		if matchesAny(excludes, path) {
			continue
		}
		kept = append(kept, path)
	}
	return kept, nil
}

func compilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		if pattern == "" {
			continue
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

func matchesAny(patterns []*regexp.Regexp, path string) bool {
	for _, re := range patterns {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}

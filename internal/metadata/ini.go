// Package metadata resolves sidecar acquisition metadata into a typed bundle.
//
// A recording is described by up to three sidecar files: an INI file with
// typed key/value metadata, an OME-XML descriptor carrying shape and sample
// type (either embedded in the INI or stored as a sibling file), and an
// optional freeform notes file with per-session timing.
package metadata

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"
)

// DefaultSeparator is the list separator used when none is configured.
const DefaultSeparator = ";"

// ParseINI parses the INI metadata file at path into typed key/values.
//
// The file must contain exactly one named section; a [DEFAULT] section is
// merged in underneath it. Values are coerced int, then float, then bool,
// falling back to string; values containing an unescaped separator become
// lists. Keys are lower-cased.
func ParseINI(path, separator string) (map[string]any, error) {
	if utf8.RuneCountInString(separator) != 1 {
		return nil, &SeparatorTooLongError{Separator: separator}
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open INI metadata: %w", err)
	}
	defer file.Close()

	defaults := make(map[string]any)
	section := make(map[string]any)
	var sections []string
	current := ""

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			current = strings.TrimSpace(line[1 : len(line)-1])
			if !strings.EqualFold(current, "DEFAULT") {
				sections = append(sections, current)
			}
			continue
		}

		key, rawValue, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value, err := coerceValue(strings.TrimSpace(rawValue), separator)
		if err != nil {
			return nil, err
		}

		if strings.EqualFold(current, "DEFAULT") {
			defaults[key] = value
		} else {
			section[key] = value
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read INI metadata: %w", err)
	}

	if len(sections) == 0 {
		return nil, &NoINISectionsFoundError{Path: path}
	}
	if len(sections) > 1 {
		return nil, &TooManyINISectionsFoundError{Path: path, Sections: sections}
	}

	merged := make(map[string]any, len(defaults)+len(section))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range section {
		merged[k] = v
	}
	return merged, nil
}

// coerceValue turns a raw INI value into its typed form. Values containing an
// unescaped separator become lists of coerced elements.
func coerceValue(raw, separator string) (any, error) {
	parts, err := SplitEscaped(raw, separator)
	if err != nil {
		return nil, err
	}
	if len(parts) > 1 {
		list := make([]any, len(parts))
		for i, part := range parts {
			list[i] = coerceScalar(part)
		}
		return list, nil
	}
	return coerceScalar(raw), nil
}

// coerceScalar coerces in order: integer, float, boolean, string.
func coerceScalar(raw string) any {
	if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return v
	}
	if v, err := strconv.ParseFloat(raw, 64); err == nil {
		return v
	}
	switch strings.ToLower(raw) {
	case "true", "yes", "on":
		return true
	case "false", "no", "off":
		return false
	}
	return raw
}

// SplitEscaped splits s on the single-character separator. A separator
// preceded by a backslash does not split and is kept verbatim, so "b\;ar"
// stays intact when splitting on ";".
func SplitEscaped(s, separator string) ([]string, error) {
	if utf8.RuneCountInString(separator) != 1 {
		return nil, &SeparatorTooLongError{Separator: separator}
	}
	sep, _ := utf8.DecodeRuneInString(separator)

	var parts []string
	var current strings.Builder
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == '\\' && i+1 < len(runes) && runes[i+1] == sep {
			current.WriteRune(r)
			current.WriteRune(runes[i+1])
			i++
			continue
		}
		if r == sep {
			parts = append(parts, current.String())
			current.Reset()
			continue
		}
		current.WriteRune(r)
	}
	parts = append(parts, current.String())
	return parts, nil
}

package metadata

import (
	"bufio"
	"fmt"
	"strings"
	"time"
)

// notesTimeLayout is the timestamp format the acquisition tool writes into
// notes files.
const notesTimeLayout = "2006-01-02 15:04:05"

// NotesEntry is one recorded session from an acquisition notes file.
type NotesEntry struct {
	// StartTime is the start time of the notes entry recording.
	StartTime time.Time
	// EndTime is the end time of the notes entry recording.
	EndTime time.Time
	// FilePath is the recording path as recorded by the acquisition tool,
	// usually a Windows-style absolute path.
	FilePath string
}

// DurationMS returns the entry duration in milliseconds.
func (e NotesEntry) DurationMS() float64 {
	return float64(e.EndTime.Sub(e.StartTime)) / float64(time.Millisecond)
}

// BaseName returns the final path component of the recorded file path,
// tolerating both Windows and POSIX separators.
func (e NotesEntry) BaseName() string {
	name := e.FilePath
	if i := strings.LastIndexAny(name, `\/`); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// ParseNotes parses the freeform notes text into entries. An entry is built
// from "Start time:", "End time:" and "File path:" lines; any other text is
// ignored. An entry is emitted once all three fields are present.
func ParseNotes(text string) ([]NotesEntry, error) {
	var entries []NotesEntry
	var current NotesEntry
	var haveStart, haveEnd, havePath bool

	flush := func() {
		if haveStart && haveEnd && havePath {
			entries = append(entries, current)
		}
		current = NotesEntry{}
		haveStart, haveEnd, havePath = false, false, false
	}

	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)

		switch strings.ToLower(strings.TrimSpace(key)) {
		case "start time":
			if haveStart {
				// A repeated start marker begins a new entry.
				flush()
			}
			ts, err := time.Parse(notesTimeLayout, value)
			if err != nil {
				return nil, fmt.Errorf("failed to parse notes start time %q: %w", value, err)
			}
			current.StartTime = ts
			haveStart = true
		case "end time":
			ts, err := time.Parse(notesTimeLayout, value)
			if err != nil {
				return nil, fmt.Errorf("failed to parse notes end time %q: %w", value, err)
			}
			current.EndTime = ts
			haveEnd = true
		case "file path":
			// The cut is at the first colon, so a Windows drive colon stays
			// part of the value.
			current.FilePath = value
			havePath = true
		}
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read notes text: %w", err)
	}
	return entries, nil
}

// MatchEntry finds the unique notes entry whose recorded file path matches
// the recording's file name, comparing basenames case-insensitively. Zero or
// multiple matches fail with a NotesMatchError carrying the count.
func MatchEntry(entries []NotesEntry, recordingName string) (NotesEntry, error) {
	var matches []NotesEntry
	for _, entry := range entries {
		if strings.EqualFold(entry.BaseName(), recordingName) {
			matches = append(matches, entry)
		}
	}
	if len(matches) != 1 {
		return NotesEntry{}, &NotesMatchError{Recording: recordingName, Found: len(matches)}
	}
	return matches[0], nil
}

// GenerateTimestamps produces one timestamp per frame for a notes entry,
// evenly spacing frames over the entry duration. Timestamps are left-edged:
// frame i maps to i * (duration / frameCount), so the final value stays short
// of the full duration.
func GenerateTimestamps(entry NotesEntry, frameCount int) ([]float64, error) {
	if frameCount <= 0 {
		return nil, fmt.Errorf("cannot generate timestamps for frame count %d", frameCount)
	}

	spacing := entry.DurationMS() / float64(frameCount)
	timestamps := make([]float64, frameCount)
	for i := range timestamps {
		timestamps[i] = float64(i) * spacing
	}
	return timestamps, nil
}

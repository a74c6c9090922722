// Package monitoring holds the pipeline's diagnostic logger.
package monitoring

import "log"

// Verbosity levels. The default only emits warnings and errors; level 1 adds
// progress information, level 2 adds per-file debugging.
const (
	LevelWarn = iota
	LevelInfo
	LevelDebug
)

var (
	verbosity = LevelWarn

	// Logf is the package-level diagnostic logger. It defaults to log.Printf but
	// may be replaced by SetLogger. Tests or production code can redirect or
	// mute it.
	Logf func(format string, v ...interface{}) = log.Printf
)

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// SetVerbosity sets the logging verbosity. Values below LevelWarn clamp to
// LevelWarn.
func SetVerbosity(level int) {
	if level < LevelWarn {
		level = LevelWarn
	}
	verbosity = level
}

// Errorf logs unconditionally.
func Errorf(format string, v ...interface{}) {
	Logf(format, v...)
}

// Infof logs when verbosity is at least LevelInfo.
func Infof(format string, v ...interface{}) {
	if verbosity >= LevelInfo {
		Logf(format, v...)
	}
}

// Debugf logs when verbosity is at least LevelDebug.
func Debugf(format string, v ...interface{}) {
	if verbosity >= LevelDebug {
		Logf(format, v...)
	}
}

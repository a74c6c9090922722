package deltaf

import (
	"fmt"
	"strings"
)

// ArrayDimensionNotSupportedError reports an input of the wrong rank.
type ArrayDimensionNotSupportedError struct {
	Dimension int
}

func (e *ArrayDimensionNotSupportedError) Error() string {
	return fmt.Sprintf("Only 2D arrays are supported. Found: %dD.", e.Dimension)
}

// InvalidPercentileError reports a missing percentile for a method that
// requires one.
type InvalidPercentileError struct {
	Value any
}

func (e *InvalidPercentileError) Error() string {
	return fmt.Sprintf("Cannot compute percentile when it is `%v`.", e.Value)
}

// OutOfRangePercentileError reports a percentile outside [0, 100].
type OutOfRangePercentileError struct {
	Percentile float64
}

func (e *OutOfRangePercentileError) Error() string {
	return fmt.Sprintf("Percentile should be between 0 and 100. Found: %v.", e.Percentile)
}

// RollingWindowTooLargeError reports a window width the padded time axis
// cannot accommodate.
type RollingWindowTooLargeError struct {
	WindowWidth int
	ArrayLength int
}

func (e *RollingWindowTooLargeError) Error() string {
	return fmt.Sprintf(
		"Rolling window width should be at most twice the length of the first "+
			"dimension of the input minus 1. Got '%d' which is larger than %d.",
		e.WindowWidth, e.ArrayLength*2-1,
	)
}

// UnknownMethodError reports an unrecognised baseline method.
type UnknownMethodError struct {
	Method string
	Known  []string
}

func (e *UnknownMethodError) Error() string {
	return fmt.Sprintf(
		"Unknown method: '%s'. Valid methods are: %s",
		e.Method, strings.Join(e.Known, ", "),
	)
}

// UnknownPaddingModeError reports an unrecognised padding mode.
type UnknownPaddingModeError struct {
	PaddingMode string
	Known       []string
}

func (e *UnknownPaddingModeError) Error() string {
	return fmt.Sprintf(
		"Unknown padding mode '%s'. Valid modes are: %s.",
		e.PaddingMode, strings.Join(e.Known, ", "),
	)
}

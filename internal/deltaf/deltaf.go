// Package deltaf computes ΔF/F0 baselines over fluorescence traces.
//
// The engine is a pure function over a two-dimensional array (axis 0 = time,
// axis 1 = channel). A window width of zero yields one global baseline value
// per channel; a positive width yields a rolling baseline of the input's
// shape, computed over a padded copy of the time axis.
package deltaf

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Method selects the baseline statistic.
type Method string

// PaddingMode selects how the time axis is extended for rolling baselines.
type PaddingMode string

const (
	MethodPercentile Method = "percentile"
	MethodMean       Method = "mean"
	MethodMedian     Method = "median"

	PadConstant PaddingMode = "constant"
	PadEdge     PaddingMode = "edge"
	PadReflect  PaddingMode = "reflect"
)

// KnownMethods lists the accepted baseline methods.
var KnownMethods = []string{
	string(MethodPercentile),
	string(MethodMean),
	string(MethodMedian),
}

// KnownPaddingModes lists the accepted padding modes.
var KnownPaddingModes = []string{
	string(PadConstant),
	string(PadEdge),
	string(PadReflect),
}

// Array is a dense row-major float64 array. The engine operates on rank-2
// arrays of shape (time, channel).
type Array struct {
	Shape []int
	Data  []float64
}

// NewArray builds an Array from per-time-sample channel rows.
func NewArray(rows [][]float64) *Array {
	if len(rows) == 0 {
		return &Array{Shape: []int{0, 0}}
	}
	cols := len(rows[0])
	data := make([]float64, 0, len(rows)*cols)
	for _, row := range rows {
		data = append(data, row...)
	}
	return &Array{Shape: []int{len(rows), cols}, Data: data}
}

// At returns the sample at time t, channel c.
func (a *Array) At(t, c int) float64 {
	return a.Data[t*a.Shape[1]+c]
}

// Options configures a baseline computation.
type Options struct {
	Method Method
	// Percentile is consulted by percentile-family methods only; nil is an
	// error for those methods.
	Percentile *float64
	// WindowWidth selects a global baseline when zero, rolling otherwise.
	WindowWidth int
	PaddingMode PaddingMode
	// ConstantValue fills the padding under PadConstant.
	ConstantValue float64
}

// ComputeF0 estimates the baseline fluorescence of a (time, channel) array.
//
// A zero window width yields shape (channel); a positive width yields the
// input shape. Parameters are validated in a fixed order: rank, method,
// percentile, window width, padding mode.
func ComputeF0(arr *Array, opts Options) (*Array, error) {
	if len(arr.Shape) != 2 {
		return nil, &ArrayDimensionNotSupportedError{Dimension: len(arr.Shape)}
	}

	statistic, err := statisticFor(opts)
	if err != nil {
		return nil, err
	}

	frames, channels := arr.Shape[0], arr.Shape[1]
	if opts.WindowWidth == 0 {
		out := &Array{Shape: []int{channels}, Data: make([]float64, channels)}
		series := make([]float64, frames)
		for c := 0; c < channels; c++ {
			for t := 0; t < frames; t++ {
				series[t] = arr.At(t, c)
			}
			out.Data[c] = statistic(series)
		}
		return out, nil
	}

	if opts.WindowWidth < 0 {
		return nil, fmt.Errorf(
			"Rolling window width should be non-negative. Found: %d.", opts.WindowWidth,
		)
	}
	if opts.WindowWidth > frames*2-1 {
		return nil, &RollingWindowTooLargeError{
			WindowWidth: opts.WindowWidth,
			ArrayLength: frames,
		}
	}
	if err := validPaddingMode(opts.PaddingMode); err != nil {
		return nil, err
	}

	out := &Array{Shape: []int{frames, channels}, Data: make([]float64, frames*channels)}
	series := make([]float64, frames)
	for c := 0; c < channels; c++ {
		for t := 0; t < frames; t++ {
			series[t] = arr.At(t, c)
		}
		padded := pad(series, opts.WindowWidth/2, opts.PaddingMode, opts.ConstantValue)
		// The window of width w for output index t starts at t in the
		// padded series, which centres it on the original sample for odd
		// widths.
		for t := 0; t < frames; t++ {
			out.Data[t*channels+c] = statistic(padded[t : t+opts.WindowWidth])
		}
	}
	return out, nil
}

// ComputeDeltaFOverF normalizes an array against its baseline: (F - F0) / F0
// per sample. A rank-1 global baseline broadcasts over the time axis.
func ComputeDeltaFOverF(arr *Array, f0 *Array) (*Array, error) {
	if len(arr.Shape) != 2 {
		return nil, &ArrayDimensionNotSupportedError{Dimension: len(arr.Shape)}
	}

	frames, channels := arr.Shape[0], arr.Shape[1]
	out := &Array{Shape: []int{frames, channels}, Data: make([]float64, frames*channels)}
	for t := 0; t < frames; t++ {
		for c := 0; c < channels; c++ {
			baseline := f0.Data[c]
			if len(f0.Shape) == 2 {
				baseline = f0.At(t, c)
			}
			out.Data[t*channels+c] = (arr.At(t, c) - baseline) / baseline
		}
	}
	return out, nil
}

// statisticFor resolves the method and percentile options into a window
// statistic. The statistic may reorder its argument.
func statisticFor(opts Options) (func([]float64) float64, error) {
	switch opts.Method {
	case MethodMean:
		return func(window []float64) float64 {
			return stat.Mean(window, nil)
		}, nil
	case MethodMedian:
		return quantileStatistic(50), nil
	case MethodPercentile:
		if opts.Percentile == nil {
			return nil, &InvalidPercentileError{Value: nil}
		}
		p := *opts.Percentile
		if p < 0 || p > 100 {
			return nil, &OutOfRangePercentileError{Percentile: p}
		}
		return quantileStatistic(p), nil
	}
	return nil, &UnknownMethodError{Method: string(opts.Method), Known: KnownMethods}
}

// quantileStatistic computes the linearly interpolated percentile of a
// window, sorting a scratch copy.
func quantileStatistic(percentile float64) func([]float64) float64 {
	return func(window []float64) float64 {
		scratch := append([]float64(nil), window...)
		sort.Float64s(scratch)
		return stat.Quantile(percentile/100, stat.LinInterp, scratch, nil)
	}
}

func validPaddingMode(mode PaddingMode) error {
	switch mode {
	case PadConstant, PadEdge, PadReflect:
		return nil
	}
	return &UnknownPaddingModeError{PaddingMode: string(mode), Known: KnownPaddingModes}
}

// pad extends a series by n samples on each side according to the padding
// mode. Reflection mirrors around the edge samples without repeating them,
// which is valid for every window width the engine accepts.
func pad(series []float64, n int, mode PaddingMode, constant float64) []float64 {
	padded := make([]float64, len(series)+2*n)
	copy(padded[n:], series)
	last := len(series) - 1
	for i := 0; i < n; i++ {
		switch mode {
		case PadConstant:
			padded[n-1-i] = constant
			padded[n+len(series)+i] = constant
		case PadEdge:
			padded[n-1-i] = series[0]
			padded[n+len(series)+i] = series[last]
		case PadReflect:
			padded[n-1-i] = series[i+1]
			padded[n+len(series)+i] = series[last-1-i]
		}
	}
	return padded
}

package deltaf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

// arange returns a (frames, channels) array holding 0, 1, 2, ... in row-major
// order, the canonical fixture for baseline checks.
func arange(frames, channels int) *Array {
	data := make([]float64, frames*channels)
	for i := range data {
		data[i] = float64(i)
	}
	return &Array{Shape: []int{frames, channels}, Data: data}
}

func TestComputeF0Shape(t *testing.T) {
	arr := arange(20, 5)
	for _, method := range []Method{MethodPercentile, MethodMean, MethodMedian} {
		for _, padding := range []PaddingMode{PadConstant, PadEdge, PadReflect} {
			for _, width := range []int{0, 10} {
				opts := Options{
					Method:      method,
					Percentile:  ptr(5),
					WindowWidth: width,
					PaddingMode: padding,
				}
				f0, err := ComputeF0(arr, opts)
				require.NoError(t, err, "method=%s padding=%s width=%d", method, padding, width)

				want := []int{5}
				if width != 0 {
					want = []int{20, 5}
				}
				assert.Equal(t, want, f0.Shape, "method=%s padding=%s width=%d", method, padding, width)
			}
		}
	}
}

func TestComputeF0PercentileValidation(t *testing.T) {
	arr := arange(20, 5)

	_, err := ComputeF0(arr, Options{Method: MethodPercentile})
	var invalid *InvalidPercentileError
	require.ErrorAs(t, err, &invalid)

	for _, p := range []float64{-10, 110} {
		_, err := ComputeF0(arr, Options{Method: MethodPercentile, Percentile: ptr(p)})
		var outOfRange *OutOfRangePercentileError
		require.ErrorAs(t, err, &outOfRange)
		assert.Equal(t, p, outOfRange.Percentile)
		assert.Contains(t, err.Error(), "between 0 and 100")
	}
}

func TestComputeF0RankValidation(t *testing.T) {
	tests := []struct {
		name  string
		shape []int
	}{
		{"rank 1", []int{100}},
		{"rank 3", []int{4, 5, 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := 1
			for _, dim := range tt.shape {
				n *= dim
			}
			arr := &Array{Shape: tt.shape, Data: make([]float64, n)}

			// Rank is checked before anything else, so even an invalid
			// method reports the dimension error.
			_, err := ComputeF0(arr, Options{Method: "invalid"})
			var dimErr *ArrayDimensionNotSupportedError
			require.ErrorAs(t, err, &dimErr)
			assert.Equal(t, len(tt.shape), dimErr.Dimension)
		})
	}
}

func TestComputeF0WindowBounds(t *testing.T) {
	arr := arange(20, 5)

	_, err := ComputeF0(arr, Options{
		Method: MethodMean, WindowWidth: 39, PaddingMode: PadEdge,
	})
	assert.NoError(t, err)

	_, err = ComputeF0(arr, Options{
		Method: MethodMean, WindowWidth: 40, PaddingMode: PadEdge,
	})
	var tooLarge *RollingWindowTooLargeError
	require.ErrorAs(t, err, &tooLarge)
	assert.Equal(t, 40, tooLarge.WindowWidth)
	assert.Contains(t, err.Error(), "larger than 39")
}

func TestComputeF0NegativeWindowWidth(t *testing.T) {
	_, err := ComputeF0(arange(20, 5), Options{
		Method: MethodMean, WindowWidth: -1, PaddingMode: PadEdge,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-negative")
	assert.Contains(t, err.Error(), "-1")
}

func TestComputeF0UnknownMethod(t *testing.T) {
	_, err := ComputeF0(arange(20, 5), Options{Method: "invalid"})
	var unknown *UnknownMethodError
	require.ErrorAs(t, err, &unknown)
	for _, method := range KnownMethods {
		assert.Contains(t, err.Error(), method)
	}
}

func TestComputeF0UnknownPaddingMode(t *testing.T) {
	_, err := ComputeF0(arange(20, 5), Options{
		Method: MethodMean, WindowWidth: 10, PaddingMode: "wrap",
	})
	var unknown *UnknownPaddingModeError
	require.ErrorAs(t, err, &unknown)
	for _, mode := range KnownPaddingModes {
		assert.Contains(t, err.Error(), mode)
	}
}

func TestComputeF0Global(t *testing.T) {
	arr := arange(20, 5)

	tests := []struct {
		name string
		opts Options
		want func(c int) float64
	}{
		{
			"mean",
			Options{Method: MethodMean},
			func(c int) float64 { return float64(c) + 47.5 },
		},
		{
			"median",
			Options{Method: MethodMedian},
			func(c int) float64 { return float64(c) + 47.5 },
		},
		{
			"percentile 0 is the minimum",
			Options{Method: MethodPercentile, Percentile: ptr(0)},
			func(c int) float64 { return float64(c) },
		},
		{
			"percentile 100 is the maximum",
			Options{Method: MethodPercentile, Percentile: ptr(100)},
			func(c int) float64 { return float64(c) + 95 },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f0, err := ComputeF0(arr, tt.opts)
			require.NoError(t, err)
			require.Equal(t, []int{5}, f0.Shape)
			for c := 0; c < 5; c++ {
				assert.InDelta(t, tt.want(c), f0.Data[c], 1e-9, "channel %d", c)
			}
		})
	}
}

func TestComputeF0RollingPadding(t *testing.T) {
	// Per channel the series is c, c+5, c+10, ... so the first window of
	// width 3 exposes exactly how the left padding is filled.
	arr := arange(20, 5)

	tests := []struct {
		name string
		opts Options
		// want is the baseline at t=0 for channel c.
		want func(c float64) float64
	}{
		{
			"constant",
			Options{Method: MethodMean, WindowWidth: 3, PaddingMode: PadConstant},
			func(c float64) float64 { return (0 + c + c + 5) / 3 },
		},
		{
			"edge replicates the first sample",
			Options{Method: MethodMean, WindowWidth: 3, PaddingMode: PadEdge},
			func(c float64) float64 { return (c + c + c + 5) / 3 },
		},
		{
			"reflect mirrors without repeating the edge",
			Options{Method: MethodMean, WindowWidth: 3, PaddingMode: PadReflect},
			func(c float64) float64 { return (c + 5 + c + c + 5) / 3 },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f0, err := ComputeF0(arr, tt.opts)
			require.NoError(t, err)
			require.Equal(t, []int{20, 5}, f0.Shape)
			for c := 0; c < 5; c++ {
				assert.InDelta(t, tt.want(float64(c)), f0.At(0, c), 1e-9, "channel %d", c)
			}
			// Away from the edges the window is fully inside the series, so
			// a mean over width 3 centres on the sample itself.
			assert.InDelta(t, arr.At(10, 0), f0.At(10, 0), 1e-9)
		})
	}
}

func TestComputeDeltaFOverF(t *testing.T) {
	arr := NewArray([][]float64{{10, 100}, {20, 200}, {30, 300}})

	t.Run("global baseline broadcasts", func(t *testing.T) {
		f0 := &Array{Shape: []int{2}, Data: []float64{10, 100}}
		out, err := ComputeDeltaFOverF(arr, f0)
		require.NoError(t, err)
		assert.Equal(t, []int{3, 2}, out.Shape)
		assert.InDelta(t, 0.0, out.At(0, 0), 1e-9)
		assert.InDelta(t, 1.0, out.At(1, 0), 1e-9)
		assert.InDelta(t, 2.0, out.At(2, 1), 1e-9)
	})

	t.Run("rolling baseline applies per sample", func(t *testing.T) {
		f0 := NewArray([][]float64{{10, 100}, {10, 100}, {10, 100}})
		out, err := ComputeDeltaFOverF(arr, f0)
		require.NoError(t, err)
		assert.InDelta(t, 2.0, out.At(2, 0), 1e-9)
	})
}

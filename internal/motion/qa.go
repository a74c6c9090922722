package motion

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/drim2p/drim2p/internal/rawio"
	"github.com/drim2p/drim2p/internal/store"
)

// QA figure file names, written next to the recording's container.
const (
	MeanProjectionFile = "mean_projection.png"
	DisplacementsFile  = "displacements.html"
)

// MeanProjection averages a stack over its time axis, yielding one flat
// frame of per-pixel means.
func MeanProjection(stack *rawio.Stack) ([]float64, error) {
	if stack.FrameCount() == 0 {
		return nil, fmt.Errorf("cannot project an empty stack")
	}
	mean := make([]float64, stack.SamplesPerFrame())
	for i := 0; i < stack.FrameCount(); i++ {
		frame, err := stack.FrameFloat64(i)
		if err != nil {
			return nil, err
		}
		for j, v := range frame {
			mean[j] += v
		}
	}
	for j := range mean {
		mean[j] /= float64(stack.FrameCount())
	}
	return mean, nil
}

// meanGrid adapts a flat Y-by-X projection to plotter.GridXYZ. Row 0 of the
// frame is the top scan line, so the Y axis is flipped for display.
type meanGrid struct {
	rows, cols int
	values     []float64
}

func (g meanGrid) Dims() (int, int)   { return g.cols, g.rows }
func (g meanGrid) X(c int) float64    { return float64(c) }
func (g meanGrid) Y(r int) float64    { return float64(r) }
func (g meanGrid) Z(c, r int) float64 { return g.values[(g.rows-1-r)*g.cols+c] }

// WriteMeanProjection renders the mean projection of a stack as a heatmap
// PNG. Multi-channel stacks project channel 0.
func WriteMeanProjection(stack *rawio.Stack, path string) error {
	if len(stack.Shape) < 3 {
		return fmt.Errorf("cannot render projection of shape %v", stack.Shape)
	}
	mean, err := MeanProjection(stack)
	if err != nil {
		return err
	}

	rows, cols := stack.Shape[1], stack.Shape[2]
	values := make([]float64, rows*cols)
	if len(stack.Shape) == 4 {
		channels := stack.Shape[3]
		for i := range values {
			values[i] = mean[i*channels]
		}
	} else {
		copy(values, mean)
	}

	p := plot.New()
	p.Title.Text = "Mean projection"
	p.X.Label.Text = "X (px)"
	p.Y.Label.Text = "Y (px)"

	heatmap := plotter.NewHeatMap(meanGrid{rows: rows, cols: cols, values: values},
		moreland.BlackBody().Palette(256))
	p.Add(heatmap)

	if err := p.Save(8*vg.Inch, 8*vg.Inch, path); err != nil {
		return fmt.Errorf("save mean projection: %w", err)
	}
	return nil
}

// WriteDisplacementChart renders the per-frame displacement series as an
// HTML line chart with one series per axis.
func WriteDisplacementChart(displacements [][2]int, path string) error {
	frames := make([]int, len(displacements))
	ys := make([]opts.LineData, len(displacements))
	xs := make([]opts.LineData, len(displacements))
	for i, d := range displacements {
		frames[i] = i
		ys[i] = opts.LineData{Value: d[0]}
		xs[i] = opts.LineData{Value: d[1]}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Frame displacements", Width: "900px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{Title: "Frame displacements", Subtitle: fmt.Sprintf("frames=%d", len(displacements))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Frame"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Displacement (px)"}),
	)
	line.SetXAxis(frames)
	line.AddSeries("y", ys)
	line.AddSeries("x", xs)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create displacement chart: %w", err)
	}
	defer f.Close()
	if err := line.Render(f); err != nil {
		return fmt.Errorf("render displacement chart: %w", err)
	}
	return nil
}

// WriteFigures renders both QA figures for a corrected recording into the
// directory of its container, returning the figure paths.
func WriteFigures(c *store.Container) (projection string, chart string, err error) {
	dir := filepath.Dir(c.Path())

	corrected, err := c.Read(store.CorrectedImagingPath)
	if err != nil {
		return "", "", err
	}
	projection = filepath.Join(dir, MeanProjectionFile)
	if err := WriteMeanProjection(corrected, projection); err != nil {
		return "", "", err
	}

	series, err := c.Read(store.DisplacementsPath)
	if err != nil {
		return "", "", err
	}
	values, err := series.Float64s()
	if err != nil {
		return "", "", err
	}
	displacements := make([][2]int, len(values)/2)
	for i := range displacements {
		displacements[i] = [2]int{int(values[i*2]), int(values[i*2+1])}
	}
	chart = filepath.Join(dir, DisplacementsFile)
	if err := WriteDisplacementChart(displacements, chart); err != nil {
		return "", "", err
	}

	return projection, chart, nil
}

package deltaf

import (
	"fmt"

	"github.com/drim2p/drim2p/internal/monitoring"
	"github.com/drim2p/drim2p/internal/rawio"
	"github.com/drim2p/drim2p/internal/store"
)

// StageName names the baseline stage and its scratch directories.
const StageName = "deltaf"

// Attribute keys recorded on the ΔF/F dataset.
const (
	MethodAttr        = "METHOD"
	PercentileAttr    = "PERCENTILE"
	WindowWidthAttr   = "WINDOW_WIDTH"
	PaddingModeAttr   = "PADDING_MODE"
	ConstantValueAttr = "CONSTANT_VALUE"
)

// BaselineStage computes the per-channel ΔF/F trace of a recording. It
// prefers the corrected imaging stack and falls back to the raw one when no
// correction has been run.
type BaselineStage struct {
	Container *store.Container
	Options   Options
}

// baselineResult carries the computed trace between Process and Write.
type baselineResult struct {
	trace *Array
}

func (s *BaselineStage) Name() string { return StageName }

func (s *BaselineStage) OutputPaths() []string {
	return []string{store.DeltaFPath}
}

func (s *BaselineStage) Process(string) (any, error) {
	stack, err := s.sourceStack()
	if err != nil {
		return nil, err
	}

	trace, err := meanTrace(stack)
	if err != nil {
		return nil, err
	}
	f0, err := ComputeF0(trace, s.Options)
	if err != nil {
		return nil, err
	}
	deltaF, err := ComputeDeltaFOverF(trace, f0)
	if err != nil {
		return nil, err
	}
	return &baselineResult{trace: deltaF}, nil
}

// sourceStack picks the imaging dataset to baseline against.
func (s *BaselineStage) sourceStack() (*rawio.Stack, error) {
	corrected, err := s.Container.Exists(store.CorrectedImagingPath)
	if err != nil {
		return nil, err
	}
	if corrected {
		return s.Container.Read(store.CorrectedImagingPath)
	}
	monitoring.Infof("No corrected imaging in '%s'; computing ΔF/F over the raw stack.",
		s.Container.Path())
	return s.Container.Read(store.RawImagingPath)
}

func (s *BaselineStage) Write(result any) error {
	res := result.(*baselineResult)
	stack, err := rawio.Float32Stack(res.trace.Data, res.trace.Shape)
	if err != nil {
		return err
	}
	return s.Container.Create(store.DeltaFPath, stack, store.CreateOptions{})
}

func (s *BaselineStage) Attributes(any) map[string]any {
	attrs := map[string]any{
		MethodAttr:      string(s.Options.Method),
		WindowWidthAttr: s.Options.WindowWidth,
	}
	if s.Options.Percentile != nil {
		attrs[PercentileAttr] = *s.Options.Percentile
	}
	if s.Options.WindowWidth > 0 {
		attrs[PaddingModeAttr] = string(s.Options.PaddingMode)
		if s.Options.PaddingMode == PadConstant {
			attrs[ConstantValueAttr] = s.Options.ConstantValue
		}
	}
	return attrs
}

// meanTrace collapses an imaging stack to a (time, channel) fluorescence
// trace by averaging every frame per channel.
func meanTrace(stack *rawio.Stack) (*Array, error) {
	if len(stack.Shape) < 3 {
		return nil, fmt.Errorf("cannot trace imaging stack of shape %v", stack.Shape)
	}
	channels := 1
	if len(stack.Shape) == 4 {
		channels = stack.Shape[3]
	}

	frames := stack.FrameCount()
	pixels := stack.SamplesPerFrame() / channels
	out := &Array{Shape: []int{frames, channels}, Data: make([]float64, frames*channels)}
	for t := 0; t < frames; t++ {
		frame, err := stack.FrameFloat64(t)
		if err != nil {
			return nil, err
		}
		for i, v := range frame {
			out.Data[t*channels+i%channels] += v
		}
		for c := 0; c < channels; c++ {
			out.Data[t*channels+c] /= float64(pixels)
		}
	}
	return out, nil
}

package motion

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/drim2p/drim2p/internal/rawio"
	"github.com/drim2p/drim2p/internal/store"
)

// Attribute keys recorded on the corrected imaging dataset.
const (
	StrategyAttr        = "STRATEGY"
	MaxDisplacementAttr = "MAX_DISPLACEMENT"
	RunIDAttr           = "RUN_ID"
)

// StageName names the correction stage and its scratch directories.
const StageName = "motion-correction"

// CorrectionStage corrects a recording's raw imaging stack. It feeds the
// stack to the estimator as a single sequence, re-quantizes the corrected
// frames to uint16 and persists them next to the per-frame displacements.
type CorrectionStage struct {
	Container *store.Container
	Settings  *Settings
	Estimator Estimator

	// Compression and Level apply to the corrected imaging dataset only;
	// the displacement series is small and stored uncompressed.
	Compression store.Compression
	Level       int

	// NewRunID mints the run identifier; when nil a random UUID is used.
	NewRunID func() string
}

// correctionResult carries the squeezed estimator output between Process
// and Write.
type correctionResult struct {
	frames        [][]float64
	displacements [][2]int
	shape         []int
}

func (s *CorrectionStage) Name() string { return StageName }

func (s *CorrectionStage) OutputPaths() []string {
	return []string{store.CorrectedImagingPath, store.DisplacementsPath}
}

func (s *CorrectionStage) Process(scratchDir string) (any, error) {
	stack, err := s.Container.Read(store.RawImagingPath)
	if err != nil {
		return nil, err
	}
	if stack.FrameCount() == 0 {
		return nil, fmt.Errorf("recording %q has no frames to correct", s.Container.Path())
	}

	frames := make([][]float64, stack.FrameCount())
	for i := range frames {
		if frames[i], err = stack.FrameFloat64(i); err != nil {
			return nil, err
		}
	}

	req := &Request{
		Sequences:       [][][]float64{frames},
		FrameShape:      stack.Shape[1:],
		Strategy:        s.Settings.Strategy,
		MaxDisplacement: s.Settings.MaxDisplacement,
	}
	res, err := s.Estimator.Estimate(context.Background(), scratchDir, req)
	if err != nil {
		return nil, err
	}

	// The whole recording went in as one sequence, so the batch dimension
	// squeezes away on the way out.
	return &correctionResult{
		frames:        res.Sequences[0],
		displacements: res.Displacements[0],
		shape:         stack.Shape,
	}, nil
}

func (s *CorrectionStage) Write(result any) error {
	res := result.(*correctionResult)

	corrected, err := rawio.QuantizeUint16(res.frames, res.shape)
	if err != nil {
		return err
	}
	err = s.Container.Create(store.CorrectedImagingPath, corrected, store.CreateOptions{
		PerFrameChunks: true,
		Compression:    s.Compression,
		Level:          s.Level,
	})
	if err != nil {
		return err
	}
	return s.Container.Create(
		store.DisplacementsPath, rawio.Int32Pairs(res.displacements), store.CreateOptions{},
	)
}

func (s *CorrectionStage) Attributes(result any) map[string]any {
	runID := uuid.NewString()
	if s.NewRunID != nil {
		runID = s.NewRunID()
	}
	return map[string]any{
		StrategyAttr:        s.Settings.Strategy.ShortName(),
		MaxDisplacementAttr: []int{s.Settings.MaxDisplacement[0], s.Settings.MaxDisplacement[1]},
		RunIDAttr:           runID,
	}
}

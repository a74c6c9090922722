package motion

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/drim2p/drim2p/internal/monitoring"
)

// Request carries one estimation job. Sequences holds one entry per imaging
// sequence; each entry is the sequence's frames as flat row-major samples.
// FrameShape describes a single frame ([Y, X] or [Y, X, C]).
type Request struct {
	Sequences       [][][]float64 `json:"sequences"`
	FrameShape      []int         `json:"frame_shape"`
	Strategy        Strategy      `json:"strategy"`
	MaxDisplacement [2]int        `json:"max_displacement"`
}

// Result mirrors Request: corrected frames and per-frame [y, x] displacements,
// one outer entry per input sequence.
type Result struct {
	Sequences     [][][]float64 `json:"sequences"`
	Displacements [][][2]int    `json:"displacements"`
}

// Estimator estimates and applies motion correction. Implementations are
// expected to preserve sequence count and per-sequence frame count.
type Estimator interface {
	Estimate(ctx context.Context, workDir string, req *Request) (*Result, error)
}

// ExecEstimator runs an external estimation command. The job is exchanged
// through JSON files in the stage's scratch directory: the command is invoked
// as `cmd [args...] <request-path> <result-path>` and must write the result
// file before exiting zero.
type ExecEstimator struct {
	Command string
	Args    []string
}

func (e *ExecEstimator) Estimate(ctx context.Context, workDir string, req *Request) (*Result, error) {
	requestPath := filepath.Join(workDir, "request.json")
	resultPath := filepath.Join(workDir, "result.json")

	raw, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding estimation request: %w", err)
	}
	if err := os.WriteFile(requestPath, raw, 0o644); err != nil {
		return nil, fmt.Errorf("writing estimation request: %w", err)
	}

	args := append(append([]string{}, e.Args...), requestPath, resultPath)
	cmd := exec.CommandContext(ctx, e.Command, args...)
	cmd.Stderr = os.Stderr
	monitoring.Debugf("running estimator: %s", cmd.String())
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("running estimator %s: %w", e.Command, err)
	}

	raw, err = os.ReadFile(resultPath)
	if err != nil {
		return nil, fmt.Errorf("reading estimation result: %w", err)
	}
	var res Result
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("decoding estimation result: %w", err)
	}
	if err := validateResult(req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// validateResult checks the sequence and frame cardinality contract.
func validateResult(req *Request, res *Result) error {
	if len(res.Sequences) != len(req.Sequences) {
		return fmt.Errorf(
			"estimator returned %d sequences for %d inputs",
			len(res.Sequences), len(req.Sequences),
		)
	}
	if len(res.Displacements) != len(req.Sequences) {
		return fmt.Errorf(
			"estimator returned displacements for %d sequences, expected %d",
			len(res.Displacements), len(req.Sequences),
		)
	}
	for i := range req.Sequences {
		if len(res.Sequences[i]) != len(req.Sequences[i]) {
			return fmt.Errorf(
				"estimator changed frame count of sequence %d: %d != %d",
				i, len(res.Sequences[i]), len(req.Sequences[i]),
			)
		}
		if len(res.Displacements[i]) != len(req.Sequences[i]) {
			return fmt.Errorf(
				"estimator returned %d displacements for %d frames of sequence %d",
				len(res.Displacements[i]), len(req.Sequences[i]), i,
			)
		}
	}
	return nil
}

// Package stage provides the idempotency and orchestration discipline shared
// by every transformation stage.
//
// A stage is Unprocessed or Processed for a given recording, detected purely
// by the presence of its designated output datasets in the canonical
// container; there is no separate status record. An interrupted run is
// recognisable as "not complete" by the absence of the stage's attributes,
// which are always written last.
package stage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/drim2p/drim2p/internal/monitoring"
	"github.com/drim2p/drim2p/internal/store"
	"github.com/drim2p/drim2p/internal/timeutil"
)

// ProcessingTimeAttr is the attribute key recording the measured stage
// duration. It doubles as the completion marker: a stage output without it
// was interrupted mid-write.
const ProcessingTimeAttr = "PROCESSING_TIME"

// Stage is one transformation over a recording's container.
//
// Process performs the (potentially hours-long) computation using the
// scratch directory for working files and must not touch the container.
// Write persists the result as a complete unit, assuming previous outputs
// were already deleted. Attributes supplies the stage's completion metadata.
type Stage interface {
	// Name identifies the stage; it also names the scratch directory.
	Name() string

	// OutputPaths lists the container datasets the stage produces. The first
	// path carries the stage attributes.
	OutputPaths() []string

	// Process runs the stage computation.
	Process(scratchDir string) (any, error)

	// Write persists the processed result into the container.
	Write(result any) error

	// Attributes returns the metadata recorded on the primary output.
	Attributes(result any) map[string]any
}

// Runner executes stages with the shared skip/force/scratch/timing
// discipline. It carries no concurrency control: two runners targeting the
// same recording must be serialized by the caller.
type Runner struct {
	Clock timeutil.Clock
}

// NewRunner returns a Runner on the real clock.
func NewRunner() *Runner {
	return &Runner{Clock: timeutil.RealClock{}}
}

// Run executes one stage against the container of the recording at
// recordingPath.
//
// When every output dataset already exists and force is not set, the stage
// is skipped without touching the container; the decision is logged and
// counts as success. Otherwise the stage runs in a scratch directory derived
// from the recording's identity (a stale directory from an interrupted run
// is removed first), previous outputs are deleted only after Process
// succeeds, the new outputs are written as a complete unit, and the
// attributes, including the measured duration, are set last. The scratch
// directory is removed unconditionally on both success and failure paths.
func (r *Runner) Run(c *store.Container, recordingPath string, s Stage, force bool) error {
	done, err := r.processed(c, s)
	if err != nil {
		return err
	}
	if done && !force {
		monitoring.Infof("Skipping '%s' as it was already processed by %s and --force is not set.",
			recordingPath, s.Name())
		return nil
	}

	scratch := ScratchDir(recordingPath, s.Name())
	if _, err := os.Stat(scratch); err == nil {
		monitoring.Debugf("Deleting stale scratch directory '%s'.", scratch)
		if err := os.RemoveAll(scratch); err != nil {
			return fmt.Errorf("failed to delete stale scratch directory %q: %w", scratch, err)
		}
	}
	if err := os.MkdirAll(scratch, 0o755); err != nil {
		return fmt.Errorf("failed to create scratch directory %q: %w", scratch, err)
	}
	defer func() {
		if err := os.RemoveAll(scratch); err != nil {
			monitoring.Debugf("Failed to delete scratch directory '%s': %v", scratch, err)
		}
	}()

	start := r.Clock.Now()
	result, err := s.Process(scratch)
	if err != nil {
		return fmt.Errorf("stage %s failed for %q: %w", s.Name(), recordingPath, err)
	}
	elapsed := timeutil.FormatElapsed(r.Clock.Since(start))
	monitoring.Infof("Finished %s for '%s' in %s.", s.Name(), recordingPath, elapsed)

	for _, path := range s.OutputPaths() {
		if err := c.Delete(path); err != nil {
			return fmt.Errorf("failed to delete previous output %q: %w", path, err)
		}
	}
	if err := s.Write(result); err != nil {
		return fmt.Errorf("failed to write output of %s: %w", s.Name(), err)
	}

	attrs := s.Attributes(result)
	if attrs == nil {
		attrs = make(map[string]any, 1)
	}
	attrs[ProcessingTimeAttr] = elapsed
	if err := c.SetAttributes(s.OutputPaths()[0], attrs); err != nil {
		return fmt.Errorf("failed to write attributes of %s: %w", s.Name(), err)
	}

	return nil
}

// processed reports whether every output dataset of the stage exists.
func (r *Runner) processed(c *store.Container, s Stage) (bool, error) {
	for _, path := range s.OutputPaths() {
		exists, err := c.Exists(path)
		if err != nil {
			return false, err
		}
		if !exists {
			return false, nil
		}
	}
	return true, nil
}

// ScratchDir derives the scratch working area for a recording and stage: a
// hidden sibling directory keyed by the recording's stem, so an interrupted
// run can be recognised and cleaned up on the next attempt.
func ScratchDir(recordingPath, stageName string) string {
	dir := filepath.Dir(recordingPath)
	stem := strings.TrimSuffix(filepath.Base(recordingPath), filepath.Ext(recordingPath))
	return filepath.Join(dir, "."+stem+"."+stageName)
}

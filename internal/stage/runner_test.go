package stage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drim2p/drim2p/internal/rawio"
	"github.com/drim2p/drim2p/internal/store"
	"github.com/drim2p/drim2p/internal/timeutil"
)

// fakeStage writes a tiny corrected-imaging dataset and records how it was
// driven by the runner.
type fakeStage struct {
	container *store.Container
	clock     *timeutil.MockClock

	processCalls int
	writeCalls   int
	processErr   error
	sawScratch   string
	scratchExist bool
	marker       string
}

func (f *fakeStage) Name() string { return "fake-correction" }

func (f *fakeStage) OutputPaths() []string {
	return []string{store.CorrectedImagingPath, store.DisplacementsPath}
}

func (f *fakeStage) Process(scratchDir string) (any, error) {
	f.processCalls++
	f.sawScratch = scratchDir
	if info, err := os.Stat(scratchDir); err == nil && info.IsDir() {
		f.scratchExist = true
	}
	if f.clock != nil {
		f.clock.Advance(90 * time.Second)
	}
	if f.processErr != nil {
		return nil, f.processErr
	}
	return f.marker, nil
}

func (f *fakeStage) Write(result any) error {
	f.writeCalls++
	stack := &rawio.Stack{Shape: []int{2, 1, 1}, DType: rawio.Uint16, Data: []byte{1, 0, 2, 0}}
	if err := f.container.Create(store.CorrectedImagingPath, stack, store.CreateOptions{PerFrameChunks: true}); err != nil {
		return err
	}
	return f.container.Create(store.DisplacementsPath, rawio.Int32Pairs([][2]int{{0, 0}, {1, 1}}), store.CreateOptions{})
}

func (f *fakeStage) Attributes(result any) map[string]any {
	return map[string]any{"MARKER": result}
}

func newRunnerFixture(t *testing.T) (*Runner, *store.Container, *fakeStage, string) {
	t.Helper()
	dir := t.TempDir()
	recording := filepath.Join(dir, "session_XYT_001.raw")
	require.NoError(t, os.WriteFile(recording, nil, 0o644))

	c, err := store.Open(store.ContainerPath(recording, ""))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, c.Close()) })

	clock := timeutil.NewMockClock(time.Date(2025, 3, 18, 14, 0, 0, 0, time.UTC))
	return &Runner{Clock: clock}, c, &fakeStage{container: c, clock: clock, marker: "first"}, recording
}

func TestRunWritesOutputsAndAttributes(t *testing.T) {
	runner, c, st, recording := newRunnerFixture(t)

	require.NoError(t, runner.Run(c, recording, st, false))
	assert.Equal(t, 1, st.processCalls)
	assert.True(t, st.scratchExist, "scratch directory must exist during Process")

	for _, path := range st.OutputPaths() {
		exists, err := c.Exists(path)
		require.NoError(t, err)
		assert.True(t, exists, "output %q should exist", path)
	}

	attrs, err := c.Attributes(store.CorrectedImagingPath)
	require.NoError(t, err)
	assert.Equal(t, "first", attrs["MARKER"])
	assert.Equal(t, "0h 1m 30.00s", attrs[ProcessingTimeAttr])

	_, err = os.Stat(st.sawScratch)
	assert.True(t, os.IsNotExist(err), "scratch directory must be removed after the run")
}

func TestRunSkipsWhenProcessed(t *testing.T) {
	runner, c, st, recording := newRunnerFixture(t)
	require.NoError(t, runner.Run(c, recording, st, false))

	// Second run without force: skipped, nothing recomputed, attributes
	// untouched.
	st.marker = "second"
	require.NoError(t, runner.Run(c, recording, st, false))
	assert.Equal(t, 1, st.processCalls)

	attrs, err := c.Attributes(store.CorrectedImagingPath)
	require.NoError(t, err)
	assert.Equal(t, "first", attrs["MARKER"])
}

func TestRunForceReplaces(t *testing.T) {
	runner, c, st, recording := newRunnerFixture(t)
	require.NoError(t, runner.Run(c, recording, st, false))

	st.marker = "second"
	require.NoError(t, runner.Run(c, recording, st, true))
	assert.Equal(t, 2, st.processCalls)
	assert.Equal(t, 2, st.writeCalls, "force must delete and recreate outputs")

	attrs, err := c.Attributes(store.CorrectedImagingPath)
	require.NoError(t, err)
	assert.Equal(t, "second", attrs["MARKER"])
	assert.Equal(t, "0h 1m 30.00s", attrs[ProcessingTimeAttr])
}

func TestRunPartialOutputReruns(t *testing.T) {
	runner, c, st, recording := newRunnerFixture(t)

	// Only one of the two outputs present: the stage is not Processed.
	stack := &rawio.Stack{Shape: []int{2, 1, 1}, DType: rawio.Uint16, Data: []byte{9, 0, 9, 0}}
	require.NoError(t, c.Create(store.CorrectedImagingPath, stack, store.CreateOptions{}))

	require.NoError(t, runner.Run(c, recording, st, false))
	assert.Equal(t, 1, st.processCalls)
}

func TestRunFailureCleansScratchAndContainer(t *testing.T) {
	runner, c, st, recording := newRunnerFixture(t)
	st.processErr = errors.New("estimator crashed")

	err := runner.Run(c, recording, st, false)
	require.ErrorIs(t, err, st.processErr)
	assert.Equal(t, 0, st.writeCalls, "failed Process must not write outputs")

	exists, err2 := c.Exists(store.CorrectedImagingPath)
	require.NoError(t, err2)
	assert.False(t, exists)

	_, statErr := os.Stat(st.sawScratch)
	assert.True(t, os.IsNotExist(statErr), "scratch directory must be removed on failure")
}

func TestRunDeletesStaleScratch(t *testing.T) {
	runner, c, st, recording := newRunnerFixture(t)

	stale := ScratchDir(recording, st.Name())
	require.NoError(t, os.MkdirAll(stale, 0o755))
	leftover := filepath.Join(stale, "leftover.bin")
	require.NoError(t, os.WriteFile(leftover, []byte("x"), 0o644))

	require.NoError(t, runner.Run(c, recording, st, false))
	assert.True(t, st.scratchExist, "fresh scratch directory must be created")
}

func TestScratchDir(t *testing.T) {
	got := ScratchDir(filepath.Join("data", "session_XYT_001.raw"), "motion-correction")
	assert.Equal(t, filepath.Join("data", ".session_XYT_001.motion-correction"), got)
}

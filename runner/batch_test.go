package runner

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedHost replays a fixed sequence of stage outcomes. Each entry is
// consumed by one Run call, so the test also pins down the exact number and
// order of host invocations.
type scriptedHost struct {
	steps []func(args []string) StageResult
	calls int
	args  [][]string
}

func (h *scriptedHost) Run(args []string, timeout time.Duration) StageResult {
	h.args = append(h.args, args)
	if h.calls >= len(h.steps) {
		h.calls++
		return StageResult{Status: StageFailed, Err: fmt.Errorf("unexpected host invocation %d", h.calls)}
	}
	step := h.steps[h.calls]
	h.calls++
	return step(args)
}

func succeedWriting(t *testing.T, paths ...string) func(args []string) StageResult {
	return func(args []string) StageResult {
		for _, p := range paths {
			writeFile(t, p)
		}
		return StageResult{Status: StageSucceeded}
	}
}

func exitNonZero(code int) func(args []string) StageResult {
	return func(args []string) StageResult {
		return StageResult{Status: StageFailed, ExitCode: code, Output: "host error\n"}
	}
}

func newBatchEnv(t *testing.T, names ...string) (*Config, Layout) {
	t.Helper()
	dir := t.TempDir()

	inputDir := filepath.Join(dir, "in")
	for _, n := range names {
		writeFile(t, filepath.Join(inputDir, n+".nii.gz"))
	}

	atlas := filepath.Join(dir, "atlas.nii.gz")
	writeFile(t, atlas)

	cfg := DefaultConfig()
	cfg.InputDir = inputDir
	cfg.Atlas = atlas
	cfg.OutputDir = filepath.Join(dir, "out")

	return cfg, NewLayout(cfg.OutputDir)
}

func runQuiet(t *testing.T, cfg *Config, host Host) *BatchResult {
	t.Helper()
	result, err := RunBatchWithOptions(cfg, RunBatchOptions{Host: host})
	require.NoError(t, err)
	return result
}

func TestBatchRunsBothStages(t *testing.T) {
	cfg, layout := newBatchEnv(t, "sub-01")
	art := layout.Artifacts("sub-01", cfg.AtlasTag)

	host := &scriptedHost{steps: []func([]string) StageResult{
		succeedWriting(t, art.Registered, art.Transform),
		succeedWriting(t, art.BET, art.Segmentation, art.Log),
	}}

	result := runQuiet(t, cfg, host)

	assert.Equal(t, 2, host.calls)
	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, "success", result.Status)
	require.Len(t, result.Cases, 1)
	assert.Equal(t, CaseSucceeded, result.Cases[0].Status)

	// Registration first, then extraction
	assert.Contains(t, host.args[0], "--launch")
	assert.Contains(t, host.args[0], "BRAINSFit")
	assert.Contains(t, host.args[1], "--python-script")

	assert.True(t, Complete(art.All()...))
}

func TestBatchSkipsCompleteCase(t *testing.T) {
	cfg, layout := newBatchEnv(t, "sub-01")
	art := layout.Artifacts("sub-01", cfg.AtlasTag)
	for _, p := range art.All() {
		writeFile(t, p)
	}

	host := &scriptedHost{}
	result := runQuiet(t, cfg, host)

	assert.Equal(t, 0, host.calls, "complete case must not invoke the host")
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, CaseSkipped, result.Cases[0].Status)
}

func TestBatchOverwriteForcesBothStages(t *testing.T) {
	cfg, layout := newBatchEnv(t, "sub-01")
	cfg.Overwrite = true
	art := layout.Artifacts("sub-01", cfg.AtlasTag)
	for _, p := range art.All() {
		writeFile(t, p)
	}

	host := &scriptedHost{steps: []func([]string) StageResult{
		succeedWriting(t, art.Registered, art.Transform),
		succeedWriting(t, art.BET, art.Segmentation, art.Log),
	}}
	result := runQuiet(t, cfg, host)

	assert.Equal(t, 2, host.calls)
	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 0, result.Skipped)
}

func TestBatchPartialResumeSkipsRegistration(t *testing.T) {
	cfg, layout := newBatchEnv(t, "sub-01")
	art := layout.Artifacts("sub-01", cfg.AtlasTag)
	writeFile(t, art.Registered)
	writeFile(t, art.Transform)

	host := &scriptedHost{steps: []func([]string) StageResult{
		succeedWriting(t, art.BET, art.Segmentation, art.Log),
	}}
	result := runQuiet(t, cfg, host)

	require.Equal(t, 1, host.calls, "only the extraction stage should run")
	assert.Contains(t, host.args[0], "--python-script")
	assert.Equal(t, 1, result.Succeeded)
	assert.True(t, Complete(art.All()...))
}

func TestBatchRegistrationFailureShortCircuits(t *testing.T) {
	cfg, _ := newBatchEnv(t, "sub-01")

	host := &scriptedHost{steps: []func([]string) StageResult{
		exitNonZero(1),
	}}
	result := runQuiet(t, cfg, host)

	assert.Equal(t, 1, host.calls, "extraction must not run after a failed registration")
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Cases, 1)
	assert.Equal(t, CaseFailed, result.Cases[0].Status)
	assert.Equal(t, StageRegistration, result.Cases[0].Stage)

	var procErr *ProcessFailure
	require.ErrorAs(t, result.Cases[0].Err, &procErr)
	assert.Equal(t, 1, procErr.ExitCode)
}

func TestBatchIncompleteOutputIsFailure(t *testing.T) {
	cfg, _ := newBatchEnv(t, "sub-01")

	// Host exits 0 but writes nothing usable
	host := &scriptedHost{steps: []func([]string) StageResult{
		func(args []string) StageResult { return StageResult{Status: StageSucceeded} },
	}}
	result := runQuiet(t, cfg, host)

	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, StageRegistration, result.Cases[0].Stage)

	var incErr *IncompleteOutputError
	require.ErrorAs(t, result.Cases[0].Err, &incErr)
	assert.Len(t, incErr.Missing, 2)
}

func TestBatchExtractionTimeout(t *testing.T) {
	cfg, layout := newBatchEnv(t, "sub-01")
	art := layout.Artifacts("sub-01", cfg.AtlasTag)

	host := &scriptedHost{steps: []func([]string) StageResult{
		succeedWriting(t, art.Registered, art.Transform),
		func(args []string) StageResult { return StageResult{Status: StageTimeout} },
	}}
	result := runQuiet(t, cfg, host)

	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, StageExtraction, result.Cases[0].Stage)

	var toErr *TimeoutFailure
	require.ErrorAs(t, result.Cases[0].Err, &toErr)
}

func TestBatchCaseFailureDoesNotAbortBatch(t *testing.T) {
	cfg, layout := newBatchEnv(t, "a", "b", "c")

	stage := func(name string) ArtifactSet { return layout.Artifacts(name, cfg.AtlasTag) }
	host := &scriptedHost{steps: []func([]string) StageResult{
		succeedWriting(t, stage("a").Registered, stage("a").Transform),
		succeedWriting(t, stage("a").BET, stage("a").Segmentation, stage("a").Log),
		exitNonZero(1), // b: registration fails
		succeedWriting(t, stage("c").Registered, stage("c").Transform),
		succeedWriting(t, stage("c").BET, stage("c").Segmentation, stage("c").Log),
	}}
	result := runQuiet(t, cfg, host)

	assert.Equal(t, 5, host.calls)
	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, "failed", result.Status)

	require.Len(t, result.Cases, 3)
	assert.Equal(t, CaseSucceeded, result.Cases[0].Status)
	assert.Equal(t, CaseFailed, result.Cases[1].Status)
	assert.Equal(t, CaseSucceeded, result.Cases[2].Status)
}

func TestBatchMissingAtlasIsFatal(t *testing.T) {
	cfg, _ := newBatchEnv(t, "sub-01")
	cfg.Atlas = filepath.Join(t.TempDir(), "missing_atlas.nii.gz")

	_, err := RunBatchWithOptions(cfg, RunBatchOptions{Host: &scriptedHost{}})
	require.Error(t, err)
}

func TestBatchDiscoveryErrorIsFatal(t *testing.T) {
	cfg, _ := newBatchEnv(t)
	cfg.InputDir = filepath.Join(t.TempDir(), "missing")

	_, err := RunBatchWithOptions(cfg, RunBatchOptions{Host: &scriptedHost{}})

	var discErr *DiscoveryError
	require.ErrorAs(t, err, &discErr)
}

func TestBatchRegistrationArgs(t *testing.T) {
	cfg, layout := newBatchEnv(t, "sub-01")
	cfg.Iterations = 2000
	cfg.Sampling = 0.1
	art := layout.Artifacts("sub-01", cfg.AtlasTag)

	host := &scriptedHost{steps: []func([]string) StageResult{
		succeedWriting(t, art.Registered, art.Transform),
		succeedWriting(t, art.BET, art.Segmentation, art.Log),
	}}
	runQuiet(t, cfg, host)

	args := host.args[0]
	assert.Contains(t, args, "--useAffine")
	assert.Contains(t, args, "useMomentsAlign")
	assert.Contains(t, args, "2000")
	assert.Contains(t, args, "0.1")
	assert.Contains(t, args, cfg.Atlas)
	assert.Contains(t, args, art.Registered)
	assert.Contains(t, args, art.Transform)
}

package runner

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The process runner tests drive a real shell instead of Slicer; the runner
// only cares about exit codes, output and timing.

func TestSlicerHostSuccess(t *testing.T) {
	h := &SlicerHost{Exe: "/bin/sh"}

	result := h.Run([]string{"-c", "echo out; echo err >&2"}, 0)

	assert.Equal(t, StageSucceeded, result.Status)
	assert.Equal(t, 0, result.ExitCode)
	assert.Contains(t, result.Output, "out")
	assert.Contains(t, result.Output, "err")
	assert.NoError(t, result.Err)
}

func TestSlicerHostNonZeroExit(t *testing.T) {
	h := &SlicerHost{Exe: "/bin/sh"}

	result := h.Run([]string{"-c", "echo boom >&2; exit 3"}, 0)

	assert.Equal(t, StageFailed, result.Status)
	assert.Equal(t, 3, result.ExitCode)
	assert.Contains(t, result.Output, "boom")
}

func TestSlicerHostTimeoutKillsChild(t *testing.T) {
	h := &SlicerHost{Exe: "/bin/sh"}

	start := time.Now()
	result := h.Run([]string{"-c", "sleep 30"}, 200*time.Millisecond)

	assert.Equal(t, StageTimeout, result.Status)
	assert.Less(t, time.Since(start), 5*time.Second, "the child must be killed, not awaited")
}

func TestSlicerHostLaunchError(t *testing.T) {
	h := &SlicerHost{Exe: filepath.Join(t.TempDir(), "no-such-host")}

	result := h.Run(nil, 0)

	assert.Equal(t, StageLaunchError, result.Status)

	var launchErr *LaunchError
	require.ErrorAs(t, result.Err, &launchErr)
}

func TestResolveSlicerEnvOverride(t *testing.T) {
	exe := filepath.Join(t.TempDir(), "Slicer")
	writeFile(t, exe)
	t.Setenv("SLICER_EXE", exe)

	resolved, err := ResolveSlicer()
	require.NoError(t, err)
	assert.Equal(t, exe, resolved)
}

func TestResolveSlicerEnvOverrideInvalid(t *testing.T) {
	t.Setenv("SLICER_EXE", filepath.Join(t.TempDir(), "missing"))

	_, err := ResolveSlicer()

	var resErr *ExecutableResolutionError
	require.ErrorAs(t, err, &resErr)
}

func TestResolveSlicerNotFound(t *testing.T) {
	t.Setenv("SLICER_EXE", "")
	t.Setenv("PATH", t.TempDir())

	_, err := ResolveSlicer()

	var resErr *ExecutableResolutionError
	require.ErrorAs(t, err, &resErr)
}

func TestWriteHDBETScript(t *testing.T) {
	script, err := writeHDBETScript("/in/reg.nii.gz", "/out/bet.nii.gz", "/out/seg.seg.nrrd", "/out/case.log", 1800)
	require.NoError(t, err)
	defer os.Remove(script)

	data, err := os.ReadFile(script)
	require.NoError(t, err)
	content := string(data)

	assert.Contains(t, content, `"/in/reg.nii.gz"`)
	assert.Contains(t, content, `"/out/bet.nii.gz"`)
	assert.Contains(t, content, `"/out/seg.seg.nrrd"`)
	assert.Contains(t, content, `"/out/case.log"`)
	assert.Contains(t, content, "timeout_s = int(1800)")
	assert.Contains(t, content, "HDBrainExtractionTool")
}

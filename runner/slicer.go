package runner

import (
	"bytes"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"syscall"
	"time"
)

// Host runs one invocation of the external executor. The orchestrator only
// ever talks to the host through this interface, so tests substitute a stub
// without launching any real process.
type Host interface {
	// Run launches the host with the given arguments and blocks until it
	// exits or the timeout elapses. A zero timeout means no limit.
	Run(args []string, timeout time.Duration) StageResult
}

// ResolveSlicer locates the 3D Slicer launcher once per batch. The SLICER_EXE
// environment variable wins; otherwise the launcher is looked up next to this
// binary and then on PATH. Resolution failure aborts the whole batch.
func ResolveSlicer() (string, error) {
	if env := os.Getenv("SLICER_EXE"); env != "" {
		if nonzeroFile(env) {
			return env, nil
		}
		return "", &ExecutableResolutionError{Detail: "SLICER_EXE points to " + env + " which is not a file"}
	}

	name := "Slicer"
	if runtime.GOOS == "windows" {
		name = "Slicer.exe"
	}

	if self, err := os.Executable(); err == nil {
		sibling := filepath.Join(filepath.Dir(self), name)
		if nonzeroFile(sibling) {
			return sibling, nil
		}
	}

	if path, err := exec.LookPath(name); err == nil {
		return path, nil
	}

	return "", &ExecutableResolutionError{Detail: "set SLICER_EXE or install 3D Slicer on PATH"}
}

// SlicerHost launches the resolved Slicer executable as a child process
type SlicerHost struct {
	Exe              string
	Dir              string // Optional working directory for the child
	StreamToTerminal bool   // If true, also stream host output to terminal
}

// Run executes the host and classifies the outcome. On timeout the whole
// child process group is killed so no detached worker survives the case.
func (h *SlicerHost) Run(args []string, timeout time.Duration) StageResult {
	start := time.Now()

	cmd := exec.Command(h.Exe, args...)
	cmd.Dir = h.Dir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var stdout, stderr bytes.Buffer
	if h.StreamToTerminal {
		cmd.Stdout = io.MultiWriter(&stdout, os.Stdout)
		cmd.Stderr = io.MultiWriter(&stderr, os.Stderr)
	} else {
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
	}

	if err := cmd.Start(); err != nil {
		return StageResult{
			Status:   StageLaunchError,
			ExitCode: -1,
			Duration: time.Since(start),
			Err:      &LaunchError{Exe: h.Exe, Err: err},
		}
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	var waitErr error
	select {
	case <-deadline:
		// Kill the process group (negative PID) to take descendants with it
		syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		<-done
		return StageResult{
			Status:   StageTimeout,
			ExitCode: -1,
			Output:   combinedOutput(&stdout, &stderr),
			Duration: time.Since(start),
		}
	case waitErr = <-done:
	}

	result := StageResult{
		Output:   combinedOutput(&stdout, &stderr),
		Duration: time.Since(start),
	}

	if waitErr != nil {
		if exitErr, ok := waitErr.(*exec.ExitError); ok {
			result.Status = StageFailed
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.Status = StageLaunchError
			result.ExitCode = -1
			result.Err = &LaunchError{Exe: h.Exe, Err: waitErr}
		}
		return result
	}

	result.Status = StageSucceeded
	return result
}

// combinedOutput joins captured stdout and stderr for diagnostics
func combinedOutput(stdout, stderr *bytes.Buffer) string {
	combined := stdout.String() + stderr.String()
	if len(combined) > 0 && combined[len(combined)-1] != '\n' {
		combined += "\n"
	}
	return combined
}

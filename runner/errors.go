package runner

import (
	"fmt"
	"strings"
	"time"
)

// DiscoveryError means the input root is missing or not a directory.
// It is fatal for the whole batch.
type DiscoveryError struct {
	Dir string
	Err error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("discovery failed for %s: %v", e.Dir, e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// ExecutableResolutionError means no usable host executable could be found.
// It is fatal for the whole batch.
type ExecutableResolutionError struct {
	Detail string
}

func (e *ExecutableResolutionError) Error() string {
	return "host executable not found: " + e.Detail
}

// LaunchError means the host process could not be started for one invocation.
type LaunchError struct {
	Exe string
	Err error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("failed to launch %s: %v", e.Exe, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// ProcessFailure means the host exited non-zero.
type ProcessFailure struct {
	Stage    string
	ExitCode int
}

func (e *ProcessFailure) Error() string {
	return fmt.Sprintf("%s: host exited with code %d", e.Stage, e.ExitCode)
}

// TimeoutFailure means the host exceeded its allotted time and was killed.
type TimeoutFailure struct {
	Stage string
	Limit time.Duration
}

func (e *TimeoutFailure) Error() string {
	return fmt.Sprintf("%s: host killed after timeout (%s)", e.Stage, e.Limit)
}

// IncompleteOutputError means the host reported success but one or more
// expected artifacts are missing or empty. Kept distinct from ProcessFailure
// because the exit code alone is not trustworthy.
type IncompleteOutputError struct {
	Stage   string
	Missing []string
}

func (e *IncompleteOutputError) Error() string {
	return fmt.Sprintf("%s: host succeeded but outputs are missing or empty: %s",
		e.Stage, strings.Join(e.Missing, ", "))
}

package runner

import (
	"time"

	"regbet/runner/storage"
)

// Stage names used in results and persisted case records.
const (
	StageRegistration = "registration"
	StageExtraction   = "extraction"
)

// StageResult classifications.
const (
	StageSucceeded   = "succeeded"
	StageFailed      = "failed"
	StageTimeout     = "timeout"
	StageLaunchError = "launch_error"
)

// Per-case outcomes reported in the batch summary.
const (
	CaseSkipped   = "skipped"
	CaseSucceeded = "succeeded"
	CaseFailed    = "failed"
)

// StageResult represents the outcome of one external host invocation
type StageResult struct {
	Status   string        `json:"status"` // "succeeded", "failed", "timeout" or "launch_error"
	ExitCode int           `json:"exit_code"`
	Output   string        `json:"output"`
	Duration time.Duration `json:"duration"`
	Err      error         `json:"-"`
}

// CaseResult represents the aggregate outcome for a single input volume
type CaseResult struct {
	Name     string        `json:"name"`
	Input    string        `json:"input"`
	Status   string        `json:"status"`          // "skipped", "succeeded" or "failed"
	Stage    string        `json:"stage,omitempty"` // stage that failed, empty otherwise
	Output   string        `json:"output,omitempty"`
	Duration time.Duration `json:"duration"`
	Err      error         `json:"-"`
}

// BatchResult represents one full orchestrator pass over the discovered cases
type BatchResult struct {
	BatchID   int           `json:"batch_id"`
	Status    string        `json:"status"` // "success" or "failed"
	Cases     []CaseResult  `json:"cases"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Skipped   int           `json:"skipped"`
	Duration  time.Duration `json:"duration"`
}

// RunBatchOptions configures how a batch should be executed
type RunBatchOptions struct {
	Storage          *storage.Storage // Optional storage for database persistence
	Host             Host             // Optional host override (a stub in tests); resolved from the environment when nil
	StreamToTerminal bool             // If true, also stream progress and host output to terminal
	Broadcast        bool             // If true, publish case events to the SSE broker
	Study            string           // Optional study name recorded with the batch
}

package storage

import "time"

// Batch represents one orchestrator pass over an input directory
type Batch struct {
	ID         int        `json:"id"`
	Status     string     `json:"status"` // "running", "success", "failed"
	Study      string     `json:"study,omitempty"`
	InputDir   string     `json:"input_dir"`
	OutputDir  string     `json:"output_dir"`
	Atlas      string     `json:"atlas"`
	Succeeded  int        `json:"succeeded"`
	Failed     int        `json:"failed"`
	Skipped    int        `json:"skipped"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Duration   *string    `json:"duration,omitempty"`
}

// CaseExecution represents the processing of a single input volume
type CaseExecution struct {
	ID         int        `json:"id"`
	BatchID    int        `json:"batch_id"`
	Name       string     `json:"name"`
	InputPath  string     `json:"input_path"`
	Status     string     `json:"status"` // "running", "skipped", "succeeded", "failed"
	Stage      string     `json:"stage,omitempty"`
	Detail     string     `json:"detail,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Duration   *string    `json:"duration,omitempty"`
}

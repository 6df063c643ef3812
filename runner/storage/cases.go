package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// CreateCaseExecution creates a new case record in "running" state
func (s *Storage) CreateCaseExecution(batchID int, name, inputPath string) (*CaseExecution, error) {
	now := time.Now()
	result, err := s.db.Exec(
		"INSERT INTO case_executions (batch_id, name, input_path, status, started_at) VALUES (?, ?, ?, ?, ?)",
		batchID, name, inputPath, "running", now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create case execution: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get case execution ID: %w", err)
	}

	return &CaseExecution{
		ID:        int(id),
		BatchID:   batchID,
		Name:      name,
		InputPath: inputPath,
		Status:    "running",
		StartedAt: now,
	}, nil
}

// UpdateCaseExecution records the outcome, failed stage (if any), captured
// detail and finish time of a case
func (s *Storage) UpdateCaseExecution(caseID int, status, stage, detail string, duration time.Duration) error {
	now := time.Now()
	durationStr := duration.String()
	_, err := s.db.Exec(
		"UPDATE case_executions SET status = ?, stage = ?, detail = ?, finished_at = ?, duration = ? WHERE id = ?",
		status, stage, detail, now, durationStr, caseID,
	)
	if err != nil {
		return fmt.Errorf("failed to update case execution: %w", err)
	}
	return nil
}

// GetCaseExecutions retrieves all case records for a batch
func (s *Storage) GetCaseExecutions(batchID int) ([]*CaseExecution, error) {
	rows, err := s.db.Query(
		"SELECT id, batch_id, name, input_path, status, stage, detail, started_at, finished_at, duration FROM case_executions WHERE batch_id = ? ORDER BY id ASC",
		batchID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query case executions: %w", err)
	}
	defer rows.Close()

	var cases []*CaseExecution
	for rows.Next() {
		var c CaseExecution
		var detail sql.NullString
		var finishedAt sql.NullTime
		var duration sql.NullString

		err := rows.Scan(&c.ID, &c.BatchID, &c.Name, &c.InputPath, &c.Status, &c.Stage,
			&detail, &c.StartedAt, &finishedAt, &duration)
		if err != nil {
			return nil, fmt.Errorf("failed to scan case execution: %w", err)
		}

		if detail.Valid {
			c.Detail = detail.String
		}
		if finishedAt.Valid {
			c.FinishedAt = &finishedAt.Time
		}
		if duration.Valid {
			durationStr := duration.String
			c.Duration = &durationStr
		}

		cases = append(cases, &c)
	}

	return cases, rows.Err()
}

package storage

import (
	"database/sql"
	"fmt"
)

// StudyStats aggregates batch history for one study
type StudyStats struct {
	Study          string  `json:"study"`
	BatchCount     int     `json:"batch_count"`
	TotalSucceeded int     `json:"total_succeeded"`
	TotalFailed    int     `json:"total_failed"`
	TotalSkipped   int     `json:"total_skipped"`
	LastStatus     string  `json:"last_status,omitempty"`
	LastStartedAt  *string `json:"last_started_at,omitempty"`
}

// GetStudyStats returns aggregate counts over all batches of a study
func (s *Storage) GetStudyStats(study string) (*StudyStats, error) {
	stats := &StudyStats{Study: study}

	err := s.db.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(succeeded), 0), COALESCE(SUM(failed), 0), COALESCE(SUM(skipped), 0)
		 FROM batches WHERE study = ?`,
		study,
	).Scan(&stats.BatchCount, &stats.TotalSucceeded, &stats.TotalFailed, &stats.TotalSkipped)
	if err != nil {
		return nil, fmt.Errorf("failed to query study stats: %w", err)
	}

	var lastStatus sql.NullString
	var lastStarted sql.NullString
	err = s.db.QueryRow(
		"SELECT status, started_at FROM batches WHERE study = ? ORDER BY started_at DESC LIMIT 1",
		study,
	).Scan(&lastStatus, &lastStarted)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to query latest batch: %w", err)
	}
	if lastStatus.Valid {
		stats.LastStatus = lastStatus.String
	}
	if lastStarted.Valid {
		started := lastStarted.String
		stats.LastStartedAt = &started
	}

	return stats, nil
}

// GetCaseHistory returns the most recent executions of one case across
// batches, newest first. Useful for spotting a volume that keeps failing.
func (s *Storage) GetCaseHistory(name string, limit int) ([]*CaseExecution, error) {
	rows, err := s.db.Query(
		`SELECT id, batch_id, name, input_path, status, stage, detail, started_at, finished_at, duration
		 FROM case_executions WHERE name = ? ORDER BY started_at DESC LIMIT ?`,
		name, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query case history: %w", err)
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

package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// CreateBatch creates a new batch record
func (s *Storage) CreateBatch(inputDir, outputDir, atlas, study string) (*Batch, error) {
	now := time.Now()
	result, err := s.db.Exec(
		"INSERT INTO batches (status, study, input_dir, output_dir, atlas, started_at) VALUES (?, ?, ?, ?, ?, ?)",
		"running", study, inputDir, outputDir, atlas, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create batch: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get batch ID: %w", err)
	}

	return &Batch{
		ID:        int(id),
		Status:    "running",
		Study:     study,
		InputDir:  inputDir,
		OutputDir: outputDir,
		Atlas:     atlas,
		StartedAt: now,
	}, nil
}

// UpdateBatchStatus updates the status, counts and finish time of a batch
func (s *Storage) UpdateBatchStatus(batchID int, status string, duration time.Duration, succeeded, failed, skipped int) error {
	now := time.Now()
	durationStr := duration.String()
	_, err := s.db.Exec(
		"UPDATE batches SET status = ?, finished_at = ?, duration = ?, succeeded = ?, failed = ?, skipped = ? WHERE id = ?",
		status, now, durationStr, succeeded, failed, skipped, batchID,
	)
	if err != nil {
		return fmt.Errorf("failed to update batch status: %w", err)
	}
	return nil
}

const batchColumns = "id, status, study, input_dir, output_dir, atlas, succeeded, failed, skipped, started_at, finished_at, duration"

// GetBatches retrieves the most recent batches
func (s *Storage) GetBatches(limit int) ([]*Batch, error) {
	query := "SELECT " + batchColumns + " FROM batches ORDER BY started_at DESC LIMIT ?"
	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query batches: %w", err)
	}
	defer rows.Close()

	var batches []*Batch
	for rows.Next() {
		b, err := scanBatch(rows.Scan)
		if err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}

	return batches, rows.Err()
}

// GetBatch retrieves a single batch by ID
func (s *Storage) GetBatch(batchID int) (*Batch, error) {
	row := s.db.QueryRow("SELECT "+batchColumns+" FROM batches WHERE id = ?", batchID)
	b, err := scanBatch(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("batch not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}
	return b, nil
}

// GetStudyBatches retrieves the most recent batches for one study
func (s *Storage) GetStudyBatches(study string, limit int) ([]*Batch, error) {
	query := "SELECT " + batchColumns + " FROM batches WHERE study = ? ORDER BY started_at DESC LIMIT ?"
	rows, err := s.db.Query(query, study, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query study batches: %w", err)
	}
	defer rows.Close()

	var batches []*Batch
	for rows.Next() {
		b, err := scanBatch(rows.Scan)
		if err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}

	return batches, rows.Err()
}

func scanBatch(scan func(dest ...any) error) (*Batch, error) {
	var b Batch
	var finishedAt sql.NullTime
	var duration sql.NullString

	err := scan(&b.ID, &b.Status, &b.Study, &b.InputDir, &b.OutputDir, &b.Atlas,
		&b.Succeeded, &b.Failed, &b.Skipped, &b.StartedAt, &finishedAt, &duration)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan batch: %w", err)
	}

	if finishedAt.Valid {
		b.FinishedAt = &finishedAt.Time
	}
	if duration.Valid {
		durationStr := duration.String
		b.Duration = &durationStr
	}

	return &b, nil
}

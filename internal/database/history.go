package database

import (
	"fmt"
	"time"

	"image-studio-client/internal/models"
)

// JobOutcome is one resolved processing job as recorded locally.
type JobOutcome struct {
	ImageID    string
	Prompt     string
	State      models.JobState
	Detail     string
	RecordedAt time.Time
}

// HistoryRepository keeps terminal job outcomes. Pending jobs are never
// written here; they live only in the reconciliation controller.
type HistoryRepository struct {
	db *DB
}

func NewHistoryRepository(db *DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

func (r *HistoryRepository) RecordOutcome(outcome JobOutcome) error {
	if outcome.RecordedAt.IsZero() {
		outcome.RecordedAt = time.Now().UTC()
	}
	_, err := r.db.db.Exec(r.db.rebind(`
		INSERT INTO job_history (image_id, prompt, state, detail, recorded_at)
		VALUES (?, ?, ?, ?, ?)
	`), outcome.ImageID, outcome.Prompt, string(outcome.State), outcome.Detail, outcome.RecordedAt)
	if err != nil {
		return fmt.Errorf("failed to record job outcome: %w", err)
	}
	return nil
}

func (r *HistoryRepository) ListOutcomes(limit int) ([]JobOutcome, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.db.Query(r.db.rebind(`
		SELECT image_id, prompt, state, detail, recorded_at
		FROM job_history
		ORDER BY recorded_at DESC
		LIMIT ?
	`), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list job outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []JobOutcome
	for rows.Next() {
		var o JobOutcome
		var state string
		if err := rows.Scan(&o.ImageID, &o.Prompt, &state, &o.Detail, &o.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan job outcome: %w", err)
		}
		o.State = models.JobState(state)
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}

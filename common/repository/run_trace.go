package repository

import (
	"context"
	"fmt"

	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/db"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/models"
)

// RunTraceRepository stores the append-only merge patch chain of each run.
type RunTraceRepository struct {
	db *db.DB
}

// NewRunTraceRepository creates a new run trace repository.
func NewRunTraceRepository(database *db.DB) *RunTraceRepository {
	return &RunTraceRepository{db: database}
}

// Record appends one merge patch. Implements the workflow trace sink.
// Replays of the same (state_id, seq) are ignored so a resumed run can
// never fork the chain.
func (r *RunTraceRepository) Record(ctx context.Context, stateID string, seq int, step string, patch []byte) error {
	query := `
		INSERT INTO run_trace (state_id, seq, node, patch)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (state_id, seq) DO NOTHING
	`

	_, err := r.db.Exec(ctx, query, stateID, seq, step, patch)
	if err != nil {
		return fmt.Errorf("failed to record trace patch: %w", err)
	}
	return nil
}

// ListByState returns a run's patch chain in application order.
func (r *RunTraceRepository) ListByState(ctx context.Context, stateID string) ([]models.RunTrace, error) {
	query := `
		SELECT state_id, seq, node, patch, created_at
		FROM run_trace
		WHERE state_id = $1
		ORDER BY seq
	`

	rows, err := r.db.Query(ctx, query, stateID)
	if err != nil {
		return nil, fmt.Errorf("failed to list trace patches: %w", err)
	}
	defer rows.Close()

	var traces []models.RunTrace
	for rows.Next() {
		var t models.RunTrace
		if err := rows.Scan(&t.StateID, &t.Seq, &t.Node, &t.Patch, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan trace patch: %w", err)
		}
		traces = append(traces, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trace patches: %w", err)
	}
	return traces, nil
}

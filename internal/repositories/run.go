package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/docmigrate/internal/models"
	"github.com/desertthunder/docmigrate/internal/shared"
)

const runColumns = `id, sequence, category, dry_run, status, processed, skipped, errored,
	error, started_at, finished_at`

// RunRepository records ingestion runs in the local database.
type RunRepository struct {
	store
}

// NewRunRepository creates a new RunRepository with the given database connection
func NewRunRepository(db *sql.DB, timeout time.Duration) *RunRepository {
	return &RunRepository{store{db: db, timeout: timeout}}
}

// Start inserts a running record for category with a generated ID and sequence.
func (r *RunRepository) Start(ctx context.Context, category models.Category, dryRun bool) (*models.IngestRun, error) {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	sequence, err := NextSequence(ctx, r.db, "ingest_runs")
	if err != nil {
		return nil, fmt.Errorf("failed to generate sequence: %w", err)
	}

	run := &models.IngestRun{
		ID:        shared.GenerateID(),
		Sequence:  sequence,
		Category:  category,
		DryRun:    dryRun,
		Status:    models.RunRunning,
		StartedAt: time.Now().UTC(),
	}
	if err := run.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO ingest_runs (id, sequence, category, dry_run, status, started_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		run.ID, run.Sequence, string(run.Category), run.DryRun, string(run.Status), run.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert run: %w", err)
	}
	return run, nil
}

// Finish stores the final status and counts of run.
func (r *RunRepository) Finish(ctx context.Context, run *models.IngestRun) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	now := time.Now().UTC()
	run.FinishedAt = &now

	ctx, cancel := r.ctx(ctx)
	defer cancel()

	result, err := r.db.ExecContext(ctx, `
		UPDATE ingest_runs
		SET status = $1, processed = $2, skipped = $3, errored = $4, error = $5, finished_at = $6
		WHERE id = $7`,
		string(run.Status), run.Processed, run.Skipped, run.Errored, nullString(run.Error), now, run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: run %s", shared.ErrNotFound, run.ID)
	}
	return nil
}

// Get retrieves a run by ID.
func (r *RunRepository) Get(ctx context.Context, id string) (*models.IngestRun, error) {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	run, err := scanRun(r.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM ingest_runs WHERE id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: run %s", shared.ErrNotFound, id)
	}
	return run, err
}

// List returns the most recent runs, newest first, optionally filtered by category.
func (r *RunRepository) List(ctx context.Context, category models.Category, limit int) ([]*models.IngestRun, error) {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	query := "SELECT " + runColumns + " FROM ingest_runs"
	args := []any{}
	if category != "" {
		query += " WHERE category = $1"
		args = append(args, string(category))
	}
	query += " ORDER BY sequence DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.IngestRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func scanRun(s scanner) (*models.IngestRun, error) {
	var (
		run        models.IngestRun
		category   string
		status     string
		errMessage sql.NullString
		finishedAt sql.NullTime
	)

	err := s.Scan(
		&run.ID, &run.Sequence, &category, &run.DryRun, &status, &run.Processed,
		&run.Skipped, &run.Errored, &errMessage, &run.StartedAt, &finishedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	run.Category = models.Category(category)
	run.Status = models.RunStatus(status)
	run.Error = errMessage.String
	run.FinishedAt = timePtr(finishedAt)
	return &run, nil
}

package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/docmigrate/internal/shared"
)

// store is the connection and per-call timeout shared by every repository.
type store struct {
	db      *sql.DB
	timeout time.Duration
}

func (s store) ctx(parent context.Context) (context.Context, context.CancelFunc) {
	return shared.WithTimeout(parent, s.timeout)
}

// NextSequence atomically increments and returns the next value of the named sequence.
//
// Sequence numbers give runs a human-readable order; they are not identifiers.
func NextSequence(ctx context.Context, db *sql.DB, name string) (int, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sequences (name, value) VALUES ($1, 1)
		ON CONFLICT (name) DO UPDATE SET value = sequences.value + 1`, name)
	if err != nil {
		return 0, fmt.Errorf("failed to increment sequence: %w", err)
	}

	var sequence int
	if err := tx.QueryRowContext(ctx, "SELECT value FROM sequences WHERE name = $1", name).Scan(&sequence); err != nil {
		return 0, fmt.Errorf("failed to get sequence value: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit sequence transaction: %w", err)
	}
	return sequence, nil
}

// wrapWrite tags unique constraint failures with [shared.ErrUniqueViolation].
func wrapWrite(op string, err error) error {
	if err == nil {
		return nil
	}
	if shared.IsUniqueViolation(err) {
		return fmt.Errorf("%s: %w: %v", op, shared.ErrUniqueViolation, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return t.UTC()
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

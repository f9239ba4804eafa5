package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/docmigrate/internal/models"
)

const skippedColumns = `playlist_id, item_order, owner_id, media_component_id, language_id, item_type,
	item_created_at, item_updated_at, reason, recorded_at`

// SkippedItemRepository is the local ledger of playlist items whose catalog entry was missing.
type SkippedItemRepository struct {
	store
}

// NewSkippedItemRepository creates a new SkippedItemRepository with the given database connection
func NewSkippedItemRepository(db *sql.DB, timeout time.Duration) *SkippedItemRepository {
	return &SkippedItemRepository{store{db: db, timeout: timeout}}
}

// Record stores or refreshes the ledger row for (playlist, order).
func (r *SkippedItemRepository) Record(ctx context.Context, item *models.SkippedItem) error {
	if err := item.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	item.RecordedAt = time.Now().UTC()

	ctx, cancel := r.ctx(ctx)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO skipped_items (`+skippedColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (playlist_id, item_order) DO UPDATE SET
			owner_id = excluded.owner_id,
			media_component_id = excluded.media_component_id,
			language_id = excluded.language_id,
			item_type = excluded.item_type,
			item_created_at = excluded.item_created_at,
			item_updated_at = excluded.item_updated_at,
			reason = excluded.reason,
			recorded_at = excluded.recorded_at`,
		item.PlaylistID, item.Order, item.OwnerID, item.MediaComponentID, item.LanguageID,
		nullString(item.Type), nullTime(&item.CreatedAt), nullTime(&item.UpdatedAt), item.Reason, item.RecordedAt,
	)
	return wrapWrite("failed to record skipped item", err)
}

// Clear deletes the ledger row for (playlist, order) if there is one.
func (r *SkippedItemRepository) Clear(ctx context.Context, playlistID string, order int) error {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, "DELETE FROM skipped_items WHERE playlist_id = $1 AND item_order = $2", playlistID, order); err != nil {
		return fmt.Errorf("failed to clear skipped item: %w", err)
	}
	return nil
}

// List returns every ledger row ordered by playlist and position.
func (r *SkippedItemRepository) List(ctx context.Context) ([]*models.SkippedItem, error) {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, "SELECT "+skippedColumns+" FROM skipped_items ORDER BY playlist_id, item_order")
	if err != nil {
		return nil, fmt.Errorf("failed to list skipped items: %w", err)
	}
	defer rows.Close()

	var out []*models.SkippedItem
	for rows.Next() {
		var (
			item      models.SkippedItem
			itemType  sql.NullString
			createdAt sql.NullTime
			updatedAt sql.NullTime
		)
		err := rows.Scan(
			&item.PlaylistID, &item.Order, &item.OwnerID, &item.MediaComponentID, &item.LanguageID,
			&itemType, &createdAt, &updatedAt, &item.Reason, &item.RecordedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan skipped item: %w", err)
		}
		item.Type = itemType.String
		item.CreatedAt = createdAt.Time
		item.UpdatedAt = updatedAt.Time
		out = append(out, &item)
	}
	return out, rows.Err()
}

// Count returns the number of ledger rows.
func (r *SkippedItemRepository) Count(ctx context.Context) (int, error) {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM skipped_items").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count skipped items: %w", err)
	}
	return n, nil
}

package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/docmigrate/internal/models"
	"github.com/desertthunder/docmigrate/internal/services"
)

const itemColumns = `id, playlist_id, item_order, video_variant_language_id, media_component_id, item_type,
	created_at, updated_at`

// PlaylistItemRepository manages playlist items, keyed by (playlist, order).
type PlaylistItemRepository struct {
	store
}

// NewPlaylistItemRepository creates a new PlaylistItemRepository with the given database connection
func NewPlaylistItemRepository(db *sql.DB, timeout time.Duration) *PlaylistItemRepository {
	return &PlaylistItemRepository{store{db: db, timeout: timeout}}
}

// FindByOrder returns the item at order within playlistID.
func (r *PlaylistItemRepository) FindByOrder(ctx context.Context, playlistID string, order int) (services.Lookup[*models.CorePlaylistItem], error) {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	row := r.db.QueryRowContext(ctx, "SELECT "+itemColumns+" FROM playlist_items WHERE playlist_id = $1 AND item_order = $2", playlistID, order)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return services.NotFound[*models.CorePlaylistItem](), nil
	}
	if err != nil {
		return services.NotFound[*models.CorePlaylistItem](), err
	}
	return services.Found(item), nil
}

// Upsert writes the item at its (playlist, order) slot, keeping an existing row's id.
func (r *PlaylistItemRepository) Upsert(ctx context.Context, item *models.CorePlaylistItem) error {
	if err := item.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	ctx, cancel := r.ctx(ctx)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO playlist_items (`+itemColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (playlist_id, item_order) DO UPDATE SET
			video_variant_language_id = excluded.video_variant_language_id,
			media_component_id = excluded.media_component_id,
			item_type = excluded.item_type,
			updated_at = excluded.updated_at`,
		item.ID, item.PlaylistID, item.Order, item.LanguageID, item.MediaComponentID, nullString(item.Type),
		item.CreatedAt.UTC(), item.UpdatedAt.UTC(),
	)
	return wrapWrite("failed to upsert playlist item", err)
}

// ListByPlaylist returns the items of playlistID in order.
func (r *PlaylistItemRepository) ListByPlaylist(ctx context.Context, playlistID string) ([]*models.CorePlaylistItem, error) {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, "SELECT "+itemColumns+" FROM playlist_items WHERE playlist_id = $1 ORDER BY item_order", playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to list playlist items: %w", err)
	}
	defer rows.Close()

	var items []*models.CorePlaylistItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanItem(s scanner) (*models.CorePlaylistItem, error) {
	var (
		item     models.CorePlaylistItem
		itemType sql.NullString
	)
	err := s.Scan(&item.ID, &item.PlaylistID, &item.Order, &item.LanguageID, &item.MediaComponentID, &itemType, &item.CreatedAt, &item.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan playlist item: %w", err)
	}
	item.Type = itemType.String
	return &item, nil
}

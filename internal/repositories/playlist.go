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

const playlistColumns = "id, name, note, note_updated_at, owner_id, slug, created_at, updated_at"

// PlaylistRepository manages playlist headers in the Core store.
type PlaylistRepository struct {
	store
}

// NewPlaylistRepository creates a new PlaylistRepository with the given database connection
func NewPlaylistRepository(db *sql.DB, timeout time.Duration) *PlaylistRepository {
	return &PlaylistRepository{store{db: db, timeout: timeout}}
}

// Get looks a playlist up by id.
func (r *PlaylistRepository) Get(ctx context.Context, id string) (services.Lookup[*models.CorePlaylist], error) {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	var (
		p             models.CorePlaylist
		note          sql.NullString
		noteUpdatedAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, "SELECT "+playlistColumns+" FROM playlists WHERE id = $1", id).Scan(
		&p.ID, &p.Name, &note, &noteUpdatedAt, &p.OwnerID, &p.Slug, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return services.NotFound[*models.CorePlaylist](), nil
	}
	if err != nil {
		return services.NotFound[*models.CorePlaylist](), fmt.Errorf("failed to scan playlist: %w", err)
	}
	p.Note = note.String
	p.NoteUpdatedAt = timePtr(noteUpdatedAt)
	return services.Found(&p), nil
}

// SlugExists reports whether any playlist already uses slug.
func (r *PlaylistRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	var exists bool
	if err := r.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM playlists WHERE slug = $1)", slug).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check slug: %w", err)
	}
	return exists, nil
}

// Upsert inserts the playlist or updates its mutable fields. Slug and created_at are never
// overwritten on update.
func (r *PlaylistRepository) Upsert(ctx context.Context, p *models.CorePlaylist) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	ctx, cancel := r.ctx(ctx)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO playlists (`+playlistColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			note = excluded.note,
			note_updated_at = excluded.note_updated_at,
			owner_id = excluded.owner_id,
			updated_at = excluded.updated_at`,
		p.ID, p.Name, nullString(p.Note), nullTime(p.NoteUpdatedAt), p.OwnerID, p.Slug, p.CreatedAt.UTC(), p.UpdatedAt.UTC(),
	)
	return wrapWrite("failed to upsert playlist", err)
}

// Count returns the number of playlists.
func (r *PlaylistRepository) Count(ctx context.Context) (int, error) {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM playlists").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count playlists: %w", err)
	}
	return n, nil
}

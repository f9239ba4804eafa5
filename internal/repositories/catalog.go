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

// CatalogRepository resolves video variants in the Core catalog.
type CatalogRepository struct {
	store
}

// NewCatalogRepository creates a new CatalogRepository with the given database connection
func NewCatalogRepository(db *sql.DB, timeout time.Duration) *CatalogRepository {
	return &CatalogRepository{store{db: db, timeout: timeout}}
}

// FindVariant resolves the variant for (languageID, mediaComponentID).
func (r *CatalogRepository) FindVariant(ctx context.Context, languageID, mediaComponentID string) (services.Lookup[*models.VideoVariant], error) {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	var v models.VideoVariant
	err := r.db.QueryRowContext(ctx, `
		SELECT id, video_id, media_component_id, language_id
		FROM video_variants
		WHERE language_id = $1 AND media_component_id = $2`,
		languageID, mediaComponentID,
	).Scan(&v.ID, &v.VideoID, &v.MediaComponentID, &v.LanguageID)
	if errors.Is(err, sql.ErrNoRows) {
		return services.NotFound[*models.VideoVariant](), nil
	}
	if err != nil {
		return services.NotFound[*models.VideoVariant](), fmt.Errorf("failed to scan video variant: %w", err)
	}
	return services.Found(&v), nil
}

// Insert adds a catalog entry. The catalog is owned by Core; this seeds non-production stores.
func (r *CatalogRepository) Insert(ctx context.Context, v *models.VideoVariant) error {
	if err := v.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	ctx, cancel := r.ctx(ctx)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO video_variants (id, video_id, media_component_id, language_id)
		VALUES ($1, $2, $3, $4)`,
		v.ID, v.VideoID, v.MediaComponentID, v.LanguageID,
	)
	return wrapWrite("failed to insert video variant", err)
}

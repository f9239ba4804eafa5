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

const mappingColumns = "owner_id, email, sso_guid, core_id, secondary, created_at"

// MappingRepository stores identity mappings in the local database.
//
// Rows are insert-only: a mapping is written once after an identity is reconciled.
type MappingRepository struct {
	store
}

// NewMappingRepository creates a new MappingRepository with the given database connection
func NewMappingRepository(db *sql.DB, timeout time.Duration) *MappingRepository {
	return &MappingRepository{store{db: db, timeout: timeout}}
}

// Insert adds a mapping. A second mapping for the same owner, email or sso guid fails with
// [shared.ErrUniqueViolation].
func (r *MappingRepository) Insert(ctx context.Context, m *models.IdentityMapping) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	ctx, cancel := r.ctx(ctx)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO identity_mappings (`+mappingColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		m.OwnerID, m.Email, m.SSOGuid, m.CoreID, m.Secondary, m.CreatedAt,
	)
	return wrapWrite("failed to insert mapping", err)
}

// FindBySSOGuid returns the mapping for an SSO identifier.
func (r *MappingRepository) FindBySSOGuid(ctx context.Context, guid string) (services.Lookup[*models.IdentityMapping], error) {
	return r.findOne(ctx, "sso_guid", guid)
}

// FindByOwner returns the mapping for a legacy owner id.
func (r *MappingRepository) FindByOwner(ctx context.Context, owner string) (services.Lookup[*models.IdentityMapping], error) {
	return r.findOne(ctx, "owner_id", owner)
}

func (r *MappingRepository) findOne(ctx context.Context, column, value string) (services.Lookup[*models.IdentityMapping], error) {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	row := r.db.QueryRowContext(ctx, "SELECT "+mappingColumns+" FROM identity_mappings WHERE "+column+" = $1", value)
	m, err := scanMapping(row)
	if errors.Is(err, sql.ErrNoRows) {
		return services.NotFound[*models.IdentityMapping](), nil
	}
	if err != nil {
		return services.NotFound[*models.IdentityMapping](), err
	}
	return services.Found(m), nil
}

// Count returns the number of mappings.
func (r *MappingRepository) Count(ctx context.Context) (int, error) {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM identity_mappings").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count mappings: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMapping(s scanner) (*models.IdentityMapping, error) {
	var m models.IdentityMapping
	err := s.Scan(&m.OwnerID, &m.Email, &m.SSOGuid, &m.CoreID, &m.Secondary, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan mapping: %w", err)
	}
	return &m, nil
}

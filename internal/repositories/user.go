package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/docmigrate/internal/models"
	"github.com/desertthunder/docmigrate/internal/services"
	"github.com/desertthunder/docmigrate/internal/shared"
)

const userColumns = "id, user_id, first_name, last_name, email, email_verified, super_admin, created_at, updated_at"

// UserRepository reads and creates users in the Core store.
type UserRepository struct {
	store
}

// NewUserRepository creates a new UserRepository with the given database connection
func NewUserRepository(db *sql.DB, timeout time.Duration) *UserRepository {
	return &UserRepository{store{db: db, timeout: timeout}}
}

// Create inserts a Core user. Emails are stored lowercased; a duplicate email fails with
// [shared.ErrUniqueViolation].
func (r *UserRepository) Create(ctx context.Context, u *models.CoreUser) error {
	if u.ID == "" {
		u.ID = shared.GenerateID()
	}
	u.Email = shared.NormalizeEmail(u.Email)
	if err := u.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now

	ctx, cancel := r.ctx(ctx)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		u.ID, u.UserID, u.FirstName, nullString(u.LastName), u.Email, u.EmailVerified, u.SuperAdmin, u.CreatedAt, u.UpdatedAt,
	)
	return wrapWrite("failed to insert user", err)
}

// FindByEmail looks a user up by lowercased email.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (services.Lookup[*models.CoreUser], error) {
	return r.findOne(ctx, "email", shared.NormalizeEmail(email))
}

// Get looks a user up by Core id.
func (r *UserRepository) Get(ctx context.Context, id string) (services.Lookup[*models.CoreUser], error) {
	return r.findOne(ctx, "id", id)
}

func (r *UserRepository) findOne(ctx context.Context, column, value string) (services.Lookup[*models.CoreUser], error) {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	var (
		u        models.CoreUser
		lastName sql.NullString
	)
	err := r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE "+column+" = $1", value).Scan(
		&u.ID, &u.UserID, &u.FirstName, &lastName, &u.Email, &u.EmailVerified, &u.SuperAdmin, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return services.NotFound[*models.CoreUser](), nil
	}
	if err != nil {
		return services.NotFound[*models.CoreUser](), fmt.Errorf("failed to scan user: %w", err)
	}
	u.LastName = lastName.String
	return services.Found(&u), nil
}

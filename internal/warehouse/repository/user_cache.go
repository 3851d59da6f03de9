package repository

import (
	"context"
	"time"

	"github.com/ksp/warehouse/pkg/database"
	"github.com/ksp/warehouse/pkg/errors"
)

// CachedUser mirrors the identity fields the user service publishes.
type CachedUser struct {
	UserID    string    `db:"user_id" json:"user_id"`
	FirstName string    `db:"first_name" json:"first_name"`
	LastName  string    `db:"last_name" json:"last_name"`
	Email     *string   `db:"email" json:"email"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// UserCacheRepository maintains the local copy of user names.
type UserCacheRepository struct {
	db *database.DB
}

// NewUserCacheRepository creates a new user cache repository
func NewUserCacheRepository(db *database.DB) *UserCacheRepository {
	return &UserCacheRepository{db: db}
}

// Upsert inserts or replaces a cached user.
func (r *UserCacheRepository) Upsert(ctx context.Context, u *CachedUser) error {
	query := `
		INSERT INTO user_cache (user_id, first_name, last_name, email, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			email = EXCLUDED.email,
			updated_at = NOW()
		RETURNING updated_at
	`
	err := r.db.Conn(ctx).QueryRowxContext(ctx, query, u.UserID, u.FirstName, u.LastName, u.Email).Scan(&u.UpdatedAt)
	return database.Translate(err)
}

// Patch updates the fields that are set, creating the entry when missing.
func (r *UserCacheRepository) Patch(ctx context.Context, userID string, firstName, lastName, email *string) error {
	query := `
		INSERT INTO user_cache (user_id, first_name, last_name, email, updated_at)
		VALUES ($1, COALESCE($2, ''), COALESCE($3, ''), $4, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			first_name = COALESCE($2, user_cache.first_name),
			last_name = COALESCE($3, user_cache.last_name),
			email = COALESCE($4, user_cache.email),
			updated_at = NOW()
	`
	_, err := r.db.Conn(ctx).ExecContext(ctx, query, userID, firstName, lastName, email)
	return database.Translate(err)
}

func (r *UserCacheRepository) Get(ctx context.Context, userID string) (*CachedUser, error) {
	var u CachedUser
	query := `SELECT user_id, first_name, last_name, email, updated_at FROM user_cache WHERE user_id = $1`
	if err := r.db.Conn(ctx).GetContext(ctx, &u, query, userID); err != nil {
		if database.IsNoRows(err) {
			return nil, errors.NotFound("user")
		}
		return nil, err
	}
	return &u, nil
}

// Delete drops a cached user. Missing entries are ignored.
func (r *UserCacheRepository) Delete(ctx context.Context, userID string) error {
	_, err := r.db.Conn(ctx).ExecContext(ctx, `DELETE FROM user_cache WHERE user_id = $1`, userID)
	return err
}

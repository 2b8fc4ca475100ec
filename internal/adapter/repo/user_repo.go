package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/khshakilahamed/ads-generator/internal/domain"
)

// UserRepositoryPG implements domain.UserRepository on PostgreSQL.
type UserRepositoryPG struct {
	db Querier
}

// NewUserRepository creates a new user repository backed by PostgreSQL.
func NewUserRepository(db Querier) *UserRepositoryPG {
	return &UserRepositoryPG{db: db}
}

// GetByEmail fetches a user account by email.
func (r *UserRepositoryPG) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT id, email, credits, created_at, updated_at FROM users WHERE email = $1;`
	var u domain.User
	err := r.db.QueryRow(ctx, query, email).Scan(&u.ID, &u.Email, &u.Credits, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// DeductCredits subtracts the given amount without letting the balance go
// negative. Returns ErrNotFound when the account does not exist or has
// insufficient credits.
func (r *UserRepositoryPG) DeductCredits(ctx context.Context, email string, amount int) error {
	query := `
UPDATE users
SET credits = credits - $2,
    updated_at = NOW()
WHERE email = $1
  AND credits >= $2;
`
	tag, err := r.db.Exec(ctx, query, email, amount)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

var _ domain.UserRepository = (*UserRepositoryPG)(nil)

package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/user-sync-service/internal/domain"
)

// UserRepository defines persistence access for synced user records. Create
// and Upsert both resolve conflicts on the external id by overwriting, which
// makes duplicate and out-of-order deliveries converge on the same row.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	Upsert(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, externalID string) (bool, error)
	GetByExternalID(ctx context.Context, externalID string) (*domain.User, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const upsertQuery = `
        INSERT INTO users (external_id, name, email, username, avatar_url)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (external_id) DO UPDATE
        SET name = EXCLUDED.name,
            email = EXCLUDED.email,
            username = EXCLUDED.username,
            avatar_url = EXCLUDED.avatar_url,
            updated_at = NOW()
        RETURNING id, created_at, updated_at`

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	// A redelivered created event overwrites the existing row with the
	// latest field values, same as an update.
	return r.pool.QueryRow(ctx, upsertQuery,
		user.ExternalID,
		user.Name,
		user.Email,
		user.Username,
		user.AvatarURL,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
}

func (r *userRepository) Upsert(ctx context.Context, user *domain.User) error {
	return r.pool.QueryRow(ctx, upsertQuery,
		user.ExternalID,
		user.Name,
		user.Email,
		user.Username,
		user.AvatarURL,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
}

func (r *userRepository) Delete(ctx context.Context, externalID string) (bool, error) {
	const query = `DELETE FROM users WHERE external_id=$1`

	cmd, err := r.pool.Exec(ctx, query, externalID)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *userRepository) GetByExternalID(ctx context.Context, externalID string) (*domain.User, error) {
	const query = `
        SELECT id, external_id, name, email, username, avatar_url, created_at, updated_at
        FROM users WHERE external_id=$1`

	var user domain.User
	if err := r.pool.QueryRow(ctx, query, externalID).Scan(
		&user.ID,
		&user.ExternalID,
		&user.Name,
		&user.Email,
		&user.Username,
		&user.AvatarURL,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}

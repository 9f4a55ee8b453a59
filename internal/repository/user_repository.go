package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/travelos/crm/internal/domain"
)

// UserRepository defines persistence access for CRM users. Soft-deleted
// rows are invisible to every lookup.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// IncrementFailedLogins atomically bumps the failure counter and
	// returns the new count. The SQL-side increment keeps concurrent
	// failures converging on lockout even when reads race.
	IncrementFailedLogins(ctx context.Context, id string) (int, error)
	LockAccount(ctx context.Context, id string, until time.Time) error
	// ResetLoginState clears the failure counter and lock window and
	// stamps the successful login.
	ResetLoginState(ctx context.Context, id string, lastLogin time.Time) error
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const userColumns = `id, name, email, password_hash, role, agency_id, is_active,
        failed_login_attempts, lock_until, last_login_at, created_at, updated_at, deleted_at`

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (name, email, password_hash, role, agency_id, is_active)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.AgencyID,
		user.IsActive,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	const query = `
        SELECT ` + userColumns + `
        FROM users WHERE id=$1 AND deleted_at IS NULL`
	return r.scanUser(r.pool.QueryRow(ctx, query, id))
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	const query = `
        SELECT ` + userColumns + `
        FROM users WHERE email=$1 AND deleted_at IS NULL`
	return r.scanUser(r.pool.QueryRow(ctx, query, email))
}

func (r *userRepository) IncrementFailedLogins(ctx context.Context, id string) (int, error) {
	const query = `
        UPDATE users
        SET failed_login_attempts = failed_login_attempts + 1, updated_at = NOW()
        WHERE id=$1 AND deleted_at IS NULL
        RETURNING failed_login_attempts`

	var attempts int
	if err := r.pool.QueryRow(ctx, query, id).Scan(&attempts); err != nil {
		return 0, err
	}
	return attempts, nil
}

func (r *userRepository) LockAccount(ctx context.Context, id string, until time.Time) error {
	const query = `
        UPDATE users SET lock_until=$1, updated_at=NOW()
        WHERE id=$2 AND deleted_at IS NULL`

	cmd, err := r.pool.Exec(ctx, query, until, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) ResetLoginState(ctx context.Context, id string, lastLogin time.Time) error {
	const query = `
        UPDATE users
        SET failed_login_attempts=0, lock_until=NULL, last_login_at=$1, updated_at=NOW()
        WHERE id=$2 AND deleted_at IS NULL`

	cmd, err := r.pool.Exec(ctx, query, lastLogin, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.AgencyID,
		&user.IsActive,
		&user.FailedLoginAttempts,
		&user.LockUntil,
		&user.LastLoginAt,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.DeletedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}

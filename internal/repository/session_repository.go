package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/travelos/crm/internal/domain"
)

// ErrAlreadyRevoked reports that a conditional revoke matched no live row.
// The session service treats it as evidence of a concurrent rotation and
// takes the reuse-detected path.
var ErrAlreadyRevoked = errors.New("session already revoked")

// SessionRepository persists hashed refresh tokens. Rows are revoked, never
// deleted, so the family history stays available as an audit trail.
type SessionRepository interface {
	Create(ctx context.Context, session *domain.Session) error
	GetByTokenHash(ctx context.Context, hash string) (*domain.Session, error)
	// RevokeAndReplace marks the old session revoked and inserts its
	// successor in one transaction. The revoke is conditional on the row
	// still being live; zero rows affected aborts with ErrAlreadyRevoked
	// so two concurrent rotations of one token cannot both succeed.
	RevokeAndReplace(ctx context.Context, oldID string, next *domain.Session) error
	RevokeFamily(ctx context.Context, familyID string) error
	RevokeByTokenHash(ctx context.Context, hash string) error
}

type sessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository returns a Postgres-backed implementation.
func NewSessionRepository(pool *pgxpool.Pool) SessionRepository {
	return &sessionRepository{pool: pool}
}

func (r *sessionRepository) Create(ctx context.Context, session *domain.Session) error {
	const query = `
        INSERT INTO sessions (id, user_id, hashed_token, family_id, expires_at, revoked, user_agent, ip_address)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING created_at`

	return r.pool.QueryRow(ctx, query,
		session.ID,
		session.UserID,
		session.HashedToken,
		session.FamilyID,
		session.ExpiresAt,
		session.Revoked,
		session.UserAgent,
		session.IPAddress,
	).Scan(&session.CreatedAt)
}

func (r *sessionRepository) GetByTokenHash(ctx context.Context, hash string) (*domain.Session, error) {
	const query = `
        SELECT id, user_id, hashed_token, family_id, expires_at, revoked, user_agent, ip_address, created_at
        FROM sessions WHERE hashed_token=$1`

	var session domain.Session
	if err := r.pool.QueryRow(ctx, query, hash).Scan(
		&session.ID,
		&session.UserID,
		&session.HashedToken,
		&session.FamilyID,
		&session.ExpiresAt,
		&session.Revoked,
		&session.UserAgent,
		&session.IPAddress,
		&session.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepository) RevokeAndReplace(ctx context.Context, oldID string, next *domain.Session) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	cmd, err := tx.Exec(ctx, `UPDATE sessions SET revoked=true WHERE id=$1 AND revoked=false`, oldID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAlreadyRevoked
	}

	const insert = `
        INSERT INTO sessions (id, user_id, hashed_token, family_id, expires_at, revoked, user_agent, ip_address)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING created_at`
	if err := tx.QueryRow(ctx, insert,
		next.ID,
		next.UserID,
		next.HashedToken,
		next.FamilyID,
		next.ExpiresAt,
		next.Revoked,
		next.UserAgent,
		next.IPAddress,
	).Scan(&next.CreatedAt); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *sessionRepository) RevokeFamily(ctx context.Context, familyID string) error {
	_, err := r.pool.Exec(ctx, `UPDATE sessions SET revoked=true WHERE family_id=$1`, familyID)
	return err
}

func (r *sessionRepository) RevokeByTokenHash(ctx context.Context, hash string) error {
	_, err := r.pool.Exec(ctx, `UPDATE sessions SET revoked=true WHERE hashed_token=$1`, hash)
	return err
}

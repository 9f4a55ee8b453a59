package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/travelos/crm/internal/domain"
)

// AuditRepository appends to the immutable security audit log. There are
// deliberately no update or delete operations.
type AuditRepository interface {
	Append(ctx context.Context, entry *domain.AuditLog) error
}

type auditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository returns a Postgres-backed implementation.
func NewAuditRepository(pool *pgxpool.Pool) AuditRepository {
	return &auditRepository{pool: pool}
}

func (r *auditRepository) Append(ctx context.Context, entry *domain.AuditLog) error {
	metadata := []byte("{}")
	if entry.Metadata != nil {
		encoded, err := json.Marshal(entry.Metadata)
		if err != nil {
			return err
		}
		metadata = encoded
	}

	const query = `
        INSERT INTO audit_logs (id, agency_id, user_id, action, entity_type, entity_id, metadata, ip_address, user_agent)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING created_at`

	return r.pool.QueryRow(ctx, query,
		entry.ID,
		entry.AgencyID,
		entry.UserID,
		entry.Action,
		entry.EntityType,
		entry.EntityID,
		metadata,
		entry.IPAddress,
		entry.UserAgent,
	).Scan(&entry.CreatedAt)
}

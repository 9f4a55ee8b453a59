package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/travelos/crm/internal/domain"
)

// AgencyRepository reads tenant records. Token issuance embeds the agency's
// status into claims so the gatekeeper never needs this at request time.
type AgencyRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Agency, error)
}

type agencyRepository struct {
	pool *pgxpool.Pool
}

// NewAgencyRepository returns a Postgres-backed implementation.
func NewAgencyRepository(pool *pgxpool.Pool) AgencyRepository {
	return &agencyRepository{pool: pool}
}

func (r *agencyRepository) GetByID(ctx context.Context, id string) (*domain.Agency, error) {
	const query = `
        SELECT id, name, email, is_active, plan, subscription_ends,
               max_employees, max_leads, created_at, updated_at
        FROM agencies WHERE id=$1`

	var agency domain.Agency
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&agency.ID,
		&agency.Name,
		&agency.Email,
		&agency.IsActive,
		&agency.Plan,
		&agency.SubscriptionEnds,
		&agency.MaxEmployees,
		&agency.MaxLeads,
		&agency.CreatedAt,
		&agency.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &agency, nil
}

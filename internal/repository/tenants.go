package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TenantRepository answers tenant validity questions for the worker.
type TenantRepository struct {
	pool *pgxpool.Pool
}

// Exists reports whether the tenant is present and active. Jobs for unknown
// tenants are acknowledged and dropped rather than retried.
func (r *TenantRepository) Exists(ctx context.Context, tenantID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM tenants WHERE id = $1 AND deleted_at IS NULL)`,
		tenantID,
	).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dokuflow/document-pipeline/pkg/logger"
)

// Store wraps the shared connection pool behind the per-entity repositories.
type Store struct {
	pool   *pgxpool.Pool
	logger logger.Logger

	Tenants   *TenantRepository
	Documents *DocumentRepository
}

// NewStore connects the pool and verifies the database is reachable.
func NewStore(ctx context.Context, dsn string, log logger.Logger) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid database dsn: %w", err)
	}
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	s := &Store{pool: pool, logger: log}
	s.Tenants = &TenantRepository{pool: pool}
	s.Documents = &DocumentRepository{pool: pool, logger: log}
	return s, nil
}

// Ping reports database reachability for health checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close() {
	s.pool.Close()
}

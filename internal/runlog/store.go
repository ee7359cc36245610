// Package runlog keeps a postgres history of synchronization runs for
// operability. Optional: a nil store is a no-op.
package runlog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xray-integrations/securityhub-sync/config"
	"github.com/xray-integrations/securityhub-sync/internal/pipeline"
)

// Connect opens a pgx pool from the database config. Returns nil when no
// host is configured, which disables the run log.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	if cfg.Host == "" {
		return nil, nil
	}

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name)

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// Store records one row per completed synchronization run.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	if pool == nil {
		return nil
	}
	return &Store{pool: pool}
}

// EnsureSchema creates the sync_runs table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if s == nil {
		return nil
	}
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS sync_runs (
			id            BIGSERIAL PRIMARY KEY,
			status        TEXT NOT NULL,
			imported      INT NOT NULL,
			updated       INT NOT NULL,
			import_failed INT NOT NULL,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return fmt.Errorf("ensure sync_runs schema: %w", err)
	}
	return nil
}

// Record inserts one run's terminal counts.
func (s *Store) Record(ctx context.Context, status string, rep *pipeline.Report) error {
	if s == nil {
		return nil
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO sync_runs (status, imported, updated, import_failed)
		VALUES ($1, $2, $3, $4)
	`, status, rep.Imported, rep.Updated, rep.ImportFailed)
	if err != nil {
		return fmt.Errorf("record sync run: %w", err)
	}
	return nil
}

// Package postgres implements the ingestion stores on PostgreSQL via pgx.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store bundles the PostgreSQL-backed ingestion repositories around one pool.
type Store struct {
	pool *pgxpool.Pool
}

// New constructs a Store backed by the provided pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Open connects a pool to dsn, verifies it and registers pool gauges.
func Open(ctx context.Context, dsn string, maxConns int32) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("postgres store: dsn required")
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := ObservePoolMetrics(pool, "ingest"); err != nil {
		pool.Close()
		return nil, err
	}
	return New(pool), nil
}

// Pool exposes the underlying pgx pool.
func (s *Store) Pool() *pgxpool.Pool {
	if s == nil {
		return nil
	}
	return s.pool
}

// Checkpoints returns the checkpoint repository.
func (s *Store) Checkpoints() *CheckpointStore {
	return NewCheckpointStore(s.Pool())
}

// Entities returns the ingested entity repository.
func (s *Store) Entities() *EntityStore {
	return NewEntityStore(s.Pool())
}

// Close releases the pool.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

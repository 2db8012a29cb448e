// Package repository is the Storage Engine (spec.md §4.1): persistence,
// indexed queries, transactional claim of drift tasks, idempotent profile
// upserts, and alert append, all on top of pgx/v5.
package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is the minimal pool surface the repository needs; pgxpool.Pool and
// pgxmock's pool double both satisfy it, which is what lets the test suite
// exercise real SQL without a live Postgres.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Close()
}

// Repository wraps a pooled Postgres connection and implements every
// Storage Engine operation in spec.md §4.1.
type Repository struct {
	db DB
}

// NewRepository connects to Postgres using dbURL, applying maxConns to the
// pool (spec.md §6 MAX_CONNECTIONS, default 10).
func NewRepository(ctx context.Context, dbURL string, maxConns int) (*Repository, error) {
	cfg, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("repository: parse database url: %w", err)
	}
	cfg.MaxConns = int32(maxConns)

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("repository: connect: %w", err)
	}
	return &Repository{db: pool}, nil
}

// NewWithDB wraps an already-constructed DB (typically a pgxmock pool in
// tests) as a Repository.
func NewWithDB(db DB) *Repository {
	return &Repository{db: db}
}

// Close releases the underlying connection pool.
func (r *Repository) Close() {
	r.db.Close()
}

// schema is the logical layout from spec.md §6, applied at startup. A
// migration failure is a fatal startup error (exit 1).
const schema = `
CREATE SCHEMA IF NOT EXISTS scouter;

CREATE TABLE IF NOT EXISTS scouter.drift (
	created_at TIMESTAMPTZ NOT NULL,
	name TEXT NOT NULL,
	repository TEXT NOT NULL,
	version TEXT NOT NULL,
	feature TEXT NOT NULL,
	value DOUBLE PRECISION NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_drift_identity_time
	ON scouter.drift (name, repository, version, created_at);

CREATE TABLE IF NOT EXISTS scouter.observability (
	created_at TIMESTAMPTZ NOT NULL,
	name TEXT NOT NULL,
	repository TEXT NOT NULL,
	version TEXT NOT NULL,
	request_count BIGINT NOT NULL,
	error_count BIGINT NOT NULL,
	route_metrics_json JSONB
);
CREATE INDEX IF NOT EXISTS idx_observability_identity_time
	ON scouter.observability (name, repository, version, created_at);

CREATE TABLE IF NOT EXISTS scouter.drift_profile (
	name TEXT NOT NULL,
	repository TEXT NOT NULL,
	version TEXT NOT NULL,
	profile_type TEXT NOT NULL,
	profile_json JSONB NOT NULL,
	schedule TEXT NOT NULL,
	previous_run TIMESTAMPTZ NOT NULL DEFAULT now(),
	next_run TIMESTAMPTZ NOT NULL DEFAULT now(),
	active BOOLEAN NOT NULL DEFAULT true,
	PRIMARY KEY (name, repository, version)
);
CREATE INDEX IF NOT EXISTS idx_drift_profile_due
	ON scouter.drift_profile (next_run) WHERE active;

CREATE TABLE IF NOT EXISTS scouter.drift_alerts (
	id BIGSERIAL PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	name TEXT NOT NULL,
	repository TEXT NOT NULL,
	version TEXT NOT NULL,
	feature TEXT NOT NULL,
	attrs_json JSONB NOT NULL,
	active BOOLEAN NOT NULL DEFAULT true
);
CREATE INDEX IF NOT EXISTS idx_drift_alerts_identity_time
	ON scouter.drift_alerts (name, repository, version, created_at DESC);
`

// Migrate applies the logical schema. It is idempotent (every statement is
// IF NOT EXISTS) so it is safe to run on every startup.
func (r *Repository) Migrate(ctx context.Context) error {
	_, err := r.db.Exec(ctx, schema)
	if err != nil {
		return fmt.Errorf("repository: migrate: %w", err)
	}
	return nil
}

// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openbusinessrecord/obr-registry/internal/registry"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// DirectoryStoreConfig controls the Postgres connection pool used for
// directory rows.
type DirectoryStoreConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// DirectoryStore writes accepted business records into Postgres. Each
// domain owns at most one row; a re-accepted record replaces the prior one.
type DirectoryStore struct {
	pool  execCloser
	table string
}

// NewDirectoryStore creates a Postgres-backed DirectoryStore using the
// provided config.
func NewDirectoryStore(ctx context.Context, cfg DirectoryStoreConfig) (*DirectoryStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "directory"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &DirectoryStore{
		pool:  pool,
		table: table,
	}, nil
}

// NewDirectoryStoreWithPool constructs a store from an existing pool
// (primarily for testing).
func NewDirectoryStoreWithPool(pool execCloser, table string) (*DirectoryStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "directory"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &DirectoryStore{pool: pool, table: table}, nil
}

// Close releases the underlying pool resources.
func (s *DirectoryStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// SaveRecord upserts an accepted record row keyed by domain.
func (s *DirectoryStore) SaveRecord(ctx context.Context, record registry.AcceptedRecord) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("directory store is not configured")
	}
	if record.Domain == "" {
		return fmt.Errorf("record domain is required")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	domain,
	slug,
	name,
	url,
	last_pulse,
	synced_at,
	raw
) VALUES (
	$1,$2,$3,$4,$5,$6,$7
)
ON CONFLICT (domain) DO UPDATE SET
	slug = EXCLUDED.slug,
	name = EXCLUDED.name,
	url = EXCLUDED.url,
	last_pulse = EXCLUDED.last_pulse,
	synced_at = EXCLUDED.synced_at,
	raw = EXCLUDED.raw`, s.table)

	args := []any{
		record.Domain,
		record.Slug,
		record.Name,
		record.URL,
		record.LastPulse,
		record.SyncedAt,
		record.Raw,
	}

	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert directory row: %w", err)
	}
	return nil
}

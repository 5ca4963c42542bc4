package archive

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PostgresConfig controls the Postgres connection pool used for history rows.
type PostgresConfig struct {
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

// PostgresProvider writes delivery records into Postgres.
//
// Expected schema:
//
//	CREATE TABLE deliveries (
//	    id UUID PRIMARY KEY,
//	    account TEXT NOT NULL,
//	    post_id TEXT NOT NULL,
//	    channel TEXT NOT NULL,
//	    caption TEXT NOT NULL,
//	    media_count INT NOT NULL,
//	    delivered BOOLEAN NOT NULL,
//	    blob_uri TEXT,
//	    created_at TIMESTAMPTZ NOT NULL
//	);
type PostgresProvider struct {
	pool  execCloser
	table string
}

// NewPostgresProvider creates a Postgres-backed Provider using the provided config.
func NewPostgresProvider(ctx context.Context, cfg PostgresConfig) (*PostgresProvider, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("archive.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "deliveries"
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
	return &PostgresProvider{pool: pool, table: table}, nil
}

// NewPostgresProviderWithPool constructs a provider from an existing pool
// (primarily for testing).
func NewPostgresProviderWithPool(pool execCloser, table string) (*PostgresProvider, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "deliveries"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &PostgresProvider{pool: pool, table: table}, nil
}

// Close releases the underlying pool resources.
func (p *PostgresProvider) Close() {
	if p == nil || p.pool == nil {
		return
	}
	p.pool.Close()
}

// Store inserts one delivery record.
func (p *PostgresProvider) Store(ctx context.Context, record Record) error {
	if p == nil || p.pool == nil {
		return fmt.Errorf("archive provider is not configured")
	}
	if record.ID == "" {
		return fmt.Errorf("record id is required")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
    id,
    account,
    post_id,
    channel,
    caption,
    media_count,
    delivered,
    blob_uri,
    created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`, p.table)

	_, err := p.pool.Exec(ctx, query,
		record.ID,
		record.Account,
		record.PostID,
		record.Channel,
		record.Caption,
		record.MediaCount,
		record.Delivered,
		record.BlobURI,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert delivery record: %w", err)
	}
	return nil
}

package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pkm/internal/cache"
	"pkm/internal/config"
)

// RepositoryConfig holds what every store and unit of work needs
type RepositoryConfig struct {
	Pool   *pgxpool.Pool
	Tables *TableNames
	Logger *slog.Logger
	Cache  cache.Cache

	CacheTTL          time.Duration
	LockTimeout       time.Duration // 0 = wait forever
	MaxHierarchyDepth int
}

// withDefaults fills zero values so tests can pass a sparse config
func (c *RepositoryConfig) withDefaults() *RepositoryConfig {
	out := *c
	if out.Tables == nil {
		out.Tables = NewTableNames("")
	}
	if out.Logger == nil {
		out.Logger = slog.Default()
	}
	if out.Cache == nil {
		out.Cache = cache.Noop{}
	}
	if out.CacheTTL <= 0 {
		out.CacheTTL = config.DefaultCacheTTL
	}
	if out.MaxHierarchyDepth <= 0 {
		out.MaxHierarchyDepth = config.DefaultMaxHierarchyDepth
	}
	return &out
}

// TableNames holds dynamically prefixed table names
type TableNames struct {
	Projects     string
	Notes        string
	Keywords     string
	NoteKeywords string
	Sources      string
	NoteLinks    string
}

// NewTableNames creates table names with the given prefix
func NewTableNames(prefix string) *TableNames {
	return &TableNames{
		Projects:     fmt.Sprintf("%sprojects", prefix),
		Notes:        fmt.Sprintf("%snotes", prefix),
		Keywords:     fmt.Sprintf("%skeywords", prefix),
		NoteKeywords: fmt.Sprintf("%snote_keywords", prefix),
		Sources:      fmt.Sprintf("%ssources", prefix),
		NoteLinks:    fmt.Sprintf("%snote_links", prefix),
	}
}

// CreateConnectionPool creates a pgx pool and checks it with a ping.
//
// Port 6543 is treated as a PgBouncer transaction pooler, which cannot hold
// prepared statements, so the default statement cache is swapped for
// QueryExecModeCacheDescribe (still extended protocol, so JSONB maps encode).
// An explicit default_query_exec_mode in the URL wins over this.
//
// Table prefixes are interpolated with fmt.Sprintf before the SQL reaches the
// server, so each environment gets its own statements.
func CreateConnectionPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	cfg.MaxConns = 25
	cfg.MinConns = 2

	if cfg.ConnConfig.Port == 6543 && cfg.ConnConfig.DefaultQueryExecMode == pgx.QueryExecModeCacheStatement {
		cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheDescribe
		slog.Debug("auto-configured cache_describe mode for PgBouncer compatibility", "port", 6543)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

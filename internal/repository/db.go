package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	// registers the "sqlite" database/sql driver
	_ "modernc.org/sqlite"
)

type Config struct {
	// DSN is a postgres connection string. Empty selects SQLite at SQLitePath.
	DSN             string
	SQLitePath      string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// Store owns the database connection shared by the repositories.
type Store struct {
	Driver  *entsql.Driver
	Dialect string
	pool    *pgxpool.Pool
	log     *slog.Logger
}

// Open connects to Postgres when cfg.DSN is set, SQLite otherwise.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DSN == "" {
		return OpenSQLite(ctx, cfg.SQLitePath, logger)
	}
	return OpenPostgres(ctx, cfg, logger)
}

// OpenPostgres creates a pgx pool and wraps it for the ent SQL driver.
func OpenPostgres(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	logger.Info("connecting to database", "dialect", dialect.Postgres)
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("failed to parse database dsn", "error", err)
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pc.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "catalog-ingest"

	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, fmt.Errorf("connect: %w", err)
	}

	db := stdlib.OpenDBFromPool(pool)
	logger.Info("successfully connected to database")
	return &Store{Driver: entsql.OpenDB(dialect.Postgres, db), Dialect: dialect.Postgres, pool: pool, log: logger}, nil
}

// OpenSQLite opens a SQLite database. path may be a plain file path or a "file:" URI;
// foreign keys are always switched on.
func OpenSQLite(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if path == "" {
		path = "file:catalog.db"
	}
	dsn := SQLiteDSN(path)
	logger.Info("connecting to database", "dialect", dialect.SQLite, "dsn", dsn)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite serializes writers; a single connection also keeps in-memory databases alive.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		logger.Error("failed to connect to database", "error", err)
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	logger.Info("successfully connected to database")
	return &Store{Driver: entsql.OpenDB(dialect.SQLite, db), Dialect: dialect.SQLite, log: logger}, nil
}

// SQLiteDSN turns a path into a modernc DSN with foreign keys and a busy timeout.
func SQLiteDSN(path string) string {
	if !strings.HasPrefix(path, "file:") {
		path = "file:" + path
	}
	if strings.Contains(path, "_pragma=foreign_keys") {
		return path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// Close closes the database connections gracefully
func (s *Store) Close() {
	s.log.Info("closing database connections")
	if err := s.Driver.Close(); err != nil {
		s.log.Error("failed to close database driver", "error", err)
	}
	if s.pool != nil {
		s.pool.Close()
	}
	s.log.Info("database connections closed")
}

// HealthCheck pings the database.
func (s *Store) HealthCheck(ctx context.Context, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	s.log.Debug("pinging database")
	if s.pool != nil {
		return s.pool.Ping(ctx)
	}
	return s.Driver.DB().PingContext(ctx)
}

// builder returns a query builder for the store's dialect.
func (s *Store) builder() *entsql.DialectBuilder {
	return entsql.Dialect(s.Dialect)
}

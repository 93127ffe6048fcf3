// Package db provides PostgreSQL access for the enrichment loops.
//
// This package contains:
//   - DB: connection pool wrapper with startup retries
//   - Repository methods for pending items, tags, enrichment and embeddings
//   - Migration support via goose
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"

	coreerrors "github.com/lueurxax/channel-enricher/internal/core/errors"
	"github.com/lueurxax/channel-enricher/migrations"
)

// DB wraps a PostgreSQL connection pool.
type DB struct {
	Pool   *pgxpool.Pool
	Logger *zerolog.Logger

	maxAttempts int
}

// PoolOptions configures the connection pool and the connect retry policy.
type PoolOptions struct {
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	ConnectRetries  int
	RetryDelay      time.Duration
	// MaxAttempts excludes items that failed this many times from pending batches. Zero disables the cutoff.
	MaxAttempts int
}

// DefaultPoolOptions returns sensible default pool configuration.
func DefaultPoolOptions() PoolOptions {
	return PoolOptions{
		MaxConns:        defaultMaxConns,
		MinConns:        defaultMinConns,
		MaxConnLifetime: defaultMaxConnLifetime,
		ConnectRetries:  maxConnectionRetries,
		RetryDelay:      ConnectionRetrySleep,
	}
}

// New creates a new database connection with default pool options.
func New(ctx context.Context, dsn string, logger *zerolog.Logger) (*DB, error) {
	return NewWithOptions(ctx, dsn, DefaultPoolOptions(), logger)
}

// NewWithOptions creates a new database connection with custom pool options.
func NewWithOptions(ctx context.Context, dsn string, opts PoolOptions, logger *zerolog.Logger) (*DB, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}

	applyPoolOptions(config, opts)

	pool, err := connectWithRetries(ctx, config, opts, logger)
	if err != nil {
		return nil, err
	}

	return &DB{Pool: pool, Logger: logger, maxAttempts: opts.MaxAttempts}, nil
}

func applyPoolOptions(config *pgxpool.Config, opts PoolOptions) {
	if opts.MaxConns > 0 {
		config.MaxConns = opts.MaxConns
	}

	if opts.MinConns > 0 {
		config.MinConns = opts.MinConns
	}

	if opts.MaxConnLifetime > 0 {
		config.MaxConnLifetime = opts.MaxConnLifetime
	}
}

func connectWithRetries(ctx context.Context, config *pgxpool.Config, opts PoolOptions, logger *zerolog.Logger) (*pgxpool.Pool, error) {
	retries := opts.ConnectRetries
	if retries <= 0 {
		retries = 1
	}

	var err error

	for attempt := 1; attempt <= retries; attempt++ {
		var pool *pgxpool.Pool

		pool, err = pgxpool.NewWithConfig(ctx, config)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				return pool, nil
			}

			pool.Close()
		}

		logger.Warn().Err(err).Int("attempt", attempt).Int("retries", retries).Msg("database not ready")

		if attempt == retries {
			break
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", coreerrors.ErrDatabaseUnavailable, ctx.Err())
		case <-time.After(opts.RetryDelay):
		}
	}

	return nil, fmt.Errorf("%w after %d attempts: %w", coreerrors.ErrDatabaseUnavailable, retries, err)
}

// Ping checks that the pool can reach the database.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.Pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	return nil
}

// Close closes the database connection pool.
func (db *DB) Close() {
	db.Pool.Close()
}

type gooseLogger struct {
	logger *zerolog.Logger
}

func (l *gooseLogger) Fatalf(format string, v ...interface{}) {
	l.logger.Fatal().Msgf(format, v...)
}

func (l *gooseLogger) Printf(format string, v ...interface{}) {
	l.logger.Info().Msgf(format, v...)
}

// Migrate runs database migrations using goose.
// It acquires an advisory lock so that concurrently starting workers migrate once.
func (db *DB) Migrate(ctx context.Context) error {
	conn, err := db.Pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", migrationLockID); err != nil {
		return fmt.Errorf("acquire advisory lock: %w", err)
	}

	defer func() {
		//nolint:errcheck // the lock is released with the connection anyway
		_, _ = conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", migrationLockID)
	}()

	dbSQL := stdlib.OpenDB(*db.Pool.Config().ConnConfig)

	defer func() {
		_ = dbSQL.Close()
	}()

	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(&gooseLogger{logger: db.Logger})

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	if err := goose.Up(dbSQL, "."); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

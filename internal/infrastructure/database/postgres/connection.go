package postgres

import (
	"context"
	"errors"
	"fmt"
	"lending-engine/internal/config"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	defaultMaxConns        int32 = 10
	defaultMaxConnIdleTime       = 5 * time.Minute
	defaultPingTimeout           = 5 * time.Second
	healthCheckPeriod            = time.Minute
)

var errEmptyDatabaseURL = errors.New("database URL is empty in configuration")

type pinger interface {
	Ping(ctx context.Context) error
}

// NewConnectionPool opens the pool shared by the ledger, verification, loan
// and credit score repositories and by the transaction manager. It fails
// unless the database answers a ping within the configured timeout.
func NewConnectionPool(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*pgxpool.Pool, error) {
	if cfg.URL == "" {
		return nil, errEmptyDatabaseURL
	}

	poolConfig, err := configurePool(cfg)
	if err != nil {
		return nil, err
	}
	target := []any{"host", poolConfig.ConnConfig.Host, "db", poolConfig.ConnConfig.Database, "max_conns", poolConfig.MaxConns}

	logger.Info("Opening lending database pool", target...)
	dbpool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := verifyConnection(ctx, dbpool, pingTimeout(cfg), logger); err != nil {
		dbpool.Close()
		return nil, err
	}

	logger.Info("Lending database pool ready", target...)
	return dbpool, nil
}

// configurePool parses the URL and applies pool sizing, falling back to
// defaults for unset values.
func configurePool(cfg config.DatabaseConfig) (*pgxpool.Config, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config from URL: %w", err)
	}

	poolConfig.MaxConns = defaultMaxConns
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	poolConfig.MaxConnIdleTime = defaultMaxConnIdleTime
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	poolConfig.HealthCheckPeriod = healthCheckPeriod

	return poolConfig, nil
}

func pingTimeout(cfg config.DatabaseConfig) time.Duration {
	if cfg.PingTimeout > 0 {
		return cfg.PingTimeout
	}
	return defaultPingTimeout
}

func verifyConnection(ctx context.Context, db pinger, timeout time.Duration, logger *slog.Logger) error {
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := db.Ping(pingCtx); err != nil {
		logger.Error("Lending database did not answer ping", "timeout", timeout, "error", err)
		return fmt.Errorf("failed to ping database on connect: %w", err)
	}
	return nil
}

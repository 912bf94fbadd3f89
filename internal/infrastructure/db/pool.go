package db

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"trend-trader/internal/config"
)

// withSSLMode sets sslmode on the URL unless it already carries one.
func withSSLMode(dbURL, mode string) string {
	if mode == "" {
		return dbURL
	}
	u, err := url.Parse(dbURL)
	if err != nil {
		// pgx reports the malformed URL itself
		return dbURL
	}

	q := u.Query()
	if q.Get("sslmode") == "" {
		q.Set("sslmode", mode)
		u.RawQuery = q.Encode()
	}
	return strings.TrimSpace(u.String())
}

// NewPool opens the pool and verifies connectivity with a ping.
func NewPool(ctx context.Context, databaseURL string, cfg config.PostgresPoolConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(withSSLMode(databaseURL, cfg.SSLMode))
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = min(cfg.MinConns, cfg.MaxConns)
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolCfg.HealthCheckPeriod = cfg.HealthCheckPeriod

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	log.Info().
		Str("host", poolCfg.ConnConfig.Host).
		Str("database", poolCfg.ConnConfig.Database).
		Int32("maxConns", poolCfg.MaxConns).
		Msg("postgres pool ready")
	return pool, nil
}

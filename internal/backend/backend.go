// Package backend turns configuration into a media library opener and the
// Postgres pool shared by the library and the store.
package backend

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/metasync/internal/config"
	"github.com/JonMunkholm/metasync/internal/host"
	"github.com/JonMunkholm/metasync/internal/host/fshost"
	"github.com/JonMunkholm/metasync/internal/host/pghost"
	"github.com/JonMunkholm/metasync/internal/host/sqlitehost"
)

// Opener returns the library opener selected by cfg.Backend. db is only
// used by the postgres backend and may be nil otherwise.
func Opener(cfg config.HostConfig, db pghost.DBTX) (host.Opener, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		return sqlitehost.Opener(cfg.LibraryPath, sqlitehost.WithAllowedKeys(cfg.AllowedKeys)), nil
	case config.BackendFilesystem:
		return fshost.Opener(cfg.LibraryPath, cfg.MediaExtensions, cfg.ExiftoolPath, cfg.AllowedKeys), nil
	case config.BackendPostgres:
		if db == nil {
			return nil, fmt.Errorf("postgres backend needs a database connection")
		}
		return pghost.Opener(db, cfg.AllowedKeys), nil
	case config.BackendMemory:
		return host.Static(host.NewMemory(host.WithAllowedKeys(cfg.AllowedKeys))), nil
	}
	return nil, fmt.Errorf("unknown host backend %q", cfg.Backend)
}

// LockPath is the file locked while a local library is written, or "" for
// backends that coordinate on their own.
func LockPath(cfg config.HostConfig) string {
	switch cfg.Backend {
	case config.BackendSQLite, config.BackendFilesystem:
		return strings.TrimRight(cfg.LibraryPath, "/") + ".lock"
	}
	return ""
}

// Connect opens and pings a pgx pool sized by cfg.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// DatabaseName extracts the database name from a connection URL for logs.
func DatabaseName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Path, "/")
}

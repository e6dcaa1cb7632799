package main

import (
	"context"
	"fmt"

	"github.com/gofrs/flock"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/metasync/internal/backend"
	"github.com/JonMunkholm/metasync/internal/config"
	"github.com/JonMunkholm/metasync/internal/core"
	"github.com/JonMunkholm/metasync/internal/host/pghost"
)

// openService wires the configured library into a service. History stays in
// memory; the CLI prints each outcome instead.
func openService(ctx context.Context, cfg *config.Config) (*core.Service, func(), error) {
	var (
		pool *pgxpool.Pool
		db   pghost.DBTX
	)
	cleanup := func() {}

	if cfg.Host.Backend == config.BackendPostgres {
		var err error
		pool, err = backend.Connect(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		if err := pghost.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		db = pool
		cleanup = pool.Close
	}

	opener, err := backend.Opener(cfg.Host, db)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return core.NewService(opener, nil, cfg), cleanup, nil
}

// lockLibrary takes the lock file next to a local library so two writers
// never interleave. Backends without a lock path return a no-op.
func lockLibrary(cfg *config.Config) (func(), error) {
	path := backend.LockPath(cfg.Host)
	if path == "" {
		return func() {}, nil
	}

	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire library lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("library %s is being written by another pass (lock %s)", cfg.Host.LibraryPath, path)
	}
	return func() { _ = lock.Unlock() }, nil
}

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/JonMunkholm/metasync/internal/backend"
	"github.com/JonMunkholm/metasync/internal/config"
	"github.com/JonMunkholm/metasync/internal/core"
	"github.com/JonMunkholm/metasync/internal/host/pghost"
	"github.com/JonMunkholm/metasync/internal/logging"
	"github.com/JonMunkholm/metasync/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"backend", cfg.Host.Backend,
		"pass_max_concurrent", cfg.Reconcile.MaxConcurrent,
		"database", cfg.Database.URL != "",
	)

	ctx := context.Background()

	// The pool is optional: it backs run history and presets when set, and
	// the library itself for the postgres backend.
	var (
		pool  *pgxpool.Pool
		store core.Store
	)
	if cfg.Database.URL != "" {
		pool, err = backend.Connect(ctx, cfg.Database)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		slog.Info("connected to database", "name", backend.DatabaseName(cfg.Database.URL))

		if cfg.Host.Backend == config.BackendPostgres {
			if err := pghost.EnsureSchema(ctx, pool); err != nil {
				slog.Error("failed to create library schema", "error", err)
				os.Exit(1)
			}
		}

		pgStore := core.NewPGStore(pool)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			slog.Error("failed to create history schema", "error", err)
			os.Exit(1)
		}
		store = pgStore
	} else {
		slog.Warn("no DATABASE_URL, run history and presets are kept in memory")
		store = core.NewMemoryStore(cfg.History.MaxEntries)
	}

	var db pghost.DBTX
	if pool != nil {
		db = pool
	}
	opener, err := backend.Opener(cfg.Host, db)
	if err != nil {
		slog.Error("failed to configure media library", "error", err)
		os.Exit(1)
	}

	service := core.NewService(opener, store, cfg)
	server := web.NewServer(service, cfg)

	jobCtx, cancelJobs := context.WithCancel(context.Background())
	go service.StartPruneScheduler(jobCtx, core.PruneConfig{
		Retention:     cfg.History.Retention(),
		CheckInterval: cfg.History.CheckInterval,
	})

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if status := service.LimiterStatus(); status.Active > 0 {
			slog.Info("waiting for passes to complete", "active", status.Active)
			if err := service.WaitForPasses(shutdownCtx); err != nil {
				slog.Warn("passes did not complete in time", "error", err)
			} else {
				slog.Info("all passes completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

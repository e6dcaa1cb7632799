package core

// scheduler.go prunes old run history in the background.
//
// The job runs once at start and then every CheckInterval until the context
// is cancelled. A failed prune is logged and retried on the next tick.

import (
	"context"
	"log/slog"
	"time"
)

// PruneConfig controls the history pruning job.
type PruneConfig struct {
	Retention     time.Duration // Runs older than this are deleted (default: 90 days)
	CheckInterval time.Duration // How often to run (default: 24h)
}

func (c PruneConfig) withDefaults() PruneConfig {
	if c.Retention <= 0 {
		c.Retention = 90 * 24 * time.Hour
	}
	if c.CheckInterval <= 0 {
		c.CheckInterval = 24 * time.Hour
	}
	return c
}

// StartPruneScheduler blocks, pruning history on every tick, until ctx is
// cancelled. Run it in its own goroutine.
func (s *Service) StartPruneScheduler(ctx context.Context, cfg PruneConfig) {
	cfg = cfg.withDefaults()
	slog.Info("history pruning started",
		"retention_days", int(cfg.Retention.Hours()/24),
		"check_interval", cfg.CheckInterval,
	)

	s.PruneHistory(ctx, cfg.Retention)

	ticker := time.NewTicker(cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("history pruning stopped")
			return
		case <-ticker.C:
			s.PruneHistory(ctx, cfg.Retention)
		}
	}
}

// PruneHistory deletes runs older than retention and returns how many went.
func (s *Service) PruneHistory(ctx context.Context, retention time.Duration) int64 {
	start := time.Now()
	cutoff := s.now().Add(-retention)

	n, err := s.store.PruneRuns(ctx, cutoff)
	if err != nil {
		slog.Error("prune history failed", "error", err)
		return 0
	}
	slog.Info("pruned run history",
		"runs_deleted", n,
		"cutoff", cutoff.Format(time.RFC3339),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return n
}

package core

import (
	"context"
	"log/slog"
	"time"
)

// DefaultRunListLimit caps ListRuns when the caller passes no limit.
const DefaultRunListLimit = 50

// recordRun stores a finished pass. The request may already be cancelled,
// so the write detaches from its deadline. A failed write is logged only;
// the pass itself already happened.
func (s *Service) recordRun(ctx context.Context, run Run, logger *slog.Logger) {
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err := s.store.SaveRun(saveCtx, run); err != nil {
		logger.Error("record run failed", "error", err)
	}
}

// ListRuns returns recent passes, newest first, without per-row detail.
func (s *Service) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = DefaultRunListLimit
	}
	runs, err := s.store.ListRuns(ctx, limit)
	if err != nil {
		return nil, err
	}
	if runs == nil {
		runs = []Run{}
	}
	return runs, nil
}

// GetRun returns one pass with its full outcome.
func (s *Service) GetRun(ctx context.Context, id string) (*Run, error) {
	return s.store.GetRun(ctx, id)
}

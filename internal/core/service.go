package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/metasync/internal/config"
	"github.com/JonMunkholm/metasync/internal/host"
	"github.com/JonMunkholm/metasync/internal/index"
	"github.com/JonMunkholm/metasync/internal/logging"
	"github.com/JonMunkholm/metasync/internal/mapping"
	"github.com/JonMunkholm/metasync/internal/reconcile"
	"github.com/JonMunkholm/metasync/internal/tabular"
)

// DefaultPassTimeout bounds a pass when the config leaves it unset.
var DefaultPassTimeout = 30 * time.Minute

// Service runs reconciliation passes against one media library and keeps
// their history.
type Service struct {
	opener  host.Opener
	store   Store
	limiter *PassLimiter
	cfg     *config.Config
	now     func() time.Time
}

// NewService wires a library opener and a store. cfg supplies limits and
// Sheets defaults; a nil cfg uses package defaults.
func NewService(opener host.Opener, store Store, cfg *config.Config) *Service {
	if cfg == nil {
		cfg = &config.Config{}
	}
	if store == nil {
		store = NewMemoryStore(cfg.History.MaxEntries)
	}
	return &Service{
		opener:  opener,
		store:   store,
		limiter: NewPassLimiter(cfg.Reconcile.MaxConcurrent, cfg.Reconcile.MaxWaitTime),
		cfg:     cfg,
		now:     time.Now,
	}
}

// Store returns the history and preset store.
func (s *Service) Store() Store {
	return s.store
}

// SheetsSource builds a Sheets source with the server's credentials. Paths
// supplied by clients are never used.
func (s *Service) SheetsSource(spreadsheetID, rng string) tabular.SheetsSource {
	return tabular.SheetsSource{
		CredentialsPath: s.cfg.Sheets.CredentialsPath,
		SpreadsheetID:   spreadsheetID,
		Range:           rng,
		BaseURL:         s.cfg.Sheets.BaseURL,
	}
}

// LoadSheet reads src and prepares everything an operator needs to set up
// a pass.
func (s *Service) LoadSheet(ctx context.Context, src tabular.Source) (*SheetPreview, error) {
	if s.cfg.Sheets.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Sheets.Timeout)
		defer cancel()
	}

	ds, err := tabular.Load(ctx, src)
	if err != nil {
		return nil, err
	}
	if err := s.checkRows(len(ds.Rows)); err != nil {
		return nil, err
	}

	headers := ds.UsableHeaders()
	keyColumn := mapping.GuessKeyColumn(headers)

	preview := &SheetPreview{
		Source:    tabular.Describe(src),
		Headers:   headers,
		Rows:      ds.Rows,
		KeyColumn: keyColumn,
		Columns:   mapping.Defaults(headers, keyColumn),
		Presets:   []mapping.PresetMatch{},
	}

	matches, err := s.MatchPresets(ctx, headers)
	if err != nil {
		logging.FromContext(ctx).Warn("preset match failed", "error", err)
	} else {
		preview.Presets = matches
	}

	logging.FromContext(ctx).Info("sheet loaded",
		"source", preview.Source,
		"headers", len(headers),
		"rows", len(ds.Rows),
		"key_column", keyColumn,
	)
	return preview, nil
}

// Apply runs one pass and records it. Configuration errors return before
// the library is opened. A cancelled or timed out pass returns the partial
// run together with the context error.
func (s *Service) Apply(ctx context.Context, req ApplyRequest) (*Run, error) {
	plan, err := req.Plan.Validate()
	if err != nil {
		return nil, err
	}
	if err := s.checkRows(len(req.Rows)); err != nil {
		return nil, err
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	run := &Run{
		ID:        uuid.NewString(),
		Source:    req.Source,
		KeyColumn: plan.KeyColumn,
		Mappings:  plan.Mappings,
		IPAddress: GetIPAddressFromContext(ctx),
		UserAgent: GetUserAgentFromContext(ctx),
		StartedAt: s.now(),
	}

	ctx = logging.WithRunID(ctx, run.ID)
	logger := logging.WithFields(ctx,
		"key_column", plan.KeyColumn,
		"mappings", len(plan.Mappings),
	)
	logger.Info("pass started", "rows", len(req.Rows), "source", req.Source)

	passCtx, cancel := context.WithTimeout(ctx, s.passTimeout())
	defer cancel()

	out, err := s.runPass(passCtx, plan, req.Rows, logger)
	run.FinishedAt = s.now()
	run.Outcome = out
	if out != nil {
		run.Stats = out.Stats
	}
	run.Status = runStatus(err)
	if err != nil {
		run.Error = err.Error()
	}

	s.recordRun(ctx, *run, logger)

	if err != nil {
		logger.Warn("pass ended early", "status", run.Status, "error", err)
		return run, err
	}
	logger.Info("pass completed",
		"total_rows", run.Stats.TotalRows,
		"matched", run.Stats.Matched,
		"updated", run.Stats.Updated,
		"missing", run.Stats.Missing,
		"failed_assignments", run.Stats.FailedAssignments,
		"duration_ms", run.Duration().Milliseconds(),
	)
	return run, nil
}

func (s *Service) runPass(ctx context.Context, plan mapping.Plan, rows []tabular.Row, logger *slog.Logger) (*reconcile.Outcome, error) {
	sess, err := host.Open(ctx, s.opener)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := sess.Close(); err != nil {
			logger.Warn("close library", "error", err)
		}
	}()

	observe := func(ev reconcile.RowEvent) {
		if ev.Status == reconcile.RowBlank {
			return
		}
		logger.Debug("row processed",
			"row", ev.Index,
			"filename", ev.Key,
			"status", ev.Status,
			"written", ev.Written,
			"failed", ev.Failed,
		)
	}
	return reconcile.Reconcile(ctx, sess, plan, rows, reconcile.WithObserver(observe))
}

// DryRun reports which rows would match and which writes would be made,
// without writing. The library tree is indexed once.
func (s *Service) DryRun(ctx context.Context, req ApplyRequest) (*reconcile.PreviewResult, error) {
	plan, err := req.Plan.Validate()
	if err != nil {
		return nil, err
	}
	if err := s.checkRows(len(req.Rows)); err != nil {
		return nil, err
	}

	sess, err := host.Open(ctx, s.opener)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	idx, err := index.Build(ctx, sess.Host, sess.Root)
	if err != nil {
		return nil, fmt.Errorf("index library: %w", err)
	}
	res, err := reconcile.Preview(ctx, idx, plan, req.Rows)
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info("dry run",
		"items_indexed", idx.Len(),
		"rows", res.TotalRows,
		"matched", res.Matched,
		"missing", res.Missing,
		"planned_writes", res.PlannedWrites,
	)
	return res, nil
}

// LimiterStatus reports pass slot usage.
func (s *Service) LimiterStatus() PassLimiterStatus {
	return s.limiter.Status()
}

// WaitForPasses blocks until running passes finish or ctx ends.
func (s *Service) WaitForPasses(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

func (s *Service) checkRows(n int) error {
	if max := s.cfg.Reconcile.MaxRows; max > 0 && n > max {
		return fmt.Errorf("%w: %d rows exceeds the limit of %d", ErrTooManyRows, n, max)
	}
	return nil
}

func (s *Service) passTimeout() time.Duration {
	if s.cfg.Reconcile.Timeout > 0 {
		return s.cfg.Reconcile.Timeout
	}
	return DefaultPassTimeout
}

func runStatus(err error) RunStatus {
	switch {
	case err == nil:
		return RunCompleted
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return RunCancelled
	default:
		return RunFailed
	}
}

// Package reconcile applies sheet rows to media items.
//
// A pass walks the rows in order. Each row either matches an item by its key
// column or is recorded as missing; for matched rows every mapped, non-blank
// value is written as metadata. Write failures are recorded and never stop
// the pass. Nothing is retried or rolled back.
package reconcile

import (
	"context"
	"strings"

	"github.com/JonMunkholm/metasync/internal/host"
	"github.com/JonMunkholm/metasync/internal/index"
	"github.com/JonMunkholm/metasync/internal/mapping"
	"github.com/JonMunkholm/metasync/internal/tabular"
)

// Finder locates the item for a row key.
type Finder interface {
	Find(ctx context.Context, name string) (host.Item, bool, error)
}

// Writer writes one metadata value. A false result with a nil error means
// the host declined the value.
type Writer interface {
	SetMetadata(ctx context.Context, it host.Item, key, value string) (bool, error)
}

// RowStatus classifies a processed row.
type RowStatus string

const (
	RowBlank   RowStatus = "blank"
	RowMissing RowStatus = "missing"
	RowMatched RowStatus = "matched"
)

// RowEvent reports one processed row to an Observer.
type RowEvent struct {
	Index   int
	Key     string
	Status  RowStatus
	Written int
	Failed  int
}

// Observer is called after each row. It must not block for long.
type Observer func(RowEvent)

// Engine runs passes against one finder and writer.
type Engine struct {
	finder   Finder
	writer   Writer
	observer Observer
}

// Option configures an Engine.
type Option func(*Engine)

// WithObserver sets a per-row callback.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// WithFinder replaces the lookup strategy, e.g. with a prebuilt index.
func WithFinder(f Finder) Option {
	return func(e *Engine) { e.finder = f }
}

// New returns an Engine that looks items up with f and writes through w.
func New(f Finder, w Writer, opts ...Option) *Engine {
	e := &Engine{finder: f, writer: w}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Reconcile runs one pass over an open session, walking the tree for each
// row.
func Reconcile(ctx context.Context, s *host.Session, plan mapping.Plan, rows []tabular.Row, opts ...Option) (*Outcome, error) {
	e := New(index.Walker{Host: s.Host, Root: s.Root}, s.Host, opts...)
	return e.Run(ctx, plan, rows)
}

// Run applies rows according to plan. It returns an error only when the
// plan is unusable, before any row is touched, or when ctx ends; in the
// latter case the outcome so far is returned with the error.
func (e *Engine) Run(ctx context.Context, plan mapping.Plan, rows []tabular.Row) (*Outcome, error) {
	plan, err := plan.Validate()
	if err != nil {
		return nil, err
	}

	out := newOutcome()
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		ev, err := e.applyRow(ctx, plan, row, out)
		if err != nil {
			return out, err
		}
		ev.Index = i
		if e.observer != nil {
			e.observer(ev)
		}
	}
	return out, nil
}

func (e *Engine) applyRow(ctx context.Context, plan mapping.Plan, row tabular.Row, out *Outcome) (RowEvent, error) {
	key := strings.TrimSpace(row[plan.KeyColumn])
	if key == "" {
		out.Stats.TotalRows++
		out.Stats.Missing++
		out.MissingRows = append(out.MissingRows, MissingRow{Filename: BlankFilename})
		return RowEvent{Status: RowBlank}, nil
	}

	item, ok, err := e.finder.Find(ctx, key)
	if err != nil {
		return RowEvent{}, err
	}
	if !ok {
		out.Stats.TotalRows++
		out.Stats.Missing++
		out.MissingRows = append(out.MissingRows, MissingRow{Filename: key})
		return RowEvent{Key: key, Status: RowMissing}, nil
	}

	out.Stats.TotalRows++
	out.Stats.Matched++
	ev := RowEvent{Key: key, Status: RowMatched}
	for _, m := range plan.Mappings {
		raw, present := row[m.Column]
		if !present {
			continue
		}
		value := strings.TrimSpace(raw)
		if value == "" {
			continue
		}

		accepted, err := e.writer.SetMetadata(ctx, item, m.MetadataKey, value)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return ev, ctx.Err()
			}
			out.Stats.FailedAssignments++
			out.Failures = append(out.Failures, FieldFailure{Filename: key, MetadataKey: m.MetadataKey, Error: err.Error()})
			ev.Failed++
		case !accepted:
			out.Stats.FailedAssignments++
			out.Failures = append(out.Failures, FieldFailure{Filename: key, MetadataKey: m.MetadataKey, Error: RejectedValue})
			ev.Failed++
		default:
			ev.Written++
		}
	}
	if ev.Written > 0 {
		out.Stats.Updated++
	}
	return ev, nil
}

package core

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JonMunkholm/metasync/internal/mapping"
	"github.com/JonMunkholm/metasync/internal/reconcile"
	"github.com/JonMunkholm/metasync/internal/tabular"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// RunStatus is how a pass ended.
type RunStatus string

const (
	RunCompleted RunStatus = "completed"
	RunCancelled RunStatus = "cancelled"
	RunFailed    RunStatus = "failed"
)

// Run is one recorded pass.
type Run struct {
	ID         string                 `json:"id"`
	Status     RunStatus              `json:"status"`
	Source     string                 `json:"source,omitempty"`
	KeyColumn  string                 `json:"filenameColumn"`
	Mappings   []mapping.FieldMapping `json:"mappings"`
	Stats      reconcile.Stats        `json:"stats"`
	Outcome    *reconcile.Outcome     `json:"outcome,omitempty"`
	Error      string                 `json:"error,omitempty"`
	IPAddress  string                 `json:"ipAddress,omitempty"`
	UserAgent  string                 `json:"userAgent,omitempty"`
	StartedAt  time.Time              `json:"startedAt"`
	FinishedAt time.Time              `json:"finishedAt"`
}

// Duration is the wall time of the pass.
func (r Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// ApplyRequest is one pass as submitted by an operator.
type ApplyRequest struct {
	mapping.Plan
	Rows   []tabular.Row `json:"rows"`
	Source string        `json:"-"`
}

// SheetPreview is what an operator needs to configure a pass: the loaded
// rows, a guessed filename column, default mapping rows and saved presets
// that fit the headers.
type SheetPreview struct {
	Source    string                `json:"source,omitempty"`
	Headers   []string              `json:"headers"`
	Rows      []tabular.Row         `json:"rows"`
	KeyColumn string                `json:"keyColumn"`
	Columns   []mapping.Column      `json:"columns"`
	Presets   []mapping.PresetMatch `json:"presets"`
}

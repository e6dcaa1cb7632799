// Package sqlitehost stores a media pool in a single SQLite file: a folder
// tree, clips and their metadata. It backs the CLI and small installs that
// do not run Postgres.
package sqlitehost

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/JonMunkholm/metasync/internal/host"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped whenever schema.sql changes.
const schemaVersion = 1

// ErrSchemaMismatch means the file was written by a different version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Library is an open media pool file. It implements host.Host and
// io.Closer.
type Library struct {
	db      *sql.DB
	path    string
	allowed host.KeySet
}

// Option configures a Library.
type Option func(*Library)

// WithAllowedKeys restricts writable metadata keys.
func WithAllowedKeys(keys []string) Option {
	return func(l *Library) { l.allowed = host.NewKeySet(keys) }
}

// Create opens path, creating the file and schema when needed.
func Create(ctx context.Context, path string, opts ...Option) (*Library, error) {
	return open(ctx, path, true, opts...)
}

// OpenExisting opens a library that must already exist.
func OpenExisting(ctx context.Context, path string, opts ...Option) (*Library, error) {
	return open(ctx, path, false, opts...)
}

// Opener returns a host.Opener that opens the file for each pass.
func Opener(path string, opts ...Option) host.Opener {
	return host.OpenerFunc(func(ctx context.Context) (host.Host, error) {
		lib, err := OpenExisting(ctx, path, opts...)
		if err != nil {
			return nil, err
		}
		return lib, nil
	})
}

func open(ctx context.Context, path string, create bool, opts ...Option) (*Library, error) {
	if !create {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("%w: library %s: %v", host.ErrUnavailable, path, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	lib := &Library{db: db, path: path}
	for _, opt := range opts {
		opt(lib)
	}
	if err := lib.initSchema(ctx, create); err != nil {
		_ = db.Close()
		return nil, err
	}
	return lib, nil
}

// Path returns the file the library was opened from.
func (l *Library) Path() string { return l.path }

// Close closes the underlying database connection.
func (l *Library) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

func (l *Library) initSchema(ctx context.Context, create bool) error {
	var tableExists int
	err := l.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		if !create {
			return fmt.Errorf("%w: %s is not a media library", host.ErrUnavailable, l.path)
		}
		return l.createSchema(ctx)
	}

	var version int
	if err := l.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: library has version %d, expected %d", ErrSchemaMismatch, version, schemaVersion)
	}
	return nil
}

func (l *Library) createSchema(ctx context.Context) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (l *Library) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = l.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

// Package pghost serves a media pool stored in Postgres through pgx. The
// pool is shared across passes; a session only borrows it.
package pghost

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JonMunkholm/metasync/internal/host"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

const schema = `
CREATE TABLE IF NOT EXISTS media_folders (
    id        uuid PRIMARY KEY,
    parent_id uuid REFERENCES media_folders(id) ON DELETE CASCADE,
    name      text NOT NULL,
    position  integer NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_media_folders_parent ON media_folders (parent_id, position);

CREATE TABLE IF NOT EXISTS media_clips (
    id        uuid PRIMARY KEY,
    folder_id uuid NOT NULL REFERENCES media_folders(id) ON DELETE CASCADE,
    file_name text NOT NULL,
    clip_name text NOT NULL,
    position  integer NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_media_clips_folder ON media_clips (folder_id, position);

CREATE TABLE IF NOT EXISTS media_clip_metadata (
    clip_id    uuid NOT NULL REFERENCES media_clips(id) ON DELETE CASCADE,
    key        text NOT NULL,
    value      text NOT NULL,
    updated_at timestamptz NOT NULL DEFAULT now(),
    PRIMARY KEY (clip_id, key)
);
`

// Host reads and writes the media_* tables.
type Host struct {
	db      DBTX
	allowed host.KeySet
}

// New wraps db. An empty allowed list accepts every key.
func New(db DBTX, allowed []string) *Host {
	return &Host{db: db, allowed: host.NewKeySet(allowed)}
}

// Opener hands out a Host over the shared pool for each pass.
func Opener(db DBTX, allowed []string) host.Opener {
	return host.OpenerFunc(func(ctx context.Context) (host.Host, error) {
		return New(db, allowed), nil
	})
}

// EnsureSchema creates the tables and a root folder when missing.
func EnsureSchema(ctx context.Context, db DBTX) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create media schema: %w", err)
	}
	_, err := db.Exec(ctx, `
		INSERT INTO media_folders (id, parent_id, name, position)
		SELECT $1::uuid, NULL, 'Master', 0
		WHERE NOT EXISTS (SELECT 1 FROM media_folders WHERE parent_id IS NULL)`,
		uuid.NewString())
	if err != nil {
		return fmt.Errorf("create root folder: %w", err)
	}
	return nil
}

func (h *Host) Root(ctx context.Context) (host.Container, error) {
	var c host.Container
	err := h.db.QueryRow(ctx,
		"SELECT id::text, name FROM media_folders WHERE parent_id IS NULL ORDER BY position, name LIMIT 1",
	).Scan(&c.ID, &c.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return host.Container{}, fmt.Errorf("%w: media pool has no root folder", host.ErrUnavailable)
	}
	if err != nil {
		return host.Container{}, fmt.Errorf("%w: read root folder: %v", host.ErrUnavailable, err)
	}
	return c, nil
}

func (h *Host) ListChildItems(ctx context.Context, c host.Container) ([]host.Item, error) {
	if _, err := uuid.Parse(c.ID); err != nil {
		return nil, fmt.Errorf("invalid folder id %q", c.ID)
	}
	rows, err := h.db.Query(ctx,
		"SELECT id::text, clip_name FROM media_clips WHERE folder_id = $1::uuid ORDER BY position, file_name", c.ID)
	if err != nil {
		return nil, fmt.Errorf("list clips: %w", err)
	}
	defer rows.Close()

	var items []host.Item
	for rows.Next() {
		var it host.Item
		if err := rows.Scan(&it.ID, &it.Name); err != nil {
			return nil, fmt.Errorf("scan clip: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (h *Host) ListSubcontainers(ctx context.Context, c host.Container) ([]host.Container, error) {
	if _, err := uuid.Parse(c.ID); err != nil {
		return nil, fmt.Errorf("invalid folder id %q", c.ID)
	}
	rows, err := h.db.Query(ctx,
		"SELECT id::text, name FROM media_folders WHERE parent_id = $1::uuid ORDER BY position, name", c.ID)
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	defer rows.Close()

	var out []host.Container
	for rows.Next() {
		var sub host.Container
		if err := rows.Scan(&sub.ID, &sub.Name); err != nil {
			return nil, fmt.Errorf("scan folder: %w", err)
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (h *Host) GetProperty(ctx context.Context, it host.Item, key string) (string, error) {
	if _, err := uuid.Parse(it.ID); err != nil {
		return "", fmt.Errorf("invalid clip id %q", it.ID)
	}

	var row pgx.Row
	switch key {
	case host.PropFileName:
		row = h.db.QueryRow(ctx, "SELECT file_name FROM media_clips WHERE id = $1::uuid", it.ID)
	case host.PropClipName:
		row = h.db.QueryRow(ctx, "SELECT clip_name FROM media_clips WHERE id = $1::uuid", it.ID)
	default:
		row = h.db.QueryRow(ctx,
			"SELECT value FROM media_clip_metadata WHERE clip_id = $1::uuid AND key = $2", it.ID, key)
	}

	var v string
	err := row.Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", key, err)
	}
	return v, nil
}

func (h *Host) SetMetadata(ctx context.Context, it host.Item, key, value string) (bool, error) {
	if !h.allowed.Allows(key) {
		return false, nil
	}
	if _, err := uuid.Parse(it.ID); err != nil {
		return false, fmt.Errorf("invalid clip id %q", it.ID)
	}

	tag, err := h.db.Exec(ctx, `
		INSERT INTO media_clip_metadata (clip_id, key, value, updated_at)
		SELECT id, $2, $3, $4 FROM media_clips WHERE id = $1::uuid
		ON CONFLICT (clip_id, key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		it.ID, key, value, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("write %s: %w", key, err)
	}
	if tag.RowsAffected() == 0 {
		return false, fmt.Errorf("clip %s no longer exists", it.ID)
	}
	return true, nil
}

// AddFolder creates a folder under parentID.
func (h *Host) AddFolder(ctx context.Context, parentID, name string) (string, error) {
	id := uuid.NewString()
	_, err := h.db.Exec(ctx, `
		INSERT INTO media_folders (id, parent_id, name, position)
		SELECT $1::uuid, $2::uuid, $3, COALESCE(MAX(position), -1) + 1 FROM media_folders WHERE parent_id = $2::uuid`,
		id, parentID, name)
	if err != nil {
		return "", fmt.Errorf("add folder %q: %w", name, err)
	}
	return id, nil
}

// AddClip adds a clip to folderID. An empty clipName defaults to fileName.
func (h *Host) AddClip(ctx context.Context, folderID, fileName, clipName string) (string, error) {
	if clipName == "" {
		clipName = fileName
	}
	id := uuid.NewString()
	_, err := h.db.Exec(ctx, `
		INSERT INTO media_clips (id, folder_id, file_name, clip_name, position)
		SELECT $1::uuid, $2::uuid, $3, $4, COALESCE(MAX(position), -1) + 1 FROM media_clips WHERE folder_id = $2::uuid`,
		id, folderID, fileName, clipName)
	if err != nil {
		return "", fmt.Errorf("add clip %q: %w", fileName, err)
	}
	return id, nil
}

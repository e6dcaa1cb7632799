package sqlitehost

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/JonMunkholm/metasync/internal/host"
)

func (l *Library) Root(ctx context.Context) (host.Container, error) {
	var (
		id   int64
		name string
	)
	err := l.db.QueryRowContext(ctx,
		"SELECT id, name FROM folders WHERE parent_id IS NULL ORDER BY position, id LIMIT 1",
	).Scan(&id, &name)
	if errors.Is(err, sql.ErrNoRows) {
		return host.Container{}, fmt.Errorf("%w: library has no root folder", host.ErrUnavailable)
	}
	if err != nil {
		return host.Container{}, fmt.Errorf("read root folder: %w", err)
	}
	return host.Container{ID: formatID(id), Name: name}, nil
}

func (l *Library) ListChildItems(ctx context.Context, c host.Container) ([]host.Item, error) {
	folderID, err := parseID(c.ID)
	if err != nil {
		return nil, err
	}
	rows, err := l.db.QueryContext(ctx,
		"SELECT id, clip_name FROM clips WHERE folder_id = ? ORDER BY position, id", folderID)
	if err != nil {
		return nil, fmt.Errorf("list clips: %w", err)
	}
	defer rows.Close()

	var items []host.Item
	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scan clip: %w", err)
		}
		items = append(items, host.Item{ID: formatID(id), Name: name})
	}
	return items, rows.Err()
}

func (l *Library) ListSubcontainers(ctx context.Context, c host.Container) ([]host.Container, error) {
	folderID, err := parseID(c.ID)
	if err != nil {
		return nil, err
	}
	rows, err := l.db.QueryContext(ctx,
		"SELECT id, name FROM folders WHERE parent_id = ? ORDER BY position, id", folderID)
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	defer rows.Close()

	var out []host.Container
	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scan folder: %w", err)
		}
		out = append(out, host.Container{ID: formatID(id), Name: name})
	}
	return out, rows.Err()
}

func (l *Library) GetProperty(ctx context.Context, it host.Item, key string) (string, error) {
	clipID, err := parseID(it.ID)
	if err != nil {
		return "", err
	}

	var (
		query string
		args  = []any{clipID}
	)
	switch key {
	case host.PropFileName:
		query = "SELECT file_name FROM clips WHERE id = ?"
	case host.PropClipName:
		query = "SELECT clip_name FROM clips WHERE id = ?"
	default:
		query = "SELECT value FROM clip_metadata WHERE clip_id = ? AND key = ?"
		args = append(args, key)
	}

	var v string
	err = l.db.QueryRowContext(ctx, query, args...).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", key, err)
	}
	return v, nil
}

func (l *Library) SetMetadata(ctx context.Context, it host.Item, key, value string) (bool, error) {
	if !l.allowed.Allows(key) {
		return false, nil
	}
	clipID, err := parseID(it.ID)
	if err != nil {
		return false, err
	}

	res, err := l.exec(ctx, `
		INSERT INTO clip_metadata (clip_id, key, value, updated_at)
		SELECT id, ?, ?, ? FROM clips WHERE id = ?
		ON CONFLICT (clip_id, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().Format(time.RFC3339), clipID)
	if err != nil {
		return false, fmt.Errorf("write %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("write %s: %w", key, err)
	}
	if n == 0 {
		return false, fmt.Errorf("clip %s no longer exists", it.ID)
	}
	return true, nil
}

func formatID(id int64) string { return strconv.FormatInt(id, 10) }

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

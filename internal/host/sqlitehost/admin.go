package sqlitehost

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/JonMunkholm/metasync/internal/host"
)

// AddFolder creates a folder under parentID, after its existing siblings.
func (l *Library) AddFolder(ctx context.Context, parentID, name string) (string, error) {
	pid, err := parseID(parentID)
	if err != nil {
		return "", err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("folder name is required")
	}

	res, err := l.exec(ctx, `
		INSERT INTO folders (parent_id, name, position)
		SELECT ?, ?, COALESCE(MAX(position), -1) + 1 FROM folders WHERE parent_id = ?`,
		pid, name, pid)
	if err != nil {
		return "", fmt.Errorf("add folder %q: %w", name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("add folder %q: %w", name, err)
	}
	return formatID(id), nil
}

// EnsureFolderPath resolves a slash separated path below the root, creating
// missing folders. An empty path is the root.
func (l *Library) EnsureFolderPath(ctx context.Context, folderPath string) (string, error) {
	root, err := l.Root(ctx)
	if err != nil {
		return "", err
	}

	current := root.ID
	for _, part := range strings.Split(path.Clean("/"+folderPath), "/") {
		if part == "" {
			continue
		}
		var id int64
		err := l.db.QueryRowContext(ctx,
			"SELECT id FROM folders WHERE parent_id = ? AND name = ? ORDER BY position, id LIMIT 1",
			current, part).Scan(&id)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			if current, err = l.AddFolder(ctx, current, part); err != nil {
				return "", err
			}
		case err != nil:
			return "", fmt.Errorf("find folder %q: %w", part, err)
		default:
			current = formatID(id)
		}
	}
	return current, nil
}

// AddClip adds a clip to folderID. An empty clipName defaults to fileName.
func (l *Library) AddClip(ctx context.Context, folderID, fileName, clipName string) (string, error) {
	fid, err := parseID(folderID)
	if err != nil {
		return "", err
	}
	fileName = strings.TrimSpace(fileName)
	if fileName == "" {
		return "", fmt.Errorf("file name is required")
	}
	if strings.TrimSpace(clipName) == "" {
		clipName = fileName
	}

	res, err := l.exec(ctx, `
		INSERT INTO clips (folder_id, file_name, clip_name, position)
		SELECT ?, ?, ?, COALESCE(MAX(position), -1) + 1 FROM clips WHERE folder_id = ?`,
		fid, fileName, clipName, fid)
	if err != nil {
		return "", fmt.Errorf("add clip %q: %w", fileName, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("add clip %q: %w", fileName, err)
	}
	return formatID(id), nil
}

// Metadata returns every metadata value on a clip.
func (l *Library) Metadata(ctx context.Context, clipID string) (map[string]string, error) {
	id, err := parseID(clipID)
	if err != nil {
		return nil, err
	}
	rows, err := l.db.QueryContext(ctx, "SELECT key, value FROM clip_metadata WHERE clip_id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan metadata: %w", err)
		}
		out[k] = v
	}
	return out, rows.Err()
}

// Entry is one line of a library listing.
type Entry struct {
	Path     string            `json:"path"`
	FileName string            `json:"fileName"`
	ClipID   string            `json:"clipId"`
	Metadata map[string]string `json:"metadata"`
}

// List returns every clip with its folder path, in traversal order.
func (l *Library) List(ctx context.Context) ([]Entry, error) {
	root, err := l.Root(ctx)
	if err != nil {
		return nil, err
	}
	var out []Entry
	if err := l.list(ctx, root.ID, "", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (l *Library) list(ctx context.Context, folderID, prefix string, out *[]Entry) error {
	fid, err := parseID(folderID)
	if err != nil {
		return err
	}
	rows, err := l.db.QueryContext(ctx,
		"SELECT id, file_name FROM clips WHERE folder_id = ? ORDER BY position, id", fid)
	if err != nil {
		return fmt.Errorf("list clips: %w", err)
	}
	var clips []Entry
	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			rows.Close()
			return fmt.Errorf("scan clip: %w", err)
		}
		clips = append(clips, Entry{Path: prefix, FileName: name, ClipID: formatID(id)})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, c := range clips {
		md, err := l.Metadata(ctx, c.ClipID)
		if err != nil {
			return err
		}
		c.Metadata = md
		*out = append(*out, c)
	}

	subs, err := l.ListSubcontainers(ctx, host.Container{ID: folderID})
	if err != nil {
		return err
	}
	for _, s := range subs {
		if err := l.list(ctx, s.ID, path.Join(prefix, s.Name), out); err != nil {
			return err
		}
	}
	return nil
}

// SortedKeys returns the metadata keys of e in order.
func (e Entry) SortedKeys() []string {
	keys := make([]string, 0, len(e.Metadata))
	for k := range e.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

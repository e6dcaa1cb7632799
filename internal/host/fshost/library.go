// Package fshost treats a directory tree as a media pool: directories are
// folders, media files are clips, and metadata is written into the files'
// XMP tags through exiftool.
package fshost

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/JonMunkholm/metasync/internal/host"
)

// Library is one open directory tree. Item and container ids are slash
// separated paths relative to the root.
type Library struct {
	root    string
	exts    map[string]bool
	tags    TagStore
	allowed host.KeySet
}

// New serves root. Files whose extension is not in exts are ignored; an
// empty exts accepts every file.
func New(root string, exts []string, tags TagStore, allowed []string) *Library {
	set := make(map[string]bool, len(exts))
	for _, e := range exts {
		set[strings.ToLower(e)] = true
	}
	return &Library{root: root, exts: set, tags: tags, allowed: host.NewKeySet(allowed)}
}

// Opener starts a fresh exiftool process for each pass and stops it when
// the session closes.
func Opener(root string, exts []string, exiftoolPath string, allowed []string) host.Opener {
	return host.OpenerFunc(func(ctx context.Context) (host.Host, error) {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("%w: media root: %v", host.ErrUnavailable, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%w: media root %s is not a directory", host.ErrUnavailable, root)
		}
		tags, err := NewExiftoolStore(exiftoolPath)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", host.ErrUnavailable, err)
		}
		return New(root, exts, tags, allowed), nil
	})
}

// Close stops the tag store.
func (l *Library) Close() error {
	if l.tags == nil {
		return nil
	}
	return l.tags.Close()
}

func (l *Library) Root(ctx context.Context) (host.Container, error) {
	info, err := os.Stat(l.root)
	if err != nil || !info.IsDir() {
		return host.Container{}, fmt.Errorf("%w: media root %s is not a directory", host.ErrUnavailable, l.root)
	}
	return host.Container{ID: ".", Name: filepath.Base(l.root)}, nil
}

func (l *Library) ListChildItems(ctx context.Context, c host.Container) ([]host.Item, error) {
	entries, err := l.readDir(c.ID)
	if err != nil {
		return nil, err
	}
	var items []host.Item
	for _, e := range entries {
		if e.IsDir() || !l.isMedia(e.Name()) {
			continue
		}
		items = append(items, host.Item{ID: path.Join(c.ID, e.Name()), Name: e.Name()})
	}
	return items, nil
}

func (l *Library) ListSubcontainers(ctx context.Context, c host.Container) ([]host.Container, error) {
	entries, err := l.readDir(c.ID)
	if err != nil {
		return nil, err
	}
	var out []host.Container
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, host.Container{ID: path.Join(c.ID, e.Name()), Name: e.Name()})
		}
	}
	return out, nil
}

func (l *Library) GetProperty(ctx context.Context, it host.Item, key string) (string, error) {
	p, err := l.resolve(it.ID)
	if err != nil {
		return "", err
	}
	switch key {
	case host.PropFileName, host.PropClipName:
		return filepath.Base(p), nil
	}
	tag, ok := TagFor(key)
	if !ok || l.tags == nil {
		return "", nil
	}
	return l.tags.ReadTag(p, tag)
}

func (l *Library) SetMetadata(ctx context.Context, it host.Item, key, value string) (bool, error) {
	tag, ok := TagFor(key)
	if !ok || !l.allowed.Allows(key) {
		return false, nil
	}
	if l.tags == nil {
		return false, fmt.Errorf("tag store not open")
	}
	p, err := l.resolve(it.ID)
	if err != nil {
		return false, err
	}
	if err := l.tags.WriteTag(p, tag, value); err != nil {
		return false, err
	}
	return true, nil
}

// readDir lists a directory, skipping hidden entries, sorted by name.
func (l *Library) readDir(id string) ([]os.DirEntry, error) {
	dir, err := l.resolve(id)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	out := entries[:0]
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), ".") {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out, nil
}

// resolve maps an id to a path inside the root. Cleaning against "/"
// drops any leading "..".
func (l *Library) resolve(id string) (string, error) {
	if id == "" {
		return "", fmt.Errorf("empty id")
	}
	return filepath.Join(l.root, filepath.FromSlash(path.Clean("/"+id))), nil
}

func (l *Library) isMedia(name string) bool {
	if len(l.exts) == 0 {
		return true
	}
	return l.exts[strings.ToLower(filepath.Ext(name))]
}

package host

import (
	"context"
	"fmt"
	"strconv"
	"sync"
)

// Memory is an in-process media library. It backs demos and tests and
// records how many host calls a pass made.
type Memory struct {
	mu      sync.Mutex
	nextID  int
	root    string
	folders map[string]*memFolder
	clips   map[string]*memClip
	allowed KeySet
	failing map[string]error
	calls   CallCounts
}

// CallCounts tallies capability calls made against a Memory host.
type CallCounts struct {
	ListChildItems    int
	ListSubcontainers int
	GetProperty       int
	SetMetadata       int
}

type memFolder struct {
	id      string
	name    string
	clips   []string
	folders []string
}

type memClip struct {
	id       string
	fileName string
	clipName string
	metadata map[string]string
}

// MemoryOption configures a Memory host.
type MemoryOption func(*Memory)

// WithAllowedKeys restricts SetMetadata to keys; other keys are rejected.
func WithAllowedKeys(keys []string) MemoryOption {
	return func(m *Memory) { m.allowed = NewKeySet(keys) }
}

// NewMemory returns an empty library with a root folder named "Master".
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		folders: make(map[string]*memFolder),
		clips:   make(map[string]*memClip),
		failing: make(map[string]error),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.root = m.newID("f")
	m.folders[m.root] = &memFolder{id: m.root, name: "Master"}
	return m
}

func (m *Memory) newID(prefix string) string {
	m.nextID++
	return prefix + strconv.Itoa(m.nextID)
}

// RootID returns the id of the root folder.
func (m *Memory) RootID() string { return m.root }

// AddFolder creates a subfolder under parentID and returns its id.
func (m *Memory) AddFolder(parentID, name string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	parent, ok := m.folders[parentID]
	if !ok {
		panic(fmt.Sprintf("memory host: unknown folder %q", parentID))
	}
	id := m.newID("f")
	m.folders[id] = &memFolder{id: id, name: name}
	parent.folders = append(parent.folders, id)
	return id
}

// AddClip adds a clip whose clip name equals its file name.
func (m *Memory) AddClip(folderID, fileName string) string {
	return m.AddClipNamed(folderID, fileName, fileName)
}

// AddClipNamed adds a clip with distinct file and clip names.
func (m *Memory) AddClipNamed(folderID, fileName, clipName string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	folder, ok := m.folders[folderID]
	if !ok {
		panic(fmt.Sprintf("memory host: unknown folder %q", folderID))
	}
	id := m.newID("c")
	m.clips[id] = &memClip{id: id, fileName: fileName, clipName: clipName, metadata: make(map[string]string)}
	folder.clips = append(folder.clips, id)
	return id
}

// FailWrites makes every SetMetadata call for key return err.
func (m *Memory) FailWrites(key string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failing[key] = err
}

// Metadata returns a copy of the metadata written to a clip.
func (m *Memory) Metadata(clipID string) map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]string)
	if c, ok := m.clips[clipID]; ok {
		for k, v := range c.metadata {
			out[k] = v
		}
	}
	return out
}

// Calls returns the capability call counts so far.
func (m *Memory) Calls() CallCounts {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *Memory) Root(ctx context.Context) (Container, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f := m.folders[m.root]
	return Container{ID: f.id, Name: f.name}, nil
}

func (m *Memory) ListChildItems(ctx context.Context, c Container) ([]Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.ListChildItems++

	f, ok := m.folders[c.ID]
	if !ok {
		return nil, nil
	}
	items := make([]Item, 0, len(f.clips))
	for _, id := range f.clips {
		items = append(items, Item{ID: id, Name: m.clips[id].clipName})
	}
	return items, nil
}

func (m *Memory) ListSubcontainers(ctx context.Context, c Container) ([]Container, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.ListSubcontainers++

	f, ok := m.folders[c.ID]
	if !ok {
		return nil, nil
	}
	out := make([]Container, 0, len(f.folders))
	for _, id := range f.folders {
		out = append(out, Container{ID: id, Name: m.folders[id].name})
	}
	return out, nil
}

func (m *Memory) GetProperty(ctx context.Context, it Item, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.GetProperty++

	c, ok := m.clips[it.ID]
	if !ok {
		return "", fmt.Errorf("unknown clip %q", it.ID)
	}
	switch key {
	case PropFileName:
		return c.fileName, nil
	case PropClipName:
		return c.clipName, nil
	}
	return c.metadata[key], nil
}

func (m *Memory) SetMetadata(ctx context.Context, it Item, key, value string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.SetMetadata++

	if err, ok := m.failing[key]; ok {
		return false, err
	}
	c, ok := m.clips[it.ID]
	if !ok {
		return false, fmt.Errorf("unknown clip %q", it.ID)
	}
	if !m.allowed.Allows(key) {
		return false, nil
	}
	c.metadata[key] = value
	return true, nil
}

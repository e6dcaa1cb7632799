package core

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/metasync/internal/mapping"
)

// ErrPresetExists is returned when a preset name is already taken.
var ErrPresetExists = errors.New("preset already exists")

// Store persists run history and mapping presets.
type Store interface {
	SaveRun(ctx context.Context, run Run) error
	// ListRuns returns the newest runs first, without outcome detail.
	ListRuns(ctx context.Context, limit int) ([]Run, error)
	GetRun(ctx context.Context, id string) (*Run, error)
	// PruneRuns deletes runs that started before cutoff.
	PruneRuns(ctx context.Context, cutoff time.Time) (int64, error)

	CreatePreset(ctx context.Context, p mapping.Preset) (*mapping.Preset, error)
	UpdatePreset(ctx context.Context, p mapping.Preset) (*mapping.Preset, error)
	GetPreset(ctx context.Context, id string) (*mapping.Preset, error)
	ListPresets(ctx context.Context) ([]mapping.Preset, error)
	DeletePreset(ctx context.Context, id string) error
}

// MemoryStore keeps everything in process memory. It backs the CLI and
// servers started without a database.
type MemoryStore struct {
	mu      sync.RWMutex
	runs    map[string]Run
	maxRuns int
	presets map[string]mapping.Preset
	now     func() time.Time
}

// NewMemoryStore returns an empty store holding at most maxRuns runs; the
// oldest are evicted first. maxRuns <= 0 keeps every run.
func NewMemoryStore(maxRuns int) *MemoryStore {
	return &MemoryStore{
		runs:    make(map[string]Run),
		maxRuns: maxRuns,
		presets: make(map[string]mapping.Preset),
		now:     time.Now,
	}
}

func (m *MemoryStore) SaveRun(ctx context.Context, run Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[run.ID] = run
	for m.maxRuns > 0 && len(m.runs) > m.maxRuns {
		m.evictOldest()
	}
	return nil
}

// evictOldest must be called with m.mu held.
func (m *MemoryStore) evictOldest() {
	var (
		oldestID string
		oldest   time.Time
	)
	for id, r := range m.runs {
		if oldestID == "" || r.StartedAt.Before(oldest) {
			oldestID, oldest = id, r.StartedAt
		}
	}
	delete(m.runs, oldestID)
}

func (m *MemoryStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	runs := make([]Run, 0, len(m.runs))
	for _, r := range m.runs {
		r.Outcome = nil
		runs = append(runs, r)
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func (m *MemoryStore) GetRun(ctx context.Context, id string) (*Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.runs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (m *MemoryStore) PruneRuns(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, r := range m.runs {
		if r.StartedAt.Before(cutoff) {
			delete(m.runs, id)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) CreatePreset(ctx context.Context, p mapping.Preset) (*mapping.Preset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.nameTaken(p.Name, "") {
		return nil, ErrPresetExists
	}
	p.ID = uuid.NewString()
	p.CreatedAt = m.now()
	p.UpdatedAt = p.CreatedAt
	m.presets[p.ID] = p
	return &p, nil
}

func (m *MemoryStore) UpdatePreset(ctx context.Context, p mapping.Preset) (*mapping.Preset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	old, ok := m.presets[p.ID]
	if !ok {
		return nil, ErrNotFound
	}
	if m.nameTaken(p.Name, p.ID) {
		return nil, ErrPresetExists
	}
	p.CreatedAt = old.CreatedAt
	p.UpdatedAt = m.now()
	m.presets[p.ID] = p
	return &p, nil
}

func (m *MemoryStore) GetPreset(ctx context.Context, id string) (*mapping.Preset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.presets[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *MemoryStore) ListPresets(ctx context.Context) ([]mapping.Preset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]mapping.Preset, 0, len(m.presets))
	for _, p := range m.presets {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

func (m *MemoryStore) DeletePreset(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.presets[id]; !ok {
		return ErrNotFound
	}
	delete(m.presets, id)
	return nil
}

// nameTaken must be called with m.mu held.
func (m *MemoryStore) nameTaken(name, exceptID string) bool {
	for id, p := range m.presets {
		if id != exceptID && strings.EqualFold(p.Name, name) {
			return true
		}
	}
	return false
}

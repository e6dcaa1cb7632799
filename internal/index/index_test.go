package index

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/metasync/internal/host"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  Clip_01.MOV ", "clip_01.mov"},
		{"", ""},
		{"   ", ""},
		// decomposed e + acute composes to U+00E9
		{"Cafe\u0301.MOV", "caf\u00e9.mov"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMatches(t *testing.T) {
	tests := []struct {
		candidate string
		target    string
		want      bool
	}{
		{"clip_01.mov", "clip_01.mov", true},
		{"clip_01.mov", "clip_01", true},
		{"clip_01", "clip_01.mov", true},
		{"clip_01.mov", "clip_01.mxf", true},
		{"archive.tar.gz", "archive.tar.mov", true},
		{"archive.tar.gz", "archive.tar", false},
		{"clip_01.mov", "clip_02.mov", false},
		{".hidden", ".other", false},
		{".hidden", ".hidden", true},
		{"", "", false},
	}
	for _, tt := range tests {
		if got := Matches(tt.candidate, tt.target); got != tt.want {
			t.Errorf("Matches(%q, %q) = %v, want %v", tt.candidate, tt.target, got, tt.want)
		}
	}
}

// buildTree returns:
//
//	Master: a.mov
//	  Day1: b.mov, dup.mov(first)
//	    Cam A: c.mov
//	  Day2: dup.mov(second)
func buildTree(t *testing.T) (*host.Memory, map[string]string) {
	t.Helper()
	m := host.NewMemory()
	ids := map[string]string{}
	ids["a"] = m.AddClip(m.RootID(), "A.mov")
	day1 := m.AddFolder(m.RootID(), "Day1")
	day2 := m.AddFolder(m.RootID(), "Day2")
	ids["b"] = m.AddClip(day1, "b.mov")
	ids["dup1"] = m.AddClip(day1, "dup.mov")
	cam := m.AddFolder(day1, "Cam A")
	ids["c"] = m.AddClipNamed(cam, "C001.mxf", "Interview Wide")
	ids["dup2"] = m.AddClip(day2, "dup.mov")
	return m, ids
}

func TestFindByName(t *testing.T) {
	m, ids := buildTree(t)
	ctx := context.Background()
	root, err := m.Root(ctx)
	require.NoError(t, err)

	tests := []struct {
		name   string
		wantID string
		found  bool
	}{
		{"a.mov", ids["a"], true},
		{"A", ids["a"], true},
		{" B.MOV ", ids["b"], true},
		{"c001.mov", ids["c"], true},
		{"interview wide", ids["c"], true},
		{"dup.mov", ids["dup1"], true},
		{"nope.mov", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it, ok, err := FindByName(ctx, m, root, tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.wantID, it.ID)
		})
	}
}

func TestFindByName_StopsAtFirstMatch(t *testing.T) {
	m, _ := buildTree(t)
	ctx := context.Background()
	root, _ := m.Root(ctx)

	_, ok, err := FindByName(ctx, m, root, "a.mov")
	require.NoError(t, err)
	require.True(t, ok)

	calls := m.Calls()
	assert.Equal(t, 1, calls.ListChildItems)
	assert.Equal(t, 0, calls.ListSubcontainers)
}

func TestFindByName_Cancelled(t *testing.T) {
	m, _ := buildTree(t)
	ctx, cancel := context.WithCancel(context.Background())
	root, _ := m.Root(ctx)
	cancel()

	_, _, err := FindByName(ctx, m, root, "c001.mxf")
	assert.True(t, errors.Is(err, context.Canceled))
}

type flakyHost struct {
	*host.Memory
	failFolder string
}

func (f flakyHost) ListChildItems(ctx context.Context, c host.Container) ([]host.Item, error) {
	if c.ID == f.failFolder {
		return nil, errors.New("folder locked")
	}
	return f.Memory.ListChildItems(ctx, c)
}

func TestFindByName_ToleratesListingErrors(t *testing.T) {
	m := host.NewMemory()
	locked := m.AddFolder(m.RootID(), "Locked")
	m.AddClip(locked, "hidden.mov")
	open := m.AddFolder(m.RootID(), "Open")
	want := m.AddClip(open, "shown.mov")

	h := flakyHost{Memory: m, failFolder: locked}
	root, _ := h.Root(context.Background())

	it, ok, err := FindByName(context.Background(), h, root, "shown.mov")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, want, it.ID)

	_, ok, err = FindByName(context.Background(), h, root, "hidden.mov")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIndex_AgreesWithFindByName(t *testing.T) {
	m, _ := buildTree(t)
	ctx := context.Background()
	root, _ := m.Root(ctx)

	idx, err := Build(ctx, m, root)
	require.NoError(t, err)
	assert.Equal(t, 5, idx.Len())

	for _, name := range []string{"a.mov", "A", "b", "dup.mov", "dup.mxf", "C001", "Interview Wide.mov", "missing", ""} {
		wantItem, wantOK, err := FindByName(ctx, m, root, name)
		require.NoError(t, err)
		gotItem, gotOK, err := idx.Find(ctx, name)
		require.NoError(t, err)
		assert.Equal(t, wantOK, gotOK, name)
		assert.Equal(t, wantItem.ID, gotItem.ID, name)
	}
}

func TestIndex_EarlierStemBeatsLaterExact(t *testing.T) {
	m := host.NewMemory()
	first := m.AddClip(m.RootID(), "shot.mxf")
	m.AddClip(m.RootID(), "shot.mov")
	root, _ := m.Root(context.Background())

	idx, err := Build(context.Background(), m, root)
	require.NoError(t, err)

	it, ok, err := idx.Find(context.Background(), "shot.mov")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, first, it.ID)
}

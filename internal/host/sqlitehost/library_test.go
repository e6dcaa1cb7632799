package sqlitehost

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/metasync/internal/host"
	"github.com/JonMunkholm/metasync/internal/index"
	"github.com/JonMunkholm/metasync/internal/mapping"
	"github.com/JonMunkholm/metasync/internal/reconcile"
	"github.com/JonMunkholm/metasync/internal/tabular"
)

func newLibrary(t *testing.T, opts ...Option) (*Library, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pool.db")
	lib, err := Create(context.Background(), path, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = lib.Close() })
	return lib, path
}

func TestCreate_HasRoot(t *testing.T) {
	lib, _ := newLibrary(t)
	root, err := lib.Root(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Master", root.Name)
}

func TestOpenExisting_Missing(t *testing.T) {
	_, err := OpenExisting(context.Background(), filepath.Join(t.TempDir(), "nope.db"))
	assert.ErrorIs(t, err, host.ErrUnavailable)
}

func TestTreeOrderAndProperties(t *testing.T) {
	ctx := context.Background()
	lib, _ := newLibrary(t)

	day1, err := lib.EnsureFolderPath(ctx, "Day1/Cam A")
	require.NoError(t, err)
	again, err := lib.EnsureFolderPath(ctx, "/Day1/Cam A/")
	require.NoError(t, err)
	assert.Equal(t, day1, again)

	root, _ := lib.Root(ctx)
	_, err = lib.AddClip(ctx, root.ID, "b.mov", "")
	require.NoError(t, err)
	_, err = lib.AddClip(ctx, root.ID, "a.mov", "Opening")
	require.NoError(t, err)
	deep, err := lib.AddClip(ctx, day1, "C001.mxf", "")
	require.NoError(t, err)

	items, err := lib.ListChildItems(ctx, root)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "b.mov", items[0].Name)
	assert.Equal(t, "Opening", items[1].Name)

	fn, err := lib.GetProperty(ctx, items[1], host.PropFileName)
	require.NoError(t, err)
	assert.Equal(t, "a.mov", fn)

	it, ok, err := index.FindByName(ctx, lib, root, "c001")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, deep, it.ID)

	entries, err := lib.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "Day1/Cam A", entries[2].Path)
}

func TestSetMetadata(t *testing.T) {
	ctx := context.Background()
	lib, _ := newLibrary(t, WithAllowedKeys([]string{"Scene", "Take"}))
	root, _ := lib.Root(ctx)
	clip, err := lib.AddClip(ctx, root.ID, "a.mov", "")
	require.NoError(t, err)

	ok, err := lib.SetMetadata(ctx, host.Item{ID: clip}, "Scene", "1")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = lib.SetMetadata(ctx, host.Item{ID: clip}, "Scene", "2")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = lib.SetMetadata(ctx, host.Item{ID: clip}, "Mood", "x")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = lib.SetMetadata(ctx, host.Item{ID: "999"}, "Take", "1")
	assert.Error(t, err)

	md, err := lib.Metadata(ctx, clip)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"Scene": "2"}, md)

	v, err := lib.GetProperty(ctx, host.Item{ID: clip}, "Scene")
	require.NoError(t, err)
	assert.Equal(t, "2", v)
}

func TestOpener_PassRoundTrip(t *testing.T) {
	ctx := context.Background()
	lib, path := newLibrary(t)
	root, _ := lib.Root(ctx)
	clip, err := lib.AddClip(ctx, root.ID, "shot1.mov", "")
	require.NoError(t, err)

	s, err := host.Open(ctx, Opener(path))
	require.NoError(t, err)

	plan := mapping.Plan{KeyColumn: "File Name", Mappings: []mapping.FieldMapping{{Column: "Scene", MetadataKey: "Scene"}}}
	out, err := reconcile.Reconcile(ctx, s, plan, []tabular.Row{
		{"File Name": "SHOT1", "Scene": "12"},
		{"File Name": "shot2.mov", "Scene": "13"},
	})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	assert.Equal(t, reconcile.Stats{TotalRows: 2, Matched: 1, Updated: 1, Missing: 1}, out.Stats)

	md, err := lib.Metadata(ctx, clip)
	require.NoError(t, err)
	assert.Equal(t, "12", md["Scene"])
}

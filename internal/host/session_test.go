package host

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type closingHost struct {
	*Memory
	closed int
}

func (c *closingHost) Close() error {
	c.closed++
	return nil
}

func TestOpen_ResolvesRoot(t *testing.T) {
	m := NewMemory()
	s, err := Open(context.Background(), Static(m))
	require.NoError(t, err)
	assert.Equal(t, m.RootID(), s.Root.ID)
	assert.Equal(t, "Master", s.Root.Name)
	require.NoError(t, s.Close())
}

func TestOpen_OpenerFailureIsUnavailable(t *testing.T) {
	o := OpenerFunc(func(context.Context) (Host, error) {
		return nil, errors.New("no project open")
	})
	_, err := Open(context.Background(), o)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Contains(t, err.Error(), "no project open")
}

func TestOpen_NilOpener(t *testing.T) {
	_, err := Open(context.Background(), nil)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestSession_CloseReleasesOnce(t *testing.T) {
	h := &closingHost{Memory: NewMemory()}
	s, err := Open(context.Background(), Static(h))
	require.NoError(t, err)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Equal(t, 1, h.closed)
}

func TestMemory_AllowedKeysRejectOthers(t *testing.T) {
	m := NewMemory(WithAllowedKeys([]string{"Scene"}))
	clip := m.AddClip(m.RootID(), "a.mov")

	ok, err := m.SetMetadata(context.Background(), Item{ID: clip}, "scene", "12")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.SetMetadata(context.Background(), Item{ID: clip}, "Mood", "dark")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, map[string]string{"scene": "12"}, m.Metadata(clip))
}

func TestKeySet_ZeroValueAllowsAll(t *testing.T) {
	var s KeySet
	assert.True(t, s.Allows("anything"))
	assert.False(t, NewKeySet([]string{"Take"}).Allows("Shot"))
	assert.True(t, NewKeySet([]string{" Take "}).Allows("TAKE"))
}

package cas

import (
	"errors"
	"os"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	return New(afero.NewMemMapFs(), "/cache/cas")
}

func TestPutGet_RoundTrip(t *testing.T) {
	t.Parallel()
	s := newStore(t)

	content := "# Module `test`\n\nSome documentation."
	key := Key("source", "options")
	require.Len(t, key, 64)
	require.NoError(t, s.Put(key, content))

	got, ok, err := s.Get(key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, content, got)

	exists, err := afero.Exists(s.fs, "/cache/cas/"+key[:2]+"/"+key[2:]+".md.zst")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestPut_KeepsExisting(t *testing.T) {
	t.Parallel()
	s := newStore(t)

	key := Key("source")
	require.NoError(t, s.Put(key, "first"))
	require.NoError(t, s.Put(key, "second"))

	got, _, err := s.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "first", got)

	assert.Error(t, s.Put("ab", "short key"))
}

func TestGet(t *testing.T) {
	t.Parallel()
	s := newStore(t)

	key := Key("def f(): pass", "options")
	_, ok, err := s.Get(key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Put(key, "rendered"))
	got, ok, err := s.Get(key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "rendered", got)
}

func TestRead_Missing(t *testing.T) {
	t.Parallel()
	s := newStore(t)

	_, err := s.read("0000000000000000000000000000000000000000000000000000000000000000")
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Key("a", "b"), Key("a", "b"))
	assert.NotEqual(t, Key("ab", "c"), Key("a", "bc"))
	assert.Len(t, Key(), 64)
}

func TestClear(t *testing.T) {
	t.Parallel()
	s := newStore(t)

	n, err := s.Clear()
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, s.Put(Key("one"), "one"))
	require.NoError(t, s.Put(Key("two"), "two"))

	n, err = s.Clear()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	exists, err := afero.DirExists(s.fs, s.Dir())
	require.NoError(t, err)
	assert.False(t, exists)
}

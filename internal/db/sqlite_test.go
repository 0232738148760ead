package db

import (
	"path/filepath"
	"testing"

	"github.com/jcdickinson/astdocs/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	dir := t.TempDir()
	db, err := New(filepath.Join(dir, "nested", "test.db"))
	if err != nil {
		t.Fatalf("creating test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleObjects() *registry.Objects {
	objs := registry.NewObjects()
	objs.Put("pkg.a", registry.KindClass, "A", "pkg.a.A")
	objs.Put("pkg.a", registry.KindFunction, "A.run", "pkg.a.A.run")
	objs.Put("pkg.a", registry.KindFunction, "helper", "pkg.a.helper")
	objs.Put("pkg.a", registry.KindImport, "os", "os")
	objs.Put("pkg.b", registry.KindImport, "A", "pkg.a.A")
	objs.Ensure("pkg.empty")
	return objs
}

func TestSaveLoadObjects(t *testing.T) {
	db := testDB(t)

	require.NoError(t, db.SaveObjects(sampleObjects()))

	got, err := db.LoadObjects()
	require.NoError(t, err)
	assert.Equal(t, []string{"pkg.a", "pkg.b", "pkg.empty"}, got.Modules())

	var entries []string
	got.Each(func(module string, kind registry.Kind, local, abs string) {
		entries = append(entries, module+" "+string(kind)+" "+local+" "+abs)
	})
	assert.Equal(t, []string{
		"pkg.a classes A pkg.a.A",
		"pkg.a functions A.run pkg.a.A.run",
		"pkg.a functions helper pkg.a.helper",
		"pkg.a imports os os",
		"pkg.b imports A pkg.a.A",
	}, entries)
	assert.True(t, got.IsLocal("pkg.empty"))
}

func TestSaveObjects_ReplacesModule(t *testing.T) {
	db := testDB(t)
	require.NoError(t, db.SaveObjects(sampleObjects()))

	update := registry.NewObjects()
	update.Put("pkg.a", registry.KindFunction, "renamed", "pkg.a.renamed")
	require.NoError(t, db.SaveObjects(update))

	got, err := db.LoadObjects()
	require.NoError(t, err)
	assert.Equal(t, []string{"pkg.b", "pkg.empty", "pkg.a"}, got.Modules())

	m, ok := got.Module("pkg.a")
	require.True(t, ok)
	assert.Zero(t, m.Classes.Len())
	abs, ok := m.Functions.Get("renamed")
	assert.True(t, ok)
	assert.Equal(t, "pkg.a.renamed", abs)
}

func TestClear(t *testing.T) {
	db := testDB(t)
	require.NoError(t, db.SaveObjects(sampleObjects()))

	n, err := db.Clear()
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	got, err := db.LoadObjects()
	require.NoError(t, err)
	assert.Zero(t, got.Len())
}

func TestNew_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")

	first, err := New(path)
	require.NoError(t, err)
	require.NoError(t, first.SaveObjects(sampleObjects()))
	require.NoError(t, first.Close())

	second, err := New(path)
	require.NoError(t, err)
	defer second.Close()

	got, err := second.LoadObjects()
	require.NoError(t, err)
	assert.Equal(t, 3, got.Len())
}

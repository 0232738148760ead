package graph

import (
	"encoding/json"
	"testing"

	"github.com/jcdickinson/astdocs/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() *registry.Objects {
	objs := registry.NewObjects()
	objs.Put("a", registry.KindClass, "A", "a.A")
	objs.Put("a", registry.KindFunction, "A.run", "a.A.run")
	objs.Put("b", registry.KindImport, "A", "a.A")
	objs.Put("b", registry.KindImport, "np", "numpy")
	return objs
}

func TestBuild(t *testing.T) {
	t.Parallel()

	g := Build(sample())

	assert.Equal(t, []Node{
		{ID: "a", Group: 1},
		{ID: "a.A", Group: 1},
		{ID: "a.A.run", Group: 1},
		{ID: "b", Group: 2},
		{ID: "b.A", Group: 2},
		{ID: "numpy", Group: 0},
		{ID: "b.np", Group: 2},
	}, g.Nodes)

	assert.Equal(t, []Link{
		{Source: "a", Target: "a.A"},
		{Source: "a.A", Target: "a.A.run"},
		{Source: "a.A", Target: "b.A"},
		{Source: "b", Target: "b.A"},
		{Source: "numpy", Target: "b.np"},
		{Source: "b", Target: "b.np"},
	}, g.Links)
}

func TestBuild_NoSelfOrDuplicateLinks(t *testing.T) {
	t.Parallel()

	g := Build(sample())

	seen := make(map[Link]bool)
	for _, l := range g.Links {
		assert.NotEqual(t, l.Source, l.Target)
		assert.False(t, seen[l], "duplicate link %v", l)
		seen[l] = true
	}

	ids := make(map[string]bool)
	for _, n := range g.Nodes {
		assert.False(t, ids[n.ID], "duplicate node %s", n.ID)
		ids[n.ID] = true
	}
	for _, l := range g.Links {
		assert.True(t, ids[l.Source], "dangling source %s", l.Source)
		assert.True(t, ids[l.Target], "dangling target %s", l.Target)
	}
}

func TestBuild_JSON(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(Build(registry.NewObjects()))
	require.NoError(t, err)
	assert.JSONEq(t, `{"nodes":[],"links":[]}`, string(data))
}

package mcp

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/jcdickinson/astdocs/internal/graph"
	"github.com/jcdickinson/astdocs/internal/render"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, files map[string]string) (*Server, afero.Fs) {
	t.Helper()

	fs := afero.NewMemMapFs()
	for path, content := range files {
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0644))
	}

	log := logrus.New()
	log.SetOutput(io.Discard)

	return NewServer(Config{
		Options:      render.DefaultOptions(),
		Fs:           fs,
		Logger:       log,
		RemovePrefix: "/src/",
		CacheTTL:     time.Minute,
	}), fs
}

func call(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return text.Text
}

var tree = map[string]string{
	"/src/pkg/__init__.py": "\"\"\"Package.\"\"\"\n",
	"/src/pkg/a.py":        "def a():\n    \"\"\"Does a.\"\"\"\n\nclass K:\n    pass\n",
	"/src/pkg/_hidden.py":  "def h():\n    pass\n",
}

func TestRenderModule(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, tree)
	res, err := s.handleRenderModule(context.Background(), call(map[string]any{"path": "/src/pkg/a.py"}))
	require.NoError(t, err)
	assert.False(t, res.IsError)

	text := resultText(t, res)
	assert.Contains(t, text, "# Module `pkg.a`")
	assert.Contains(t, text, "### `pkg.a.a`")
}

func TestRenderModule_Errors(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, tree)

	res, err := s.handleRenderModule(context.Background(), call(map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = s.handleRenderModule(context.Background(), call(map[string]any{"path": "/src/nope.py"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "render failed")
}

func TestRenderModule_Cached(t *testing.T) {
	t.Parallel()

	s, fs := newTestServer(t, tree)
	req := call(map[string]any{"path": "/src/pkg/a.py"})

	first, err := s.handleRenderModule(context.Background(), req)
	require.NoError(t, err)

	require.NoError(t, afero.WriteFile(fs, "/src/pkg/a.py", []byte("def changed():\n    pass\n"), 0644))
	second, err := s.handleRenderModule(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, resultText(t, first), resultText(t, second))

	require.NoError(t, s.Shutdown(context.Background()))
	third, err := s.handleRenderModule(context.Background(), req)
	require.NoError(t, err)
	assert.Contains(t, resultText(t, third), "pkg.a.changed")
}

func TestRenderObject(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, tree)

	res, err := s.handleRenderObject(context.Background(), call(map[string]any{"path": "/src/pkg/a.py", "object": "a"}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	text := resultText(t, res)
	assert.Contains(t, text, "`pkg.a.a`")
	assert.NotContains(t, text, "pkg.a.K")

	res, err = s.handleRenderObject(context.Background(), call(map[string]any{"path": "/src/pkg/a.py", "object": "Missing"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = s.handleRenderObject(context.Background(), call(map[string]any{"path": "/src/pkg/a.py"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestRenderCode(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, nil)

	res, err := s.handleRenderCode(context.Background(), call(map[string]any{
		"code":   "def _p():\n    pass\n\ndef q():\n    pass\n",
		"module": "snippet",
	}))
	require.NoError(t, err)
	text := resultText(t, res)
	assert.Contains(t, text, "### `snippet.q`")
	assert.NotContains(t, text, "snippet._p")

	res, err = s.handleRenderCode(context.Background(), call(map[string]any{
		"code":         "def _p():\n    pass\n",
		"module":       "snippet",
		"show_private": true,
	}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, res), "### `snippet._p`")

	res, err = s.handleRenderCode(context.Background(), call(map[string]any{"code": "x = 1"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = s.handleRenderCode(context.Background(), call(map[string]any{"code": "def (:", "module": "bad"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "syntax error")
}

func TestRenderTree(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, tree)

	res, err := s.handleRenderTree(context.Background(), call(map[string]any{"path": "/src/pkg"}))
	require.NoError(t, err)
	text := resultText(t, res)
	assert.Contains(t, text, "# Module `pkg`")
	assert.Contains(t, text, "# Module `pkg.a`")
	assert.NotContains(t, text, "pkg._hidden")

	res, err = s.handleRenderTree(context.Background(), call(map[string]any{"path": "/src/pkg", "show_private": true}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, res), "# Module `pkg._hidden`")
}

func TestRenderTree_SkipsBrokenFiles(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, map[string]string{
		"/src/pkg/good.py": "def g():\n    pass\n",
		"/src/pkg/bad.py":  "def (:\n",
	})

	res, err := s.handleRenderTree(context.Background(), call(map[string]any{"path": "/src/pkg"}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	text := resultText(t, res)
	assert.Contains(t, text, "# Module `pkg.good`")
	assert.Contains(t, text, "Skipped:")
	assert.Contains(t, text, "bad.py")
}

func TestTableOfContents(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, tree)

	res, err := s.handleTableOfContents(context.Background(), call(map[string]any{"path": "/src/pkg", "prefix": "docs"}))
	require.NoError(t, err)
	text := resultText(t, res)
	assert.Contains(t, text, "- Module [`pkg.a`](docs/pkg/a.md)")
	assert.Contains(t, text, "[`pkg.a.a`]")
	assert.Contains(t, text, "[`pkg.a.K`]")
}

func TestObjectGraph(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, tree)

	res, err := s.handleObjectGraph(context.Background(), call(map[string]any{"path": "/src/pkg/a.py"}))
	require.NoError(t, err)
	require.False(t, res.IsError)

	var g graph.Graph
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &g))

	ids := make(map[string]bool)
	for _, n := range g.Nodes {
		ids[n.ID] = true
	}
	assert.True(t, ids["pkg.a"])
	assert.True(t, ids["pkg.a.a"])
	assert.True(t, ids["pkg.a.K"])
	assert.Contains(t, g.Links, graph.Link{Source: "pkg.a", Target: "pkg.a.a"})
}

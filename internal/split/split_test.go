package split

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/jcdickinson/astdocs/internal/pipeline"
	"github.com/jcdickinson/astdocs/internal/render"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	t.Parallel()

	stream := strings.Join([]string{
		"# Table of Contents",
		"",
		"%%%BEGIN MODULE pkg.mod",
		"# Module `pkg.mod`",
		"%%%BEGIN FUNCTIONDEF pkg.mod.f",
		"# `pkg.mod.f`",
		"",
		"%%%BEGIN TOC",
		"listing",
	}, "\n")

	assert.Equal(t, []Part{
		{Content: "# Table of Contents"},
		{Kind: "MODULE", Path: "pkg.mod", Content: "# Module `pkg.mod`"},
		{Kind: "FUNCTIONDEF", Path: "pkg.mod.f", Content: "# `pkg.mod.f`"},
		{Kind: "TOC", Content: "listing"},
	}, Split(stream))
}

func TestSplit_NoLeadingPart(t *testing.T) {
	t.Parallel()

	parts := Split("\n%%%BEGIN MODULE m\n# Module `m`")
	require.Len(t, parts, 1)
	assert.Equal(t, "m.md", parts[0].File())
	assert.Empty(t, Split(""))
}

func TestPart_File(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "index.md", Part{}.File())
	assert.Equal(t, "a/b/c.md", Part{Path: "a.b.c"}.File())
}

func TestRelative(t *testing.T) {
	t.Parallel()

	tests := []struct{ from, to, want string }{
		{"pkg/mod.md", "pkg/mod/f.md", "mod/f.md"},
		{"pkg/mod/f.md", "pkg/mod.md", "../mod.md"},
		{"index.md", "pkg/mod.md", "pkg/mod.md"},
		{"a/b/c.md", "x/y.md", "../../x/y.md"},
		{"a.md", "b.md", "b.md"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, relative(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestWriteFiles_FromRender(t *testing.T) {
	t.Parallel()

	src := `"""Example."""

class C:
    """A class."""

    def m(self):
        """A method."""

def f():
    """A function."""
`
	opts := render.DefaultOptions()
	opts.SplitBy = "mfc"
	log := logrus.New()
	log.SetOutput(io.Discard)
	p := pipeline.New(opts, pipeline.WithLogger(log))
	stream, err := p.RenderCode(context.Background(), src, "pkg.mod")
	require.NoError(t, err)

	fs := afero.NewMemMapFs()
	written, err := WriteFiles(fs, "/out", Split(stream), Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"pkg/mod.md", "pkg/mod/f.md", "pkg/mod/C.md", "pkg/mod/C/m.md"}, written)

	module, err := afero.ReadFile(fs, "/out/pkg/mod.md")
	require.NoError(t, err)
	assert.Equal(t, "# Module `pkg.mod`\n\nExample.\n", string(module))

	class, err := afero.ReadFile(fs, "/out/pkg/mod/C.md")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(class), "# `pkg.mod.C`"))
	assert.Contains(t, string(class), "* [`m()`](C/m.md#pkgmodcm): A method.")
	assert.NotContains(t, string(class), "%%%")

	method, err := afero.ReadFile(fs, "/out/pkg/mod/C/m.md")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(method), "### `pkg.mod.C.m`"))
	assert.True(t, strings.HasSuffix(string(method), "A method.\n"))
}

func TestWriteFiles_FrontMatter(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	parts := []Part{
		{Content: "intro"},
		{Kind: "FUNCTIONDEF", Path: "m.f", Content: "# `m.f`"},
	}
	written, err := WriteFiles(fs, "/out", parts, Options{FrontMatter: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"index.md", "m/f.md"}, written)

	index, err := afero.ReadFile(fs, "/out/index.md")
	require.NoError(t, err)
	assert.Equal(t, "intro\n", string(index))

	f, err := afero.ReadFile(fs, "/out/m/f.md")
	require.NoError(t, err)
	assert.Equal(t, "---\nkind: functiondef\nobject: m.f\n---\n\n# `m.f`\n", string(f))
}

func TestWithIndex(t *testing.T) {
	t.Parallel()

	parts := []Part{
		{Content: "# Module `m`"},
		{Kind: "FUNCTIONDEF", Path: "m.f", Content: "# `m.f`"},
	}
	merged := WithIndex(parts, "- Module [`m`](m.md)")
	require.Len(t, merged, 2)
	assert.Equal(t, "- Module [`m`](m.md)\n\n# Module `m`", merged[0].Content)
	assert.Equal(t, "# Module `m`", parts[0].Content, "input must not be modified")

	prepended := WithIndex(parts[1:], "contents")
	require.Len(t, prepended, 2)
	assert.Equal(t, Part{Content: "contents"}, prepended[0])
	assert.Equal(t, "index.md", prepended[0].File())
}

func TestWriteFiles_IndexKeepsLeadingModule(t *testing.T) {
	t.Parallel()

	opts := render.DefaultOptions()
	opts.SplitBy = "fc"
	log := logrus.New()
	log.SetOutput(io.Discard)
	p := pipeline.New(opts, pipeline.WithLogger(log))
	stream, err := p.RenderCode(context.Background(), "\"\"\"Example.\"\"\"\n\ndef f():\n    pass\n", "m")
	require.NoError(t, err)

	fs := afero.NewMemMapFs()
	written, err := WriteFiles(fs, "/out", WithIndex(Split(stream), "# Contents"), Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"index.md", "m/f.md"}, written)

	index, err := afero.ReadFile(fs, "/out/index.md")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(index), "# Contents\n\n"))
	assert.Contains(t, string(index), "Example.")
}

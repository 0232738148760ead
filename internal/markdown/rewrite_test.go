package markdown

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRewriteMap_InlineLinks(t *testing.T) {
	t.Parallel()
	src := "* [`f()`](#pkgmodf): Do it."
	got := RewriteMap(src, map[string]string{"#pkgmodf": "pkg/mod/f.md#pkgmodf"})
	want := "* [`f()`](pkg/mod/f.md#pkgmodf): Do it."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRewriteMap_ReferenceStyleLinks(t *testing.T) {
	t.Parallel()
	src := "See [Foo][ref] for details.\n\n[ref]: #old"
	got := RewriteMap(src, map[string]string{"#old": "other.md#old"})
	if !strings.Contains(got, "[ref]: other.md#old") {
		t.Errorf("reference link not rewritten: %q", got)
	}
}

func TestRewriteMap_EmptyMap(t *testing.T) {
	t.Parallel()
	src := "Hello [world](url)."
	assert.Equal(t, src, RewriteMap(src, nil))
	assert.Equal(t, src, RewriteMap(src, map[string]string{}))
	assert.Equal(t, src, RewriteLinks(src, nil))
}

func TestRewriteMap_NoMatchingLinks(t *testing.T) {
	t.Parallel()
	src := "Check [this](keep-me) out."
	assert.Equal(t, src, RewriteMap(src, map[string]string{"other": "x"}))
}

func TestRewriteLinks_Resolver(t *testing.T) {
	t.Parallel()
	src := "[A](#a) and [B](#b) and [C](https://example.com) together."
	got := RewriteLinks(src, func(dest string) (string, bool) {
		if strings.HasPrefix(dest, "#") {
			return "page.md" + dest, true
		}
		return "", false
	})
	assert.Equal(t, "[A](page.md#a) and [B](page.md#b) and [C](https://example.com) together.", got)
}

func TestCodeHeadings(t *testing.T) {
	t.Parallel()

	src := strings.Join([]string{
		"# Module `pkg.mod`",
		"",
		"### `pkg.mod.f`",
		"",
		"```python",
		"# `not.a.heading`",
		"```",
		"",
		"#### Constructor",
		"",
		"##### `pkg.mod.C.m`",
	}, "\n")

	assert.Equal(t, []string{"pkg.mod.f", "pkg.mod.C.m"}, CodeHeadings(src))
}

func TestAddFrontMatter(t *testing.T) {
	t.Parallel()

	t.Run("basic", func(t *testing.T) {
		got, err := AddFrontMatter("# Doc", map[string]string{"object": "pkg.mod.f"})
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(got, "---\n"))
		assert.Contains(t, got, "object: pkg.mod.f\n---\n\n")
		assert.True(t, strings.HasSuffix(got, "# Doc"))
	})

	t.Run("sorted_keys", func(t *testing.T) {
		got, err := AddFrontMatter("body", map[string]string{"z": "1", "a": "2"})
		require.NoError(t, err)
		assert.Less(t, strings.Index(got, "a:"), strings.Index(got, "z:"))
	})

	t.Run("nil", func(t *testing.T) {
		got, err := AddFrontMatter("body", nil)
		require.NoError(t, err)
		assert.Equal(t, "body", got)
	})
}

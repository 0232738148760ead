package postrender

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const rendered = "%%%BEGIN MODULE test\n" +
	"%%%START MODULE test\n" +
	"# Module `test`\n" +
	"\n" +
	"* [`f()`](#testf): Do it.\n" +
	"%%%END MODULE test\n" +
	"\n" +
	"%%%START FUNCTIONDEF test.f\n" +
	"### `test.f`\n" +
	"\n" +
	"```python\n" +
	"f(a: int = 0):\n" +
	"```\n" +
	"\n" +
	"Do it.\n" +
	"\n" +
	"%%%SOURCE test.py:1:2\n" +
	"%%%END FUNCTIONDEF test.f"

func TestLint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"trailing whitespace", "# Title  \n\ntext\t", "# Title\n\ntext\n"},
		{"blank runs", "a\n\n\n\nb", "a\n\nb\n"},
		{"final newline", "a\n\n\n", "a\n"},
		{"fence kept", "```python\nx = 1   \n```", "```python\nx = 1   \n```\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Lint(tt.in))
		})
	}
}

func TestLint_Idempotent(t *testing.T) {
	t.Parallel()
	once := Lint(rendered)
	assert.Equal(t, once, Lint(once))
}

func TestStripMarkers(t *testing.T) {
	t.Parallel()

	got := StripMarkers(rendered)
	assert.NotContains(t, got, "%%%")
	assert.True(t, strings.HasPrefix(got, "# Module `test`"))
	assert.Contains(t, got, "### `test.f`")

	fenced := "```\n%%%SOURCE kept\n```"
	assert.Equal(t, fenced, StripMarkers(fenced))
}

func TestHTML(t *testing.T) {
	t.Parallel()

	got := HTML(rendered)

	assert.True(t, strings.HasPrefix(got, "<!DOCTYPE html>"))
	assert.True(t, strings.HasSuffix(got, "</html>\n"))
	assert.NotContains(t, got, "%%%")
	assert.Contains(t, got, `id="testf"`)
	assert.Contains(t, got, `href="#testf"`)
	assert.Contains(t, got, `<div class="astdocs-object" data-kind="functiondef" data-path="test.f">`)
	assert.Equal(t, 2, strings.Count(got, "</div>"))
	assert.Contains(t, got, `<p class="astdocs-source"><code>test.py:1:2</code></p>`)
	assert.Contains(t, got, "<code class=\"language-python\">")
}

package docstring

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat_Simple(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"one_line", "Test simple docstring.", "Test simple docstring."},
		{"trailing_spaces", "Line one.   \nLine two.\t", "Line one.\nLine two."},
		{"heading", "Summary.\n\n## Cleaned up title", "Summary.\n\n**Cleaned up title**"},
		{"bare_hashes", "Summary.\n\n###", "Summary."},
		{"prose_outside_section", "Summary.\nname\n    indented text", "Summary.\nname\n    indented text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Format(tt.in))
		})
	}
}

func TestFormat_Sections(t *testing.T) {
	t.Parallel()

	in := strings.Join([]string{
		"Do it.",
		"",
		"Parameters",
		"----------",
		"a",
		"    First.",
		"b : int",
		"    Second.",
		"*args : str",
		"    Extra values,",
		"    spread over   two lines.",
		"",
		"Returns",
		"-------",
		": str",
		"    Result.",
	}, "\n")

	want := strings.Join([]string{
		"Do it.",
		"",
		"**Parameters**",
		"",
		"* `a`: First.",
		"* `b` [`int`]: Second.",
		"* `*args` [`str`]: Extra values, spread over two lines.",
		"",
		"**Returns**",
		"",
		"* [`str`]: Result.",
	}, "\n")

	assert.Equal(t, want, Format(in))
}

func TestFormat_CarriageReturns(t *testing.T) {
	t.Parallel()

	in := "Do it.\r\n\r\nParameters\r\n----------\r\na : int\r\n    First.  \r\n"
	want := "Do it.\n\n**Parameters**\n\n* `a` [`int`]: First."

	assert.Equal(t, want, Format(in))
	assert.Equal(t, want, Format(strings.ReplaceAll(in, "\r\n", "\r")))
}

func TestFormat_Complex(t *testing.T) {
	t.Parallel()

	in := strings.Join([]string{
		"Empty module.",
		"",
		"## Cleaned up title",
		"",
		"```python",
		"import astdocs",
		"```",
		"",
		"````text",
		"Let's test this too:",
		"```markdown",
		"# Title",
		"```",
		"````",
		"",
		"Attributes",
		"----------",
		"n : ast.ClassDef | ast.FunctionDef | ast.Module",
		"    An `ast` node.",
		"m : int",
		"    Number of things.",
		"self",
		"    This module.",
		"",
		"Raises",
		"------",
		": Exception",
		"    All kinds of exceptions.",
	}, "\n")

	want := strings.Join([]string{
		"Empty module.",
		"",
		"**Cleaned up title**",
		"",
		"```python",
		"import astdocs",
		"```",
		"",
		"````text",
		"Let's test this too:",
		"```markdown",
		"# Title",
		"```",
		"````",
		"",
		"**Attributes**",
		"",
		"* `n` [`ast.ClassDef | ast.FunctionDef | ast.Module`]: An `ast` node.",
		"* `m` [`int`]: Number of things.",
		"* `self`: This module.",
		"",
		"**Raises**",
		"",
		"* [`Exception`]: All kinds of exceptions.",
	}, "\n")

	assert.Equal(t, want, Format(in))
}

func TestFormat_FenceInteriorVerbatim(t *testing.T) {
	t.Parallel()

	interior := "Parameters  \n----------\nx : int\n    ```\n# not a heading\n"
	in := "Summary.\n\n`````\n" + interior + "`````\n\nNotes\n-----\nDone."
	got := Format(in)

	assert.Contains(t, got, "`````\n"+interior+"`````")
	assert.Contains(t, got, "**Notes**")
}

func TestFormat_UnterminatedFence(t *testing.T) {
	t.Parallel()

	in := "Summary.  \n\n```python\nParameters\n----------\nx : int\n    Value.\n"
	want := "Summary.\n\n```python\nParameters\n----------\nx : int\n    Value."
	assert.Equal(t, want, Format(in))
}

func TestFormat_Idempotent(t *testing.T) {
	t.Parallel()

	in := "Summary.\n\nParameters\n----------\nx : int\n    Value.\n"
	assert.Equal(t, Format(in), Format(in))
}

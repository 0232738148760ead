// Package postrender holds the transforms that can be chained after
// rendering: linting, marker stripping and HTML conversion.
package postrender

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	gm "github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/ast"
	gmhtml "github.com/gomarkdown/markdown/html"
	gmparser "github.com/gomarkdown/markdown/parser"
	"github.com/jcdickinson/astdocs/internal/registry"
)

const markerPrefix = "%%%"

var (
	blankRunRe = regexp.MustCompile(`\n{3,}`)
	markerRe   = regexp.MustCompile(`^%%%(BEGIN|START|END|SOURCE)\s+(.*)$`)
)

// lines calls fn for each line with whether it sits inside a fenced code
// block. Fence lines themselves count as inside.
func lines(md string, fn func(line string, fenced bool) []string) []string {
	var (
		out   []string
		fence string
	)
	for _, line := range strings.Split(md, "\n") {
		trimmed := strings.TrimLeft(line, " ")
		switch {
		case fence == "" && strings.HasPrefix(trimmed, "```"):
			fence = trimmed[:len(trimmed)-len(strings.TrimLeft(trimmed, "`"))]
			out = append(out, fn(line, true)...)
		case fence != "":
			if strings.HasPrefix(trimmed, fence) && strings.Trim(strings.TrimSpace(trimmed), "`") == "" {
				fence = ""
			}
			out = append(out, fn(line, true)...)
		default:
			out = append(out, fn(line, false)...)
		}
	}
	return out
}

// Lint tidies rendered Markdown: no trailing whitespace outside code
// fences, no runs of blank lines and exactly one final newline.
func Lint(md string) string {
	out := lines(md, func(line string, fenced bool) []string {
		if fenced {
			return []string{line}
		}
		return []string{strings.TrimRight(line, " \t")}
	})
	s := blankRunRe.ReplaceAllString(strings.Join(out, "\n"), "\n\n")
	return strings.TrimSpace(s) + "\n"
}

// StripMarkers removes every %%% marker line.
func StripMarkers(md string) string {
	out := lines(md, func(line string, fenced bool) []string {
		if !fenced && strings.HasPrefix(line, markerPrefix) {
			return nil
		}
		return []string{line}
	})
	return strings.Join(out, "\n")
}

const (
	pageHeader = "<!DOCTYPE html>\n<html>\n<head>\n  <meta charset=\"utf-8\">\n  <link rel=\"stylesheet\" href=\"style.css\">\n</head>\n<body>\n"
	pageFooter = "</body>\n</html>\n"
)

// HTML converts rendered Markdown into a standalone page. Headings made of
// a single code span get the same anchors the Markdown index links use.
// Bound-object markers become <div> wrappers, source markers a small
// paragraph; split markers are dropped.
func HTML(md string) string {
	md, fragments := markerTokens(md)

	doc := gm.Parse([]byte(md), gmparser.NewWithExtensions(
		gmparser.CommonExtensions|gmparser.Autolink,
	))

	ast.WalkFunc(doc, func(node ast.Node, entering bool) ast.WalkStatus {
		if !entering {
			return ast.GoToNext
		}
		h, ok := node.(*ast.Heading)
		if !ok {
			return ast.GoToNext
		}
		for _, c := range h.GetChildren() {
			if code, ok := c.(*ast.Code); ok {
				h.HeadingID = registry.Anchor(string(code.Literal))
				break
			}
		}
		return ast.SkipChildren
	})

	renderer := gmhtml.NewRenderer(gmhtml.RendererOptions{Flags: gmhtml.CommonFlags})
	body := string(gm.Render(doc, renderer))
	for i, fragment := range fragments {
		body = strings.Replace(body, "<p>"+markerToken(i)+"</p>", fragment, 1)
	}
	return pageHeader + body + pageFooter
}

func markerToken(i int) string {
	return fmt.Sprintf("astdocsmarker%d", i)
}

// markerTokens swaps marker lines for standalone placeholder paragraphs
// and returns the HTML each placeholder stands for. Raw HTML cannot be
// used directly since an open <div> would swallow the Markdown after it.
func markerTokens(md string) (string, []string) {
	var fragments []string
	out := lines(md, func(line string, fenced bool) []string {
		if fenced {
			return []string{line}
		}
		m := markerRe.FindStringSubmatch(line)
		if m == nil {
			return []string{line}
		}

		var fragment string
		switch m[1] {
		case "START":
			kind, path, _ := strings.Cut(m[2], " ")
			fragment = fmt.Sprintf(`<div class="astdocs-object" data-kind="%s" data-path="%s">`,
				strings.ToLower(kind), html.EscapeString(path))
		case "END":
			fragment = "</div>"
		case "SOURCE":
			fragment = fmt.Sprintf(`<p class="astdocs-source"><code>%s</code></p>`, html.EscapeString(m[2]))
		default:
			return nil
		}
		fragments = append(fragments, fragment)
		return []string{"", markerToken(len(fragments) - 1), ""}
	})
	return strings.Join(out, "\n"), fragments
}

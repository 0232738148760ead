// Package markdown holds the small Markdown rewrites applied to rendered
// pages once they are split into files.
package markdown

import (
	"fmt"
	"strings"

	gm "github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/ast"
	gmparser "github.com/gomarkdown/markdown/parser"
	"gopkg.in/yaml.v3"
)

func parse(src string) ast.Node {
	return gm.Parse([]byte(src), gmparser.NewWithExtensions(
		gmparser.CommonExtensions|gmparser.Autolink,
	))
}

// RewriteLinks rewrites link destinations for which resolve returns a
// replacement. It parses the markdown to AST to find all link
// destinations, then performs targeted string replacements to preserve
// original formatting.
func RewriteLinks(src string, resolve func(dest string) (string, bool)) string {
	if resolve == nil {
		return src
	}

	seen := make(map[string]bool)
	type replacement struct {
		oldDest string
		newDest string
	}
	var replacements []replacement

	ast.WalkFunc(parse(src), func(node ast.Node, entering bool) ast.WalkStatus {
		if !entering {
			return ast.GoToNext
		}
		if link, ok := node.(*ast.Link); ok {
			dest := string(link.Destination)
			if seen[dest] {
				return ast.GoToNext
			}
			seen[dest] = true
			if newDest, ok := resolve(dest); ok && newDest != dest {
				replacements = append(replacements, replacement{dest, newDest})
			}
		}
		return ast.GoToNext
	})

	if len(replacements) == 0 {
		return src
	}

	result := src

	// Inline links: [text](destination), one pass per replacement
	for _, r := range replacements {
		result = strings.ReplaceAll(result, "]("+r.oldDest+")", "]("+r.newDest+")")
	}

	// Reference-style definitions: [ref]: destination
	refMap := make(map[string]string, len(replacements))
	for _, r := range replacements {
		refMap["]: "+r.oldDest] = "]: " + r.newDest
	}
	lines := strings.Split(result, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		for oldSuffix, newSuffix := range refMap {
			if strings.HasSuffix(trimmed, oldSuffix) {
				lines[i] = strings.Replace(line, oldSuffix, newSuffix, 1)
				break
			}
		}
	}
	return strings.Join(lines, "\n")
}

// RewriteMap is RewriteLinks over a fixed destination map.
func RewriteMap(src string, linkMap map[string]string) string {
	if len(linkMap) == 0 {
		return src
	}
	return RewriteLinks(src, func(dest string) (string, bool) {
		newDest, ok := linkMap[dest]
		return newDest, ok
	})
}

// CodeHeadings returns the literal of every heading made of a single code
// span, such as "### `pkg.mod.func`", in document order. Fenced code is
// never mistaken for a heading.
func CodeHeadings(src string) []string {
	var out []string
	ast.WalkFunc(parse(src), func(node ast.Node, entering bool) ast.WalkStatus {
		if !entering {
			return ast.GoToNext
		}
		h, ok := node.(*ast.Heading)
		if !ok {
			return ast.GoToNext
		}
		children := h.GetChildren()
		var code *ast.Code
		for _, c := range children {
			switch n := c.(type) {
			case *ast.Code:
				code = n
			case *ast.Text:
				if strings.TrimSpace(string(n.Literal)) != "" {
					return ast.SkipChildren
				}
			default:
				return ast.SkipChildren
			}
		}
		if code != nil {
			out = append(out, string(code.Literal))
		}
		return ast.SkipChildren
	})
	return out
}

// AddFrontMatter prepends a YAML front-matter block built from meta.
func AddFrontMatter(src string, meta any) (string, error) {
	if meta == nil {
		return src, nil
	}

	data, err := yaml.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("encoding front matter: %w", err)
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.Write(data)
	b.WriteString("---\n\n")
	b.WriteString(src)
	return b.String(), nil
}

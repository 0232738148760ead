// Package toc builds a Markdown table of contents from the objects
// accumulated over a run.
package toc

import (
	"fmt"
	"strings"

	"github.com/jcdickinson/astdocs/internal/registry"
)

var labels = map[registry.Kind]string{
	registry.KindFunction: "Function",
	registry.KindClass:    "Class",
}

// Generate lists every module with its functions and classes, linking to
// <prefix>/<module path>.md as written when splitting by module. An empty
// prefix means ".".
func Generate(objs *registry.Objects, prefix string) string {
	if prefix == "" {
		prefix = "."
	}
	prefix = strings.TrimSuffix(prefix, "/")

	var b strings.Builder
	for _, module := range objs.Modules() {
		m, _ := objs.Module(module)
		file := fmt.Sprintf("%s/%s.md", prefix, strings.ReplaceAll(module, ".", "/"))

		fmt.Fprintf(&b, "- Module [`%s`](%s)\n", module, file)
		for _, kind := range []registry.Kind{registry.KindFunction, registry.KindClass} {
			for pair := m.Table(kind).Oldest(); pair != nil; pair = pair.Next() {
				path := registry.Join(module, pair.Key)
				fmt.Fprintf(&b, "    - %s [`%s`](%s#%s)\n", labels[kind], path, file, registry.Anchor(path))
			}
		}
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Page wraps Generate under a heading, ready to be prepended to a split
// stream as its index.
func Page(objs *registry.Objects, prefix string) string {
	return "# Table of Contents\n\n" + Generate(objs, prefix)
}

package render

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/jcdickinson/astdocs/internal/registry"
)

// params renders the parameter list of fn, folded one per line when the
// whole signature (label holds everything outside the parentheses) is
// longer than FoldArgsAfter. Methods lose a leading self or cls.
func (r *Renderer) params(label string, fn *registry.FunctionRecord, method bool) string {
	ps := orderedParams(fn.Params)
	if method && len(ps) > 0 && ps[0].Kind == registry.Positional && (ps[0].Name == "self" || ps[0].Name == "cls") {
		ps = ps[1:]
	}

	var parts []string
	marker := fn.KeywordMarker
	for _, p := range ps {
		if marker && p.Kind == registry.KeywordOnly {
			parts = append(parts, "*")
			marker = false
		}
		parts = append(parts, formatParam(p))
	}

	joined := strings.Join(parts, ", ")
	if len(parts) == 0 || utf8.RuneCountInString(label)+utf8.RuneCountInString(joined)+2 <= r.opts.FoldArgsAfter {
		return joined
	}

	var b strings.Builder
	for i, p := range parts {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("\n    ")
		b.WriteString(p)
	}
	b.WriteString(",\n")
	return b.String()
}

// orderedParams sorts by kind (positional, *args, keyword-only, **kwargs)
// keeping declaration order within a kind.
func orderedParams(params []registry.Param) []registry.Param {
	out := make([]registry.Param, len(params))
	copy(out, params)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out
}

func formatParam(p registry.Param) string {
	var b strings.Builder
	switch p.Kind {
	case registry.VarPositional:
		b.WriteString("*")
	case registry.VarKeyword:
		b.WriteString("**")
	}
	b.WriteString(p.Name)
	if p.Annotation != "" {
		b.WriteString(": ")
		b.WriteString(p.Annotation)
	}
	if p.HasDefault {
		b.WriteString(" = ")
		b.WriteString(p.Default)
	}
	return b.String()
}

// Package walker populates the registries of a module from its syntax
// tree in a single forward pass.
package walker

import (
	"strings"

	"github.com/jcdickinson/astdocs/internal/pyast"
	"github.com/jcdickinson/astdocs/internal/registry"
)

// Walk records the classes, functions and imports of mod under the module
// name. Classes are descended into; function bodies are not.
func Walk(mod *pyast.Module, name string) *registry.ModuleRecord {
	rec := registry.NewModuleRecord(name, "")
	rec.Docstring = mod.Docstring()

	w := &walker{rec: rec}
	w.body(mod.Body, name)
	return rec
}

type walker struct {
	rec *registry.ModuleRecord
}

func (w *walker) body(stmts []pyast.Stmt, ancestry string) {
	for _, stmt := range stmts {
		switch s := stmt.(type) {
		case *pyast.ClassDef:
			w.class(s, ancestry)
			w.body(s.Body, registry.Join(ancestry, s.Name))
		case *pyast.FunctionDef:
			w.function(s, ancestry)
		case *pyast.Import:
			for _, alias := range s.Names {
				w.rec.AddImport(&registry.ImportInfo{
					Ancestry: ancestry,
					Path:     alias.Name,
					Alias:    alias.AsName,
				})
			}
		case *pyast.ImportFrom:
			w.importFrom(s, ancestry)
		case *pyast.Other:
		}
	}
}

func (w *walker) class(s *pyast.ClassDef, ancestry string) {
	rec := &registry.ClassRecord{
		Name:       s.Name,
		Ancestry:   ancestry,
		Decorators: decorators(s.Decorators),
		Docstring:  s.Docstring,
		Lines:      registry.Lines(s.Lines),
	}
	for _, base := range s.Bases {
		rec.Bases = append(rec.Bases, pyast.FormatAnnotation(base, ""))
	}
	w.rec.AddClass(rec)
}

func (w *walker) function(s *pyast.FunctionDef, ancestry string) {
	rec := &registry.FunctionRecord{
		Name:          s.Name,
		Ancestry:      ancestry,
		Decorators:    decorators(s.Decorators),
		KeywordMarker: s.KeywordMarker,
		Returns:       pyast.FormatAnnotation(s.Returns, ""),
		IsAsync:       s.Async,
		Docstring:     s.Docstring,
		Lines:         registry.Lines(s.Lines),
	}
	for _, p := range s.Params {
		rec.Params = append(rec.Params, registry.Param{
			Name:       p.Name,
			Annotation: pyast.FormatAnnotation(p.Annotation, ""),
			Default:    pyast.FormatAnnotation(p.Default, ""),
			HasDefault: p.Default != nil,
			Kind:       paramKind(p.Kind),
		})
	}
	w.rec.AddFunction(rec)
}

func (w *walker) importFrom(s *pyast.ImportFrom, ancestry string) {
	source := strings.Repeat(".", s.Level)
	if s.Module != "" {
		source += s.Module + "."
	}

	if s.Wildcard {
		w.rec.AddImport(&registry.ImportInfo{
			Ancestry: ancestry,
			Path:     source + "*",
			Name:     strings.TrimLeft(source, ".") + "*",
			Level:    s.Level,
		})
		return
	}

	for _, alias := range s.Names {
		w.rec.AddImport(&registry.ImportInfo{
			Ancestry: ancestry,
			Path:     source + alias.Name,
			Alias:    alias.AsName,
			Name:     alias.Name,
			Level:    s.Level,
		})
	}
}

func decorators(exprs []*pyast.Expr) []string {
	var out []string
	for _, d := range exprs {
		out = append(out, pyast.FormatAnnotation(d, "@"))
	}
	return out
}

func paramKind(k pyast.ParamKind) registry.ParamKind {
	switch k {
	case pyast.ParamVarPositional:
		return registry.VarPositional
	case pyast.ParamKeywordOnly:
		return registry.KeywordOnly
	case pyast.ParamVarKeyword:
		return registry.VarKeyword
	default:
		return registry.Positional
	}
}

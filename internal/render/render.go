// Package render turns module registries into Markdown using fixed
// templates.
package render

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jcdickinson/astdocs/internal/docstring"
	"github.com/jcdickinson/astdocs/internal/registry"
)

const maxHeading = 6

var blankRunRe = regexp.MustCompile(`\n{3,}`)

// Renderer renders registries. It is safe to share between goroutines
// since it holds no mutable state.
type Renderer struct {
	opts   Options
	format docstring.FormatFunc
	tpl    templates
}

// New builds a renderer. A nil format falls back to docstring.Format.
func New(opts Options, format docstring.FormatFunc) *Renderer {
	if format == nil {
		format = docstring.Format
	}
	if opts.FoldArgsAfter <= 0 {
		opts.FoldArgsAfter = DefaultFoldArgsAfter
	}
	return &Renderer{opts: opts, format: format, tpl: newTemplates(opts)}
}

func (r *Renderer) Options() Options { return r.opts }

// Module renders the whole page for rec: the module summary, then the
// top-level functions, then the top-level classes.
func (r *Renderer) Module(rec *registry.ModuleRecord) string {
	var fs, cs []string
	for _, fn := range rec.FunctionsIn(rec.Name) {
		if r.visible(fn.Name) {
			fs = append(fs, r.function(rec, fn, r.topHashtags(SplitFunctions)))
		}
	}
	for _, c := range rec.ClassesIn(rec.Name) {
		if r.visible(c.Name) {
			cs = append(cs, r.class(rec, c, r.topHashtags(SplitClasses)))
		}
	}

	page := substitute(r.tpl.page, map[string]string{
		"module":    r.Summary(rec),
		"functions": r.section("## Functions", SplitFunctions, fs),
		"classes":   r.section("## Classes", SplitClasses, cs),
	})
	return finish(page)
}

func (r *Renderer) section(heading string, kind rune, blocks []string) string {
	if len(blocks) == 0 {
		return ""
	}
	if r.opts.Splits(kind) {
		heading = ""
	}
	return heading + "\n\n" + strings.Join(blocks, "\n\n")
}

// Summary renders the module heading, its docstring and the index of its
// top-level functions and classes. An index is left out when its kind is
// split into separate files.
func (r *Renderer) Summary(rec *registry.ModuleRecord) string {
	var fs, cs []string
	for _, fn := range rec.FunctionsIn(rec.Name) {
		if r.visible(fn.Name) {
			fs = append(fs, r.indexEntry(fn.Name+"()", fn.Path(), fn.Docstring))
		}
	}
	for _, c := range rec.ClassesIn(rec.Name) {
		if r.visible(c.Name) {
			cs = append(cs, r.indexEntry(c.Name, c.Path(), c.Docstring))
		}
	}

	vars := map[string]string{
		"module":    rec.Name,
		"docstring": r.format(rec.Docstring),
	}
	if len(fs) > 0 && !r.opts.Splits(SplitFunctions) {
		vars["funcnames"] = "**Functions**\n\n" + strings.Join(fs, "\n")
	}
	if len(cs) > 0 && !r.opts.Splits(SplitClasses) {
		vars["classnames"] = "**Classes**\n\n" + strings.Join(cs, "\n")
	}
	return finish(substitute(r.tpl.module, vars))
}

// Class renders the class at path with its constructor, methods and
// nested classes.
func (r *Renderer) Class(rec *registry.ModuleRecord, path string) (string, error) {
	c, ok := rec.Classes.Get(path)
	if !ok {
		return "", fmt.Errorf("class %s not found in module %s", path, rec.Name)
	}
	return r.class(rec, c, r.classHashtags(rec, c)), nil
}

// Function renders the function or method at path.
func (r *Renderer) Function(rec *registry.ModuleRecord, path string) (string, error) {
	fn, ok := rec.Functions.Get(path)
	if !ok {
		return "", fmt.Errorf("function %s not found in module %s", path, rec.Name)
	}
	hashtags := r.topHashtags(SplitFunctions)
	if owner, ok := rec.Classes.Get(fn.Ancestry); ok {
		hashtags = deeper(r.classHashtags(rec, owner))
	}
	return r.function(rec, fn, hashtags), nil
}

func (r *Renderer) class(rec *registry.ModuleRecord, c *registry.ClassRecord, hashtags string) string {
	path := c.Path()

	var (
		params    string
		constdocs string
		methods   []*registry.FunctionRecord
	)
	for _, fn := range rec.FunctionsIn(path) {
		if fn.Name != "__init__" {
			methods = append(methods, fn)
			continue
		}
		params = r.params(c.Name, fn, true)
		constdocs = r.format(fn.Docstring)
		if r.opts.WithLinenos {
			constdocs += fmt.Sprintf("\n\n%%%%%%SOURCE %s:%d:%d", rec.Path, fn.Lines.Start, fn.Lines.End)
		}
	}

	var index, blocks []string
	for _, fn := range methods {
		if !r.visible(fn.Name) {
			continue
		}
		index = append(index, r.indexEntry(fn.Name+"()", fn.Path(), fn.Docstring))
		blocks = append(blocks, r.function(rec, fn, deeper(hashtags)))
	}

	var nested []string
	for _, inner := range rec.ClassesIn(path) {
		if r.visible(inner.Name) {
			nested = append(nested, r.class(rec, inner, deeper(hashtags)))
		}
	}

	var sections []string
	if len(blocks) > 0 {
		sections = append(sections, heading(hashtags+"#")+" Methods\n\n"+strings.Join(blocks, "\n\n"))
	}
	if len(nested) > 0 {
		// Under class splitting the heading would trail the last method part.
		sections = append(sections, r.section(heading(hashtags+"#")+" Classes", SplitClasses, nested))
	}

	vars := map[string]string{
		"ancestry":   c.Ancestry,
		"classname":  c.Name,
		"hashtags":   hashtags,
		"classdocs":  r.format(c.Docstring),
		"bases":      listLine("**Bases**:", c.Bases),
		"decoration": listLine("**Decoration** via", c.Decorators),
		"path":       rec.Path,
		"lineno":     fmt.Sprint(c.Lines.Start),
		"endlineno":  fmt.Sprint(c.Lines.End),
		"params":     params,
		"constdocs":  constdocs,
		"functions":  strings.Join(sections, "\n\n"),
	}
	if len(index) > 0 {
		vars["funcnames"] = "**Methods**\n\n" + strings.Join(index, "\n")
	}
	return finish(substitute(r.tpl.class, vars))
}

func (r *Renderer) function(rec *registry.ModuleRecord, fn *registry.FunctionRecord, hashtags string) string {
	_, isMethod := rec.Classes.Get(fn.Ancestry)

	vars := map[string]string{
		"ancestry":   fn.Ancestry,
		"funcname":   fn.Name,
		"hashtags":   hashtags,
		"params":     r.params(fn.Name+output(fn), fn, isMethod),
		"output":     output(fn),
		"funcdocs":   r.format(fn.Docstring),
		"decoration": listLine("**Decoration** via", fn.Decorators),
		"path":       rec.Path,
		"lineno":     fmt.Sprint(fn.Lines.Start),
		"endlineno":  fmt.Sprint(fn.Lines.End),
	}
	return finish(substitute(r.tpl.function, vars))
}

func (r *Renderer) indexEntry(label, path, raw string) string {
	entry := fmt.Sprintf("* [`%s`](#%s)", label, registry.Anchor(path))
	if desc, _, _ := strings.Cut(r.format(raw), "\n"); desc != "" {
		entry += ": " + desc
	}
	return entry
}

func (r *Renderer) visible(name string) bool {
	return r.opts.ShowPrivate || !registry.IsPrivate(name)
}

func (r *Renderer) topHashtags(kind rune) string {
	if r.opts.Splits(kind) {
		return "#"
	}
	return "###"
}

func (r *Renderer) classHashtags(rec *registry.ModuleRecord, c *registry.ClassRecord) string {
	owner, ok := rec.Classes.Get(c.Ancestry)
	if !ok {
		return r.topHashtags(SplitClasses)
	}
	return deeper(r.classHashtags(rec, owner))
}

func deeper(hashtags string) string {
	return heading(hashtags + "##")
}

func heading(hashtags string) string {
	if len(hashtags) > maxHeading {
		return hashtags[:maxHeading]
	}
	return hashtags
}

func output(fn *registry.FunctionRecord) string {
	if fn.Returns == "" {
		return ""
	}
	return " -> " + fn.Returns
}

func listLine(label string, items []string) string {
	if len(items) == 0 {
		return ""
	}
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = "`" + item + "`"
	}
	return label + " " + strings.Join(quoted, ", ") + "."
}

func finish(s string) string {
	return blankRunRe.ReplaceAllString(strings.TrimSpace(s), "\n\n")
}

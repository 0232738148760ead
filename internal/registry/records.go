// Package registry holds the records extracted from a module and the
// process-wide objects accumulator fed to TOC and graph consumers.
package registry

import (
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Lines is a 1-based, inclusive source line range.
type Lines struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

type ClassRecord struct {
	Name       string   `json:"name" yaml:"name"`
	Ancestry   string   `json:"ancestry" yaml:"ancestry"`
	Decorators []string `json:"decorators,omitempty" yaml:"decorators,omitempty"`
	Bases      []string `json:"bases,omitempty" yaml:"bases,omitempty"`
	Docstring  string   `json:"docstring,omitempty" yaml:"docstring,omitempty"`
	Lines      Lines    `json:"lines" yaml:"lines"`
}

// Path is the full ancestry path of the class.
func (c *ClassRecord) Path() string { return Join(c.Ancestry, c.Name) }

type ParamKind int

const (
	Positional ParamKind = iota
	VarPositional
	KeywordOnly
	VarKeyword
)

var paramKindNames = [...]string{"positional", "var-positional", "keyword-only", "var-keyword"}

func (k ParamKind) String() string {
	if int(k) < len(paramKindNames) {
		return paramKindNames[k]
	}
	return "unknown"
}

func (k ParamKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Param is one rendered parameter. HasDefault is explicit so that a
// keyword-only parameter without a default is never confused with one
// whose default renders as an empty string.
type Param struct {
	Name       string    `json:"name" yaml:"name"`
	Annotation string    `json:"annotation,omitempty" yaml:"annotation,omitempty"`
	Default    string    `json:"default,omitempty" yaml:"default,omitempty"`
	HasDefault bool      `json:"has_default" yaml:"has_default"`
	Kind       ParamKind `json:"kind" yaml:"kind"`
}

type FunctionRecord struct {
	Name       string   `json:"name" yaml:"name"`
	Ancestry   string   `json:"ancestry" yaml:"ancestry"`
	Decorators []string `json:"decorators,omitempty" yaml:"decorators,omitempty"`
	Params     []Param  `json:"params,omitempty" yaml:"params,omitempty"`
	// KeywordMarker is set for a bare "*" ahead of keyword-only params.
	KeywordMarker bool   `json:"keyword_marker,omitempty" yaml:"keyword_marker,omitempty"`
	Returns       string `json:"returns,omitempty" yaml:"returns,omitempty"`
	IsAsync       bool   `json:"is_async,omitempty" yaml:"is_async,omitempty"`
	Docstring     string `json:"docstring,omitempty" yaml:"docstring,omitempty"`
	Lines         Lines  `json:"lines" yaml:"lines"`
}

// Path is the full ancestry path of the function.
func (f *FunctionRecord) Path() string { return Join(f.Ancestry, f.Name) }

// ImportInfo records one imported name. Path is the imported path as
// written (leading dots kept for relative imports, "<module>.*" for a
// wildcard); Alias is empty unless "as" was used. Name, when set, is the
// name bound in the importing scope.
type ImportInfo struct {
	Ancestry string `json:"ancestry" yaml:"ancestry"`
	Path     string `json:"path" yaml:"path"`
	Alias    string `json:"alias,omitempty" yaml:"alias,omitempty"`
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`
	Level    int    `json:"level,omitempty" yaml:"level,omitempty"`
}

// LocalName is the name the import binds in its scope.
func (i *ImportInfo) LocalName() string {
	switch {
	case i.Alias != "":
		return i.Alias
	case i.Name != "":
		return i.Name
	}
	return strings.TrimLeft(i.Path, ".")
}

// Resolve returns the absolute imported path. Relative imports are
// anchored on the package containing module (or module itself when it is
// a package).
func (i *ImportInfo) Resolve(module string, pkg bool) string {
	if i.Level == 0 {
		return i.Path
	}
	parts := strings.Split(module, ".")
	keep := len(parts) - i.Level
	if pkg {
		keep++
	}
	keep = max(0, min(keep, len(parts)))
	return Join(strings.Join(parts[:keep], "."), strings.TrimLeft(i.Path, "."))
}

// ModuleRecord is everything extracted from one source file. Keys of the
// ordered maps are ancestry paths; iteration follows source order.
// Package is set for __init__ modules.
type ModuleRecord struct {
	Name      string                                          `json:"name" yaml:"name"`
	Path      string                                          `json:"path" yaml:"path"`
	Docstring string                                          `json:"docstring,omitempty" yaml:"docstring,omitempty"`
	Package   bool                                            `json:"package,omitempty" yaml:"package,omitempty"`
	Classes   *orderedmap.OrderedMap[string, *ClassRecord]    `json:"classes" yaml:"classes"`
	Functions *orderedmap.OrderedMap[string, *FunctionRecord] `json:"functions" yaml:"functions"`
	Imports   *orderedmap.OrderedMap[string, *ImportInfo]     `json:"imports" yaml:"imports"`
}

func NewModuleRecord(name, path string) *ModuleRecord {
	return &ModuleRecord{
		Name:      name,
		Path:      path,
		Classes:   orderedmap.New[string, *ClassRecord](),
		Functions: orderedmap.New[string, *FunctionRecord](),
		Imports:   orderedmap.New[string, *ImportInfo](),
	}
}

// AddClass stores c under its path. A duplicate path overwrites the
// earlier record and keeps its original position.
func (m *ModuleRecord) AddClass(c *ClassRecord) {
	m.Classes.Set(c.Path(), c)
}

func (m *ModuleRecord) AddFunction(f *FunctionRecord) {
	m.Functions.Set(f.Path(), f)
}

func (m *ModuleRecord) AddImport(i *ImportInfo) {
	m.Imports.Set(Join(i.Ancestry, i.LocalName()), i)
}

// ClassesIn returns the classes whose owner is exactly path, in source
// order.
func (m *ModuleRecord) ClassesIn(path string) []*ClassRecord {
	var out []*ClassRecord
	for pair := m.Classes.Oldest(); pair != nil; pair = pair.Next() {
		if IsDirectChild(pair.Key, path) {
			out = append(out, pair.Value)
		}
	}
	return out
}

// FunctionsIn returns the functions (or methods) whose owner is exactly
// path, in source order.
func (m *ModuleRecord) FunctionsIn(path string) []*FunctionRecord {
	var out []*FunctionRecord
	for pair := m.Functions.Oldest(); pair != nil; pair = pair.Next() {
		if IsDirectChild(pair.Key, path) {
			out = append(out, pair.Value)
		}
	}
	return out
}

// Join builds an ancestry path.
func Join(parts ...string) string {
	var nonEmpty []string
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, ".")
}

// Leaf returns the last segment of path.
func Leaf(path string) string {
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		return path[i+1:]
	}
	return path
}

// Parent returns path without its last segment.
func Parent(path string) string {
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		return path[:i]
	}
	return ""
}

// IsDirectChild reports whether child sits exactly one level below owner.
func IsDirectChild(child, owner string) bool {
	rest, ok := strings.CutPrefix(child, owner+".")
	return ok && rest != "" && !strings.Contains(rest, ".")
}

// IsPrivate reports whether name is underscore-prefixed.
func IsPrivate(name string) bool {
	return strings.HasPrefix(name, "_")
}

// Anchor is the GitHub-style heading anchor for an object path.
func Anchor(path string) string {
	return strings.ToLower(strings.ReplaceAll(path, ".", ""))
}

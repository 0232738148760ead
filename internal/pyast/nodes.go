package pyast

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// Kind tags the statement variants the walker understands.
type Kind int

const (
	KindOther Kind = iota
	KindClassDef
	KindFunctionDef
	KindAsyncFunctionDef
	KindImport
	KindImportFrom
)

func (k Kind) String() string {
	switch k {
	case KindClassDef:
		return "ClassDef"
	case KindFunctionDef:
		return "FunctionDef"
	case KindAsyncFunctionDef:
		return "AsyncFunctionDef"
	case KindImport:
		return "Import"
	case KindImportFrom:
		return "ImportFrom"
	default:
		return "Other"
	}
}

// Stmt is one statement of a module or class body. The concrete type is
// one of *ClassDef, *FunctionDef, *Import, *ImportFrom or *Other.
type Stmt interface {
	Kind() Kind
}

// Lines is a 1-based, inclusive source line range.
type Lines struct {
	Start int
	End   int
}

// Expr is an opaque expression node: an annotation, a default value, a
// decorator or a base class. Format it with FormatAnnotation.
type Expr struct {
	node *sitter.Node
	src  []byte
}

// Text returns the expression source with whitespace collapsed.
func (e *Expr) Text() string {
	if e == nil {
		return ""
	}
	return collapse(e.node.Content(e.src))
}

type Module struct {
	Body      []Stmt
	docstring string
}

// Docstring returns the cleaned up leading docstring of the module.
func (m *Module) Docstring() string { return m.docstring }

type ClassDef struct {
	Name       string
	Decorators []*Expr
	Bases      []*Expr
	Body       []Stmt
	Docstring  string
	Lines      Lines
}

func (*ClassDef) Kind() Kind { return KindClassDef }

// ParamKind distinguishes the four ways a parameter can be declared.
type ParamKind int

const (
	ParamPositional ParamKind = iota
	ParamVarPositional
	ParamKeywordOnly
	ParamVarKeyword
)

// Param is a single declared parameter. Default is nil when the parameter
// has none; keyword-only parameters carry their own default.
type Param struct {
	Name       string
	Annotation *Expr
	Default    *Expr
	Kind       ParamKind
}

type FunctionDef struct {
	Name       string
	Async      bool
	Decorators []*Expr
	Params     []Param
	// KeywordMarker is set when a bare "*" separates keyword-only
	// parameters without a variadic one.
	KeywordMarker bool
	Returns       *Expr
	Docstring     string
	Lines         Lines
}

func (f *FunctionDef) Kind() Kind {
	if f.Async {
		return KindAsyncFunctionDef
	}
	return KindFunctionDef
}

// Alias is one imported name, optionally renamed.
type Alias struct {
	Name   string
	AsName string
}

// Import is a plain "import a.b [as c]" statement.
type Import struct {
	Names []Alias
	Lines Lines
}

func (*Import) Kind() Kind { return KindImport }

// ImportFrom is a "from m import x" statement. Level counts the leading
// dots of a relative import; Wildcard is set for "import *".
type ImportFrom struct {
	Module   string
	Level    int
	Names    []Alias
	Wildcard bool
	Lines    Lines
}

func (*ImportFrom) Kind() Kind { return KindImportFrom }

// Other is any statement the walker ignores.
type Other struct {
	Type string
}

func (*Other) Kind() Kind { return KindOther }

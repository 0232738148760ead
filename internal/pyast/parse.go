package pyast

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// ErrSyntax is wrapped by every ParseError.
var ErrSyntax = errors.New("invalid python syntax")

// ParseError reports the first position tree-sitter could not make sense of.
// File is filled in by callers that know where the source came from.
type ParseError struct {
	File   string
	Line   int
	Column int
}

func (e *ParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s:%d:%d: syntax error", e.File, e.Line, e.Column)
	}
	return fmt.Sprintf("syntax error at line %d, column %d", e.Line, e.Column)
}

func (e *ParseError) Unwrap() error { return ErrSyntax }

// NormalizeNewlines turns \r\n and lone \r line endings into \n.
func NormalizeNewlines(src []byte) []byte {
	if !bytes.ContainsRune(src, '\r') {
		return src
	}
	src = bytes.ReplaceAll(src, []byte("\r\n"), []byte("\n"))
	return bytes.ReplaceAll(src, []byte("\r"), []byte("\n"))
}

// Parse parses Python source into the statement variants the walker
// dispatches on. Any error node in the tree fails the whole module.
// Line endings are normalised to \n first, as Python does.
func Parse(ctx context.Context, src []byte) (*Module, error) {
	src = NormalizeNewlines(src)

	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parsing source: %w", err)
	}

	root := tree.RootNode()
	if root.HasError() {
		if perr := firstError(root); perr != nil {
			return nil, perr
		}
		return nil, &ParseError{Line: 1, Column: 1}
	}

	c := &converter{src: src}
	return &Module{
		Body:      c.block(root),
		docstring: c.docstring(root),
	}, nil
}

func firstError(n *sitter.Node) *ParseError {
	if n.Type() == "ERROR" || n.IsMissing() {
		p := n.StartPoint()
		return &ParseError{Line: int(p.Row) + 1, Column: int(p.Column) + 1}
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child == nil || !(child.HasError() || child.IsMissing()) {
			continue
		}
		if perr := firstError(child); perr != nil {
			return perr
		}
	}
	return nil
}

type converter struct {
	src []byte
}

func (c *converter) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(c.src)
}

func (c *converter) expr(n *sitter.Node) *Expr {
	if n == nil {
		return nil
	}
	return &Expr{node: n, src: c.src}
}

// named returns the named children of n, comments excluded.
func named(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	count := int(n.NamedChildCount())
	out := make([]*sitter.Node, 0, count)
	for i := 0; i < count; i++ {
		child := n.NamedChild(i)
		if child == nil || child.Type() == "comment" {
			continue
		}
		out = append(out, child)
	}
	return out
}

func (c *converter) block(n *sitter.Node) []Stmt {
	var out []Stmt
	for _, child := range named(n) {
		out = append(out, c.stmt(child, nil))
	}
	return out
}

func (c *converter) stmt(n *sitter.Node, decorators []*Expr) Stmt {
	switch n.Type() {
	case "class_definition":
		return c.classDef(n, decorators)
	case "function_definition":
		return c.functionDef(n, decorators)
	case "decorated_definition":
		var decs []*Expr
		for _, child := range named(n) {
			if child.Type() != "decorator" {
				continue
			}
			if inner := named(child); len(inner) > 0 {
				decs = append(decs, c.expr(inner[0]))
			}
		}
		if def := n.ChildByFieldName("definition"); def != nil {
			return c.stmt(def, decs)
		}
		return &Other{Type: n.Type()}
	case "import_statement":
		return c.importStmt(n)
	case "import_from_statement", "future_import_statement":
		return c.importFrom(n)
	default:
		return &Other{Type: n.Type()}
	}
}

func (c *converter) classDef(n *sitter.Node, decorators []*Expr) *ClassDef {
	def := &ClassDef{
		Name:       c.text(n.ChildByFieldName("name")),
		Decorators: decorators,
		Lines:      lines(n),
	}
	for _, arg := range named(n.ChildByFieldName("superclasses")) {
		switch arg.Type() {
		case "keyword_argument", "list_splat", "dictionary_splat":
			// metaclass=..., *bases and **kwargs are not bases
		default:
			def.Bases = append(def.Bases, c.expr(arg))
		}
	}
	body := n.ChildByFieldName("body")
	def.Body = c.block(body)
	def.Docstring = c.docstring(body)
	return def
}

func (c *converter) functionDef(n *sitter.Node, decorators []*Expr) *FunctionDef {
	def := &FunctionDef{
		Name:       c.text(n.ChildByFieldName("name")),
		Decorators: decorators,
		Returns:    c.expr(n.ChildByFieldName("return_type")),
		Lines:      lines(n),
	}
	if first := n.Child(0); first != nil && first.Type() == "async" {
		def.Async = true
	}
	def.Params, def.KeywordMarker = c.params(n.ChildByFieldName("parameters"))
	def.Docstring = c.docstring(n.ChildByFieldName("body"))
	return def
}

func (c *converter) params(n *sitter.Node) ([]Param, bool) {
	var (
		params []Param
		kwOnly bool
		marker bool
	)
	plain := func() ParamKind {
		if kwOnly {
			return ParamKeywordOnly
		}
		return ParamPositional
	}

	for _, p := range named(n) {
		switch p.Type() {
		case "identifier":
			params = append(params, Param{Name: c.text(p), Kind: plain()})
		case "typed_parameter":
			inner := named(p)
			if len(inner) == 0 {
				continue
			}
			param := Param{Annotation: c.expr(p.ChildByFieldName("type"))}
			switch inner[0].Type() {
			case "list_splat_pattern":
				param.Name, param.Kind = c.splatName(inner[0]), ParamVarPositional
				kwOnly = true
			case "dictionary_splat_pattern":
				param.Name, param.Kind = c.splatName(inner[0]), ParamVarKeyword
			default:
				param.Name, param.Kind = c.text(inner[0]), plain()
			}
			params = append(params, param)
		case "default_parameter":
			params = append(params, Param{
				Name:    c.text(p.ChildByFieldName("name")),
				Default: c.expr(p.ChildByFieldName("value")),
				Kind:    plain(),
			})
		case "typed_default_parameter":
			params = append(params, Param{
				Name:       c.text(p.ChildByFieldName("name")),
				Annotation: c.expr(p.ChildByFieldName("type")),
				Default:    c.expr(p.ChildByFieldName("value")),
				Kind:       plain(),
			})
		case "list_splat_pattern":
			params = append(params, Param{Name: c.splatName(p), Kind: ParamVarPositional})
			kwOnly = true
		case "dictionary_splat_pattern":
			params = append(params, Param{Name: c.splatName(p), Kind: ParamVarKeyword})
		case "keyword_separator":
			kwOnly = true
			marker = true
		}
	}
	return params, marker
}

func (c *converter) splatName(n *sitter.Node) string {
	if inner := named(n); len(inner) > 0 {
		return c.text(inner[0])
	}
	return strings.TrimLeft(c.text(n), "*")
}

func (c *converter) importStmt(n *sitter.Node) *Import {
	imp := &Import{Lines: lines(n)}
	for _, child := range named(n) {
		if alias, ok := c.alias(child); ok {
			imp.Names = append(imp.Names, alias)
		}
	}
	return imp
}

func (c *converter) importFrom(n *sitter.Node) *ImportFrom {
	imp := &ImportFrom{Lines: lines(n)}

	mod := n.ChildByFieldName("module_name")
	switch {
	case n.Type() == "future_import_statement":
		imp.Module = "__future__"
	case mod != nil && mod.Type() == "relative_import":
		for _, part := range named(mod) {
			switch part.Type() {
			case "import_prefix":
				imp.Level = strings.Count(c.text(part), ".")
			case "dotted_name":
				imp.Module = dotted(c.text(part))
			}
		}
	case mod != nil:
		imp.Module = dotted(c.text(mod))
	}

	for _, child := range named(n) {
		if mod != nil && child.StartByte() == mod.StartByte() {
			continue
		}
		if child.Type() == "wildcard_import" {
			imp.Wildcard = true
			continue
		}
		if alias, ok := c.alias(child); ok {
			imp.Names = append(imp.Names, alias)
		}
	}
	return imp
}

func (c *converter) alias(n *sitter.Node) (Alias, bool) {
	switch n.Type() {
	case "dotted_name":
		return Alias{Name: dotted(c.text(n))}, true
	case "aliased_import":
		return Alias{
			Name:   dotted(c.text(n.ChildByFieldName("name"))),
			AsName: c.text(n.ChildByFieldName("alias")),
		}, true
	}
	return Alias{}, false
}

// docstring mirrors Python's ast.get_docstring: the first statement of
// the body must be a bare string literal.
func (c *converter) docstring(body *sitter.Node) string {
	stmts := named(body)
	if len(stmts) == 0 || stmts[0].Type() != "expression_statement" {
		return ""
	}
	inner := named(stmts[0])
	if len(inner) != 1 {
		return ""
	}
	value, ok := c.stringValue(inner[0])
	if !ok {
		return ""
	}
	return cleandoc(value)
}

func (c *converter) stringValue(n *sitter.Node) (string, bool) {
	switch n.Type() {
	case "string":
		value, prefix := decodeLiteral(c.text(n))
		if strings.ContainsAny(prefix, "bf") {
			return "", false
		}
		return value, true
	case "concatenated_string":
		var b strings.Builder
		for _, part := range named(n) {
			value, ok := c.stringValue(part)
			if !ok {
				return "", false
			}
			b.WriteString(value)
		}
		return b.String(), true
	}
	return "", false
}

func lines(n *sitter.Node) Lines {
	start, end := n.StartPoint(), n.EndPoint()
	endRow := int(end.Row)
	if end.Column == 0 && end.Row > start.Row {
		endRow--
	}
	return Lines{Start: int(start.Row) + 1, End: endRow + 1}
}

func dotted(s string) string {
	return strings.Join(strings.Fields(s), "")
}

package pyast

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// LambdaPlaceholder stands in for inline lambdas, which have no useful
// canonical form.
const LambdaPlaceholder = "<lambda>"

// FormatAnnotation renders a type expression, default value, decorator or
// base class in its canonical dotted and bracketed form, with prefix in
// front (for instance "@" or " -> "). A nil expression renders as "".
func FormatAnnotation(e *Expr, prefix string) string {
	if e == nil {
		return ""
	}
	f := formatter{src: e.src}
	return prefix + f.format(e.node)
}

type formatter struct {
	src []byte
}

func (f formatter) text(n *sitter.Node) string {
	return n.Content(f.src)
}

func (f formatter) join(nodes []*sitter.Node, sep string) string {
	parts := make([]string, 0, len(nodes))
	for _, n := range nodes {
		parts = append(parts, f.format(n))
	}
	return strings.Join(parts, sep)
}

func (f formatter) format(n *sitter.Node) string {
	if n == nil {
		return ""
	}

	switch n.Type() {
	case "identifier", "integer", "float", "true", "false", "none":
		return f.text(n)
	case "ellipsis":
		return "..."
	case "lambda":
		return LambdaPlaceholder

	case "type", "parenthesized_expression", "decorator":
		if inner := named(n); len(inner) > 0 {
			return f.format(inner[0])
		}
		return ""

	case "attribute":
		return f.format(n.ChildByFieldName("object")) + "." + f.text(n.ChildByFieldName("attribute"))
	case "member_type":
		inner := named(n)
		if len(inner) < 2 {
			return collapse(f.text(n))
		}
		return f.format(inner[0]) + "." + f.text(inner[1])

	case "subscript":
		inner := named(n)
		if len(inner) == 0 {
			return collapse(f.text(n))
		}
		args := inner[1:]
		if len(args) == 1 && args[0].Type() == "tuple" {
			args = named(args[0])
		}
		return f.format(inner[0]) + "[" + f.join(args, ", ") + "]"
	case "generic_type":
		inner := named(n)
		if len(inner) < 2 {
			return collapse(f.text(n))
		}
		return f.format(inner[0]) + "[" + f.join(named(inner[1]), ", ") + "]"
	case "type_parameter":
		return "[" + f.join(named(n), ", ") + "]"

	case "union_type":
		return f.join(named(n), " | ")
	case "constrained_type":
		return f.join(named(n), ": ")
	case "binary_operator":
		op := collapse(f.text(n.ChildByFieldName("operator")))
		left := f.format(n.ChildByFieldName("left"))
		right := f.format(n.ChildByFieldName("right"))
		return left + " " + op + " " + right
	case "unary_operator":
		return f.text(n.ChildByFieldName("operator")) + f.format(n.ChildByFieldName("argument"))

	case "call":
		args := n.ChildByFieldName("arguments")
		if args == nil || args.Type() != "argument_list" {
			return collapse(f.text(n))
		}
		return f.format(n.ChildByFieldName("function")) + "(" + f.join(named(args), ", ") + ")"
	case "keyword_argument":
		return f.text(n.ChildByFieldName("name")) + "=" + f.format(n.ChildByFieldName("value"))
	case "list_splat":
		return "*" + f.join(named(n), "")
	case "dictionary_splat":
		return "**" + f.join(named(n), "")

	case "string":
		value, prefix := decodeLiteral(f.text(n))
		if strings.ContainsAny(prefix, "bf") {
			return collapse(f.text(n))
		}
		return `"` + value + `"`
	case "concatenated_string":
		var b strings.Builder
		for _, part := range named(n) {
			value, prefix := decodeLiteral(f.text(part))
			if strings.ContainsAny(prefix, "bf") {
				return collapse(f.text(n))
			}
			b.WriteString(value)
		}
		return `"` + b.String() + `"`

	case "list":
		return "[" + f.join(named(n), ", ") + "]"
	case "tuple":
		items := named(n)
		if len(items) == 1 {
			return "(" + f.format(items[0]) + ",)"
		}
		return "(" + f.join(items, ", ") + ")"
	case "set":
		return "{" + f.join(named(n), ", ") + "}"
	case "dictionary":
		return "{" + f.join(named(n), ", ") + "}"
	case "pair":
		return f.format(n.ChildByFieldName("key")) + ": " + f.format(n.ChildByFieldName("value"))
	}

	return collapse(f.text(n))
}

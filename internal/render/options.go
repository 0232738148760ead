package render

import "strings"

// Split letters accepted in Options.SplitBy.
const (
	SplitModules   = 'm'
	SplitFunctions = 'f'
	SplitClasses   = 'c'
)

// DefaultFoldArgsAfter matches black's default line length.
const DefaultFoldArgsAfter = 88

// Options drive the templates. They are passed by value and never
// mutated once a Renderer is built.
type Options struct {
	// FoldArgsAfter is the signature length above which parameters are
	// rendered one per line.
	FoldArgsAfter int
	// SplitBy holds any of the letters m, f and c; each adds %%%BEGIN
	// markers ahead of modules, functions and classes respectively.
	SplitBy      string
	ShowPrivate  bool
	WithLinenos  bool
	BoundObjects bool
}

func DefaultOptions() Options {
	return Options{FoldArgsAfter: DefaultFoldArgsAfter}
}

// Splits reports whether blocks of the given kind get split markers.
func (o Options) Splits(kind rune) bool {
	return strings.ContainsRune(o.SplitBy, kind)
}

package render

import (
	"os"
	"strings"
)

const (
	pageTemplate = "$module\n\n$functions\n\n$classes"

	classTemplate = "\n%%%START CLASSDEF $ancestry.$classname" +
		"\n$hashtags `$ancestry.$classname`" +
		"\n" +
		"\n$classdocs" +
		"\n" +
		"\n$bases" +
		"\n" +
		"\n$decoration" +
		"\n" +
		"\n$funcnames" +
		"\n" +
		"\n%%%SOURCE $path:$lineno:$endlineno" +
		"\n" +
		"\n$hashtags# Constructor" +
		"\n" +
		"\n```python" +
		"\n$classname($params)" +
		"\n```" +
		"\n" +
		"\n$constdocs" +
		"\n" +
		"\n$functions" +
		"\n%%%END CLASSDEF $ancestry.$classname"

	functionTemplate = "\n%%%START FUNCTIONDEF $ancestry.$funcname" +
		"\n$hashtags `$ancestry.$funcname`" +
		"\n" +
		"\n```python" +
		"\n$funcname($params)$output:" +
		"\n```" +
		"\n" +
		"\n$funcdocs" +
		"\n" +
		"\n$decoration" +
		"\n" +
		"\n%%%SOURCE $path:$lineno:$endlineno" +
		"\n%%%END FUNCTIONDEF $ancestry.$funcname"

	moduleTemplate = "\n%%%START MODULE $module" +
		"\n# Module `$module`" +
		"\n" +
		"\n$docstring" +
		"\n" +
		"\n$funcnames" +
		"\n" +
		"\n$classnames" +
		"\n%%%END MODULE $module"

	sourceMarker = "\n\n%%%SOURCE $path:$lineno:$endlineno"
)

// templates are derived once from the options a Renderer is built with.
type templates struct {
	page     string
	class    string
	function string
	module   string
}

func newTemplates(opts Options) templates {
	t := templates{
		page:     pageTemplate,
		class:    classTemplate,
		function: functionTemplate,
		module:   moduleTemplate,
	}

	if !opts.BoundObjects {
		t.class = stripBounds(t.class, "CLASSDEF $ancestry.$classname")
		t.function = stripBounds(t.function, "FUNCTIONDEF $ancestry.$funcname")
		t.module = stripBounds(t.module, "MODULE $module")
	}

	if opts.Splits(SplitClasses) {
		t.class = "%%%BEGIN CLASSDEF $ancestry.$classname" + t.class
	}
	if opts.Splits(SplitFunctions) {
		t.function = "%%%BEGIN FUNCTIONDEF $ancestry.$funcname" + t.function
	}
	if opts.Splits(SplitModules) {
		t.module = "%%%BEGIN MODULE $module" + t.module
	}

	if !opts.WithLinenos {
		t.class = strings.Replace(t.class, sourceMarker, "", 1)
		t.function = strings.Replace(t.function, sourceMarker, "", 1)
	}
	return t
}

func stripBounds(tpl, what string) string {
	tpl = strings.Replace(tpl, "\n%%%START "+what, "", 1)
	return strings.Replace(tpl, "\n%%%END "+what, "", 1)
}

// substitute fills $name placeholders; unknown names expand to "".
func substitute(tpl string, vars map[string]string) string {
	return os.Expand(tpl, func(name string) string { return vars[name] })
}

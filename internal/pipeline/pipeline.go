// Package pipeline drives parsing, walking and rendering of Python files
// and keeps the objects seen over a run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/jcdickinson/astdocs/internal/cas"
	"github.com/jcdickinson/astdocs/internal/docstring"
	"github.com/jcdickinson/astdocs/internal/pyast"
	"github.com/jcdickinson/astdocs/internal/registry"
	"github.com/jcdickinson/astdocs/internal/render"
	"github.com/jcdickinson/astdocs/internal/walker"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

var pyExtRe = regexp.MustCompile(`\.py$`)

type Option func(*Pipeline)

// WithFs sets the filesystem files are read from. Defaults to the OS.
func WithFs(fs afero.Fs) Option {
	return func(p *Pipeline) { p.fs = fs }
}

func WithLogger(log *logrus.Logger) Option {
	return func(p *Pipeline) { p.log = log }
}

// WithDocstringFormatter swaps the docstring dialect.
func WithDocstringFormatter(format docstring.FormatFunc) Option {
	return func(p *Pipeline) { p.format = format }
}

// WithPostRender appends transforms applied, in order, to each rendered
// page.
func WithPostRender(ts ...Transform) Option {
	return func(p *Pipeline) { p.post = append(p.post, ts...) }
}

// WithCache keeps rendered pages in store, keyed by source, module name
// and options. Post-render transforms always run.
func WithCache(store *cas.Store) Option {
	return func(p *Pipeline) { p.cache = store }
}

// WithRemovePrefix strips prefix from file paths before module names are
// derived from them.
func WithRemovePrefix(prefix string) Option {
	return func(p *Pipeline) { p.removePrefix = prefix }
}

// Pipeline is single-threaded; use one per goroutine.
type Pipeline struct {
	fs           afero.Fs
	log          *logrus.Logger
	opts         render.Options
	format       docstring.FormatFunc
	post         []Transform
	cache        *cas.Store
	removePrefix string

	renderer *render.Renderer
	objects  *registry.Objects
	modules  *orderedmap.OrderedMap[string, *registry.ModuleRecord]
}

func New(opts render.Options, options ...Option) *Pipeline {
	p := &Pipeline{
		fs:      afero.NewOsFs(),
		opts:    opts,
		objects: registry.NewObjects(),
		modules: orderedmap.New[string, *registry.ModuleRecord](),
	}
	for _, o := range options {
		o(p)
	}
	if p.log == nil {
		p.log = logrus.New()
	}
	p.renderer = render.New(opts, p.format)
	return p
}

// Objects returns every object seen so far, by module, in render order.
func (p *Pipeline) Objects() *registry.Objects { return p.objects }

// Modules returns the records of every module rendered so far.
func (p *Pipeline) Modules() []*registry.ModuleRecord {
	out := make([]*registry.ModuleRecord, 0, p.modules.Len())
	for pair := p.modules.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}


// Render documents the Python file at path.
func (p *Pipeline) Render(ctx context.Context, path string) (string, error) {
	src, err := afero.ReadFile(p.fs, path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return p.render(ctx, src, p.ModuleName(path), path)
}

// RenderCode documents code as if it were the file <module>.py.
func (p *Pipeline) RenderCode(ctx context.Context, code, module string) (string, error) {
	if module == "" {
		return "", errors.New("module name is required")
	}
	return p.render(ctx, []byte(code), module, module+".py")
}

// RenderRecursively documents every Python file below dir, in
// lexicographic order. Hidden entries are skipped, as are private files
// other than __init__.py unless private objects are shown. A file that
// fails is logged and left out; the others are still rendered and the
// failures come back joined.
func (p *Pipeline) RenderRecursively(ctx context.Context, dir string) (string, error) {
	files, err := p.discover(dir)
	if err != nil {
		return "", err
	}

	var (
		pages []string
		errs  []error
	)
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page, err := p.Render(ctx, f)
		if err != nil {
			p.log.WithField("file", f).WithError(err).Error("Failed to render module")
			errs = append(errs, err)
			continue
		}
		pages = append(pages, page)
	}
	return strings.Join(pages, "\n\n"), errors.Join(errs...)
}

func (p *Pipeline) discover(dir string) ([]string, error) {
	var files []string
	err := afero.Walk(p.fs, dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		name := info.Name()
		if path != dir && strings.HasPrefix(name, ".") {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() || !strings.HasSuffix(name, ".py") {
			return nil
		}
		if strings.HasPrefix(name, "_") && !p.opts.ShowPrivate && name != "__init__.py" {
			p.log.WithField("file", path).Debug("Skipping private module")
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}

// ModuleName derives the dotted module name from a file path: a/b/c.py
// becomes a.b.c and a/b/__init__.py becomes a.b. A path that yields
// nothing falls back to the name of the working directory.
func (p *Pipeline) ModuleName(path string) string {
	path = filepath.ToSlash(path)
	if p.removePrefix != "" {
		path = strings.ReplaceAll(path, filepath.ToSlash(p.removePrefix), "")
	}

	module := strings.TrimLeft(pyExtRe.ReplaceAllString(strings.ReplaceAll(path, "/", "."), ""), ".")
	module = strings.ReplaceAll(module, ".__init__", "")
	if module == "__init__" {
		module = ""
	}
	if module == "" {
		if wd, err := os.Getwd(); err == nil {
			module = filepath.Base(wd)
		}
	}
	return module
}

func (p *Pipeline) render(ctx context.Context, src []byte, module, path string) (string, error) {
	log := p.log.WithFields(logrus.Fields{"file": path, "module": module})
	log.Debug("Parsing module")

	mod, err := pyast.Parse(ctx, src)
	if err != nil {
		var perr *pyast.ParseError
		if errors.As(err, &perr) {
			perr.File = path
		}
		return "", fmt.Errorf("parsing %s: %w", path, err)
	}

	rec := walker.Walk(mod, module)
	rec.Path = path
	rec.Package = filepath.Base(path) == "__init__.py"
	p.modules.Set(module, rec)
	p.objects.Add(rec)

	key := ""
	if p.cache != nil {
		key = cas.Key(string(src), module, path, fmt.Sprintf("%+v", p.opts))
		if page, ok, err := p.cache.Get(key); err != nil {
			log.WithError(err).Warn("Failed to read render cache")
		} else if ok {
			log.Debug("Render cache hit")
			return Compose(p.post...)(page), nil
		}
	}

	page := p.renderer.Module(rec)
	if p.cache != nil {
		if err := p.cache.Put(key, page); err != nil {
			log.WithError(err).Warn("Failed to write render cache")
		}
	}

	log.WithFields(logrus.Fields{
		"classes":   rec.Classes.Len(),
		"functions": rec.Functions.Len(),
	}).Debug("Rendered module")
	return Compose(p.post...)(page), nil
}

// RenderObject documents one class or function of the file at path.
// object is a dotted path, either absolute (pkg.mod.Class.method) or
// relative to the module (Class.method).
func (p *Pipeline) RenderObject(ctx context.Context, path, object string) (string, error) {
	module := p.ModuleName(path)
	if _, err := p.Render(ctx, path); err != nil {
		return "", err
	}
	rec, ok := p.modules.Get(module)
	if !ok {
		return "", fmt.Errorf("module %s was not recorded", module)
	}
	if !strings.HasPrefix(object, module+".") {
		object = registry.Join(module, object)
	}

	var (
		md  string
		err error
	)
	if _, isClass := rec.Classes.Get(object); isClass {
		md, err = p.renderer.Class(rec, object)
	} else {
		md, err = p.renderer.Function(rec, object)
	}
	if err != nil {
		return "", err
	}
	return Compose(p.post...)(md), nil
}

// RenderPath renders a single file, or every file below path when it is a
// directory.
func (p *Pipeline) RenderPath(ctx context.Context, path string) (string, error) {
	info, err := p.fs.Stat(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	if info.IsDir() {
		return p.RenderRecursively(ctx, path)
	}
	return p.Render(ctx, path)
}

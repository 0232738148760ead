// Package split cuts a rendered stream on its %%%BEGIN markers and writes
// one Markdown file per part.
package split

import (
	"fmt"
	"path"
	"strings"

	"github.com/jcdickinson/astdocs/internal/markdown"
	"github.com/jcdickinson/astdocs/internal/registry"
	"github.com/spf13/afero"
)

const beginMarker = "%%%BEGIN"

// IndexName is the file holding whatever precedes the first marker.
const IndexName = "index"

// Part is one split unit. Kind and Path come from the marker line; both are
// empty for the leading part.
type Part struct {
	Kind    string
	Path    string
	Content string
}

// File is the slash-separated file name of the part: the dotted path with
// dots turned into directories, or IndexName when there is no path.
func (p Part) File() string {
	if p.Path == "" {
		return IndexName + ".md"
	}
	return strings.ReplaceAll(p.Path, ".", "/") + ".md"
}

// Split cuts stream before every line starting with %%%BEGIN; the marker
// lines themselves are dropped. A blank leading part is omitted.
func Split(stream string) []Part {
	var (
		parts   []Part
		current Part
		body    []string
	)
	flush := func() {
		current.Content = strings.TrimSpace(strings.Join(body, "\n"))
		if current.Kind != "" || current.Content != "" {
			parts = append(parts, current)
		}
	}

	for _, line := range strings.Split(stream, "\n") {
		if !strings.HasPrefix(line, beginMarker) {
			body = append(body, line)
			continue
		}
		flush()
		fields := strings.Fields(strings.TrimPrefix(line, beginMarker))
		current = Part{}
		body = nil
		if len(fields) > 0 {
			current.Kind = fields[0]
		}
		if len(fields) > 1 {
			current.Path = fields[1]
		}
	}
	flush()
	return parts
}

// WithIndex puts content at the top of the index page. It is merged into an
// existing leading part so one does not overwrite the other on disk.
func WithIndex(parts []Part, content string) []Part {
	if len(parts) > 0 && parts[0].Path == "" {
		merged := append([]Part(nil), parts...)
		merged[0].Content = strings.TrimSpace(content + "\n\n" + merged[0].Content)
		return merged
	}
	return append([]Part{{Content: content}}, parts...)
}

type Options struct {
	// FrontMatter prepends a YAML block naming the object of each file.
	FrontMatter bool
}

type frontMatter struct {
	Kind   string `yaml:"kind"`
	Object string `yaml:"object"`
}

// WriteFiles writes parts below dir and returns the written file names,
// relative to dir. Links to #anchors defined in another part are rewritten
// to point at that part's file. When two parts share a file the later one
// wins.
func WriteFiles(fs afero.Fs, dir string, parts []Part, opts Options) ([]string, error) {
	owners := make(map[string]string)
	for _, p := range parts {
		for _, heading := range markdown.CodeHeadings(p.Content) {
			anchor := registry.Anchor(heading)
			if _, ok := owners[anchor]; !ok {
				owners[anchor] = p.File()
			}
		}
	}

	var written []string
	seen := make(map[string]bool)
	for _, p := range parts {
		file := p.File()
		content := markdown.RewriteLinks(p.Content, func(dest string) (string, bool) {
			return relink(file, dest, owners)
		})

		if opts.FrontMatter && p.Path != "" {
			var err error
			content, err = markdown.AddFrontMatter(content, frontMatter{Kind: strings.ToLower(p.Kind), Object: p.Path})
			if err != nil {
				return nil, err
			}
		}

		target := path.Join(dir, file)
		if err := fs.MkdirAll(path.Dir(target), 0755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", path.Dir(target), err)
		}
		if err := afero.WriteFile(fs, target, []byte(content+"\n"), 0644); err != nil {
			return nil, fmt.Errorf("writing %s: %w", target, err)
		}
		if !seen[file] {
			seen[file] = true
			written = append(written, file)
		}
	}
	return written, nil
}

func relink(from, dest string, owners map[string]string) (string, bool) {
	anchor, ok := strings.CutPrefix(dest, "#")
	if !ok {
		return "", false
	}
	owner, ok := owners[anchor]
	if !ok || owner == from {
		return "", false
	}
	return relative(from, owner) + dest, true
}

// relative returns the slash path to file as seen from the directory of
// from.
func relative(from, file string) string {
	fromDir := strings.Split(path.Dir(from), "/")
	if path.Dir(from) == "." {
		fromDir = nil
	}
	target := strings.Split(file, "/")

	common := 0
	for common < len(fromDir) && common < len(target)-1 && fromDir[common] == target[common] {
		common++
	}
	up := strings.Repeat("../", len(fromDir)-common)
	return up + strings.Join(target[common:], "/")
}

// Package docstring turns NumPy-style docstrings into Markdown.
//
// The parser is deliberately naive and pattern based. Code fences are set
// aside first so nothing inside them is ever restructured; headings are
// flattened to bold text; "Title" lines underlined with dashes open a
// section; inside a section, "name : type" and ": type" lines followed by
// indented text become list entries. Anything else passes through.
package docstring

import (
	"fmt"
	"regexp"
	"strings"
)

// FormatFunc converts a raw docstring into rendered Markdown. It is the
// extension point for alternate docstring dialects.
type FormatFunc func(raw string) string

var (
	headingRe = regexp.MustCompile(`^#+\s*(.*)$`)
	titleRe   = regexp.MustCompile(`^[A-Za-z ]+$`)
	dashesRe  = regexp.MustCompile(`^-{3,}$`)
	paramRe   = regexp.MustCompile(`^(\*{0,2}[A-Za-z0-9_][A-Za-z0-9_ ]*?)(?: : (.+))?$`)
	returnRe  = regexp.MustCompile(`^: (.+)$`)
)

const placeholder = "%%%BLOCK"

var newlines = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// Format renders a raw docstring. Malformed input, such as a fence that is
// never closed, comes back trimmed but otherwise untouched.
func Format(raw string) string {
	raw = newlines.Replace(raw)
	lines := strings.Split(raw, "\n")

	lines, blocks, ok := extractFences(lines)
	if !ok {
		return trimLines(raw)
	}

	for i, line := range lines {
		if !isPlaceholder(line) {
			lines[i] = strings.TrimRight(line, " \t")
		}
	}

	lines = structure(lines)

	out := strings.Join(lines, "\n")
	for i := len(blocks) - 1; i >= 0; i-- {
		out = strings.Replace(out, placeholderFor(i), blocks[i], 1)
	}
	return strings.TrimSpace(out)
}

// extractFences replaces each fenced block by a single placeholder line.
// A fence opened with N backticks only closes on a line holding N or more
// backticks and nothing else.
func extractFences(lines []string) ([]string, []string, bool) {
	var (
		out    []string
		blocks []string
	)
	for i := 0; i < len(lines); i++ {
		indent, width := fenceOpen(lines[i])
		if width == 0 {
			out = append(out, lines[i])
			continue
		}

		end := -1
		for j := i + 1; j < len(lines); j++ {
			if fenceCloses(lines[j], width) {
				end = j
				break
			}
		}
		if end < 0 {
			return nil, nil, false
		}

		blocks = append(blocks, strings.Join(lines[i:end+1], "\n"))
		out = append(out, indent+placeholderFor(len(blocks)-1))
		i = end
	}
	return out, blocks, true
}

func fenceOpen(line string) (string, int) {
	trimmed := strings.TrimLeft(line, " ")
	width := len(trimmed) - len(strings.TrimLeft(trimmed, "`"))
	if width < 3 || strings.Contains(trimmed[width:], "`") {
		return "", 0
	}
	return line[:len(line)-len(trimmed)], width
}

func fenceCloses(line string, width int) bool {
	trimmed := strings.TrimSpace(line)
	return len(trimmed) >= width && strings.Trim(trimmed, "`") == ""
}

func placeholderFor(i int) string {
	return fmt.Sprintf("%s%d", placeholder, i)
}

func isPlaceholder(line string) bool {
	return strings.HasPrefix(strings.TrimLeft(line, " "), placeholder)
}

// structure applies headings, sections and entries, in that order, over
// fence-free lines.
func structure(lines []string) []string {
	var (
		out       []string
		inSection bool
	)
	for i := 0; i < len(lines); i++ {
		line := lines[i]

		if isPlaceholder(line) {
			out = append(out, line)
			continue
		}

		if m := headingRe.FindStringSubmatch(line); m != nil {
			if m[1] == "" {
				out = append(out, "")
			} else {
				out = append(out, "**"+m[1]+"**")
			}
			continue
		}

		if i+1 < len(lines) && titleRe.MatchString(line) && strings.TrimSpace(line) != "" && dashesRe.MatchString(lines[i+1]) {
			out = append(out, "**"+line+"**", "")
			inSection = true
			i++
			continue
		}

		if inSection {
			if entry, consumed := parseEntry(lines, i); consumed > 0 {
				out = append(out, entry)
				i += consumed - 1
				continue
			}
		}

		out = append(out, line)
	}
	return out
}

// parseEntry recognises "name [: type]" or ": type" at lines[i] followed
// by indented description lines, and reports how many lines it used.
func parseEntry(lines []string, i int) (string, int) {
	line := lines[i]
	if line == "" || line[0] == ' ' {
		return "", 0
	}

	var desc []string
	j := i + 1
	for ; j < len(lines); j++ {
		next := lines[j]
		if !strings.HasPrefix(next, "  ") || strings.TrimSpace(next) == "" || isPlaceholder(next) {
			break
		}
		desc = append(desc, strings.TrimSpace(next))
	}
	if len(desc) == 0 {
		return "", 0
	}
	description := strings.Join(strings.Fields(strings.Join(desc, " ")), " ")

	if m := returnRe.FindStringSubmatch(line); m != nil {
		return fmt.Sprintf("* [`%s`]: %s", strings.TrimSpace(m[1]), description), j - i
	}
	if m := paramRe.FindStringSubmatch(line); m != nil {
		name := strings.TrimSpace(m[1])
		if m[2] == "" {
			return fmt.Sprintf("* `%s`: %s", name, description), j - i
		}
		return fmt.Sprintf("* `%s` [`%s`]: %s", name, strings.TrimSpace(m[2]), description), j - i
	}
	return "", 0
}

func trimLines(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

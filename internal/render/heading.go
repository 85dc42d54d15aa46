// Package render turns an item into formatted markdown: it synthesizes the
// heading line from the item's level, header and uid, then renders the
// result for the terminal (glamour) or as HTML (goldmark).
package render

import (
	"path/filepath"
	"strings"

	"doorhole/internal/store"
)

// Source is the part of an item the renderer reads.
type Source interface {
	UID() string
	Level() store.Level
	Header() string
	Text() string
	Normative() bool
	Path() string
}

// Heading synthesizes the heading line for an item and returns the body
// lines that follow it.
//
// Headings ("2.0") are titled by the header, or by the first body line when
// the header is empty (that line is then consumed). Requirements ("2.1") are
// titled by the header, or by the uid when the header is empty; a normative
// requirement with a header also carries its uid in parentheses.
func Heading(level store.Level, header, uid string, normative bool, body []string) (string, []string) {
	header = strings.TrimSpace(header)
	hashes := strings.Repeat("#", max(level.Depth(), 1))

	if level.Heading() {
		line := hashes + " " + level.Number()
		switch {
		case header != "":
			return line + " " + header, body
		case len(body) > 0:
			return strings.TrimRight(line+" "+body[0], " "), body[1:]
		default:
			return line, nil
		}
	}

	line := hashes + " " + level.String()
	if header == "" {
		return line + " " + uid, body
	}
	line += " " + header
	if normative {
		line += " (" + uid + ")"
	}
	return line, body
}

// Compose returns the markdown shown for src: heading line, blank line,
// body.
func Compose(src Source) string {
	line, rest := Heading(src.Level(), src.Header(), src.UID(), src.Normative(), splitLines(src.Text()))
	if len(rest) == 0 {
		return line
	}
	return line + "\n\n" + strings.Join(rest, "\n")
}

// BaseDir is the directory relative links of src resolve against.
func BaseDir(src Source) string {
	p := src.Path()
	if p == "" {
		return ""
	}
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	if real, err := filepath.EvalSymlinks(p); err == nil {
		p = real
	}
	return filepath.Dir(p)
}

func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// Package docs embeds the help topics shown by `doorhole docs` and the
// TUI help overlay. Every table column is a topic too, cut from the
// sections of columns.md.
package docs

import (
	"embed"
	"io/fs"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

//go:embed content/*.md
var contentFS embed.FS

// customColumn is the section shown for attributes without one of their own.
const customColumn = "custom"

// Topics lists the topic files in name order.
func Topics() []string {
	entries, err := fs.ReadDir(contentFS, "content")
	if err != nil {
		return []string{}
	}
	topics := make([]string, 0, len(entries))
	for _, e := range entries {
		if name, ok := strings.CutSuffix(e.Name(), ".md"); ok && name != "" {
			topics = append(topics, name)
		}
	}
	return topics
}

// Get returns a topic file, or the columns.md section of a column name.
func Get(topic string) (string, bool) {
	topic = strings.ToLower(strings.TrimSpace(topic))
	if topic == "" {
		return "", false
	}
	// embed paths always use forward slashes.
	if b, err := contentFS.ReadFile("content/" + topic + ".md"); err == nil {
		return string(b), true
	}
	s, ok := columnSections()[topic]
	return s, ok
}

// Column returns the help for a table column. Custom attributes share one
// section.
func Column(attr string) (string, bool) {
	sections := columnSections()
	if s, ok := sections[strings.ToLower(strings.TrimSpace(attr))]; ok {
		return s, true
	}
	s, ok := sections[customColumn]
	return s, ok
}

// columnSections maps every name in a second-level heading of columns.md
// ("## normative, derived") to the markdown of its section.
func columnSections() map[string]string {
	src, err := contentFS.ReadFile("content/columns.md")
	if err != nil {
		return nil
	}
	doc := goldmark.DefaultParser().Parse(text.NewReader(src))

	type heading struct {
		start int
		names []string
	}
	var heads []heading
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		h, ok := n.(*ast.Heading)
		if !ok || h.Level != 2 || h.Lines().Len() == 0 {
			continue
		}
		seg := h.Lines().At(0)
		start := seg.Start
		for start > 0 && src[start-1] != '\n' {
			start--
		}
		var names []string
		for _, name := range strings.Split(string(seg.Value(src)), ",") {
			if name = strings.ToLower(strings.TrimSpace(name)); name != "" {
				names = append(names, name)
			}
		}
		heads = append(heads, heading{start: start, names: names})
	}

	out := make(map[string]string)
	for i, h := range heads {
		end := len(src)
		if i+1 < len(heads) {
			end = heads[i+1].start
		}
		body := strings.TrimSpace(string(src[h.start:end])) + "\n"
		for _, name := range h.names {
			out[name] = body
		}
	}
	return out
}

// Package storetest writes small doorstop trees for tests.
package storetest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Doc describes one document directory of a fixture tree.
type Doc struct {
	Dir    string
	Prefix string
	Parent string
	// Config replaces the generated .doorstop.yml when set.
	Config string
	// Items maps uid to the raw YAML of the item file.
	Items map[string]string
}

// Write creates the documents below root and returns root.
func Write(t testing.TB, root string, docs ...Doc) string {
	t.Helper()
	for _, d := range docs {
		dir := filepath.Join(root, d.Dir)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
		cfg := d.Config
		if cfg == "" {
			var b strings.Builder
			b.WriteString("settings:\n  digits: 3\n  prefix: " + d.Prefix + "\n  sep: ''\n")
			if d.Parent != "" {
				b.WriteString("  parent: " + d.Parent + "\n")
			}
			cfg = b.String()
		}
		if err := os.WriteFile(filepath.Join(dir, ".doorstop.yml"), []byte(cfg), 0o644); err != nil {
			t.Fatalf("write config: %v", err)
		}
		for uid, body := range d.Items {
			p := filepath.Join(dir, uid+".yml")
			if err := os.WriteFile(p, []byte(strings.TrimLeft(body, "\n")), 0o644); err != nil {
				t.Fatalf("write %s: %v", p, err)
			}
		}
	}
	return root
}

// Item renders a minimal item file.
func Item(level, header, text string, extra ...string) string {
	var b strings.Builder
	b.WriteString("active: true\nderived: false\n")
	b.WriteString("header: '" + strings.ReplaceAll(header, "'", "''") + "'\n")
	b.WriteString("level: " + level + "\n")
	b.WriteString("links: []\nnormative: true\nref: ''\nreviewed: null\n")
	if strings.Contains(text, "\n") {
		b.WriteString("text: |\n")
		for _, l := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
			b.WriteString("  " + l + "\n")
		}
	} else {
		b.WriteString("text: '" + strings.ReplaceAll(text, "'", "''") + "'\n")
	}
	for _, e := range extra {
		b.WriteString(e + "\n")
	}
	return b.String()
}

// Basic is a two-document tree: SYS with a heading and two requirements,
// and REQ below it with a custom attribute on one item.
func Basic(t testing.TB) string {
	t.Helper()
	return Write(t, t.TempDir(),
		Doc{
			Dir:    "sys",
			Prefix: "SYS",
			Items: map[string]string{
				"SYS001": Item("1.0", "Overview", "Scope of the system."),
				"SYS002": Item("1.1", "", "The system shall start."),
				"SYS003": Item("1.2", "Stop", "The system shall stop."),
			},
		},
		Doc{
			Dir:    "sys/req",
			Prefix: "REQ",
			Parent: "SYS",
			Items: map[string]string{
				"REQ001": Item("1", "", "Start within 2 seconds.", "priority: 2", "type: functional"),
				"REQ002": Item("2", "", "Stop within 1 second."),
				"REQ003": strings.Replace(Item("3", "", "Retired."), "active: true", "active: false", 1),
			},
		},
	)
}

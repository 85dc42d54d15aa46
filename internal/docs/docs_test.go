package docs

import (
	"strings"
	"testing"
)

func TestTopics_ListsContentFiles(t *testing.T) {
	got := strings.Join(Topics(), ",")
	for _, want := range []string{"columns", "config", "keys", "rendering"} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected topic %q in %q", want, got)
		}
	}
}

func TestGet_ColumnNamesAreTopics(t *testing.T) {
	level, ok := Get("Level")
	if !ok || !strings.HasPrefix(level, "## level\n") {
		t.Fatalf("expected the level section; got %q", level)
	}
	if strings.Contains(level, "## header") {
		t.Fatalf("expected the section to stop at the next column; got %q", level)
	}

	normative, ok := Get("normative")
	derived, ok2 := Get("derived")
	if !ok || !ok2 || normative != derived {
		t.Fatalf("expected normative and derived to share a section")
	}

	if _, ok := Get("nope"); ok {
		t.Fatalf("expected unknown topic to be rejected")
	}
	if body, ok := Get("keys"); !ok || !strings.Contains(body, "|") {
		t.Fatalf("expected the keys file; got %q", body)
	}
}

func TestColumn_CustomAttributesShareASection(t *testing.T) {
	got, ok := Column("priority")
	if !ok || !strings.HasPrefix(got, "## custom\n") {
		t.Fatalf("expected the custom section; got %q", got)
	}
	text, _ := Column("text")
	if !strings.Contains(text, "ctrl+e") {
		t.Fatalf("expected the text section; got %q", text)
	}
}

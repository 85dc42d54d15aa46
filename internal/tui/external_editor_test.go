package tui

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func editingText(t *testing.T, uid string) appModel {
	t.Helper()
	m, _ := newTestModel(t)
	selectCell(t, &m, uid, "text")
	m = press(t, m, "enter")
	if m.mode != modeEdit || m.editor == nil {
		t.Fatalf("expected text editor to open")
	}
	return m
}

func TestNewHandoff_NamesFileAfterItem(t *testing.T) {
	m := editingText(t, "SYS003")
	h, err := (&m).newHandoff()
	if err != nil {
		t.Fatalf("newHandoff: %v", err)
	}
	defer os.Remove(h.path)

	if base := filepath.Base(h.path); !strings.HasPrefix(base, "SYS003-text-") || !strings.HasSuffix(base, ".md") {
		t.Fatalf("expected temp file named after the item; got %s", base)
	}
	b, err := os.ReadFile(h.path)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "The system shall stop." {
		t.Fatalf("expected the cell text in the file; got %q", b)
	}
}

func TestEditorCommand_PassesPathAsOneArgument(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("sh editor command")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	path := filepath.Join(t.TempDir(), "with space.md")
	if err := editorCommand(`printf '%s' "edited" >`, path).Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "edited" {
		t.Fatalf("expected editor output in %s; got %q", path, b)
	}
}

func TestApplyExternalEditorResult_UpdatesOpenCell(t *testing.T) {
	t.Setenv("VISUAL", "myedit")
	m := editingText(t, "SYS003")
	h, err := (&m).newHandoff()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(h.path, []byte("The system shall halt.\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	(&m).applyExternalEditorResult(externalEditorDoneMsg{handoff: h})

	if got := m.editor.Value(); got != "The system shall halt.\n" {
		t.Fatalf("expected editor to be updated; got %q", got)
	}
	if _, err := os.Stat(h.path); !os.IsNotExist(err) {
		t.Fatalf("expected temp file to be removed, stat err=%v", err)
	}
	if m.minibufferText != "SYS003 text updated from myedit (ctrl+s to save)" {
		t.Fatalf("unexpected minibuffer %q", m.minibufferText)
	}
}

func TestApplyExternalEditorResult_DroppedAfterCancel(t *testing.T) {
	m := editingText(t, "SYS003")
	h, err := (&m).newHandoff()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(h.path, []byte("Late edit.\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	m = press(t, m, "esc")

	(&m).applyExternalEditorResult(externalEditorDoneMsg{handoff: h})

	if !strings.Contains(m.minibufferText, "SYS003 text is no longer being edited") {
		t.Fatalf("unexpected minibuffer %q", m.minibufferText)
	}
	if _, err := os.Stat(h.path); !os.IsNotExist(err) {
		t.Fatalf("expected temp file to be removed, stat err=%v", err)
	}
}

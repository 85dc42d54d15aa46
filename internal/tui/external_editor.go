package tui

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// cellHandoff is an open text cell written to a temp file for $VISUAL or
// $EDITOR.
type cellHandoff struct {
	uid    string
	attr   string
	path   string
	before string
}

type externalEditorDoneMsg struct {
	handoff cellHandoff
	err     error
}

func externalEditorName() string {
	for _, env := range []string{"VISUAL", "EDITOR"} {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			return v
		}
	}
	return "vi"
}

// editorCommand runs editor on path through sh, so $EDITOR may carry
// quoted arguments ("code --wait").
func editorCommand(editor, path string) *exec.Cmd {
	if runtime.GOOS == "windows" {
		args := append(strings.Fields(editor), path)
		return exec.Command(args[0], args[1:]...)
	}
	return exec.Command("sh", "-c", editor+` "$1"`, "doorhole-editor", path)
}

// newHandoff writes the open editor's value to <uid>-<attr>-*.md.
func (m *appModel) newHandoff() (cellHandoff, error) {
	t := m.tab()
	if t == nil || m.editor == nil || m.editRow >= t.table.Rows() {
		return cellHandoff{}, errors.New("no cell is being edited")
	}
	h := cellHandoff{
		uid:    t.table.Item(m.editRow).UID(),
		attr:   m.editor.Attr,
		before: m.editor.Value(),
	}
	f, err := os.CreateTemp("", h.uid+"-"+h.attr+"-*.md")
	if err != nil {
		return cellHandoff{}, err
	}
	h.path = f.Name()
	if _, err := f.WriteString(h.before); err != nil {
		_ = f.Close()
		_ = os.Remove(h.path)
		return cellHandoff{}, err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(h.path)
		return cellHandoff{}, err
	}
	return h, nil
}

func (m *appModel) openExternalEditor() (tea.Cmd, error) {
	h, err := m.newHandoff()
	if err != nil {
		return nil, err
	}
	return tea.ExecProcess(editorCommand(externalEditorName(), h.path), func(err error) tea.Msg {
		return externalEditorDoneMsg{handoff: h, err: err}
	}), nil
}

// applyExternalEditorResult loads the edited file back into the cell
// editor. The result is dropped when that cell is no longer being edited.
func (m *appModel) applyExternalEditorResult(msg externalEditorDoneMsg) {
	h := msg.handoff
	if h.path == "" {
		return
	}
	defer func() { _ = os.Remove(h.path) }()

	name := h.uid + " " + h.attr
	if msg.err != nil {
		m.showMinibuffer(fmt.Sprintf("%s: %s failed: %v", name, externalEditorName(), msg.err))
		return
	}
	t := m.tab()
	if m.mode != modeEdit || m.editor == nil || m.editor.Attr != h.attr ||
		t == nil || m.editRow >= t.table.Rows() || t.table.Item(m.editRow).UID() != h.uid {
		m.showMinibuffer(name + " is no longer being edited; external changes dropped")
		return
	}
	b, err := os.ReadFile(h.path)
	if err != nil {
		m.showMinibuffer(fmt.Sprintf("%s: reading edited text: %v", name, err))
		return
	}

	after := string(b)
	if strings.TrimSpace(after) == strings.TrimSpace(h.before) {
		m.showMinibuffer("No changes to " + name)
		return
	}
	m.editor.SetValue(after)
	m.showMinibuffer(name + " updated from " + externalEditorName() + " (ctrl+s to save)")
}

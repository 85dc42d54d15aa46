package tui

import (
	"errors"
	"os/exec"
	"runtime"
	"strings"

	"doorhole/internal/projection"
)

// clipboardWriter is swapped in tests.
var clipboardWriter = copyToClipboard

func copyToClipboard(s string) error {
	s = strings.ReplaceAll(s, "\r\n", "\n")

	switch runtime.GOOS {
	case "darwin":
		return runClipboardCmd("pbcopy", nil, s)
	case "windows":
		if err := runClipboardCmd("cmd", []string{"/c", "clip"}, s); err == nil {
			return nil
		}
		return runClipboardCmd("powershell", []string{"-NoProfile", "-Command", "Set-Clipboard"}, s)
	default:
		// Wayland first, then X11.
		if err := runClipboardCmd("wl-copy", nil, s); err == nil {
			return nil
		}
		if err := runClipboardCmd("xclip", []string{"-selection", "clipboard"}, s); err == nil {
			return nil
		}
		return runClipboardCmd("xsel", []string{"--clipboard", "--input"}, s)
	}
}

func runClipboardCmd(name string, args []string, stdin string) error {
	if _, err := exec.LookPath(name); err != nil {
		return err
	}
	cmd := exec.Command(name, args...)
	cmd.Stdin = strings.NewReader(stdin)
	if err := cmd.Run(); err != nil {
		return errors.New(name + ": " + err.Error())
	}
	return nil
}

// copyCell copies the display text of the cell under the cursor, or the
// uid when uidOnly is set.
func (m *appModel) copyCell(t *tab, uidOnly bool) {
	row := t.row()
	if row < 0 {
		return
	}
	it := t.table.Item(row)
	what, text := "uid", it.UID()
	if col := m.currentColumn(t); !uidOnly && col >= 0 {
		what = t.table.Column(col)
		text, _ = t.table.Cell(row, col, projection.RoleDisplay).(string)
	}
	if err := clipboardWriter(text); err != nil {
		m.showMinibuffer("Copy failed: " + err.Error())
		return
	}
	m.showMinibuffer("Copied " + it.UID() + " " + what)
}

package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"doorhole/internal/store"
)

type menuItem struct {
	key   string
	label string
	run   func(m *appModel, t *tab) tea.Cmd
}

// contextMenu lists the row actions. The same hotkeys work in the table.
var contextMenu = []menuItem{
	{key: "e", label: "Edit cell", run: func(m *appModel, t *tab) tea.Cmd { return m.startEdit(t) }},
	{key: "o", label: "Insert after", run: func(m *appModel, t *tab) tea.Cmd { m.insert(t, true); return nil }},
	{key: "O", label: "Insert before", run: func(m *appModel, t *tab) tea.Cmd { m.insert(t, false); return nil }},
	{key: "n", label: "Toggle normative", run: func(m *appModel, t *tab) tea.Cmd { m.toggle(t, store.AttrNormative); return nil }},
	{key: "D", label: "Toggle derived", run: func(m *appModel, t *tab) tea.Cmd { m.toggle(t, store.AttrDerived); return nil }},
	{key: "R", label: "Mark as reviewed", run: func(m *appModel, t *tab) tea.Cmd { m.markReviewed(t); return nil }},
	{key: "y", label: "Copy cell", run: func(m *appModel, t *tab) tea.Cmd { m.copyCell(t, false); return nil }},
	{key: "Y", label: "Copy uid", run: func(m *appModel, t *tab) tea.Cmd { m.copyCell(t, true); return nil }},
	{key: "x", label: "Delete item", run: func(m *appModel, t *tab) tea.Cmd { m.openConfirmDelete(t); return nil }},
	{key: "r", label: "Reload document", run: func(m *appModel, t *tab) tea.Cmd { m.reload(t); return nil }},
}

func (m appModel) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	t := m.tab()
	switch msg.String() {
	case "esc", "ctrl+g", "m", "q":
		m.mode = modeTable
		return m, nil
	case "up", "k":
		if m.menuIndex > 0 {
			m.menuIndex--
		}
		return m, nil
	case "down", "j":
		if m.menuIndex < len(contextMenu)-1 {
			m.menuIndex++
		}
		return m, nil
	case "enter":
		return m.runMenuItem(t, contextMenu[m.menuIndex])
	}
	for _, it := range contextMenu {
		if msg.String() == it.key {
			return m.runMenuItem(t, it)
		}
	}
	return m, nil
}

func (m appModel) runMenuItem(t *tab, it menuItem) (tea.Model, tea.Cmd) {
	m.mode = modeTable
	if t == nil {
		return m, nil
	}
	cmd := it.run(&m, t)
	t.clamp()
	m.ensureVisible(t)
	return m, cmd
}

func (m appModel) renderMenu() string {
	title := "Actions"
	if t := m.tab(); t != nil && t.row() >= 0 {
		title = t.table.Item(t.row()).UID()
	}
	keyStyle := lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	var b strings.Builder
	for i, it := range contextMenu {
		line := keyStyle.Render(it.key) + "  " + it.label
		if i == m.menuIndex {
			line = lipgloss.NewStyle().Background(colorSelectedBg).Foreground(colorSelectedFg).Render(it.key + "  " + it.label)
		}
		b.WriteString(line)
		if i < len(contextMenu)-1 {
			b.WriteByte('\n')
		}
	}
	return renderModalBox(m.width, title, b.String())
}

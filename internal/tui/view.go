package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"

	"doorhole/internal/docs"
	"doorhole/internal/edit"
	"doorhole/internal/projection"
	"doorhole/internal/render"
	"doorhole/internal/store"
)

const (
	colSepWidth = 3
	maxColWidth = 24
	minColWidth = 3
	minTextW    = 20
	// tab bar, column header, rule, status line
	chromeLines = 4
)

type colLayout struct {
	col   int
	attr  string
	width int
}

// layout sizes the visible columns. Every column but text is as wide as
// its widest value up to maxColWidth; text takes what is left.
func (m *appModel) layout(t *tab) (int, []colLayout) {
	uidW := len(store.AttrUID)
	for r := 0; r < t.table.Rows(); r++ {
		uidW = max(uidW, xansi.StringWidth(t.table.Item(r).UID()))
	}
	gutter := 2 + uidW

	var cols []colLayout
	used := gutter
	text := -1
	for _, c := range m.visibleColumns(t) {
		attr := t.table.Column(c)
		lc := colLayout{col: c, attr: attr}
		if attr == store.AttrText {
			text = len(cols)
		} else {
			w := xansi.StringWidth(attr)
			for r := 0; r < t.table.Rows(); r++ {
				s, _ := t.table.Cell(r, c, projection.RoleDisplay).(string)
				first, _, _ := strings.Cut(s, "\n")
				w = max(w, xansi.StringWidth(first))
			}
			lc.width = min(max(w, minColWidth), maxColWidth)
			used += lc.width + colSepWidth
		}
		cols = append(cols, lc)
	}
	if text >= 0 {
		cols[text].width = max(m.width-used-colSepWidth, minTextW)
	}
	return gutter, cols
}

func (m *appModel) bodyHeight() int {
	h := m.height - chromeLines
	if m.mode == modeEdit && m.editor != nil {
		h -= m.editorPanelHeight()
	}
	return max(h, 1)
}

func (m *appModel) editorSizeFor(k edit.Kind) (int, int) {
	w := max(m.width-2, 10)
	if k == edit.KindText {
		return w, max(3, m.height/3)
	}
	return w, 1
}

func (m *appModel) editorSize() (int, int) {
	return m.editorSizeFor(m.editor.Kind())
}

func (m *appModel) editorPanelHeight() int {
	_, h := m.editorSize()
	return h + 2
}

// cell renders one cell as lines no wider than width.
func (m *appModel) cell(t *tab, row int, lc colLayout) string {
	if lc.attr != store.AttrText {
		s, _ := t.table.Cell(row, lc.col, projection.RoleDisplay).(string)
		return lipgloss.NewStyle().Width(lc.width).Render(s)
	}
	it := t.table.Item(row)
	out := t.cache.Get(render.Coord{Row: row, Col: lc.col}, lc.width, func() string {
		res := m.opts.Renderer.Render(m.ctx, it, lc.width)
		if res.OK() {
			return res.Text
		}
		m.log.Warn("render failed", "uid", it.UID(), "err", res.Err)
		return m.opts.Renderer.Fallback(it, res.Err, lc.width)
	})
	return strings.Trim(out, "\n")
}

func (m *appModel) rowHeight(t *tab, row int, cols []colLayout) int {
	h := 1
	for _, lc := range cols {
		h = max(h, strings.Count(m.cell(t, row, lc), "\n")+1)
	}
	return min(h, m.bodyHeight())
}

// ensureVisible scrolls so the cursor row is fully on screen.
func (m *appModel) ensureVisible(t *tab) {
	if t.cursor < t.offset {
		t.offset = t.cursor
	}
	if len(t.rows) == 0 {
		t.offset = 0
		return
	}
	_, cols := m.layout(t)
	bodyH := m.bodyHeight()
	for t.offset < t.cursor {
		used := 0
		for i := t.offset; i <= t.cursor; i++ {
			used += m.rowHeight(t, t.rows[i], cols)
		}
		if used <= bodyH {
			break
		}
		t.offset++
	}
}

func roleColor(v any) (lipgloss.Color, bool) {
	c, ok := v.(lipgloss.Color)
	return c, ok
}

func (m appModel) View() string {
	switch m.mode {
	case modeHelp:
		return m.place(m.renderHelp())
	case modeMenu:
		return m.place(m.renderMenu())
	case modeConfirm:
		body := fmt.Sprintf("Delete %s? The item file is removed from disk.", m.confirmUID)
		return m.place(renderConfirmModal(m.width, "Delete item", body, "Delete", "Cancel", m.confirmFocus))
	}

	t := m.tab()
	parts := []string{m.renderTabs()}
	if t == nil {
		parts = append(parts, styleMuted().Render("No documents found."))
	} else {
		gutter, cols := m.layout(t)
		parts = append(parts, m.renderHeader(t, gutter, cols))
		parts = append(parts, styleMuted().Render(strings.Repeat(glyphHRule(), max(m.width, 1))))
		parts = append(parts, m.renderBody(t, gutter, cols))
	}
	if m.mode == modeEdit && m.editor != nil {
		parts = append(parts, m.renderEditor())
	}
	parts = append(parts, m.renderStatus())
	return strings.Join(parts, "\n")
}

func (m appModel) place(box string) string {
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func (m appModel) renderTabs() string {
	active := lipgloss.NewStyle().Padding(0, 1).Bold(true).Foreground(colorSelectedFg).Background(colorSelectedBg)
	idle := lipgloss.NewStyle().Padding(0, 1).Foreground(colorChromeMutedFg)
	var out []string
	for i, t := range m.tabs {
		if i == m.active {
			out = append(out, active.Render(t.title))
		} else {
			out = append(out, idle.Render(t.title))
		}
	}
	bar := strings.Join(out, " ")
	if label := m.git.Label(); label != "" {
		right := styleMuted().Render(label)
		if gap := m.width - xansi.StringWidth(bar) - xansi.StringWidth(label) - 1; gap > 0 {
			bar += strings.Repeat(" ", gap) + right
		}
	}
	return fitBlock(bar, m.width, 1)
}

func (m appModel) renderHeader(t *tab, gutter int, cols []colLayout) string {
	current := m.currentColumn(t)
	b := strings.Builder{}
	b.WriteString(fitBlock("  "+store.AttrUID, gutter, 1))
	for _, lc := range cols {
		st := lipgloss.NewStyle().Bold(true)
		if c, ok := roleColor(t.table.HeaderForeground(lc.col)); ok {
			st = st.Foreground(c)
		}
		if lc.col == current {
			st = st.Underline(true)
		}
		b.WriteString(glyphColSep())
		b.WriteString(st.Render(fitBlock(lc.attr, lc.width, 1)))
	}
	return fitBlock(b.String(), m.width, 1)
}

func (m appModel) renderBody(t *tab, gutter int, cols []colLayout) string {
	bodyH := m.bodyHeight()
	if len(t.rows) == 0 {
		msg := "No items. Press o to add one."
		if t.filter != "" {
			msg = fmt.Sprintf("No rows match %q. Press esc to clear the filter.", t.filter)
		}
		return fitBlock(styleMuted().Render(msg), m.width, bodyH)
	}

	var lines []string
	for i := t.offset; i < len(t.rows) && len(lines) < bodyH; i++ {
		row := m.renderRow(t, i, gutter, cols)
		lines = append(lines, strings.Split(row, "\n")...)
	}
	if len(lines) > bodyH {
		lines = lines[:bodyH]
	}
	return fitBlock(strings.Join(lines, "\n"), m.width, bodyH)
}

func (m appModel) renderRow(t *tab, idx int, gutter int, cols []colLayout) string {
	row := t.rows[idx]
	selected := idx == t.cursor
	current := m.currentColumn(t)
	h := m.rowHeight(t, row, cols)

	mark := "  "
	if selected {
		mark = lipgloss.NewStyle().Foreground(colorAccent).Render(glyphCursor() + " ")
	}
	uid, _ := t.table.Cell(row, 0, projection.RoleRowHeader).(string)
	hdr := lipgloss.NewStyle().Bold(true)
	if c, ok := roleColor(t.table.Cell(row, 0, projection.RoleRowHeaderForeground)); ok {
		hdr = hdr.Foreground(c)
	}
	blocks := []string{fitBlock(mark+hdr.Render(uid), gutter, h)}

	sep := fitBlock(strings.TrimRight(strings.Repeat(glyphColSep()+"\n", h), "\n"), colSepWidth, h)
	for _, lc := range cols {
		st := lipgloss.NewStyle()
		if lc.attr != store.AttrText {
			if c, ok := roleColor(t.table.Cell(row, lc.col, projection.RoleBackground)); ok {
				st = st.Background(c)
			}
			if c, ok := roleColor(t.table.Cell(row, lc.col, projection.RoleForeground)); ok {
				st = st.Foreground(c)
			}
			if selected && lc.col == current {
				st = st.Reverse(true)
			}
		}
		blocks = append(blocks, sep, st.Render(fitBlock(m.cell(t, row, lc), lc.width, h)))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, blocks...)
}

func (m appModel) renderEditor() string {
	t := m.tab()
	title := m.editor.Attr
	if t != nil && m.editRow < t.table.Rows() {
		title = t.table.Item(m.editRow).UID() + " " + glyphDot() + " " + m.editor.Attr
	}
	head := lipgloss.NewStyle().Bold(true).Foreground(colorModalHeaderFg).Background(colorModalHeaderBg).
		Render(fitBlock(" Editing "+title, m.width, 1))
	_, h := m.editorSize()
	body := fitBlock(" "+strings.ReplaceAll(m.editor.View(), "\n", "\n "), m.width, h)
	help := styleMuted().Render(fitBlock(" "+m.editor.Help(), m.width, 1))
	return strings.Join([]string{head, body, help}, "\n")
}

func (m appModel) renderStatus() string {
	if m.mode == modeFilter {
		in := strings.NewReplacer("\n", " ", "\r", " ").Replace(m.filterInput.View())
		return lipgloss.NewStyle().Background(colorInputBg).Render(fitBlock(" "+in, m.width, 1))
	}
	t := m.tab()
	right := "? help"
	left := m.minibufferText
	if t != nil {
		pos := fmt.Sprintf("%d/%d", min(t.cursor+1, len(t.rows)), len(t.rows))
		if t.filter != "" {
			pos = fmt.Sprintf("filter %q  %s", t.filter, pos)
		}
		right = pos + "  " + right
		if left == "" && t.row() >= 0 {
			tip, _ := t.table.Cell(t.row(), 0, projection.RoleToolTip).(string)
			left = strings.ReplaceAll(tip, "\n", "  ")
		}
	}
	gap := m.width - xansi.StringWidth(left) - xansi.StringWidth(right) - 1
	if gap < 1 {
		return fitBlock(left, m.width, 1)
	}
	return fitBlock(left+strings.Repeat(" ", gap)+styleMuted().Render(right), m.width, 1)
}

func (m appModel) renderHelp() string {
	md, _ := docs.Get("keys")
	if t := m.tab(); t != nil {
		if c := m.currentColumn(t); c >= 0 {
			if col, ok := docs.Column(t.table.Column(c)); ok {
				md = col + "\n" + md
			}
		}
	}
	bodyW := modalBodyWidth(m.width)
	text := md
	if res := m.opts.Renderer.Markdown(md, "", bodyW); res.OK() {
		text = strings.Trim(res.Text, "\n")
	}
	lines := strings.Split(text, "\n")
	if limit := m.height - 8; limit > 0 && len(lines) > limit {
		lines = lines[:limit]
	}
	return renderModalBox(m.width, "Keys (any key closes)", strings.Join(lines, "\n"))
}

// fitBlock pads or truncates every line of s to width columns and pads or
// cuts s to height lines (height 0 keeps the line count), so blocks joined
// side by side stay aligned.
func fitBlock(s string, width, height int) string {
	width = max(width, 0)
	lines := strings.Split(s, "\n")
	if height > 0 {
		lines = lines[:min(len(lines), height)]
		for len(lines) < height {
			lines = append(lines, "")
		}
	}
	for i, ln := range lines {
		if xansi.StringWidth(ln) > width {
			ln = xansi.Truncate(ln, width, "…")
		}
		lines[i] = ln + strings.Repeat(" ", max(width-xansi.StringWidth(ln), 0))
	}
	return strings.Join(lines, "\n")
}

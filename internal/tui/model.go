package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"doorhole/internal/edit"
	"doorhole/internal/gitrepo"
	"doorhole/internal/logging"
	"doorhole/internal/projection"
	"doorhole/internal/render"
	"doorhole/internal/store"
)

type mode int

const (
	modeTable mode = iota
	modeEdit
	modeFilter
	modeMenu
	modeConfirm
	modeHelp
)

const minibufferAutoClearAfter = 5 * time.Second

type minibufferClearMsg struct{ seq int }

// tab is one document: its projection, rendered-cell cache and cursor.
type tab struct {
	title string
	table *projection.Table
	cache *render.Cache

	// rows are the projection rows shown, after filtering.
	rows   []int
	filter string
	cursor int
	// col indexes the visible columns.
	col    int
	offset int
}

func (t *tab) row() int {
	if t.cursor < 0 || t.cursor >= len(t.rows) {
		return -1
	}
	return t.rows[t.cursor]
}

func (t *tab) refilter() {
	t.rows = t.table.Filter(t.filter)
	t.clamp()
}

func (t *tab) clamp() {
	if t.cursor >= len(t.rows) {
		t.cursor = len(t.rows) - 1
	}
	if t.cursor < 0 {
		t.cursor = 0
	}
	if t.offset > t.cursor {
		t.offset = t.cursor
	}
}

// selectUID moves the cursor to uid when it is visible.
func (t *tab) selectUID(uid string) {
	r := t.table.RowOf(uid)
	for i, x := range t.rows {
		if x == r {
			t.cursor = i
			return
		}
	}
}

type appModel struct {
	ctx  context.Context
	opts Options
	log  *slog.Logger

	tabs   []*tab
	active int

	width  int
	height int

	mode mode

	editor  *edit.Editor
	editRow int
	editCol int

	filterInput textinput.Model

	menuIndex int

	confirmFocus confirmModalFocus
	confirmUID   string

	minibufferText string
	minibufferSeq  int

	git      gitrepo.Status
	gitStale bool
}

type gitStatusMsg struct{ status gitrepo.Status }

func newAppModel(ctx context.Context, opts Options) appModel {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Log == nil {
		opts.Log = logging.Discard()
	}
	if opts.Renderer == nil {
		opts.Renderer = render.NewTerminal("", nil)
	}
	m := appModel{
		ctx:    ctx,
		opts:   opts,
		log:    opts.Log,
		width:  100,
		height: 30,
	}

	var docs []*store.Document
	if opts.Tree != nil {
		docs = opts.Tree.Documents()
	}
	env := projection.Env{Tree: opts.Tree, Journal: opts.Journal, Log: opts.Log}
	for _, d := range docs {
		t := &tab{
			title: d.Title(),
			table: projection.New(env, d.Prefix),
			cache: render.NewCache(),
		}
		if err := t.table.Load(ctx); err != nil {
			m.showMinibuffer(fmt.Sprintf("%s: %v", d.Prefix, err))
		}
		t.refilter()
		m.tabs = append(m.tabs, t)
	}

	fi := textinput.New()
	fi.Prompt = "/"
	fi.Placeholder = "filter rows"
	m.filterInput = fi
	m.restoreState()
	return m
}

func (m appModel) Init() tea.Cmd { return m.refreshGit() }

// refreshGit reads the repository state off the UI loop.
func (m *appModel) refreshGit() tea.Cmd {
	if m.opts.Tree == nil {
		return nil
	}
	ctx, root, log := m.ctx, m.opts.Tree.Root, m.log
	return func() tea.Msg {
		st, err := gitrepo.GetStatus(ctx, root)
		if err != nil {
			log.Warn("git status failed", "root", root, "err", err)
		}
		return gitStatusMsg{status: st}
	}
}

func (m *appModel) tab() *tab {
	if m.active < 0 || m.active >= len(m.tabs) {
		return nil
	}
	return m.tabs[m.active]
}

func (m *appModel) showMinibuffer(s string) {
	m.minibufferText = s
	m.minibufferSeq++
}

func clearMinibufferAfter(seq int) tea.Cmd {
	return tea.Tick(minibufferAutoClearAfter, func(time.Time) tea.Msg {
		return minibufferClearMsg{seq: seq}
	})
}

// visibleColumns returns the projection column indexes drawn in the
// table. The uid is drawn as the row header instead.
func (m *appModel) visibleColumns(t *tab) []int {
	var out []int
	for i, c := range t.table.Columns() {
		if c == store.AttrUID || m.hidden(c) {
			continue
		}
		out = append(out, i)
	}
	return out
}

func (m *appModel) hidden(col string) bool {
	for _, h := range m.opts.Hidden {
		if strings.EqualFold(h, col) {
			return true
		}
	}
	return false
}

// currentColumn is the projection column under the cursor or -1.
func (m *appModel) currentColumn(t *tab) int {
	cols := m.visibleColumns(t)
	if len(cols) == 0 {
		return -1
	}
	if t.col >= len(cols) {
		t.col = len(cols) - 1
	}
	if t.col < 0 {
		t.col = 0
	}
	return cols[t.col]
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	seq := m.minibufferSeq
	next, cmd := m.update(msg)
	nm, ok := next.(appModel)
	if !ok {
		return next, cmd
	}
	if nm.minibufferSeq != seq && nm.minibufferText != "" {
		cmd = tea.Batch(cmd, clearMinibufferAfter(nm.minibufferSeq))
	}
	if nm.gitStale {
		nm.gitStale = false
		cmd = tea.Batch(cmd, nm.refreshGit())
	}
	return nm, cmd
}

func (m appModel) update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		if m.editor != nil {
			w, h := m.editorSize()
			m.editor.SetSize(w, h)
		}
		if t := m.tab(); t != nil {
			t.cache.Invalidate()
			m.ensureVisible(t)
		}
		return m, nil

	case minibufferClearMsg:
		if msg.seq == m.minibufferSeq {
			m.minibufferText = ""
		}
		return m, nil

	case gitStatusMsg:
		m.git = msg.status
		return m, nil

	case externalEditorDoneMsg:
		m.applyExternalEditorResult(msg)
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case modeEdit:
			return m.updateEdit(msg)
		case modeFilter:
			return m.updateFilter(msg)
		case modeMenu:
			return m.updateMenu(msg)
		case modeConfirm:
			return m.updateConfirm(msg)
		case modeHelp:
			m.mode = modeTable
			return m, nil
		}
		return m.updateTable(msg)
	}

	if m.mode == modeEdit && m.editor != nil {
		_, cmd := m.editor.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m appModel) updateTable(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	t := m.tab()
	switch msg.String() {
	case "ctrl+c", "q":
		m.saveState()
		return m, tea.Quit
	case "?":
		m.mode = modeHelp
		return m, nil
	case "tab":
		if len(m.tabs) > 0 {
			m.active = (m.active + 1) % len(m.tabs)
		}
		return m, nil
	case "shift+tab":
		if len(m.tabs) > 0 {
			m.active = (m.active - 1 + len(m.tabs)) % len(m.tabs)
		}
		return m, nil
	}
	if t == nil {
		return m, nil
	}

	switch msg.String() {
	case "up", "k":
		t.cursor--
	case "down", "j":
		t.cursor++
	case "left", "h":
		if t.col > 0 {
			t.col--
		}
	case "right", "l":
		if t.col < len(m.visibleColumns(t))-1 {
			t.col++
		}
	case "pgup":
		t.cursor -= max(1, m.bodyHeight()/3)
	case "pgdown":
		t.cursor += max(1, m.bodyHeight()/3)
	case "g", "home":
		t.cursor = 0
	case "G", "end":
		t.cursor = len(t.rows) - 1
	case "enter", "e":
		return m, m.startEdit(t)
	case "r":
		m.reload(t)
	case "o":
		m.insert(t, true)
	case "O":
		m.insert(t, false)
	case "n":
		m.toggle(t, store.AttrNormative)
	case "D":
		m.toggle(t, store.AttrDerived)
	case "R":
		m.markReviewed(t)
	case "x":
		m.openConfirmDelete(t)
	case "y":
		m.copyCell(t, false)
	case "Y":
		m.copyCell(t, true)
	case "m":
		m.mode = modeMenu
		m.menuIndex = 0
	case "/":
		m.mode = modeFilter
		m.filterInput.SetValue(t.filter)
		m.filterInput.CursorEnd()
		return m, m.filterInput.Focus()
	case "esc":
		if t.filter != "" {
			t.filter = ""
			t.refilter()
			m.showMinibuffer("Filter cleared")
		}
	}
	t.clamp()
	m.ensureVisible(t)
	return m, nil
}

func (m *appModel) startEdit(t *tab) tea.Cmd {
	row, col := t.row(), m.currentColumn(t)
	if row < 0 || col < 0 {
		return nil
	}
	attr := t.table.Column(col)
	switch attr {
	case store.AttrUID, store.AttrPath, store.AttrRoot:
		m.showMinibuffer(attr + " is read-only")
		return nil
	}
	w, h := m.editorSizeFor(edit.KindFor(attr, t.table.Cell(row, col, projection.RoleEdit)))
	m.editor = edit.New(attr, t.table.Cell(row, col, projection.RoleEdit), w, h)
	m.editRow, m.editCol = row, col
	m.mode = modeEdit
	return nil
}

func (m appModel) updateEdit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.editor == nil {
		m.mode = modeTable
		return m, nil
	}
	if msg.String() == "ctrl+e" && m.editor.Kind() == edit.KindText {
		cmd, err := m.openExternalEditor()
		if err != nil {
			m.showMinibuffer("Editor: " + err.Error())
			return m, nil
		}
		return m, cmd
	}
	out, cmd := m.editor.Update(msg)
	switch out {
	case edit.Commit:
		m.commitEdit()
		return m, nil
	case edit.Cancel:
		m.editor = nil
		m.mode = modeTable
		m.showMinibuffer("Edit cancelled")
		return m, nil
	}
	return m, cmd
}

func (m *appModel) commitEdit() {
	t := m.tab()
	value := m.editor.Value()
	attr := m.editor.Attr
	m.editor = nil
	m.mode = modeTable
	if t == nil {
		return
	}
	m.gitStale = true
	err := t.table.SetCell(m.ctx, m.editRow, m.editCol, value)
	t.cache.InvalidateRow(m.editRow)
	uid := t.table.Item(m.editRow).UID()
	if err != nil {
		m.showMinibuffer(fmt.Sprintf("Not saved: %s %s: %v", uid, attr, err))
		return
	}
	m.showMinibuffer(fmt.Sprintf("Saved %s %s", uid, attr))
	m.ensureVisible(t)
}

func (m appModel) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	t := m.tab()
	switch msg.String() {
	case "esc":
		m.filterInput.Blur()
		m.mode = modeTable
		if t != nil {
			t.filter = ""
			t.refilter()
		}
		return m, nil
	case "enter":
		m.filterInput.Blur()
		m.mode = modeTable
		if t != nil && t.filter != "" {
			m.showMinibuffer(fmt.Sprintf("%d of %d rows match %q", len(t.rows), t.table.Rows(), t.filter))
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)
	if t != nil {
		t.filter = strings.TrimSpace(m.filterInput.Value())
		t.refilter()
		t.cursor, t.offset = 0, 0
	}
	return m, cmd
}

func (m *appModel) reload(t *tab) {
	m.gitStale = true
	err := t.table.Load(m.ctx)
	t.cache.Invalidate()
	t.refilter()
	if err != nil {
		m.showMinibuffer("Reload failed: " + err.Error())
		return
	}
	m.showMinibuffer(fmt.Sprintf("Reloaded %s (%d items)", t.table.Prefix(), t.table.Rows()))
}

func (m *appModel) insert(t *tab, after bool) {
	m.gitStale = true
	row := t.row()
	var (
		it  *store.Item
		err error
	)
	if after {
		it, err = t.table.InsertAfter(m.ctx, row)
	} else {
		it, err = t.table.InsertBefore(m.ctx, row)
	}
	t.cache.Invalidate()
	if err != nil {
		t.refilter()
		m.showMinibuffer("Add failed: " + err.Error())
		return
	}
	// The new item would usually not match the filter.
	t.filter = ""
	t.refilter()
	t.selectUID(it.UID())
	m.showMinibuffer(fmt.Sprintf("Added %s at %s", it.UID(), it.Level()))
}

func (m *appModel) toggle(t *tab, attr string) {
	row := t.row()
	if row < 0 {
		return
	}
	m.gitStale = true
	var err error
	if attr == store.AttrNormative {
		err = t.table.ToggleNormative(m.ctx, row)
	} else {
		err = t.table.ToggleDerived(m.ctx, row)
	}
	t.cache.InvalidateRow(row)
	it := t.table.Item(row)
	if err != nil {
		m.showMinibuffer(fmt.Sprintf("Not saved: %s %s: %v", it.UID(), attr, err))
		return
	}
	m.showMinibuffer(fmt.Sprintf("%s %s: %s", it.UID(), attr, projection.Display(it.Get(attr))))
}

func (m *appModel) markReviewed(t *tab) {
	row := t.row()
	if row < 0 {
		return
	}
	m.gitStale = true
	err := t.table.MarkReviewed(m.ctx, row)
	it := t.table.Item(row)
	if err != nil {
		m.showMinibuffer(fmt.Sprintf("Not saved: %s reviewed: %v", it.UID(), err))
		return
	}
	m.showMinibuffer(it.UID() + " marked as reviewed")
}

func (m *appModel) openConfirmDelete(t *tab) {
	row := t.row()
	if row < 0 {
		return
	}
	m.confirmUID = t.table.Item(row).UID()
	m.confirmFocus = confirmFocusCancel
	m.mode = modeConfirm
}

func (m appModel) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab", "shift+tab", "left", "right", "h", "l":
		if m.confirmFocus == confirmFocusCancel {
			m.confirmFocus = confirmFocusConfirm
		} else {
			m.confirmFocus = confirmFocusCancel
		}
		return m, nil
	case "y":
		m.deleteConfirmed()
		return m, nil
	case "enter":
		if m.confirmFocus == confirmFocusConfirm {
			m.deleteConfirmed()
			return m, nil
		}
	case "esc", "ctrl+g", "n", "q":
	default:
		return m, nil
	}
	m.mode = modeTable
	m.confirmUID = ""
	return m, nil
}

func (m *appModel) deleteConfirmed() {
	m.mode = modeTable
	uid := m.confirmUID
	m.confirmUID = ""
	t := m.tab()
	if t == nil {
		return
	}
	row := t.table.RowOf(uid)
	if row < 0 {
		m.showMinibuffer(uid + " is gone")
		return
	}
	m.gitStale = true
	err := t.table.Delete(m.ctx, row)
	t.cache.Invalidate()
	t.refilter()
	m.ensureVisible(t)
	if err != nil {
		m.showMinibuffer("Delete failed: " + err.Error())
		return
	}
	m.showMinibuffer("Deleted " + uid)
}

package tui

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	xansi "github.com/charmbracelet/x/ansi"

	"doorhole/internal/edit"
	"doorhole/internal/gitrepo"
	"doorhole/internal/journal"
	"doorhole/internal/render"
	"doorhole/internal/store"
	"doorhole/internal/storetest"
)

var testHidden = []string{"path", "root", "ref", "references", "links"}

func newTestModel(t *testing.T) (appModel, string) {
	t.Helper()
	root := storetest.Basic(t)
	tree, err := store.Build(root)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	j, err := journal.Open(context.Background(), filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("journal.Open: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })

	m := newAppModel(context.Background(), Options{
		Tree:     tree,
		Journal:  j,
		Renderer: render.NewTerminal("dark", nil),
		Hidden:   testHidden,
	})
	mm, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return mm.(appModel), root
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "shift+tab":
		return tea.KeyMsg{Type: tea.KeyShiftTab}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func press(t *testing.T, m appModel, keys ...string) appModel {
	t.Helper()
	for _, k := range keys {
		mm, _ := m.Update(keyMsg(k))
		m = mm.(appModel)
	}
	return m
}

// selectCell puts the cursor on uid and the column attr of the active tab.
func selectCell(t *testing.T, m *appModel, uid, attr string) {
	t.Helper()
	tb := m.tab()
	tb.selectUID(uid)
	if got := tb.table.Item(tb.row()).UID(); got != uid {
		t.Fatalf("expected cursor on %s; got %s", uid, got)
	}
	for i, c := range m.visibleColumns(tb) {
		if tb.table.Column(c) == attr {
			tb.col = i
			return
		}
	}
	t.Fatalf("column %s not visible", attr)
}

func reloadItem(t *testing.T, root, uid string) *store.Item {
	t.Helper()
	tree, err := store.Build(root)
	if err != nil {
		t.Fatal(err)
	}
	it, err := tree.FindItem(uid)
	if err != nil {
		t.Fatalf("FindItem(%s): %v", uid, err)
	}
	return it
}

func TestNewAppModel_OneTabPerDocument(t *testing.T) {
	m, _ := newTestModel(t)
	if len(m.tabs) != 2 {
		t.Fatalf("expected 2 tabs; got %d", len(m.tabs))
	}
	if m.tabs[0].title != "SYS" || m.tabs[1].title != "SYS -> REQ" {
		t.Fatalf("unexpected titles %q, %q", m.tabs[0].title, m.tabs[1].title)
	}
	if got := len(m.tabs[1].rows); got != 2 {
		t.Fatalf("expected inactive REQ003 to be hidden; got %d rows", got)
	}
}

func TestNewAppModel_WithoutTree(t *testing.T) {
	m := newAppModel(context.Background(), Options{})
	if len(m.tabs) != 0 {
		t.Fatalf("expected no tabs; got %d", len(m.tabs))
	}
	if m.Init() != nil {
		t.Fatalf("expected no git refresh without a tree")
	}
	if !strings.Contains(m.View(), "No documents found.") {
		t.Fatalf("expected empty-tree notice")
	}
	if err := Run(context.Background(), Options{}); !errors.Is(err, errNoTree) {
		t.Fatalf("expected errNoTree; got %v", err)
	}
}

func TestUpdate_TabSwitchesDocuments(t *testing.T) {
	m, _ := newTestModel(t)
	m = press(t, m, "tab")
	if m.active != 1 {
		t.Fatalf("expected second tab; got %d", m.active)
	}
	m = press(t, m, "tab")
	if m.active != 0 {
		t.Fatalf("expected wrap to first tab; got %d", m.active)
	}
	m = press(t, m, "shift+tab")
	if m.active != 1 {
		t.Fatalf("expected shift+tab to wrap back; got %d", m.active)
	}
}

func TestUpdate_CursorMovementIsClamped(t *testing.T) {
	m, _ := newTestModel(t)
	m = press(t, m, "k")
	if m.tab().cursor != 0 {
		t.Fatalf("expected cursor to stay at 0; got %d", m.tab().cursor)
	}
	m = press(t, m, "j", "down")
	if m.tab().cursor != 2 {
		t.Fatalf("expected cursor 2; got %d", m.tab().cursor)
	}
	m = press(t, m, "j")
	if m.tab().cursor != 2 {
		t.Fatalf("expected cursor clamped to last row; got %d", m.tab().cursor)
	}
	m = press(t, m, "g")
	if m.tab().cursor != 0 {
		t.Fatalf("expected g to jump to first row; got %d", m.tab().cursor)
	}
}

func TestEdit_HeaderCommitWritesItemFile(t *testing.T) {
	m, root := newTestModel(t)
	selectCell(t, &m, "SYS003", store.AttrHeader)

	m = press(t, m, "enter")
	if m.mode != modeEdit || m.editor == nil {
		t.Fatalf("expected edit mode")
	}
	if m.editor.Kind() != edit.KindLine || m.editor.Value() != "Stop" {
		t.Fatalf("expected line editor with current value; got %v %q", m.editor.Kind(), m.editor.Value())
	}
	m.editor.SetValue("Halt")
	m = press(t, m, "enter")

	if m.mode != modeTable || m.editor != nil {
		t.Fatalf("expected editor to close after commit")
	}
	if !strings.Contains(m.minibufferText, "Saved SYS003") {
		t.Fatalf("expected saved message; got %q", m.minibufferText)
	}
	if got := reloadItem(t, root, "SYS003").Header(); got != "Halt" {
		t.Fatalf("expected header on disk; got %q", got)
	}
}

func TestEdit_EscCancelsWithoutWriting(t *testing.T) {
	m, root := newTestModel(t)
	selectCell(t, &m, "SYS003", store.AttrHeader)

	m = press(t, m, "e")
	m.editor.SetValue("Changed")
	m = press(t, m, "esc")

	if m.mode != modeTable {
		t.Fatalf("expected table mode after esc")
	}
	if got := reloadItem(t, root, "SYS003").Header(); got != "Stop" {
		t.Fatalf("expected header unchanged; got %q", got)
	}
}

func TestEdit_BoolChoiceSavesFalse(t *testing.T) {
	m, root := newTestModel(t)
	selectCell(t, &m, "SYS002", store.AttrNormative)

	m = press(t, m, "enter")
	if m.editor.Kind() != edit.KindChoice {
		t.Fatalf("expected choice editor; got %v", m.editor.Kind())
	}
	m = press(t, m, "f", "enter")

	if reloadItem(t, root, "SYS002").Normative() {
		t.Fatalf("expected normative=false on disk")
	}
}

func TestEdit_InvalidIntegerKeepsValue(t *testing.T) {
	m, root := newTestModel(t)
	m = press(t, m, "tab")
	selectCell(t, &m, "REQ001", "priority")

	m = press(t, m, "enter")
	m.editor.SetValue("high")
	m = press(t, m, "enter")

	if !strings.HasPrefix(m.minibufferText, "Not saved") {
		t.Fatalf("expected not-saved message; got %q", m.minibufferText)
	}
	if got := reloadItem(t, root, "REQ001").Get("priority"); got != 2 {
		t.Fatalf("expected priority to stay 2; got %#v", got)
	}
}

func TestInsertAfter_SelectsNewItem(t *testing.T) {
	m, root := newTestModel(t)
	m = press(t, m, "o")

	tb := m.tab()
	if got := tb.table.Item(tb.row()).UID(); got != "SYS004" {
		t.Fatalf("expected cursor on new item SYS004; got %s", got)
	}
	if _, err := os.Stat(filepath.Join(root, "sys", "SYS004.yml")); err != nil {
		t.Fatalf("expected item file: %v", err)
	}
	if len(tb.rows) != 4 {
		t.Fatalf("expected 4 rows; got %d", len(tb.rows))
	}
}

func TestDelete_RequiresConfirmation(t *testing.T) {
	m, root := newTestModel(t)
	path := filepath.Join(root, "sys", "SYS002.yml")
	m = press(t, m, "j", "x")
	if m.mode != modeConfirm || m.confirmUID != "SYS002" {
		t.Fatalf("expected delete confirmation for SYS002; got mode=%v uid=%q", m.mode, m.confirmUID)
	}

	m = press(t, m, "esc")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected esc to keep the item: %v", err)
	}

	// enter on the default (cancel) focus keeps the item too.
	m = press(t, m, "x", "enter")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected enter on cancel to keep the item: %v", err)
	}

	m = press(t, m, "x", "y")
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected item file removed; got %v", err)
	}
	if m.tab().table.RowOf("SYS002") != -1 {
		t.Fatalf("expected SYS002 gone from the table")
	}
}

func TestFilter_NarrowsRowsAndEscClears(t *testing.T) {
	m, _ := newTestModel(t)
	m = press(t, m, "/", "stop")
	if m.mode != modeFilter {
		t.Fatalf("expected filter mode")
	}
	m = press(t, m, "enter")

	tb := m.tab()
	if len(tb.rows) != 1 || tb.table.Item(tb.row()).UID() != "SYS003" {
		t.Fatalf("expected only SYS003; got rows %v", tb.rows)
	}

	m = press(t, m, "esc")
	if got := len(m.tab().rows); got != 3 {
		t.Fatalf("expected filter cleared; got %d rows", got)
	}
}

func TestMenu_HotkeyRunsAction(t *testing.T) {
	m, root := newTestModel(t)
	m = press(t, m, "j", "m")
	if m.mode != modeMenu {
		t.Fatalf("expected menu mode")
	}
	m = press(t, m, "n")
	if m.mode != modeTable {
		t.Fatalf("expected menu to close after action")
	}
	if reloadItem(t, root, "SYS002").Normative() {
		t.Fatalf("expected normative toggled off")
	}
}

func TestMarkReviewed_UpdatesRowHeaderColor(t *testing.T) {
	m, _ := newTestModel(t)
	m = press(t, m, "j", "R")
	tb := m.tab()
	if !tb.table.Item(tb.row()).Reviewed() {
		t.Fatalf("expected SYS002 reviewed")
	}
	if !strings.Contains(m.minibufferText, "reviewed") {
		t.Fatalf("expected reviewed message; got %q", m.minibufferText)
	}
}

func TestQuit(t *testing.T) {
	m, _ := newTestModel(t)
	_, cmd := m.Update(keyMsg("q"))
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg")
	}
}

func TestMinibuffer_ClearsOnlyLatestMessage(t *testing.T) {
	m, _ := newTestModel(t)
	(&m).showMinibuffer("first")
	stale := m.minibufferSeq
	(&m).showMinibuffer("second")

	mm, _ := m.Update(minibufferClearMsg{seq: stale})
	m = mm.(appModel)
	if m.minibufferText != "second" {
		t.Fatalf("expected stale clear to be ignored; got %q", m.minibufferText)
	}
	mm, _ = m.Update(minibufferClearMsg{seq: m.minibufferSeq})
	m = mm.(appModel)
	if m.minibufferText != "" {
		t.Fatalf("expected minibuffer cleared; got %q", m.minibufferText)
	}
}

func TestView_ShowsTabsColumnsAndRows(t *testing.T) {
	m, _ := newTestModel(t)
	out := m.View()
	for _, want := range []string{"SYS -> REQ", "header", "SYS003", "Stop"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected view to contain %q", want)
		}
	}
	if strings.Contains(out, "references") {
		t.Fatalf("expected hidden column to be skipped")
	}

	m = press(t, m, "?")
	if !strings.Contains(m.View(), "Keys") {
		t.Fatalf("expected help modal")
	}
	m = press(t, m, "x")
	if m.mode != modeTable {
		t.Fatalf("expected any key to close help")
	}
}

func TestHelp_ShowsCurrentColumn(t *testing.T) {
	m, _ := newTestModel(t)
	selectCell(t, &m, "SYS003", "level")
	m = press(t, m, "?")
	out := xansi.Strip(m.View())
	if !strings.Contains(out, "Dotted") {
		t.Fatalf("expected the level column help; got %q", out)
	}
}

func TestFitBlock_PadsAndTruncates(t *testing.T) {
	got := fitBlock("abcdef\nx", 4, 3)
	want := "abc…\nx   \n    "
	if got != want {
		t.Fatalf("expected %q; got %q", want, got)
	}
	if got := fitBlock("ab", 0, 0); got != "" {
		t.Fatalf("expected empty block at width 0; got %q", got)
	}
}

func TestCopyCell_UsesClipboardWriter(t *testing.T) {
	var copied []string
	old := clipboardWriter
	clipboardWriter = func(s string) error { copied = append(copied, s); return nil }
	t.Cleanup(func() { clipboardWriter = old })

	m, _ := newTestModel(t)
	selectCell(t, &m, "SYS003", store.AttrHeader)
	m = press(t, m, "y", "Y")

	if strings.Join(copied, ",") != "Stop,SYS003" {
		t.Fatalf("expected header then uid copied; got %v", copied)
	}
	if !strings.Contains(m.minibufferText, "Copied SYS003 uid") {
		t.Fatalf("unexpected message %q", m.minibufferText)
	}
}

func TestInit_ReadsGitStatusAndLabelsTabBar(t *testing.T) {
	m, _ := newTestModel(t)
	if cmd := m.Init(); cmd != nil {
		if _, ok := cmd().(gitStatusMsg); !ok {
			t.Fatalf("expected gitStatusMsg")
		}
	}

	mm, _ := m.Update(gitStatusMsg{status: gitrepo.Status{IsRepo: true, Branch: "main", Changed: []string{"SYS001"}}})
	m = mm.(appModel)
	if !strings.Contains(m.renderTabs(), "main*") {
		t.Fatalf("expected branch label in tab bar; got %q", m.renderTabs())
	}
}

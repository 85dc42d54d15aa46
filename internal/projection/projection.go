// Package projection maps the items of one document onto table rows and
// columns, and writes cell edits back to the item files.
package projection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"doorhole/internal/journal"
	"doorhole/internal/logging"
	"doorhole/internal/store"
)

// ErrCoerce is returned by SetCell when the text cannot be converted to
// the attribute's stored type.
var ErrCoerce = errors.New("cannot convert value")

// StandardColumns lead every table, in this order. Custom attributes
// follow, then the text column.
var StandardColumns = []string{
	store.AttrUID, store.AttrPath, store.AttrRoot, store.AttrNormative, store.AttrDerived,
	store.AttrReviewed, store.AttrLevel, store.AttrHeader, store.AttrRef, store.AttrReferences,
	store.AttrLinks,
}

type Role int

const (
	RoleDisplay Role = iota
	RoleEdit
	RoleBackground
	RoleForeground
	RoleRowHeader
	RoleRowHeaderForeground
	RoleToolTip
)

var (
	ColorInformativeBG = lipgloss.Color("254")
	ColorInformative   = lipgloss.Color("245")
	ColorUnreviewed    = lipgloss.Color("214")
	ColorError         = lipgloss.Color("196")
	ColorOK            = lipgloss.Color("28")
	ColorCustom        = lipgloss.Color("33")
)

// Env is what a Table needs from the application.
type Env struct {
	Tree    *store.Tree
	Journal *journal.Journal
	Log     *slog.Logger
}

// Table is the projection of one document.
type Table struct {
	env    Env
	prefix string

	doc     *store.Document
	columns []string
	items   []*store.Item
	errored map[string]bool
}

func New(env Env, prefix string) *Table {
	if env.Log == nil {
		env.Log = logging.Discard()
	}
	return &Table{env: env, prefix: prefix, columns: Columns(nil)}
}

// Columns returns the column set for items: the standard columns, the
// custom attributes of any item sorted by name, and text.
func Columns(items []*store.Item) []string {
	custom := map[string]bool{}
	for _, it := range items {
		for k := range it.Custom() {
			custom[k] = true
		}
	}
	extra := make([]string, 0, len(custom))
	for k := range custom {
		extra = append(extra, k)
	}
	sort.Strings(extra)

	out := make([]string, 0, len(StandardColumns)+len(extra)+1)
	out = append(out, StandardColumns...)
	out = append(out, extra...)
	return append(out, store.AttrText)
}

// Load re-reads the document from disk and rebuilds rows and columns. A
// document that does not exist yields an empty table.
func (t *Table) Load(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.doc, t.items, t.errored = nil, nil, map[string]bool{}
	t.columns = Columns(nil)

	doc, err := t.env.Tree.FindDocument(t.prefix)
	if err != nil {
		t.env.Log.Warn("document not found", "prefix", t.prefix)
		return nil
	}
	if err := doc.Reload(); err != nil {
		t.env.Log.Error("document reload failed", "prefix", t.prefix, "err", err)
		return fmt.Errorf("reload %s: %w", t.prefix, err)
	}
	t.doc = doc
	t.items = doc.Items()
	t.columns = Columns(t.items)
	t.recheck()
	t.env.Log.Debug("document loaded", "prefix", t.prefix, "rows", len(t.items), "columns", len(t.columns))
	return nil
}

func (t *Table) recheck() {
	t.errored = map[string]bool{}
	if t.doc == nil {
		return
	}
	for _, is := range t.env.Tree.CheckDocument(t.doc) {
		if is.Severity == store.SeverityError {
			t.errored[is.UID] = true
		}
	}
}

func (t *Table) Prefix() string { return t.prefix }
func (t *Table) Document() *store.Document { return t.doc }
func (t *Table) Rows() int { return len(t.items) }
func (t *Table) Columns() []string { return append([]string(nil), t.columns...) }
func (t *Table) Column(col int) string { return t.columns[col] }
func (t *Table) Item(row int) *store.Item { return t.items[row] }

// ColumnIndex returns the index of attr or -1.
func (t *Table) ColumnIndex(attr string) int {
	for i, c := range t.columns {
		if c == attr {
			return i
		}
	}
	return -1
}

// RowOf returns the row showing uid or -1.
func (t *Table) RowOf(uid string) int {
	for i, it := range t.items {
		if strings.EqualFold(it.UID(), uid) {
			return i
		}
	}
	return -1
}

// Cell returns the value of a cell for role: a string for display, tool
// tip and row header, the native value for edit, a lipgloss.Color (or nil)
// for the color roles.
func (t *Table) Cell(row, col int, role Role) any {
	if row < 0 || row >= len(t.items) {
		return nil
	}
	it := t.items[row]
	switch role {
	case RoleDisplay:
		if col < 0 || col >= len(t.columns) {
			return nil
		}
		return Display(it.Get(t.columns[col]))
	case RoleEdit:
		if col < 0 || col >= len(t.columns) {
			return nil
		}
		return it.Get(t.columns[col])
	case RoleBackground:
		if informative(it) {
			return ColorInformativeBG
		}
	case RoleForeground:
		if informative(it) {
			return ColorInformative
		}
	case RoleRowHeader:
		return it.UID()
	case RoleRowHeaderForeground:
		switch {
		case t.errored[it.UID()]:
			return ColorError
		case !it.Reviewed():
			return ColorUnreviewed
		case informative(it):
			return ColorInformative
		}
		return ColorOK
	case RoleToolTip:
		return "Reviewed: " + Display(it.Reviewed()) + "\nNormative: " + Display(it.Normative())
	}
	return nil
}

// HeaderForeground highlights custom attribute columns.
func (t *Table) HeaderForeground(col int) any {
	if col < 0 || col >= len(t.columns) {
		return nil
	}
	if c := t.columns[col]; c != store.AttrText && !store.IsStandard(c) {
		return ColorCustom
	}
	return nil
}

// Informative rows are headings and non-normative items.
func informative(it *store.Item) bool {
	return !it.Normative() || it.Heading()
}

// Display formats a native attribute value. Booleans read True/False so
// that the text round-trips through SetCell.
func Display(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case bool:
		if x {
			return "True"
		}
		return "False"
	case store.Level:
		return x.String()
	case []string:
		return strings.Join(x, ", ")
	case string:
		return x
	}
	return fmt.Sprint(v)
}

// Coerce converts text to the type of current.
func Coerce(current any, text string) (any, error) {
	switch current.(type) {
	case bool:
		return text == "True", nil
	case int:
		n, err := strconv.Atoi(strings.TrimSpace(text))
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not an integer", ErrCoerce, text)
		}
		return n, nil
	}
	return text, nil
}

// SetCell writes text to the attribute of a cell. Nothing is written when
// the coerced value equals the current one. A failed write leaves the item
// as it is on disk.
func (t *Table) SetCell(ctx context.Context, row, col int, text string) error {
	if col < 0 || col >= len(t.columns) {
		return fmt.Errorf("column %d out of range", col)
	}
	return t.SetAttr(ctx, row, t.columns[col], text)
}

// SetAttr is SetCell by attribute name. Attributes no item has yet are
// stored as strings; the next Load adds their column.
func (t *Table) SetAttr(ctx context.Context, row int, attr, text string) error {
	if row < 0 || row >= len(t.items) {
		return fmt.Errorf("row %d out of range", row)
	}
	it := t.items[row]
	value, err := Coerce(it.Get(attr), text)
	if err != nil {
		t.env.Log.Warn("edit rejected", "uid", it.UID(), "attr", attr, "err", err)
		return err
	}
	return t.write(ctx, it, attr, value)
}

func (t *Table) write(ctx context.Context, it *store.Item, attr string, value any) error {
	old := it.Get(attr)
	if Display(old) == Display(value) {
		return nil
	}
	if err := it.Set(attr, value); err != nil {
		t.env.Log.Warn("edit rejected", "uid", it.UID(), "attr", attr, "err", err)
		return err
	}
	if err := it.Save(); err != nil {
		t.env.Log.Error("item not saved, manual edit required", "uid", it.UID(), "path", it.Path(), "err", err)
		return err
	}
	t.env.Log.Debug("item updated", "uid", it.UID(), "attr", attr)
	t.record(ctx, journal.Entry{
		UID:  it.UID(),
		Op:   journal.OpSet,
		Attr: attr,
		Old:  journalValue(old),
		New:  journalValue(it.Get(attr)),
	})
	t.recheck()
	return nil
}

func (t *Table) record(ctx context.Context, e journal.Entry) {
	if t.env.Journal == nil {
		return
	}
	e.Root = t.env.Tree.Root
	e.Document = t.prefix
	if _, err := t.env.Journal.Record(ctx, e); err != nil {
		t.env.Log.Warn("journal write failed", "uid", e.UID, "err", err)
	}
}

func journalValue(v any) any {
	if l, ok := v.(store.Level); ok {
		return l.String()
	}
	return v
}

// InsertBefore adds an item at the level of row; the item at row keeps
// its level.
func (t *Table) InsertBefore(ctx context.Context, row int) (*store.Item, error) {
	if row < 0 || row >= len(t.items) {
		return t.InsertAt(ctx, store.Level{})
	}
	return t.InsertAt(ctx, t.items[row].Level())
}

// InsertAfter adds an item at the level following row: the first child of
// a heading, otherwise the next sibling.
func (t *Table) InsertAfter(ctx context.Context, row int) (*store.Item, error) {
	if row < 0 || row >= len(t.items) {
		return t.InsertAt(ctx, store.Level{})
	}
	return t.InsertAt(ctx, t.items[row].Level().Next())
}

// InsertAt adds an item at level and reloads. A zero level places it
// after the last row.
func (t *Table) InsertAt(ctx context.Context, level store.Level) (*store.Item, error) {
	if t.doc == nil {
		return nil, fmt.Errorf("%s: %w", t.prefix, store.ErrDocumentNotFound)
	}
	it, err := t.env.Tree.AddItem(t.prefix, level)
	if err != nil {
		t.env.Log.Error("add item failed", "prefix", t.prefix, "level", level.String(), "err", err)
		return nil, err
	}
	t.env.Log.Debug("item added", "uid", it.UID(), "level", it.Level().String())
	t.record(ctx, journal.Entry{UID: it.UID(), Op: journal.OpAdd, New: it.Level().String()})
	uid := it.UID()
	if err := t.Load(ctx); err != nil {
		return nil, err
	}
	if r := t.RowOf(uid); r >= 0 {
		return t.items[r], nil
	}
	return it, nil
}

// Delete removes the item file of row. Callers confirm with the user
// first.
func (t *Table) Delete(ctx context.Context, row int) error {
	if row < 0 || row >= len(t.items) {
		return fmt.Errorf("row %d out of range", row)
	}
	it := t.items[row]
	text := it.Text()
	if err := it.Delete(); err != nil {
		t.env.Log.Error("delete failed", "uid", it.UID(), "err", err)
		return err
	}
	t.env.Log.Debug("item deleted", "uid", it.UID())
	t.record(ctx, journal.Entry{UID: it.UID(), Op: journal.OpDelete, Old: text})
	return t.Load(ctx)
}

func (t *Table) ToggleNormative(ctx context.Context, row int) error {
	return t.toggle(ctx, row, store.AttrNormative)
}

func (t *Table) ToggleDerived(ctx context.Context, row int) error {
	return t.toggle(ctx, row, store.AttrDerived)
}

func (t *Table) toggle(ctx context.Context, row int, attr string) error {
	if row < 0 || row >= len(t.items) {
		return fmt.Errorf("row %d out of range", row)
	}
	it := t.items[row]
	cur, _ := it.Get(attr).(bool)
	return t.write(ctx, it, attr, !cur)
}

// MarkReviewed stamps the item of row as reviewed.
func (t *Table) MarkReviewed(ctx context.Context, row int) error {
	if row < 0 || row >= len(t.items) {
		return fmt.Errorf("row %d out of range", row)
	}
	return t.write(ctx, t.items[row], store.AttrReviewed, true)
}

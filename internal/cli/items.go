package cli

import (
	"strings"

	"doorhole/internal/projection"
	"doorhole/internal/store"

	"github.com/spf13/cobra"
)

// itemsTable is the projected table of one document.
type itemsTable struct {
	Document string              `json:"document" yaml:"document"`
	Columns  []string            `json:"columns" yaml:"columns"`
	Rows     []map[string]string `json:"rows" yaml:"rows"`
}

func (t itemsTable) TableHeader() []string { return t.Columns }

func (t itemsTable) TableRows() [][]string {
	out := make([][]string, 0, len(t.Rows))
	for _, r := range t.Rows {
		row := make([]string, len(t.Columns))
		for i, c := range t.Columns {
			row[i] = r[c]
		}
		out = append(out, row)
	}
	return out
}

type itemSummary struct {
	UID    string `json:"uid" yaml:"uid"`
	Level  string `json:"level" yaml:"level"`
	Path   string `json:"path" yaml:"path"`
	Attr   string `json:"attr,omitempty" yaml:"attr,omitempty"`
	Value  string `json:"value,omitempty" yaml:"value,omitempty"`
	Status string `json:"status,omitempty" yaml:"status,omitempty"`
}

func summarize(it *store.Item) itemSummary {
	return itemSummary{UID: it.UID(), Level: it.Level().String(), Path: it.Path()}
}

func newItemsCmd(app *App) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "items <prefix>",
		Short: "Print the table of a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.load(cmd.Context()); err != nil {
				return writeErr(cmd, err)
			}
			t, err := app.table(cmd.Context(), args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			// The uid leads every row like the row header of the TUI.
			cols := []string{store.AttrUID}
			for _, c := range t.Columns() {
				if c == store.AttrUID || (!all && app.cfg.Hidden(c)) {
					continue
				}
				cols = append(cols, c)
			}
			out := itemsTable{Document: t.Prefix(), Columns: cols, Rows: []map[string]string{}}
			for r := 0; r < t.Rows(); r++ {
				row := map[string]string{}
				for _, c := range cols {
					v, _ := t.Cell(r, t.ColumnIndex(c), projection.RoleDisplay).(string)
					row[c] = v
				}
				out.Rows = append(out.Rows, row)
			}
			return writeOut(cmd, app, out)
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Include hidden columns")
	return cmd
}

func newSetCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "set <uid> <attr> <value>",
		Short: "Write one attribute of an item (booleans: True/False)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.load(cmd.Context()); err != nil {
				return writeErr(cmd, err)
			}
			t, row, err := app.itemRow(cmd.Context(), args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			attr := strings.TrimSpace(args[1])
			if err := t.SetAttr(cmd.Context(), row, attr, args[2]); err != nil {
				return writeErr(cmd, err)
			}
			it := t.Item(row)
			out := summarize(it)
			out.Attr = attr
			out.Value = projection.Display(it.Get(attr))
			return writeOut(cmd, app, out)
		},
	}
}

func newAddCmd(app *App) *cobra.Command {
	var after, before, level string

	cmd := &cobra.Command{
		Use:   "add <prefix>",
		Short: "Add an item to a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.load(cmd.Context()); err != nil {
				return writeErr(cmd, err)
			}
			ctx := cmd.Context()
			t, err := app.table(ctx, args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			var it *store.Item
			switch {
			case after != "" || before != "":
				uid := after
				if uid == "" {
					uid = before
				}
				row := t.RowOf(uid)
				if row < 0 {
					return writeErr(cmd, store.ErrItemNotFound)
				}
				if after != "" {
					it, err = t.InsertAfter(ctx, row)
				} else {
					it, err = t.InsertBefore(ctx, row)
				}
			case level != "":
				l, perr := store.ParseLevel(level)
				if perr != nil {
					return writeErr(cmd, perr)
				}
				it, err = t.InsertAt(ctx, l)
			default:
				it, err = t.InsertAt(ctx, store.Level{})
			}
			if err != nil {
				return writeErr(cmd, err)
			}
			out := summarize(it)
			out.Status = "added"
			return writeOut(cmd, app, out)
		},
	}

	cmd.Flags().StringVar(&after, "after", "", "Insert after this uid (first child of a heading)")
	cmd.Flags().StringVar(&before, "before", "", "Insert at the level of this uid")
	cmd.Flags().StringVar(&level, "level", "", "Explicit level (e.g. 1.2 or 2.0 for a heading)")
	cmd.MarkFlagsMutuallyExclusive("after", "before", "level")
	return cmd
}

func newDeleteCmd(app *App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <uid>",
		Short: "Delete an item file (irreversible unless versioned)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return writeErr(cmd, needsConfirmError{uid: args[0]})
			}
			if err := app.load(cmd.Context()); err != nil {
				return writeErr(cmd, err)
			}
			t, row, err := app.itemRow(cmd.Context(), args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			out := summarize(t.Item(row))
			if err := t.Delete(cmd.Context(), row); err != nil {
				return writeErr(cmd, err)
			}
			out.Status = "deleted"
			return writeOut(cmd, app, out)
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the deletion")
	return cmd
}

package cli

import (
	"errors"
	"fmt"
	"time"

	"doorhole/internal/journal"

	"github.com/spf13/cobra"
)

type entryList []journal.Entry

func (l entryList) TableHeader() []string {
	return []string{"at", "uid", "op", "attr", "old", "new"}
}

func (l entryList) TableRows() [][]string {
	out := make([][]string, 0, len(l))
	for _, e := range l {
		out = append(out, []string{
			e.At.Local().Format(time.DateTime),
			e.UID,
			string(e.Op),
			e.Attr,
			short(e.Old),
			short(e.New),
		})
	}
	return out
}

func short(v any) string {
	if v == nil {
		return ""
	}
	s := fmt.Sprint(v)
	if r := []rune(s); len(r) > 40 {
		return string(r[:39]) + "…"
	}
	return s
}

func newHistoryCmd(app *App) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [uid]",
		Short: "List edits recorded in the local journal, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.load(cmd.Context()); err != nil {
				return writeErr(cmd, err)
			}
			if app.journal == nil {
				return writeErr(cmd, errors.New("journal is disabled or unavailable (see journal.enabled in config)"))
			}
			uid := ""
			if len(args) == 1 {
				uid = args[0]
			}
			es, err := app.journal.List(cmd.Context(), app.tree.Root, uid, limit)
			if err != nil {
				return writeErr(cmd, err)
			}
			if es == nil {
				es = []journal.Entry{}
			}
			return writeOut(cmd, app, entryList(es))
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of entries (0: all)")
	return cmd
}

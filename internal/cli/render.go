package cli

import (
	"fmt"
	"os"

	"doorhole/internal/render"

	"github.com/spf13/cobra"
)

func newRenderCmd(app *App) *cobra.Command {
	var asHTML bool
	var width int

	cmd := &cobra.Command{
		Use:   "render <uid>",
		Short: "Print the formatted body of an item as shown in the table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.load(cmd.Context()); err != nil {
				return writeErr(cmd, err)
			}
			it, err := app.tree.FindItem(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}

			var out string
			if asHTML {
				h := render.NewHTML(app.diagrams(), "")
				res := h.Render(cmd.Context(), it)
				out = res.Text
				if !res.OK() {
					app.log.Warn("render failed", "uid", it.UID(), "err", res.Err)
					out = h.Fallback(it, res.Err)
				}
			} else {
				term := render.NewTerminal(app.cfg.Theme, app.diagrams())
				res := term.Render(cmd.Context(), it, width)
				out = res.Text
				if !res.OK() {
					app.log.Warn("render failed", "uid", it.UID(), "err", res.Err)
					out = term.Fallback(it, res.Err, width)
				}
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
			return err
		},
	}

	cmd.Flags().BoolVar(&asHTML, "html", false, "Render HTML instead of terminal text")
	cmd.Flags().IntVar(&width, "width", 80, "Wrap width for terminal text")
	return cmd
}

func newExportCmd(app *App) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export <prefix>",
		Short: "Write a document as a single HTML page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.load(cmd.Context()); err != nil {
				return writeErr(cmd, err)
			}
			doc, err := app.tree.FindDocument(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			h := render.NewHTML(app.diagrams(), "")
			items := doc.Items()
			sections := make([]string, 0, len(items))
			failed := 0
			for _, it := range items {
				res := h.Render(cmd.Context(), it)
				if !res.OK() {
					failed++
					app.log.Warn("render failed", "uid", it.UID(), "err", res.Err)
					sections = append(sections, h.Fallback(it, res.Err))
					continue
				}
				sections = append(sections, res.Text)
			}
			page := render.Page(doc.Title(), sections)

			if out == "" {
				_, err := fmt.Fprint(cmd.OutOrStdout(), page)
				return err
			}
			if err := os.WriteFile(out, []byte(page), 0o644); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{
				"document": doc.Prefix,
				"path":     out,
				"items":    len(items),
				"failed":   failed,
			})
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default: stdout)")
	return cmd
}

package cli

import (
	"doorhole/internal/publish"

	"github.com/spf13/cobra"
)

type publishResult struct {
	To string `json:"to" yaml:"to"`
	publish.Result `yaml:",inline"`
}

func (r publishResult) TableHeader() []string { return []string{"written"} }

func (r publishResult) TableRows() [][]string {
	out := make([][]string, 0, len(r.Written))
	for _, p := range r.Written {
		out = append(out, []string{p})
	}
	return out
}

func newPublishCmd(app *App) *cobra.Command {
	var to string
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "publish [prefix]",
		Short: "Write markdown pages (an index plus one page per item) for one or all documents",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.load(cmd.Context()); err != nil {
				return writeErr(cmd, err)
			}
			opt := publish.Options{Overwrite: overwrite}
			var (
				res publish.Result
				err error
			)
			if len(args) == 1 {
				doc, ferr := app.tree.FindDocument(args[0])
				if ferr != nil {
					return writeErr(cmd, ferr)
				}
				res, err = publish.WriteDocument(app.tree, doc, to, opt)
			} else {
				res, err = publish.WriteTree(app.tree, to, opt)
			}
			if err != nil {
				return writeErr(cmd, err)
			}
			app.log.Info("published", "to", to, "files", len(res.Written))
			return writeOut(cmd, app, publishResult{To: to, Result: res})
		},
	}

	cmd.Flags().StringVar(&to, "to", "", "Output directory")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace existing files")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

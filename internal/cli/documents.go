package cli

import (
	"strconv"

	"github.com/spf13/cobra"
)

type documentInfo struct {
	Prefix string `json:"prefix" yaml:"prefix"`
	Parent string `json:"parent,omitempty" yaml:"parent,omitempty"`
	Title  string `json:"title" yaml:"title"`
	Path   string `json:"path" yaml:"path"`
	Items  int    `json:"items" yaml:"items"`
}

type documentList []documentInfo

func (l documentList) TableHeader() []string {
	return []string{"prefix", "parent", "path", "items"}
}

func (l documentList) TableRows() [][]string {
	out := make([][]string, 0, len(l))
	for _, d := range l {
		out = append(out, []string{d.Prefix, d.Parent, d.Path, strconv.Itoa(d.Items)})
	}
	return out
}

func newDocumentsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "documents",
		Aliases: []string{"ls"},
		Short:   "List the documents of the tree, parents first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.load(cmd.Context()); err != nil {
				return writeErr(cmd, err)
			}
			out := documentList{}
			for _, d := range app.tree.Documents() {
				out = append(out, documentInfo{
					Prefix: d.Prefix,
					Parent: d.Parent,
					Title:  d.Title(),
					Path:   d.Path,
					Items:  len(d.Items()),
				})
			}
			return writeOut(cmd, app, out)
		},
	}
}

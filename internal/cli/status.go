package cli

import (
	"strconv"
	"strings"

	"doorhole/internal/gitrepo"

	"github.com/spf13/cobra"
)

type treeStatus struct {
	Root      string         `json:"root" yaml:"root"`
	Documents int            `json:"documents" yaml:"documents"`
	Items     int            `json:"items" yaml:"items"`
	Journal   string         `json:"journal,omitempty" yaml:"journal,omitempty"`
	Git       gitrepo.Status `json:"git" yaml:"git"`
}

func (s treeStatus) TableHeader() []string { return []string{"key", "value"} }

func (s treeStatus) TableRows() [][]string {
	rows := [][]string{
		{"root", s.Root},
		{"documents", strconv.Itoa(s.Documents)},
		{"items", strconv.Itoa(s.Items)},
		{"journal", s.Journal},
	}
	if !s.Git.IsRepo {
		return append(rows, []string{"git", "not a repository"})
	}
	rows = append(rows,
		[]string{"branch", s.Git.Label()},
		[]string{"head", s.Git.Head},
	)
	if s.Git.Upstream != "" {
		rows = append(rows, []string{"upstream", s.Git.Upstream + " +" + strconv.Itoa(s.Git.Ahead) + "/-" + strconv.Itoa(s.Git.Behind)})
	}
	return append(rows, []string{"changed", strings.Join(s.Git.Changed, ", ")})
}

func newStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the tree root, item counts and uncommitted item files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.load(cmd.Context()); err != nil {
				return writeErr(cmd, err)
			}
			out := treeStatus{Root: app.tree.Root, Documents: len(app.tree.Documents())}
			for _, d := range app.tree.Documents() {
				out.Items += len(d.Items())
			}
			if app.journal != nil {
				out.Journal = app.journal.Path()
			}
			st, err := gitrepo.GetStatus(cmd.Context(), app.tree.Root)
			if err != nil {
				app.log.Warn("git status failed", "root", app.tree.Root, "err", err)
			}
			out.Git = st
			return writeOut(cmd, app, out)
		},
	}
}

package cli

import (
	"fmt"

	"doorhole/internal/store"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

type issueList []store.Issue

func (l issueList) TableHeader() []string {
	return []string{"uid", "document", "severity", "message"}
}

func (l issueList) TableRows() [][]string {
	out := make([][]string, 0, len(l))
	for _, i := range l {
		out = append(out, []string{i.UID, i.Document, string(i.Severity), i.Message})
	}
	return out
}

func newCheckCmd(app *App) *cobra.Command {
	var prefix string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the tree; exits non-zero when errors are found",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.load(cmd.Context()); err != nil {
				return writeErr(cmd, err)
			}
			var issues issueList
			if prefix != "" {
				doc, err := app.tree.FindDocument(prefix)
				if err != nil {
					return writeErr(cmd, err)
				}
				issues = app.tree.CheckDocument(doc)
			} else {
				issues = app.tree.Check()
			}
			if issues == nil {
				issues = issueList{}
			}

			errs := 0
			for _, i := range issues {
				if i.Severity == store.SeverityError {
					errs++
				}
			}

			if app.Format == "table" {
				printIssues(cmd, issues)
			} else if err := writeOut(cmd, app, issues); err != nil {
				return err
			}
			if errs > 0 {
				return writeErr(cmd, checkFailedError{errors: errs})
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&prefix, "document", "", "Only check this document")
	return cmd
}

func printIssues(cmd *cobra.Command, issues issueList) {
	w := cmd.OutOrStdout()
	warn := color.New(color.FgYellow)
	bad := color.New(color.FgRed, color.Bold)
	ok := color.New(color.FgGreen)
	for _, i := range issues {
		c := warn
		if i.Severity == store.SeverityError {
			c = bad
		}
		fmt.Fprintf(w, "%s: %s %s\n", i.UID, c.Sprint(string(i.Severity)+":"), i.Message)
	}
	if len(issues) == 0 {
		fmt.Fprintln(w, ok.Sprint("valid tree"))
	}
}

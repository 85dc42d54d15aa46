// Package tui is the interactive editor: one tab per document, each a
// table of items with an inline cell editor.
package tui

import (
	"context"
	"errors"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	"doorhole/internal/journal"
	"doorhole/internal/render"
	"doorhole/internal/store"
)

type Options struct {
	Tree     *store.Tree
	Journal  *journal.Journal
	Log      *slog.Logger
	Renderer *render.Terminal
	// Hidden columns are not drawn; the uid is always the row header.
	Hidden []string
	// StatePath stores the last document and cursor per tree. Empty
	// disables it.
	StatePath string
}

var errNoTree = errors.New("tui: no requirements tree")

func Run(ctx context.Context, opts Options) error {
	if opts.Tree == nil {
		return errNoTree
	}
	applyColorProfilePreference()
	applyGlyphPreference()
	theme := ""
	if opts.Renderer != nil {
		theme = opts.Renderer.Theme
	}
	applyThemePreference(theme)

	m := newAppModel(ctx, opts)
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}

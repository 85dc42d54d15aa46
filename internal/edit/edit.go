// Package edit holds the per-cell editor: which widget a column gets, how
// it is pre-populated, and how its value is read back on commit.
package edit

import (
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"doorhole/internal/projection"
	"doorhole/internal/store"
)

type Kind int

const (
	// KindLine is a single-line editor.
	KindLine Kind = iota
	// KindText is the multi-line editor of the text column.
	KindText
	// KindChoice selects one of a fixed set of values.
	KindChoice
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindChoice:
		return "choice"
	}
	return "line"
}

// KindFor picks the editor for a column given the current native value.
func KindFor(attr string, current any) Kind {
	if attr == store.AttrText {
		return KindText
	}
	if _, ok := current.(bool); ok {
		return KindChoice
	}
	return KindLine
}

// Outcome is what a key did to the editor.
type Outcome int

const (
	Continue Outcome = iota
	Commit
	Cancel
)

// Editor edits one cell.
type Editor struct {
	Attr string

	kind    Kind
	line    textinput.Model
	area    textarea.Model
	choices []string
	choice  int
}

// New opens an editor for attr pre-populated from current: raw text for
// the text column, the level string for level, the selection for booleans
// and the display value otherwise.
func New(attr string, current any, width, height int) *Editor {
	e := &Editor{Attr: attr, kind: KindFor(attr, current)}
	switch e.kind {
	case KindText:
		ta := textarea.New()
		ta.ShowLineNumbers = false
		ta.CharLimit = 0
		ta.MaxHeight = 0
		ta.Prompt = ""
		s, _ := current.(string)
		ta.SetValue(s)
		ta.Focus()
		e.area = ta
	case KindChoice:
		e.choices = []string{"True", "False"}
		if b, _ := current.(bool); !b {
			e.choice = 1
		}
	default:
		ti := textinput.New()
		ti.Prompt = ""
		ti.CharLimit = 0
		if l, ok := current.(store.Level); ok {
			// An empty line editor would otherwise be shown for levels.
			ti.SetValue(l.String())
		} else {
			ti.SetValue(projection.Display(current))
		}
		ti.Focus()
		e.line = ti
	}
	e.SetSize(width, height)
	return e
}

func (e *Editor) Kind() Kind { return e.kind }

func (e *Editor) SetSize(width, height int) {
	if width < 10 {
		width = 10
	}
	if height < 1 {
		height = 1
	}
	switch e.kind {
	case KindText:
		e.area.SetWidth(width)
		e.area.SetHeight(height)
	case KindLine:
		e.line.Width = width
	}
}

// Value extracts the edited text according to the editor kind.
func (e *Editor) Value() string {
	switch e.kind {
	case KindText:
		return e.area.Value()
	case KindChoice:
		return e.choices[e.choice]
	}
	return e.line.Value()
}

// SetValue replaces the content, used after an external editor returns.
func (e *Editor) SetValue(s string) {
	switch e.kind {
	case KindText:
		e.area.SetValue(s)
	case KindChoice:
		for i, c := range e.choices {
			if c == s {
				e.choice = i
			}
		}
	default:
		e.line.SetValue(s)
	}
}

// Update handles a message. Enter commits line and choice editors; the
// multi-line editor commits with ctrl+s so enter can insert newlines.
func (e *Editor) Update(msg tea.Msg) (Outcome, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok {
		switch km.String() {
		case "esc", "ctrl+g":
			return Cancel, nil
		case "ctrl+s":
			return Commit, nil
		case "enter":
			if e.kind != KindText {
				return Commit, nil
			}
		}
		if e.kind == KindChoice {
			switch km.String() {
			case "left", "right", "up", "down", "h", "l", "j", "k", "tab", "shift+tab", " ":
				e.choice = (e.choice + 1) % len(e.choices)
			case "t", "T", "y":
				e.choice = 0
			case "f", "F", "n":
				e.choice = 1
			}
			return Continue, nil
		}
	}
	var cmd tea.Cmd
	switch e.kind {
	case KindText:
		e.area, cmd = e.area.Update(msg)
	case KindLine:
		e.line, cmd = e.line.Update(msg)
	}
	return Continue, cmd
}

var (
	choiceStyle    = lipgloss.NewStyle().Padding(0, 1)
	choiceSelected = choiceStyle.Reverse(true).Bold(true)
)

func (e *Editor) View() string {
	switch e.kind {
	case KindText:
		return e.area.View()
	case KindChoice:
		parts := make([]string, len(e.choices))
		for i, c := range e.choices {
			if i == e.choice {
				parts[i] = choiceSelected.Render(c)
			} else {
				parts[i] = choiceStyle.Render(c)
			}
		}
		return strings.Join(parts, " ")
	}
	return e.line.View()
}

// Help is the key hint shown under the editor.
func (e *Editor) Help() string {
	switch e.kind {
	case KindText:
		return "ctrl+s: save   ctrl+e: $EDITOR   esc: cancel"
	case KindChoice:
		return "←/→: choose   enter: save   esc: cancel"
	}
	return "enter: save   esc: cancel"
}

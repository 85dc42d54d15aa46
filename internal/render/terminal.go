package render

import (
	"context"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"

	"doorhole/internal/diagram"
)

// Terminal renders cells with glamour.
type Terminal struct {
	// Theme is auto|light|dark.
	Theme    string
	Diagrams *diagram.Renderer

	mu sync.Mutex
	// Creating a renderer with WithAutoStyle can trigger terminal queries
	// that block on some terminals, so renderers use a fixed style and are
	// cached by style, width and base directory.
	renderers map[string]*glamour.TermRenderer
}

func NewTerminal(theme string, diagrams *diagram.Renderer) *Terminal {
	return &Terminal{Theme: theme, Diagrams: diagrams, renderers: map[string]*glamour.TermRenderer{}}
}

// Render renders the composed markdown of src at width.
func (t *Terminal) Render(ctx context.Context, src Source, width int) Result {
	base := BaseDir(src)
	md, err := replaceDiagrams(ctx, Compose(src), base, t.Diagrams)
	if err != nil {
		return Result{Err: err}
	}
	return t.Markdown(md, base, width)
}

// Fallback renders the banner plus the raw composed markdown without
// diagram processing. It never fails: glamour errors yield plain text.
func (t *Terminal) Fallback(src Source, cause error, width int) string {
	md := WithBanner(cause, Compose(src))
	res := t.Markdown(md, BaseDir(src), width)
	if res.Err != nil {
		return md
	}
	return res.Text
}

// Markdown renders md with relative links resolved against base.
func (t *Terminal) Markdown(md string, base string, width int) Result {
	md = strings.TrimSpace(md)
	if md == "" {
		return Result{}
	}
	if width < 10 {
		width = 10
	}
	r, err := t.renderer(width, base)
	if err != nil {
		return Result{Err: err}
	}
	out, err := r.Render(md)
	if err != nil {
		return Result{Err: err}
	}
	return Result{Text: strings.Trim(out, "\n")}
}

func (t *Terminal) renderer(width int, base string) (*glamour.TermRenderer, error) {
	styleName := t.style()
	key := styleName + ":" + strconv.Itoa(width) + ":" + base

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.renderers == nil {
		t.renderers = map[string]*glamour.TermRenderer{}
	}
	if r := t.renderers[key]; r != nil {
		return r, nil
	}

	cfg := StyleConfig(styleName)
	zero := uint(0)
	// Cells are tight; the document margin would waste two columns.
	cfg.Document.Margin = &zero
	opts := []glamour.TermRendererOption{
		glamour.WithStyles(cfg),
		glamour.WithWordWrap(width),
	}
	if base != "" {
		opts = append(opts, glamour.WithBaseURL("file://"+base+"/"))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return nil, err
	}
	t.renderers[key] = r
	return r, nil
}

func (t *Terminal) style() string {
	// Explicit override for debugging / accessibility.
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DOORHOLE_MD_STYLE"))) {
	case "light":
		return "light"
	case "dark":
		return "dark"
	}
	switch strings.ToLower(strings.TrimSpace(t.Theme)) {
	case "light":
		return "light"
	case "dark":
		return "dark"
	}
	// COLORFGBG is often "fg;bg" (e.g. "15;0" => dark bg). Prefer it over
	// terminal queries, which can block.
	if v := strings.TrimSpace(os.Getenv("COLORFGBG")); v != "" {
		parts := strings.Split(v, ";")
		if bg, err := strconv.Atoi(strings.TrimSpace(parts[len(parts)-1])); err == nil {
			// Common xterm palette: 0-6 dark colors, 7-15 light colors.
			if bg >= 7 {
				return "light"
			}
			return "dark"
		}
	}
	if lipgloss.HasDarkBackground() {
		return "dark"
	}
	return "light"
}

// StyleConfig returns the glamour style for light or dark terminals with
// headings kept in the body text color.
func StyleConfig(styleName string) ansi.StyleConfig {
	cfg := styles.DarkStyleConfig
	fg := "252"
	if strings.EqualFold(strings.TrimSpace(styleName), "light") {
		cfg = styles.LightStyleConfig
		fg = "235"
	}
	cfg.Heading.Color = &fg
	cfg.H1.Color = &fg
	cfg.H2.Color = &fg
	cfg.H3.Color = &fg
	cfg.H4.Color = &fg
	cfg.H5.Color = &fg
	cfg.H6.Color = &fg
	// H1 in the stock styles is a reverse-video banner, too loud in a cell.
	cfg.H1.BackgroundColor = nil
	cfg.Text.Color = &fg
	return cfg
}

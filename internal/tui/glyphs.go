package tui

import (
	"os"
	"strings"
	"sync"
)

// Some fonts render box-drawing characters badly. DOORHOLE_TUI_GLYPHS=ascii
// switches the table chrome to plain ASCII.

type glyphSet int

const (
	glyphSetUnicode glyphSet = iota
	glyphSetASCII
)

var (
	glyphsMu      sync.RWMutex
	currentGlyphs = glyphSetUnicode
)

func applyGlyphPreference() {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DOORHOLE_TUI_GLYPHS"))) {
	case "", "unicode", "utf8":
		setGlyphs(glyphSetUnicode)
	case "ascii":
		setGlyphs(glyphSetASCII)
	}
}

func setGlyphs(gs glyphSet) {
	glyphsMu.Lock()
	currentGlyphs = gs
	glyphsMu.Unlock()
}

func glyphs() glyphSet {
	glyphsMu.RLock()
	defer glyphsMu.RUnlock()
	return currentGlyphs
}

func glyphCursor() string {
	if glyphs() == glyphSetASCII {
		return ">"
	}
	return "▸"
}

// glyphColSep is always three cells wide.
func glyphColSep() string {
	if glyphs() == glyphSetASCII {
		return " | "
	}
	return " │ "
}

func glyphHRule() string {
	if glyphs() == glyphSetASCII {
		return "-"
	}
	return "─"
}

func glyphDot() string {
	if glyphs() == glyphSetASCII {
		return "-"
	}
	return "·"
}

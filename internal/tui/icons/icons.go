// ABOUTME: Glyphs for the catalog browser header, detail line and status messages
// ABOUTME: Uses Nerd Font glyphs when the terminal has them, plain Unicode otherwise

package icons

import (
	"os"
	"strings"
	"sync"
)

// nerdTerminals ship or commonly run with a patched font
var nerdTerminals = []string{"iTerm.app", "WezTerm", "kitty", "ghostty", "alacritty"}

var (
	nerdOnce sync.Once
	nerd     bool
)

// detect reads SHELF_NERD_FONTS first; unset means guess from the terminal
func detect(getenv func(string) string) bool {
	switch strings.ToLower(getenv("SHELF_NERD_FONTS")) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	}
	program, term := getenv("TERM_PROGRAM"), strings.ToLower(getenv("TERM"))
	for _, t := range nerdTerminals {
		if program == t || strings.Contains(term, strings.ToLower(t)) {
			return true
		}
	}
	return false
}

func nerdFonts() bool {
	nerdOnce.Do(func() { nerd = detect(os.Getenv) })
	return nerd
}

// Icon is a glyph with a plain fallback
type Icon struct {
	NerdFont string
	Fallback string
}

func (i Icon) String() string {
	if nerdFonts() {
		return i.NerdFont
	}
	return i.Fallback
}

var (
	App      = Icon{"󰂺", "◈"}
	Book     = Icon{"󰂿", "▤"}
	Category = Icon{"󰓹", "◇"}
	User     = Icon{"󰀄", "☺"}
	Coins    = Icon{"󰆫", "●"}

	CheckOK  = Icon{"󰗠", "✓"}
	Warning  = Icon{"󰀦", "⚠"}
	Critical = Icon{"󰅙", "✗"}
)

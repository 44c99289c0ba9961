package views

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// hexColor formats c for a tview style tag.
func hexColor(c tcell.Color) string {
	return fmt.Sprintf("#%06x", c.Hex())
}

// display prepares user-supplied text for a tview widget: runes that break
// cell width calculations are dropped and style tags are escaped.
func display(s string) string {
	return tview.Escape(sanitizeForTerminal(s))
}

// sanitizeForTerminal drops emoji modifiers and joiners that make tcell
// miscount cell widths, and control characters other than newline and tab.
// A thumbs-up with a skin tone renders as a plain two-cell thumbs-up.
func sanitizeForTerminal(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if !isProblematicRune(r) {
			b.WriteRune(r)
		}
		i += size
	}
	return b.String()
}

func isProblematicRune(r rune) bool {
	switch {
	case r == '\n' || r == '\t':
		return false
	case unicode.IsControl(r):
		return true
	// Skin tone modifiers.
	case r >= 0x1F3FB && r <= 0x1F3FF:
		return true
	// Zero width joiner.
	case r == 0x200D:
		return true
	// Variation selectors and their supplement.
	case r >= 0xFE00 && r <= 0xFE0F, r >= 0xE0100 && r <= 0xE01EF:
		return true
	default:
		return false
	}
}

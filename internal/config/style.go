package config

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
)

// Style holds the colours of the chat screen as tcell colour names or
// #rrggbb values.
type Style struct {
	BubbleSelf  string `toml:"bubble_self"`
	BubbleOther string `toml:"bubble_other"`
	TextSelf    string `toml:"text_self"`
	TextOther   string `toml:"text_other"`
	Background  string `toml:"background"`
	SendButton  string `toml:"send_button"`
}

// DefaultStyle mirrors the demo palette; the send button shares the
// self bubble colour.
func DefaultStyle() Style {
	return Style{
		BubbleSelf:  "#dcf8c6",
		BubbleOther: "white",
		TextSelf:    "black",
		TextOther:   "black",
		Background:  "#ece5dd",
		SendButton:  "#dcf8c6",
	}
}

// Merge returns s with empty fields taken from fallback.
func (s Style) Merge(fallback Style) Style {
	pick := func(v, f string) string {
		if v == "" {
			return f
		}
		return v
	}
	return Style{
		BubbleSelf:  pick(s.BubbleSelf, fallback.BubbleSelf),
		BubbleOther: pick(s.BubbleOther, fallback.BubbleOther),
		TextSelf:    pick(s.TextSelf, fallback.TextSelf),
		TextOther:   pick(s.TextOther, fallback.TextOther),
		Background:  pick(s.Background, fallback.Background),
		SendButton:  pick(s.SendButton, fallback.SendButton),
	}
}

// Validate reports the first colour tcell cannot resolve.
func (s Style) Validate() error {
	fields := []struct{ key, value string }{
		{"bubble_self", s.BubbleSelf},
		{"bubble_other", s.BubbleOther},
		{"text_self", s.TextSelf},
		{"text_other", s.TextOther},
		{"background", s.Background},
		{"send_button", s.SendButton},
	}
	for _, f := range fields {
		if f.value == "" || f.value == "default" {
			continue
		}
		if tcell.GetColor(f.value) == tcell.ColorDefault {
			return fmt.Errorf("%s: unknown colour %q", f.key, f.value)
		}
	}
	return nil
}

// Colors resolves the style to tcell colours.
func (s Style) Colors() Palette {
	return Palette{
		BubbleSelf:  tcell.GetColor(s.BubbleSelf),
		BubbleOther: tcell.GetColor(s.BubbleOther),
		TextSelf:    tcell.GetColor(s.TextSelf),
		TextOther:   tcell.GetColor(s.TextOther),
		Background:  tcell.GetColor(s.Background),
		SendButton:  tcell.GetColor(s.SendButton),
	}
}

// Palette is a Style resolved to terminal colours.
type Palette struct {
	BubbleSelf  tcell.Color
	BubbleOther tcell.Color
	TextSelf    tcell.Color
	TextOther   tcell.Color
	Background  tcell.Color
	SendButton  tcell.Color
}

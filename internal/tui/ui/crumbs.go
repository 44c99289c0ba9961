package ui

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// Crumbs shows the navigation path, e.g. "Rooms > Room by alice > Details".
type Crumbs struct {
	*tview.TextView
	theme *Theme
}

// NewCrumbs creates an empty breadcrumb bar.
func NewCrumbs(theme *Theme) *Crumbs {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)

	return &Crumbs{
		TextView: tv,
		theme:    theme,
	}
}

// Update renders the labels; the last one is the active page.
func (c *Crumbs) Update(labels []string) {
	c.Clear()
	if len(labels) == 0 {
		return
	}
	_, _ = fmt.Fprint(c, c.render(labels))
}

func (c *Crumbs) render(labels []string) string {
	parts := make([]string, len(labels))
	last := len(labels) - 1
	for i, label := range labels {
		fg, bg, attr := c.theme.CrumbInactiveFg, c.theme.CrumbInactiveBg, ""
		if i == last {
			fg, bg, attr = c.theme.CrumbActiveFg, c.theme.CrumbActiveBg, "b"
		}
		parts[i] = fmt.Sprintf("[%s:%s:%s] %s [-:-:-]", colorName(fg), colorName(bg), attr, tview.Escape(label))
	}
	return strings.Join(parts, " ")
}

// colorName returns a colour usable inside a tview style tag.
func colorName(c tcell.Color) string {
	for name, val := range tcell.ColorNames {
		if val == c {
			return name
		}
	}
	return fmt.Sprintf("#%06x", c.Hex())
}

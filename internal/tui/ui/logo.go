package ui

import (
	"fmt"

	"github.com/rivo/tview"
)

// Logo is the small banner in the top right corner.
type Logo struct {
	*tview.TextView
	theme *Theme
}

// NewLogo creates the banner.
func NewLogo(theme *Theme) *Logo {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignRight)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 0, 1)

	l := &Logo{
		TextView: tv,
		theme:    theme,
	}
	_, _ = fmt.Fprint(l, Banner(theme))
	return l
}

// Banner returns the coloured logo text; the login page shows it too.
func Banner(theme *Theme) string {
	title := colorName(theme.TitleColor)
	fg := colorName(theme.FgColor)
	return fmt.Sprintf(
		"[%s::b]╦  ╦╔╗ ╦═╗╔═╗╦═╗╦ ╦[-:-:-]\n"+
			"[%s::b]║  ║╠╩╗╠╦╝╠═╣╠╦╝╚╦╝[-:-:-]\n"+
			"[%s::b]╩═╝╩╚═╝╩╚═╩ ╩╩╚═ ╩ [-:-:-]\n"+
			"[%s]chat[-:-:-]",
		title, title, title, fg,
	)
}

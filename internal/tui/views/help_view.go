package views

import (
	"fmt"

	"github.com/avitalVissoky/ChatLibrary/internal/tui/ui"
	"github.com/rivo/tview"
)

// HelpView lists the key bindings and commands.
type HelpView struct {
	*tview.TextView
	theme *ui.Theme
}

// NewHelpView creates the help page.
func NewHelpView(theme *ui.Theme) *HelpView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Help ")
	tv.SetTitleColor(theme.TitleColor)

	hv := &HelpView{
		TextView: tv,
		theme:    theme,
	}
	hv.render()
	return hv
}

// Name implements ui.Component.
func (hv *HelpView) Name() string { return "Help" }

// Hints implements ui.Component.
func (hv *HelpView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Esc", Description: "Back"},
	}
}

type helpEntry struct{ key, text string }

var helpSections = []struct {
	title   string
	entries []helpEntry
}{
	{"Global", []helpEntry{
		{":", "Command mode"},
		{"?", "Help"},
		{"Esc", "Back"},
		{"Ctrl-C", "Quit"},
	}},
	{"Rooms", []helpEntry{
		{"Enter", "Open room"},
		{"1-9", "Open the Nth room"},
		{"c", "Create \"Room by <you>\" with demoUser"},
		{"r", "Refresh the room list"},
		{"/", "Filter rooms"},
	}},
	{"Room", []helpEntry{
		{"i", "Focus the composer"},
		{"Enter", "Send (in the composer)"},
		{"Esc", "Leave the composer"},
		{"Up/k at top", "Load older messages"},
		{"e", "Edit your selected message"},
		{"x", "Delete your selected message"},
		{"r", "Retry a failed load"},
		{"d", "Room details and invite QR"},
	}},
	{"Commands", []helpEntry{
		{":create", "Create a room"},
		{":open <roomId>", "Open a room by id"},
		{":refresh", "Reload the room list"},
		{":logout", "Back to the login page"},
		{":help", "Show this help"},
		{":quit", "Quit"},
	}},
}

func (hv *HelpView) render() {
	kc := hexColor(hv.theme.MenuKeyColor)
	for _, section := range helpSections {
		_, _ = fmt.Fprintf(hv, "\n  [::b]%s[-:-:-]\n\n", section.title)
		for _, e := range section.entries {
			_, _ = fmt.Fprintf(hv, "  [%s]%-16s[-:-:-] %s\n", kc, tview.Escape(e.key), tview.Escape(e.text))
		}
	}
}

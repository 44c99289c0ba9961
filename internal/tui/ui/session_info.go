package ui

import (
	"fmt"

	"github.com/rivo/tview"
)

// SessionData is shown in the header.
type SessionData struct {
	User    string
	Server  string
	Rooms   int
	Room    string // title of the open room, if any
	State   string // display state of the open room
	Offline bool   // room list served from the local cache
}

// SessionInfo is the header panel describing the logged-in user.
type SessionInfo struct {
	*tview.TextView
	theme *Theme
}

// NewSessionInfo creates an empty panel.
func NewSessionInfo(theme *Theme) *SessionInfo {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 1, 1)

	return &SessionInfo{
		TextView: tv,
		theme:    theme,
	}
}

// Update renders data; nil clears the panel.
func (si *SessionInfo) Update(data *SessionData) {
	si.Clear()
	if data == nil {
		return
	}

	fg := colorName(si.theme.FgColor)
	val := colorName(si.theme.CounterColor)
	row := func(label, value string) {
		if value == "" {
			value = "-"
		}
		_, _ = fmt.Fprintf(si, "[%s::b]%-7s[-:-:-] [%s]%s[-]\n", fg, label+":", val, tview.Escape(value))
	}

	user := data.User
	if user == "" {
		user = "(not logged in)"
	}
	rooms := fmt.Sprintf("%d", data.Rooms)
	if data.Offline {
		rooms += " (cached)"
	}

	row("User", user)
	row("Server", data.Server)
	row("Rooms", rooms)
	row("Room", data.Room)
	row("State", data.State)
}

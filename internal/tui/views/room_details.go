package views

import (
	"fmt"
	"strings"

	"github.com/avitalVissoky/ChatLibrary/internal/room"
	"github.com/avitalVissoky/ChatLibrary/internal/tui/model"
	"github.com/avitalVissoky/ChatLibrary/internal/tui/ui"
	"github.com/rivo/tview"
)

// RoomDetails shows a room's metadata, its participants and an invite QR
// code carrying the room id.
type RoomDetails struct {
	*tview.TextView
	theme *ui.Theme
}

// NewRoomDetails creates an empty details page.
func NewRoomDetails(theme *ui.Theme) *RoomDetails {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Room Details ")
	tv.SetTitleColor(theme.TitleColor)

	return &RoomDetails{
		TextView: tv,
		theme:    theme,
	}
}

// Name implements ui.Component.
func (rd *RoomDetails) Name() string { return "Details" }

// Hints implements ui.Component.
func (rd *RoomDetails) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Esc", Description: "Back"},
	}
}

// Update renders r. participants is nil while they are being fetched.
func (rd *RoomDetails) Update(r model.RoomRow, participants []string) {
	rd.Clear()
	rd.SetTitle(fmt.Sprintf(" %s ", display(r.Title)))

	fg := hexColor(rd.theme.FgColor)
	val := hexColor(rd.theme.CounterColor)
	field := func(label, value string) {
		if value == "" {
			value = "-"
		}
		_, _ = fmt.Fprintf(rd, " [%s::b]%-13s[-:-:-] [%s]%s[-]\n", fg, label+":", val, display(value))
	}

	members := "loading..."
	if participants != nil {
		members = strings.Join(participants, ", ")
	}

	_, _ = fmt.Fprintln(rd)
	field("Title", r.Title)
	field("Room ID", r.ID)
	field("Creator", r.Creator)
	field("Last seen", room.FormatTimestamp(r.LastSeen))
	field("Participants", members)

	qr, err := renderQR(InviteURI(r.ID))
	if err != nil {
		_, _ = fmt.Fprintf(rd, "\n [%s]invite QR unavailable: %s[-]\n", hexColor(rd.theme.FlashErrColor), display(err.Error()))
		return
	}
	_, _ = fmt.Fprintf(rd, "\n Scan to join:\n\n%s", qr)
	rd.ScrollToBeginning()
}

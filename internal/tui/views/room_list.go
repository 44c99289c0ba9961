package views

import (
	"fmt"
	"strings"

	"github.com/avitalVissoky/ChatLibrary/internal/room"
	"github.com/avitalVissoky/ChatLibrary/internal/tui/model"
	"github.com/avitalVissoky/ChatLibrary/internal/tui/ui"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// RoomList is the table of the user's rooms.
type RoomList struct {
	*tview.Table
	theme   *ui.Theme
	rooms   []model.RoomRow
	visible []model.RoomRow
	filter  string
}

// NewRoomList creates an empty room table.
func NewRoomList(theme *ui.Theme) *RoomList {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	table.SetBorder(true)
	table.SetBorderColor(theme.BorderColor)
	table.SetBackgroundColor(theme.BgColor)
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))
	table.SetTitleColor(theme.TitleColor)

	rl := &RoomList{
		Table: table,
		theme: theme,
	}
	rl.render()
	return rl
}

// Name implements ui.Component.
func (rl *RoomList) Name() string { return "Rooms" }

// Hints implements ui.Component.
func (rl *RoomList) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Enter", Description: "Open"},
		{Key: "c", Description: "Create room"},
		{Key: "r", Description: "Refresh"},
		{Key: "/", Description: "Filter"},
		{Key: "1-9", Description: "Jump", Numeric: true},
	}
}

// Update replaces the listed rooms, keeping the selected room selected.
func (rl *RoomList) Update(rooms []model.RoomRow) {
	selected := rl.SelectedRoom()
	rl.rooms = rooms
	rl.render()
	rl.SelectRoom(selected)
}

// SetFilter shows only rooms whose title, id or creator contain filter,
// ignoring case. An empty filter shows every room.
func (rl *RoomList) SetFilter(filter string) {
	rl.filter = filter
	rl.render()
}

// Filter returns the active filter.
func (rl *RoomList) Filter() string {
	return rl.filter
}

// SelectedRoom returns the id of the selected room, or "".
func (rl *RoomList) SelectedRoom() string {
	row, _ := rl.GetSelection()
	return rl.RoomByIndex(row)
}

// RoomByIndex returns the id of the nth visible room (1-based), or "".
func (rl *RoomList) RoomByIndex(n int) string {
	if n < 1 || n > len(rl.visible) {
		return ""
	}
	return rl.visible[n-1].ID
}

// SelectRoom moves the cursor to roomID if it is visible.
func (rl *RoomList) SelectRoom(roomID string) {
	for i, r := range rl.visible {
		if r.ID == roomID {
			rl.Select(i+1, 0)
			return
		}
	}
}

func (rl *RoomList) matches(r model.RoomRow) bool {
	if rl.filter == "" {
		return true
	}
	f := strings.ToLower(rl.filter)
	for _, field := range []string{r.Title, r.ID, r.Creator} {
		if strings.Contains(strings.ToLower(field), f) {
			return true
		}
	}
	return false
}

func (rl *RoomList) render() {
	rl.Clear()

	headers := []struct {
		text string
		exp  int
	}{
		{" #", 0},
		{" TITLE", 2},
		{" ROOM ID", 1},
		{" CREATOR", 1},
		{" LAST SEEN", 0},
	}
	for col, h := range headers {
		rl.SetCell(0, col, tview.NewTableCell(h.text).
			SetSelectable(false).
			SetTextColor(rl.theme.TableHeaderFg).
			SetBackgroundColor(rl.theme.TableHeaderBg).
			SetAttributes(tcell.AttrBold).
			SetExpansion(h.exp))
	}

	rl.visible = rl.visible[:0]
	for _, r := range rl.rooms {
		if rl.matches(r) {
			rl.visible = append(rl.visible, r)
		}
	}

	for i, r := range rl.visible {
		row := i + 1
		title := r.Title
		if title == "" {
			title = r.ID
		}
		seen := room.FormatTimestamp(r.LastSeen)
		if seen == "" {
			seen = "-"
		}
		index := ""
		if row <= 9 {
			index = fmt.Sprintf(" %d", row)
		}
		fg := rl.theme.FgColor
		rl.SetCell(row, 0, tview.NewTableCell(index).SetTextColor(rl.theme.NumericKeyColor))
		rl.SetCell(row, 1, tview.NewTableCell(" "+display(title)).SetExpansion(2).SetTextColor(fg))
		rl.SetCell(row, 2, tview.NewTableCell(" "+display(r.ID)).SetExpansion(1).SetTextColor(fg))
		rl.SetCell(row, 3, tview.NewTableCell(" "+display(r.Creator)).SetExpansion(1).SetTextColor(fg))
		rl.SetCell(row, 4, tview.NewTableCell(" "+seen).SetTextColor(rl.theme.MutedColor).SetAlign(tview.AlignRight))
	}

	if rl.filter != "" {
		rl.SetTitle(fmt.Sprintf(" Rooms (%d/%d) filter: %s ", len(rl.visible), len(rl.rooms), display(rl.filter)))
	} else {
		rl.SetTitle(fmt.Sprintf(" Rooms (%d) ", len(rl.rooms)))
	}
}

package views

import (
	"fmt"
	"strings"

	"github.com/avitalVissoky/ChatLibrary/internal/chat"
	"github.com/avitalVissoky/ChatLibrary/internal/presence"
	"github.com/avitalVissoky/ChatLibrary/internal/room"
	"github.com/avitalVissoky/ChatLibrary/internal/status"
	"github.com/avitalVissoky/ChatLibrary/internal/sync"
	"github.com/avitalVissoky/ChatLibrary/internal/tui/ui"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// Pages of the state area.
const (
	statePageContent = "content"
	statePageLoading = "loading"
	statePageEmpty   = "empty"
	statePageError   = "error"
)

type lineKind int

const (
	lineSender lineKind = iota
	lineBody
	lineTime
)

// line is one table row of the rendered timeline.
type line struct {
	msg  int // index into the timeline
	kind lineKind
	text string
	self bool
}

// layoutTimeline turns the timeline into table rows: sender, body lines and
// timestamp lines for every message, oldest first.
func layoutTimeline(msgs []chat.Message, self string) []line {
	var lines []line
	for i, m := range msgs {
		mine := m.SenderID == self
		sender := m.SenderID
		if mine {
			sender = "You"
		}
		lines = append(lines, line{msg: i, kind: lineSender, text: sender, self: mine})

		body, err := m.Content.Text()
		if err != nil {
			body = fmt.Sprintf("<%s message>", m.Content.Type)
		}
		for _, l := range strings.Split(body, "\n") {
			lines = append(lines, line{msg: i, kind: lineBody, text: l, self: mine})
		}
		for _, l := range strings.Split(room.MessageTime(m), "\n") {
			if l != "" {
				lines = append(lines, line{msg: i, kind: lineTime, text: l, self: mine})
			}
		}
	}
	return lines
}

// RoomView is the chat screen of one room: the timeline, the typing
// indicator and the composer.
type RoomView struct {
	*tview.Flex
	theme    *ui.Theme
	user     string
	title    string
	state    status.State
	states   *tview.Pages
	table    *tview.Table
	failure  *tview.TextView
	typing   *tview.TextView
	composer *Composer

	messages  []chat.Message
	lines     []line
	lastRow   int
	rendering bool
	onScroll  func(firstVisible, dy int)
}

// NewRoomView creates an empty chat screen.
func NewRoomView(theme *ui.Theme) *RoomView {
	palette := theme.Chat

	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false)
	table.SetBackgroundColor(palette.Background)
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))

	notice := func(text string) *tview.TextView {
		tv := tview.NewTextView().
			SetDynamicColors(true).
			SetTextAlign(tview.AlignCenter).
			SetText(text)
		tv.SetBackgroundColor(palette.Background)
		tv.SetTextColor(palette.TextOther)
		return tv
	}
	failure := notice("")

	states := tview.NewPages().
		AddPage(statePageContent, table, true, false).
		AddPage(statePageLoading, notice("\n\nLoading messages..."), true, true).
		AddPage(statePageEmpty, notice("\n\nNo messages yet. Say hello!\n\n[::d]r: refresh[-:-:-]"), true, false).
		AddPage(statePageError, failure, true, false)
	states.SetBorder(true)
	states.SetBorderColor(theme.BorderColor)
	states.SetBackgroundColor(palette.Background)
	states.SetTitleColor(theme.TitleColor)

	typing := tview.NewTextView().
		SetDynamicColors(true)
	typing.SetBackgroundColor(theme.BgColor)
	typing.SetTextColor(theme.MutedColor)

	composer := NewComposer(theme)

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(states, 0, 1, true).
		AddItem(typing, 1, 0, false).
		AddItem(composer, 3, 0, false)

	rv := &RoomView{
		Flex:     flex,
		theme:    theme,
		state:    status.Loading,
		states:   states,
		table:    table,
		failure:  failure,
		typing:   typing,
		composer: composer,
	}
	rv.setFailure(nil)

	table.SetSelectionChangedFunc(func(row, _ int) {
		prev := rv.lastRow
		rv.lastRow = row
		if rv.rendering || row != 0 {
			return
		}
		rv.scrolled(row, row-prev)
	})
	table.SetInputCapture(func(ev *tcell.EventKey) *tcell.EventKey {
		// Moving up while already on the first row still asks for older messages.
		row, _ := table.GetSelection()
		if row == 0 && isUpKey(ev) {
			rv.scrolled(row, -1)
		}
		return ev
	})

	return rv
}

func isUpKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyUp, tcell.KeyPgUp, tcell.KeyHome:
		return true
	case tcell.KeyRune:
		return ev.Rune() == 'k' || ev.Rune() == 'g'
	}
	return false
}

// Name implements ui.Component.
func (rv *RoomView) Name() string {
	if rv.title != "" {
		return rv.title
	}
	return "Room"
}

// Hints implements ui.Component.
func (rv *RoomView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "i", Description: "Compose"},
		{Key: "e", Description: "Edit"},
		{Key: "x", Description: "Delete"},
		{Key: "r", Description: "Retry/Refresh"},
		{Key: "d", Description: "Details"},
		{Key: "Esc", Description: "Back"},
	}
}

// Reset prepares the view for a newly opened room.
func (rv *RoomView) Reset(user, title string) {
	rv.user = user
	rv.title = title
	rv.messages = nil
	rv.lines = nil
	rv.lastRow = 0
	rv.table.Clear()
	rv.states.SetTitle(fmt.Sprintf(" %s ", display(title)))
	rv.typing.Clear()
	rv.composer.Clear()
	rv.setFailure(nil)
	rv.SetState(status.Loading)
}

// SetOnScroll sets the callback run when the user moves to the top of the
// timeline. firstVisible is the timeline index of the top message.
func (rv *RoomView) SetOnScroll(fn func(firstVisible, dy int)) {
	rv.onScroll = fn
}

// Composer returns the message composer.
func (rv *RoomView) Composer() *Composer {
	return rv.composer
}

// Timeline returns the table for focus management.
func (rv *RoomView) Timeline() *tview.Table {
	return rv.table
}

// Render redraws the timeline from snap. The selected message stays
// selected; if the newest message was selected, or nothing was, the view
// follows the end of the timeline.
func (rv *RoomView) Render(snap sync.Snapshot) {
	selectedID := ""
	follow := true
	if m, ok := rv.SelectedMessage(); ok {
		selectedID = m.ID
		follow = rv.lastRow >= len(rv.lines)-1
	}

	rv.rendering = true
	defer func() { rv.rendering = false }()

	rv.messages = snap.Messages
	rv.lines = layoutTimeline(snap.Messages, rv.user)
	rv.table.Clear()
	for row, l := range rv.lines {
		rv.table.SetCell(row, 0, rv.cell(l))
	}

	target := len(rv.lines) - 1
	if !follow {
		for row, l := range rv.lines {
			if rv.messages[l.msg].ID == selectedID {
				target = row
				break
			}
		}
	}
	if target >= 0 {
		rv.table.Select(target, 0)
		if follow {
			rv.table.ScrollToEnd()
		}
	}
	rv.lastRow = max(target, 0)
	rv.SetState(snap.State)
}

func (rv *RoomView) cell(l line) *tview.TableCell {
	p := rv.theme.Chat
	bg, fg, align := p.BubbleOther, p.TextOther, tview.AlignLeft
	if l.self {
		bg, fg, align = p.BubbleSelf, p.TextSelf, tview.AlignRight
	}
	c := tview.NewTableCell(" " + display(l.text) + " ").
		SetAlign(align).
		SetExpansion(1).
		SetBackgroundColor(bg).
		SetTextColor(fg)
	switch l.kind {
	case lineSender:
		c.SetAttributes(tcell.AttrBold).SetBackgroundColor(p.Background).SetTextColor(rv.theme.MutedColor)
	case lineTime:
		c.SetAttributes(tcell.AttrDim)
	}
	return c
}

// SetState shows the page of s.
func (rv *RoomView) SetState(s status.State) {
	rv.state = s
	page := statePageContent
	switch s {
	case status.Loading:
		page = statePageLoading
	case status.Empty:
		page = statePageEmpty
	case status.Error:
		page = statePageError
	}
	rv.states.SwitchToPage(page)
}

// State returns the displayed state.
func (rv *RoomView) State() status.State {
	return rv.state
}

// SetError sets the reason shown on the error page.
func (rv *RoomView) SetError(err error) {
	rv.setFailure(err)
}

func (rv *RoomView) setFailure(err error) {
	text := "\n\nCould not load messages."
	if err != nil {
		text += "\n" + display(err.Error())
	}
	rv.failure.SetText(text + "\n\n[::d]r: retry[-:-:-]")
}

// SetTyping shows who else is typing.
func (rv *RoomView) SetTyping(users []string) {
	rv.typing.SetText(" " + display(strings.ReplaceAll(presence.Indicator(users), "\n", "  ")))
}

// SelectedMessage returns the message under the cursor.
func (rv *RoomView) SelectedMessage() (chat.Message, bool) {
	row, _ := rv.table.GetSelection()
	if row < 0 || row >= len(rv.lines) {
		return chat.Message{}, false
	}
	return rv.messages[rv.lines[row].msg], true
}

// scrolled reports the first visible message. The table offset is only
// updated on draw, so a selected row above it is the top.
func (rv *RoomView) scrolled(row, dy int) {
	if rv.onScroll == nil || len(rv.lines) == 0 {
		return
	}
	top, _ := rv.table.GetOffset()
	top = min(max(min(top, row), 0), len(rv.lines)-1)
	rv.onScroll(rv.lines[top].msg, dy)
}

package views

import (
	"github.com/avitalVissoky/ChatLibrary/internal/tui/ui"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// Composer is the message input with its send button.
type Composer struct {
	*tview.Flex
	input       *tview.InputField
	button      *tview.Button
	onSend      func(text string)
	onKeystroke func()
}

// NewComposer creates a composer styled with the chat palette.
func NewComposer(theme *ui.Theme) *Composer {
	input := tview.NewInputField().
		SetLabel(" > ").
		SetFieldWidth(0).
		SetPlaceholder("Type a message")
	input.SetBackgroundColor(theme.BgColor)
	input.SetFieldBackgroundColor(theme.BgColor)
	input.SetFieldTextColor(theme.FgColor)
	input.SetLabelColor(theme.Chat.SendButton)
	input.SetPlaceholderStyle(tcell.StyleDefault.Foreground(theme.MutedColor).Background(theme.BgColor))

	button := tview.NewButton("Send")
	button.SetStyle(tcell.StyleDefault.Foreground(theme.Chat.TextSelf).Background(theme.Chat.SendButton))
	button.SetActivatedStyle(tcell.StyleDefault.Foreground(theme.Chat.SendButton).Background(theme.Chat.TextSelf))

	flex := tview.NewFlex().
		AddItem(input, 0, 1, true).
		AddItem(button, 8, 0, false)
	flex.SetBorder(true)
	flex.SetBorderColor(theme.BorderColor)
	flex.SetBackgroundColor(theme.BgColor)
	flex.SetTitle(" Compose (i to focus) ")
	flex.SetTitleColor(theme.TitleColor)

	c := &Composer{Flex: flex, input: input, button: button}

	input.SetChangedFunc(func(string) {
		if c.onKeystroke != nil {
			c.onKeystroke()
		}
	})
	input.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter {
			c.submit()
		}
	})
	button.SetSelectedFunc(c.submit)

	return c
}

// SetOnSend sets the callback run with the typed text on Enter or Send. The
// text stays in the field until Clear, so a failed send can be retried.
func (c *Composer) SetOnSend(fn func(text string)) {
	c.onSend = fn
}

// SetOnKeystroke sets the callback run on every edit of the field.
func (c *Composer) SetOnKeystroke(fn func()) {
	c.onKeystroke = fn
}

// Clear empties the field without reporting a keystroke.
func (c *Composer) Clear() {
	fn := c.onKeystroke
	c.onKeystroke = nil
	c.input.SetText("")
	c.onKeystroke = fn
}

// Text returns the current input.
func (c *Composer) Text() string {
	return c.input.GetText()
}

// Input returns the text field for focus management.
func (c *Composer) Input() *tview.InputField {
	return c.input
}

func (c *Composer) submit() {
	if c.onSend != nil && c.input.GetText() != "" {
		c.onSend(c.input.GetText())
	}
}

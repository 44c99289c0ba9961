package views

import (
	"fmt"

	"github.com/avitalVissoky/ChatLibrary/internal/tui/ui"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// LoginView asks for the username to chat as.
type LoginView struct {
	*tview.Flex
	theme    *ui.Theme
	input    *tview.InputField
	message  *tview.TextView
	onSubmit func(username string)
}

// NewLoginView creates the login page.
func NewLoginView(theme *ui.Theme) *LoginView {
	banner := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	banner.SetBackgroundColor(theme.BgColor)
	_, _ = fmt.Fprint(banner, ui.Banner(theme))

	input := tview.NewInputField().
		SetLabel(" Username: ").
		SetFieldWidth(32)
	input.SetBackgroundColor(theme.BgColor)
	input.SetFieldBackgroundColor(theme.BgColor)
	input.SetFieldTextColor(theme.FgColor)
	input.SetLabelColor(theme.MenuKeyColor)

	message := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	message.SetBackgroundColor(theme.BgColor)

	form := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(banner, 5, 0, false).
		AddItem(input, 1, 0, true).
		AddItem(message, 2, 0, false)
	form.SetBorder(true)
	form.SetBorderColor(theme.BorderColor)
	form.SetBackgroundColor(theme.BgColor)
	form.SetTitle(" Login ")
	form.SetTitleColor(theme.TitleColor)

	// Centre the form horizontally and vertically.
	flex := tview.NewFlex().
		AddItem(nil, 0, 1, false).
		AddItem(tview.NewFlex().
			SetDirection(tview.FlexRow).
			AddItem(nil, 0, 1, false).
			AddItem(form, 10, 0, true).
			AddItem(nil, 0, 1, false), 48, 0, true).
		AddItem(nil, 0, 1, false)

	lv := &LoginView{
		Flex:    flex,
		theme:   theme,
		input:   input,
		message: message,
	}

	input.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter && lv.onSubmit != nil {
			lv.onSubmit(input.GetText())
		}
	})

	return lv
}

// Name implements ui.Component.
func (lv *LoginView) Name() string { return "Login" }

// Hints implements ui.Component.
func (lv *LoginView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Enter", Description: "Login"},
		{Key: "Ctrl-C", Description: "Quit"},
	}
}

// SetOnSubmit sets the callback run with the raw input on Enter.
func (lv *LoginView) SetOnSubmit(fn func(username string)) {
	lv.onSubmit = fn
}

// Input returns the username field for focus management.
func (lv *LoginView) Input() *tview.InputField {
	return lv.input
}

// ShowError shows why the login was refused.
func (lv *LoginView) ShowError(err error) {
	lv.message.Clear()
	_, _ = fmt.Fprintf(lv.message, "[%s]%s[-]", hexColor(lv.theme.FlashErrColor), tview.Escape(err.Error()))
}

// ShowMessage shows a neutral status line.
func (lv *LoginView) ShowMessage(msg string) {
	lv.message.Clear()
	_, _ = fmt.Fprint(lv.message, tview.Escape(msg))
}

// Reset clears the field and the status line.
func (lv *LoginView) Reset() {
	lv.input.SetText("")
	lv.message.Clear()
}

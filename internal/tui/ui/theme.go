package ui

import (
	"github.com/avitalVissoky/ChatLibrary/internal/config"
	"github.com/gdamore/tcell/v2"
)

// Theme holds the chrome colours of the TUI and the resolved chat palette.
type Theme struct {
	BgColor           tcell.Color
	FgColor           tcell.Color
	BorderColor       tcell.Color
	BorderFocusColor  tcell.Color
	TableHeaderFg     tcell.Color
	TableHeaderBg     tcell.Color
	TableCursorFg     tcell.Color
	TableCursorBg     tcell.Color
	CrumbActiveFg     tcell.Color
	CrumbActiveBg     tcell.Color
	CrumbInactiveFg   tcell.Color
	CrumbInactiveBg   tcell.Color
	MenuKeyColor      tcell.Color
	NumericKeyColor   tcell.Color
	TitleColor        tcell.Color
	CounterColor      tcell.Color
	MutedColor        tcell.Color
	FlashInfoColor    tcell.Color
	FlashWarnColor    tcell.Color
	FlashErrColor     tcell.Color
	PromptBorderColor tcell.Color

	// Chat holds the bubble and composer colours configured in [style].
	Chat config.Palette
}

// DefaultTheme returns a dark chrome around the default chat palette.
func DefaultTheme() *Theme {
	return NewTheme(config.DefaultStyle())
}

// NewTheme returns the dark chrome with the given chat style. Empty style
// fields fall back to the defaults.
func NewTheme(style config.Style) *Theme {
	return &Theme{
		BgColor:           tcell.ColorBlack,
		FgColor:           tcell.ColorLightGray,
		BorderColor:       tcell.ColorSeaGreen,
		BorderFocusColor:  tcell.ColorMediumSeaGreen,
		TableHeaderFg:     tcell.ColorWhite,
		TableHeaderBg:     tcell.ColorBlack,
		TableCursorFg:     tcell.ColorBlack,
		TableCursorBg:     tcell.ColorMediumSeaGreen,
		CrumbActiveFg:     tcell.ColorBlack,
		CrumbActiveBg:     tcell.ColorGold,
		CrumbInactiveFg:   tcell.ColorBlack,
		CrumbInactiveBg:   tcell.ColorSeaGreen,
		MenuKeyColor:      tcell.ColorMediumSeaGreen,
		NumericKeyColor:   tcell.ColorFuchsia,
		TitleColor:        tcell.ColorGold,
		CounterColor:      tcell.ColorPapayaWhip,
		MutedColor:        tcell.ColorGray,
		FlashInfoColor:    tcell.ColorNavajoWhite,
		FlashWarnColor:    tcell.ColorOrange,
		FlashErrColor:     tcell.ColorOrangeRed,
		PromptBorderColor: tcell.ColorMediumSeaGreen,
		Chat:              style.Merge(config.DefaultStyle()).Colors(),
	}
}

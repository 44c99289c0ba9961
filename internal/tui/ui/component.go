package ui

// MenuHint describes a keyboard shortcut for display in the menu panel.
type MenuHint struct {
	Key         string
	Description string
	Numeric     bool // 1-9 room shortcuts, drawn in a different colour
}

// Component is implemented by every page the app can push.
type Component interface {
	// Name is the breadcrumb label.
	Name() string
	Hints() []MenuHint
}

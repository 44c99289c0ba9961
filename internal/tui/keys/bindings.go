package keys

import (
	"github.com/avitalVissoky/ChatLibrary/internal/tui/ui"
	"github.com/gdamore/tcell/v2"
)

// Action is a key binding. Key is tcell.KeyRune for printable keys, in which
// case Rune selects the character.
type Action struct {
	Key         tcell.Key
	Rune        rune
	Label       string // key as shown in the menu, e.g. "Enter"
	Description string
	Handler     func()
	Visible     bool
}

// Matches reports whether ev triggers a.
func (a *Action) Matches(ev *tcell.EventKey) bool {
	if a.Key != tcell.KeyRune {
		return ev.Key() == a.Key
	}
	return ev.Key() == tcell.KeyRune && ev.Rune() == a.Rune
}

// Registry holds the bindings of every page plus the global ones. Bindings
// keep their registration order so menus are stable.
type Registry struct {
	global []*Action
	views  map[string][]*Action
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		views: make(map[string][]*Action),
	}
}

// AddGlobal registers a binding active on every page.
func (r *Registry) AddGlobal(action *Action) {
	r.global = append(r.global, action)
}

// AddView registers a binding active on one page. View bindings shadow
// global bindings for the same key.
func (r *Registry) AddView(view string, action *Action) {
	r.views[view] = append(r.views[view], action)
}

// Hints returns the visible bindings of view followed by the global ones.
func (r *Registry) Hints(view string) []ui.MenuHint {
	var hints []ui.MenuHint
	add := func(actions []*Action) {
		for _, a := range actions {
			if a.Visible {
				hints = append(hints, ui.MenuHint{Key: a.label(), Description: a.Description})
			}
		}
	}
	add(r.views[view])
	add(r.global)
	return hints
}

// HandleEvent runs the first binding of view, then the first global binding,
// matching ev. It reports whether one ran.
func (r *Registry) HandleEvent(view string, ev *tcell.EventKey) bool {
	for _, actions := range [][]*Action{r.views[view], r.global} {
		for _, a := range actions {
			if a.Matches(ev) {
				a.Handler()
				return true
			}
		}
	}
	return false
}

func (a *Action) label() string {
	if a.Label != "" {
		return a.Label
	}
	if a.Key == tcell.KeyRune {
		return string(a.Rune)
	}
	return tcell.KeyNames[a.Key]
}

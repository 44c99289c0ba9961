package status

import (
	"fmt"
	"slices"
	"sync"

	"github.com/avitalVissoky/ChatLibrary/internal/bus"
)

// State is the display state of an open chat room.
type State string

const (
	Loading State = "LOADING"
	Content State = "CONTENT"
	Empty   State = "EMPTY"
	Error   State = "ERROR"
)

// validTransitions defines allowed state transitions. CONTENT never goes
// straight to ERROR; once messages were shown, failures are notices.
var validTransitions = map[State][]State{
	Loading: {Content, Empty, Error},
	Content: {Empty},
	Empty:   {Content, Loading, Error},
	Error:   {Loading, Content},
}

// Machine tracks and enforces display state transitions for one room.
type Machine struct {
	mu      sync.RWMutex
	current State
	roomID  string
	bus     *bus.Bus
}

// NewMachine creates a new state machine starting in Loading state.
func NewMachine(b *bus.Bus, roomID string) *Machine {
	return &Machine{
		current: Loading,
		roomID:  roomID,
		bus:     b,
	}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Transition attempts to move to a new state. Returns error if transition is
// invalid. Transitioning to the current state is a no-op and publishes nothing.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == to {
		return nil
	}
	allowed := validTransitions[m.current]
	if !slices.Contains(allowed, to) {
		return fmt.Errorf("invalid transition from %s to %s", m.current, to)
	}
	from := m.current
	m.current = to
	if m.bus != nil {
		m.bus.Publish(bus.Event{
			Kind:   bus.KindStateChanged,
			RoomID: m.roomID,
			Payload: StatusChange{
				From: from,
				To:   to,
			},
		})
	}
	return nil
}

// StatusChange is the payload for state change events.
type StatusChange struct {
	From State
	To   State
}

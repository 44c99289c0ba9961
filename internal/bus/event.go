package bus

import "time"

// Event kinds published by an open chat room. Subscribers filter by prefix,
// so "room." receives all of them.
const (
	KindTimelineChanged = "room.timeline_changed"
	KindStateChanged    = "room.state_changed"
	KindNotice          = "room.notice"
	KindTyping          = "room.typing"
	KindSent            = "room.sent"
)

// Event is a room event delivered to the presentation layer.
type Event struct {
	Kind      string
	RoomID    string
	Timestamp time.Time
	Payload   any
}

package store

// Receipt records the newest message timestamp a user has seen in a room.
type Receipt struct {
	RoomID     string
	Title      string
	LastSeenAt string
	UpdatedAt  int64
}

// Room is a cached entry of the user's room list.
type Room struct {
	RoomID  string
	Title   string
	Creator string
}

package config

// SeenListener is told the timestamp of the newest message whenever the user
// resumes viewing a non-empty room.
type SeenListener func(roomID, lastMessageTimestamp string)

// Options are the per-room presentation settings supplied by the host.
type Options struct {
	Style  Style
	OnSeen SeenListener
}

// NotifySeen calls OnSeen if set.
func (o Options) NotifySeen(roomID, lastMessageTimestamp string) {
	if o.OnSeen != nil {
		o.OnSeen(roomID, lastMessageTimestamp)
	}
}

package room

import (
	"time"

	"github.com/avitalVissoky/ChatLibrary/internal/chat"
)

const timestampLayout = "15:04, 02/01/2006"

// FormatTimestamp renders a server timestamp as "HH:MM, DD/MM/YYYY" in the
// zone it carries. Unparseable input yields "".
func FormatTimestamp(ts string) string {
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return ""
	}
	return t.Format(timestampLayout)
}

// MessageTime returns the timestamp line shown under a message. Edited
// messages also show when their content was changed.
func MessageTime(m chat.Message) string {
	s := FormatTimestamp(m.CreatedAt)
	if m.Edited {
		s += "\n (edited at " + FormatTimestamp(m.Content.CreatedAt) + ")"
	}
	return s
}

package presence

import (
	"slices"
	"strings"
)

// Typing is the payload of room.typing events.
type Typing struct {
	RoomID string
	Users  []string
}

// Typers returns the sorted ids of users flagged as typing, excluding self.
func Typers(statuses map[string]bool, self string) []string {
	users := make([]string, 0, len(statuses))
	for id, typing := range statuses {
		if typing && id != self {
			users = append(users, id)
		}
	}
	slices.Sort(users)
	return users
}

// Indicator renders one "<user> is typing..." line per user.
func Indicator(users []string) string {
	lines := make([]string, len(users))
	for i, u := range users {
		lines[i] = u + " is typing..."
	}
	return strings.Join(lines, "\n")
}

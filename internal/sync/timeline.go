package sync

import (
	"slices"
	"strings"

	"github.com/avitalVissoky/ChatLibrary/internal/chat"
)

// Timeline is the in-memory message state of one open room. It is not safe
// for concurrent use; Engine guards it.
type Timeline struct {
	messages  []chat.Message
	seen      map[string]struct{}
	cursor    string
	loading   bool
	firstLoad bool
}

// MergeResult reports what a Merge did.
type MergeResult struct {
	Added   int
	Dropped int
}

// NewTimeline returns an empty timeline awaiting its first load.
func NewTimeline() *Timeline {
	return &Timeline{
		seen:      make(map[string]struct{}),
		firstLoad: true,
	}
}

// BeginLoad marks a fetch as in flight. It returns false if one already is.
func (t *Timeline) BeginLoad() bool {
	if t.loading {
		return false
	}
	t.loading = true
	return true
}

// Fail ends an in-flight fetch without touching the timeline.
func (t *Timeline) Fail() {
	t.loading = false
}

// Merge prepends an older page. Messages already seen, including repeats
// within the page, are dropped. The remainder is sorted by createdAt and the
// cursor moves to its earliest entry.
func (t *Timeline) Merge(page []chat.Message) MergeResult {
	t.loading = false
	t.firstLoad = false

	fresh := make([]chat.Message, 0, len(page))
	for _, m := range page {
		if _, ok := t.seen[m.ID]; ok {
			continue
		}
		t.seen[m.ID] = struct{}{}
		fresh = append(fresh, m)
	}
	res := MergeResult{Added: len(fresh), Dropped: len(page) - len(fresh)}
	if len(fresh) == 0 {
		return res
	}

	slices.SortStableFunc(fresh, func(a, b chat.Message) int {
		return strings.Compare(a.CreatedAt, b.CreatedAt)
	})
	t.cursor = fresh[0].CreatedAt
	t.messages = append(fresh, t.messages...)
	return res
}

// Append adds a server-confirmed message at the end. It returns false if the
// id is already present.
func (t *Timeline) Append(m chat.Message) (int, bool) {
	if _, ok := t.seen[m.ID]; ok {
		return -1, false
	}
	t.seen[m.ID] = struct{}{}
	t.messages = append(t.messages, m)
	return len(t.messages) - 1, true
}

// Remove deletes the first message with the given id.
func (t *Timeline) Remove(id string) (int, bool) {
	i := t.index(id)
	if i < 0 {
		return -1, false
	}
	t.messages = slices.Delete(t.messages, i, i+1)
	delete(t.seen, id)
	return i, true
}

// Replace swaps the first message with the same id in place.
func (t *Timeline) Replace(m chat.Message) (int, bool) {
	i := t.index(m.ID)
	if i < 0 {
		return -1, false
	}
	t.messages[i] = m
	return i, true
}

// Find returns the message with the given id.
func (t *Timeline) Find(id string) (chat.Message, bool) {
	i := t.index(id)
	if i < 0 {
		return chat.Message{}, false
	}
	return t.messages[i], true
}

func (t *Timeline) index(id string) int {
	return slices.IndexFunc(t.messages, func(m chat.Message) bool { return m.ID == id })
}

// Messages returns a copy of the timeline in display order.
func (t *Timeline) Messages() []chat.Message {
	return slices.Clone(t.messages)
}

// Last returns the newest message.
func (t *Timeline) Last() (chat.Message, bool) {
	if len(t.messages) == 0 {
		return chat.Message{}, false
	}
	return t.messages[len(t.messages)-1], true
}

func (t *Timeline) Len() int        { return len(t.messages) }
func (t *Timeline) Cursor() string  { return t.cursor }
func (t *Timeline) Loading() bool   { return t.loading }
func (t *Timeline) FirstLoad() bool { return t.firstLoad }

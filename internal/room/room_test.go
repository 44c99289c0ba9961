package room

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/avitalVissoky/ChatLibrary/internal/bus"
	"github.com/avitalVissoky/ChatLibrary/internal/chat"
	"github.com/avitalVissoky/ChatLibrary/internal/chatapi"
	"github.com/avitalVissoky/ChatLibrary/internal/chatapi/chatapitest"
	"github.com/avitalVissoky/ChatLibrary/internal/config"
	"github.com/avitalVissoky/ChatLibrary/internal/presence"
	"github.com/avitalVissoky/ChatLibrary/internal/status"
	"github.com/avitalVissoky/ChatLibrary/internal/sync"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	srv  *chatapitest.Server
	bus  *bus.Bus
	room *Room
	seen [][2]string
}

func newHarness(t *testing.T, pageSize int) *harness {
	t.Helper()
	srv := chatapitest.NewServer()
	t.Cleanup(srv.Close)

	client, err := chatapi.New(chatapi.Options{BaseURL: srv.URL, Timeout: 2 * time.Second})
	require.NoError(t, err)

	h := &harness{srv: srv, bus: bus.New()}
	rc := config.Default().Room
	rc.PageSize = pageSize
	rc.TypingPoll = config.Duration{Duration: 10 * time.Millisecond}
	rc.TypingIdle = config.Duration{Duration: 100 * time.Millisecond}
	opts := config.Options{OnSeen: func(roomID, ts string) { h.seen = append(h.seen, [2]string{roomID, ts}) }}
	h.room = New(client, h.bus, nil, "r1", "alice", opts, rc)
	t.Cleanup(h.room.Close)
	return h
}

func bodies(msgs []chat.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Content.Body
	}
	return out
}

func TestOpenLoadsNewestPage(t *testing.T) {
	h := newHarness(t, 2)
	for _, text := range []string{"one", "two", "three"} {
		h.srv.Seed("r1", "bob", text)
	}

	require.NoError(t, h.room.Open(context.Background()))

	snap := h.room.Snapshot()
	assert.Equal(t, []string{"two", "three"}, bodies(snap.Messages))
	assert.Equal(t, status.Content, snap.State)
}

func TestOpenEmptyRoom(t *testing.T) {
	h := newHarness(t, 10)
	require.NoError(t, h.room.Open(context.Background()))
	assert.Equal(t, status.Empty, h.room.Snapshot().State)
}

func TestOpenFailureShowsErrorAndRetryRecovers(t *testing.T) {
	h := newHarness(t, 10)
	h.srv.Seed("r1", "bob", "hello")
	h.srv.Fail("/messages/getMessages", http.StatusInternalServerError, 1)

	require.Error(t, h.room.Open(context.Background()))
	assert.Equal(t, status.Error, h.room.Snapshot().State)

	require.NoError(t, h.room.Retry())
	snap := h.room.Snapshot()
	assert.Equal(t, status.Content, snap.State)
	assert.Equal(t, []string{"hello"}, bodies(snap.Messages))
}

func TestScrollToTopPaginates(t *testing.T) {
	h := newHarness(t, 2)
	for _, text := range []string{"a", "b", "c", "d", "e"} {
		h.srv.Seed("r1", "bob", text)
	}
	require.NoError(t, h.room.Open(context.Background()))

	// Not at the top: nothing happens.
	started, err := h.room.OnScroll(3, 0, -10)
	require.NoError(t, err)
	assert.False(t, started)

	// Purely vertical scroll at the top triggers.
	started, err = h.room.OnScroll(0, 0, -10)
	require.NoError(t, err)
	assert.True(t, started)
	assert.Equal(t, []string{"b", "c", "d", "e"}, bodies(h.room.Snapshot().Messages))

	_, err = h.room.OnScroll(0, 0, -10)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, bodies(h.room.Snapshot().Messages))

	// History exhausted: the empty page changes nothing.
	cursor := h.room.Snapshot().Cursor
	_, err = h.room.OnScroll(0, 0, -10)
	require.NoError(t, err)
	assert.Len(t, h.room.Snapshot().Messages, 5)
	assert.Equal(t, cursor, h.room.Snapshot().Cursor)
}

func TestScrollTriggers(t *testing.T) {
	tests := []struct {
		name                 string
		firstVisible, dx, dy int
		want                 bool
	}{
		{"top with both deltas", 0, 3, -4, true},
		{"top vertical only", 0, 0, -4, true},
		{"top horizontal only", 0, 5, 0, true},
		{"top no movement", 0, 0, 0, true},
		{"not top", 1, 3, -4, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ScrollTriggers(tt.firstVisible, tt.dx, tt.dy))
		})
	}
}

func TestSendEditDelete(t *testing.T) {
	h := newHarness(t, 10)
	require.NoError(t, h.room.Open(context.Background()))
	ch, unsub := h.bus.SubscribeRoom("room.", "r1", 64)
	defer unsub()

	sent, err := h.room.Send("hello")
	require.NoError(t, err)
	assert.NotEmpty(t, sent.ID)
	assert.Equal(t, status.Content, h.room.Snapshot().State)

	edited, err := h.room.Edit(sent.ID, "hello again")
	require.NoError(t, err)
	assert.True(t, edited.Edited)
	snap := h.room.Snapshot()
	require.Len(t, snap.Messages, 1)
	assert.Equal(t, "hello again", snap.Messages[0].Content.Body)
	assert.Contains(t, MessageTime(snap.Messages[0]), "(edited at ")

	require.NoError(t, h.room.Delete(sent.ID))
	assert.Empty(t, h.room.Snapshot().Messages)
	assert.Equal(t, status.Empty, h.room.Snapshot().State)
	assert.Empty(t, h.srv.Messages("r1"))

	var sawSent bool
	for len(ch) > 0 {
		if evt := <-ch; evt.Kind == bus.KindSent {
			sawSent = true
		}
	}
	assert.True(t, sawSent)
}

func TestEditOthersMessageRejected(t *testing.T) {
	h := newHarness(t, 10)
	m := h.srv.Seed("r1", "bob", "mine")
	require.NoError(t, h.room.Open(context.Background()))

	_, err := h.room.Edit(m.ID, "hijacked")
	assert.ErrorIs(t, err, sync.ErrNotOwner)
	assert.ErrorIs(t, h.room.Delete(m.ID), sync.ErrNotOwner)
}

func TestResumeNotifiesSeen(t *testing.T) {
	h := newHarness(t, 10)

	require.NoError(t, h.room.Open(context.Background()))
	h.room.Resume()
	assert.Empty(t, h.seen, "empty room must not notify")

	sent, err := h.room.Send("hi")
	require.NoError(t, err)
	h.room.Resume()
	assert.Equal(t, [][2]string{{"r1", sent.CreatedAt}}, h.seen)
}

func TestTypingPresence(t *testing.T) {
	h := newHarness(t, 10)
	ch, unsub := h.bus.Subscribe(bus.KindTyping, 64)
	defer unsub()

	h.srv.SetTyping("r1", "alice", true)
	h.srv.SetTyping("r1", "bob", true)
	require.NoError(t, h.room.Open(context.Background()))

	select {
	case evt := <-ch:
		assert.Equal(t, []string{"bob"}, evt.Payload.(presence.Typing).Users)
	case <-time.After(time.Second):
		t.Fatal("no typing event")
	}

	h.room.Keystroke()
	require.Eventually(t, func() bool { return h.srv.Typing("r1")["alice"] }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return !h.srv.Typing("r1")["alice"] }, time.Second, 5*time.Millisecond)
}

func TestCloseStopsEverything(t *testing.T) {
	h := newHarness(t, 10)
	require.NoError(t, h.room.Open(context.Background()))

	h.room.Keystroke()
	require.Eventually(t, func() bool { return h.srv.Typing("r1")["alice"] }, time.Second, 5*time.Millisecond)
	h.room.Close()
	assert.False(t, h.srv.Typing("r1")["alice"], "close must send the stop signal")

	polls := h.srv.Calls("/messages/typing/get")
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, polls, h.srv.Calls("/messages/typing/get"))

	_, err := h.room.Send("late")
	assert.ErrorIs(t, err, sync.ErrClosed)
	assert.ErrorIs(t, h.room.Open(context.Background()), sync.ErrClosed)
}

func TestOperationsBeforeOpen(t *testing.T) {
	h := newHarness(t, 10)
	_, err := h.room.Send("early")
	assert.ErrorIs(t, err, ErrNotOpen)
}

func TestFormatTimestamp(t *testing.T) {
	assert.Equal(t, "14:05, 03/02/2024", FormatTimestamp("2024-02-03T14:05:09Z"))
	assert.Equal(t, "14:05, 03/02/2024", FormatTimestamp("2024-02-03T14:05:09.123+00:00"))
	assert.Equal(t, "", FormatTimestamp("yesterday"))

	m := chat.Message{CreatedAt: "2024-02-03T14:05:09Z", Edited: true, Content: chat.Content{CreatedAt: "2024-02-03T15:00:00Z"}}
	assert.Equal(t, "14:05, 03/02/2024\n (edited at 15:00, 03/02/2024)", MessageTime(m))
}

package tui

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/avitalVissoky/ChatLibrary/internal/bus"
	"github.com/avitalVissoky/ChatLibrary/internal/chatapi"
	"github.com/avitalVissoky/ChatLibrary/internal/chatapi/chatapitest"
	"github.com/avitalVissoky/ChatLibrary/internal/config"
	"github.com/avitalVissoky/ChatLibrary/internal/room"
	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	a := NewApp(Deps{Bus: bus.New()})
	t.Cleanup(a.cancel)
	return a
}

func runeKey(r rune) *tcell.EventKey {
	return tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone)
}

func TestCommandsRequireLogin(t *testing.T) {
	a := newTestApp(t)
	a.runCommand(ParseCommand("open r1"))

	msg := a.flash.Get()
	require.NotNil(t, msg)
	assert.Equal(t, "Log in first", msg.Text)
	assert.Nil(t, a.current)
}

func TestUnknownCommand(t *testing.T) {
	a := newTestApp(t)
	a.runCommand(ParseCommand("frobnicate"))

	msg := a.flash.Get()
	require.NotNil(t, msg)
	assert.Equal(t, "Unknown command: frobnicate", msg.Text)
}

func TestHelpAndBack(t *testing.T) {
	a := newTestApp(t)
	a.pages.Reset(pageRooms)

	assert.Nil(t, a.handleKey(runeKey('?')))
	assert.Equal(t, pageHelp, a.pages.Current())

	assert.Nil(t, a.handleKey(tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone)))
	assert.Equal(t, pageRooms, a.pages.Current())

	// The root page stays.
	a.handleKey(tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone))
	assert.Equal(t, pageRooms, a.pages.Current())
}

func TestLoginPageIgnoresBindings(t *testing.T) {
	a := newTestApp(t)
	a.pages.Reset(pageLogin)

	ev := runeKey('?')
	assert.Same(t, ev, a.handleKey(ev))
	assert.Equal(t, pageLogin, a.pages.Current())
}

func TestEscapeClearsRoomFilter(t *testing.T) {
	a := newTestApp(t)
	a.pages.Reset(pageRooms)
	a.rooms.SetFilter("alice")

	a.back()
	assert.Empty(t, a.rooms.Filter())
	assert.Equal(t, pageRooms, a.pages.Current())
}

func TestRetryWithoutRoomIsNoop(t *testing.T) {
	a := newTestApp(t)
	a.retry()
	a.editSelected()
	a.deleteSelected()
	assert.Nil(t, a.flash.Get())
}

func TestSeenOnlyWhenReturningToRoom(t *testing.T) {
	srv := chatapitest.NewServer()
	t.Cleanup(srv.Close)
	srv.Seed("r1", "bob", "hello")

	client, err := chatapi.New(chatapi.Options{BaseURL: srv.URL, Timeout: 2 * time.Second})
	require.NoError(t, err)

	var seen atomic.Int32
	opts := config.Options{OnSeen: func(string, string) { seen.Add(1) }}
	b := bus.New()
	r := room.New(client, b, nil, "r1", "alice", opts, config.Default().Room)
	t.Cleanup(r.Close)
	require.NoError(t, r.Open(context.Background()))

	a := NewApp(Deps{Client: client, Bus: b})
	t.Cleanup(a.cancel)
	cur := &openRoom{room: r, title: "r1", cancel: func() {}, unsub: func() {}}
	a.current = cur
	a.pages.Reset(pageRooms)
	a.pages.Push(pageRoom)

	a.apply(cur, bus.Event{Kind: bus.KindTimelineChanged, RoomID: "r1"})
	assert.Never(t, func() bool { return seen.Load() > 0 }, 100*time.Millisecond, 10*time.Millisecond)

	a.pages.Push(pageHelp)
	a.back()
	assert.Equal(t, pageRoom, a.pages.Current())
	assert.Eventually(t, func() bool { return seen.Load() == 1 }, time.Second, 10*time.Millisecond)
}

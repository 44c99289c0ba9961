package sync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	gosync "sync"

	"github.com/avitalVissoky/ChatLibrary/internal/bus"
	"github.com/avitalVissoky/ChatLibrary/internal/chat"
	"github.com/avitalVissoky/ChatLibrary/internal/chatapi"
	"github.com/avitalVissoky/ChatLibrary/internal/status"
	"go.uber.org/zap"
)

var (
	ErrEmptyText = errors.New("message text is empty")
	ErrNotOwner  = errors.New("message was sent by another user")
	ErrNoMessage = errors.New("message not in timeline")
	ErrClosed    = errors.New("room closed")
)

// Client is the subset of the chat service used by the synchronizer.
type Client interface {
	FetchMessages(ctx context.Context, roomID, cursor string, limit int) ([]chat.Message, error)
	SendMessage(ctx context.Context, msg chat.Message) (chat.Message, error)
	DeleteMessage(ctx context.Context, msgID, roomID string) (string, error)
	UpdateMessage(ctx context.Context, msgID string, content chat.Content) (chat.Message, error)
}

// Op names a timeline mutation.
type Op string

const (
	OpPrepend Op = "prepend"
	OpAppend  Op = "append"
	OpRemove  Op = "remove"
	OpReplace Op = "replace"
)

// TimelineChange is the payload of room.timeline_changed events. Index and
// Count describe the affected range after the change.
type TimelineChange struct {
	RoomID string
	Op     Op
	Index  int
	Count  int
}

// Notice is the payload of room.notice events: a failure that does not
// replace the displayed timeline.
type Notice struct {
	RoomID string
	Err    error
}

// Snapshot is a consistent copy of the engine state.
type Snapshot struct {
	Messages []chat.Message
	State    status.State
	Cursor   string
	Loading  bool
}

// Engine synchronizes the timeline of one room with the chat service and
// publishes every change on the bus. Results that arrive after Close are
// dropped.
type Engine struct {
	mu       gosync.Mutex
	tl       *Timeline
	machine  *status.Machine
	client   Client
	bus      *bus.Bus
	logger   *zap.Logger
	roomID   string
	userID   string
	pageSize int
	closed   bool
}

// NewEngine creates a new sync engine for roomID as seen by userID.
func NewEngine(client Client, b *bus.Bus, logger *zap.Logger, roomID, userID string, pageSize int) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pageSize <= 0 {
		pageSize = 10
	}
	return &Engine{
		tl:       NewTimeline(),
		machine:  status.NewMachine(b, roomID),
		client:   client,
		bus:      b,
		logger:   logger.With(zap.String("room_id", roomID)),
		roomID:   roomID,
		userID:   userID,
		pageSize: pageSize,
	}
}

// LoadInitial fetches the newest page.
func (e *Engine) LoadInitial(ctx context.Context) error {
	_, err := e.fetch(ctx)
	return err
}

// LoadOlder fetches the page before the cursor. It reports false without
// fetching when a fetch is already in flight.
func (e *Engine) LoadOlder(ctx context.Context) (bool, error) {
	return e.fetch(ctx)
}

// Retry leaves the error or empty page and re-issues the fetch with the
// current cursor.
func (e *Engine) Retry(ctx context.Context) error {
	e.mu.Lock()
	if cur := e.machine.Current(); cur == status.Error || cur == status.Empty {
		e.transition(status.Loading)
	}
	e.mu.Unlock()
	_, err := e.fetch(ctx)
	return err
}

func (e *Engine) fetch(ctx context.Context) (bool, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return false, ErrClosed
	}
	if !e.tl.BeginLoad() {
		e.mu.Unlock()
		return false, nil
	}
	cursor := e.tl.Cursor()
	e.mu.Unlock()

	page, err := e.client.FetchMessages(ctx, e.roomID, cursor, e.pageSize)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		e.logger.Debug("dropping page for closed room", zap.Int("count", len(page)))
		return true, ErrClosed
	}
	if err != nil {
		e.tl.Fail()
		e.handleFailure(err)
		return true, fmt.Errorf("fetch messages: %w", err)
	}

	res := e.tl.Merge(page)
	e.logger.Debug("page merged",
		zap.String("cursor", cursor),
		zap.Int("added", res.Added),
		zap.Int("dropped", res.Dropped),
	)
	if res.Added > 0 {
		e.publishChange(OpPrepend, 0, res.Added)
	}
	e.settle()
	return true, nil
}

// Send posts text as a new message and appends it once the server confirms.
func (e *Engine) Send(ctx context.Context, text string) (chat.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return chat.Message{}, ErrEmptyText
	}
	if e.isClosed() {
		return chat.Message{}, ErrClosed
	}

	sent, err := e.client.SendMessage(ctx, chat.Message{
		ChatRoomID: e.roomID,
		SenderID:   e.userID,
		Content:    chat.NewText(text),
	})

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return chat.Message{}, ErrClosed
	}
	if err != nil {
		e.handleFailure(err)
		return chat.Message{}, fmt.Errorf("send message: %w", err)
	}

	if i, ok := e.tl.Append(sent); ok {
		e.publishChange(OpAppend, i, 1)
	}
	e.transition(status.Content)
	e.bus.Publish(bus.Event{Kind: bus.KindSent, RoomID: e.roomID, Payload: sent})
	return sent, nil
}

// Edit replaces the text of one of the local user's messages.
func (e *Engine) Edit(ctx context.Context, msgID, text string) (chat.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return chat.Message{}, ErrEmptyText
	}
	if err := e.checkOwner(msgID); err != nil {
		return chat.Message{}, err
	}

	updated, err := e.client.UpdateMessage(ctx, msgID, chat.NewText(text))

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return chat.Message{}, ErrClosed
	}
	if err != nil {
		e.handleFailure(err)
		return chat.Message{}, fmt.Errorf("update message: %w", err)
	}

	if i, ok := e.tl.Replace(updated); ok {
		e.publishChange(OpReplace, i, 1)
	}
	return updated, nil
}

// Delete removes one of the local user's messages.
func (e *Engine) Delete(ctx context.Context, msgID string) error {
	if err := e.checkOwner(msgID); err != nil {
		return err
	}

	deletedID, err := e.client.DeleteMessage(ctx, msgID, e.roomID)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	if err != nil {
		e.handleFailure(err)
		return fmt.Errorf("delete message: %w", err)
	}

	if i, ok := e.tl.Remove(deletedID); ok {
		e.publishChange(OpRemove, i, 1)
		if e.tl.Len() == 0 {
			e.transition(status.Empty)
		}
	}
	return nil
}

// Close marks the engine closed. In-flight results are dropped on arrival.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
}

// Snapshot returns a copy of the current state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Snapshot{
		Messages: e.tl.Messages(),
		State:    e.machine.Current(),
		Cursor:   e.tl.Cursor(),
		Loading:  e.tl.Loading(),
	}
}

// Last returns the newest message of the timeline.
func (e *Engine) Last() (chat.Message, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tl.Last()
}

// State returns the display state.
func (e *Engine) State() status.State {
	return e.machine.Current()
}

func (e *Engine) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

func (e *Engine) checkOwner(msgID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	m, ok := e.tl.Find(msgID)
	if !ok {
		return fmt.Errorf("%s: %w", msgID, ErrNoMessage)
	}
	if m.SenderID != e.userID {
		return fmt.Errorf("%s: %w", msgID, ErrNotOwner)
	}
	return nil
}

// handleFailure picks how a failed call is shown. Must hold e.mu.
func (e *Engine) handleFailure(err error) {
	empty := e.tl.Len() == 0
	switch {
	case empty && chatapi.IsTimeout(err):
		e.transition(status.Empty)
	case empty && e.tl.FirstLoad():
		e.transition(status.Error)
	default:
		e.bus.Publish(bus.Event{
			Kind:    bus.KindNotice,
			RoomID:  e.roomID,
			Payload: Notice{RoomID: e.roomID, Err: err},
		})
		if e.machine.Current() == status.Loading {
			e.settle()
		}
	}
	e.logger.Warn("chat request failed",
		zap.Error(err),
		zap.String("kind", chatapi.KindOf(err).String()),
		zap.String("state", string(e.machine.Current())),
	)
}

func (e *Engine) settle() {
	if e.tl.Len() > 0 {
		e.transition(status.Content)
	} else {
		e.transition(status.Empty)
	}
}

func (e *Engine) transition(to status.State) {
	if err := e.machine.Transition(to); err != nil {
		e.logger.Debug("display state unchanged", zap.Error(err))
	}
}

func (e *Engine) publishChange(op Op, index, count int) {
	e.bus.Publish(bus.Event{
		Kind:    bus.KindTimelineChanged,
		RoomID:  e.roomID,
		Payload: TimelineChange{RoomID: e.roomID, Op: op, Index: index, Count: count},
	})
}

// Package room implements the controller of one open chat room: it owns the
// message synchronizer, the typing poller and the typing signaler, and ties
// their lifetime to Open and Close.
package room

import (
	"context"
	"errors"
	gosync "sync"

	"github.com/avitalVissoky/ChatLibrary/internal/bus"
	"github.com/avitalVissoky/ChatLibrary/internal/chat"
	"github.com/avitalVissoky/ChatLibrary/internal/config"
	"github.com/avitalVissoky/ChatLibrary/internal/presence"
	"github.com/avitalVissoky/ChatLibrary/internal/sync"
	"go.uber.org/zap"
)

// ErrNotOpen is returned by operations issued before Open.
var ErrNotOpen = errors.New("room not open")

// Client is the chat service as used by a room.
type Client interface {
	sync.Client
	presence.TypingFetcher
	presence.TypingSetter
}

// Room is one open chat room as seen by one user.
type Room struct {
	ID     string
	UserID string

	engine   *sync.Engine
	poller   *presence.Poller
	signaler *presence.Signaler
	opts     config.Options
	logger   *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu     gosync.Mutex
	opened bool
	closed bool
}

// New creates the controller for roomID. Nothing is fetched until Open.
func New(client Client, b *bus.Bus, logger *zap.Logger, roomID, userID string, opts config.Options, rc config.RoomConfig) *Room {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("room_id", roomID))
	ctx, cancel := context.WithCancel(context.Background())
	return &Room{
		ID:       roomID,
		UserID:   userID,
		engine:   sync.NewEngine(client, b, logger, roomID, userID, rc.PageSize),
		poller:   presence.NewPoller(client, b, logger, roomID, userID, rc.TypingPoll.Duration),
		signaler: presence.NewSignaler(client, logger, roomID, userID, rc.TypingIdle.Duration),
		opts:     opts,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Open starts typing presence and performs the first load. ctx bounds the
// first load only; the room stays open until Close.
func (r *Room) Open(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return sync.ErrClosed
	}
	if r.opened {
		r.mu.Unlock()
		return nil
	}
	r.opened = true
	r.poller.Start(r.ctx)
	r.signaler.Start(r.ctx)
	r.mu.Unlock()

	r.logger.Info("room opened", zap.String("user", r.UserID))

	loadCtx, stop := context.WithCancel(r.ctx)
	defer stop()
	unregister := context.AfterFunc(ctx, stop)
	defer unregister()
	return r.engine.LoadInitial(loadCtx)
}

// Close stops presence, cancels in-flight requests and drops their results.
// A final "stopped typing" signal is sent if the user was typing.
func (r *Room) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	opened := r.opened
	r.mu.Unlock()

	r.engine.Close()
	r.cancel()
	if opened {
		r.poller.Stop()
	}
	r.signaler.Stop()
	r.logger.Info("room closed")
}

// Resume tells the seen listener about the newest message, if any.
func (r *Room) Resume() {
	last, ok := r.engine.Last()
	if !ok {
		return
	}
	r.opts.NotifySeen(r.ID, last.CreatedAt)
}

// OnScroll loads the next older page when the first visible row is the top
// of the timeline. It reports whether a fetch was started.
func (r *Room) OnScroll(firstVisible, dx, dy int) (bool, error) {
	if err := r.ready(); err != nil {
		return false, err
	}
	if !ScrollTriggers(firstVisible, dx, dy) {
		return false, nil
	}
	return r.engine.LoadOlder(r.ctx)
}

// Send posts text. Whitespace-only text is rejected with sync.ErrEmptyText.
func (r *Room) Send(text string) (chat.Message, error) {
	if err := r.ready(); err != nil {
		return chat.Message{}, err
	}
	return r.engine.Send(r.ctx, text)
}

// Edit replaces the text of one of the user's own messages.
func (r *Room) Edit(msgID, text string) (chat.Message, error) {
	if err := r.ready(); err != nil {
		return chat.Message{}, err
	}
	return r.engine.Edit(r.ctx, msgID, text)
}

// Delete removes one of the user's own messages.
func (r *Room) Delete(msgID string) error {
	if err := r.ready(); err != nil {
		return err
	}
	return r.engine.Delete(r.ctx, msgID)
}

// Retry re-issues the failed fetch from the error or empty page.
func (r *Room) Retry() error {
	if err := r.ready(); err != nil {
		return err
	}
	return r.engine.Retry(r.ctx)
}

// Keystroke records composer input for the typing signal.
func (r *Room) Keystroke() {
	r.signaler.Keystroke()
}

// Snapshot returns the current timeline and display state.
func (r *Room) Snapshot() sync.Snapshot {
	return r.engine.Snapshot()
}

// Options returns the presentation options the room was created with.
func (r *Room) Options() config.Options {
	return r.opts
}

func (r *Room) ready() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch {
	case r.closed:
		return sync.ErrClosed
	case !r.opened:
		return ErrNotOpen
	}
	return nil
}

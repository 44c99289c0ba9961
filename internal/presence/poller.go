package presence

import (
	"context"
	"time"

	"github.com/avitalVissoky/ChatLibrary/internal/bus"
	"go.uber.org/zap"
)

// DefaultPollInterval is the typing poll period.
const DefaultPollInterval = 700 * time.Millisecond

// TypingFetcher reads the typing flags of a room.
type TypingFetcher interface {
	FetchTypingStatus(ctx context.Context, roomID string) (map[string]bool, error)
}

// Poller periodically fetches who is typing in a room and publishes the
// result as room.typing events. Failed polls are dropped; the next tick
// corrects them.
type Poller struct {
	client   TypingFetcher
	bus      *bus.Bus
	logger   *zap.Logger
	roomID   string
	self     string
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewPoller creates a poller for roomID. Typing flags of self are ignored.
func NewPoller(client TypingFetcher, b *bus.Bus, logger *zap.Logger, roomID, self string, interval time.Duration) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		client:   client,
		bus:      b,
		logger:   logger,
		roomID:   roomID,
		self:     self,
		interval: interval,
	}
}

// Start begins polling.
func (p *Poller) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})
	go p.loop(ctx)
}

// Stop stops the poller and waits for the loop to exit.
func (p *Poller) Stop() {
	if p.cancel != nil {
		p.cancel()
		<-p.done
	}
}

func (p *Poller) loop(ctx context.Context) {
	defer close(p.done)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.poll(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	statuses, err := p.client.FetchTypingStatus(ctx, p.roomID)
	if err != nil {
		p.logger.Debug("typing poll failed", zap.String("room_id", p.roomID), zap.Error(err))
		return
	}
	if ctx.Err() != nil {
		return
	}
	p.bus.Publish(bus.Event{
		Kind:    bus.KindTyping,
		RoomID:  p.roomID,
		Payload: Typing{RoomID: p.roomID, Users: Typers(statuses, p.self)},
	})
}

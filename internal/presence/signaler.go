package presence

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultIdleTimeout is how long after the last keystroke the user is
// considered to have stopped typing.
const DefaultIdleTimeout = 1500 * time.Millisecond

const sendTimeout = 5 * time.Second

// TypingSetter publishes the local user's typing flag.
type TypingSetter interface {
	SetTypingStatus(ctx context.Context, roomID, userID string, typing bool) error
}

// Signaler turns keystrokes into typing start/stop signals. The first
// keystroke after idle sends true; no keystroke for the idle timeout sends
// false. Signals are delivered in order by a single worker.
type Signaler struct {
	client TypingSetter
	logger *zap.Logger
	roomID string
	userID string
	idle   time.Duration

	mu      sync.Mutex
	typing  bool
	gen     uint64
	timer   *time.Timer
	queue   chan bool
	done    chan struct{}
	started bool
	stopped bool
}

// NewSignaler creates a signaler for userID in roomID.
func NewSignaler(client TypingSetter, logger *zap.Logger, roomID, userID string, idle time.Duration) *Signaler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}
	return &Signaler{
		client: client,
		logger: logger,
		roomID: roomID,
		userID: userID,
		idle:   idle,
		queue:  make(chan bool, 16),
		done:   make(chan struct{}),
	}
}

// Start launches the delivery worker. Pending signals outlive ctx so the
// final stop signal is still sent after the room closes.
func (s *Signaler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.stopped {
		return
	}
	s.started = true
	go s.worker(context.WithoutCancel(ctx))
}

// Keystroke records input activity.
func (s *Signaler) Keystroke() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if !s.typing {
		s.typing = true
		s.enqueue(true)
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.gen++
	gen := s.gen
	s.timer = time.AfterFunc(s.idle, func() { s.expire(gen) })
}

// Typing reports whether a start signal is outstanding.
func (s *Signaler) Typing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.typing
}

func (s *Signaler) expire(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped || gen != s.gen || !s.typing {
		return
	}
	s.typing = false
	s.enqueue(false)
}

// Stop cancels the idle timer, sends a final stop signal if typing, and
// waits for pending signals to be delivered.
func (s *Signaler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	if s.timer != nil {
		s.timer.Stop()
	}
	if s.typing {
		s.typing = false
		s.enqueue(false)
	}
	close(s.queue)
	started := s.started
	s.mu.Unlock()
	if started {
		<-s.done
	}
}

// enqueue must be called with s.mu held.
func (s *Signaler) enqueue(typing bool) {
	select {
	case s.queue <- typing:
	default:
		s.logger.Debug("typing signal dropped", zap.Bool("typing", typing))
	}
}

func (s *Signaler) worker(ctx context.Context) {
	defer close(s.done)
	for typing := range s.queue {
		callCtx, cancel := context.WithTimeout(ctx, sendTimeout)
		err := s.client.SetTypingStatus(callCtx, s.roomID, s.userID, typing)
		cancel()
		if err != nil {
			s.logger.Debug("typing signal failed",
				zap.String("room_id", s.roomID),
				zap.Bool("typing", typing),
				zap.Error(err),
			)
		}
	}
}

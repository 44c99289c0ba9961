package app

import (
	"fmt"
	gosync "sync"

	"github.com/avitalVissoky/ChatLibrary/internal/lock"
	"github.com/avitalVissoky/ChatLibrary/internal/session"
	"github.com/avitalVissoky/ChatLibrary/internal/store"
	"github.com/avitalVissoky/ChatLibrary/internal/tui/model"
	"go.uber.org/zap"
)

// Sessions holds the lock and the receipt store of the logged-in user. At
// most one user is logged in at a time.
type Sessions struct {
	logger *zap.Logger

	mu   gosync.Mutex
	user string
	lk   *lock.Lock
	db   *store.DB
}

// NewSessions creates a logged-out Sessions.
func NewSessions(logger *zap.Logger) *Sessions {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sessions{logger: logger}
}

// Login takes the user's lock and opens the user's store, logging out any
// previous user first.
func (s *Sessions) Login(user string) (model.Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.user == user && s.db != nil {
		return s.db, nil
	}
	if err := s.logoutLocked(); err != nil {
		s.logger.Warn("logout before login", zap.Error(err))
	}

	if err := session.EnsureDir(user); err != nil {
		return nil, fmt.Errorf("create user dir: %w", err)
	}
	lk, err := lock.Acquire(session.Dir(user))
	if err != nil {
		return nil, err
	}
	db, err := store.OpenMigrated(session.DBPath(user))
	if err != nil {
		_ = lk.Release()
		return nil, fmt.Errorf("open receipts: %w", err)
	}

	s.user, s.lk, s.db = user, lk, db
	s.logger.Info("session opened", zap.String("user", user), zap.String("lock", lk.Path()))
	return db, nil
}

// Logout closes the store and releases the lock. Logging out while logged
// out is a no-op.
func (s *Sessions) Logout() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logoutLocked()
}

// User returns the logged-in user, or "".
func (s *Sessions) User() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

func (s *Sessions) logoutLocked() error {
	if s.db == nil && s.lk == nil {
		return nil
	}
	var firstErr error
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			firstErr = fmt.Errorf("close receipts: %w", err)
		}
	}
	if s.lk != nil {
		if err := s.lk.Release(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("release lock: %w", err)
		}
	}
	s.logger.Info("session closed", zap.String("user", s.user))
	s.user, s.lk, s.db = "", nil, nil
	return firstErr
}

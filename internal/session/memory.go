package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/authkeeper/internal/models"
)

type memoryEntry struct {
	session   models.Session
	expiresAt time.Time
}

// MemoryStore keeps sessions in process memory. Expired entries are
// invisible to Get immediately and are reclaimed by StartSweeper.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]memoryEntry
	ttl      time.Duration
	now      func() time.Time
}

// NewMemoryStore returns an empty store issuing sessions that live for ttl.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]memoryEntry),
		ttl:      ttl,
		now:      time.Now,
	}
}

// TTL returns the lifetime applied to new sessions.
func (s *MemoryStore) TTL() time.Duration {
	return s.ttl
}

// Create stores a new session for userID.
func (s *MemoryStore) Create(_ context.Context, userID string) (*models.Session, error) {
	id, err := newID()
	if err != nil {
		return nil, err
	}
	now := s.now()
	sess := models.Session{ID: id, UserID: userID, CreatedAt: now.UTC()}

	s.mu.Lock()
	s.sessions[id] = memoryEntry{session: sess, expiresAt: now.Add(s.ttl)}
	s.mu.Unlock()

	return &sess, nil
}

// Get resolves id to its session, or ErrNotFound if missing or expired.
func (s *MemoryStore) Get(_ context.Context, id string) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if !ok || !s.now().Before(e.expiresAt) {
		return nil, ErrNotFound
	}
	sess := e.session
	return &sess, nil
}

// Destroy deletes the session. Destroying a missing or expired session returns ErrNotFound.
func (s *MemoryStore) Destroy(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.sessions, id)
	if !s.now().Before(e.expiresAt) {
		return ErrNotFound
	}
	return nil
}

// Sweep removes expired sessions and returns how many were dropped.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for id, e := range s.sessions {
		if !now.Before(e.expiresAt) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// StartSweeper runs Sweep every interval until ctx is cancelled.
func (s *MemoryStore) StartSweeper(ctx context.Context, interval time.Duration, log *zap.Logger) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.Sweep(); n > 0 {
					log.Info("swept expired sessions", zap.Int("removed", n))
				}
			}
		}
	}()
}

// Package session provides the in-memory session backend.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/guildboard/internal/domain"
)

// MemoryStore keeps sessions in a process-local map. Restarting the process
// invalidates every session.
type MemoryStore struct {
	mu       sync.RWMutex
	clock    clockwork.Clock
	sessions map[uuid.UUID]domain.Session
}

var _ domain.SessionStore = (*MemoryStore)(nil)

func NewMemoryStore(clock clockwork.Clock) *MemoryStore {
	return &MemoryStore{
		clock:    clock,
		sessions: make(map[uuid.UUID]domain.Session),
	}
}

func (s *MemoryStore) Create(_ context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[session.ID]; exists {
		return fmt.Errorf("session %s already exists", session.ID)
	}
	s.sessions[session.ID] = clone(session)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (*domain.Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok || s.expired(session) {
		return nil, domain.ErrSessionNotFound
	}
	out := clone(&session)
	return &out, nil
}

func (s *MemoryStore) Update(_ context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.sessions[session.ID]
	if !ok || s.expired(current) {
		return domain.ErrSessionNotFound
	}
	s.sessions[session.ID] = clone(session)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored sessions, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// EvictExpired removes expired sessions and returns how many were removed.
func (s *MemoryStore) EvictExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, session := range s.sessions {
		if s.expired(session) {
			delete(s.sessions, id)
			evicted++
		}
	}
	return evicted
}

// StartEvictionTimer runs a periodic goroutine that evicts expired sessions.
// Returns a stop function that should be deferred.
func (s *MemoryStore) StartEvictionTimer(interval time.Duration) func() {
	ticker := s.clock.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.Chan():
				if evicted := s.EvictExpired(); evicted > 0 {
					slog.Debug("Evicted expired sessions", "count", evicted, "remaining", s.Len())
				}
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
	}
}

func (s *MemoryStore) expired(session domain.Session) bool {
	return !s.clock.Now().Before(session.ExpiresAt)
}

// clone copies the session so callers cannot mutate stored state.
func clone(session *domain.Session) domain.Session {
	out := *session
	if session.Guilds != nil {
		out.Guilds = make([]domain.GuildMembership, len(session.Guilds))
		copy(out.Guilds, session.Guilds)
	}
	return out
}

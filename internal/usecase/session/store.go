// Package session keeps per-conversation chat history in memory.
// Sessions are owned by the transport layer; the query pipeline itself
// is stateless.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/coachchat/coachchat/internal/domain"
)

type entry struct {
	turns    []domain.ChatTurn
	lastSeen time.Time
}

// Store is an in-memory session store with TTL-based expiry.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*entry
	ttl      time.Duration
	now      func() time.Time
}

// New creates a session store. Sessions idle longer than ttl are
// dropped by the sweeper (ttl <= 0 disables expiry).
func New(ttl time.Duration) *Store {
	return &Store{
		sessions: make(map[string]*entry),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Create allocates a new session and returns its id.
func (s *Store) Create() string {
	id := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = &entry{lastSeen: s.now()}

	return id
}

// Append adds turns to a session's history. Unknown ids get
// domain.ErrSessionNotFound.
func (s *Store) Append(id string, turns ...domain.ChatTurn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		return domain.ErrSessionNotFound
	}

	e.turns = append(e.turns, turns...)
	e.lastSeen = s.now()
	return nil
}

// History returns a copy of the session's turns in append order.
func (s *Store) History(id string) ([]domain.ChatTurn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}

	out := make([]domain.ChatTurn, len(e.turns))
	copy(out, e.turns)
	return out, nil
}

// Exists reports whether the session id is known.
func (s *Store) Exists(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[id]
	return ok
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep drops sessions idle longer than the TTL and returns how many
// were removed.
func (s *Store) Sweep() int {
	if s.ttl <= 0 {
		return 0
	}

	cutoff := s.now().Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.sessions {
		if e.lastSeen.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Run sweeps expired sessions periodically until the context is done.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	if s.ttl <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

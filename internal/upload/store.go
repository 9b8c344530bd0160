package upload

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// maxIDAttempts bounds how often Register re-draws an id that collides with a live session
// before falling back to a random UUID.
const maxIDAttempts = 8

// MemoryStore is the in-process Store. Its contents do not survive a restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
	newID    IDGenerator
	now      func() time.Time
}

// StoreOption customizes a MemoryStore.
type StoreOption func(*MemoryStore)

// WithIDGenerator replaces the default UUID generator.
func WithIDGenerator(gen IDGenerator) StoreOption {
	return func(s *MemoryStore) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// WithClock replaces time.Now for creation timestamps.
func WithClock(now func() time.Time) StoreOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore(opts ...StoreOption) *MemoryStore {
	s := &MemoryStore{
		sessions: make(map[string]Session),
		newID:    UUIDGenerator(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register stores locator under a fresh id that is unique among live sessions.
func (s *MemoryStore) Register(locator string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.uniqueIDLocked()
	s.sessions[id] = Session{
		ID:        id,
		Locator:   locator,
		CreatedAt: s.now(),
	}
	return id
}

func (s *MemoryStore) uniqueIDLocked() string {
	for i := 0; i < maxIDAttempts; i++ {
		id := strings.TrimSpace(s.newID())
		if id == "" {
			continue
		}
		if _, taken := s.sessions[id]; !taken {
			return id
		}
	}
	for {
		id := uuid.NewString()
		if _, taken := s.sessions[id]; !taken {
			return id
		}
	}
}

// Resolve returns the locator for id without consuming it.
func (s *MemoryStore) Resolve(id string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return "", ErrSessionNotFound
	}
	return session.Locator, nil
}

// Retire removes id and reports whether it was live. Retiring an unknown id is a no-op.
func (s *MemoryStore) Retire(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	return true
}

// Len returns the number of live sessions.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep retires every session created before the cutoff.
func (s *MemoryStore) Sweep(before time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, session := range s.sessions {
		if session.CreatedAt.Before(before) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

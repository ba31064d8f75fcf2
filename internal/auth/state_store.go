package auth

import (
	"sync"
	"time"
)

// StateStore keeps the PKCE verifier for each outstanding authorization
// request, keyed by its CSRF state.
type StateStore interface {
	StoreState(state, verifier string) error
	// ConsumeState returns the verifier for state and forgets it. A state
	// can only be consumed once.
	ConsumeState(state string) (string, bool)
}

type pendingAuth struct {
	verifier  string
	expiresAt time.Time
}

// InMemoryStateStore provides an in-memory implementation of the StateStore interface.
type InMemoryStateStore struct {
	mu     sync.Mutex
	states map[string]pendingAuth
	ttl    time.Duration
	now    func() time.Time
}

// NewInMemoryStateStore creates a new InMemoryStateStore. Entries older than
// ttl are rejected; a non-positive ttl means they never expire.
func NewInMemoryStateStore(ttl time.Duration) *InMemoryStateStore {
	return &InMemoryStateStore{
		states: make(map[string]pendingAuth),
		ttl:    ttl,
		now:    time.Now,
	}
}

// StoreState stores the verifier for a given state.
func (s *InMemoryStateStore) StoreState(state, verifier string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evictExpired()
	entry := pendingAuth{verifier: verifier}
	if s.ttl > 0 {
		entry.expiresAt = s.now().Add(s.ttl)
	}
	s.states[state] = entry
	return nil
}

// ConsumeState validates and then deletes the state.
func (s *InMemoryStateStore) ConsumeState(state string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.states[state]
	if !ok {
		return "", false
	}
	delete(s.states, state)
	if s.expired(entry) {
		return "", false
	}
	return entry.verifier, true
}

func (s *InMemoryStateStore) expired(e pendingAuth) bool {
	return !e.expiresAt.IsZero() && s.now().After(e.expiresAt)
}

// evictExpired must be called with mu held.
func (s *InMemoryStateStore) evictExpired() {
	for k, e := range s.states {
		if s.expired(e) {
			delete(s.states, k)
		}
	}
}

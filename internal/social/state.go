package social

import (
	"crypto/rand"
	"encoding/base64"
	"sync"
	"time"
)

// stateTTL bounds how long an issued OAuth state stays redeemable.
const stateTTL = 10 * time.Minute

// StateStore issues and redeems single-use OAuth state tokens. Every
// provider goes through it; a callback without a matching state is
// rejected.
type StateStore struct {
	mu     sync.Mutex
	states map[string]time.Time
	now    func() time.Time
}

// NewStateStore creates an empty state store.
func NewStateStore() *StateStore {
	return &StateStore{
		states: make(map[string]time.Time),
		now:    time.Now,
	}
}

// Issue creates and records a fresh state token.
func (s *StateStore) Issue() string {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	state := base64.RawURLEncoding.EncodeToString(buf)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.prune()
	s.states[state] = s.now().Add(stateTTL)
	return state
}

// Redeem consumes a state token, reporting whether it was valid. A
// token redeems at most once.
func (s *StateStore) Redeem(state string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiry, ok := s.states[state]
	if !ok {
		return false
	}
	delete(s.states, state)
	return s.now().Before(expiry)
}

// prune drops expired entries. Caller holds the lock.
func (s *StateStore) prune() {
	now := s.now()
	for state, expiry := range s.states {
		if now.After(expiry) {
			delete(s.states, state)
		}
	}
}

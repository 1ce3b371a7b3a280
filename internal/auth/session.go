package auth

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"invoicedash/internal/types"
)

// DefaultSessionTTL is how long an issued session stays valid.
const DefaultSessionTTL = 24 * time.Hour

// SessionStore holds issued session tokens in memory. Tokens are opaque
// 32-byte random hex strings; expired entries are pruned lazily on access.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]sessionEntry
	ttl      time.Duration
	clock    types.Clock
}

type sessionEntry struct {
	identity  types.Identity
	expiresAt time.Time
}

// NewSessionStore creates a SessionStore with the given TTL. clock may be
// nil for the real clock.
func NewSessionStore(ttl time.Duration, clock types.Clock) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if clock == nil {
		clock = types.RealClock{}
	}
	return &SessionStore{
		sessions: make(map[string]sessionEntry),
		ttl:      ttl,
		clock:    clock,
	}
}

// Issue creates a session for the identity and returns its token.
func (s *SessionStore) Issue(id types.Identity) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	token := hex.EncodeToString(buf)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = sessionEntry{
		identity:  id,
		expiresAt: s.clock.Now().Add(s.ttl),
	}
	return token, nil
}

// Resolve returns the identity for a token, or false for unknown or
// expired tokens. Expired entries are removed on the way out.
func (s *SessionStore) Resolve(token string) (types.Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.sessions[token]
	if !ok {
		return types.Identity{}, false
	}
	if s.clock.Now().After(entry.expiresAt) {
		delete(s.sessions, token)
		return types.Identity{}, false
	}
	return entry.identity, true
}

// Invalidate removes a session. Unknown tokens are a no-op.
func (s *SessionStore) Invalidate(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
}

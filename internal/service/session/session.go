// Package session keeps the admin login sessions issued by /auth/login.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultTTL matches the lifetime of the login cookie.
const DefaultTTL = 30 * 24 * time.Hour

// Store is an in-memory set of session tokens with expiry.
type Store struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.Mutex
	sessions map[string]time.Time
}

// NewStore creates a store whose sessions live for ttl.
func NewStore(ttl time.Duration) *Store {
	return &Store{ttl: ttl, now: time.Now, sessions: make(map[string]time.Time)}
}

// TTL returns the lifetime of new sessions.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Create issues a new session token.
func (s *Store) Create() string {
	token := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.prune()
	s.sessions[token] = s.now().Add(s.ttl)
	return token
}

// Valid reports whether token names a live session.
func (s *Store) Valid(token string) bool {
	if token == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	expires, ok := s.sessions[token]
	if !ok {
		return false
	}
	if !s.now().Before(expires) {
		delete(s.sessions, token)
		return false
	}
	return true
}

// Revoke ends a session. Unknown tokens are ignored.
func (s *Store) Revoke(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
}

// Len returns the number of stored sessions, expired ones included until pruned.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Store) prune() {
	now := s.now()
	for token, expires := range s.sessions {
		if !now.Before(expires) {
			delete(s.sessions, token)
		}
	}
}

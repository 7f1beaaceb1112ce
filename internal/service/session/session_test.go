package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStore_Lifecycle(t *testing.T) {
	s := NewStore(time.Hour)

	token := s.Create()
	assert.NotEmpty(t, token)
	assert.True(t, s.Valid(token))
	assert.False(t, s.Valid("nope"))
	assert.False(t, s.Valid(""))

	s.Revoke(token)
	assert.False(t, s.Valid(token))
	s.Revoke(token)
}

func TestStore_Expiry(t *testing.T) {
	now := time.Unix(1000, 0)
	s := NewStore(time.Minute)
	s.now = func() time.Time { return now }

	old := s.Create()
	assert.True(t, s.Valid(old))

	now = now.Add(time.Minute)
	assert.False(t, s.Valid(old))
	assert.Equal(t, 0, s.Len())

	stale := s.Create()
	now = now.Add(2 * time.Minute)
	fresh := s.Create()
	assert.Equal(t, 1, s.Len(), "expired sessions are pruned on create")
	assert.True(t, s.Valid(fresh))
	assert.False(t, s.Valid(stale))
}

func TestStore_TokensAreUnique(t *testing.T) {
	s := NewStore(DefaultTTL)
	seen := make(map[string]bool)
	for range 100 {
		token := s.Create()
		assert.False(t, seen[token])
		seen[token] = true
	}
	assert.Equal(t, 100, s.Len())
}

package session

import (
	"context"
	"sync"

	"github.com/wichananm65/pet-shop-orders/internal/apperr"
)

// InMemoryStore is used for tests and local scenarios.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Identity
}

func NewInMemoryStore(seed ...Identity) *InMemoryStore {
	s := &InMemoryStore{sessions: make(map[string]Identity, len(seed))}
	for _, id := range seed {
		s.sessions[id.Token] = id
	}
	return s
}

func (s *InMemoryStore) Get(_ context.Context, token string) (Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.sessions[token]
	if !ok {
		return Identity{}, apperr.ErrSessionNotFound
	}
	return id, nil
}

func (s *InMemoryStore) Put(id Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id.Token] = id
}

// Expire drops a session, as a TTL expiry would.
func (s *InMemoryStore) Expire(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
}

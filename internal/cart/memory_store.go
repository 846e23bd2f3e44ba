package cart

import (
	"context"
	"sync"

	"github.com/wichananm65/pet-shop-orders/internal/apperr"
)

// InMemoryStore applies the Store contract under a single mutex.
type InMemoryStore struct {
	mu    sync.Mutex
	carts map[string]*Cart
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{carts: map[string]*Cart{}}
}

func (s *InMemoryStore) Get(_ context.Context, token string) (*Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.carts[token]
	if !ok {
		return nil, apperr.ErrCartNotFound
	}
	return c.Clone(), nil
}

func (s *InMemoryStore) Update(_ context.Context, token string, userID int64, create bool, fn Mutation) (*Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var c *Cart
	if cur, ok := s.carts[token]; ok {
		c = cur.Clone()
	} else if create {
		c = New(token, userID)
	} else {
		return nil, apperr.ErrCartNotFound
	}

	if err := fn(c); err != nil {
		return nil, err
	}
	c.Version++
	if c.IsEmpty() {
		delete(s.carts, token)
	} else {
		s.carts[token] = c.Clone()
	}
	return c, nil
}

func (s *InMemoryStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, token)
	return nil
}

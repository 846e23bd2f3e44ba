package product

import (
	"context"
	"sync"

	"github.com/wichananm65/pet-shop-orders/internal/apperr"
)

// InMemoryRepository is a simple in-memory catalog useful for tests and
// seeding local data.
type InMemoryRepository struct {
	mu      sync.RWMutex
	storage map[int64]Product
}

func NewInMemoryRepository(seed []Product) *InMemoryRepository {
	r := &InMemoryRepository{storage: make(map[int64]Product, len(seed))}
	for _, p := range seed {
		r.storage[p.ID] = p
	}
	return r
}

func (r *InMemoryRepository) GetByID(_ context.Context, id int64) (Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.storage[id]
	if !ok {
		return Product{}, apperr.ErrProductNotFound
	}
	return p, nil
}

// SetStock changes the available stock of an existing product.
func (r *InMemoryRepository) SetStock(id int64, stock int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.storage[id]
	if !ok {
		return apperr.ErrProductNotFound
	}
	p.Stock = stock
	r.storage[id] = p
	return nil
}

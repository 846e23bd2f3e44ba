package order

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/wichananm65/pet-shop-orders/internal/apperr"
)

// Repository persists orders.
//
// Update writes o only while the stored status still equals expected and
// returns apperr.ErrOrderConflict otherwise. Finders return orders by
// ascending id; FindByIDs keeps the order of ids.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	Update(ctx context.Context, o *Order, expected Status) error
	FindByID(ctx context.Context, id int64) (*Order, error)
	FindByIDs(ctx context.Context, ids []int64) ([]*Order, error)
	FindByUserID(ctx context.Context, userID int64) ([]*Order, error)
	FindByMerchantID(ctx context.Context, merchantID int64) ([]*Order, error)
	FindAll(ctx context.Context) ([]*Order, error)
	Delete(ctx context.Context, id int64) error
}

// InMemoryRepository is used by tests and STORAGE=memory.
type InMemoryRepository struct {
	mu     sync.RWMutex
	nextID int64
	orders map[int64]*Order
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{nextID: 1, orders: map[int64]*Order{}}
}

func (r *InMemoryRepository) Create(_ context.Context, o *Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	o.ID = r.nextID
	r.nextID++
	o.CreatedAt, o.UpdatedAt = now, now
	r.orders[o.ID] = o.Clone()
	return nil
}

func (r *InMemoryRepository) Update(_ context.Context, o *Order, expected Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.orders[o.ID]
	if !ok {
		return apperr.ErrOrderNotFound
	}
	if cur.Status != expected {
		return apperr.ErrOrderConflict
	}
	r.orders[o.ID] = o.Clone()
	return nil
}

func (r *InMemoryRepository) FindByID(_ context.Context, id int64) (*Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, apperr.ErrOrderNotFound
	}
	return o.Clone(), nil
}

func (r *InMemoryRepository) FindByIDs(_ context.Context, ids []int64) ([]*Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Order, 0, len(ids))
	for _, id := range ids {
		if o, ok := r.orders[id]; ok {
			out = append(out, o.Clone())
		}
	}
	return out, nil
}

func (r *InMemoryRepository) FindByUserID(_ context.Context, userID int64) ([]*Order, error) {
	return r.filter(func(o *Order) bool { return o.UserID == userID }), nil
}

func (r *InMemoryRepository) FindByMerchantID(_ context.Context, merchantID int64) ([]*Order, error) {
	return r.filter(func(o *Order) bool { return o.MerchantID == merchantID }), nil
}

func (r *InMemoryRepository) FindAll(_ context.Context) ([]*Order, error) {
	return r.filter(func(*Order) bool { return true }), nil
}

func (r *InMemoryRepository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[id]; !ok {
		return apperr.ErrOrderNotFound
	}
	delete(r.orders, id)
	return nil
}

func (r *InMemoryRepository) filter(keep func(*Order) bool) []*Order {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Order, 0)
	for _, o := range r.orders {
		if keep(o) {
			out = append(out, o.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

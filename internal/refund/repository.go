package refund

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/wichananm65/pet-shop-orders/internal/apperr"
)

// Repository persists refund requests. Create fails with
// apperr.ErrRefundAlreadyPending when the order already has a pending
// request.
type Repository interface {
	Create(ctx context.Context, r *Request) error
	Update(ctx context.Context, r *Request) error
	FindByID(ctx context.Context, id int64) (*Request, error)
	FindPendingByOrderID(ctx context.Context, orderID int64) (*Request, error)
	FindByUserID(ctx context.Context, userID int64) ([]*Request, error)
	FindByMerchantID(ctx context.Context, merchantID int64) ([]*Request, error)
	FindAll(ctx context.Context) ([]*Request, error)
	Delete(ctx context.Context, id int64) error
}

type InMemoryRepository struct {
	mu       sync.RWMutex
	nextID   int64
	requests map[int64]Request
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{nextID: 1, requests: map[int64]Request{}}
}

func (r *InMemoryRepository) Create(_ context.Context, req *Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if req.Status == StatusPending {
		for _, cur := range r.requests {
			if cur.OrderID == req.OrderID && cur.Status == StatusPending {
				return apperr.ErrRefundAlreadyPending
			}
		}
	}
	now := time.Now().UTC()
	req.ID = r.nextID
	r.nextID++
	req.CreatedAt, req.UpdatedAt = now, now
	r.requests[req.ID] = *req
	return nil
}

func (r *InMemoryRepository) Update(_ context.Context, req *Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.requests[req.ID]; !ok {
		return apperr.ErrRefundRequestNotFound
	}
	req.UpdatedAt = time.Now().UTC()
	r.requests[req.ID] = *req
	return nil
}

func (r *InMemoryRepository) FindByID(_ context.Context, id int64) (*Request, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	req, ok := r.requests[id]
	if !ok {
		return nil, apperr.ErrRefundRequestNotFound
	}
	return &req, nil
}

func (r *InMemoryRepository) FindPendingByOrderID(_ context.Context, orderID int64) (*Request, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, req := range r.requests {
		if req.OrderID == orderID && req.Status == StatusPending {
			return &req, nil
		}
	}
	return nil, apperr.ErrRefundRequestNotFound
}

func (r *InMemoryRepository) FindByUserID(_ context.Context, userID int64) ([]*Request, error) {
	return r.filter(func(req Request) bool { return req.UserID == userID }), nil
}

func (r *InMemoryRepository) FindByMerchantID(_ context.Context, merchantID int64) ([]*Request, error) {
	return r.filter(func(req Request) bool { return req.MerchantID == merchantID }), nil
}

func (r *InMemoryRepository) FindAll(_ context.Context) ([]*Request, error) {
	return r.filter(func(Request) bool { return true }), nil
}

func (r *InMemoryRepository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.requests, id)
	return nil
}

func (r *InMemoryRepository) filter(keep func(Request) bool) []*Request {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Request, 0)
	for _, req := range r.requests {
		if keep(req) {
			req := req
			out = append(out, &req)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

package cart

import (
	"context"
	"errors"

	"github.com/wichananm65/pet-shop-orders/internal/apperr"
	"github.com/wichananm65/pet-shop-orders/internal/product"
	"github.com/wichananm65/pet-shop-orders/internal/session"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Service is the cart manager. Every operation requires a CUSTOMER session.
type Service struct {
	sessions session.Store
	store    Store
	catalog  product.Catalog
	log      *zap.Logger
	views    singleflight.Group
}

func NewService(sessions session.Store, store Store, catalog product.Catalog, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{sessions: sessions, store: store, catalog: catalog, log: log}
}

func (s *Service) session(ctx context.Context, token string) (session.Identity, error) {
	return session.Resolve(ctx, s.sessions, token, session.RoleCustomer)
}

// AddItem checks the product before touching the cache, then merges the line.
// The resulting quantity for the product may not exceed the catalog stock.
func (s *Service) AddItem(ctx context.Context, token string, productID int64, quantity int) (*Cart, error) {
	id, err := s.session(ctx, token)
	if err != nil {
		return nil, err
	}
	if quantity <= 0 {
		return nil, apperr.ErrInvalidQuantity
	}

	p, err := s.catalog.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p.Stock < quantity {
		return nil, apperr.ErrInsufficientStock
	}

	c, err := s.store.Update(ctx, token, id.UserID, true, func(c *Cart) error {
		if cur, ok := c.Items[productID]; ok && cur.Quantity+quantity > p.Stock {
			return apperr.ErrInsufficientStock
		}
		c.Add(Line{ProductID: p.ID, Quantity: quantity, UnitPrice: p.Price, MerchantID: p.MerchantID})
		return nil
	})
	if err != nil {
		if errors.Is(err, apperr.ErrCartConflict) {
			s.log.Warn("cart update conflict", zap.Int64("user_id", id.UserID), zap.Int64("product_id", productID))
		}
		return nil, err
	}
	return c, nil
}

// ViewCart returns the cart, or an empty one bound to the session's user.
// Concurrent views of the same token share one cache read; that read is not
// tied to any single caller's cancellation.
func (s *Service) ViewCart(ctx context.Context, token string) (*Cart, error) {
	id, err := s.session(ctx, token)
	if err != nil {
		return nil, err
	}

	shared := context.WithoutCancel(ctx)
	ch := s.views.DoChan(token, func() (any, error) {
		return s.store.Get(shared, token)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if errors.Is(res.Err, apperr.ErrCartNotFound) {
		return New(token, id.UserID), nil
	}
	if res.Err != nil {
		return nil, res.Err
	}
	return res.Val.(*Cart).Clone(), nil
}

// RemoveItem drops the product line, or only quantity of it when given.
func (s *Service) RemoveItem(ctx context.Context, token string, productID int64, quantity *int) (*Cart, error) {
	id, err := s.session(ctx, token)
	if err != nil {
		return nil, err
	}
	if quantity != nil && *quantity <= 0 {
		return nil, apperr.ErrInvalidQuantity
	}

	c, err := s.store.Update(ctx, token, id.UserID, false, func(c *Cart) error {
		c.Remove(productID, quantity)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ClearCart deletes the cart. Clearing a missing cart is not an error.
func (s *Service) ClearCart(ctx context.Context, token string) error {
	if _, err := s.session(ctx, token); err != nil {
		return err
	}
	return s.store.Delete(ctx, token)
}

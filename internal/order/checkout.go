package order

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/wichananm65/pet-shop-orders/internal/apperr"
	"github.com/wichananm65/pet-shop-orders/internal/cart"
	"github.com/wichananm65/pet-shop-orders/internal/session"
	"go.uber.org/zap"
)

// CreateOrder checks out the session's cart into one CONFIRMED order per
// merchant. Stock is re-checked against the catalog before anything is
// written; prices keep their cart snapshot. Orders are persisted one by one
// and the checked-out lines leave the cart only after all of them are
// saved. A failure part way leaves the earlier orders in place.
//
// With an idempotency key a replay returns the orders of the first
// successful attempt, and a retry after a partial failure only creates the
// missing merchants' orders.
func (s *Service) CreateOrder(ctx context.Context, token, idempotencyKey string) ([]*Order, error) {
	id, err := s.Session(ctx, token, session.RoleCustomer)
	if err != nil {
		return nil, err
	}

	if idempotencyKey == "" {
		return s.checkout(ctx, token, id, map[int64]int64{}, nil)
	}

	rec, claimed, err := s.idem.Claim(ctx, id.UserID, idempotencyKey)
	if err != nil {
		return nil, fmt.Errorf("claim checkout key: %w", err)
	}
	if !claimed {
		if rec.State == CheckoutDone {
			return s.repo.FindByIDs(ctx, orderIDs(rec.Orders))
		}
		return nil, apperr.ErrCheckoutInProgress
	}

	// Progress is saved per order so a stale attempt can be resumed by the
	// next claim once its lease runs out.
	progress := func() {
		if serr := s.idem.Save(ctx, id.UserID, idempotencyKey, rec); serr != nil {
			s.log.Warn("checkout progress not recorded", zap.Int64("user_id", id.UserID), zap.Error(serr))
		}
	}
	orders, err := s.checkout(ctx, token, id, rec.Orders, progress)
	rec.State = CheckoutDone
	if err != nil {
		rec.State = CheckoutFailed
	}
	if serr := s.idem.Save(ctx, id.UserID, idempotencyKey, rec); serr != nil {
		s.log.Warn("checkout key not recorded", zap.Int64("user_id", id.UserID), zap.Error(serr))
	}
	return orders, err
}

// checkout records every order it creates in done, keyed by merchant, and
// calls progress after each one when given. A resumed attempt whose cart was
// already drained returns the orders recorded in done.
func (s *Service) checkout(ctx context.Context, token string, id session.Identity, done map[int64]int64, progress func()) ([]*Order, error) {
	c, err := s.carts.Get(ctx, token)
	if err != nil && !errors.Is(err, apperr.ErrCartNotFound) {
		return nil, err
	}
	if c == nil || c.IsEmpty() {
		if len(done) > 0 {
			return s.repo.FindByIDs(ctx, orderIDs(done))
		}
		if err != nil {
			return nil, err
		}
		return nil, apperr.ErrEmptyCart
	}
	lines := c.Lines()

	merchants, groups := GroupByMerchant(lines)
	for _, m := range merchants {
		if _, ok := done[m]; ok {
			continue
		}
		if err := s.checkStock(ctx, groups[m]); err != nil {
			return nil, err
		}
	}

	orders := make([]*Order, 0, len(merchants))
	for _, m := range merchants {
		if existing, ok := done[m]; ok {
			o, err := s.repo.FindByID(ctx, existing)
			if err != nil {
				return orders, err
			}
			orders = append(orders, o)
			continue
		}

		o := &Order{
			UserID:     id.UserID,
			MerchantID: m,
			UserEmail:  id.Email,
			Status:     StatusConfirmed,
		}
		o.SetLineItems(groups[m])
		if err := s.repo.Create(ctx, o); err != nil {
			s.log.Error("order persist failed",
				zap.Int64("user_id", id.UserID),
				zap.Int64("merchant_id", m),
				zap.Int("created", len(orders)),
				zap.Error(err))
			return orders, err
		}
		done[m] = o.ID
		orders = append(orders, o)
		if progress != nil {
			progress()
		}
	}

	s.drainCart(ctx, token, id.UserID, lines)
	s.log.Info("checkout completed", zap.Int64("user_id", id.UserID), zap.Int("orders", len(orders)))
	return orders, nil
}

func (s *Service) checkStock(ctx context.Context, lines []cart.Line) error {
	for _, l := range lines {
		p, err := s.catalog.GetByID(ctx, l.ProductID)
		if err != nil {
			return err
		}
		if p.Stock < l.Quantity {
			return fmt.Errorf("product %d: %w", l.ProductID, apperr.ErrInsufficientStock)
		}
	}
	return nil
}

// drainCart removes the checked-out quantities. Lines added while checkout
// ran stay; an otherwise empty cart is deleted by the store.
func (s *Service) drainCart(ctx context.Context, token string, userID int64, lines []cart.Line) {
	_, err := s.carts.Update(ctx, token, userID, false, func(c *cart.Cart) error {
		for _, l := range lines {
			q := l.Quantity
			c.Remove(l.ProductID, &q)
		}
		return nil
	})
	if err != nil && !errors.Is(err, apperr.ErrCartNotFound) {
		s.log.Error("cart not cleared after checkout", zap.Int64("user_id", userID), zap.Error(err))
	}
}

// orderIDs lists the ids by ascending merchant, matching checkout order.
func orderIDs(byMerchant map[int64]int64) []int64 {
	ids := make([]int64, 0, len(byMerchant))
	merchants := make([]int64, 0, len(byMerchant))
	for m := range byMerchant {
		merchants = append(merchants, m)
	}
	slices.Sort(merchants)
	for _, m := range merchants {
		ids = append(ids, byMerchant[m])
	}
	return ids
}

package order

import (
	"context"
	"time"

	"github.com/wichananm65/pet-shop-orders/internal/apperr"
	"github.com/wichananm65/pet-shop-orders/internal/cart"
	"github.com/wichananm65/pet-shop-orders/internal/product"
	"github.com/wichananm65/pet-shop-orders/internal/session"
	"go.uber.org/zap"
)

// StatusPublisher receives every committed status change.
type StatusPublisher interface {
	Publish(ctx context.Context, o Order)
}

type Dependencies struct {
	Sessions    session.Store
	Orders      Repository
	Carts       cart.Store
	Catalog     product.Catalog
	Idempotency IdempotencyStore
	Publisher   StatusPublisher
	Logger      *zap.Logger
}

// Service owns checkout and the order lifecycle.
type Service struct {
	sessions  session.Store
	repo      Repository
	carts     cart.Store
	catalog   product.Catalog
	idem      IdempotencyStore
	publisher StatusPublisher
	locks     *Locker
	exec      *Executor
	log       *zap.Logger
	now       func() time.Time
}

func NewService(d Dependencies) *Service {
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}
	idem := d.Idempotency
	if idem == nil {
		idem = NewInMemoryIdempotencyStore()
	}
	return &Service{
		sessions:  d.Sessions,
		repo:      d.Orders,
		carts:     d.Carts,
		catalog:   d.Catalog,
		idem:      idem,
		publisher: d.Publisher,
		locks:     NewLocker(),
		exec:      NewExecutor(log),
		log:       log,
		now:       time.Now,
	}
}

// Repository exposes the order store to collaborating workflows.
func (s *Service) Repository() Repository { return s.repo }

// Executor exposes the command executor to collaborating workflows.
func (s *Service) Executor() *Executor { return s.exec }

func (s *Service) Session(ctx context.Context, token string, roles ...session.Role) (session.Identity, error) {
	return session.Resolve(ctx, s.sessions, token, roles...)
}

// WithOrder loads orderID under its lock and hands the working copy to fn.
// fn persists its own changes. When fn succeeds and the stored status
// differs from the one loaded, the order is published.
func (s *Service) WithOrder(ctx context.Context, orderID int64, fn func(o *Order) error) (*Order, error) {
	unlock := s.locks.Lock(orderID)
	defer unlock()

	o, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	before := o.Status
	if err := fn(o); err != nil {
		return nil, err
	}
	if o.Status != before {
		s.publish(ctx, o)
	}
	return o, nil
}

func (s *Service) publish(ctx context.Context, o *Order) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(ctx, *o.Clone())
}

// canView: the owning customer, the order's merchant, or an admin.
func canView(id session.Identity, o *Order) bool {
	switch {
	case id.Is(session.RoleAdmin):
		return true
	case id.Is(session.RoleMerchant):
		return o.MerchantID == id.UserID
	case id.Is(session.RoleCustomer):
		return o.UserID == id.UserID
	}
	return false
}

// canFulfil: the order's merchant or an admin.
func canFulfil(id session.Identity, o *Order) bool {
	return id.Is(session.RoleAdmin) || (id.Is(session.RoleMerchant) && o.MerchantID == id.UserID)
}

func (s *Service) GetOrder(ctx context.Context, token string, orderID int64) (*Order, error) {
	id, err := s.Session(ctx, token)
	if err != nil {
		return nil, err
	}
	o, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !canView(id, o) {
		return nil, apperr.ErrUnauthorized
	}
	return o, nil
}

// ListOrders is scoped by role: merchants see their orders, customers their
// purchases, admins everything.
func (s *Service) ListOrders(ctx context.Context, token string) ([]*Order, error) {
	id, err := s.Session(ctx, token)
	if err != nil {
		return nil, err
	}
	switch {
	case id.Is(session.RoleMerchant):
		return s.repo.FindByMerchantID(ctx, id.UserID)
	case id.Is(session.RoleCustomer):
		return s.repo.FindByUserID(ctx, id.UserID)
	case id.Is(session.RoleAdmin):
		return s.repo.FindAll(ctx)
	}
	return nil, apperr.ErrInvalidRole
}

// fulfilmentEvents may be applied through UpdateOrder. Refund edges only go
// through the refund workflow.
var fulfilmentEvents = map[Event]bool{EventCancel: true, EventShip: true, EventDeliver: true}

// UpdateInput carries the fields a generic update may change. DeliveryDate
// is required when Status moves the order to SHIPPED.
type UpdateInput struct {
	LineItems    []cart.Line
	Status       *Status
	DeliveryDate *time.Time
}

// UpdateOrder replaces line items and, when the table allows it, moves the
// status through the matching lifecycle command. Line items can only change
// while the order is CONFIRMED.
func (s *Service) UpdateOrder(ctx context.Context, token string, orderID int64, in UpdateInput) (*Order, error) {
	id, err := s.Session(ctx, token, session.RoleMerchant, session.RoleAdmin)
	if err != nil {
		return nil, err
	}
	return s.WithOrder(ctx, orderID, func(o *Order) error {
		if !canFulfil(id, o) {
			return apperr.ErrUnauthorized
		}
		if in.LineItems != nil {
			if o.Status != StatusConfirmed {
				return apperr.New(apperr.ErrInvalidState, "line items can only change on a confirmed order")
			}
			for _, l := range in.LineItems {
				if l.Quantity <= 0 {
					return apperr.ErrInvalidQuantity
				}
			}
			o.SetLineItems(in.LineItems)
		}

		if in.Status == nil || *in.Status == o.Status {
			prev := o.Status
			o.UpdatedAt = s.now().UTC()
			return s.repo.Update(ctx, o, prev)
		}

		cmd, err := s.commandFor(o, *in.Status, in.DeliveryDate)
		if err != nil {
			return err
		}
		return s.exec.Run(ctx, cmd)
	})
}

// commandFor picks the fulfilment command that moves o to status.
func (s *Service) commandFor(o *Order, status Status, deliveryDate *time.Time) (Command, error) {
	ev, ok := EventFor(o.Status, status)
	if !ok || !fulfilmentEvents[ev] {
		return Command{}, apperr.New(apperr.ErrInvalidState, "cannot move order from "+string(o.Status)+" to "+string(status))
	}
	switch ev {
	case EventShip:
		if deliveryDate == nil {
			return Command{}, apperr.ErrDeliveryDateRequired
		}
		return NewShipCommand(o, s.repo, *deliveryDate), nil
	case EventDeliver:
		return NewDeliverCommand(o, s.repo, s.now()), nil
	default:
		return NewCancelCommand(o, s.repo), nil
	}
}

// DeleteOrder is an administrative removal outside the lifecycle.
func (s *Service) DeleteOrder(ctx context.Context, token string, orderID int64) error {
	if _, err := s.Session(ctx, token, session.RoleAdmin); err != nil {
		return err
	}
	unlock := s.locks.Lock(orderID)
	defer unlock()
	if err := s.repo.Delete(ctx, orderID); err != nil {
		return err
	}
	s.log.Info("order deleted", zap.Int64("order_id", orderID))
	return nil
}

// Cancel is allowed for the buyer, the order's merchant, or an admin.
func (s *Service) Cancel(ctx context.Context, token string, orderID int64) (*Order, error) {
	id, err := s.Session(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.WithOrder(ctx, orderID, func(o *Order) error {
		if !canView(id, o) {
			return apperr.ErrUnauthorized
		}
		return s.exec.Run(ctx, NewCancelCommand(o, s.repo))
	})
}

func (s *Service) Ship(ctx context.Context, token string, orderID int64, deliveryDate time.Time) (*Order, error) {
	id, err := s.Session(ctx, token, session.RoleMerchant, session.RoleAdmin)
	if err != nil {
		return nil, err
	}
	return s.WithOrder(ctx, orderID, func(o *Order) error {
		if !canFulfil(id, o) {
			return apperr.ErrUnauthorized
		}
		return s.exec.Run(ctx, NewShipCommand(o, s.repo, deliveryDate))
	})
}

func (s *Service) Deliver(ctx context.Context, token string, orderID int64) (*Order, error) {
	id, err := s.Session(ctx, token, session.RoleMerchant, session.RoleAdmin)
	if err != nil {
		return nil, err
	}
	return s.WithOrder(ctx, orderID, func(o *Order) error {
		if !canFulfil(id, o) {
			return apperr.ErrUnauthorized
		}
		return s.exec.Run(ctx, NewDeliverCommand(o, s.repo, s.now()))
	})
}

// TrackOrder is a read; it never changes the order.
func (s *Service) TrackOrder(ctx context.Context, token string, orderID int64) (string, error) {
	o, err := s.GetOrder(ctx, token, orderID)
	if err != nil {
		return "", err
	}
	return o.TrackingMessage(), nil
}

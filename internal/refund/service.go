package refund

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/wichananm65/pet-shop-orders/internal/apperr"
	"github.com/wichananm65/pet-shop-orders/internal/order"
	"github.com/wichananm65/pet-shop-orders/internal/session"
	"github.com/wichananm65/pet-shop-orders/internal/wallet"
	"go.uber.org/zap"
)

// Service files and resolves refund requests. Order changes go through the
// order service so they share its per-order lock and notifications.
type Service struct {
	orders *order.Service
	repo   Repository
	wallet wallet.Depositor
	log    *zap.Logger
}

func NewService(orders *order.Service, repo Repository, w wallet.Depositor, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{orders: orders, repo: repo, wallet: w, log: log}
}

// depositKey is stable per request so a retried acceptance never credits
// twice.
func depositKey(requestID int64) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("refund:%d", requestID))).String()
}

// RequestRefund files a PENDING request for the caller's own order and moves
// the order to REFUND_PENDING.
func (s *Service) RequestRefund(ctx context.Context, token string, orderID int64) (*Request, error) {
	id, err := s.orders.Session(ctx, token, session.RoleCustomer)
	if err != nil {
		return nil, err
	}

	var req *Request
	_, err = s.orders.WithOrder(ctx, orderID, func(o *order.Order) error {
		if o.UserID != id.UserID {
			return apperr.ErrUnauthorized
		}
		if o.Status == order.StatusRefunded {
			return apperr.ErrAlreadyRefunded
		}
		if _, err := s.repo.FindPendingByOrderID(ctx, o.ID); err == nil {
			return apperr.ErrRefundAlreadyPending
		} else if !errors.Is(err, apperr.ErrRefundRequestNotFound) {
			return err
		}
		next, err := order.Next(o.Status, order.EventRequestRefund)
		if err != nil {
			return err
		}

		req = &Request{UserID: id.UserID, MerchantID: o.MerchantID, OrderID: o.ID, Status: StatusPending}
		if err := s.repo.Create(ctx, req); err != nil {
			return err
		}

		prev := o.Status
		o.Status = next
		o.RefundRequestID = &req.ID
		if err := s.orders.Repository().Update(ctx, o, prev); err != nil {
			if derr := s.repo.Delete(ctx, req.ID); derr != nil {
				s.log.Error("orphaned refund request", zap.Int64("refund_request_id", req.ID), zap.Error(derr))
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("refund requested", zap.Int64("order_id", orderID), zap.Int64("refund_request_id", req.ID))
	return req, nil
}

// AcceptRefund credits the buyer with the order total, then marks the
// request ACCEPTED and the order REFUNDED. A failed deposit changes nothing.
// A confirmed deposit is recorded on the request before anything else so a
// later attempt cannot reject a refund that was already paid.
func (s *Service) AcceptRefund(ctx context.Context, token string, orderID int64) (*Request, error) {
	return s.resolve(ctx, token, orderID, StatusAccepted, func(o *order.Order, req *Request) (order.Command, error) {
		if !req.Deposited {
			if err := s.wallet.Deposit(ctx, o.UserID, o.TotalPrice, depositKey(req.ID)); err != nil {
				return order.Command{}, err
			}
			req.Deposited = true
			if err := s.repo.Update(ctx, req); err != nil {
				s.log.Error("deposit not recorded on refund request",
					zap.Int64("refund_request_id", req.ID), zap.Error(err))
				return order.Command{}, err
			}
		}
		return order.NewAcceptRefundCommand(o, s.orders.Repository()), nil
	})
}

// RejectRefund marks the request REJECTED and returns the order to DELIVERED.
func (s *Service) RejectRefund(ctx context.Context, token string, orderID int64) (*Request, error) {
	return s.resolve(ctx, token, orderID, StatusRejected, func(o *order.Order, req *Request) (order.Command, error) {
		if req.Deposited {
			return order.Command{}, apperr.ErrRefundAlreadyCredited
		}
		return order.NewRejectRefundCommand(o, s.orders.Repository()), nil
	})
}

func (s *Service) resolve(ctx context.Context, token string, orderID int64, outcome Status,
	prepare func(o *order.Order, req *Request) (order.Command, error)) (*Request, error) {
	id, err := s.orders.Session(ctx, token, session.RoleMerchant, session.RoleAdmin)
	if err != nil {
		return nil, err
	}

	ev := order.EventAcceptRefund
	if outcome == StatusRejected {
		ev = order.EventRejectRefund
	}

	var req *Request
	_, err = s.orders.WithOrder(ctx, orderID, func(o *order.Order) error {
		if !id.Is(session.RoleAdmin) && o.MerchantID != id.UserID {
			return apperr.ErrUnauthorized
		}
		pending, err := s.repo.FindPendingByOrderID(ctx, o.ID)
		if err != nil {
			return err
		}
		req = pending
		if o.RefundRequestID == nil {
			o.RefundRequestID = &req.ID
		}
		if _, err := order.Next(o.Status, ev); err != nil {
			return err
		}

		cmd, err := prepare(o, req)
		if err != nil {
			return err
		}

		req.Status = outcome
		if err := s.repo.Update(ctx, req); err != nil {
			return err
		}
		if err := s.orders.Executor().Run(ctx, cmd); err != nil {
			req.Status = StatusPending
			if rerr := s.repo.Update(ctx, req); rerr != nil {
				s.log.Error("refund request left resolved without order change",
					zap.Int64("refund_request_id", req.ID), zap.Error(rerr))
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("refund resolved", zap.Int64("order_id", orderID), zap.String("outcome", string(outcome)))
	return req, nil
}

// ListRefundRequests is scoped by role like order listing.
func (s *Service) ListRefundRequests(ctx context.Context, token string) ([]*Request, error) {
	id, err := s.orders.Session(ctx, token)
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

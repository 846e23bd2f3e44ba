package order

import (
	"context"
	"fmt"
	"time"

	"github.com/wichananm65/pet-shop-orders/internal/apperr"
	"go.uber.org/zap"
)

// Command is one lifecycle transition on a working copy of an order: check
// the precondition, move the status along the table, persist. A failed save
// restores the working copy, so a command never leaves an unpersisted status
// behind.
type Command struct {
	Event Event
	Order *Order

	repo  Repository
	guard func(o *Order) error
	apply func(o *Order)
}

func newCommand(ev Event, o *Order, repo Repository) Command {
	return Command{Event: ev, Order: o, repo: repo}
}

func NewCancelCommand(o *Order, repo Repository) Command {
	return newCommand(EventCancel, o, repo)
}

// NewShipCommand records the expected delivery date.
func NewShipCommand(o *Order, repo Repository, deliveryDate time.Time) Command {
	cmd := newCommand(EventShip, o, repo)
	cmd.apply = func(o *Order) {
		d := deliveryDate
		o.DeliveryDate = &d
	}
	return cmd
}

// NewDeliverCommand stamps the delivery date with the day it ran.
func NewDeliverCommand(o *Order, repo Repository, now time.Time) Command {
	cmd := newCommand(EventDeliver, o, repo)
	cmd.apply = func(o *Order) {
		d := truncateDay(now)
		o.DeliveryDate = &d
	}
	return cmd
}

func NewAcceptRefundCommand(o *Order, repo Repository) Command {
	cmd := newCommand(EventAcceptRefund, o, repo)
	cmd.guard = requireRefundRequest
	return cmd
}

// NewRejectRefundCommand returns the order to DELIVERED and detaches the
// rejected request so a new one can be filed.
func NewRejectRefundCommand(o *Order, repo Repository) Command {
	cmd := newCommand(EventRejectRefund, o, repo)
	cmd.guard = requireRefundRequest
	cmd.apply = func(o *Order) { o.RefundRequestID = nil }
	return cmd
}

func requireRefundRequest(o *Order) error {
	if o.RefundRequestID == nil {
		return apperr.ErrRefundRequestNotFound
	}
	return nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (c Command) Execute(ctx context.Context) error {
	if c.guard != nil {
		if err := c.guard(c.Order); err != nil {
			return err
		}
	}
	next, err := Next(c.Order.Status, c.Event)
	if err != nil {
		return err
	}

	prev := c.Order.Clone()
	c.Order.Status = next
	if c.apply != nil {
		c.apply(c.Order)
	}
	c.Order.UpdatedAt = time.Now().UTC()

	if err := c.repo.Update(ctx, c.Order, prev.Status); err != nil {
		*c.Order = *prev
		return err
	}
	return nil
}

// Executor runs commands in order and stops at the first failure. Commands
// that already ran keep their persisted effect.
type Executor struct {
	log *zap.Logger
}

func NewExecutor(log *zap.Logger) *Executor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Executor{log: log}
}

func (e *Executor) Run(ctx context.Context, cmds ...Command) error {
	for i, cmd := range cmds {
		from := cmd.Order.Status
		if err := cmd.Execute(ctx); err != nil {
			e.log.Info("order command failed",
				zap.String("event", string(cmd.Event)),
				zap.Int64("order_id", cmd.Order.ID),
				zap.Int("index", i),
				zap.Error(err))
			return fmt.Errorf("%s order %d: %w", cmd.Event, cmd.Order.ID, err)
		}
		e.log.Info("order transition committed",
			zap.String("event", string(cmd.Event)),
			zap.Int64("order_id", cmd.Order.ID),
			zap.String("from", string(from)),
			zap.String("to", string(cmd.Order.Status)))
	}
	return nil
}

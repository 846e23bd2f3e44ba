package order

import (
	"fmt"

	"github.com/wichananm65/pet-shop-orders/internal/apperr"
)

type Event string

const (
	EventCancel        Event = "cancel"
	EventShip          Event = "ship"
	EventDeliver       Event = "deliver"
	EventRequestRefund Event = "request_refund"
	EventAcceptRefund  Event = "accept_refund"
	EventRejectRefund  Event = "reject_refund"
)

// transitions is the whole lifecycle: event -> from -> to.
var transitions = map[Event]map[Status]Status{
	EventCancel:        {StatusConfirmed: StatusCancelled},
	EventShip:          {StatusConfirmed: StatusShipped},
	EventDeliver:       {StatusShipped: StatusDelivered},
	EventRequestRefund: {StatusConfirmed: StatusRefundPending, StatusDelivered: StatusRefundPending},
	EventAcceptRefund:  {StatusRefundPending: StatusRefunded},
	EventRejectRefund:  {StatusRefundPending: StatusDelivered},
}

// Next returns the status ev leads to from the given status, or an
// InvalidState error when the table has no such edge.
func Next(from Status, ev Event) (Status, error) {
	if from.Terminal() {
		return "", apperr.New(apperr.ErrInvalidState, fmt.Sprintf("order is %s and can no longer change", from))
	}
	if to, ok := transitions[ev][from]; ok {
		return to, nil
	}
	return "", apperr.New(apperr.ErrInvalidState, fmt.Sprintf("cannot %s an order in status %s", ev, from))
}

// EventFor finds the event that moves from to to.
func EventFor(from, to Status) (Event, bool) {
	for ev, edges := range transitions {
		if edges[from] == to {
			return ev, true
		}
	}
	return "", false
}

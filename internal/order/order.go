// Package order turns carts into per-merchant orders and moves them through
// their lifecycle.
package order

import (
	"slices"
	"time"

	"github.com/wichananm65/pet-shop-orders/internal/cart"
)

type Status string

const (
	StatusConfirmed     Status = "CONFIRMED"
	StatusShipped       Status = "SHIPPED"
	StatusDelivered     Status = "DELIVERED"
	StatusCancelled     Status = "CANCELLED"
	StatusRefundPending Status = "REFUND_PENDING"
	StatusRefunded      Status = "REFUNDED"
)

func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusRefunded
}

// Order belongs to exactly one merchant. TotalPrice and TotalItemCount are
// derived from LineItems by SetLineItems and never set on their own.
type Order struct {
	ID              int64       `json:"id"`
	UserID          int64       `json:"userId"`
	MerchantID      int64       `json:"merchantId"`
	UserEmail       string      `json:"userEmail,omitempty"`
	LineItems       []cart.Line `json:"lineItems"`
	Status          Status      `json:"status"`
	TotalPrice      float64     `json:"totalPrice"`
	TotalItemCount  int         `json:"totalItemCount"`
	DeliveryDate    *time.Time  `json:"deliveryDate,omitempty"`
	RefundRequestID *int64      `json:"refundRequestId,omitempty"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}

func (o *Order) SetLineItems(lines []cart.Line) {
	o.LineItems = append([]cart.Line(nil), lines...)
	o.TotalItemCount = cart.TotalItemCount(o.LineItems)
	o.TotalPrice = cart.TotalPrice(o.LineItems)
}

// Clone returns a deep copy, used as the working copy for commands.
func (o *Order) Clone() *Order {
	out := *o
	out.LineItems = append([]cart.Line(nil), o.LineItems...)
	if o.DeliveryDate != nil {
		d := *o.DeliveryDate
		out.DeliveryDate = &d
	}
	if o.RefundRequestID != nil {
		id := *o.RefundRequestID
		out.RefundRequestID = &id
	}
	return &out
}

const dateLayout = "2006-01-02"

// TrackingMessage describes where the order is, by status.
func (o *Order) TrackingMessage() string {
	prefix := "Order Status: " + string(o.Status)
	switch o.Status {
	case StatusDelivered:
		return prefix + " .It was Delivered on " + formatDate(o.DeliveryDate)
	case StatusShipped:
		return prefix + " .It will be Delivered on " + formatDate(o.DeliveryDate)
	case StatusConfirmed:
		return prefix + " .Delivery Date will be determined upon Shipment!"
	default:
		return prefix
	}
}

func formatDate(d *time.Time) string {
	if d == nil {
		return "an unknown date"
	}
	return d.Format(dateLayout)
}

// GroupByMerchant partitions lines by merchant id. Merchants come back in
// ascending id order; lines keep their input order.
func GroupByMerchant(lines []cart.Line) ([]int64, map[int64][]cart.Line) {
	groups := make(map[int64][]cart.Line)
	var merchants []int64
	for _, l := range lines {
		if _, seen := groups[l.MerchantID]; !seen {
			merchants = append(merchants, l.MerchantID)
		}
		groups[l.MerchantID] = append(groups[l.MerchantID], l)
	}
	slices.Sort(merchants)
	return merchants, groups
}

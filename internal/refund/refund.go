// Package refund runs the refund request and approval workflow on top of the
// order lifecycle.
package refund

import "time"

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusAccepted Status = "ACCEPTED"
	StatusRejected Status = "REJECTED"
)

// Request is tied to one order. An order has at most one PENDING request.
// Deposited is set once the wallet confirmed the credit; such a request can
// only be accepted.
type Request struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"userId"`
	MerchantID int64     `json:"merchantId"`
	OrderID    int64     `json:"orderId"`
	Status     Status    `json:"status"`
	Deposited  bool      `json:"deposited"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

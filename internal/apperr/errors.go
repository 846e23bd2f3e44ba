// Package apperr holds the error taxonomy shared by the cart, order and refund
// packages. Every specific error unwraps to exactly one kind so callers can
// branch on the kind with errors.Is without knowing the specific error.
package apperr

import (
	"errors"
	"fmt"
)

// Kinds.
var (
	ErrNotAuthenticated    = errors.New("not authenticated")
	ErrForbidden           = errors.New("forbidden")
	ErrNotFound            = errors.New("not found")
	ErrInvalidState        = errors.New("invalid state")
	ErrConflict            = errors.New("conflict")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrInvalidInput        = errors.New("invalid input")
)

// Error is a specific error tagged with its kind.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Kind }

func New(kind error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

var (
	ErrSessionNotFound = New(ErrNotAuthenticated, "session not found or expired")

	ErrWrongRole    = New(ErrForbidden, "role not allowed for this operation")
	ErrInvalidRole  = New(ErrForbidden, "invalid user role")
	ErrUnauthorized = New(ErrForbidden, "order does not belong to caller")

	ErrCartNotFound          = New(ErrNotFound, "cart not found")
	ErrProductNotFound       = New(ErrNotFound, "product not found")
	ErrOrderNotFound         = New(ErrNotFound, "order not found")
	ErrRefundRequestNotFound = New(ErrNotFound, "refund request not found")

	ErrEmptyCart             = New(ErrInvalidState, "cart is empty")
	ErrInsufficientStock     = New(ErrInvalidState, "not enough stock")
	ErrAlreadyRefunded       = New(ErrInvalidState, "order already refunded")
	ErrRefundAlreadyPending  = New(ErrInvalidState, "refund already pending for order")
	ErrDepositRejected       = New(ErrInvalidState, "wallet rejected deposit")
	ErrRefundAlreadyCredited = New(ErrInvalidState, "refund already credited to the wallet; it can only be accepted")

	ErrCartConflict       = New(ErrConflict, "cart was modified concurrently")
	ErrOrderConflict      = New(ErrConflict, "order was modified concurrently")
	ErrCheckoutInProgress = New(ErrConflict, "checkout with this key is already in progress")

	ErrProductServiceUnavailable = New(ErrUpstreamUnavailable, "product service unavailable")
	ErrWalletUnavailable         = New(ErrUpstreamUnavailable, "wallet service unavailable")
	ErrStorageUnavailable        = New(ErrUpstreamUnavailable, "storage unavailable")

	ErrInvalidQuantity      = New(ErrInvalidInput, "quantity must be positive")
	ErrDeliveryDateRequired = New(ErrInvalidInput, "deliveryDate is required to ship an order")
)

var kinds = []error{
	ErrNotAuthenticated,
	ErrForbidden,
	ErrNotFound,
	ErrInvalidState,
	ErrConflict,
	ErrUpstreamUnavailable,
	ErrInvalidInput,
}

// Unavailable tags a cache or database failure as retryable. The cause stays
// in the chain for errors.Is.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
}

// KindOf returns the kind err belongs to, or nil for untagged errors.
func KindOf(err error) error {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// Retryable reports whether the caller may safely retry the operation.
func Retryable(err error) bool {
	return errors.Is(err, ErrConflict) || errors.Is(err, ErrUpstreamUnavailable)
}

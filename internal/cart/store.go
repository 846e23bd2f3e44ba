package cart

import "context"

// Mutation edits a working copy of the cart. Returning an error aborts the
// write.
type Mutation func(c *Cart) error

// Store persists carts by token.
//
// Update runs fn against the current cart and writes the result atomically:
// if another writer changes the cart in between, fn is re-run on the fresh
// value. When no cart exists, create decides between starting an empty cart
// for userID and failing with apperr.ErrCartNotFound. A cart left empty by
// fn is deleted rather than stored.
type Store interface {
	Get(ctx context.Context, token string) (*Cart, error)
	Update(ctx context.Context, token string, userID int64, create bool, fn Mutation) (*Cart, error)
	Delete(ctx context.Context, token string) error
}

package product

import "context"

// Product is the slice of catalog data the cart needs: price, stock and the
// merchant that sells it.
type Product struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name,omitempty"`
	Price      float64 `json:"price"`
	Stock      int     `json:"stock"`
	MerchantID int64   `json:"merchantId"`
}

// Catalog looks products up. GetByID returns apperr.ErrProductNotFound for
// unknown ids and an error of kind apperr.ErrUpstreamUnavailable when the
// catalog cannot answer in time.
type Catalog interface {
	GetByID(ctx context.Context, id int64) (Product, error)
}

package product

import (
	"context"
	"fmt"
	"net/http"

	"github.com/wichananm65/pet-shop-orders/internal/apperr"
	"github.com/wichananm65/pet-shop-orders/internal/infrastructure/upstream"
)

// HTTPCatalog reads products from the remote product service.
type HTTPCatalog struct {
	client *upstream.Client
}

func NewHTTPCatalog(client *upstream.Client) *HTTPCatalog {
	return &HTTPCatalog{client: client}
}

func (c *HTTPCatalog) GetByID(ctx context.Context, id int64) (Product, error) {
	resp, err := c.client.Get(ctx, fmt.Sprintf("/products/%d", id), nil)
	if err != nil {
		return Product{}, fmt.Errorf("%w: %v", apperr.ErrProductServiceUnavailable, err)
	}

	switch resp.Status {
	case http.StatusOK:
	case http.StatusNotFound:
		return Product{}, apperr.ErrProductNotFound
	default:
		return Product{}, fmt.Errorf("%w: unexpected status %d", apperr.ErrProductServiceUnavailable, resp.Status)
	}

	var p Product
	if err := resp.Decode(&p); err != nil {
		return Product{}, fmt.Errorf("%w: %v", apperr.ErrProductServiceUnavailable, err)
	}
	if p.ID == 0 {
		p.ID = id
	}
	return p, nil
}

package product

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wichananm65/pet-shop-orders/internal/apperr"
	"github.com/wichananm65/pet-shop-orders/internal/infrastructure/upstream"
)

func TestHTTPCatalog(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/products/1":
			_, _ = w.Write([]byte(`{"id":1,"price":9.99,"stock":4,"merchantId":10}`))
		case "/products/3":
			time.Sleep(200 * time.Millisecond)
			_, _ = w.Write([]byte(`{"id":3}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	catalog := NewHTTPCatalog(upstream.New(upstream.Config{Name: "products", BaseURL: srv.URL, Timeout: 50 * time.Millisecond}))
	ctx := context.Background()

	p, err := catalog.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 9.99, p.Price)
	assert.Equal(t, 4, p.Stock)
	assert.Equal(t, int64(10), p.MerchantID)

	_, err = catalog.GetByID(ctx, 2)
	assert.ErrorIs(t, err, apperr.ErrProductNotFound)

	_, err = catalog.GetByID(ctx, 3)
	assert.ErrorIs(t, err, apperr.ErrProductServiceUnavailable, "timeout must surface as unavailable")
}

func TestInMemoryRepository(t *testing.T) {
	repo := NewInMemoryRepository([]Product{{ID: 1, Price: 2, Stock: 1, MerchantID: 3}})
	require.NoError(t, repo.SetStock(1, 8))
	p, err := repo.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 8, p.Stock)
	assert.ErrorIs(t, repo.SetStock(2, 1), apperr.ErrProductNotFound)
}

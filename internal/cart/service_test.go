package cart

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wichananm65/pet-shop-orders/internal/apperr"
	"github.com/wichananm65/pet-shop-orders/internal/product"
	"github.com/wichananm65/pet-shop-orders/internal/session"
)

type fixture struct {
	svc      *Service
	store    *InMemoryStore
	catalog  *product.InMemoryRepository
	sessions *session.InMemoryStore
}

func newFixture() fixture {
	sessions := session.NewInMemoryStore(
		session.Identity{Token: "cust", UserID: 1, Role: session.RoleCustomer, Email: "c@example.com"},
		session.Identity{Token: "merch", UserID: 2, Role: session.RoleMerchant},
	)
	catalog := product.NewInMemoryRepository([]product.Product{
		{ID: 10, Name: "Kibble", Price: 12.5, Stock: 10, MerchantID: 100},
		{ID: 20, Name: "Leash", Price: 4, Stock: 1, MerchantID: 200},
	})
	store := NewInMemoryStore()
	return fixture{
		svc:      NewService(sessions, store, catalog, nil),
		store:    store,
		catalog:  catalog,
		sessions: sessions,
	}
}

func TestService_AddItem(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.AddItem(ctx, "cust", 10, 2)
	require.NoError(t, err)
	c, err := f.svc.AddItem(ctx, "cust", 10, 3)
	require.NoError(t, err)

	assert.Len(t, c.Items, 1)
	assert.Equal(t, Line{ProductID: 10, Quantity: 5, UnitPrice: 12.5, MerchantID: 100}, c.Items[10])
	assert.Equal(t, 62.5, c.TotalPrice())
}

func TestService_AddItemValidatesBeforeWriting(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	cases := []struct {
		name      string
		token     string
		productID int64
		quantity  int
		want      error
	}{
		{"no session", "", 10, 1, apperr.ErrSessionNotFound},
		{"expired session", "gone", 10, 1, apperr.ErrSessionNotFound},
		{"wrong role", "merch", 10, 1, apperr.ErrWrongRole},
		{"zero quantity", "cust", 10, 0, apperr.ErrInvalidQuantity},
		{"unknown product", "cust", 99, 1, apperr.ErrProductNotFound},
		{"over stock", "cust", 20, 2, apperr.ErrInsufficientStock},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.AddItem(ctx, tc.token, tc.productID, tc.quantity)
			assert.ErrorIs(t, err, tc.want)
			_, err = f.store.Get(ctx, "cust")
			assert.ErrorIs(t, err, apperr.ErrCartNotFound)
		})
	}
}

func TestService_AddItemCountsHeldQuantityAgainstStock(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.AddItem(ctx, "cust", 20, 1)
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, "cust", 20, 1)
	assert.ErrorIs(t, err, apperr.ErrInsufficientStock)

	c, err := f.svc.ViewCart(ctx, "cust")
	require.NoError(t, err)
	assert.Equal(t, 1, c.Items[20].Quantity)
}

func TestService_ViewCartWithoutCart(t *testing.T) {
	f := newFixture()
	c, err := f.svc.ViewCart(context.Background(), "cust")
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
	assert.Equal(t, int64(1), c.UserID)
}

func TestService_RemoveItem(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.RemoveItem(ctx, "cust", 10, nil)
	assert.ErrorIs(t, err, apperr.ErrCartNotFound)

	_, err = f.svc.AddItem(ctx, "cust", 10, 3)
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, "cust", 20, 1)
	require.NoError(t, err)

	c, err := f.svc.RemoveItem(ctx, "cust", 10, intp(1))
	require.NoError(t, err)
	assert.Equal(t, 2, c.Items[10].Quantity)

	c, err = f.svc.RemoveItem(ctx, "cust", 10, intp(5))
	require.NoError(t, err)
	_, held := c.Items[10]
	assert.False(t, held)

	_, err = f.svc.RemoveItem(ctx, "cust", 20, intp(0))
	assert.ErrorIs(t, err, apperr.ErrInvalidQuantity)
}

func TestService_ClearCartIsIdempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.AddItem(ctx, "cust", 10, 1)
	require.NoError(t, err)
	require.NoError(t, f.svc.ClearCart(ctx, "cust"))
	require.NoError(t, f.svc.ClearCart(ctx, "cust"))

	c, err := f.svc.ViewCart(ctx, "cust")
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
}

func TestService_ConcurrentAddsOnEmptyCart(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.AddItem(ctx, "cust", 10, 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	c, err := f.svc.ViewCart(ctx, "cust")
	require.NoError(t, err)
	assert.Equal(t, 2, c.Items[10].Quantity)
}

// gatedStore blocks Get until release is closed, honouring the caller's ctx.
type gatedStore struct {
	*InMemoryStore
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedStore) Get(ctx context.Context, token string) (*Cart, error) {
	g.once.Do(func() { close(g.started) })
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-g.release:
	}
	return g.InMemoryStore.Get(ctx, token)
}

func TestService_ViewCartSharedReadSurvivesCallerCancel(t *testing.T) {
	f := newFixture()
	_, err := f.svc.AddItem(context.Background(), "cust", 10, 2)
	require.NoError(t, err)

	store := &gatedStore{InMemoryStore: f.store, started: make(chan struct{}), release: make(chan struct{})}
	svc := NewService(f.sessions, store, f.catalog, nil)

	firstCtx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.ViewCart(firstCtx, "cust")
		firstErr <- err
	}()
	<-store.started

	type result struct {
		cart *Cart
		err  error
	}
	second := make(chan result, 1)
	go func() {
		c, err := svc.ViewCart(context.Background(), "cust")
		second <- result{c, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(store.release)
	got := <-second
	require.NoError(t, got.err)
	assert.Equal(t, 2, got.cart.Items[10].Quantity)
}

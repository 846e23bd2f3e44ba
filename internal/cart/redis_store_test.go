package cart

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wichananm65/pet-shop-orders/internal/apperr"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, time.Hour), mr
}

func addOne(productID int64) Mutation {
	return func(c *Cart) error {
		c.Add(Line{ProductID: productID, Quantity: 1, UnitPrice: 3, MerchantID: 1})
		return nil
	}
}

func TestRedisStore_UpdateCreatesAndPersists(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	_, err := store.Get(ctx, "tok")
	assert.ErrorIs(t, err, apperr.ErrCartNotFound)

	_, err = store.Update(ctx, "tok", 5, false, addOne(1))
	assert.ErrorIs(t, err, apperr.ErrCartNotFound)

	c, err := store.Update(ctx, "tok", 5, true, addOne(1))
	require.NoError(t, err)
	assert.Equal(t, int64(1), c.Version)

	got, err := store.Get(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, int64(5), got.UserID)
	assert.Equal(t, 1, got.Items[1].Quantity)
	assert.Equal(t, time.Hour, mr.TTL("cart:tok"))
}

func TestRedisStore_MutationErrorWritesNothing(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	boom := errors.New("boom")
	_, err := store.Update(ctx, "tok", 5, true, func(*Cart) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, apperr.ErrUpstreamUnavailable)
	assert.False(t, mr.Exists("cart:tok"))
}

func TestRedisStore_UnreachableIsRetryable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	store := NewRedisStore(client, time.Hour)
	mr.Close()
	ctx := context.Background()

	_, err := store.Get(ctx, "tok")
	assert.ErrorIs(t, err, apperr.ErrUpstreamUnavailable)

	_, err = store.Update(ctx, "tok", 5, true, addOne(1))
	assert.ErrorIs(t, err, apperr.ErrUpstreamUnavailable)
	assert.True(t, apperr.Retryable(err))

	assert.ErrorIs(t, store.Delete(ctx, "tok"), apperr.ErrUpstreamUnavailable)
}

func TestRedisStore_EmptyCartIsDeleted(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	_, err := store.Update(ctx, "tok", 5, true, addOne(1))
	require.NoError(t, err)
	_, err = store.Update(ctx, "tok", 5, false, func(c *Cart) error {
		c.Remove(1, nil)
		return nil
	})
	require.NoError(t, err)
	assert.False(t, mr.Exists("cart:tok"))

	require.NoError(t, store.Delete(ctx, "tok"))
}

func TestRedisStore_ConcurrentUpdatesDoNotLoseWrites(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	const writers = 5
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Update(ctx, "tok", 5, true, addOne(9))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := store.Get(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, writers, got.Items[9].Quantity)
	assert.Equal(t, int64(writers), got.Version)
}

func TestRedisStore_RetriesWhenWatchedKeyChanges(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()
	_, err := store.Update(ctx, "tok", 5, true, addOne(1))
	require.NoError(t, err)

	calls := 0
	c, err := store.Update(ctx, "tok", 5, false, func(c *Cart) error {
		calls++
		if calls == 1 {
			// A competing writer lands between our read and our write.
			_, err := store.Update(ctx, "tok", 5, false, addOne(2))
			require.NoError(t, err)
		}
		c.Add(Line{ProductID: 3, Quantity: 1})
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Len(t, c.Items, 3)
	assert.Equal(t, int64(3), c.Version)
}

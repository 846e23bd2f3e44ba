package order

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisIdempotencyStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	store := NewRedisIdempotencyStore(client, time.Hour, 0)
	ctx := context.Background()

	rec, claimed, err := store.Claim(ctx, 1, "k")
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.Equal(t, CheckoutPending, rec.State)
	assert.True(t, mr.Exists("checkout:1:k"))
	assert.Equal(t, time.Hour, mr.TTL("checkout:1:k"))

	_, claimed, err = store.Claim(ctx, 1, "k")
	require.NoError(t, err)
	assert.False(t, claimed, "pending key cannot be claimed twice")

	_, claimed, err = store.Claim(ctx, 2, "k")
	require.NoError(t, err)
	assert.True(t, claimed, "keys are scoped per user")

	rec.State = CheckoutFailed
	rec.Orders[100] = 7
	require.NoError(t, store.Save(ctx, 1, "k", rec))

	resumed, claimed, err := store.Claim(ctx, 1, "k")
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.Equal(t, map[int64]int64{100: 7}, resumed.Orders)

	resumed.State = CheckoutDone
	require.NoError(t, store.Save(ctx, 1, "k", resumed))
	final, claimed, err := store.Claim(ctx, 1, "k")
	require.NoError(t, err)
	assert.False(t, claimed)
	assert.Equal(t, CheckoutDone, final.State)
	assert.Equal(t, int64(7), final.Orders[100])
}

func TestInMemoryIdempotencyStore(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	ctx := context.Background()

	rec, claimed, _ := store.Claim(ctx, 1, "k")
	assert.True(t, claimed)
	rec.Orders[5] = 1
	_, claimed, _ = store.Claim(ctx, 1, "k")
	assert.False(t, claimed)

	rec.State = CheckoutFailed
	require.NoError(t, store.Save(ctx, 1, "k", rec))
	again, claimed, _ := store.Claim(ctx, 1, "k")
	assert.True(t, claimed)
	assert.Equal(t, int64(1), again.Orders[5])
}

func TestIdempotencyStore_PendingLeaseExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	clock := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	redisStore := NewRedisIdempotencyStore(client, time.Hour, 30*time.Second)
	redisStore.now = func() time.Time { return clock }
	memStore := NewInMemoryIdempotencyStore()
	memStore.lease = 30 * time.Second
	memStore.now = func() time.Time { return clock }

	stores := map[string]IdempotencyStore{"redis": redisStore, "memory": memStore}
	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			clock = time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

			rec, claimed, err := store.Claim(ctx, 1, "k")
			require.NoError(t, err)
			require.True(t, claimed)
			rec.Orders[100] = 7
			require.NoError(t, store.Save(ctx, 1, "k", rec))

			clock = clock.Add(20 * time.Second)
			_, claimed, err = store.Claim(ctx, 1, "k")
			require.NoError(t, err)
			assert.False(t, claimed, "lease still held")

			// Saving progress renews the lease.
			require.NoError(t, store.Save(ctx, 1, "k", rec))
			clock = clock.Add(20 * time.Second)
			_, claimed, err = store.Claim(ctx, 1, "k")
			require.NoError(t, err)
			assert.False(t, claimed, "lease renewed by save")

			clock = clock.Add(31 * time.Second)
			taken, claimed, err := store.Claim(ctx, 1, "k")
			require.NoError(t, err)
			assert.True(t, claimed, "stale pending attempt is taken over")
			assert.Equal(t, CheckoutPending, taken.State)
			assert.Equal(t, map[int64]int64{100: 7}, taken.Orders)
			assert.True(t, clock.Equal(taken.ClaimedAt))
		})
	}
}

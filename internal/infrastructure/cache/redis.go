package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Options configures the shared Redis client used for sessions, carts and
// checkout idempotency keys.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient connects and pings Redis, failing fast when it is unreachable.
func NewRedisClient(ctx context.Context, opts Options) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}
	return client, nil
}

// Key builds a namespaced cache key such as "cart:<token>".
func Key(namespace, id string) string {
	return fmt.Sprintf("%s:%s", namespace, id)
}

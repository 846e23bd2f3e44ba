package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/wichananm65/pet-shop-orders/internal/apperr"
	"github.com/wichananm65/pet-shop-orders/internal/infrastructure/cache"
)

const namespace = "session"

// RedisStore reads sessions written by the auth service. The TTL is owned by
// the writer; an expired key simply reads as absent.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, token string) (Identity, error) {
	data, err := s.client.Get(ctx, cache.Key(namespace, token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Identity{}, apperr.ErrSessionNotFound
	}
	if err != nil {
		return Identity{}, apperr.Unavailable("redis get session", err)
	}

	var id Identity
	if err := json.Unmarshal(data, &id); err != nil {
		return Identity{}, fmt.Errorf("unmarshal session: %w", err)
	}
	if id.Token == "" {
		id.Token = token
	}
	return id, nil
}

// Put writes a session. Only the auth service does this in production; it is
// exposed for seeding local environments and tests.
func (s *RedisStore) Put(ctx context.Context, id Identity, ttl time.Duration) error {
	data, err := json.Marshal(id)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.client.Set(ctx, cache.Key(namespace, id.Token), data, ttl).Err(); err != nil {
		return apperr.Unavailable("redis set session", err)
	}
	return nil
}

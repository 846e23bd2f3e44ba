package cart

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

// maxCASAttempts bounds optimistic retries before reporting a conflict.
const maxCASAttempts = 8

// RedisStore keeps carts as JSON under "cart:<token>". Update uses
// WATCH/MULTI so concurrent writers never lose each other's changes.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func key(token string) string {
	return cache.Key("cart", token)
}

func (s *RedisStore) Get(ctx context.Context, token string) (*Cart, error) {
	return load(ctx, s.client, key(token))
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func load(ctx context.Context, g getter, k string) (*Cart, error) {
	raw, err := g.Get(ctx, k).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperr.ErrCartNotFound
	}
	if err != nil {
		return nil, apperr.Unavailable("read cart", err)
	}
	var c Cart
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	if c.Items == nil {
		c.Items = map[int64]Line{}
	}
	return &c, nil
}

func (s *RedisStore) Update(ctx context.Context, token string, userID int64, create bool, fn Mutation) (*Cart, error) {
	k := key(token)
	var (
		result *Cart
		fnErr  error
	)

	txf := func(tx *redis.Tx) error {
		c, err := load(ctx, tx, k)
		switch {
		case errors.Is(err, apperr.ErrCartNotFound) && create:
			c = New(token, userID)
		case err != nil:
			return err
		}

		if fnErr = fn(c); fnErr != nil {
			return fnErr
		}
		c.Version++

		if c.IsEmpty() {
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, k)
				return nil
			})
		} else {
			data, merr := json.Marshal(c)
			if merr != nil {
				return fmt.Errorf("encode cart: %w", merr)
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, k, data, s.ttl)
				return nil
			})
		}
		if err == nil {
			result = c
		}
		return err
	}

	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		fnErr = nil
		err := s.client.Watch(ctx, txf, k)
		switch {
		case err == nil:
			return result, nil
		case errors.Is(err, redis.TxFailedErr):
			continue
		case fnErr != nil || apperr.KindOf(err) != nil:
			return nil, err
		default:
			return nil, apperr.Unavailable("write cart", err)
		}
	}
	return nil, apperr.ErrCartConflict
}

func (s *RedisStore) Delete(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, key(token)).Err(); err != nil {
		return apperr.Unavailable("delete cart", err)
	}
	return nil
}

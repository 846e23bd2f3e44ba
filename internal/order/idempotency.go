package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/wichananm65/pet-shop-orders/internal/apperr"
	"github.com/wichananm65/pet-shop-orders/internal/infrastructure/cache"
)

type CheckoutState string

const (
	CheckoutPending CheckoutState = "pending"
	CheckoutFailed  CheckoutState = "failed"
	CheckoutDone    CheckoutState = "done"
)

// DefaultCheckoutLease is how long a pending attempt holds its key without
// reporting progress.
const DefaultCheckoutLease = 30 * time.Second

// CheckoutRecord tracks one checkout attempt under an idempotency key.
// Orders maps merchant id to the order already created for it, so a retry
// after a partial failure only creates what is missing. ClaimedAt is
// refreshed on every save while the attempt is pending.
type CheckoutRecord struct {
	State     CheckoutState   `json:"state"`
	Orders    map[int64]int64 `json:"orders"`
	ClaimedAt time.Time       `json:"claimedAt"`
}

// claimable reports whether a new attempt may take over rec.
func (r CheckoutRecord) claimable(now time.Time, lease time.Duration) bool {
	switch r.State {
	case CheckoutFailed:
		return true
	case CheckoutPending:
		return now.Sub(r.ClaimedAt) > lease
	}
	return false
}

// IdempotencyStore guards checkout against duplicate submissions.
//
// Claim takes the key for the caller. It succeeds for an unknown key, for a
// key whose previous attempt failed, and for a pending attempt whose lease
// ran out, returning the orders already recorded. It reports claimed=false
// with the existing record while another attempt holds the lease or after
// one completed. Save stamps ClaimedAt on pending records.
type IdempotencyStore interface {
	Claim(ctx context.Context, userID int64, key string) (rec CheckoutRecord, claimed bool, err error)
	Save(ctx context.Context, userID int64, key string, rec CheckoutRecord) error
}

func checkoutKey(userID int64, key string) string {
	return cache.Key("checkout", strconv.FormatInt(userID, 10)+":"+key)
}

type RedisIdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
	lease  time.Duration
	now    func() time.Time
}

func NewRedisIdempotencyStore(client *redis.Client, ttl, lease time.Duration) *RedisIdempotencyStore {
	if lease <= 0 {
		lease = DefaultCheckoutLease
	}
	return &RedisIdempotencyStore{client: client, ttl: ttl, lease: lease, now: time.Now}
}

func (s *RedisIdempotencyStore) Claim(ctx context.Context, userID int64, key string) (CheckoutRecord, bool, error) {
	k := checkoutKey(userID, key)
	var (
		rec     CheckoutRecord
		claimed bool
	)

	txf := func(tx *redis.Tx) error {
		rec, claimed = CheckoutRecord{}, false
		now := s.now().UTC()
		raw, err := tx.Get(ctx, k).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
			rec = CheckoutRecord{Orders: map[int64]int64{}}
		case err != nil:
			return apperr.Unavailable("read checkout key", err)
		default:
			if err := json.Unmarshal(raw, &rec); err != nil {
				return fmt.Errorf("decode checkout key: %w", err)
			}
			if rec.Orders == nil {
				rec.Orders = map[int64]int64{}
			}
			if !rec.claimable(now, s.lease) {
				return nil
			}
		}

		rec.State = CheckoutPending
		rec.ClaimedAt = now
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, k, data, s.ttl)
			return nil
		})
		if err == nil {
			claimed = true
		}
		return err
	}

	if err := s.client.Watch(ctx, txf, k); err != nil {
		switch {
		case errors.Is(err, redis.TxFailedErr):
			// Lost the race to another attempt with the same key.
			return CheckoutRecord{State: CheckoutPending}, false, nil
		case apperr.KindOf(err) != nil:
			return CheckoutRecord{}, false, err
		}
		return CheckoutRecord{}, false, apperr.Unavailable("claim checkout key", err)
	}
	return rec, claimed, nil
}

func (s *RedisIdempotencyStore) Save(ctx context.Context, userID int64, key string, rec CheckoutRecord) error {
	if rec.State == CheckoutPending {
		rec.ClaimedAt = s.now().UTC()
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, checkoutKey(userID, key), data, s.ttl).Err(); err != nil {
		return apperr.Unavailable("write checkout key", err)
	}
	return nil
}

// InMemoryIdempotencyStore keeps records for the life of the process.
type InMemoryIdempotencyStore struct {
	mu      sync.Mutex
	records map[string]CheckoutRecord
	lease   time.Duration
	now     func() time.Time
}

func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	return &InMemoryIdempotencyStore{
		records: map[string]CheckoutRecord{},
		lease:   DefaultCheckoutLease,
		now:     time.Now,
	}
}

func (s *InMemoryIdempotencyStore) Claim(_ context.Context, userID int64, key string) (CheckoutRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := checkoutKey(userID, key)
	now := s.now().UTC()
	rec, ok := s.records[k]
	if ok && !rec.claimable(now, s.lease) {
		return copyRecord(rec), false, nil
	}
	if !ok {
		rec = CheckoutRecord{Orders: map[int64]int64{}}
	}
	rec.State = CheckoutPending
	rec.ClaimedAt = now
	s.records[k] = copyRecord(rec)
	return copyRecord(rec), true, nil
}

func (s *InMemoryIdempotencyStore) Save(_ context.Context, userID int64, key string, rec CheckoutRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.State == CheckoutPending {
		rec.ClaimedAt = s.now().UTC()
	}
	s.records[checkoutKey(userID, key)] = copyRecord(rec)
	return nil
}

func copyRecord(rec CheckoutRecord) CheckoutRecord {
	out := CheckoutRecord{State: rec.State, ClaimedAt: rec.ClaimedAt, Orders: make(map[int64]int64, len(rec.Orders))}
	for k, v := range rec.Orders {
		out.Orders[k] = v
	}
	return out
}

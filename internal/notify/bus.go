// Package notify broadcasts committed order status changes to subscribers.
package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/wichananm65/pet-shop-orders/internal/order"
	"go.uber.org/zap"
)

// Subscriber reacts to a status change. Errors are logged by the bus and
// never reach the code that changed the order.
type Subscriber interface {
	Name() string
	OnStatusChanged(ctx context.Context, o order.Order) error
}

// Bus calls subscribers synchronously in registration order. Subscribers are
// expected to be registered at startup.
type Bus struct {
	mu   sync.RWMutex
	subs []Subscriber
	log  *zap.Logger
}

func NewBus(log *zap.Logger) *Bus {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bus{log: log}
}

func (b *Bus) Subscribe(s Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, s)
}

// Unsubscribe removes the first registration of s.
func (b *Bus) Unsubscribe(s Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, cur := range b.subs {
		if cur == s {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

func (b *Bus) Publish(ctx context.Context, o order.Order) {
	b.mu.RLock()
	subs := append([]Subscriber(nil), b.subs...)
	b.mu.RUnlock()

	for _, s := range subs {
		if err := b.deliver(ctx, s, o); err != nil {
			b.log.Warn("status subscriber failed",
				zap.String("subscriber", s.Name()),
				zap.Int64("order_id", o.ID),
				zap.String("status", string(o.Status)),
				zap.Error(err))
		}
	}
}

func (b *Bus) deliver(ctx context.Context, s Subscriber, o order.Order) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return s.OnStatusChanged(ctx, o)
}

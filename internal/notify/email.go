package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/wichananm65/pet-shop-orders/internal/order"
	"go.uber.org/zap"
)

// Mailer sends one plain-text message.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// EmailSubscriber tells the buyer about every status change.
type EmailSubscriber struct {
	mailer Mailer
}

func NewEmailSubscriber(m Mailer) *EmailSubscriber {
	return &EmailSubscriber{mailer: m}
}

func (s *EmailSubscriber) Name() string { return "email" }

func (s *EmailSubscriber) OnStatusChanged(ctx context.Context, o order.Order) error {
	if o.UserEmail == "" {
		return errors.New("order has no buyer email")
	}
	subject := fmt.Sprintf("Order #%d is now %s", o.ID, o.Status)
	return s.mailer.Send(ctx, o.UserEmail, subject, o.TrackingMessage())
}

// LogMailer writes messages to the log instead of sending them. Delivery
// belongs to the mail service.
type LogMailer struct {
	log *zap.Logger
}

func NewLogMailer(log *zap.Logger) *LogMailer {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogMailer{log: log}
}

func (m *LogMailer) Send(_ context.Context, to, subject, body string) error {
	m.log.Info("email queued", zap.String("to", to), zap.String("subject", subject), zap.String("body", body))
	return nil
}

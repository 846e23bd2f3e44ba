package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/wichananm65/pet-shop-orders/internal/order"
)

const statusChangedEvent = "order.status_changed"

// MessageWriter is the part of *kafka.Writer the subscriber uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// NewKafkaWriter builds a writer for the order events topic.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
}

// StatusChanged is the event payload other services consume.
type StatusChanged struct {
	EventID    string       `json:"eventId"`
	Type       string       `json:"type"`
	OrderID    int64        `json:"orderId"`
	UserID     int64        `json:"userId"`
	MerchantID int64        `json:"merchantId"`
	Status     order.Status `json:"status"`
	TotalPrice float64      `json:"totalPrice"`
	OccurredAt time.Time    `json:"occurredAt"`
}

// KafkaSubscriber publishes each change keyed by order id, so events for one
// order stay in one partition and keep their order.
type KafkaSubscriber struct {
	writer  MessageWriter
	timeout time.Duration
	now     func() time.Time
}

func NewKafkaSubscriber(w MessageWriter, timeout time.Duration) *KafkaSubscriber {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &KafkaSubscriber{writer: w, timeout: timeout, now: time.Now}
}

func (s *KafkaSubscriber) Name() string { return "kafka" }

func (s *KafkaSubscriber) OnStatusChanged(ctx context.Context, o order.Order) error {
	ev := StatusChanged{
		EventID:    uuid.NewString(),
		Type:       statusChangedEvent,
		OrderID:    o.ID,
		UserID:     o.UserID,
		MerchantID: o.MerchantID,
		Status:     o.Status,
		TotalPrice: o.TotalPrice,
		OccurredAt: s.now().UTC(),
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(o.ID, 10)),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(statusChangedEvent)},
			{Key: "event_id", Value: []byte(ev.EventID)},
		},
	})
}

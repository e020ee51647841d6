// Package events publishes domain events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Event types.
const (
	OrderPlaced         = "order.placed"
	OrderStatusChanged  = "order.status_changed"
	OrderPaymentUpdated = "order.payment_updated"
	ApplicationDecided  = "application.decided"
	MessageSent         = "message.sent"
)

// Event is a domain fact. Key selects the partition.
type Event struct {
	Type       string
	Key        string
	Payload    any
	OccurredAt time.Time
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Emit publishes e and logs a failure instead of returning it. Domain writes
// have already committed by the time an event is emitted.
func Emit(ctx context.Context, p Publisher, e Event) {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	if err := p.Publish(ctx, e); err != nil {
		zctx.From(ctx).Warn("publish event failed",
			zap.String("type", e.Type),
			zap.String("key", e.Key),
			zap.Error(err),
		)
	}
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes each event family to its own topic, for example
// "vrs.order" for order.placed.
type KafkaPublisher struct {
	writer  messageWriter
	brokers []string
	prefix  string
}

// NewKafkaPublisher creates a publisher for the given brokers. Writes are
// asynchronous: Publish only queues the message and delivery failures are
// reported to lg.
func NewKafkaPublisher(lg *zap.Logger, brokers []string, topicPrefix string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           10 * time.Millisecond,
		WriteTimeout:           5 * time.Second,
		AllowAutoTopicCreation: true,
		Async:                  true,
		Completion:             deliveryLogger(lg),
	}
	return &KafkaPublisher{writer: w, brokers: brokers, prefix: topicPrefix}
}

func deliveryLogger(lg *zap.Logger) func([]kafka.Message, error) {
	return func(msgs []kafka.Message, err error) {
		if err == nil {
			return
		}
		for _, m := range msgs {
			lg.Warn("Deliver event failed",
				zap.String("topic", m.Topic),
				zap.ByteString("key", m.Key),
				zap.Error(err),
			)
		}
	}
}

type envelope struct {
	Type       string    `json:"type"`
	Key        string    `json:"key"`
	OccurredAt time.Time `json:"occurredAt"`
	Payload    any       `json:"payload"`
}

// Publish implements Publisher.
func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	value, err := json.Marshal(envelope{
		Type:       e.Type,
		Key:        e.Key,
		OccurredAt: e.OccurredAt,
		Payload:    e.Payload,
	})
	if err != nil {
		return errors.Wrap(err, "marshal event")
	}

	msg := kafka.Message{
		Topic: p.Topic(e.Type),
		Key:   []byte(e.Key),
		Value: value,
		Time:  e.OccurredAt,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(e.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return errors.Wrapf(err, "write %s", e.Type)
	}
	return nil
}

// Topic returns the topic an event type is written to.
func (p *KafkaPublisher) Topic(eventType string) string {
	family, _, _ := strings.Cut(eventType, ".")
	return p.prefix + family
}

// Ping dials the first reachable broker.
func (p *KafkaPublisher) Ping(ctx context.Context) error {
	var lastErr error
	for _, addr := range p.brokers {
		conn, err := kafka.DialContext(ctx, "tcp", addr)
		if err != nil {
			lastErr = err
			continue
		}
		return conn.Close()
	}
	if lastErr == nil {
		return errors.New("no brokers configured")
	}
	return errors.Wrap(lastErr, "dial kafka")
}

// Close flushes pending messages.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Package kafka implements the event publisher and consumer contracts
// over Kafka. One keyed writer per topic keeps per-order events on the
// same partition, so consumers observe them in emission order.
package kafka

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/tably/ordercore/internal/event"
)

var _ event.Publisher = (*Bus)(nil)
var _ event.Consumer = (*Bus)(nil)

// Bus publishes and consumes domain events on a Kafka cluster.
type Bus struct {
	brokers []string
	lg      *zap.Logger

	mu      sync.Mutex
	writers map[string]*kafka.Writer
}

// NewBus creates a Bus for the given brokers.
func NewBus(brokers []string, lg *zap.Logger) *Bus {
	return &Bus{
		brokers: brokers,
		lg:      lg,
		writers: make(map[string]*kafka.Writer),
	}
}

// Publish JSON-encodes the payload and writes it under the ordering
// key. Writes wait for all in-sync replicas before returning.
func (b *Bus) Publish(ctx context.Context, topic, key string, payload any) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "encode payload")
	}

	w := b.writer(topic)
	if err := w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
	}); err != nil {
		return errors.Wrapf(err, "write to %s", topic)
	}
	return nil
}

func (b *Bus) writer(topic string) *kafka.Writer {
	b.mu.Lock()
	defer b.mu.Unlock()

	if w, ok := b.writers[topic]; ok {
		return w
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(b.brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  5,
		WriteTimeout: 5 * time.Second,
		ReadTimeout:  5 * time.Second,
		BatchTimeout: 50 * time.Millisecond,
	}
	b.writers[topic] = w
	return w
}

// Consume reads the topics under a consumer group and feeds each
// message to the handler. A message is committed only after the handler
// returns nil; a failing message is retried with backoff, which can
// redeliver earlier successes after a rebalance, so handlers must be
// idempotent. Consume returns when ctx is cancelled.
func (b *Bus) Consume(ctx context.Context, topics []string, group string, handler event.Handler) error {
	readers := make([]*kafka.Reader, 0, len(topics))
	for _, topic := range topics {
		readers = append(readers, kafka.NewReader(kafka.ReaderConfig{
			Brokers:  b.brokers,
			Topic:    topic,
			GroupID:  group,
			MinBytes: 1e3,
			MaxBytes: 1e6,
		}))
	}
	defer func() {
		for _, r := range readers {
			if err := r.Close(); err != nil {
				b.lg.Warn("Failed to close reader", zap.Error(err))
			}
		}
	}()

	done := make(chan struct{}, len(readers))
	for _, r := range readers {
		go func(r *kafka.Reader) {
			defer func() { done <- struct{}{} }()
			b.consumeLoop(ctx, r, handler)
		}(r)
	}
	for range readers {
		<-done
	}
	return ctx.Err()
}

func (b *Bus) consumeLoop(ctx context.Context, r *kafka.Reader, handler event.Handler) {
	topic := r.Config().Topic
	for {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			b.lg.Error("Read failed", zap.String("topic", topic), zap.Error(err))
			if !sleep(ctx, time.Second) {
				return
			}
			continue
		}

		msg := event.Message{
			Topic: m.Topic,
			Key:   string(m.Key),
			Value: m.Value,
		}
		for attempt := 1; ; attempt++ {
			err := handler(ctx, msg)
			if err == nil {
				break
			}
			b.lg.Error("Handler failed",
				zap.String("topic", m.Topic),
				zap.String("key", msg.Key),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			if !sleep(ctx, backoff(attempt)) {
				return
			}
		}

		if err := r.CommitMessages(ctx, m); err != nil {
			if ctx.Err() != nil {
				return
			}
			b.lg.Error("Commit failed", zap.String("topic", topic), zap.Error(err))
		}
	}
}

// backoff grows linearly and caps at 10 seconds.
func backoff(attempt int) time.Duration {
	d := time.Duration(attempt) * time.Second
	if d > 10*time.Second {
		d = 10 * time.Second
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

// Close releases all writers.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var firstErr error
	for topic, w := range b.writers {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = errors.Wrapf(err, "close writer for %s", topic)
		}
	}
	b.writers = make(map[string]*kafka.Writer)
	return firstErr
}

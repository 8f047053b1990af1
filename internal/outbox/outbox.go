// Package outbox decouples event publication from request handling.
// Producers append entries to a durable store; a relay drains the store
// into the broker in insertion order. An order's events survive broker
// outages because the store write shares the database with the order
// row itself.
package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"

	"github.com/tably/ordercore/internal/event"
)

var _ event.Publisher = (*Publisher)(nil)

// Entry is one pending or published event.
type Entry struct {
	ID          int64
	Topic       string
	Key         string
	Payload     []byte
	CreatedAt   time.Time
	PublishedAt *time.Time
}

// Store persists outbox entries. FetchUnpublished returns entries in id
// order so per-key emission order is preserved through the relay.
type Store interface {
	Append(ctx context.Context, topic, key string, payload []byte) error
	FetchUnpublished(ctx context.Context, limit int) ([]Entry, error)
	MarkPublished(ctx context.Context, ids []int64) error
}

// Publisher satisfies the event publisher contract by appending to the
// store instead of talking to the broker.
type Publisher struct {
	store Store
}

// NewPublisher creates a store-backed publisher.
func NewPublisher(store Store) *Publisher {
	return &Publisher{store: store}
}

// Publish encodes the payload and appends it to the outbox.
func (p *Publisher) Publish(ctx context.Context, topic, key string, payload any) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "encode payload")
	}
	if err := p.store.Append(ctx, topic, key, value); err != nil {
		return errors.Wrap(err, "append to outbox")
	}
	return nil
}

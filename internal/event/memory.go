package event

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/go-faster/errors"
)

// MemoryBus is an in-process Publisher that records published messages
// and fans them out to subscribed handlers synchronously. It is used in
// tests and for single-process development runs; per-key ordering holds
// trivially because delivery happens inline with Publish.
type MemoryBus struct {
	mu       sync.Mutex
	messages []Message
	handlers map[string][]Handler
}

// NewMemoryBus creates an empty MemoryBus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{handlers: make(map[string][]Handler)}
}

var _ Publisher = (*MemoryBus)(nil)

// Publish serializes the payload and delivers it to every handler
// subscribed to the topic.
func (b *MemoryBus) Publish(ctx context.Context, topic, key string, payload any) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "marshal payload")
	}
	msg := Message{Topic: topic, Key: key, Value: value}

	b.mu.Lock()
	b.messages = append(b.messages, msg)
	handlers := append([]Handler(nil), b.handlers[topic]...)
	b.mu.Unlock()

	for _, h := range handlers {
		if err := h(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

// Subscribe registers a handler for a topic. Delivery is synchronous.
func (b *MemoryBus) Subscribe(topic string, h Handler) {
	b.mu.Lock()
	b.handlers[topic] = append(b.handlers[topic], h)
	b.mu.Unlock()
}

// Messages returns a copy of everything published so far.
func (b *MemoryBus) Messages() []Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Message(nil), b.messages...)
}

// TopicMessages returns published messages for one topic.
func (b *MemoryBus) TopicMessages(topic string) []Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []Message
	for _, m := range b.messages {
		if m.Topic == topic {
			out = append(out, m)
		}
	}
	return out
}

package outbox

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
)

// sink is the forward half of the broker bus.
type sink interface {
	Publish(ctx context.Context, topic, key string, payload any) error
}

// rawPayload carries already-encoded JSON through a publisher without
// re-encoding it.
type rawPayload []byte

func (r rawPayload) MarshalJSON() ([]byte, error) { return r, nil }

// Relay drains the outbox into the broker. Entries are published in id
// order and marked in batches; a failed publish stops the batch so no
// later entry overtakes an earlier one for the same key.
type Relay struct {
	store Store
	sink  sink
	lg    *zap.Logger

	interval  time.Duration
	batchSize int
}

// NewRelay creates a relay polling the store every interval.
func NewRelay(store Store, s sink, interval time.Duration, batchSize int, lg *zap.Logger) *Relay {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Relay{
		store:     store,
		sink:      s,
		lg:        lg,
		interval:  interval,
		batchSize: batchSize,
	}
}

// Run polls until ctx is cancelled. Publish failures back off and
// retry; the same entry may be published more than once when marking
// fails, so downstream consumers deduplicate.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		n, err := r.drainOnce(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			failures++
			r.lg.Error("Outbox drain failed",
				zap.Int("consecutive_failures", failures),
				zap.Error(err),
			)
			if !sleep(ctx, backoff(failures)) {
				return ctx.Err()
			}
			continue
		}
		failures = 0
		if n > 0 {
			r.lg.Debug("Outbox drained", zap.Int("published", n))
		}
	}
}

// drainOnce publishes one batch and returns how many entries went out.
func (r *Relay) drainOnce(ctx context.Context) (int, error) {
	entries, err := r.store.FetchUnpublished(ctx, r.batchSize)
	if err != nil {
		return 0, errors.Wrap(err, "fetch unpublished")
	}
	if len(entries) == 0 {
		return 0, nil
	}

	published := make([]int64, 0, len(entries))
	for _, e := range entries {
		if err := r.sink.Publish(ctx, e.Topic, e.Key, rawPayload(e.Payload)); err != nil {
			// Mark what went through before reporting, otherwise those
			// entries get republished on the next pass.
			if len(published) > 0 {
				if markErr := r.store.MarkPublished(ctx, published); markErr != nil {
					return 0, errors.Wrap(markErr, "mark published")
				}
			}
			return len(published), errors.Wrapf(err, "publish entry %d to %s", e.ID, e.Topic)
		}
		published = append(published, e.ID)
	}

	if err := r.store.MarkPublished(ctx, published); err != nil {
		return 0, errors.Wrap(err, "mark published")
	}
	return len(published), nil
}

func backoff(failures int) time.Duration {
	d := time.Duration(failures) * time.Second
	if d > 30*time.Second {
		d = 30 * time.Second
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

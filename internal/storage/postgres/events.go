package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tably/ordercore/internal/domain/inventory"
)

var _ inventory.ProcessedEvents = (*ProcessedEventsStore)(nil)

// ProcessedEventsStore records consumed event identities. The primary
// key on (event_id, event_type) makes the claim atomic: exactly one
// insert wins per pair.
type ProcessedEventsStore struct {
	pool *pgxpool.Pool
}

// NewProcessedEventsStore returns a ProcessedEventsStore that uses the given pool.
func NewProcessedEventsStore(pool *pgxpool.Pool) *ProcessedEventsStore {
	return &ProcessedEventsStore{pool: pool}
}

// MarkProcessed claims the pair. Returns false when another consumer
// already processed it.
func (s *ProcessedEventsStore) MarkProcessed(ctx context.Context, eventID, eventType string) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO processed_events (event_id, event_type)
		 VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		eventID, eventType,
	)
	if err != nil {
		return false, errors.Wrap(err, "insert processed event")
	}
	return tag.RowsAffected() == 1, nil
}

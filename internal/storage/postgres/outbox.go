package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tably/ordercore/internal/outbox"
)

var _ outbox.Store = (*OutboxStore)(nil)

// OutboxStore implements outbox.Store backed by PostgreSQL.
type OutboxStore struct {
	pool *pgxpool.Pool
}

// NewOutboxStore returns an OutboxStore that uses the given pool.
func NewOutboxStore(pool *pgxpool.Pool) *OutboxStore {
	return &OutboxStore{pool: pool}
}

// Append inserts a pending entry.
func (s *OutboxStore) Append(ctx context.Context, topic, key string, payload []byte) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO outbox (topic, key, payload) VALUES ($1, $2, $3)`,
		topic, key, payload,
	)
	if err != nil {
		return errors.Wrapf(err, "append outbox entry for %s", topic)
	}
	return nil
}

// FetchUnpublished returns up to limit pending entries in insertion
// order.
func (s *OutboxStore) FetchUnpublished(ctx context.Context, limit int) ([]outbox.Entry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, topic, key, payload, created_at
		 FROM outbox WHERE published_at IS NULL ORDER BY id LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, errors.Wrap(err, "fetch unpublished entries")
	}
	defer rows.Close()

	var out []outbox.Entry
	for rows.Next() {
		var e outbox.Entry
		if err := rows.Scan(&e.ID, &e.Topic, &e.Key, &e.Payload, &e.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan outbox entry")
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate outbox entries")
	}
	return out, nil
}

// MarkPublished stamps the entries as delivered.
func (s *OutboxStore) MarkPublished(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx,
		`UPDATE outbox SET published_at = now() WHERE id = ANY($1)`,
		ids,
	)
	if err != nil {
		return errors.Wrap(err, "mark outbox entries published")
	}
	return nil
}

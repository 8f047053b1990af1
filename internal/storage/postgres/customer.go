package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tably/ordercore/internal/domain/customer"
)

var _ customer.Repository = (*CustomerRepository)(nil)

// CustomerRepository implements customer.Repository backed by PostgreSQL.
type CustomerRepository struct {
	pool *pgxpool.Pool
}

// NewCustomerRepository returns a CustomerRepository that uses the given pool.
func NewCustomerRepository(pool *pgxpool.Pool) *CustomerRepository {
	return &CustomerRepository{pool: pool}
}

const selectCustomerSQL = `SELECT id, phone_number, name, type, created_at
FROM customers WHERE id = $1`

// Get loads a customer by id.
func (r *CustomerRepository) Get(ctx context.Context, id string) (*customer.Customer, error) {
	var c customer.Customer
	var typ string
	err := r.pool.QueryRow(ctx, selectCustomerSQL, id).Scan(
		&c.ID, &c.PhoneNumber, &c.Name, &typ, &c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, customer.ErrNotFound
		}
		return nil, errors.Wrapf(err, "select customer %q", id)
	}
	c.Type = customer.Type(typ)
	return &c, nil
}

const insertCustomerSQL = `INSERT INTO customers (id, phone_number, name, type, created_at)
VALUES ($1, $2, $3, $4, $5)`

// Create persists a new customer.
func (r *CustomerRepository) Create(ctx context.Context, c *customer.Customer) error {
	_, err := r.pool.Exec(ctx, insertCustomerSQL,
		c.ID, c.PhoneNumber, c.Name, string(c.Type), c.CreatedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "insert customer %q", c.ID)
	}
	return nil
}

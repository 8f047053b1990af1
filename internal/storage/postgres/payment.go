package postgres

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tably/ordercore/internal/domain/payment"
)

var _ payment.Repository = (*PaymentRepository)(nil)

// PaymentRepository implements payment.Repository backed by PostgreSQL.
// The unique constraint on order_id enforces one payment per order.
type PaymentRepository struct {
	pool *pgxpool.Pool
}

// NewPaymentRepository returns a PaymentRepository that uses the given pool.
func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

const insertPaymentSQL = `INSERT INTO payments (
	id, order_id, tenant_id, amount, method, status,
	razorpay_order_id, razorpay_payment_id,
	amount_received, change_given, confirmed_by, confirmed_at,
	created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

// Create inserts a payment. A duplicate order_id maps to
// payment.ErrAlreadyExists so callers can settle creation races.
func (r *PaymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	_, err := r.pool.Exec(ctx, insertPaymentSQL,
		p.ID, p.OrderID, p.TenantID, p.Amount, string(p.Method), string(p.Status),
		p.RazorpayOrderID, p.RazorpayPaymentID,
		p.AmountReceived, p.ChangeGiven, p.ConfirmedBy, p.ConfirmedAt,
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return payment.ErrAlreadyExists
		}
		return errors.Wrapf(err, "insert payment %q", p.ID)
	}
	return nil
}

const selectPaymentSQL = `SELECT
	id, order_id, tenant_id, amount, method, status,
	razorpay_order_id, razorpay_payment_id,
	amount_received, change_given, confirmed_by, confirmed_at,
	created_at, updated_at
FROM payments`

// Get loads a payment by id.
func (r *PaymentRepository) Get(ctx context.Context, id string) (*payment.Payment, error) {
	return r.selectOne(ctx, selectPaymentSQL+" WHERE id = $1", id)
}

// GetByOrder loads the payment for an order.
func (r *PaymentRepository) GetByOrder(ctx context.Context, orderID string) (*payment.Payment, error) {
	return r.selectOne(ctx, selectPaymentSQL+" WHERE order_id = $1", orderID)
}

func (r *PaymentRepository) selectOne(ctx context.Context, query, arg string) (*payment.Payment, error) {
	var p payment.Payment
	var method, status string
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&p.ID, &p.OrderID, &p.TenantID, &p.Amount, &method, &status,
		&p.RazorpayOrderID, &p.RazorpayPaymentID,
		&p.AmountReceived, &p.ChangeGiven, &p.ConfirmedBy, &p.ConfirmedAt,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, payment.ErrNotFound
		}
		return nil, errors.Wrapf(err, "select payment by %q", arg)
	}
	p.Method = payment.Method(method)
	p.Status = payment.Status(status)
	return &p, nil
}

const updatePaymentSQL = `UPDATE payments SET
	status = $2, razorpay_order_id = $3, razorpay_payment_id = $4,
	amount_received = $5, change_given = $6, confirmed_by = $7, confirmed_at = $8,
	updated_at = $9
WHERE id = $1`

// Update persists the mutable fields of a payment.
func (r *PaymentRepository) Update(ctx context.Context, p *payment.Payment) error {
	tag, err := r.pool.Exec(ctx, updatePaymentSQL,
		p.ID, string(p.Status), p.RazorpayOrderID, p.RazorpayPaymentID,
		p.AmountReceived, p.ChangeGiven, p.ConfirmedBy, p.ConfirmedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "update payment %q", p.ID)
	}
	if tag.RowsAffected() == 0 {
		return payment.ErrNotFound
	}
	return nil
}

// List returns a page of payments, newest first, plus the total count.
func (r *PaymentRepository) List(ctx context.Context, limit, offset int) ([]payment.Payment, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM payments`).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "count payments")
	}

	rows, err := r.pool.Query(ctx, selectPaymentSQL+" ORDER BY created_at DESC LIMIT $1 OFFSET $2", limit, offset)
	if err != nil {
		return nil, 0, errors.Wrap(err, "list payments")
	}
	payments, err := scanPayments(rows)
	if err != nil {
		return nil, 0, err
	}
	return payments, total, nil
}

// CompletedBetween returns completed payments confirmed in [from, to].
func (r *PaymentRepository) CompletedBetween(ctx context.Context, from, to time.Time) ([]payment.Payment, error) {
	rows, err := r.pool.Query(ctx,
		selectPaymentSQL+" WHERE status = 'COMPLETED' AND confirmed_at BETWEEN $1 AND $2 ORDER BY confirmed_at",
		from, to,
	)
	if err != nil {
		return nil, errors.Wrap(err, "list completed payments")
	}
	return scanPayments(rows)
}

func scanPayments(rows pgx.Rows) ([]payment.Payment, error) {
	defer rows.Close()

	var out []payment.Payment
	for rows.Next() {
		var p payment.Payment
		var method, status string
		if err := rows.Scan(
			&p.ID, &p.OrderID, &p.TenantID, &p.Amount, &method, &status,
			&p.RazorpayOrderID, &p.RazorpayPaymentID,
			&p.AmountReceived, &p.ChangeGiven, &p.ConfirmedBy, &p.ConfirmedAt,
			&p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "scan payment")
		}
		p.Method = payment.Method(method)
		p.Status = payment.Status(status)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate payments")
	}
	return out, nil
}

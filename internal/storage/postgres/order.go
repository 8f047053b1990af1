package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tably/ordercore/internal/domain/order"
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
// An order and its lines are written in a single transaction.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

const insertOrderSQL = `INSERT INTO orders (
	id, tenant_id, table_number, customer_id, status,
	subtotal, discount_amount, discount_rule_id, discount_reason,
	tax_amount, delivery_charge, total, notes, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

const insertOrderLineSQL = `INSERT INTO order_lines (
	id, order_id, menu_item_id, quantity, unit_price, subtotal, special_requests
) VALUES ($1, $2, $3, $4, $5, $6, $7)`

// Create persists an order together with its lines.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	_, err = tx.Exec(ctx, insertOrderSQL,
		o.ID, o.TenantID, o.TableNumber, o.CustomerID, string(o.Status),
		o.Subtotal, o.DiscountAmount, o.DiscountRuleID, o.DiscountReason,
		o.TaxAmount, o.DeliveryCharge, o.Total, o.Notes, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "insert order %q", o.ID)
	}

	for _, line := range o.Lines {
		_, err = tx.Exec(ctx, insertOrderLineSQL,
			line.ID, o.ID, line.MenuItemID, line.Quantity,
			line.UnitPrice, line.Subtotal, line.SpecialRequests,
		)
		if err != nil {
			return errors.Wrapf(err, "insert order line %q", line.ID)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "commit order")
	}
	return nil
}

const selectOrderSQL = `SELECT
	id, tenant_id, table_number, customer_id, status,
	subtotal, discount_amount, discount_rule_id, discount_reason,
	tax_amount, delivery_charge, total, notes, created_at, updated_at
FROM orders WHERE id = $1`

const selectOrderLinesSQL = `SELECT
	id, menu_item_id, quantity, unit_price, subtotal, special_requests
FROM order_lines WHERE order_id = $1 ORDER BY id`

// Get loads an order and its lines. Returns order.ErrNotFound when the
// id does not exist.
func (r *OrderRepository) Get(ctx context.Context, id string) (*order.Order, error) {
	var o order.Order
	var status string
	err := r.pool.QueryRow(ctx, selectOrderSQL, id).Scan(
		&o.ID, &o.TenantID, &o.TableNumber, &o.CustomerID, &status,
		&o.Subtotal, &o.DiscountAmount, &o.DiscountRuleID, &o.DiscountReason,
		&o.TaxAmount, &o.DeliveryCharge, &o.Total, &o.Notes, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "select order %q", id)
	}
	o.Status = order.Status(status)

	rows, err := r.pool.Query(ctx, selectOrderLinesSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "select lines for order %q", id)
	}
	defer rows.Close()

	for rows.Next() {
		var line order.Line
		if err := rows.Scan(
			&line.ID, &line.MenuItemID, &line.Quantity,
			&line.UnitPrice, &line.Subtotal, &line.SpecialRequests,
		); err != nil {
			return nil, errors.Wrap(err, "scan order line")
		}
		o.Lines = append(o.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate order lines")
	}
	return &o, nil
}

const updateOrderStatusSQL = `UPDATE orders
SET status = $2, notes = CASE WHEN $3 <> '' THEN $3 ELSE notes END, updated_at = now()
WHERE id = $1`

// UpdateStatus persists a status transition already validated by the
// state machine. Empty notes leave the stored notes untouched.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status order.Status, notes string) error {
	tag, err := r.pool.Exec(ctx, updateOrderStatusSQL, id, string(status), notes)
	if err != nil {
		return errors.Wrapf(err, "update status of order %q", id)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// List returns a page of the tenant's orders, newest first, plus the
// total match count. Lines are not loaded for list views.
func (r *OrderRepository) List(ctx context.Context, tenantID string, f order.ListFilter) ([]order.Order, int, error) {
	where := []string{"tenant_id = $1"}
	args := []any{tenantID}

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.Status != "" {
		where = append(where, "status = "+arg(string(f.Status)))
	}
	if f.TableNumber > 0 {
		where = append(where, "table_number = "+arg(f.TableNumber))
	}
	if f.CustomerID != "" {
		where = append(where, "customer_id = "+arg(f.CustomerID))
	}
	if !f.DateFrom.IsZero() {
		where = append(where, "created_at >= "+arg(f.DateFrom))
	}
	if !f.DateTo.IsZero() {
		where = append(where, "created_at <= "+arg(f.DateTo))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT count(*) FROM orders WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "count orders")
	}

	query := `SELECT
		id, tenant_id, table_number, customer_id, status,
		subtotal, discount_amount, discount_rule_id, discount_reason,
		tax_amount, delivery_charge, total, notes, created_at, updated_at
	FROM orders WHERE ` + cond +
		" ORDER BY created_at DESC LIMIT " + arg(f.Limit) + " OFFSET " + arg((f.Page-1)*f.Limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "list orders")
	}
	defer rows.Close()

	var out []order.Order
	for rows.Next() {
		var o order.Order
		var status string
		if err := rows.Scan(
			&o.ID, &o.TenantID, &o.TableNumber, &o.CustomerID, &status,
			&o.Subtotal, &o.DiscountAmount, &o.DiscountRuleID, &o.DiscountReason,
			&o.TaxAmount, &o.DeliveryCharge, &o.Total, &o.Notes, &o.CreatedAt, &o.UpdatedAt,
		); err != nil {
			return nil, 0, errors.Wrap(err, "scan order")
		}
		o.Status = order.Status(status)
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.Wrap(err, "iterate orders")
	}
	return out, total, nil
}

package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tably/ordercore/internal/domain/inventory"
)

var _ inventory.Repository = (*InventoryRepository)(nil)

// InventoryRepository implements inventory.Repository backed by PostgreSQL.
type InventoryRepository struct {
	pool *pgxpool.Pool
}

// NewInventoryRepository returns an InventoryRepository that uses the given pool.
func NewInventoryRepository(pool *pgxpool.Pool) *InventoryRepository {
	return &InventoryRepository{pool: pool}
}

const insertInventorySQL = `INSERT INTO inventory_items (
	id, tenant_id, menu_item_id, name, unit, quantity, reorder_level, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

// Create inserts an inventory item.
func (r *InventoryRepository) Create(ctx context.Context, item *inventory.Item) error {
	_, err := r.pool.Exec(ctx, insertInventorySQL,
		item.ID, item.TenantID, nullable(item.MenuItemID), item.Name, item.Unit,
		item.Quantity, item.ReorderLevel, item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "insert inventory item %q", item.ID)
	}
	return nil
}

const selectInventorySQL = `SELECT
	id, tenant_id, coalesce(menu_item_id, ''), name, unit, quantity, reorder_level, created_at, updated_at
FROM inventory_items`

// Get loads an item by id.
func (r *InventoryRepository) Get(ctx context.Context, id string) (*inventory.Item, error) {
	return r.selectOne(ctx, selectInventorySQL+" WHERE id = $1", id)
}

// GetByMenuItem resolves the soft link from a menu item to its stock row.
func (r *InventoryRepository) GetByMenuItem(ctx context.Context, tenantID, menuItemID string) (*inventory.Item, error) {
	var item inventory.Item
	err := r.pool.QueryRow(ctx,
		selectInventorySQL+" WHERE tenant_id = $1 AND menu_item_id = $2", tenantID, menuItemID,
	).Scan(
		&item.ID, &item.TenantID, &item.MenuItemID, &item.Name, &item.Unit,
		&item.Quantity, &item.ReorderLevel, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, inventory.ErrNotFound
		}
		return nil, errors.Wrapf(err, "select stock for menu item %q", menuItemID)
	}
	return &item, nil
}

func (r *InventoryRepository) selectOne(ctx context.Context, query, arg string) (*inventory.Item, error) {
	var item inventory.Item
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&item.ID, &item.TenantID, &item.MenuItemID, &item.Name, &item.Unit,
		&item.Quantity, &item.ReorderLevel, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, inventory.ErrNotFound
		}
		return nil, errors.Wrapf(err, "select inventory item %q", arg)
	}
	return &item, nil
}

const updateInventorySQL = `UPDATE inventory_items SET
	menu_item_id = $2, name = $3, unit = $4, quantity = $5, reorder_level = $6, updated_at = $7
WHERE id = $1`

// Update persists the mutable fields of an item.
func (r *InventoryRepository) Update(ctx context.Context, item *inventory.Item) error {
	tag, err := r.pool.Exec(ctx, updateInventorySQL,
		item.ID, nullable(item.MenuItemID), item.Name, item.Unit,
		item.Quantity, item.ReorderLevel, item.UpdatedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "update inventory item %q", item.ID)
	}
	if tag.RowsAffected() == 0 {
		return inventory.ErrNotFound
	}
	return nil
}

// Delete removes an item.
func (r *InventoryRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM inventory_items WHERE id = $1`, id)
	if err != nil {
		return errors.Wrapf(err, "delete inventory item %q", id)
	}
	if tag.RowsAffected() == 0 {
		return inventory.ErrNotFound
	}
	return nil
}

// ListByTenant returns all items of a tenant ordered by name.
func (r *InventoryRepository) ListByTenant(ctx context.Context, tenantID string) ([]inventory.Item, error) {
	rows, err := r.pool.Query(ctx, selectInventorySQL+" WHERE tenant_id = $1 ORDER BY name", tenantID)
	if err != nil {
		return nil, errors.Wrap(err, "list inventory items")
	}
	defer rows.Close()

	var out []inventory.Item
	for rows.Next() {
		var item inventory.Item
		if err := rows.Scan(
			&item.ID, &item.TenantID, &item.MenuItemID, &item.Name, &item.Unit,
			&item.Quantity, &item.ReorderLevel, &item.CreatedAt, &item.UpdatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "scan inventory item")
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate inventory items")
	}
	return out, nil
}

// nullable maps an empty string to NULL so partial unique indexes on
// the column ignore untracked rows.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

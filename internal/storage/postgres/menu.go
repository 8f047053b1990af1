package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tably/ordercore/internal/domain/menu"
	"github.com/tably/ordercore/internal/domain/tenant"
)

var _ menu.Repository = (*MenuRepository)(nil)
var _ tenant.Repository = (*TenantRepository)(nil)

// MenuRepository implements menu.Repository backed by PostgreSQL.
type MenuRepository struct {
	pool *pgxpool.Pool
}

// NewMenuRepository returns a MenuRepository that uses the given pool.
func NewMenuRepository(pool *pgxpool.Pool) *MenuRepository {
	return &MenuRepository{pool: pool}
}

const selectMenuItemsSQL = `SELECT id, tenant_id, name, price, category
FROM menu_items
WHERE tenant_id = $1 AND id = ANY($2) AND NOT is_deleted`

// GetByIDs loads the tenant's menu items for the given ids.
// Soft-deleted items are omitted, so callers detect them the same way
// as unknown ids.
func (r *MenuRepository) GetByIDs(ctx context.Context, tenantID string, ids []string) ([]menu.Item, error) {
	rows, err := r.pool.Query(ctx, selectMenuItemsSQL, tenantID, ids)
	if err != nil {
		return nil, errors.Wrap(err, "select menu items")
	}
	defer rows.Close()

	var out []menu.Item
	for rows.Next() {
		var item menu.Item
		if err := rows.Scan(&item.ID, &item.TenantID, &item.Name, &item.Price, &item.Category); err != nil {
			return nil, errors.Wrap(err, "scan menu item")
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate menu items")
	}
	return out, nil
}

// TenantRepository implements tenant.Repository backed by PostgreSQL.
type TenantRepository struct {
	pool *pgxpool.Pool
}

// NewTenantRepository returns a TenantRepository that uses the given pool.
func NewTenantRepository(pool *pgxpool.Pool) *TenantRepository {
	return &TenantRepository{pool: pool}
}

// Exists reports whether the tenant id is registered.
func (r *TenantRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tenants WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, errors.Wrapf(err, "check tenant %q", id)
	}
	return exists, nil
}

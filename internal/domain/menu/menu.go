// Package menu holds the tenant-scoped menu catalog the order flow
// prices against.
package menu

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested menu item does not exist.
var ErrNotFound = errors.New("menu item not found")

// Item is a menu entry. Soft-deleted items stay in storage but are
// excluded from lookups used by order creation.
type Item struct {
	ID        string
	TenantID  string
	Name      string
	Price     decimal.Decimal
	Category  string
	IsDeleted bool
}

// Repository defines read operations for the menu catalog, scoped to a
// tenant. GetByIDs omits soft-deleted items.
type Repository interface {
	GetByIDs(ctx context.Context, tenantID string, ids []string) ([]Item, error)
}

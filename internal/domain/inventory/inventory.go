// Package inventory tracks per-tenant stock levels and derives
// restocking alerts. Quantities only go down through deduction,
// clamped at zero.
package inventory

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when an inventory item does not exist.
var ErrNotFound = errors.New("inventory item not found")

// AlertLevel classifies how urgently an item needs restocking.
type AlertLevel string

const (
	AlertNone    AlertLevel = ""
	AlertWarning AlertLevel = "WARNING"
	AlertUrgent  AlertLevel = "URGENT"
)

// Item is one stocked ingredient or good, owned by a tenant. Orders
// reference it only softly through menu_item_id, so deductions tolerate
// menu items without a matching row.
type Item struct {
	ID           string          `json:"id"`
	TenantID     string          `json:"tenantId"`
	MenuItemID   string          `json:"menuItemId,omitempty"`
	Name         string          `json:"name"`
	Unit         string          `json:"unit"`
	Quantity     decimal.Decimal `json:"quantity"`
	ReorderLevel decimal.Decimal `json:"reorderLevel"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

var (
	half       = decimal.RequireFromString("0.5")
	oneAndHalf = decimal.RequireFromString("1.5")
)

// Alert derives the restocking level for the current quantity. Strictly
// below reorder level is URGENT; between half and one-and-a-half times
// the reorder level is WARNING. Alerts are computed, never stored.
func (i Item) Alert() AlertLevel {
	return AlertFor(i.Quantity, i.ReorderLevel)
}

// AlertFor classifies a quantity against a reorder level.
func AlertFor(quantity, reorderLevel decimal.Decimal) AlertLevel {
	if !reorderLevel.IsPositive() {
		return AlertNone
	}
	if quantity.LessThan(reorderLevel) {
		return AlertUrgent
	}
	if quantity.LessThanOrEqual(reorderLevel.Mul(oneAndHalf)) &&
		quantity.GreaterThanOrEqual(reorderLevel.Mul(half)) {
		return AlertWarning
	}
	return AlertNone
}

// Stats aggregates a tenant's stock position.
type Stats struct {
	TotalItems    int             `json:"totalItems"`
	TotalQuantity decimal.Decimal `json:"totalQuantity"`
	UrgentCount   int             `json:"urgentCount"`
	WarningCount  int             `json:"warningCount"`
	OutOfStock    int             `json:"outOfStock"`
}

// Repository persists inventory items.
type Repository interface {
	Create(ctx context.Context, item *Item) error
	Get(ctx context.Context, id string) (*Item, error)
	// GetByMenuItem resolves the soft link from an order line to stock.
	GetByMenuItem(ctx context.Context, tenantID, menuItemID string) (*Item, error)
	Update(ctx context.Context, item *Item) error
	Delete(ctx context.Context, id string) error
	ListByTenant(ctx context.Context, tenantID string) ([]Item, error)
}

// ProcessedEvents records consumed event identities so that redelivery
// of the same event is detected. MarkProcessed must be atomic: exactly
// one caller wins for a given (eventID, eventType) pair.
type ProcessedEvents interface {
	// MarkProcessed returns false when the pair was already recorded.
	MarkProcessed(ctx context.Context, eventID, eventType string) (bool, error)
}

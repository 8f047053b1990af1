package inventory

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tably/ordercore/internal/event"
)

// Service exposes stock management and the deduction operation used by
// the order-completed consumer.
type Service struct {
	items     Repository
	publisher event.Publisher

	lg  *zap.Logger
	now func() time.Time
}

// NewService creates an inventory Service.
func NewService(items Repository, publisher event.Publisher, lg *zap.Logger) *Service {
	return &Service{
		items:     items,
		publisher: publisher,
		lg:        lg,
		now:       time.Now,
	}
}

// Create registers a new stocked item.
func (s *Service) Create(ctx context.Context, item *Item) (*Item, error) {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	now := s.now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now

	if err := s.items.Create(ctx, item); err != nil {
		return nil, errors.Wrap(err, "create inventory item")
	}
	return item, nil
}

// Get loads one item.
func (s *Service) Get(ctx context.Context, id string) (*Item, error) {
	return s.items.Get(ctx, id)
}

// Update replaces the mutable fields of an item.
func (s *Service) Update(ctx context.Context, item *Item) (*Item, error) {
	item.UpdatedAt = s.now().UTC()
	if err := s.items.Update(ctx, item); err != nil {
		return nil, errors.Wrap(err, "update inventory item")
	}
	return item, nil
}

// Delete removes an item.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.items.Delete(ctx, id)
}

// List returns all of a tenant's items.
func (s *Service) List(ctx context.Context, tenantID string) ([]Item, error) {
	return s.items.ListByTenant(ctx, tenantID)
}

// Deduct removes quantity from an item's stock, clamped at zero, and
// returns the updated item. A deduction that lands in alert territory
// publishes a low-stock or out-of-stock event.
func (s *Service) Deduct(ctx context.Context, id string, quantity decimal.Decimal) (*Item, error) {
	if quantity.IsNegative() {
		return nil, errors.Errorf("negative deduction %s", quantity)
	}

	item, err := s.items.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	next := item.Quantity.Sub(quantity)
	if next.IsNegative() {
		next = decimal.Zero
	}
	item.Quantity = next
	item.UpdatedAt = s.now().UTC()

	if err := s.items.Update(ctx, item); err != nil {
		return nil, errors.Wrap(err, "update inventory item")
	}

	s.alertIfLow(ctx, item)
	return item, nil
}

// DeductForMenuItem deducts stock through the soft menu link. A menu
// item without a stock row is not an error: the link is eventually
// consistent and some menu items are not stock-tracked.
func (s *Service) DeductForMenuItem(ctx context.Context, tenantID, menuItemID string, quantity decimal.Decimal) (*Item, error) {
	item, err := s.items.GetByMenuItem(ctx, tenantID, menuItemID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s.Deduct(ctx, item.ID, quantity)
}

// ReorderAlerts lists the tenant's items that currently need attention,
// URGENT before WARNING.
func (s *Service) ReorderAlerts(ctx context.Context, tenantID string) ([]Item, error) {
	items, err := s.items.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	var urgent, warning []Item
	for _, item := range items {
		switch item.Alert() {
		case AlertUrgent:
			urgent = append(urgent, item)
		case AlertWarning:
			warning = append(warning, item)
		}
	}
	return append(urgent, warning...), nil
}

// StatsFor aggregates the tenant's stock position.
func (s *Service) StatsFor(ctx context.Context, tenantID string) (Stats, error) {
	items, err := s.items.ListByTenant(ctx, tenantID)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{TotalQuantity: decimal.Zero}
	for _, item := range items {
		stats.TotalItems++
		stats.TotalQuantity = stats.TotalQuantity.Add(item.Quantity)
		if item.Quantity.IsZero() {
			stats.OutOfStock++
		}
		switch item.Alert() {
		case AlertUrgent:
			stats.UrgentCount++
		case AlertWarning:
			stats.WarningCount++
		}
	}
	return stats, nil
}

// alertIfLow publishes a stock alert for the item's current level.
// Publish failures are logged only: alerts are derived state and the
// next deduction or alert listing will surface the condition again.
func (s *Service) alertIfLow(ctx context.Context, item *Item) {
	level := item.Alert()
	if level == AlertNone {
		return
	}

	topic := event.TopicInventoryLowStock
	if item.Quantity.IsZero() {
		topic = event.TopicInventoryOutStock
	}

	err := s.publisher.Publish(ctx, topic, item.TenantID+":"+item.ID, event.StockAlert{
		ItemID:          item.ID,
		ItemName:        item.Name,
		CurrentQuantity: item.Quantity,
		MinThreshold:    item.ReorderLevel,
		TenantID:        item.TenantID,
	})
	if err != nil {
		s.lg.Error("Failed to publish stock alert",
			zap.String("topic", topic),
			zap.String("item_id", item.ID),
			zap.Error(err),
		)
		return
	}

	s.lg.Warn("Stock alert",
		zap.String("item_id", item.ID),
		zap.String("item", item.Name),
		zap.String("level", string(level)),
		zap.String("quantity", item.Quantity.String()),
		zap.String("reorder_level", item.ReorderLevel.String()),
	)
}

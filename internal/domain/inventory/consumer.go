package inventory

import (
	"context"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tably/ordercore/internal/event"
)

// expected distinct events between restarts; the filter only serves as
// a cheap first check, the processed-events store is authoritative.
const (
	bloomCapacity      = 1_000_000
	bloomFalsePositive = 0.001
)

// OrderCompletedHandler deducts stock when orders complete. Delivery is
// at-least-once, so each (order_id, event_type) pair is applied exactly
// once: a bloom filter short-circuits the common replay, and the
// processed-events store settles the rest.
type OrderCompletedHandler struct {
	svc       *Service
	processed ProcessedEvents
	lg        *zap.Logger

	mu   sync.Mutex
	seen *bloom.BloomFilter
}

// NewOrderCompletedHandler creates the order.completed handler.
func NewOrderCompletedHandler(svc *Service, processed ProcessedEvents, lg *zap.Logger) *OrderCompletedHandler {
	return &OrderCompletedHandler{
		svc:       svc,
		processed: processed,
		lg:        lg,
		seen:      bloom.NewWithEstimates(bloomCapacity, bloomFalsePositive),
	}
}

// Handle processes one order.completed message. Errors are returned for
// transient failures only; malformed payloads and replays are logged
// and dropped so the consumer loop keeps moving.
func (h *OrderCompletedHandler) Handle(ctx context.Context, msg event.Message) error {
	payload, err := event.DecodeOrderCompleted(msg.Value)
	if err != nil {
		h.lg.Error("Dropping malformed order.completed payload",
			zap.String("key", msg.Key),
			zap.Error(err),
		)
		return nil
	}

	// Cancelled orders never reserved stock for real; nothing to deduct.
	if payload.Status != "COMPLETED" {
		return nil
	}
	if len(payload.Items) == 0 {
		return nil
	}

	idempotencyKey := payload.OrderID + ":" + msg.Topic

	// The filter has no false negatives within this process, so a hit
	// is almost always a redelivered message. The store stays
	// authoritative either way: false positives and prior-run history
	// are settled by the atomic claim below.
	h.mu.Lock()
	likelyReplay := h.seen.TestString(idempotencyKey)
	h.seen.AddString(idempotencyKey)
	h.mu.Unlock()

	fresh, err := h.processed.MarkProcessed(ctx, payload.OrderID, msg.Topic)
	if err != nil {
		return errors.Wrap(err, "mark processed event")
	}
	if !fresh {
		if likelyReplay {
			h.lg.Debug("Skipping replayed order.completed",
				zap.String("order_id", payload.OrderID),
			)
		}
		return nil
	}

	// The claim above is kept even when a deduction below fails:
	// retrying a half-applied event would double-deduct the lines that
	// already went through. Failed lines are logged for operator
	// reconciliation instead.
	for _, line := range payload.Items {
		item, err := h.svc.DeductForMenuItem(ctx, payload.TenantID, line.InventoryItemID, decimal.NewFromInt(int64(line.Quantity)))
		if err != nil {
			h.lg.Error("Stock deduction failed",
				zap.String("order_id", payload.OrderID),
				zap.String("menu_item_id", line.InventoryItemID),
				zap.Error(err),
			)
			continue
		}
		if item == nil {
			h.lg.Debug("No stock row for menu item",
				zap.String("tenant_id", payload.TenantID),
				zap.String("menu_item_id", line.InventoryItemID),
			)
			continue
		}
		h.lg.Info("Stock deducted",
			zap.String("order_id", payload.OrderID),
			zap.String("item_id", item.ID),
			zap.Int("quantity", line.Quantity),
			zap.String("remaining", item.Quantity.String()),
		)
	}
	return nil
}

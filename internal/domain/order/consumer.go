package order

import (
	"context"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/tably/ordercore/internal/event"
)

// PaymentCompletedHandler advances orders when their payment completes.
// It is the consumer half of the orchestrator: payment.completed is the
// trigger that moves SERVED or AWAITING_CASH_PAYMENT orders to
// COMPLETED.
type PaymentCompletedHandler struct {
	service *Service
	lg      *zap.Logger
}

// NewPaymentCompletedHandler creates the handler.
func NewPaymentCompletedHandler(service *Service, lg *zap.Logger) *PaymentCompletedHandler {
	return &PaymentCompletedHandler{service: service, lg: lg}
}

// Handle processes one payment.completed message. Replays and payments
// arriving while the order is not yet payable are swallowed after
// logging: delivery is at-least-once, and a rejected transition here
// simply means the persisted order already reflects, or does not yet
// allow, completion.
func (h *PaymentCompletedHandler) Handle(ctx context.Context, msg event.Message) error {
	payload, err := event.DecodePaymentEvent(msg.Value)
	if err != nil {
		return errors.Wrap(err, "decode payment.completed")
	}

	_, err = h.service.UpdateStatus(ctx, payload.OrderID, payload.TenantID, StatusCompleted, "")
	if err == nil {
		return nil
	}

	var invalid *InvalidTransitionError
	if errors.As(err, &invalid) {
		h.lg.Info("Skipping payment completion for order not in a payable state",
			zap.String("order_id", payload.OrderID),
			zap.String("from", string(invalid.From)),
		)
		return nil
	}
	if errors.Is(err, ErrNotFound) {
		h.lg.Warn("Payment completed for unknown order",
			zap.String("order_id", payload.OrderID),
			zap.String("tenant_id", payload.TenantID),
		)
		return nil
	}
	return errors.Wrapf(err, "complete order %s", payload.OrderID)
}

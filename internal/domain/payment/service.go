package payment

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tably/ordercore/internal/domain/order"
	"github.com/tably/ordercore/internal/event"
)

// Service owns payment creation and the cash/Razorpay confirmation
// flows. Reaching COMPLETED always publishes payment.completed, which
// the order orchestrator and inventory consumer react to.
type Service struct {
	payments  Repository
	orders    order.Repository
	gateway   *RazorpayGateway
	publisher event.Publisher

	lg  *zap.Logger
	now func() time.Time
}

// NewService creates a payment Service.
func NewService(
	payments Repository,
	orders order.Repository,
	gateway *RazorpayGateway,
	publisher event.Publisher,
	lg *zap.Logger,
) *Service {
	return &Service{
		payments:  payments,
		orders:    orders,
		gateway:   gateway,
		publisher: publisher,
		lg:        lg,
		now:       time.Now,
	}
}

// Create opens a PENDING payment for an order. It is idempotent per
// order: a second create returns the existing payment instead of a
// duplicate. Razorpay payments also get a gateway order reference.
func (s *Service) Create(ctx context.Context, orderID, tenantID string, amount decimal.Decimal, method Method) (*Payment, error) {
	if existing, err := s.payments.GetByOrder(ctx, orderID); err == nil {
		return existing, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, errors.Wrap(err, "lookup payment")
	}

	now := s.now().UTC()
	p := &Payment{
		ID:        uuid.New().String(),
		OrderID:   orderID,
		TenantID:  tenantID,
		Amount:    amount,
		Method:    method,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if method == MethodRazorpay {
		gwOrder, err := s.gateway.CreateOrder(amount, orderID)
		if err != nil {
			return nil, errors.Wrap(err, "create gateway order")
		}
		p.RazorpayOrderID = gwOrder.ID
	}

	if err := s.payments.Create(ctx, p); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			// Lost a creation race; the winner's row is the payment.
			return s.payments.GetByOrder(ctx, orderID)
		}
		return nil, errors.Wrap(err, "create payment")
	}

	s.publish(ctx, event.TopicPaymentCreated, p, "")

	s.lg.Info("Payment created",
		zap.String("payment_id", p.ID),
		zap.String("order_id", orderID),
		zap.String("method", string(method)),
	)
	return p, nil
}

// ConfirmCash settles a cash payment: change_given is the received
// amount over the price, floored at zero. The payment row is created on
// the fly when the order never went through Create. Confirming an
// already-completed payment is a no-op returning the existing row.
func (s *Service) ConfirmCash(ctx context.Context, orderID, tenantID string, amountReceived decimal.Decimal, confirmedBy string) (*Payment, error) {
	p, err := s.payments.GetByOrder(ctx, orderID)
	if errors.Is(err, ErrNotFound) {
		o, orderErr := s.orders.Get(ctx, orderID)
		if orderErr != nil {
			return nil, orderErr
		}
		if o.TenantID != tenantID {
			return nil, &order.TenantMismatchError{OrderID: orderID, TenantID: tenantID}
		}
		p, err = s.Create(ctx, orderID, tenantID, o.Total, MethodCash)
	}
	if err != nil {
		return nil, err
	}
	if p.TenantID != tenantID {
		return nil, &order.TenantMismatchError{OrderID: orderID, TenantID: tenantID}
	}

	if p.Status == StatusCompleted {
		return p, nil
	}
	if p.Status.Terminal() {
		return nil, errors.Wrapf(ErrFinal, "payment %s is %s", p.ID, p.Status)
	}

	change := amountReceived.Sub(p.Amount)
	if change.IsNegative() {
		change = decimal.Zero
	}

	now := s.now().UTC()
	p.Status = StatusCompleted
	p.AmountReceived = amountReceived
	p.ChangeGiven = change
	p.ConfirmedBy = confirmedBy
	p.ConfirmedAt = &now
	p.UpdatedAt = now

	if err := s.payments.Update(ctx, p); err != nil {
		return nil, errors.Wrap(err, "update payment")
	}

	s.publish(ctx, event.TopicPaymentCompleted, p, "")

	s.lg.Info("Cash payment confirmed",
		zap.String("payment_id", p.ID),
		zap.String("order_id", orderID),
		zap.String("change", change.String()),
	)
	return p, nil
}

// VerifyRazorpay checks the gateway signature for a checkout callback.
// A valid signature completes the payment and publishes
// payment.completed; an invalid one fails it, publishes payment.failed,
// and returns ErrBadSignature.
func (s *Service) VerifyRazorpay(ctx context.Context, orderID, tenantID, razorpayOrderID, razorpayPaymentID, signature string) (*Payment, error) {
	p, err := s.payments.GetByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if p.TenantID != tenantID {
		return nil, &order.TenantMismatchError{OrderID: orderID, TenantID: tenantID}
	}

	if p.Status == StatusCompleted {
		return p, nil
	}
	if p.Status.Terminal() {
		return nil, errors.Wrapf(ErrFinal, "payment %s is %s", p.ID, p.Status)
	}

	now := s.now().UTC()
	p.RazorpayOrderID = razorpayOrderID
	p.RazorpayPaymentID = razorpayPaymentID
	p.UpdatedAt = now

	if !s.gateway.VerifySignature(razorpayOrderID, razorpayPaymentID, signature) {
		p.Status = StatusFailed
		if err := s.payments.Update(ctx, p); err != nil {
			return nil, errors.Wrap(err, "update payment")
		}
		s.publish(ctx, event.TopicPaymentFailed, p, "signature mismatch")
		return nil, ErrBadSignature
	}

	p.Status = StatusCompleted
	p.ConfirmedAt = &now
	if err := s.payments.Update(ctx, p); err != nil {
		return nil, errors.Wrap(err, "update payment")
	}

	s.publish(ctx, event.TopicPaymentCompleted, p, "")

	s.lg.Info("Razorpay payment verified",
		zap.String("payment_id", p.ID),
		zap.String("order_id", orderID),
	)
	return p, nil
}

// Cancel voids a pending payment, for example when its order is
// cancelled before settlement.
func (s *Service) Cancel(ctx context.Context, orderID string) (*Payment, error) {
	p, err := s.payments.GetByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if p.Status.Terminal() {
		return nil, errors.Wrapf(ErrFinal, "payment %s is %s", p.ID, p.Status)
	}

	p.Status = StatusCancelled
	p.UpdatedAt = s.now().UTC()
	if err := s.payments.Update(ctx, p); err != nil {
		return nil, errors.Wrap(err, "update payment")
	}
	return p, nil
}

// Get loads a payment by id.
func (s *Service) Get(ctx context.Context, id string) (*Payment, error) {
	return s.payments.Get(ctx, id)
}

// GetByOrder loads the payment for an order.
func (s *Service) GetByOrder(ctx context.Context, orderID string) (*Payment, error) {
	return s.payments.GetByOrder(ctx, orderID)
}

// List returns a page of payments, newest first, and the total count.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Payment, int, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.payments.List(ctx, limit, offset)
}

// StatsBetween aggregates completed payments in [from, to].
func (s *Service) StatsBetween(ctx context.Context, from, to time.Time) (Stats, error) {
	payments, err := s.payments.CompletedBetween(ctx, from, to)
	if err != nil {
		return Stats{}, errors.Wrap(err, "list completed payments")
	}

	stats := Stats{
		TotalRevenue: decimal.Zero,
		ByMethod:     make(map[Method]int),
	}
	for _, p := range payments {
		stats.TotalPayments++
		stats.TotalRevenue = stats.TotalRevenue.Add(p.Amount)
		stats.ByMethod[p.Method]++
	}
	return stats, nil
}

// publish sends a payment event; failures are logged, not returned,
// because the payment row is already the source of truth and delivery
// is at-least-once.
func (s *Service) publish(ctx context.Context, topic string, p *Payment, reason string) {
	err := s.publisher.Publish(ctx, topic, event.Key(p.TenantID, p.OrderID), event.PaymentEvent{
		PaymentID:         p.ID,
		OrderID:           p.OrderID,
		TenantID:          p.TenantID,
		Amount:            p.Amount,
		Method:            string(p.Method),
		RazorpayOrderID:   p.RazorpayOrderID,
		RazorpayPaymentID: p.RazorpayPaymentID,
		Reason:            reason,
		Timestamp:         s.now().UTC(),
	})
	if err != nil {
		s.lg.Error("Failed to publish payment event",
			zap.String("topic", topic),
			zap.String("payment_id", p.ID),
			zap.String("order_id", p.OrderID),
			zap.Error(err),
		)
	}
}

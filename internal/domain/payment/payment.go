// Package payment owns payment records and the confirmation flows that
// emit payment.completed, the trigger for order completion and
// inventory deduction.
package payment

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors for payment lookup and state checks.
var (
	ErrNotFound      = errors.New("payment not found")
	ErrAlreadyExists = errors.New("payment already exists for order")
	ErrFinal         = errors.New("payment is in a terminal state")
	ErrBadSignature  = errors.New("razorpay signature verification failed")
)

// Status is a payment lifecycle state. The machine is flat: PENDING may
// move to any terminal state, terminal states never move again.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	StatusCancelled Status = "CANCELLED"
)

// Terminal reports whether the status permits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Method is how a payment is collected.
type Method string

const (
	MethodRazorpay Method = "RAZORPAY"
	MethodCash     Method = "CASH"
)

// ParseMethod validates a client-supplied payment method.
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case MethodRazorpay, MethodCash:
		return Method(s), nil
	}
	return "", errors.Errorf("unknown payment method %q", s)
}

// Payment is one payment attempt for an order. Each order has at most
// one payment row (order_id is unique).
type Payment struct {
	ID       string
	OrderID  string
	TenantID string
	Amount   decimal.Decimal
	Method   Method
	Status   Status

	// Gateway correlation, set for Razorpay payments.
	RazorpayOrderID   string
	RazorpayPaymentID string

	// Cash reconciliation.
	AmountReceived decimal.Decimal
	ChangeGiven    decimal.Decimal
	ConfirmedBy    string
	ConfirmedAt    *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Stats aggregates completed payments over a date range.
type Stats struct {
	TotalPayments int             `json:"totalPayments"`
	TotalRevenue  decimal.Decimal `json:"totalRevenue"`
	ByMethod      map[Method]int  `json:"byMethod"`
}

// Repository defines persistence operations for payments. Create must
// enforce the order_id unique constraint and return ErrAlreadyExists on
// a second payment for the same order.
type Repository interface {
	Create(ctx context.Context, p *Payment) error
	Get(ctx context.Context, id string) (*Payment, error)
	GetByOrder(ctx context.Context, orderID string) (*Payment, error)
	Update(ctx context.Context, p *Payment) error
	List(ctx context.Context, limit, offset int) ([]Payment, int, error)
	CompletedBetween(ctx context.Context, from, to time.Time) ([]Payment, error)
}

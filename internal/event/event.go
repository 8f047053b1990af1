// Package event defines the domain event topics, payload shapes, and the
// publisher/consumer contracts that connect the order, payment, and
// inventory services.
package event

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Topic names. Events for the same order are keyed by tenantId:orderId so
// partitioned transports deliver them in emission order.
const (
	TopicOrderCreated       = "order.created"
	TopicOrderStatusChanged = "order.status_changed"
	TopicOrderCompleted     = "order.completed"
	TopicInventoryReserved  = "inventory.reserved"
	TopicPaymentRequested   = "payment.requested"
	TopicPaymentCreated     = "payment.created"
	TopicPaymentCompleted   = "payment.completed"
	TopicPaymentFailed      = "payment.failed"
	TopicInventoryLowStock  = "inventory.low_stock"
	TopicInventoryOutStock  = "inventory.out_of_stock"
)

// Key builds the ordering key for an order-scoped event.
func Key(tenantID, orderID string) string {
	return tenantID + ":" + orderID
}

// Publisher publishes a payload to a topic under an ordering key.
// Implementations must preserve per-key ordering; they are not required
// to preserve cross-key ordering.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, payload any) error
}

// Message is a single consumed event.
type Message struct {
	Topic string
	Key   string
	Value []byte
}

// Handler processes one consumed message. Returning an error signals a
// processing failure for that message only; the consumer loop continues.
type Handler func(ctx context.Context, msg Message) error

// Consumer delivers messages from a set of topics to a handler with
// consumer-group semantics: each group sees each message once.
type Consumer interface {
	Consume(ctx context.Context, topics []string, group string, handler Handler) error
}

// OrderCreated is published once per successfully persisted order.
type OrderCreated struct {
	OrderID     string          `json:"orderId"`
	TenantID    string          `json:"tenantId"`
	TableNumber int             `json:"tableNumber"`
	CustomerID  string          `json:"customerId"`
	Total       decimal.Decimal `json:"total"`
	ItemCount   int             `json:"itemCount"`
	Timestamp   time.Time       `json:"timestamp"`
}

// OrderStatusChanged is published on every successful status transition.
type OrderStatusChanged struct {
	OrderID   string    `json:"orderId"`
	TenantID  string    `json:"tenantId"`
	OldStatus string    `json:"oldStatus"`
	NewStatus string    `json:"newStatus"`
	Notes     string    `json:"notes,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderCompleted is published when an order lands on a terminal status
// (COMPLETED or CANCELLED).
type OrderCompleted struct {
	OrderID     string          `json:"orderId"`
	TenantID    string          `json:"tenantId"`
	Status      string          `json:"status"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Items       []ReservedItem  `json:"items,omitempty"`
	Timestamp   time.Time       `json:"timestamp"`
}

// ReservedItem is one line of an inventory reservation.
type ReservedItem struct {
	InventoryItemID string `json:"inventoryItemId"`
	Quantity        int    `json:"quantity"`
}

// InventoryReserved is published alongside order creation, one entry per
// order line.
type InventoryReserved struct {
	OrderID   string         `json:"orderId"`
	TenantID  string         `json:"tenantId"`
	Items     []ReservedItem `json:"items"`
	Timestamp time.Time      `json:"timestamp"`
}

// PaymentEvent covers payment.requested, payment.created,
// payment.completed, and payment.failed.
type PaymentEvent struct {
	PaymentID         string          `json:"paymentId,omitempty"`
	OrderID           string          `json:"orderId"`
	TenantID          string          `json:"tenantId"`
	Amount            decimal.Decimal `json:"amount"`
	Method            string          `json:"method"`
	RazorpayOrderID   string          `json:"razorpayOrderId,omitempty"`
	RazorpayPaymentID string          `json:"razorpayPaymentId,omitempty"`
	Reason            string          `json:"reason,omitempty"`
	Timestamp         time.Time       `json:"timestamp"`
}

// StockAlert covers inventory.low_stock and inventory.out_of_stock.
type StockAlert struct {
	ItemID          string          `json:"itemId"`
	ItemName        string          `json:"itemName"`
	CurrentQuantity decimal.Decimal `json:"currentQuantity"`
	MinThreshold    decimal.Decimal `json:"minThreshold"`
	TenantID        string          `json:"tenantId"`
}

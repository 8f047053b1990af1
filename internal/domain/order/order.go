// Package order owns the order lifecycle: creation, pricing, the status
// state machine, and the lifecycle events other services react to.
package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors for order validation and lookup.
var (
	ErrNotFound        = errors.New("order not found")
	ErrEmptyLines      = errors.New("order lines required")
	ErrUnknownTenant   = errors.New("unknown tenant")
	ErrUnknownCustomer = errors.New("unknown customer")
)

// InvalidQuantityError indicates a line with a non-positive quantity.
type InvalidQuantityError struct {
	MenuItemID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for menu item %s", e.MenuItemID)
}

// UnknownMenuItemError indicates a referenced menu item that does not
// exist under the order's tenant (or is soft-deleted).
type UnknownMenuItemError struct {
	MenuItemID string
}

func (e *UnknownMenuItemError) Error() string {
	return fmt.Sprintf("menu item %s not found", e.MenuItemID)
}

// TenantMismatchError indicates a cross-tenant access attempt.
type TenantMismatchError struct {
	OrderID  string
	TenantID string
}

func (e *TenantMismatchError) Error() string {
	return fmt.Sprintf("order %s does not belong to tenant %s", e.OrderID, e.TenantID)
}

// TaxRate is the fixed tax fraction applied to every order subtotal.
var TaxRate = decimal.RequireFromString("0.18")

// Line is one immutable order line. UnitPrice is frozen at order time so
// later menu price changes never reprice existing orders.
type Line struct {
	ID              string
	MenuItemID      string
	Quantity        int
	UnitPrice       decimal.Decimal
	Subtotal        decimal.Decimal
	SpecialRequests string
}

// Order is the aggregate the state machine operates on. Monetary fields
// are always recomputed server-side; Total is never accepted from a
// client.
type Order struct {
	ID          string
	TenantID    string
	TableNumber int
	CustomerID  string
	Status      Status
	Lines       []Line

	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	DiscountRuleID string
	DiscountReason string
	TaxAmount      decimal.Decimal
	DeliveryCharge decimal.Decimal
	Total          decimal.Decimal

	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ItemCount returns the number of order lines (not the summed quantity).
func (o *Order) ItemCount() int {
	return len(o.Lines)
}

// ListFilter narrows and pages ListOrders results.
type ListFilter struct {
	Status      Status
	TableNumber int
	CustomerID  string
	DateFrom    time.Time
	DateTo      time.Time
	Page        int
	Limit       int
}

// Repository defines persistence operations for orders. Create persists
// the order and all its lines as one atomic unit: either every line is
// visible or none are.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	UpdateStatus(ctx context.Context, id string, status Status, notes string) error
	List(ctx context.Context, tenantID string, f ListFilter) ([]Order, int, error)
}

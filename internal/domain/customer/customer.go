// Package customer holds customer identities, including auto-created
// walk-in customers for anonymous orders.
package customer

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a referenced customer does not exist.
var ErrNotFound = errors.New("customer not found")

// Type classifies a customer from their order history.
type Type string

const (
	TypeNew    Type = "new"
	TypeRepeat Type = "repeat"
	TypeVIP    Type = "vip"
)

// Customer is a known or walk-in customer.
type Customer struct {
	ID          string
	PhoneNumber string
	Name        string
	Type        Type
	CreatedAt   time.Time
}

// Repository defines persistence operations for customers.
type Repository interface {
	Get(ctx context.Context, id string) (*Customer, error)
	Create(ctx context.Context, c *Customer) error
}

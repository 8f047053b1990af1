// Package tenant holds the restaurant-account entity every other record
// is scoped by.
package tenant

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a referenced tenant does not exist.
var ErrNotFound = errors.New("tenant not found")

// Tenant is a restaurant account.
type Tenant struct {
	ID   string
	Name string
}

// Repository defines read operations for tenants.
type Repository interface {
	Exists(ctx context.Context, id string) (bool, error)
}

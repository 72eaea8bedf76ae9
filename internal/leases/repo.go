package leases

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a lease does not exist.
var ErrNotFound = errors.New("lease not found")

// Repo defines persistence operations for leases.
type Repo interface {
	Create(ctx context.Context, lease Lease) error
	GetByID(ctx context.Context, id string) (Lease, error)
}

package residents

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a resident does not exist.
var ErrNotFound = errors.New("resident not found")

// Repo defines persistence operations for residents.
type Repo interface {
	Create(ctx context.Context, res Resident) error
	GetByID(ctx context.Context, id string) (Resident, error)
	ListByLease(ctx context.Context, leaseID string) ([]Resident, error)
	Update(ctx context.Context, res Resident) error
}

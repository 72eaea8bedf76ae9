package verifications

import "context"

// Repo defines persistence operations for verifications.
type Repo interface {
	// Create inserts a new verification. Backends that can enforce the
	// single-active-per-lease invariant return ErrLeaseConflict when a
	// concurrent start already won.
	Create(ctx context.Context, v Verification) error
	GetByID(ctx context.Context, id string) (Verification, error)
	// GetActiveByLease returns the lease's IN_PROGRESS verification, or
	// ErrNotFound when the lease has none.
	GetActiveByLease(ctx context.Context, leaseID string) (Verification, error)
	// CountByLease reports how many verifications the lease has had; the
	// next lease-year ordinal is count+1.
	CountByLease(ctx context.Context, leaseID string) (int, error)
	Update(ctx context.Context, v Verification) error
	// Supersede finalizes the stale verification with its closing total and
	// creates the replacement, atomically where the backend allows. A stale
	// row that a concurrent caller already finalized is fine; the
	// replacement is still created.
	Supersede(ctx context.Context, staleID string, finalTotal *float64, next Verification) error
}

package leases

import (
	"context"
	"sync"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]Lease
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string]Lease)}
}

// Create stores a lease.
func (r *MemoryRepo) Create(ctx context.Context, lease Lease) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[lease.ID] = lease
	return nil
}

// GetByID returns a lease by id.
func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Lease, error) {
	if err := ctx.Err(); err != nil {
		return Lease{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	lease, ok := r.data[id]
	if !ok {
		return Lease{}, ErrNotFound
	}
	return lease, nil
}

var _ Repo = (*MemoryRepo)(nil)

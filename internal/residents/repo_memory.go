package residents

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]Resident
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string]Resident)}
}

// Create stores a resident.
func (r *MemoryRepo) Create(ctx context.Context, res Resident) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[res.ID] = res
	return nil
}

// GetByID returns a resident by id.
func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Resident, error) {
	if err := ctx.Err(); err != nil {
		return Resident{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.data[id]
	if !ok {
		return Resident{}, ErrNotFound
	}
	return res, nil
}

// ListByLease returns the residents on a lease, oldest first.
func (r *MemoryRepo) ListByLease(ctx context.Context, leaseID string) ([]Resident, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Resident
	for _, res := range r.data {
		if res.LeaseID == leaseID {
			out = append(out, res)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Update replaces a resident's mutable fields.
func (r *MemoryRepo) Update(ctx context.Context, res Resident) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.data[res.ID]
	if !ok {
		return ErrNotFound
	}
	res.LeaseID = existing.LeaseID
	res.CreatedAt = existing.CreatedAt
	res.UpdatedAt = time.Now().UTC()
	r.data[res.ID] = res
	return nil
}

var _ Repo = (*MemoryRepo)(nil)

package verifications

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repo for tests and local development. It
// enforces the single-active-per-lease invariant under its own lock, the
// way the partial unique index does in SQL.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]Verification
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string]Verification)}
}

var _ Repo = (*MemoryRepo)(nil)

func (m *MemoryRepo) Create(ctx context.Context, v Verification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insert(v)
}

func (m *MemoryRepo) GetByID(ctx context.Context, id string) (Verification, error) {
	if err := ctx.Err(); err != nil {
		return Verification{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[id]
	if !ok {
		return Verification{}, ErrNotFound
	}
	return v, nil
}

func (m *MemoryRepo) GetActiveByLease(ctx context.Context, leaseID string) (Verification, error) {
	if err := ctx.Err(); err != nil {
		return Verification{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, v := range m.data {
		if v.LeaseID == leaseID && v.Status == StatusInProgress {
			return v, nil
		}
	}
	return Verification{}, ErrNotFound
}

func (m *MemoryRepo) CountByLease(ctx context.Context, leaseID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, v := range m.data {
		if v.LeaseID == leaseID {
			count++
		}
	}
	return count, nil
}

func (m *MemoryRepo) Update(ctx context.Context, v Verification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.data[v.ID]
	if !ok {
		return ErrNotFound
	}
	v.LeaseID = existing.LeaseID
	v.CreatedAt = existing.CreatedAt
	v.UpdatedAt = time.Now().UTC()
	m.data[v.ID] = v
	return nil
}

func (m *MemoryRepo) Supersede(ctx context.Context, staleID string, finalTotal *float64, next Verification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if stale, ok := m.data[staleID]; ok && stale.Status == StatusInProgress {
		now := time.Now().UTC()
		stale.Status = StatusFinalized
		stale.CalculatedVerifiedIncome = finalTotal
		stale.FinalizedAt = &now
		stale.UpdatedAt = now
		m.data[staleID] = stale
	}
	return m.insert(next)
}

// insert assumes the write lock is held.
func (m *MemoryRepo) insert(v Verification) error {
	if v.Status == StatusInProgress {
		for _, existing := range m.data {
			if existing.ID != v.ID && existing.LeaseID == v.LeaseID && existing.Status == StatusInProgress {
				return ErrLeaseConflict
			}
		}
	}
	m.data[v.ID] = v
	return nil
}

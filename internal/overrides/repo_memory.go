package overrides

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]OverrideRequest
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string]OverrideRequest)}
}

// Create stores an override request.
func (r *MemoryRepo) Create(ctx context.Context, req OverrideRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[req.ID] = req
	return nil
}

// GetByID returns an override request by id.
func (r *MemoryRepo) GetByID(ctx context.Context, id string) (OverrideRequest, error) {
	if err := ctx.Err(); err != nil {
		return OverrideRequest{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	req, ok := r.data[id]
	if !ok {
		return OverrideRequest{}, ErrNotFound
	}
	return req, nil
}

// List returns override requests, optionally filtered by status, newest first.
func (r *MemoryRepo) List(ctx context.Context, status string) ([]OverrideRequest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []OverrideRequest
	for _, req := range r.data {
		if status != "" && req.Status != status {
			continue
		}
		out = append(out, req)
	}
	sortNewestFirst(out)
	return out, nil
}

// ListByVerification returns every override request attached to a verification.
func (r *MemoryRepo) ListByVerification(ctx context.Context, verificationID string) ([]OverrideRequest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []OverrideRequest
	for _, req := range r.data {
		if req.VerificationID != nil && *req.VerificationID == verificationID {
			out = append(out, req)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

// HasPendingForDocument reports whether a document has an unreviewed request.
func (r *MemoryRepo) HasPendingForDocument(ctx context.Context, documentID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, req := range r.data {
		if req.Status == StatusPending && req.DocumentID != nil && *req.DocumentID == documentID {
			return true, nil
		}
	}
	return false, nil
}

// Update replaces an override request's mutable fields.
func (r *MemoryRepo) Update(ctx context.Context, req OverrideRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.data[req.ID]
	if !ok {
		return ErrNotFound
	}
	req.CreatedAt = existing.CreatedAt
	req.UpdatedAt = time.Now().UTC()
	r.data[req.ID] = req
	return nil
}

func sortNewestFirst(reqs []OverrideRequest) {
	sort.Slice(reqs, func(i, j int) bool {
		if reqs[i].CreatedAt.Equal(reqs[j].CreatedAt) {
			return reqs[i].ID < reqs[j].ID
		}
		return reqs[i].CreatedAt.After(reqs[j].CreatedAt)
	})
}

var _ Repo = (*MemoryRepo)(nil)

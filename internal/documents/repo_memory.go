package documents

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repo for tests and local development.
type MemoryRepo struct {
	mu   sync.RWMutex
	docs map[string]Document
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{docs: make(map[string]Document)}
}

var _ Repo = (*MemoryRepo)(nil)

func (m *MemoryRepo) Create(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[doc.ID] = doc
	return nil
}

func (m *MemoryRepo) GetByID(ctx context.Context, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return doc, nil
}

func (m *MemoryRepo) ListByVerification(ctx context.Context, verificationID string) ([]Document, error) {
	return m.list(ctx, func(d Document) bool {
		return d.VerificationID == verificationID && !d.Deleted()
	})
}

func (m *MemoryRepo) ListForDedupe(ctx context.Context, residentID, documentType string) ([]Document, error) {
	return m.list(ctx, func(d Document) bool {
		if d.ResidentID != residentID || d.DocumentType != documentType || d.Deleted() {
			return false
		}
		return d.Status == StatusCompleted || d.Status == StatusNeedsReview
	})
}

func (m *MemoryRepo) ListCompletedByResident(ctx context.Context, residentID string) ([]Document, error) {
	return m.list(ctx, func(d Document) bool {
		return d.ResidentID == residentID && d.Status == StatusCompleted && !d.Deleted()
	})
}

func (m *MemoryRepo) ListNeedsReviewByResident(ctx context.Context, residentID string) ([]Document, error) {
	return m.list(ctx, func(d Document) bool {
		return d.ResidentID == residentID && d.Status == StatusNeedsReview && !d.Deleted()
	})
}

func (m *MemoryRepo) MarkNeedsReview(ctx context.Context, id, reason, errorCode string, completedAt time.Time) (bool, error) {
	return m.claim(ctx, id, func(d *Document) {
		d.Status = StatusNeedsReview
		d.ReviewReason = reason
		d.ErrorCode = errorCode
		d.CompletedAt = &completedAt
	})
}

func (m *MemoryRepo) MarkDuplicate(ctx context.Context, id, duplicateOf, reason string, completedAt time.Time) (bool, error) {
	return m.claim(ctx, id, func(d *Document) {
		d.DuplicateOf = duplicateOf
		d.ReviewReason = reason
		d.ErrorCode = ErrorCodeDuplicate
		d.CompletedAt = &completedAt
		d.DeletedAt = &completedAt
	})
}

func (m *MemoryRepo) ListStuckProcessing(ctx context.Context, olderThan time.Time) ([]Document, error) {
	return m.list(ctx, func(d Document) bool {
		return d.Status == StatusProcessing && !d.Deleted() && d.CreatedAt.Before(olderThan)
	})
}

func (m *MemoryRepo) ReclaimStuck(ctx context.Context, id, reason string, completedAt time.Time) (bool, error) {
	return m.MarkNeedsReview(ctx, id, reason, ErrorCodeTimeout, completedAt)
}

// ApplyCompletion overwrites a document with its completed state. Used by the
// in-memory outcome committer, which has no transaction to hide behind. A
// document that already completed or was deleted is left alone, matching the
// committer contract.
func (m *MemoryRepo) ApplyCompletion(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.docs[doc.ID]
	if !ok {
		return ErrNotFound
	}
	if existing.Status == StatusCompleted || existing.Deleted() {
		return nil
	}
	doc.UpdatedAt = time.Now().UTC()
	m.docs[doc.ID] = doc
	return nil
}

// ApplyDeletion soft-deletes a document and returns its prior state.
func (m *MemoryRepo) ApplyDeletion(ctx context.Context, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok || doc.Deleted() {
		return Document{}, ErrNotFound
	}
	now := time.Now().UTC()
	doc.DeletedAt = &now
	doc.UpdatedAt = now
	m.docs[id] = doc
	return doc, nil
}

// claim applies mutate only while the document is still PROCESSING and not
// deleted, mirroring the guarded UPDATE in the SQL repo.
func (m *MemoryRepo) claim(ctx context.Context, id string, mutate func(*Document)) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return false, ErrNotFound
	}
	if doc.Status != StatusProcessing || doc.Deleted() {
		return false, nil
	}
	mutate(&doc)
	doc.UpdatedAt = time.Now().UTC()
	m.docs[id] = doc
	return true, nil
}

func (m *MemoryRepo) list(ctx context.Context, keep func(Document) bool) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Document
	for _, d := range m.docs {
		if keep(d) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

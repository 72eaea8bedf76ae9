package overrides

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when an override request does not exist.
	ErrNotFound = errors.New("override request not found")
	// ErrAlreadyReviewed is returned when resolving a request twice.
	ErrAlreadyReviewed = errors.New("override request already reviewed")
	// ErrInvalidInput flags a rejected payload.
	ErrInvalidInput = errors.New("invalid input")
)

// Repo defines persistence operations for override requests.
type Repo interface {
	Create(ctx context.Context, req OverrideRequest) error
	GetByID(ctx context.Context, id string) (OverrideRequest, error)
	List(ctx context.Context, status string) ([]OverrideRequest, error)
	ListByVerification(ctx context.Context, verificationID string) ([]OverrideRequest, error)
	HasPendingForDocument(ctx context.Context, documentID string) (bool, error)
	Update(ctx context.Context, req OverrideRequest) error
}

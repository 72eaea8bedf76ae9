package documents

import (
	"context"
	"time"
)

// Repo persists documents. Terminal-state transitions are guarded so that a
// redelivered or raced pipeline run cannot overwrite an outcome: the mark
// methods report whether this caller claimed the transition.
//
// Completion is not written here. A completed document changes resident and
// verification totals in the same transaction, so that write lives behind the
// OutcomeCommitter wired in from the verification side.
type Repo interface {
	Create(ctx context.Context, doc Document) error

	// GetByID returns the document including soft-deleted rows, so a
	// duplicate rejection stays pollable.
	GetByID(ctx context.Context, id string) (Document, error)

	// ListByVerification returns the verification's documents, excluding
	// soft-deleted rows, newest first.
	ListByVerification(ctx context.Context, verificationID string) ([]Document, error)

	// ListForDedupe returns the resident's completed and in-review
	// documents of one type, excluding soft-deleted rows, newest first.
	ListForDedupe(ctx context.Context, residentID, documentType string) ([]Document, error)

	// ListCompletedByResident returns the resident's completed documents,
	// excluding soft-deleted rows.
	ListCompletedByResident(ctx context.Context, residentID string) ([]Document, error)

	// ListNeedsReviewByResident returns the resident's documents awaiting
	// review, excluding soft-deleted rows.
	ListNeedsReviewByResident(ctx context.Context, residentID string) ([]Document, error)

	// MarkNeedsReview moves a PROCESSING document to NEEDS_REVIEW.
	MarkNeedsReview(ctx context.Context, id, reason, errorCode string, completedAt time.Time) (bool, error)

	// MarkDuplicate soft-deletes a PROCESSING document as a duplicate of
	// an earlier one.
	MarkDuplicate(ctx context.Context, id, duplicateOf, reason string, completedAt time.Time) (bool, error)

	// ListStuckProcessing returns non-deleted PROCESSING documents created
	// before the cutoff.
	ListStuckProcessing(ctx context.Context, olderThan time.Time) ([]Document, error)

	// ReclaimStuck moves a stuck PROCESSING document to NEEDS_REVIEW with a
	// timeout reason. Used by the sweeper.
	ReclaimStuck(ctx context.Context, id, reason string, completedAt time.Time) (bool, error)
}

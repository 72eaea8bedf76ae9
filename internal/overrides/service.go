package overrides

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Kayler1303/ACS-sub001/internal/shared/metrics"
	"github.com/Kayler1303/ACS-sub001/internal/shared/telemetry"
)

// CorrectedFields carries reviewer-entered values applied to a document
// when its review is approved. Nil fields keep the originally extracted
// value.
type CorrectedFields struct {
	EmployeeName     *string
	EmployerName     *string
	TaxYear          *string
	Box1Wages        *float64
	Box3SSWages      *float64
	Box5MediWages    *float64
	GrossPay         *float64
	PayPeriodStart   *time.Time
	PayPeriodEnd     *time.Time
	PayFrequency     *string
	BenefitAmount    *float64
	BenefitFrequency *string
	AnnualizedIncome *float64
}

// DocumentPromoter promotes a reviewed document out of admin review and
// re-triggers aggregation. Promote must be idempotent: a document that
// already left review is a no-op, so a resolve retried after a partial
// failure cannot double-apply.
type DocumentPromoter interface {
	Promote(ctx context.Context, documentID string, corrections *CorrectedFields) error
}

// Service contains the override request workflow.
type Service struct {
	Repo Repo
	Docs DocumentPromoter
}

// Create records a new override request in PENDING state.
func (s *Service) Create(ctx context.Context, req OverrideRequest) (OverrideRequest, error) {
	if !KnownType(req.Type) {
		return OverrideRequest{}, fmt.Errorf("%w: unknown override type %q", ErrInvalidInput, req.Type)
	}
	req.Explanation = strings.TrimSpace(req.Explanation)
	if req.Explanation == "" {
		return OverrideRequest{}, fmt.Errorf("%w: explanation is required", ErrInvalidInput)
	}
	if req.RequesterID == "" {
		req.RequesterID = SystemRequester
	}

	now := time.Now().UTC()
	req.ID = uuid.NewString()
	req.Status = StatusPending
	req.CreatedAt = now
	req.UpdatedAt = now

	if err := s.Repo.Create(ctx, req); err != nil {
		return OverrideRequest{}, err
	}

	metrics.IncOverrideCreated()
	telemetry.Info("override.created", map[string]any{
		"override_id": req.ID,
		"type":        req.Type,
		"requester":   req.RequesterID,
	})
	return req, nil
}

// HasPendingForDocument reports whether a document still has an unreviewed
// request, which blocks finalizing the resident it belongs to.
func (s *Service) HasPendingForDocument(ctx context.Context, documentID string) (bool, error) {
	return s.Repo.HasPendingForDocument(ctx, documentID)
}

// ListByVerification returns every request raised against a verification.
func (s *Service) ListByVerification(ctx context.Context, verificationID string) ([]OverrideRequest, error) {
	return s.Repo.ListByVerification(ctx, verificationID)
}

// List returns override requests filtered by status. An empty status
// returns everything.
func (s *Service) List(ctx context.Context, status string) ([]OverrideRequest, error) {
	switch status {
	case "", StatusPending, StatusApproved, StatusDenied:
	default:
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	return s.Repo.List(ctx, status)
}

// Resolve adjudicates a pending request. Approving a document-scoped
// request promotes the document (with any reviewer corrections) before
// the request itself is marked reviewed, so a failure between the two
// leaves the request retryable rather than the document stranded.
func (s *Service) Resolve(ctx context.Context, id, reviewerID, status, adminNotes string, corrections *CorrectedFields) (OverrideRequest, error) {
	if status != StatusApproved && status != StatusDenied {
		return OverrideRequest{}, fmt.Errorf("%w: status must be %s or %s", ErrInvalidInput, StatusApproved, StatusDenied)
	}
	if reviewerID == "" {
		return OverrideRequest{}, fmt.Errorf("%w: reviewer identity is required", ErrInvalidInput)
	}

	req, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return OverrideRequest{}, err
	}
	if req.Status != StatusPending {
		return OverrideRequest{}, ErrAlreadyReviewed
	}

	if status == StatusApproved && req.DocumentID != nil && documentScoped(req.Type) {
		if s.Docs == nil {
			return OverrideRequest{}, fmt.Errorf("document promotion not configured")
		}
		if err := s.Docs.Promote(ctx, *req.DocumentID, corrections); err != nil {
			return OverrideRequest{}, fmt.Errorf("promote document %s: %w", *req.DocumentID, err)
		}
	}

	now := time.Now().UTC()
	req.Status = status
	req.ReviewedBy = &reviewerID
	req.ReviewedAt = &now
	if trimmed := strings.TrimSpace(adminNotes); trimmed != "" {
		req.AdminNotes = &trimmed
	}
	if err := s.Repo.Update(ctx, req); err != nil {
		return OverrideRequest{}, err
	}

	metrics.IncOverrideResolved()
	telemetry.Info("override.resolved", map[string]any{
		"override_id": req.ID,
		"type":        req.Type,
		"status":      status,
		"reviewer":    reviewerID,
	})
	return req, nil
}

func documentScoped(overrideType string) bool {
	return overrideType == TypeDocumentReview || overrideType == TypeValidationException
}

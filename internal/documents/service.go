package documents

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Kayler1303/ACS-sub001/internal/analyzer"
	"github.com/Kayler1303/ACS-sub001/internal/income"
	"github.com/Kayler1303/ACS-sub001/internal/overrides"
	"github.com/Kayler1303/ACS-sub001/internal/queue"
	"github.com/Kayler1303/ACS-sub001/internal/shared/locks"
	"github.com/Kayler1303/ACS-sub001/internal/shared/metrics"
	"github.com/Kayler1303/ACS-sub001/internal/shared/storage/object"
	"github.com/Kayler1303/ACS-sub001/internal/shared/telemetry"
)

// A supplied document date more than this many whole months after the lease
// start needs explicit confirmation that the document belongs to this lease.
const leaseAssignmentConfirmMonths = 5

const (
	processTimeout  = 3 * time.Minute
	pipelineLockTTL = 2 * time.Minute
	lockRetryDelay  = 250 * time.Millisecond
	lockRetryMax    = 40
)

// IntakeContext is the verification-side projection document operations need:
// where the document lands and whose income it evidences.
type IntakeContext struct {
	LeaseID            string
	LeaseStartDate     time.Time
	ResidentName       string
	VerificationActive bool
	ResidentFinalized  bool
}

// VerificationReader resolves a verification and one of its lease's
// residents. Implementations return ErrVerificationNotFound or
// ErrResidentNotFound when either side of the pair is missing.
type VerificationReader interface {
	IntakeContext(ctx context.Context, verificationID, residentID string) (IntakeContext, error)
}

// OutcomeCommitter applies a document outcome together with the income
// recomputation it triggers, atomically where the backend allows.
//
// CompleteAndRecompute writes the completed state only while the document is
// still open (PROCESSING or NEEDS_REVIEW, not deleted); anything else is a
// no-op so redeliveries and retried resolutions cannot double-apply.
type OutcomeCommitter interface {
	CompleteAndRecompute(ctx context.Context, doc Document) error
	DeleteAndRecompute(ctx context.Context, documentID string) (Document, error)
}

// Service contains document intake and the processing pipeline.
type Service struct {
	Repo          Repo
	Store         object.ObjectStore
	Analyzer      analyzer.Client
	Jobs          queue.Client
	Locks         locks.Locker
	Overrides     *overrides.Service
	Verifications VerificationReader
	Committer     OutcomeCommitter

	// MaxUploadBytes caps upload size; zero means DefaultMaxUploadBytes.
	MaxUploadBytes int64
}

// UploadInput is one document submission.
type UploadInput struct {
	VerificationID         string
	ResidentID             string
	DocumentType           string
	FileName               string
	Data                   []byte
	DocumentDate           *time.Time
	ConfirmLeaseAssignment bool
	UploadedBy             string
}

// DateConfirmation asks the uploader to confirm a document whose date is far
// enough past the lease start that it may belong to a newer lease.
type DateConfirmation struct {
	Reason           string
	MonthsDifference int
}

// UploadResult carries either the accepted document or a pending date
// confirmation, never both.
type UploadResult struct {
	Document     *Document
	Confirmation *DateConfirmation
}

// Upload pre-screens and stores a document, records it in PROCESSING state,
// and hands it to the pipeline.
func (s *Service) Upload(ctx context.Context, in UploadInput) (UploadResult, error) {
	docType := strings.TrimSpace(strings.ToUpper(in.DocumentType))
	if !analyzer.KnownDocType(docType) {
		return UploadResult{}, fmt.Errorf("%w: unknown document type %q", ErrInvalidInput, in.DocumentType)
	}
	fileName := strings.TrimSpace(in.FileName)
	if fileName == "" {
		return UploadResult{}, fmt.Errorf("%w: file name is required", ErrInvalidInput)
	}

	ic, err := s.Verifications.IntakeContext(ctx, in.VerificationID, in.ResidentID)
	if err != nil {
		return UploadResult{}, err
	}
	if !ic.VerificationActive {
		return UploadResult{}, ErrVerificationClosed
	}
	if ic.ResidentFinalized {
		return UploadResult{}, ErrResidentFinalized
	}

	mime, err := preScreen(in.Data, s.maxUploadBytes())
	if err != nil {
		return UploadResult{}, err
	}

	if in.DocumentDate != nil && !in.ConfirmLeaseAssignment {
		months := monthsBetween(ic.LeaseStartDate, *in.DocumentDate)
		if months > leaseAssignmentConfirmMonths {
			return UploadResult{Confirmation: &DateConfirmation{
				Reason: fmt.Sprintf("document is dated %d months after the lease start %s; confirm it belongs to this lease",
					months, ic.LeaseStartDate.Format("2006-01-02")),
				MonthsDifference: months,
			}}, nil
		}
	}

	storageKey, size, _, err := s.Store.Save(ctx, ic.LeaseID, fileName, bytes.NewReader(in.Data))
	if err != nil {
		return UploadResult{}, fmt.Errorf("store document: %w", err)
	}

	now := time.Now().UTC()
	doc := Document{
		ID:             uuid.NewString(),
		VerificationID: in.VerificationID,
		ResidentID:     in.ResidentID,
		DocumentType:   docType,
		Status:         StatusProcessing,
		StorageKey:     storageKey,
		FileName:       fileName,
		MimeType:       mime,
		SizeBytes:      size,
		DocumentDate:   in.DocumentDate,
		UploadedBy:     in.UploadedBy,
		StartedAt:      &now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.Repo.Create(ctx, doc); err != nil {
		return UploadResult{}, err
	}

	metrics.IncDocumentUploaded()
	telemetry.Info("document.uploaded", map[string]any{
		"request_id":      requestIDFromContext(ctx),
		"document_id":     doc.ID,
		"verification_id": doc.VerificationID,
		"resident_id":     doc.ResidentID,
		"document_type":   doc.DocumentType,
		"size_bytes":      doc.SizeBytes,
	})

	s.dispatch(ctx, doc.ID)
	return UploadResult{Document: &doc}, nil
}

// Get returns a document scoped to its verification, including
// duplicate-rejected ones so their outcome stays pollable.
func (s *Service) Get(ctx context.Context, verificationID, documentID string) (Document, error) {
	doc, err := s.Repo.GetByID(ctx, documentID)
	if err != nil {
		return Document{}, err
	}
	if doc.VerificationID != verificationID {
		return Document{}, ErrNotFound
	}
	return doc, nil
}

// ListByVerification returns the verification's live documents.
func (s *Service) ListByVerification(ctx context.Context, verificationID string) ([]Document, error) {
	return s.Repo.ListByVerification(ctx, verificationID)
}

// Delete soft-deletes a document and recomputes the income it contributed
// to. Documents of a finalized resident are frozen.
func (s *Service) Delete(ctx context.Context, verificationID, documentID string) error {
	doc, err := s.Get(ctx, verificationID, documentID)
	if err != nil {
		return err
	}
	if doc.Deleted() {
		return ErrNotFound
	}

	ic, err := s.Verifications.IntakeContext(ctx, doc.VerificationID, doc.ResidentID)
	if err != nil {
		return err
	}
	if !ic.VerificationActive {
		return ErrVerificationClosed
	}
	if ic.ResidentFinalized {
		return ErrResidentFinalized
	}

	deleted, err := s.Committer.DeleteAndRecompute(ctx, documentID)
	if err != nil {
		return err
	}
	telemetry.Info("document.deleted", map[string]any{
		"request_id":      requestIDFromContext(ctx),
		"document_id":     deleted.ID,
		"verification_id": deleted.VerificationID,
		"resident_id":     deleted.ResidentID,
		"status":          deleted.Status,
	})
	return nil
}

// Promote completes a reviewed document, applying any reviewer corrections
// first. It is idempotent: an already-completed document is a no-op.
func (s *Service) Promote(ctx context.Context, documentID string, corrections *overrides.CorrectedFields) error {
	doc, err := s.Repo.GetByID(ctx, documentID)
	if err != nil {
		return err
	}
	if doc.Deleted() {
		return fmt.Errorf("%w: document %s is deleted", overrides.ErrInvalidInput, documentID)
	}
	switch doc.Status {
	case StatusCompleted:
		return nil
	case StatusNeedsReview:
	default:
		return fmt.Errorf("%w: document %s is still processing", overrides.ErrInvalidInput, documentID)
	}

	merged := applyCorrections(doc, corrections)
	annualized := income.AnnualizeDoc(incomeProjection(merged))
	if annualized == nil {
		return fmt.Errorf("%w: no income figure derivable for document %s; supply corrected fields", overrides.ErrInvalidInput, documentID)
	}
	now := time.Now().UTC()
	merged.CalculatedAnnualizedIncome = annualized
	merged.Status = StatusCompleted
	merged.CompletedAt = &now
	merged.ReviewReason = ""
	merged.ErrorCode = ""

	if err := s.Committer.CompleteAndRecompute(ctx, merged); err != nil {
		return err
	}
	metrics.IncDocumentCompleted()
	telemetry.Info("document.status_transition", map[string]any{
		"request_id":  requestIDFromContext(ctx),
		"document_id": merged.ID,
		"from":        StatusNeedsReview,
		"to":          StatusCompleted,
		"annualized":  *annualized,
	})
	return nil
}

// SweepStuck reclaims documents that have sat in PROCESSING longer than
// maxAge, routing each to review.
func (s *Service) SweepStuck(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-maxAge)
	stuck, err := s.Repo.ListStuckProcessing(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	reclaimed := 0
	reason := fmt.Sprintf("processing did not finish within %s", maxAge)
	for _, doc := range stuck {
		claimed, err := s.Repo.ReclaimStuck(ctx, doc.ID, reason, time.Now().UTC())
		if err != nil {
			telemetry.Error("document.reclaim_failed", map[string]any{
				"document_id": doc.ID,
				"error":       err.Error(),
			})
			continue
		}
		if !claimed {
			continue
		}
		reclaimed++
		metrics.IncDocumentReclaimed()
		metrics.IncDocumentNeedsReview()
		s.raiseOverride(ctx, doc, overrides.TypeDocumentReview, reason)
		telemetry.Warn("document.status_transition", map[string]any{
			"document_id":     doc.ID,
			"verification_id": doc.VerificationID,
			"from":            StatusProcessing,
			"to":              StatusNeedsReview,
			"error_code":      ErrorCodeTimeout,
		})
	}
	return reclaimed, nil
}

// dispatch hands the document to the worker queue, falling back to an
// in-process goroutine when no queue is configured or the send fails.
func (s *Service) dispatch(ctx context.Context, documentID string) {
	if s.Jobs != nil {
		msg := queue.Message{
			DocumentID: documentID,
			RequestID:  requestIDFromContext(ctx),
			EnqueuedAt: time.Now().UTC().Format(time.RFC3339),
			Version:    1,
		}
		err := s.Jobs.Send(ctx, msg)
		if err == nil {
			return
		}
		telemetry.Error("document.enqueue_failed", map[string]any{
			"request_id":  requestIDFromContext(ctx),
			"document_id": documentID,
			"error":       err.Error(),
		})
	}
	go s.Process(backgroundWithRequestID(ctx), documentID)
}

func (s *Service) maxUploadBytes() int64 {
	if s.MaxUploadBytes > 0 {
		return s.MaxUploadBytes
	}
	return DefaultMaxUploadBytes
}

func (s *Service) raiseOverride(ctx context.Context, doc Document, overrideType, explanation string) {
	if s.Overrides == nil {
		return
	}
	req := overrides.OverrideRequest{
		Type:           overrideType,
		Explanation:    explanation,
		DocumentID:     &doc.ID,
		ResidentID:     &doc.ResidentID,
		VerificationID: &doc.VerificationID,
	}
	if _, err := s.Overrides.Create(ctx, req); err != nil {
		telemetry.Error("override.create_failed", map[string]any{
			"document_id": doc.ID,
			"type":        overrideType,
			"error":       err.Error(),
		})
	}
}

// applyCorrections overlays reviewer-supplied values on a document.
func applyCorrections(doc Document, corr *overrides.CorrectedFields) Document {
	if corr == nil {
		return doc
	}
	if corr.EmployeeName != nil {
		doc.EmployeeName = strings.TrimSpace(*corr.EmployeeName)
	}
	if corr.EmployerName != nil {
		doc.EmployerName = strings.TrimSpace(*corr.EmployerName)
	}
	if corr.TaxYear != nil {
		doc.TaxYear = strings.TrimSpace(*corr.TaxYear)
	}
	if corr.Box1Wages != nil {
		doc.Box1Wages = corr.Box1Wages
	}
	if corr.Box3SSWages != nil {
		doc.Box3SSWages = corr.Box3SSWages
	}
	if corr.Box5MediWages != nil {
		doc.Box5MediWages = corr.Box5MediWages
	}
	if corr.GrossPay != nil {
		doc.GrossPay = corr.GrossPay
	}
	if corr.PayPeriodStart != nil {
		doc.PayPeriodStart = corr.PayPeriodStart
	}
	if corr.PayPeriodEnd != nil {
		doc.PayPeriodEnd = corr.PayPeriodEnd
	}
	if corr.PayFrequency != nil {
		doc.PayFrequency = strings.TrimSpace(strings.ToUpper(*corr.PayFrequency))
	}
	if corr.BenefitAmount != nil {
		doc.BenefitAmount = corr.BenefitAmount
	}
	if corr.BenefitFrequency != nil {
		doc.BenefitFrequency = strings.TrimSpace(strings.ToUpper(*corr.BenefitFrequency))
	}
	if corr.AnnualizedIncome != nil {
		doc.CalculatedAnnualizedIncome = corr.AnnualizedIncome
	}
	return doc
}

// incomeProjection maps a document onto the aggregation engine's view of it.
func incomeProjection(doc Document) income.Doc {
	return income.Doc{
		ID:               doc.ID,
		DocumentType:     doc.DocumentType,
		EmployerName:     doc.EmployerName,
		TaxYear:          doc.TaxYear,
		Box1Wages:        doc.Box1Wages,
		Box3SSWages:      doc.Box3SSWages,
		Box5MediWages:    doc.Box5MediWages,
		GrossPay:         doc.GrossPay,
		PayPeriodEnd:     doc.PayPeriodEnd,
		PayFrequency:     doc.PayFrequency,
		BenefitAmount:    doc.BenefitAmount,
		BenefitFrequency: doc.BenefitFrequency,
		AnnualizedIncome: doc.CalculatedAnnualizedIncome,
	}
}

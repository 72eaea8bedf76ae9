package documents

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Kayler1303/ACS-sub001/internal/analyzer"
	"github.com/Kayler1303/ACS-sub001/internal/extraction"
	"github.com/Kayler1303/ACS-sub001/internal/income"
	"github.com/Kayler1303/ACS-sub001/internal/overrides"
	"github.com/Kayler1303/ACS-sub001/internal/shared/locks"
	"github.com/Kayler1303/ACS-sub001/internal/shared/metrics"
	"github.com/Kayler1303/ACS-sub001/internal/shared/telemetry"
)

// Process runs the pipeline for one uploaded document: analyze, validate,
// dedupe, screen, then commit the outcome. Pipeline failures land the
// document in NEEDS_REVIEW with an override request and return nil; the
// returned error is non-nil only when the document could not be loaded at
// all, so a queue consumer can let the message redeliver. Safe to call
// again for the same document: a document no longer in PROCESSING is left
// alone.
func (s *Service) Process(ctx context.Context, documentID string) error {
	start := time.Now()

	doc, err := s.Repo.GetByID(ctx, documentID)
	if err != nil {
		telemetry.Error("document.process_lookup_failed", map[string]any{
			"request_id":  requestIDFromContext(ctx),
			"document_id": documentID,
			"error":       err.Error(),
		})
		return fmt.Errorf("load document %s: %w", documentID, err)
	}
	if doc.Status != StatusProcessing || doc.Deleted() {
		telemetry.Info("document.process_skipped", map[string]any{
			"request_id":  requestIDFromContext(ctx),
			"document_id": documentID,
			"status":      doc.Status,
			"deleted":     doc.Deleted(),
		})
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			s.failDocument(ctx, doc, fmt.Errorf("panic: %v", r))
		}
	}()

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, processTimeout)
		defer cancel()
	}

	// Serialize per resident and document type so two concurrent uploads of
	// the same paystub cannot both pass the duplicate check.
	if release := s.acquirePipelineLock(ctx, doc); release != nil {
		defer release(ctx)
	}

	ic, err := s.Verifications.IntakeContext(ctx, doc.VerificationID, doc.ResidentID)
	if err != nil {
		s.failDocument(ctx, doc, fmt.Errorf("load verification context: %w", err))
		return nil
	}

	res, err := s.analyze(ctx, doc)
	if err != nil {
		s.failDocument(ctx, doc, err)
		return nil
	}
	doc.Confidence = &res.DocConfidence
	doc.AnalyzerModel = res.ModelID
	doc.AnalyzerDocType = res.MatchedType

	verdict := extraction.Validate(doc.DocumentType, res)
	if !verdict.IsValid {
		code := ErrorCodeValidation
		overrideType := overrides.TypeValidationException
		if len(verdict.Errors) == 0 {
			// Nothing failed; the type just requires a human to read it.
			code = ErrorCodeManualReview
			overrideType = overrides.TypeDocumentReview
		}
		s.routeToReview(ctx, doc, verdict.Explanation(), code, overrideType)
		return nil
	}

	doc = mergeExtracted(doc, verdict.Data)

	if dup, reason := s.findDuplicate(ctx, doc); dup != "" {
		s.rejectDuplicate(ctx, doc, dup, reason)
		return nil
	}

	if reasons := s.screen(ctx, doc, ic); len(reasons) > 0 {
		s.routeToReview(ctx, doc, strings.Join(reasons, "; "), ErrorCodeValidation, overrides.TypeValidationException)
		return nil
	}

	now := time.Now().UTC()
	doc.Status = StatusCompleted
	doc.CompletedAt = &now
	doc.CalculatedAnnualizedIncome = income.AnnualizeDoc(incomeProjection(doc))

	if err := s.Committer.CompleteAndRecompute(ctx, doc); err != nil {
		s.failDocument(ctx, doc, fmt.Errorf("commit outcome: %w", err))
		return nil
	}

	durationMs := float64(time.Since(start)) / float64(time.Millisecond)
	metrics.IncDocumentCompleted()
	metrics.ObserveDocumentProcessingMs(durationMs)
	telemetry.Info("document.status_transition", map[string]any{
		"request_id":      requestIDFromContext(ctx),
		"document_id":     doc.ID,
		"verification_id": doc.VerificationID,
		"resident_id":     doc.ResidentID,
		"from":            StatusProcessing,
		"to":              StatusCompleted,
		"duration_ms":     durationMs,
	})
	return nil
}

// analyze loads the stored file and runs it through the analyzer. Social
// Security documents that the typed 1099 model cannot read (award letters)
// fall back to the layout model, whose key-value pairs the validator scans.
func (s *Service) analyze(ctx context.Context, doc Document) (analyzer.Result, error) {
	rc, err := s.Store.Open(ctx, doc.StorageKey)
	if err != nil {
		return analyzer.Result{}, fmt.Errorf("open stored document: %w", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return analyzer.Result{}, fmt.Errorf("read stored document: %w", err)
	}

	modelID := analyzer.ModelFor(doc.DocumentType)
	res, err := s.timedAnalyze(ctx, data, modelID)
	if err != nil {
		return analyzer.Result{}, fmt.Errorf("analyze with %s: %w", modelID, err)
	}

	if doc.DocumentType == analyzer.DocTypeSocialSecurity {
		if _, ok := res.Fields.Number(analyzer.FieldBenefitAmount); !ok {
			fallback, ferr := s.timedAnalyze(ctx, data, analyzer.ModelLayout)
			if ferr != nil {
				telemetry.Warn("document.layout_fallback_failed", map[string]any{
					"request_id":  requestIDFromContext(ctx),
					"document_id": doc.ID,
					"error":       ferr.Error(),
				})
				return res, nil
			}
			return fallback, nil
		}
	}
	return res, nil
}

func (s *Service) timedAnalyze(ctx context.Context, data []byte, modelID string) (analyzer.Result, error) {
	start := time.Now()
	res, err := s.Analyzer.Analyze(ctx, data, modelID)
	metrics.ObserveAnalyzerRequestMs(float64(time.Since(start)) / float64(time.Millisecond))
	return res, err
}

// findDuplicate returns the id of an existing document the candidate
// repeats, or "". Listing errors fail open: a missed duplicate is
// recoverable by an admin, a wrongly rejected document is not.
func (s *Service) findDuplicate(ctx context.Context, doc Document) (string, string) {
	existing, err := s.Repo.ListForDedupe(ctx, doc.ResidentID, doc.DocumentType)
	if err != nil {
		telemetry.Error("document.dedupe_list_failed", map[string]any{
			"request_id":  requestIDFromContext(ctx),
			"document_id": doc.ID,
			"error":       err.Error(),
		})
		return "", ""
	}
	for _, other := range existing {
		if other.ID == doc.ID {
			continue
		}
		if dup, reason := isDuplicate(doc, other); dup {
			return other.ID, reason
		}
	}
	return "", ""
}

func (s *Service) rejectDuplicate(ctx context.Context, doc Document, duplicateOf, reason string) {
	claimed, err := s.Repo.MarkDuplicate(context.Background(), doc.ID, duplicateOf, reason, time.Now().UTC())
	if err != nil {
		telemetry.Error("document.duplicate_mark_failed", map[string]any{
			"request_id":  requestIDFromContext(ctx),
			"document_id": doc.ID,
			"error":       err.Error(),
		})
		return
	}
	if !claimed {
		return
	}
	metrics.IncDocumentDuplicate()
	telemetry.Info("document.status_transition", map[string]any{
		"request_id":      requestIDFromContext(ctx),
		"document_id":     doc.ID,
		"verification_id": doc.VerificationID,
		"resident_id":     doc.ResidentID,
		"from":            StatusProcessing,
		"to":              "REJECTED_DUPLICATE",
		"duplicate_of":    duplicateOf,
	})
}

// screen applies the timeliness and identity checks. Checks whose inputs are
// missing are skipped with a warning rather than failed; validation already
// guaranteed the fields each type requires.
func (s *Service) screen(ctx context.Context, doc Document, ic IntakeContext) []string {
	var reasons []string

	if doc.DocumentType == analyzer.DocTypeW2 {
		if ok, reason := timelyW2(doc.TaxYear, ic.LeaseStartDate); !ok {
			reasons = append(reasons, reason)
		}
	} else if date := timelinessDate(doc); date != nil {
		if ok, reason := timelyDate(*date, ic.LeaseStartDate); !ok {
			reasons = append(reasons, reason)
		}
	} else {
		telemetry.Warn("document.timeliness_skipped", map[string]any{
			"request_id":    requestIDFromContext(ctx),
			"document_id":   doc.ID,
			"document_type": doc.DocumentType,
		})
	}

	if doc.EmployeeName == "" {
		telemetry.Warn("document.identity_skipped", map[string]any{
			"request_id":  requestIDFromContext(ctx),
			"document_id": doc.ID,
		})
	} else if !identityMatches(ic.ResidentName, doc.EmployeeName) {
		reasons = append(reasons, fmt.Sprintf("document name %q does not match resident %q", doc.EmployeeName, ic.ResidentName))
	}

	return reasons
}

func timelinessDate(doc Document) *time.Time {
	if doc.PayPeriodEnd != nil {
		return doc.PayPeriodEnd
	}
	return doc.DocumentDate
}

// routeToReview parks the document in NEEDS_REVIEW and opens an override
// request so the escalation queue sees it.
func (s *Service) routeToReview(ctx context.Context, doc Document, reason, errorCode, overrideType string) {
	claimed, err := s.Repo.MarkNeedsReview(context.Background(), doc.ID, reason, errorCode, time.Now().UTC())
	if err != nil {
		telemetry.Error("document.review_mark_failed", map[string]any{
			"request_id":  requestIDFromContext(ctx),
			"document_id": doc.ID,
			"error":       err.Error(),
		})
		return
	}
	if !claimed {
		return
	}
	metrics.IncDocumentNeedsReview()
	s.raiseOverride(ctx, doc, overrideType, reason)
	telemetry.Warn("document.status_transition", map[string]any{
		"request_id":      requestIDFromContext(ctx),
		"document_id":     doc.ID,
		"verification_id": doc.VerificationID,
		"resident_id":     doc.ResidentID,
		"from":            StatusProcessing,
		"to":              StatusNeedsReview,
		"error_code":      errorCode,
		"reason":          reason,
	})
}

// failDocument records an operational failure. The final update runs on a
// fresh context so a cancelled or expired pipeline context cannot block it.
func (s *Service) failDocument(ctx context.Context, doc Document, cause error) {
	code, retryable := classifyFailure(cause)
	reason := sanitizeError(cause)

	claimed, err := s.Repo.MarkNeedsReview(context.Background(), doc.ID, reason, code, time.Now().UTC())
	if err != nil {
		telemetry.Error("document.fail_mark_failed", map[string]any{
			"request_id":  requestIDFromContext(ctx),
			"document_id": doc.ID,
			"error":       err.Error(),
		})
		return
	}
	if !claimed {
		return
	}
	metrics.IncDocumentNeedsReview()
	s.raiseOverride(ctx, doc, overrides.TypeDocumentReview, reason)
	telemetry.Error("document.status_transition", map[string]any{
		"request_id":      requestIDFromContext(ctx),
		"document_id":     doc.ID,
		"verification_id": doc.VerificationID,
		"resident_id":     doc.ResidentID,
		"from":            StatusProcessing,
		"to":              StatusNeedsReview,
		"error_code":      code,
		"retryable":       retryable,
		"reason":          reason,
	})
}

func (s *Service) acquirePipelineLock(ctx context.Context, doc Document) locks.Release {
	if s.Locks == nil {
		return nil
	}
	key := locks.Key("pipeline", doc.ResidentID, doc.DocumentType)
	for attempt := 0; attempt < lockRetryMax; attempt++ {
		release, ok, err := s.Locks.Acquire(ctx, key, pipelineLockTTL)
		if err != nil {
			telemetry.Warn("document.lock_unavailable", map[string]any{
				"request_id":  requestIDFromContext(ctx),
				"document_id": doc.ID,
				"error":       err.Error(),
			})
			return nil
		}
		if ok {
			return release
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(lockRetryDelay):
		}
	}
	telemetry.Warn("document.lock_busy", map[string]any{
		"request_id":  requestIDFromContext(ctx),
		"document_id": doc.ID,
	})
	return nil
}

func mergeExtracted(doc Document, data extraction.Data) Document {
	doc.EmployeeName = data.EmployeeName
	doc.EmployerName = data.EmployerName
	doc.TaxYear = data.TaxYear
	doc.Box1Wages = data.Box1Wages
	doc.Box3SSWages = data.Box3SSWages
	doc.Box5MediWages = data.Box5MediWages
	doc.GrossPay = data.GrossPay
	doc.PayPeriodStart = data.PayPeriodStart
	doc.PayPeriodEnd = data.PayPeriodEnd
	doc.PayFrequency = data.PayFrequency
	doc.BenefitAmount = data.BenefitAmount
	doc.BenefitFrequency = data.BenefitFrequency
	if data.DocumentDate != nil {
		doc.DocumentDate = data.DocumentDate
	}
	return doc
}

// classifyFailure buckets a pipeline error into a stable code and whether a
// retry could plausibly succeed.
func classifyFailure(err error) (string, bool) {
	if err == nil {
		return ErrorCodeInternal, false
	}
	msg := strings.ToLower(err.Error())
	switch {
	case errors.Is(err, context.DeadlineExceeded) || strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline"):
		return ErrorCodeAnalyzerTimeout, true
	case errors.Is(err, analyzer.ErrNotConfigured):
		return ErrorCodeExtraction, false
	case strings.Contains(msg, "analyze"):
		return ErrorCodeExtraction, true
	case strings.Contains(msg, "stored document") || strings.Contains(msg, "storage") || strings.Contains(msg, "s3"):
		return ErrorCodeStorage, true
	default:
		return ErrorCodeInternal, false
	}
}

// sanitizeError flattens an error chain into a single reviewable line.
func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	const maxLen = 500
	if len(msg) > maxLen {
		msg = msg[:maxLen]
	}
	return msg
}

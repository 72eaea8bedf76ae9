package verifications

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Kayler1303/ACS-sub001/internal/documents"
	"github.com/Kayler1303/ACS-sub001/internal/leases"
	"github.com/Kayler1303/ACS-sub001/internal/overrides"
	"github.com/Kayler1303/ACS-sub001/internal/residents"
	"github.com/Kayler1303/ACS-sub001/internal/shared/metrics"
	"github.com/Kayler1303/ACS-sub001/internal/shared/telemetry"
)

// Default verification period shape when intake does not supply dates: a
// one-year cycle with documents due ninety days in.
const (
	defaultPeriodYears  = 1
	defaultDueAfterDays = 90
)

// DocumentSource is the slice of document storage the lifecycle needs:
// listing a verification's documents and checking a resident's document
// states ahead of finalization. Any documents.Repo satisfies it.
type DocumentSource interface {
	ListByVerification(ctx context.Context, verificationID string) ([]documents.Document, error)
	ListCompletedByResident(ctx context.Context, residentID string) ([]documents.Document, error)
	ListNeedsReviewByResident(ctx context.Context, residentID string) ([]documents.Document, error)
}

// Service contains the verification lifecycle and reconciliation logic.
type Service struct {
	Repo      Repo
	Leases    leases.Repo
	Residents residents.Repo
	Docs      DocumentSource
	Overrides *overrides.Service
}

var _ documents.VerificationReader = (*Service)(nil)

// StartInput is one request to open a verification period.
type StartInput struct {
	LeaseID     string
	Reason      string
	PeriodStart *time.Time
	PeriodEnd   *time.Time
	DueDate     *time.Time
	// Supersede finalizes a stale in-progress verification instead of
	// rejecting the start, for deliberate new-term cycles.
	Supersede bool
}

// Start opens a verification period for a lease. A lease with an active
// verification rejects the start with ErrLeaseConflict and the existing
// verification is returned alongside it, unless the caller asked to
// supersede, in which case the stale one is finalized and the new one
// created atomically.
func (s *Service) Start(ctx context.Context, in StartInput) (Verification, error) {
	lease, err := s.Leases.GetByID(ctx, in.LeaseID)
	if err != nil {
		return Verification{}, err
	}

	existing, err := s.Repo.GetActiveByLease(ctx, lease.ID)
	switch {
	case err == nil:
		if !in.Supersede {
			return existing, ErrLeaseConflict
		}
		return s.supersede(ctx, existing, in)
	case errors.Is(err, ErrNotFound):
	default:
		return Verification{}, err
	}

	v, err := s.buildVerification(ctx, lease.ID, in)
	if err != nil {
		return Verification{}, err
	}
	if err := s.Repo.Create(ctx, v); err != nil {
		if errors.Is(err, ErrLeaseConflict) {
			// A concurrent start won the race between our check and the
			// insert; surface the winner.
			if winner, getErr := s.Repo.GetActiveByLease(ctx, lease.ID); getErr == nil {
				return winner, ErrLeaseConflict
			}
			return Verification{}, ErrLeaseConflict
		}
		return Verification{}, err
	}

	metrics.IncVerificationStarted()
	telemetry.Info("verification.started", map[string]any{
		"verification_id": v.ID,
		"lease_id":        v.LeaseID,
		"lease_year":      v.LeaseYear,
		"reason":          v.Reason,
	})
	return v, nil
}

// supersede closes the stale verification at its current lease total and
// opens the replacement in one repo transaction.
func (s *Service) supersede(ctx context.Context, stale Verification, in StartInput) (Verification, error) {
	members, err := s.Residents.ListByLease(ctx, stale.LeaseID)
	if err != nil {
		return Verification{}, err
	}
	closingTotal := leaseTotal(members)

	next, err := s.buildVerification(ctx, stale.LeaseID, in)
	if err != nil {
		return Verification{}, err
	}
	if err := s.Repo.Supersede(ctx, stale.ID, &closingTotal, next); err != nil {
		return Verification{}, err
	}

	metrics.IncVerificationFinalized()
	metrics.IncVerificationStarted()
	telemetry.Info("verification.superseded", map[string]any{
		"stale_verification_id": stale.ID,
		"verification_id":       next.ID,
		"lease_id":              next.LeaseID,
		"closing_total":         closingTotal,
	})
	return next, nil
}

func (s *Service) buildVerification(ctx context.Context, leaseID string, in StartInput) (Verification, error) {
	count, err := s.Repo.CountByLease(ctx, leaseID)
	if err != nil {
		return Verification{}, err
	}

	reason := strings.TrimSpace(strings.ToUpper(in.Reason))
	if reason == "" {
		reason = ReasonAnnual
	}
	now := time.Now().UTC()
	periodStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if in.PeriodStart != nil {
		periodStart = *in.PeriodStart
	}
	periodEnd := periodStart.AddDate(defaultPeriodYears, 0, 0)
	if in.PeriodEnd != nil {
		periodEnd = *in.PeriodEnd
	}
	if !periodEnd.After(periodStart) {
		return Verification{}, fmt.Errorf("%w: verification period end must be after its start", ErrInvalidInput)
	}
	dueDate := periodStart.AddDate(0, 0, defaultDueAfterDays)
	if in.DueDate != nil {
		dueDate = *in.DueDate
	}

	return Verification{
		ID:          uuid.NewString(),
		LeaseID:     leaseID,
		Status:      StatusInProgress,
		Reason:      reason,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		DueDate:     dueDate,
		LeaseYear:   count + 1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// ResidentView pairs a resident with their documents for the snapshot.
type ResidentView struct {
	Resident  residents.Resident
	Documents []documents.Document
}

// Snapshot returns a verification with its residents and their documents.
func (s *Service) Snapshot(ctx context.Context, id string) (Verification, []ResidentView, error) {
	v, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return Verification{}, nil, err
	}
	members, err := s.Residents.ListByLease(ctx, v.LeaseID)
	if err != nil {
		return Verification{}, nil, err
	}
	docs, err := s.Docs.ListByVerification(ctx, id)
	if err != nil {
		return Verification{}, nil, err
	}

	byResident := make(map[string][]documents.Document, len(members))
	for _, doc := range docs {
		byResident[doc.ResidentID] = append(byResident[doc.ResidentID], doc)
	}
	views := make([]ResidentView, 0, len(members))
	for _, res := range members {
		views = append(views, ResidentView{Resident: res, Documents: byResident[res.ID]})
	}
	return v, views, nil
}

// FinalizeResident freezes a resident's verified income at the current
// calculated figure. It requires either a completed document evidencing
// income or an explicit no-income declaration, and no document sitting in
// review with an unadjudicated override.
func (s *Service) FinalizeResident(ctx context.Context, verificationID, residentID string) (residents.Resident, error) {
	v, res, err := s.residentOn(ctx, verificationID, residentID)
	if err != nil {
		return residents.Resident{}, err
	}
	if !v.Active() {
		return residents.Resident{}, ErrAlreadyFinalized
	}
	if res.IncomeFinalized {
		return residents.Resident{}, ErrResidentFinalized
	}

	if !res.HasNoIncome {
		completed, err := s.Docs.ListCompletedByResident(ctx, residentID)
		if err != nil {
			return residents.Resident{}, err
		}
		hasIncome := false
		for _, doc := range completed {
			if doc.CalculatedAnnualizedIncome != nil && *doc.CalculatedAnnualizedIncome > 0 {
				hasIncome = true
				break
			}
		}
		if !hasIncome {
			return residents.Resident{}, fmt.Errorf("%w: resident needs a completed document with income or a no-income declaration", ErrFinalizeBlocked)
		}
	}
	if err := s.checkNoPendingReviews(ctx, residentID); err != nil {
		return residents.Resident{}, err
	}

	verified := 0.0
	if res.CalculatedAnnualizedIncome != nil {
		verified = *res.CalculatedAnnualizedIncome
	}
	now := time.Now().UTC()
	res.VerifiedIncome = &verified
	res.IncomeFinalized = true
	res.FinalizedAt = &now
	if err := s.Residents.Update(ctx, res); err != nil {
		return residents.Resident{}, err
	}
	if err := s.refreshTotal(ctx, v); err != nil {
		return residents.Resident{}, err
	}

	telemetry.Info("resident.finalized", map[string]any{
		"verification_id": v.ID,
		"resident_id":     res.ID,
		"verified_income": verified,
	})
	return res, nil
}

// UnfinalizeResident reopens a finalized resident for document changes,
// clearing the frozen figure and any no-income declaration.
func (s *Service) UnfinalizeResident(ctx context.Context, verificationID, residentID string) (residents.Resident, error) {
	v, res, err := s.residentOn(ctx, verificationID, residentID)
	if err != nil {
		return residents.Resident{}, err
	}
	if !v.Active() {
		return residents.Resident{}, ErrAlreadyFinalized
	}
	if !res.IncomeFinalized {
		return residents.Resident{}, ErrResidentNotFinalized
	}

	res.VerifiedIncome = nil
	res.IncomeFinalized = false
	res.FinalizedAt = nil
	res.HasNoIncome = false
	if err := s.Residents.Update(ctx, res); err != nil {
		return residents.Resident{}, err
	}
	if err := s.refreshTotal(ctx, v); err != nil {
		return residents.Resident{}, err
	}

	telemetry.Info("resident.unfinalized", map[string]any{
		"verification_id": v.ID,
		"resident_id":     res.ID,
	})
	return res, nil
}

// MarkNoIncome records that a resident has no income to document and
// finalizes them at zero. Residents with completed income documents must
// delete them first or finalize normally.
func (s *Service) MarkNoIncome(ctx context.Context, verificationID, residentID string) (residents.Resident, error) {
	v, res, err := s.residentOn(ctx, verificationID, residentID)
	if err != nil {
		return residents.Resident{}, err
	}
	if !v.Active() {
		return residents.Resident{}, ErrAlreadyFinalized
	}
	if res.IncomeFinalized {
		return residents.Resident{}, ErrResidentFinalized
	}

	completed, err := s.Docs.ListCompletedByResident(ctx, residentID)
	if err != nil {
		return residents.Resident{}, err
	}
	for _, doc := range completed {
		if doc.CalculatedAnnualizedIncome != nil && *doc.CalculatedAnnualizedIncome > 0 {
			return residents.Resident{}, fmt.Errorf("%w: resident has completed income documents", ErrInvalidInput)
		}
	}
	if err := s.checkNoPendingReviews(ctx, residentID); err != nil {
		return residents.Resident{}, err
	}

	verified := 0.0
	now := time.Now().UTC()
	res.HasNoIncome = true
	res.VerifiedIncome = &verified
	res.IncomeFinalized = true
	res.FinalizedAt = &now
	if err := s.Residents.Update(ctx, res); err != nil {
		return residents.Resident{}, err
	}
	if err := s.refreshTotal(ctx, v); err != nil {
		return residents.Resident{}, err
	}

	telemetry.Info("resident.no_income", map[string]any{
		"verification_id": v.ID,
		"resident_id":     res.ID,
	})
	return res, nil
}

// Finalize closes the verification lease-wide. Every resident must be
// individually finalized, and every detected discrepancy must carry an
// approved income-discrepancy override.
func (s *Service) Finalize(ctx context.Context, id string) (Verification, error) {
	v, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return Verification{}, err
	}
	if !v.Active() {
		return Verification{}, ErrAlreadyFinalized
	}

	members, err := s.Residents.ListByLease(ctx, v.LeaseID)
	if err != nil {
		return Verification{}, err
	}
	if len(members) == 0 {
		return Verification{}, fmt.Errorf("%w: lease has no residents", ErrInvalidInput)
	}
	done := 0
	for _, res := range members {
		if res.IncomeFinalized {
			done++
		}
	}
	if done != len(members) {
		return Verification{}, fmt.Errorf("%w: %d of %d residents finalized", ErrResidentsNotFinalized, done, len(members))
	}

	found, err := s.decorate(ctx, v.ID, detectDiscrepancies(members))
	if err != nil {
		return Verification{}, err
	}
	for _, d := range found {
		if d.Resolution != DiscrepancyApproved {
			return Verification{}, fmt.Errorf("%w: resident %s declared %.2f but verified %.2f",
				ErrUnresolvedDiscrepancy, d.ResidentName, d.DeclaredIncome, d.VerifiedIncome)
		}
	}

	total := leaseTotal(members)
	now := time.Now().UTC()
	v.Status = StatusFinalized
	v.CalculatedVerifiedIncome = &total
	v.FinalizedAt = &now
	if err := s.Repo.Update(ctx, v); err != nil {
		return Verification{}, err
	}

	metrics.IncVerificationFinalized()
	telemetry.Info("verification.status_transition", map[string]any{
		"verification_id": v.ID,
		"lease_id":        v.LeaseID,
		"from":            StatusInProgress,
		"to":              StatusFinalized,
		"verified_income": total,
	})
	return v, nil
}

// Discrepancies reports declared-vs-verified differences for a
// verification's residents, with each item's resolution state derived from
// the override trail.
func (s *Service) Discrepancies(ctx context.Context, id string) (DiscrepancyReport, error) {
	v, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return DiscrepancyReport{}, err
	}
	members, err := s.Residents.ListByLease(ctx, v.LeaseID)
	if err != nil {
		return DiscrepancyReport{}, err
	}

	ready := len(members) > 0
	for _, res := range members {
		if !res.IncomeFinalized {
			ready = false
			break
		}
	}
	items, err := s.decorate(ctx, v.ID, detectDiscrepancies(members))
	if err != nil {
		return DiscrepancyReport{}, err
	}
	return DiscrepancyReport{Ready: ready, Items: items}, nil
}

// ResolveDiscrepancy applies one of the three resolutions to a discrepant
// resident: adopt the verified figure as declared, reopen the resident for
// document changes, or escalate to an administrator.
func (s *Service) ResolveDiscrepancy(ctx context.Context, verificationID, residentID, resolution, requesterID string) (residents.Resident, error) {
	v, res, err := s.residentOn(ctx, verificationID, residentID)
	if err != nil {
		return residents.Resident{}, err
	}
	if !v.Active() {
		return residents.Resident{}, ErrAlreadyFinalized
	}
	if !res.IncomeFinalized {
		return residents.Resident{}, ErrResidentNotFinalized
	}

	current := detectDiscrepancies([]residents.Resident{res})
	if len(current) == 0 {
		return residents.Resident{}, fmt.Errorf("%w: resident has no income discrepancy", ErrInvalidInput)
	}
	d := current[0]

	switch strings.TrimSpace(strings.ToUpper(resolution)) {
	case ResolutionAcceptVerified:
		verified := d.VerifiedIncome
		res.DeclaredAnnualizedIncome = &verified
		if err := s.Residents.Update(ctx, res); err != nil {
			return residents.Resident{}, err
		}
	case ResolutionModifyDocuments:
		updated, err := s.UnfinalizeResident(ctx, verificationID, residentID)
		if err != nil {
			return residents.Resident{}, err
		}
		res = updated
	case ResolutionEscalate:
		if s.Overrides == nil {
			return residents.Resident{}, fmt.Errorf("override workflow not configured")
		}
		metrics.IncDiscrepancyDetected()
		_, err := s.Overrides.Create(ctx, overrides.OverrideRequest{
			Type: overrides.TypeIncomeDiscrepancy,
			Explanation: fmt.Sprintf("declared income %.2f differs from verified income %.2f by %.2f",
				d.DeclaredIncome, d.VerifiedIncome, d.Difference),
			ResidentID:     &res.ID,
			VerificationID: &v.ID,
			RequesterID:    requesterID,
		})
		if err != nil {
			return residents.Resident{}, err
		}
	default:
		return residents.Resident{}, fmt.Errorf("%w: unknown resolution %q", ErrInvalidInput, resolution)
	}

	telemetry.Info("discrepancy.resolved", map[string]any{
		"verification_id": v.ID,
		"resident_id":     res.ID,
		"resolution":      resolution,
		"difference":      d.Difference,
	})
	return res, nil
}

// IntakeContext resolves the verification-side projection document intake
// needs, translating this package's not-found errors into the sentinels the
// documents package expects.
func (s *Service) IntakeContext(ctx context.Context, verificationID, residentID string) (documents.IntakeContext, error) {
	v, err := s.Repo.GetByID(ctx, verificationID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return documents.IntakeContext{}, documents.ErrVerificationNotFound
		}
		return documents.IntakeContext{}, err
	}
	res, err := s.Residents.GetByID(ctx, residentID)
	if err != nil {
		if errors.Is(err, residents.ErrNotFound) {
			return documents.IntakeContext{}, documents.ErrResidentNotFound
		}
		return documents.IntakeContext{}, err
	}
	if res.LeaseID != v.LeaseID {
		return documents.IntakeContext{}, documents.ErrResidentNotFound
	}
	lease, err := s.Leases.GetByID(ctx, v.LeaseID)
	if err != nil {
		return documents.IntakeContext{}, err
	}
	return documents.IntakeContext{
		LeaseID:            v.LeaseID,
		LeaseStartDate:     lease.LeaseStartDate,
		ResidentName:       res.Name,
		VerificationActive: v.Active(),
		ResidentFinalized:  res.IncomeFinalized,
	}, nil
}

// residentOn loads a verification and a resident on the same lease.
func (s *Service) residentOn(ctx context.Context, verificationID, residentID string) (Verification, residents.Resident, error) {
	v, err := s.Repo.GetByID(ctx, verificationID)
	if err != nil {
		return Verification{}, residents.Resident{}, err
	}
	res, err := s.Residents.GetByID(ctx, residentID)
	if err != nil {
		return Verification{}, residents.Resident{}, err
	}
	if res.LeaseID != v.LeaseID {
		return Verification{}, residents.Resident{}, residents.ErrNotFound
	}
	return v, res, nil
}

// checkNoPendingReviews blocks finalization while any of the resident's
// documents sits in review with an unadjudicated override.
func (s *Service) checkNoPendingReviews(ctx context.Context, residentID string) error {
	if s.Overrides == nil {
		return nil
	}
	reviews, err := s.Docs.ListNeedsReviewByResident(ctx, residentID)
	if err != nil {
		return err
	}
	for _, doc := range reviews {
		pending, err := s.Overrides.HasPendingForDocument(ctx, doc.ID)
		if err != nil {
			return err
		}
		if pending {
			return fmt.Errorf("%w: document %s is awaiting admin review", ErrFinalizeBlocked, doc.ID)
		}
	}
	return nil
}

// refreshTotal recomputes the running lease total on an active verification.
func (s *Service) refreshTotal(ctx context.Context, v Verification) error {
	members, err := s.Residents.ListByLease(ctx, v.LeaseID)
	if err != nil {
		return err
	}
	total := leaseTotal(members)
	v.CalculatedVerifiedIncome = &total
	return s.Repo.Update(ctx, v)
}

// decorate stamps each discrepancy with the newest income-discrepancy
// override's state for that resident: pending means escalated, approved
// means an administrator accepted the difference.
func (s *Service) decorate(ctx context.Context, verificationID string, items []Discrepancy) ([]Discrepancy, error) {
	if len(items) == 0 || s.Overrides == nil {
		return items, nil
	}
	reqs, err := s.Overrides.ListByVerification(ctx, verificationID)
	if err != nil {
		return nil, err
	}
	for i := range items {
		for _, req := range reqs {
			if req.Type != overrides.TypeIncomeDiscrepancy || req.ResidentID == nil || *req.ResidentID != items[i].ResidentID {
				continue
			}
			switch req.Status {
			case overrides.StatusPending:
				items[i].Resolution = DiscrepancyEscalated
			case overrides.StatusApproved:
				items[i].Resolution = DiscrepancyApproved
			}
			// Requests are newest first; the latest decision stands.
			break
		}
	}
	return items, nil
}

package verifications

import (
	"context"

	"github.com/Kayler1303/ACS-sub001/internal/documents"
	"github.com/Kayler1303/ACS-sub001/internal/income"
	"github.com/Kayler1303/ACS-sub001/internal/residents"
	"github.com/Kayler1303/ACS-sub001/internal/shared/telemetry"
)

// MemoryCommitter applies document outcomes against the in-memory repos.
// The SQL committer gets atomicity from a transaction; here the sequential
// writes are enough for tests and single-process local runs, and the full
// recompute keeps totals right even when a write is repeated.
type MemoryCommitter struct {
	Docs      *documents.MemoryRepo
	Residents residents.Repo
	Repo      Repo
}

var _ documents.OutcomeCommitter = (*MemoryCommitter)(nil)

func (mc *MemoryCommitter) CompleteAndRecompute(ctx context.Context, doc documents.Document) error {
	if err := mc.Docs.ApplyCompletion(ctx, doc); err != nil {
		return err
	}
	return mc.recompute(ctx, doc.ResidentID, doc.VerificationID)
}

func (mc *MemoryCommitter) DeleteAndRecompute(ctx context.Context, documentID string) (documents.Document, error) {
	doc, err := mc.Docs.ApplyDeletion(ctx, documentID)
	if err != nil {
		return documents.Document{}, err
	}
	if err := mc.recompute(ctx, doc.ResidentID, doc.VerificationID); err != nil {
		return documents.Document{}, err
	}
	return doc, nil
}

// recompute rebuilds the resident's calculated income from their completed
// documents and refreshes the running lease total. A finalized resident's
// calculated figure still tracks the documents; only the frozen verified
// income is immune.
func (mc *MemoryCommitter) recompute(ctx context.Context, residentID, verificationID string) error {
	docs, err := mc.Docs.ListCompletedByResident(ctx, residentID)
	if err != nil {
		return err
	}
	res, err := mc.Residents.GetByID(ctx, residentID)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		res.CalculatedAnnualizedIncome = nil
	} else {
		summary := income.Annualize(projections(docs))
		res.CalculatedAnnualizedIncome = &summary.Total
	}
	if err := mc.Residents.Update(ctx, res); err != nil {
		return err
	}
	telemetry.Info("income.recompute", map[string]any{
		"resident_id":     residentID,
		"verification_id": verificationID,
		"documents":       len(docs),
		"calculated":      res.CalculatedAnnualizedIncome,
	})

	v, err := mc.Repo.GetByID(ctx, verificationID)
	if err != nil {
		return err
	}
	if !v.Active() {
		return nil
	}
	members, err := mc.Residents.ListByLease(ctx, v.LeaseID)
	if err != nil {
		return err
	}
	total := leaseTotal(members)
	v.CalculatedVerifiedIncome = &total
	return mc.Repo.Update(ctx, v)
}

func projections(docs []documents.Document) []income.Doc {
	out := make([]income.Doc, 0, len(docs))
	for _, doc := range docs {
		out = append(out, income.Doc{
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
		})
	}
	return out
}

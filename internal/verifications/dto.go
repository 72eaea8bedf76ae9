package verifications

import (
	"time"

	"github.com/Kayler1303/ACS-sub001/internal/documents"
	"github.com/Kayler1303/ACS-sub001/internal/residents"
)

// Response is the outward-facing representation of a verification. Period
// boundaries and the due date are calendar days.
type Response struct {
	ID                       string     `json:"id"`
	LeaseID                  string     `json:"leaseId"`
	Status                   string     `json:"status"`
	Reason                   string     `json:"reason"`
	VerificationPeriodStart  string     `json:"verificationPeriodStart"`
	VerificationPeriodEnd    string     `json:"verificationPeriodEnd"`
	DueDate                  string     `json:"dueDate"`
	LeaseYear                int        `json:"leaseYear"`
	CalculatedVerifiedIncome *float64   `json:"calculatedVerifiedIncome"`
	FinalizedAt              *time.Time `json:"finalizedAt"`
	CreatedAt                time.Time  `json:"createdAt"`
}

// ToResponse maps a verification onto its transport shape.
func ToResponse(v Verification) Response {
	return Response{
		ID:                       v.ID,
		LeaseID:                  v.LeaseID,
		Status:                   v.Status,
		Reason:                   v.Reason,
		VerificationPeriodStart:  v.PeriodStart.Format("2006-01-02"),
		VerificationPeriodEnd:    v.PeriodEnd.Format("2006-01-02"),
		DueDate:                  v.DueDate.Format("2006-01-02"),
		LeaseYear:                v.LeaseYear,
		CalculatedVerifiedIncome: v.CalculatedVerifiedIncome,
		FinalizedAt:              v.FinalizedAt,
		CreatedAt:                v.CreatedAt,
	}
}

// ResidentSnapshot is one household member with their documents on this
// verification.
type ResidentSnapshot struct {
	residents.Response
	Documents []documents.Response `json:"documents"`
}

// SnapshotResponse is the full verification detail.
type SnapshotResponse struct {
	Response
	Residents []ResidentSnapshot `json:"residents"`
}

// ToSnapshotResponse maps a verification and its resident views onto the
// detail shape.
func ToSnapshotResponse(v Verification, views []ResidentView) SnapshotResponse {
	out := SnapshotResponse{
		Response:  ToResponse(v),
		Residents: make([]ResidentSnapshot, 0, len(views)),
	}
	for _, view := range views {
		snap := ResidentSnapshot{
			Response:  residents.ToResponse(view.Resident),
			Documents: make([]documents.Response, 0, len(view.Documents)),
		}
		for _, doc := range view.Documents {
			snap.Documents = append(snap.Documents, documents.ToResponse(doc))
		}
		out.Residents = append(out.Residents, snap)
	}
	return out
}

// DiscrepancyResponse is one flagged declared-versus-verified difference.
type DiscrepancyResponse struct {
	ResidentID     string  `json:"residentId"`
	ResidentName   string  `json:"residentName"`
	DeclaredIncome float64 `json:"declaredIncome"`
	VerifiedIncome float64 `json:"verifiedIncome"`
	Difference     float64 `json:"difference"`
	Resolution     string  `json:"resolution"`
}

// DiscrepancyReportResponse is the reconciliation report for a verification.
// Ready means every resident is finalized and at least one discrepancy
// needs attention before the lease can close out.
type DiscrepancyReportResponse struct {
	Ready         bool                  `json:"ready"`
	Discrepancies []DiscrepancyResponse `json:"discrepancies"`
}

// ToDiscrepancyReportResponse maps a report onto its transport shape.
func ToDiscrepancyReportResponse(report DiscrepancyReport) DiscrepancyReportResponse {
	out := DiscrepancyReportResponse{
		Ready:         report.Ready,
		Discrepancies: make([]DiscrepancyResponse, 0, len(report.Items)),
	}
	for _, item := range report.Items {
		out.Discrepancies = append(out.Discrepancies, DiscrepancyResponse{
			ResidentID:     item.ResidentID,
			ResidentName:   item.ResidentName,
			DeclaredIncome: item.DeclaredIncome,
			VerifiedIncome: item.VerifiedIncome,
			Difference:     item.Difference,
			Resolution:     item.Resolution,
		})
	}
	return out
}

package residents

import "time"

// Response is the outward-facing representation of a resident. The
// declared rent-roll figure keeps the annualizedIncome name callers know.
type Response struct {
	ID                         string     `json:"id"`
	LeaseID                    string     `json:"leaseId"`
	Name                       string     `json:"name"`
	AnnualizedIncome           *float64   `json:"annualizedIncome"`
	CalculatedAnnualizedIncome *float64   `json:"calculatedAnnualizedIncome"`
	VerifiedIncome             *float64   `json:"verifiedIncome"`
	IncomeFinalized            bool       `json:"incomeFinalized"`
	HasNoIncome                bool       `json:"hasNoIncome"`
	FinalizedAt                *time.Time `json:"finalizedAt"`
	CreatedAt                  time.Time  `json:"createdAt"`
}

// ToResponse maps a resident onto its transport shape.
func ToResponse(r Resident) Response {
	return Response{
		ID:                         r.ID,
		LeaseID:                    r.LeaseID,
		Name:                       r.Name,
		AnnualizedIncome:           r.DeclaredAnnualizedIncome,
		CalculatedAnnualizedIncome: r.CalculatedAnnualizedIncome,
		VerifiedIncome:             r.VerifiedIncome,
		IncomeFinalized:            r.IncomeFinalized,
		HasNoIncome:                r.HasNoIncome,
		FinalizedAt:                r.FinalizedAt,
		CreatedAt:                  r.CreatedAt,
	}
}

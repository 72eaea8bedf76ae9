package verifications

import (
	"math"

	"github.com/Kayler1303/ACS-sub001/internal/income"
	"github.com/Kayler1303/ACS-sub001/internal/residents"
)

// discrepancyThreshold is the largest declared-vs-verified difference, in
// dollars, still written off as rounding noise.
const discrepancyThreshold = 1.00

// Resolutions a caller may apply to a discrepancy.
const (
	ResolutionAcceptVerified  = "ACCEPT_VERIFIED"
	ResolutionModifyDocuments = "MODIFY_DOCUMENTS"
	ResolutionEscalate        = "ESCALATE"
)

// Resolution states derived from the override trail.
const (
	DiscrepancyUnresolved = "UNRESOLVED"
	DiscrepancyEscalated  = "ESCALATED"
	DiscrepancyApproved   = "APPROVED"
)

// Discrepancy is one resident whose verified income differs materially from
// the figure declared on the rent roll.
type Discrepancy struct {
	ResidentID     string
	ResidentName   string
	DeclaredIncome float64
	VerifiedIncome float64
	Difference     float64
	Resolution     string
}

// DiscrepancyReport is the reconciler's output for a verification. Items are
// authoritative only once every resident is finalized.
type DiscrepancyReport struct {
	Ready bool
	Items []Discrepancy
}

// detectDiscrepancies compares each finalized resident's declared income to
// their frozen verified figure. Residents with no declared income on record
// are skipped: there is nothing to reconcile against. Unfinalized residents
// are skipped too; their verified figure does not exist yet.
func detectDiscrepancies(members []residents.Resident) []Discrepancy {
	var out []Discrepancy
	for _, res := range members {
		if res.DeclaredAnnualizedIncome == nil || !res.IncomeFinalized {
			continue
		}
		verified := 0.0
		if res.VerifiedIncome != nil {
			verified = *res.VerifiedIncome
		}
		diff := math.Abs(*res.DeclaredAnnualizedIncome - verified)
		if diff <= discrepancyThreshold {
			continue
		}
		out = append(out, Discrepancy{
			ResidentID:     res.ID,
			ResidentName:   res.Name,
			DeclaredIncome: income.RoundCents(*res.DeclaredAnnualizedIncome),
			VerifiedIncome: income.RoundCents(verified),
			Difference:     income.RoundCents(diff),
			Resolution:     DiscrepancyUnresolved,
		})
	}
	return out
}

// leaseTotal sums what each resident currently contributes to the lease
// figure: the frozen verified income once finalized, the live calculated
// income otherwise.
func leaseTotal(members []residents.Resident) float64 {
	var total float64
	for _, res := range members {
		switch {
		case res.IncomeFinalized:
			if res.VerifiedIncome != nil {
				total += *res.VerifiedIncome
			}
		case res.CalculatedAnnualizedIncome != nil:
			total += *res.CalculatedAnnualizedIncome
		}
	}
	return income.RoundCents(total)
}

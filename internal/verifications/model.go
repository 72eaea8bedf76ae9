// Package verifications owns the recertification lifecycle: starting and
// finalizing verification periods, finalizing individual residents, the
// declared-vs-verified reconciliation that gates lease-wide finalization,
// and the transactional income recompute that document outcomes trigger.
package verifications

import "time"

// Verification statuses. The machine is one-way: IN_PROGRESS -> FINALIZED.
const (
	StatusInProgress = "IN_PROGRESS"
	StatusFinalized  = "FINALIZED"
)

// ReasonAnnual is the default recertification reason when intake does not
// supply one.
const ReasonAnnual = "ANNUAL_RECERTIFICATION"

// Verification is one income recertification cycle for a lease. At most one
// verification per lease is IN_PROGRESS at a time; a partial unique index
// backs the invariant so racing starts cannot both win.
type Verification struct {
	ID                       string
	LeaseID                  string
	Status                   string
	Reason                   string
	PeriodStart              time.Time
	PeriodEnd                time.Time
	DueDate                  time.Time
	LeaseYear                int
	CalculatedVerifiedIncome *float64
	FinalizedAt              *time.Time
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

// Active reports whether the verification still accepts documents and
// resident transitions.
func (v Verification) Active() bool {
	return v.Status == StatusInProgress
}

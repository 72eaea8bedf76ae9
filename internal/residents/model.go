package residents

import "time"

// Resident is one household member on a lease. Declared income comes from
// the rent roll at intake; calculated income is recomputed from completed
// documents; verified income is frozen at finalization.
type Resident struct {
	ID                         string
	LeaseID                    string
	Name                       string
	DeclaredAnnualizedIncome   *float64
	CalculatedAnnualizedIncome *float64
	VerifiedIncome             *float64
	IncomeFinalized            bool
	HasNoIncome                bool
	FinalizedAt                *time.Time
	CreatedAt                  time.Time
	UpdatedAt                  time.Time
}

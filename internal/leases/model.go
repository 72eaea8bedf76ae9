package leases

import "time"

// Lease is one lease term at a property unit. The start date anchors the
// document timeliness rules and the W-2 tax-year policy.
type Lease struct {
	ID             string
	Name           string
	Address        string
	UnitNumber     string
	LeaseStartDate time.Time
	LeaseEndDate   *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

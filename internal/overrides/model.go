package overrides

import "time"

// Override request types.
const (
	TypeValidationException = "VALIDATION_EXCEPTION"
	TypeIncomeDiscrepancy   = "INCOME_DISCREPANCY"
	TypeDocumentReview      = "DOCUMENT_REVIEW"
)

// Override request statuses.
const (
	StatusPending  = "PENDING"
	StatusApproved = "APPROVED"
	StatusDenied   = "DENIED"
)

// SystemRequester marks requests raised by the pipeline rather than a person.
const SystemRequester = "system"

// OverrideRequest is one escalation awaiting administrative adjudication.
// Document-scoped requests (validation exceptions, document reviews) carry
// a DocumentID; income-discrepancy requests carry the resident and
// verification instead.
type OverrideRequest struct {
	ID             string
	Type           string
	Status         string
	Explanation    string
	RequesterID    string
	DocumentID     *string
	ResidentID     *string
	VerificationID *string
	AdminNotes     *string
	ReviewedBy     *string
	ReviewedAt     *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// KnownType reports whether t is a valid override request type.
func KnownType(t string) bool {
	switch t {
	case TypeValidationException, TypeIncomeDiscrepancy, TypeDocumentReview:
		return true
	}
	return false
}

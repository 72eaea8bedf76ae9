// Package documents owns income document intake and the asynchronous
// processing pipeline: uploads are pre-screened and stored, then a background
// pass sends the file to the analyzer, validates the extracted fields, checks
// for duplicates, timeliness, and identity, and commits the outcome to the
// verification it belongs to.
package documents

import "time"

// Document lifecycle statuses.
const (
	StatusProcessing  = "PROCESSING"
	StatusCompleted   = "COMPLETED"
	StatusNeedsReview = "NEEDS_REVIEW"
)

// Document is one uploaded income document. Extracted fields are populated
// only once the pipeline completes; a duplicate-rejected document keeps its
// row (soft-deleted) so the uploader can still poll the outcome.
type Document struct {
	ID             string
	VerificationID string
	ResidentID     string
	DocumentType   string
	Status         string

	StorageKey string
	FileName   string
	MimeType   string
	SizeBytes  int64

	// DocumentDate is the caller-supplied evidence date, used for lease
	// assignment confirmation and as a timeliness fallback.
	DocumentDate *time.Time
	UploadedBy   string

	EmployeeName     string
	EmployerName     string
	TaxYear          string
	Box1Wages        *float64
	Box3SSWages      *float64
	Box5MediWages    *float64
	GrossPay         *float64
	PayPeriodStart   *time.Time
	PayPeriodEnd     *time.Time
	PayFrequency     string
	BenefitAmount    *float64
	BenefitFrequency string

	// CalculatedAnnualizedIncome is this document's own annualized figure,
	// set when it completes. Resident totals are recomputed separately.
	CalculatedAnnualizedIncome *float64

	Confidence      *float64
	AnalyzerModel   string
	AnalyzerDocType string

	ReviewReason string
	ErrorCode    string
	DuplicateOf  string

	StartedAt   *time.Time
	CompletedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time
}

// Deleted reports whether the document has been soft-deleted, either by the
// uploader or by duplicate rejection.
func (d Document) Deleted() bool { return d.DeletedAt != nil }

// DuplicateRejected reports whether the pipeline discarded this document as a
// duplicate of an earlier one.
func (d Document) DuplicateRejected() bool { return d.DuplicateOf != "" }

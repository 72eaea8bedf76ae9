package documents

import "time"

// StatusRejectedDuplicate is the outward-facing status for a document the
// pipeline discarded as a duplicate; internally the row is soft-deleted.
const StatusRejectedDuplicate = "REJECTED_DUPLICATE"

// Response is the API representation of a document.
type Response struct {
	ID             string `json:"id"`
	VerificationID string `json:"verificationId"`
	ResidentID     string `json:"residentId"`
	DocumentType   string `json:"documentType"`
	Status         string `json:"status"`
	FileName       string `json:"fileName"`
	MimeType       string `json:"mimeType"`
	SizeBytes      int64  `json:"sizeBytes"`

	DocumentDate *string `json:"documentDate,omitempty"`
	UploadedBy   string  `json:"uploadedBy,omitempty"`

	EmployeeName     string   `json:"employeeName,omitempty"`
	EmployerName     string   `json:"employerName,omitempty"`
	TaxYear          string   `json:"taxYear,omitempty"`
	Box1Wages        *float64 `json:"box1Wages,omitempty"`
	Box3SSWages      *float64 `json:"box3SocialSecurityWages,omitempty"`
	Box5MediWages    *float64 `json:"box5MedicareWages,omitempty"`
	GrossPay         *float64 `json:"grossPayAmount,omitempty"`
	PayPeriodStart   *string  `json:"payPeriodStart,omitempty"`
	PayPeriodEnd     *string  `json:"payPeriodEnd,omitempty"`
	PayFrequency     string   `json:"payFrequency,omitempty"`
	BenefitAmount    *float64 `json:"benefitAmount,omitempty"`
	BenefitFrequency string   `json:"benefitFrequency,omitempty"`

	CalculatedAnnualizedIncome *float64 `json:"calculatedAnnualizedIncome,omitempty"`
	Confidence                 *float64 `json:"confidence,omitempty"`

	ReviewReason string `json:"reviewReason,omitempty"`
	ErrorCode    string `json:"errorCode,omitempty"`
	DuplicateOf  string `json:"duplicateOf,omitempty"`

	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// ToResponse maps a document to its API representation.
func ToResponse(doc Document) Response {
	resp := Response{
		ID:             doc.ID,
		VerificationID: doc.VerificationID,
		ResidentID:     doc.ResidentID,
		DocumentType:   doc.DocumentType,
		Status:         presentStatus(doc),
		FileName:       doc.FileName,
		MimeType:       doc.MimeType,
		SizeBytes:      doc.SizeBytes,
		DocumentDate:   dayPtr(doc.DocumentDate),
		UploadedBy:     doc.UploadedBy,

		EmployeeName:     doc.EmployeeName,
		EmployerName:     doc.EmployerName,
		TaxYear:          doc.TaxYear,
		Box1Wages:        doc.Box1Wages,
		Box3SSWages:      doc.Box3SSWages,
		Box5MediWages:    doc.Box5MediWages,
		GrossPay:         doc.GrossPay,
		PayPeriodStart:   dayPtr(doc.PayPeriodStart),
		PayPeriodEnd:     dayPtr(doc.PayPeriodEnd),
		PayFrequency:     doc.PayFrequency,
		BenefitAmount:    doc.BenefitAmount,
		BenefitFrequency: doc.BenefitFrequency,

		CalculatedAnnualizedIncome: doc.CalculatedAnnualizedIncome,
		Confidence:                 doc.Confidence,

		ReviewReason: doc.ReviewReason,
		ErrorCode:    doc.ErrorCode,
		DuplicateOf:  doc.DuplicateOf,

		StartedAt:   doc.StartedAt,
		CompletedAt: doc.CompletedAt,
		CreatedAt:   doc.CreatedAt,
	}
	return resp
}

func presentStatus(doc Document) string {
	if doc.DuplicateRejected() {
		return StatusRejectedDuplicate
	}
	return doc.Status
}

func dayPtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format("2006-01-02")
	return &s
}

package overrides

import (
	"fmt"
	"time"
)

// Response is the outward-facing representation of an override request.
type Response struct {
	ID             string     `json:"id"`
	Type           string     `json:"type"`
	Status         string     `json:"status"`
	Explanation    string     `json:"explanation"`
	RequesterID    string     `json:"requesterId"`
	DocumentID     *string    `json:"documentId"`
	ResidentID     *string    `json:"residentId"`
	VerificationID *string    `json:"verificationId"`
	AdminNotes     *string    `json:"adminNotes"`
	ReviewedBy     *string    `json:"reviewedBy"`
	ReviewedAt     *time.Time `json:"reviewedAt"`
	CreatedAt      time.Time  `json:"createdAt"`
}

func toResponse(req OverrideRequest) Response {
	return Response{
		ID:             req.ID,
		Type:           req.Type,
		Status:         req.Status,
		Explanation:    req.Explanation,
		RequesterID:    req.RequesterID,
		DocumentID:     req.DocumentID,
		ResidentID:     req.ResidentID,
		VerificationID: req.VerificationID,
		AdminNotes:     req.AdminNotes,
		ReviewedBy:     req.ReviewedBy,
		ReviewedAt:     req.ReviewedAt,
		CreatedAt:      req.CreatedAt,
	}
}

type correctedFieldsRequest struct {
	EmployeeName     *string  `json:"employeeName"`
	EmployerName     *string  `json:"employerName"`
	TaxYear          *string  `json:"taxYear"`
	Box1Wages        *float64 `json:"box1Wages"`
	Box3SSWages      *float64 `json:"box3SocialSecurityWages"`
	Box5MediWages    *float64 `json:"box5MedicareWages"`
	GrossPay         *float64 `json:"grossPayAmount"`
	PayPeriodStart   *string  `json:"payPeriodStart"`
	PayPeriodEnd     *string  `json:"payPeriodEnd"`
	PayFrequency     *string  `json:"payFrequency"`
	BenefitAmount    *float64 `json:"benefitAmount"`
	BenefitFrequency *string  `json:"benefitFrequency"`
	AnnualizedIncome *float64 `json:"annualizedIncome"`
}

func (r *correctedFieldsRequest) toCorrections() (*CorrectedFields, error) {
	out := &CorrectedFields{
		EmployeeName:     r.EmployeeName,
		EmployerName:     r.EmployerName,
		TaxYear:          r.TaxYear,
		Box1Wages:        r.Box1Wages,
		Box3SSWages:      r.Box3SSWages,
		Box5MediWages:    r.Box5MediWages,
		GrossPay:         r.GrossPay,
		PayFrequency:     r.PayFrequency,
		BenefitAmount:    r.BenefitAmount,
		BenefitFrequency: r.BenefitFrequency,
		AnnualizedIncome: r.AnnualizedIncome,
	}
	if r.PayPeriodStart != nil {
		parsed, err := time.Parse("2006-01-02", *r.PayPeriodStart)
		if err != nil {
			return nil, fmt.Errorf("payPeriodStart must be YYYY-MM-DD")
		}
		out.PayPeriodStart = &parsed
	}
	if r.PayPeriodEnd != nil {
		parsed, err := time.Parse("2006-01-02", *r.PayPeriodEnd)
		if err != nil {
			return nil, fmt.Errorf("payPeriodEnd must be YYYY-MM-DD")
		}
		out.PayPeriodEnd = &parsed
	}
	return out, nil
}

package analyzer

import (
	"context"
	"errors"
	"time"
)

// Document types accepted by the intake endpoint. The analyzer owns the
// enum because model selection is keyed on it.
const (
	DocTypeW2             = "W2"
	DocTypePaystub        = "PAYSTUB"
	DocTypeSocialSecurity = "SOCIAL_SECURITY"
	DocTypeBankStatement  = "BANK_STATEMENT"
	DocTypeOfferLetter    = "OFFER_LETTER"
	DocTypeOther          = "OTHER"
)

// Prebuilt model IDs.
const (
	ModelW2      = "prebuilt-tax.us.w2"
	ModelPaystub = "prebuilt-payStub.us"
	ModelSSA1099 = "prebuilt-tax.us.1099SSA"
	ModelLayout  = "prebuilt-layout"
)

// KnownDocType reports whether t is one of the accepted document types.
func KnownDocType(t string) bool {
	switch t {
	case DocTypeW2, DocTypePaystub, DocTypeSocialSecurity, DocTypeBankStatement, DocTypeOfferLetter, DocTypeOther:
		return true
	}
	return false
}

// ModelFor maps a document type to the analyzer model used for it.
// Bank statements, offer letters and anything unclassified go through
// the generic layout model; their figures are entered by a reviewer.
func ModelFor(docType string) string {
	switch docType {
	case DocTypeW2:
		return ModelW2
	case DocTypePaystub:
		return ModelPaystub
	case DocTypeSocialSecurity:
		return ModelSSA1099
	default:
		return ModelLayout
	}
}

// Canonical field names produced by normalization, shared by every model.
const (
	FieldEmployeeName    = "employeeName"
	FieldEmployerName    = "employerName"
	FieldTaxYear         = "taxYear"
	FieldBox1Wages       = "box1Wages"
	FieldBox3SSWages     = "box3SocialSecurityWages"
	FieldBox5MediWages   = "box5MedicareWages"
	FieldGrossPay        = "grossPay"
	FieldPayPeriodStart  = "payPeriodStart"
	FieldPayPeriodEnd    = "payPeriodEnd"
	FieldPayDate         = "payDate"
	FieldBeneficiaryName = "beneficiaryName"
	FieldBenefitAmount   = "benefitAmount"
	FieldDocumentDate    = "documentDate"
)

// Field is one extracted value with the analyzer's confidence in it.
// Exactly one of Text, Number, Date is meaningful depending on the
// source field kind; Text is always populated with the raw content.
type Field struct {
	Text       string
	Number     *float64
	Date       *time.Time
	Confidence float64
}

// FieldMap indexes normalized fields by canonical name.
type FieldMap map[string]Field

// Text returns the text of a field and whether it was present.
func (m FieldMap) Text(name string) (string, bool) {
	f, ok := m[name]
	if !ok {
		return "", false
	}
	return f.Text, true
}

// Number returns the numeric value of a field and whether one was extracted.
func (m FieldMap) Number(name string) (float64, bool) {
	f, ok := m[name]
	if !ok || f.Number == nil {
		return 0, false
	}
	return *f.Number, true
}

// Date returns the date value of a field and whether one was extracted.
func (m FieldMap) Date(name string) (time.Time, bool) {
	f, ok := m[name]
	if !ok || f.Date == nil {
		return time.Time{}, false
	}
	return *f.Date, true
}

// Confidence returns the analyzer's confidence for a field, 0 if absent.
func (m FieldMap) Confidence(name string) float64 {
	return m[name].Confidence
}

// KeyValue is one raw key-value pair from the layout model, used when no
// typed model matched the document.
type KeyValue struct {
	Key        string
	Value      string
	Confidence float64
}

// Result is the normalized output of one analysis.
type Result struct {
	ModelID       string
	MatchedType   string
	DocConfidence float64
	Fields        FieldMap
	KeyValues     []KeyValue
	Content       string
}

// Client abstracts the external document analyzer.
type Client interface {
	Analyze(ctx context.Context, data []byte, modelID string) (Result, error)
}

// ErrNotConfigured is returned by the placeholder client.
var ErrNotConfigured = errors.New("document analyzer not configured")

// PlaceholderClient is a stub implementation used when no analyzer
// endpoint is configured. Every document sent through it lands in
// admin review with an extraction failure.
type PlaceholderClient struct{}

// Analyze returns ErrNotConfigured.
func (PlaceholderClient) Analyze(ctx context.Context, data []byte, modelID string) (Result, error) {
	_ = ctx
	_ = data
	_ = modelID
	return Result{}, ErrNotConfigured
}

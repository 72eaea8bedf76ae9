// Package extraction turns raw analyzer output into a validation verdict
// per document type. A field whose confidence does not clear the threshold
// is treated as absent rather than accepted as a low-confidence guess, and
// any missing required field routes the document to admin review with an
// explanation naming the field and its confidence.
package extraction

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Kayler1303/ACS-sub001/internal/analyzer"
	"github.com/Kayler1303/ACS-sub001/internal/income"
)

// ConfidenceThreshold is the analyzer confidence an extracted field must
// exceed (strictly) to be accepted. Every call site reads this constant;
// the threshold is deliberately not configurable per field.
const ConfidenceThreshold = 0.9

// Data holds the accepted extracted values for a document. Fields that
// were missing or below the confidence threshold are left zero.
type Data struct {
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
	DocumentDate     *time.Time
}

// Verdict is the outcome of validating one analyzed document.
type Verdict struct {
	IsValid          bool
	NeedsAdminReview bool
	Confidence       float64
	Errors           []string
	Warnings         []string
	Data             Data
}

// Explanation flattens the verdict's errors and warnings into the single
// reason string shown to reviewers.
func (v Verdict) Explanation() string {
	parts := append(append([]string{}, v.Errors...), v.Warnings...)
	return strings.Join(parts, "; ")
}

// Validate applies the per-type contract to an analyzer result.
func Validate(docType string, res analyzer.Result) Verdict {
	switch docType {
	case analyzer.DocTypeW2:
		return validateW2(res)
	case analyzer.DocTypePaystub:
		return validatePaystub(res)
	case analyzer.DocTypeSocialSecurity:
		return validateSocialSecurity(res)
	case analyzer.DocTypeBankStatement:
		return manualEntry(res, "bank statements require manual income entry by a reviewer")
	case analyzer.DocTypeOfferLetter:
		return manualEntry(res, "offer letters require manual income entry by a reviewer")
	default:
		return manualEntry(res, fmt.Sprintf("document type %q has no automated extraction; manual review required", docType))
	}
}

func validateW2(res analyzer.Result) Verdict {
	v := Verdict{Confidence: res.DocConfidence}

	v.Data.EmployeeName = requireText(&v, res.Fields, analyzer.FieldEmployeeName, "employee name")
	v.Data.EmployerName = requireText(&v, res.Fields, analyzer.FieldEmployerName, "employer name")
	v.Data.TaxYear = requireText(&v, res.Fields, analyzer.FieldTaxYear, "tax year")

	v.Data.Box1Wages = acceptNumber(res.Fields, analyzer.FieldBox1Wages)
	v.Data.Box3SSWages = acceptNumber(res.Fields, analyzer.FieldBox3SSWages)
	v.Data.Box5MediWages = acceptNumber(res.Fields, analyzer.FieldBox5MediWages)
	if v.Data.Box1Wages == nil && v.Data.Box3SSWages == nil && v.Data.Box5MediWages == nil {
		v.Errors = append(v.Errors, fmt.Sprintf("no wage box accepted: %s, %s, %s",
			fieldState(res.Fields, analyzer.FieldBox1Wages, "box 1"),
			fieldState(res.Fields, analyzer.FieldBox3SSWages, "box 3"),
			fieldState(res.Fields, analyzer.FieldBox5MediWages, "box 5")))
	}

	finalize(&v)
	return v
}

func validatePaystub(res analyzer.Result) Verdict {
	v := Verdict{Confidence: res.DocConfidence}

	v.Data.GrossPay = acceptNumber(res.Fields, analyzer.FieldGrossPay)
	if v.Data.GrossPay == nil {
		v.Errors = append(v.Errors, fieldState(res.Fields, analyzer.FieldGrossPay, "gross pay"))
	}

	v.Data.PayPeriodStart = acceptDate(res.Fields, analyzer.FieldPayPeriodStart)
	if v.Data.PayPeriodStart == nil {
		v.Errors = append(v.Errors, fieldState(res.Fields, analyzer.FieldPayPeriodStart, "pay period start"))
	}
	v.Data.PayPeriodEnd = acceptDate(res.Fields, analyzer.FieldPayPeriodEnd)
	if v.Data.PayPeriodEnd == nil {
		v.Errors = append(v.Errors, fieldState(res.Fields, analyzer.FieldPayPeriodEnd, "pay period end"))
	}

	v.Data.EmployeeName = acceptText(res.Fields, analyzer.FieldEmployeeName)
	v.Data.EmployerName = acceptText(res.Fields, analyzer.FieldEmployerName)
	if v.Data.EmployeeName == "" && v.Data.EmployerName == "" {
		v.Errors = append(v.Errors, fmt.Sprintf("neither name accepted: %s, %s",
			fieldState(res.Fields, analyzer.FieldEmployeeName, "employee name"),
			fieldState(res.Fields, analyzer.FieldEmployerName, "employer name")))
	} else if v.Data.EmployerName == "" {
		v.Warnings = append(v.Warnings, "employer name not extracted; income will group under the default source")
	}

	if v.Data.PayPeriodStart != nil && v.Data.PayPeriodEnd != nil {
		if v.Data.PayPeriodEnd.Before(*v.Data.PayPeriodStart) {
			v.Errors = append(v.Errors, fmt.Sprintf("pay period end %s precedes start %s",
				v.Data.PayPeriodEnd.Format("2006-01-02"), v.Data.PayPeriodStart.Format("2006-01-02")))
		} else {
			v.Data.PayFrequency = deriveFrequency(&v, *v.Data.PayPeriodStart, *v.Data.PayPeriodEnd)
		}
	}

	if payDate := acceptDate(res.Fields, analyzer.FieldPayDate); payDate != nil {
		v.Data.DocumentDate = payDate
	} else if docDate := acceptDate(res.Fields, analyzer.FieldDocumentDate); docDate != nil {
		v.Data.DocumentDate = docDate
	}

	finalize(&v)
	return v
}

func validateSocialSecurity(res analyzer.Result) Verdict {
	v := Verdict{Confidence: res.DocConfidence}

	if amount := acceptNumber(res.Fields, analyzer.FieldBenefitAmount); amount != nil {
		// Typed SSA-1099 result: the box 5 total is an annual figure.
		v.Data.BenefitAmount = amount
		v.Data.BenefitFrequency = income.FreqAnnual
		v.Data.TaxYear = acceptText(res.Fields, analyzer.FieldTaxYear)
		v.Data.EmployeeName = requireText(&v, res.Fields, analyzer.FieldBeneficiaryName, "beneficiary name")
		if v.Data.TaxYear == "" {
			v.Warnings = append(v.Warnings, "tax year not extracted from SSA-1099")
		}
		finalize(&v)
		return v
	}

	// Benefit letters come back through the layout model as key-value
	// pairs; the stated amount there is a monthly figure.
	if amount, ok := monthlyBenefitFromKeyValues(res.KeyValues); ok {
		v.Data.BenefitAmount = &amount
		v.Data.BenefitFrequency = income.FreqMonthly
		v.Warnings = append(v.Warnings, "monthly benefit derived from letter text")
		v.Data.EmployeeName = beneficiaryFromKeyValues(res.KeyValues)
		if v.Data.EmployeeName == "" {
			v.Errors = append(v.Errors, "beneficiary name not found in benefit letter")
		}
		finalize(&v)
		return v
	}

	v.Errors = append(v.Errors, "benefit amount not found on SSA-1099 or benefit letter")
	finalize(&v)
	return v
}

// manualEntry marks a document for reviewer-entered income without
// recording an extraction error.
func manualEntry(res analyzer.Result, reason string) Verdict {
	return Verdict{
		NeedsAdminReview: true,
		Confidence:       res.DocConfidence,
		Warnings:         []string{reason},
	}
}

func finalize(v *Verdict) {
	v.IsValid = len(v.Errors) == 0
	if !v.IsValid {
		v.NeedsAdminReview = true
	}
}

// deriveFrequency infers pay frequency from the period span. Spans longer
// than a month fall back to bi-weekly with a warning.
func deriveFrequency(v *Verdict, start, end time.Time) string {
	days := int(end.Sub(start).Hours() / 24)
	switch {
	case days <= 7:
		return income.FreqWeekly
	case days <= 14:
		return income.FreqBiWeekly
	case days <= 16:
		return income.FreqSemiMonthly
	case days <= 31:
		return income.FreqMonthly
	default:
		v.Warnings = append(v.Warnings, fmt.Sprintf("pay period spans %d days; defaulting frequency to %s", days, income.FreqBiWeekly))
		return income.FreqBiWeekly
	}
}

// requireText accepts a text field or records an error naming it.
func requireText(v *Verdict, fields analyzer.FieldMap, name string, label string) string {
	if text := acceptText(fields, name); text != "" {
		return text
	}
	v.Errors = append(v.Errors, fieldState(fields, name, label))
	return ""
}

// acceptText returns a field's text when it clears the threshold.
func acceptText(fields analyzer.FieldMap, name string) string {
	text, ok := fields.Text(name)
	if !ok || strings.TrimSpace(text) == "" {
		return ""
	}
	if fields.Confidence(name) <= ConfidenceThreshold {
		return ""
	}
	return strings.TrimSpace(text)
}

// acceptNumber returns a field's numeric value when it clears the threshold.
func acceptNumber(fields analyzer.FieldMap, name string) *float64 {
	n, ok := fields.Number(name)
	if !ok || fields.Confidence(name) <= ConfidenceThreshold {
		return nil
	}
	return &n
}

// acceptDate returns a field's date value when it clears the threshold.
func acceptDate(fields analyzer.FieldMap, name string) *time.Time {
	d, ok := fields.Date(name)
	if !ok || fields.Confidence(name) <= ConfidenceThreshold {
		return nil
	}
	return &d
}

// fieldState describes why a field was not accepted, for review reasons.
func fieldState(fields analyzer.FieldMap, name string, label string) string {
	f, present := fields[name]
	if !present {
		return fmt.Sprintf("%s not found", label)
	}
	if f.Confidence <= ConfidenceThreshold {
		return fmt.Sprintf("%s confidence %.2f does not clear %.2f", label, f.Confidence, ConfidenceThreshold)
	}
	return fmt.Sprintf("%s extracted without a usable value", label)
}

// benefit letter keys that carry the monthly amount, in priority order.
var benefitKeyHints = []string{
	"monthly benefit",
	"monthly amount",
	"benefit amount",
	"full monthly amount",
}

// monthlyBenefitFromKeyValues scans layout key-value pairs for a stated
// monthly benefit amount.
func monthlyBenefitFromKeyValues(kvs []analyzer.KeyValue) (float64, bool) {
	for _, hint := range benefitKeyHints {
		for _, kv := range kvs {
			if !strings.Contains(strings.ToLower(kv.Key), hint) {
				continue
			}
			if amount, ok := parseAmount(kv.Value); ok {
				return amount, true
			}
		}
	}
	return 0, false
}

// beneficiaryFromKeyValues scans layout key-value pairs for the
// beneficiary's name.
func beneficiaryFromKeyValues(kvs []analyzer.KeyValue) string {
	for _, kv := range kvs {
		key := strings.ToLower(kv.Key)
		if strings.Contains(key, "beneficiary") || strings.Contains(key, "name") {
			if name := strings.TrimSpace(kv.Value); name != "" {
				return name
			}
		}
	}
	return ""
}

// parseAmount pulls a currency amount out of free text. Dollar-marked
// tokens win over bare numbers so surrounding years or dates do not get
// mistaken for the amount.
func parseAmount(text string) (float64, bool) {
	tokens := strings.Fields(text)
	for _, token := range tokens {
		if strings.Contains(token, "$") {
			if amount, ok := parseToken(token); ok {
				return amount, true
			}
		}
	}
	for _, token := range tokens {
		if amount, ok := parseToken(token); ok {
			return amount, true
		}
	}
	return 0, false
}

func parseToken(token string) (float64, bool) {
	cleaned := strings.Trim(token, "$.;:()")
	cleaned = strings.ReplaceAll(cleaned, "$", "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	if cleaned == "" {
		return 0, false
	}
	amount, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || amount <= 0 {
		return 0, false
	}
	return amount, true
}

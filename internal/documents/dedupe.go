package documents

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Kayler1303/ACS-sub001/internal/analyzer"
)

// amountTolerance treats two dollar amounts as equal when they differ by at
// most one cent, absorbing OCR rounding noise.
const amountTolerance = 0.01

// isDuplicate reports whether candidate repeats existing under the per-type
// match rules. Only paystubs and W-2s have deterministic enough fields to
// dedupe; everything else is never considered a duplicate.
func isDuplicate(candidate, existing Document) (bool, string) {
	switch candidate.DocumentType {
	case analyzer.DocTypePaystub:
		if !sameDay(candidate.PayPeriodStart, existing.PayPeriodStart) ||
			!sameDay(candidate.PayPeriodEnd, existing.PayPeriodEnd) {
			return false, ""
		}
		if !sameEmployer(candidate.EmployerName, existing.EmployerName) {
			return false, ""
		}
		if !amountsClose(candidate.GrossPay, existing.GrossPay) {
			return false, ""
		}
		return true, fmt.Sprintf("paystub for the same pay period (%s to %s) and employer already on file",
			dayString(candidate.PayPeriodStart), dayString(candidate.PayPeriodEnd))
	case analyzer.DocTypeW2:
		if strings.TrimSpace(candidate.TaxYear) == "" ||
			strings.TrimSpace(candidate.TaxYear) != strings.TrimSpace(existing.TaxYear) {
			return false, ""
		}
		if !sameEmployer(candidate.EmployerName, existing.EmployerName) {
			return false, ""
		}
		if !amountsClose(candidate.Box1Wages, existing.Box1Wages) {
			return false, ""
		}
		return true, fmt.Sprintf("W-2 for tax year %s and the same employer already on file",
			strings.TrimSpace(candidate.TaxYear))
	default:
		return false, ""
	}
}

func sameEmployer(a, b string) bool {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	if a == "" || b == "" {
		return false
	}
	return strings.EqualFold(a, b)
}

func amountsClose(a, b *float64) bool {
	if a == nil || b == nil {
		return false
	}
	return math.Abs(*a-*b) <= amountTolerance
}

func sameDay(a, b *time.Time) bool {
	if a == nil || b == nil {
		return false
	}
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func dayString(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

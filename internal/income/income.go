// Package income computes annualized income figures from completed
// documents. It is pure policy: no storage, no transport. Callers load a
// resident's contributing documents, hand them to Annualize, and persist
// the result; recomputation always runs over the full document set so the
// stored totals can never drift from the documents backing them.
package income

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Kayler1303/ACS-sub001/internal/analyzer"
)

// Pay and benefit frequency labels stored on documents.
const (
	FreqWeekly      = "WEEKLY"
	FreqBiWeekly    = "BI_WEEKLY"
	FreqSemiMonthly = "SEMI_MONTHLY"
	FreqMonthly     = "MONTHLY"
	FreqAnnual      = "ANNUAL"
)

// NonEmployerSource labels the contribution bucket for documents that carry
// no employer name (benefit income, reviewer-entered statements).
const NonEmployerSource = "OTHER_INCOME"

// Multiplier returns the pay-periods-per-year factor for a frequency.
// Unknown frequencies fall back to bi-weekly.
func Multiplier(freq string) float64 {
	switch freq {
	case FreqWeekly:
		return 52
	case FreqBiWeekly:
		return 26
	case FreqSemiMonthly:
		return 24
	case FreqMonthly:
		return 12
	default:
		return 26
	}
}

// RoundCents rounds a dollar amount to the nearest cent.
func RoundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// Doc is the slice of a stored document that aggregation reads. Callers
// pass only completed documents; this package does not filter by status.
type Doc struct {
	ID               string
	DocumentType     string
	EmployerName     string
	TaxYear          string
	Box1Wages        *float64
	Box3SSWages      *float64
	Box5MediWages    *float64
	GrossPay         *float64
	PayPeriodEnd     *time.Time
	PayFrequency     string
	BenefitAmount    *float64
	BenefitFrequency string
	AnnualizedIncome *float64
}

// Contribution is one income source's share of a resident's total.
type Contribution struct {
	Source string
	Amount float64
}

// Summary is the result of a full resident recompute.
type Summary struct {
	Total         float64
	Contributions []Contribution
}

// AnnualizeDoc computes the annual income a single document evidences on
// its own. Nil means the document carries no usable figure (manual-entry
// types before review, or missing extracted values).
func AnnualizeDoc(d Doc) *float64 {
	switch d.DocumentType {
	case analyzer.DocTypeW2:
		if v, ok := maxWageBox(d); ok {
			v = RoundCents(v)
			return &v
		}
	case analyzer.DocTypePaystub:
		if d.GrossPay != nil {
			v := RoundCents(*d.GrossPay * Multiplier(d.PayFrequency))
			return &v
		}
	case analyzer.DocTypeSocialSecurity:
		if d.BenefitAmount != nil {
			v := RoundCents(annualBenefit(*d.BenefitAmount, d.BenefitFrequency))
			return &v
		}
	}
	if d.AnnualizedIncome != nil {
		v := RoundCents(*d.AnnualizedIncome)
		return &v
	}
	return nil
}

// Annualize computes a resident's calculated annual income from their
// completed documents. Documents are grouped by employer; within a group a
// W-2 wins over paystubs, and paystubs are averaged before annualizing.
// Documents without an employer contribute individually.
func Annualize(docs []Doc) Summary {
	groups := make(map[string][]Doc)
	var order []string
	for _, d := range docs {
		key := employerKey(d.EmployerName)
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], d)
	}
	sort.Strings(order)

	var out Summary
	for _, key := range order {
		group := groups[key]
		if key == "" {
			for _, d := range group {
				amount := nonEmployerAmount(d)
				if amount == 0 {
					continue
				}
				out.Contributions = append(out.Contributions, Contribution{
					Source: NonEmployerSource,
					Amount: RoundCents(amount),
				})
			}
			continue
		}
		amount := employerAmount(group)
		out.Contributions = append(out.Contributions, Contribution{
			Source: displayEmployer(group),
			Amount: RoundCents(amount),
		})
	}

	var total float64
	for _, c := range out.Contributions {
		total += c.Amount
	}
	out.Total = RoundCents(total)
	return out
}

// employerAmount applies the per-employer precedence: a W-2 beats
// paystubs, paystubs beat reviewer-entered figures.
func employerAmount(group []Doc) float64 {
	if w2, ok := newestW2(group); ok {
		if v, ok := maxWageBox(w2); ok {
			return v
		}
	}
	if mean, freq, ok := paystubMean(group); ok {
		return mean * Multiplier(freq)
	}
	var sum float64
	for _, d := range group {
		if d.AnnualizedIncome != nil {
			sum += *d.AnnualizedIncome
		}
	}
	return sum
}

// newestW2 picks the W-2 with the highest parseable tax year. Ties and
// unparseable years keep the earliest document seen.
func newestW2(group []Doc) (Doc, bool) {
	var (
		best     Doc
		bestYear = -1
		found    bool
	)
	for _, d := range group {
		if d.DocumentType != analyzer.DocTypeW2 {
			continue
		}
		year, err := strconv.Atoi(strings.TrimSpace(d.TaxYear))
		if err != nil {
			year = 0
		}
		if !found || year > bestYear {
			best = d
			bestYear = year
			found = true
		}
	}
	return best, found
}

// maxWageBox returns the highest of the three wage boxes present on a
// W-2. Using the maximum keeps benefit or deferral distortions in any one
// box from understating income.
func maxWageBox(d Doc) (float64, bool) {
	var (
		max   float64
		found bool
	)
	for _, box := range []*float64{d.Box1Wages, d.Box3SSWages, d.Box5MediWages} {
		if box == nil {
			continue
		}
		if !found || *box > max {
			max = *box
			found = true
		}
	}
	return max, found
}

// paystubMean averages gross pay across the group's paystubs and returns
// the frequency of the newest stub (by pay-period end) for annualizing.
func paystubMean(group []Doc) (mean float64, freq string, ok bool) {
	var (
		sum    float64
		count  int
		newest *time.Time
	)
	for _, d := range group {
		if d.DocumentType != analyzer.DocTypePaystub || d.GrossPay == nil {
			continue
		}
		sum += *d.GrossPay
		count++
		if d.PayPeriodEnd != nil && (newest == nil || d.PayPeriodEnd.After(*newest)) {
			newest = d.PayPeriodEnd
			freq = d.PayFrequency
		} else if newest == nil && freq == "" {
			freq = d.PayFrequency
		}
	}
	if count == 0 {
		return 0, "", false
	}
	return sum / float64(count), freq, true
}

// nonEmployerAmount annualizes a document with no employer attached.
func nonEmployerAmount(d Doc) float64 {
	if d.DocumentType == analyzer.DocTypeSocialSecurity && d.BenefitAmount != nil {
		return annualBenefit(*d.BenefitAmount, d.BenefitFrequency)
	}
	if d.AnnualizedIncome != nil {
		return *d.AnnualizedIncome
	}
	return 0
}

// annualBenefit normalizes a benefit amount to an annual figure. SSA-1099
// totals are already annual; benefit-letter amounts are monthly.
func annualBenefit(amount float64, freq string) float64 {
	if freq == FreqAnnual {
		return amount
	}
	return amount * 12
}

func employerKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// displayEmployer picks the first non-blank employer spelling in a group.
func displayEmployer(group []Doc) string {
	for _, d := range group {
		if trimmed := strings.TrimSpace(d.EmployerName); trimmed != "" {
			return trimmed
		}
	}
	return NonEmployerSource
}

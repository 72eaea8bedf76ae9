package documents

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Timeliness window for documents dated relative to the lease start: evidence
// may predate the lease by up to six months and postdate it by up to ten
// years (long-running leases keep receiving recertification paperwork).
const (
	timelinessBackdateMonths = 6
	timelinessForwardYears   = 10
)

// timelyW2 reports whether a W-2 tax year is acceptable evidence for a lease
// starting at leaseStart. The prior tax year is always accepted; early in the
// calendar year (through March) the year before that is too, since W-2s for
// the prior year may not have been issued yet.
func timelyW2(taxYear string, leaseStart time.Time) (bool, string) {
	year, err := strconv.Atoi(strings.TrimSpace(taxYear))
	if err != nil {
		return false, fmt.Sprintf("tax year %q is not a valid year", taxYear)
	}
	expected := leaseStart.Year() - 1
	if year == expected {
		return true, ""
	}
	if leaseStart.Month() <= time.March && year == expected-1 {
		return true, ""
	}
	return false, fmt.Sprintf("tax year %d is not timely for a lease starting %s", year, leaseStart.Format("2006-01-02"))
}

// timelyDate reports whether a dated document falls inside the acceptance
// window around the lease start.
func timelyDate(docDate, leaseStart time.Time) (bool, string) {
	earliest := leaseStart.AddDate(0, -timelinessBackdateMonths, 0)
	latest := leaseStart.AddDate(timelinessForwardYears, 0, 0)
	if docDate.Before(earliest) {
		return false, fmt.Sprintf("document dated %s predates the lease start %s by more than %d months",
			docDate.Format("2006-01-02"), leaseStart.Format("2006-01-02"), timelinessBackdateMonths)
	}
	if docDate.After(latest) {
		return false, fmt.Sprintf("document dated %s is more than %d years after the lease start %s",
			docDate.Format("2006-01-02"), timelinessForwardYears, leaseStart.Format("2006-01-02"))
	}
	return true, ""
}

// identityMatches reports whether the name extracted from a document
// plausibly belongs to the resident. Two name parts in common, or one name
// containing the other, counts as a match; ordering, middle names, and
// single-letter initials do not.
func identityMatches(residentName, extractedName string) bool {
	resident := strings.ToLower(strings.TrimSpace(residentName))
	extracted := strings.ToLower(strings.TrimSpace(extractedName))
	if resident == "" || extracted == "" {
		return false
	}
	if strings.Contains(resident, extracted) || strings.Contains(extracted, resident) {
		return true
	}
	rt := nameTokens(resident)
	et := nameTokens(extracted)
	shared := 0
	for tok := range rt {
		if et[tok] {
			shared++
		}
	}
	return shared >= 2
}

func nameTokens(name string) map[string]bool {
	fields := strings.FieldsFunc(name, func(r rune) bool {
		return r == ' ' || r == '\t' || r == ',' || r == '.'
	})
	out := make(map[string]bool, len(fields))
	for _, f := range fields {
		if len(f) > 1 {
			out[f] = true
		}
	}
	return out
}

// monthsBetween returns the number of whole calendar months from a to b,
// negative when b precedes a.
func monthsBetween(a, b time.Time) int {
	if b.Before(a) {
		return -monthsBetween(b, a)
	}
	months := (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
	if b.Day() < a.Day() {
		months--
	}
	return months
}

package documents

import (
	"strings"
	"testing"
	"time"
)

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func TestTimelyW2(t *testing.T) {
	midYearLease := day(2025, time.June, 1)
	earlyLease := day(2025, time.February, 15)

	cases := []struct {
		name       string
		taxYear    string
		leaseStart time.Time
		want       bool
	}{
		{"prior year accepted", "2024", midYearLease, true},
		{"two years back rejected mid year", "2023", midYearLease, false},
		{"current year rejected", "2025", midYearLease, false},
		{"prior year accepted early in year", "2024", earlyLease, true},
		{"two years back accepted early in year", "2023", earlyLease, true},
		{"three years back rejected early in year", "2022", earlyLease, false},
		{"whitespace tolerated", " 2024 ", midYearLease, true},
		{"garbage tax year rejected", "20twenty4", midYearLease, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, reason := timelyW2(tc.taxYear, tc.leaseStart)
			if got != tc.want {
				t.Fatalf("timelyW2(%q, %s) = %v (%s), want %v", tc.taxYear, tc.leaseStart.Format("2006-01-02"), got, reason, tc.want)
			}
			if !got && reason == "" {
				t.Fatal("rejection must carry a reason")
			}
		})
	}
}

func TestTimelyW2MarchBoundary(t *testing.T) {
	// Through March the year before last is still timely; from April on it
	// is not.
	if ok, _ := timelyW2("2023", day(2025, time.March, 31)); !ok {
		t.Fatal("2023 W-2 should be timely for a lease starting March 31 2025")
	}
	if ok, _ := timelyW2("2023", day(2025, time.April, 1)); ok {
		t.Fatal("2023 W-2 should not be timely for a lease starting April 1 2025")
	}
}

func TestTimelyDate(t *testing.T) {
	leaseStart := day(2025, time.June, 1)

	cases := []struct {
		name    string
		docDate time.Time
		want    bool
	}{
		{"on lease start", day(2025, time.June, 1), true},
		{"five months before", day(2025, time.January, 10), true},
		{"exactly six months before", day(2024, time.December, 1), true},
		{"seven months before", day(2024, time.November, 1), false},
		{"nine years after", day(2034, time.June, 1), true},
		{"eleven years after", day(2036, time.July, 1), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, reason := timelyDate(tc.docDate, leaseStart)
			if got != tc.want {
				t.Fatalf("timelyDate(%s) = %v (%s), want %v", tc.docDate.Format("2006-01-02"), got, reason, tc.want)
			}
		})
	}
}

func TestIdentityMatches(t *testing.T) {
	cases := []struct {
		name      string
		resident  string
		extracted string
		want      bool
	}{
		{"exact", "Jane Porter", "Jane Porter", true},
		{"case insensitive", "Jane Porter", "JANE PORTER", true},
		{"reordered with comma", "Jane Porter", "Porter, Jane", true},
		{"middle name on document", "Jane Porter", "Jane Ann Porter", true},
		{"substring one way", "Jane Porter", "Jane Porter-Smith", true},
		{"single shared token", "Jane Porter", "Jane Wilson", false},
		{"no overlap", "Jane Porter", "Robert Chan", false},
		{"initials do not count", "Jane Porter", "J. P. Porter", false},
		{"empty extracted", "Jane Porter", "", false},
		{"empty resident", "", "Jane Porter", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := identityMatches(tc.resident, tc.extracted); got != tc.want {
				t.Fatalf("identityMatches(%q, %q) = %v, want %v", tc.resident, tc.extracted, got, tc.want)
			}
		})
	}
}

func TestMonthsBetween(t *testing.T) {
	cases := []struct {
		a, b time.Time
		want int
	}{
		{day(2025, time.June, 1), day(2025, time.June, 30), 0},
		{day(2025, time.June, 1), day(2025, time.July, 1), 1},
		{day(2025, time.June, 15), day(2025, time.July, 14), 0},
		{day(2025, time.June, 1), day(2025, time.December, 1), 6},
		{day(2025, time.June, 1), day(2026, time.January, 15), 7},
		{day(2025, time.June, 1), day(2025, time.March, 1), -3},
	}
	for _, tc := range cases {
		if got := monthsBetween(tc.a, tc.b); got != tc.want {
			t.Fatalf("monthsBetween(%s, %s) = %d, want %d",
				tc.a.Format("2006-01-02"), tc.b.Format("2006-01-02"), got, tc.want)
		}
	}
}

func TestTimelyDateReasonNamesTheWindow(t *testing.T) {
	_, reason := timelyDate(day(2024, time.January, 1), day(2025, time.June, 1))
	if !strings.Contains(reason, "predates the lease start") {
		t.Fatalf("unexpected reason: %q", reason)
	}
}

func TestIdentityMatchesSocialSecuritySuffixNoise(t *testing.T) {
	// OCR output often carries punctuation and suffixes around names.
	if !identityMatches("Ruth Ellison", "RUTH A. ELLISON JR") {
		t.Fatal("suffixed OCR name should still match")
	}
}

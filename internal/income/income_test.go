package income

import (
	"math"
	"testing"
	"time"

	"github.com/Kayler1303/ACS-sub001/internal/analyzer"
)

func fptr(v float64) *float64 { return &v }

func day(t *testing.T, s string) *time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("parse day %s: %v", s, err)
	}
	return &parsed
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 0.001
}

func TestMultiplier(t *testing.T) {
	cases := []struct {
		freq string
		want float64
	}{
		{FreqWeekly, 52},
		{FreqBiWeekly, 26},
		{FreqSemiMonthly, 24},
		{FreqMonthly, 12},
		{"", 26},
		{"QUARTERLY", 26},
	}
	for _, tc := range cases {
		if got := Multiplier(tc.freq); got != tc.want {
			t.Fatalf("Multiplier(%q) = %v, want %v", tc.freq, got, tc.want)
		}
	}
}

func TestAnnualizeDoc(t *testing.T) {
	cases := []struct {
		name string
		doc  Doc
		want *float64
	}{
		{
			name: "w2 uses highest box",
			doc: Doc{
				DocumentType:  analyzer.DocTypeW2,
				Box1Wages:     fptr(41000),
				Box3SSWages:   fptr(43500),
				Box5MediWages: fptr(42000),
			},
			want: fptr(43500),
		},
		{
			name: "w2 with single box",
			doc: Doc{
				DocumentType: analyzer.DocTypeW2,
				Box1Wages:    fptr(38250.75),
			},
			want: fptr(38250.75),
		},
		{
			name: "paystub annualizes by frequency",
			doc: Doc{
				DocumentType: analyzer.DocTypePaystub,
				GrossPay:     fptr(1500),
				PayFrequency: FreqBiWeekly,
			},
			want: fptr(39000),
		},
		{
			name: "paystub unknown frequency defaults bi-weekly",
			doc: Doc{
				DocumentType: analyzer.DocTypePaystub,
				GrossPay:     fptr(2000),
			},
			want: fptr(52000),
		},
		{
			name: "ssa annual total stands",
			doc: Doc{
				DocumentType:     analyzer.DocTypeSocialSecurity,
				BenefitAmount:    fptr(21600),
				BenefitFrequency: FreqAnnual,
			},
			want: fptr(21600),
		},
		{
			name: "benefit letter monthly times twelve",
			doc: Doc{
				DocumentType:     analyzer.DocTypeSocialSecurity,
				BenefitAmount:    fptr(1800),
				BenefitFrequency: FreqMonthly,
			},
			want: fptr(21600),
		},
		{
			name: "bank statement uses reviewer figure",
			doc: Doc{
				DocumentType:     analyzer.DocTypeBankStatement,
				AnnualizedIncome: fptr(30000),
			},
			want: fptr(30000),
		},
		{
			name: "offer letter without figure yields nil",
			doc:  Doc{DocumentType: analyzer.DocTypeOfferLetter},
			want: nil,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := AnnualizeDoc(tc.doc)
			if (got == nil) != (tc.want == nil) {
				t.Fatalf("AnnualizeDoc = %v, want %v", got, tc.want)
			}
			if got != nil && !almostEqual(*got, *tc.want) {
				t.Fatalf("AnnualizeDoc = %v, want %v", *got, *tc.want)
			}
		})
	}
}

func TestAnnualizeW2BeatsPaystubs(t *testing.T) {
	docs := []Doc{
		{DocumentType: analyzer.DocTypePaystub, EmployerName: "Acme Corp", GrossPay: fptr(2000), PayFrequency: FreqBiWeekly},
		{DocumentType: analyzer.DocTypeW2, EmployerName: "ACME CORP", TaxYear: "2024", Box1Wages: fptr(48000)},
	}
	sum := Annualize(docs)
	if len(sum.Contributions) != 1 {
		t.Fatalf("expected one contribution, got %d", len(sum.Contributions))
	}
	if !almostEqual(sum.Total, 48000) {
		t.Fatalf("total = %v, want 48000", sum.Total)
	}
}

func TestAnnualizeNewestW2Wins(t *testing.T) {
	docs := []Doc{
		{DocumentType: analyzer.DocTypeW2, EmployerName: "Acme", TaxYear: "2023", Box1Wages: fptr(40000)},
		{DocumentType: analyzer.DocTypeW2, EmployerName: "Acme", TaxYear: "2024", Box1Wages: fptr(45000), Box3SSWages: fptr(46000)},
	}
	sum := Annualize(docs)
	if !almostEqual(sum.Total, 46000) {
		t.Fatalf("total = %v, want 46000", sum.Total)
	}
}

func TestAnnualizePaystubAveraging(t *testing.T) {
	docs := []Doc{
		{DocumentType: analyzer.DocTypePaystub, EmployerName: "Diner", GrossPay: fptr(900), PayFrequency: FreqWeekly, PayPeriodEnd: day(t, "2025-03-07")},
		{DocumentType: analyzer.DocTypePaystub, EmployerName: "Diner", GrossPay: fptr(1100), PayFrequency: FreqWeekly, PayPeriodEnd: day(t, "2025-03-14")},
		{DocumentType: analyzer.DocTypePaystub, EmployerName: "Diner", GrossPay: fptr(1000), PayFrequency: FreqBiWeekly, PayPeriodEnd: day(t, "2025-03-28")},
	}
	// mean gross 1000, newest stub is bi-weekly: 1000 * 26.
	sum := Annualize(docs)
	if !almostEqual(sum.Total, 26000) {
		t.Fatalf("total = %v, want 26000", sum.Total)
	}
}

func TestAnnualizeNonEmployerBucket(t *testing.T) {
	docs := []Doc{
		{DocumentType: analyzer.DocTypeSocialSecurity, BenefitAmount: fptr(1500), BenefitFrequency: FreqMonthly},
		{DocumentType: analyzer.DocTypeSocialSecurity, BenefitAmount: fptr(12000), BenefitFrequency: FreqAnnual},
		{DocumentType: analyzer.DocTypeBankStatement, AnnualizedIncome: fptr(6000)},
	}
	sum := Annualize(docs)
	if len(sum.Contributions) != 3 {
		t.Fatalf("expected three contributions, got %d", len(sum.Contributions))
	}
	for _, c := range sum.Contributions {
		if c.Source != NonEmployerSource {
			t.Fatalf("contribution source = %q, want %q", c.Source, NonEmployerSource)
		}
	}
	if !almostEqual(sum.Total, 18000+12000+6000) {
		t.Fatalf("total = %v, want 36000", sum.Total)
	}
}

func TestAnnualizeMixedSources(t *testing.T) {
	docs := []Doc{
		{DocumentType: analyzer.DocTypeW2, EmployerName: "Acme", TaxYear: "2024", Box1Wages: fptr(30000)},
		{DocumentType: analyzer.DocTypePaystub, EmployerName: "Diner", GrossPay: fptr(500), PayFrequency: FreqWeekly, PayPeriodEnd: day(t, "2025-02-07")},
		{DocumentType: analyzer.DocTypeSocialSecurity, BenefitAmount: fptr(1000), BenefitFrequency: FreqMonthly},
	}
	sum := Annualize(docs)
	if len(sum.Contributions) != 3 {
		t.Fatalf("expected three contributions, got %d", len(sum.Contributions))
	}
	if !almostEqual(sum.Total, 30000+26000+12000) {
		t.Fatalf("total = %v, want 68000", sum.Total)
	}
}

func TestAnnualizeRounding(t *testing.T) {
	docs := []Doc{
		{DocumentType: analyzer.DocTypePaystub, EmployerName: "Acme", GrossPay: fptr(1000.333), PayFrequency: FreqWeekly, PayPeriodEnd: day(t, "2025-01-10")},
	}
	sum := Annualize(docs)
	want := RoundCents(1000.333 * 52)
	if sum.Total != want {
		t.Fatalf("total = %v, want %v", sum.Total, want)
	}
	cents := sum.Total * 100
	if math.Abs(cents-math.Round(cents)) > 1e-9 {
		t.Fatalf("total %v not rounded to cents", sum.Total)
	}
}

func TestAnnualizeEmpty(t *testing.T) {
	sum := Annualize(nil)
	if sum.Total != 0 || len(sum.Contributions) != 0 {
		t.Fatalf("empty input should produce zero summary, got %+v", sum)
	}
}

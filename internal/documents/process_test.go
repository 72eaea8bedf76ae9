package documents

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Kayler1303/ACS-sub001/internal/analyzer"
	"github.com/Kayler1303/ACS-sub001/internal/income"
	"github.com/Kayler1303/ACS-sub001/internal/overrides"
)

func TestProcessCompletesW2(t *testing.T) {
	f := newFixture()
	f.analyzer.results[analyzer.ModelW2] = completeW2Result()
	doc := f.seedProcessing(t, analyzer.DocTypeW2)

	f.svc.Process(context.Background(), doc.ID)

	completed := f.committer.completedDocs()
	if len(completed) != 1 {
		t.Fatalf("committed %d documents, want 1", len(completed))
	}
	got := completed[0]
	if got.Status != StatusCompleted {
		t.Fatalf("status = %s, want COMPLETED", got.Status)
	}
	if got.EmployeeName != "Jane Porter" || got.EmployerName != "Acme Corp" || got.TaxYear != "2024" {
		t.Fatalf("extracted fields not merged: %+v", got)
	}
	// Highest wage box wins.
	if got.CalculatedAnnualizedIncome == nil || *got.CalculatedAnnualizedIncome != 43500 {
		t.Fatalf("annualized = %v, want 43500", got.CalculatedAnnualizedIncome)
	}
	if got.Confidence == nil || *got.Confidence != 0.97 {
		t.Fatalf("confidence = %v, want 0.97", got.Confidence)
	}
	if got.AnalyzerModel != analyzer.ModelW2 {
		t.Fatalf("analyzer model = %q", got.AnalyzerModel)
	}
	if got.CompletedAt == nil {
		t.Fatal("completedAt must be stamped")
	}
	if len(pendingOverrides(t, f.overrides)) != 0 {
		t.Fatal("a clean completion must not open an override request")
	}
}

func TestProcessRoutesValidationFailureToReview(t *testing.T) {
	f := newFixture()
	res := completeW2Result()
	delete(res.Fields, analyzer.FieldBox1Wages)
	delete(res.Fields, analyzer.FieldBox3SSWages)
	delete(res.Fields, analyzer.FieldBox5MediWages)
	f.analyzer.results[analyzer.ModelW2] = res
	doc := f.seedProcessing(t, analyzer.DocTypeW2)

	f.svc.Process(context.Background(), doc.ID)

	got, err := f.repo.GetByID(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusNeedsReview {
		t.Fatalf("status = %s, want NEEDS_REVIEW", got.Status)
	}
	if got.ErrorCode != ErrorCodeValidation {
		t.Fatalf("error code = %s, want %s", got.ErrorCode, ErrorCodeValidation)
	}
	if !strings.Contains(got.ReviewReason, "wage") {
		t.Fatalf("review reason should mention the missing wage boxes: %q", got.ReviewReason)
	}

	reqs := pendingOverrides(t, f.overrides)
	if len(reqs) != 1 || reqs[0].Type != overrides.TypeValidationException {
		t.Fatalf("overrides = %+v, want one VALIDATION_EXCEPTION", reqs)
	}
	if len(f.committer.completedDocs()) != 0 {
		t.Fatal("a review-routed document must not be committed")
	}
}

func TestProcessManualEntryTypeOpensDocumentReview(t *testing.T) {
	f := newFixture()
	doc := f.seedProcessing(t, analyzer.DocTypeBankStatement)

	f.svc.Process(context.Background(), doc.ID)

	got, _ := f.repo.GetByID(context.Background(), doc.ID)
	if got.Status != StatusNeedsReview {
		t.Fatalf("status = %s, want NEEDS_REVIEW", got.Status)
	}
	if got.ErrorCode != ErrorCodeManualReview {
		t.Fatalf("error code = %s, want %s", got.ErrorCode, ErrorCodeManualReview)
	}

	reqs := pendingOverrides(t, f.overrides)
	if len(reqs) != 1 || reqs[0].Type != overrides.TypeDocumentReview {
		t.Fatalf("overrides = %+v, want one DOCUMENT_REVIEW", reqs)
	}
}

func TestProcessRejectsDuplicatePaystub(t *testing.T) {
	f := newFixture()
	start := day(2025, time.May, 1)
	end := day(2025, time.May, 14)

	existing := f.seedProcessing(t, analyzer.DocTypePaystub)
	existing.Status = StatusCompleted
	existing.EmployerName = "Acme Corp"
	existing.EmployeeName = "Jane Porter"
	existing.GrossPay = fptr(1500)
	existing.PayPeriodStart = &start
	existing.PayPeriodEnd = &end
	if err := f.repo.Create(context.Background(), existing); err != nil {
		t.Fatalf("seed existing: %v", err)
	}

	f.analyzer.results[analyzer.ModelPaystub] = analyzer.Result{
		MatchedType:   "payStub.us",
		DocConfidence: 0.95,
		Fields: analyzer.FieldMap{
			analyzer.FieldEmployeeName:   textField("Jane Porter", 0.96),
			analyzer.FieldEmployerName:   textField("ACME CORP", 0.96),
			analyzer.FieldGrossPay:       numField(1500, 0.97),
			analyzer.FieldPayPeriodStart: dateField(start, 0.95),
			analyzer.FieldPayPeriodEnd:   dateField(end, 0.95),
		},
	}
	dup := f.seedProcessing(t, analyzer.DocTypePaystub)

	f.svc.Process(context.Background(), dup.ID)

	got, err := f.repo.GetByID(context.Background(), dup.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Deleted() {
		t.Fatal("duplicate must be soft-deleted")
	}
	if got.DuplicateOf != existing.ID {
		t.Fatalf("duplicateOf = %q, want %q", got.DuplicateOf, existing.ID)
	}
	if got.ErrorCode != ErrorCodeDuplicate {
		t.Fatalf("error code = %s, want %s", got.ErrorCode, ErrorCodeDuplicate)
	}
	if ToResponse(got).Status != StatusRejectedDuplicate {
		t.Fatalf("presented status = %s, want %s", ToResponse(got).Status, StatusRejectedDuplicate)
	}
	if len(f.committer.completedDocs()) != 0 {
		t.Fatal("a rejected duplicate must not be committed")
	}
	// The surviving original is untouched.
	kept, _ := f.repo.GetByID(context.Background(), existing.ID)
	if kept.Deleted() || kept.Status != StatusCompleted {
		t.Fatalf("original document disturbed: %+v", kept)
	}
}

func TestProcessStaleW2RoutedToReview(t *testing.T) {
	f := newFixture()
	res := completeW2Result()
	res.Fields[analyzer.FieldTaxYear] = textField("2021", 0.99)
	f.analyzer.results[analyzer.ModelW2] = res
	doc := f.seedProcessing(t, analyzer.DocTypeW2)

	f.svc.Process(context.Background(), doc.ID)

	got, _ := f.repo.GetByID(context.Background(), doc.ID)
	if got.Status != StatusNeedsReview {
		t.Fatalf("status = %s, want NEEDS_REVIEW", got.Status)
	}
	if !strings.Contains(got.ReviewReason, "not timely") {
		t.Fatalf("review reason = %q", got.ReviewReason)
	}
	reqs := pendingOverrides(t, f.overrides)
	if len(reqs) != 1 || reqs[0].Type != overrides.TypeValidationException {
		t.Fatalf("overrides = %+v", reqs)
	}
}

func TestProcessIdentityMismatchRoutedToReview(t *testing.T) {
	f := newFixture()
	res := completeW2Result()
	res.Fields[analyzer.FieldEmployeeName] = textField("Robert Chan", 0.98)
	f.analyzer.results[analyzer.ModelW2] = res
	doc := f.seedProcessing(t, analyzer.DocTypeW2)

	f.svc.Process(context.Background(), doc.ID)

	got, _ := f.repo.GetByID(context.Background(), doc.ID)
	if got.Status != StatusNeedsReview {
		t.Fatalf("status = %s, want NEEDS_REVIEW", got.Status)
	}
	if !strings.Contains(got.ReviewReason, "does not match resident") {
		t.Fatalf("review reason = %q", got.ReviewReason)
	}
}

func TestProcessAnalyzerFailure(t *testing.T) {
	f := newFixture()
	f.analyzer.err = errors.New("analyze: upstream 500")
	doc := f.seedProcessing(t, analyzer.DocTypeW2)

	f.svc.Process(context.Background(), doc.ID)

	got, _ := f.repo.GetByID(context.Background(), doc.ID)
	if got.Status != StatusNeedsReview {
		t.Fatalf("status = %s, want NEEDS_REVIEW", got.Status)
	}
	if got.ErrorCode != ErrorCodeExtraction {
		t.Fatalf("error code = %s, want %s", got.ErrorCode, ErrorCodeExtraction)
	}
	if len(pendingOverrides(t, f.overrides)) != 1 {
		t.Fatal("an extraction failure must open an override request")
	}
}

func TestProcessAnalyzerTimeoutClassified(t *testing.T) {
	f := newFixture()
	f.analyzer.err = context.DeadlineExceeded
	doc := f.seedProcessing(t, analyzer.DocTypeW2)

	f.svc.Process(context.Background(), doc.ID)

	got, _ := f.repo.GetByID(context.Background(), doc.ID)
	if got.ErrorCode != ErrorCodeAnalyzerTimeout {
		t.Fatalf("error code = %s, want %s", got.ErrorCode, ErrorCodeAnalyzerTimeout)
	}
}

func TestProcessSocialSecurityLayoutFallback(t *testing.T) {
	f := newFixture()
	// The typed 1099 model reads nothing useful from an award letter.
	f.analyzer.results[analyzer.ModelSSA1099] = analyzer.Result{
		MatchedType:   "tax.us.1099SSA",
		DocConfidence: 0.41,
		Fields:        analyzer.FieldMap{},
	}
	f.analyzer.results[analyzer.ModelLayout] = analyzer.Result{
		MatchedType:   "layout",
		DocConfidence: 0.88,
		KeyValues: []analyzer.KeyValue{
			{Key: "Beneficiary Name", Value: "Jane Porter", Confidence: 0.92},
			{Key: "Your full monthly amount", Value: "effective 2025 $1,914.00", Confidence: 0.9},
		},
	}
	doc := f.seedProcessing(t, analyzer.DocTypeSocialSecurity)

	f.svc.Process(context.Background(), doc.ID)

	models := f.analyzer.calledModels()
	if len(models) != 2 || models[0] != analyzer.ModelSSA1099 || models[1] != analyzer.ModelLayout {
		t.Fatalf("models requested = %v", models)
	}

	completed := f.committer.completedDocs()
	if len(completed) != 1 {
		t.Fatalf("committed %d documents, want 1", len(completed))
	}
	got := completed[0]
	if got.BenefitAmount == nil || *got.BenefitAmount != 1914 {
		t.Fatalf("benefit = %v, want 1914", got.BenefitAmount)
	}
	if got.BenefitFrequency != income.FreqMonthly {
		t.Fatalf("benefit frequency = %s, want MONTHLY", got.BenefitFrequency)
	}
	if got.CalculatedAnnualizedIncome == nil || *got.CalculatedAnnualizedIncome != 22968 {
		t.Fatalf("annualized = %v, want 22968", got.CalculatedAnnualizedIncome)
	}
}

func TestProcessSkipsTerminalDocument(t *testing.T) {
	f := newFixture()
	f.analyzer.results[analyzer.ModelW2] = completeW2Result()
	doc := f.seedProcessing(t, analyzer.DocTypeW2)
	if _, err := f.repo.MarkNeedsReview(context.Background(), doc.ID, "already handled", ErrorCodeValidation, time.Now().UTC()); err != nil {
		t.Fatalf("mark: %v", err)
	}

	f.svc.Process(context.Background(), doc.ID)

	if models := f.analyzer.calledModels(); len(models) != 0 {
		t.Fatalf("terminal document must not be re-analyzed, got %v", models)
	}
	if len(f.committer.completedDocs()) != 0 {
		t.Fatal("terminal document must not be committed")
	}
}

func TestProcessCommitFailureRoutesToReview(t *testing.T) {
	f := newFixture()
	f.analyzer.results[analyzer.ModelW2] = completeW2Result()
	f.committer.failWith = errors.New("storage: connection reset")
	doc := f.seedProcessing(t, analyzer.DocTypeW2)

	f.svc.Process(context.Background(), doc.ID)

	got, _ := f.repo.GetByID(context.Background(), doc.ID)
	if got.Status != StatusNeedsReview {
		t.Fatalf("status = %s, want NEEDS_REVIEW", got.Status)
	}
	if got.ErrorCode != ErrorCodeStorage {
		t.Fatalf("error code = %s, want %s", got.ErrorCode, ErrorCodeStorage)
	}
}

func TestClassifyFailure(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		wantCode  string
		retryable bool
	}{
		{"deadline", context.DeadlineExceeded, ErrorCodeAnalyzerTimeout, true},
		{"timeout text", errors.New("request timeout talking to endpoint"), ErrorCodeAnalyzerTimeout, true},
		{"not configured", analyzer.ErrNotConfigured, ErrorCodeExtraction, false},
		{"analyze error", errors.New("analyze with prebuilt-tax.us.w2: bad response"), ErrorCodeExtraction, true},
		{"storage", errors.New("open stored document: no such key"), ErrorCodeStorage, true},
		{"unknown", errors.New("boom"), ErrorCodeInternal, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, retryable := classifyFailure(tc.err)
			if code != tc.wantCode || retryable != tc.retryable {
				t.Fatalf("classifyFailure(%v) = (%s, %v), want (%s, %v)", tc.err, code, retryable, tc.wantCode, tc.retryable)
			}
		})
	}
}

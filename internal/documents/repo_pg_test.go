package documents

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

var documentColumnNames = []string{
	"id", "verification_id", "resident_id", "document_type", "status",
	"storage_key", "file_name", "mime_type", "size_bytes", "document_date", "uploaded_by",
	"employee_name", "employer_name", "tax_year", "box1_wages", "box3_ss_wages",
	"box5_medicare_wages", "gross_pay_amount", "pay_period_start", "pay_period_end",
	"pay_frequency", "benefit_amount", "benefit_frequency", "calculated_annualized_income",
	"confidence", "analyzer_model", "analyzer_doc_type", "review_reason", "error_code",
	"duplicate_of", "started_at", "completed_at", "created_at", "updated_at", "deleted_at",
}

func newMockRepo(t *testing.T) (*PGRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPGRepo(db), mock
}

func TestPGCreate(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	docDate := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta(insertDocumentQuery)).
		WithArgs("doc-1", "ver-1", "res-1", "W2", "PROCESSING", "lease-1/key", "w2.pdf",
			"application/pdf", int64(1024), docDate, "staff-7", now, now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), Document{
		ID:             "doc-1",
		VerificationID: "ver-1",
		ResidentID:     "res-1",
		DocumentType:   "W2",
		Status:         StatusProcessing,
		StorageKey:     "lease-1/key",
		FileName:       "w2.pdf",
		MimeType:       "application/pdf",
		SizeBytes:      1024,
		DocumentDate:   &docDate,
		UploadedBy:     "staff-7",
		StartedAt:      &now,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGGetByIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta(getDocumentByIDQuery)).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestPGGetByIDScansNullables(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	row := sqlmock.NewRows(documentColumnNames).AddRow(
		"doc-1", "ver-1", "res-1", "PAYSTUB", "COMPLETED",
		"lease-1/key", "stub.pdf", "application/pdf", int64(2048), nil, "staff-7",
		"Jane Porter", "Acme Corp", nil, nil, nil,
		nil, 1500.0, now.AddDate(0, 0, -14), now, "BI_WEEKLY", nil, nil, 39000.0,
		0.95, "prebuilt-payStub.us", "payStub.us", nil, nil,
		nil, now, now, now, now, nil,
	)
	mock.ExpectQuery(regexp.QuoteMeta(getDocumentByIDQuery)).
		WithArgs("doc-1").
		WillReturnRows(row)

	doc, err := repo.GetByID(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc.Status != StatusCompleted || doc.EmployerName != "Acme Corp" {
		t.Fatalf("unexpected document: %+v", doc)
	}
	if doc.GrossPay == nil || *doc.GrossPay != 1500 {
		t.Fatalf("grossPay = %v", doc.GrossPay)
	}
	if doc.Box1Wages != nil {
		t.Fatal("null box1 must scan to nil")
	}
	if doc.CalculatedAnnualizedIncome == nil || *doc.CalculatedAnnualizedIncome != 39000 {
		t.Fatalf("annualized = %v", doc.CalculatedAnnualizedIncome)
	}
	if doc.DocumentDate != nil || doc.DeletedAt != nil {
		t.Fatal("null dates must scan to nil")
	}
	if doc.PayPeriodEnd == nil {
		t.Fatal("pay period end should be set")
	}
}

func TestPGMarkNeedsReviewClaims(t *testing.T) {
	repo, mock := newMockRepo(t)
	completedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta(markNeedsReviewQuery)).
		WithArgs("doc-1", "image too blurry to read", ErrorCodeValidation, completedAt, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	claimed, err := repo.MarkNeedsReview(context.Background(), "doc-1", "image too blurry to read", ErrorCodeValidation, completedAt)
	if err != nil {
		t.Fatalf("mark: %v", err)
	}
	if !claimed {
		t.Fatal("expected the transition to be claimed")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGMarkNeedsReviewAlreadyTerminal(t *testing.T) {
	repo, mock := newMockRepo(t)
	completedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta(markNeedsReviewQuery)).
		WithArgs("doc-1", "reason", ErrorCodeValidation, completedAt, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(documentExistsQuery)).
		WithArgs("doc-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	claimed, err := repo.MarkNeedsReview(context.Background(), "doc-1", "reason", ErrorCodeValidation, completedAt)
	if err != nil {
		t.Fatalf("mark: %v", err)
	}
	if claimed {
		t.Fatal("an already-terminal document must not be claimed")
	}
}

func TestPGMarkNeedsReviewMissingDocument(t *testing.T) {
	repo, mock := newMockRepo(t)
	completedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta(markNeedsReviewQuery)).
		WithArgs("ghost", "reason", ErrorCodeValidation, completedAt, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(documentExistsQuery)).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.MarkNeedsReview(context.Background(), "ghost", "reason", ErrorCodeValidation, completedAt)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestPGMarkDuplicateSoftDeletes(t *testing.T) {
	repo, mock := newMockRepo(t)
	completedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta(markDuplicateQuery)).
		WithArgs("doc-2", "doc-1", "paystub already on file", ErrorCodeDuplicate, completedAt, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	claimed, err := repo.MarkDuplicate(context.Background(), "doc-2", "doc-1", "paystub already on file", completedAt)
	if err != nil {
		t.Fatalf("mark duplicate: %v", err)
	}
	if !claimed {
		t.Fatal("expected the duplicate mark to be claimed")
	}
}

func TestPGListForDedupe(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(documentColumnNames)
	for _, id := range []string{"doc-2", "doc-1"} {
		rows.AddRow(
			id, "ver-1", "res-1", "PAYSTUB", "COMPLETED",
			"lease-1/"+id, "stub.pdf", "application/pdf", int64(2048), nil, "staff-7",
			"Jane Porter", "Acme Corp", nil, nil, nil,
			nil, 1500.0, now.AddDate(0, 0, -14), now, "BI_WEEKLY", nil, nil, 39000.0,
			0.95, "prebuilt-payStub.us", "payStub.us", nil, nil,
			nil, now, now, now, now, nil,
		)
	}
	mock.ExpectQuery(regexp.QuoteMeta(listForDedupeQuery)).
		WithArgs("res-1", "PAYSTUB").
		WillReturnRows(rows)

	docs, err := repo.ListForDedupe(context.Background(), "res-1", "PAYSTUB")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(docs) != 2 || docs[0].ID != "doc-2" {
		t.Fatalf("unexpected docs: %+v", docs)
	}
}

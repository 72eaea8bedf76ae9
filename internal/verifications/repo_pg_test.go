package verifications

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
)

var verificationColumnNames = []string{
	"id", "lease_id", "status", "reason", "verification_period_start",
	"verification_period_end", "due_date", "lease_year", "calculated_verified_income",
	"finalized_at", "created_at", "updated_at",
}

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func newMockRepo(t *testing.T) (*PGRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newMockDB(t)
	return NewPGRepo(db), mock
}

func sampleVerification(now time.Time) Verification {
	return Verification{
		ID:          "ver-1",
		LeaseID:     "lease-1",
		Status:      StatusInProgress,
		Reason:      ReasonAnnual,
		PeriodStart: now,
		PeriodEnd:   now.AddDate(1, 0, 0),
		DueDate:     now.AddDate(0, 0, 90),
		LeaseYear:   1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestPGCreateVerification(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	v := sampleVerification(now)

	mock.ExpectExec(regexp.QuoteMeta(insertVerificationQuery)).
		WithArgs("ver-1", "lease-1", "IN_PROGRESS", "ANNUAL_RECERTIFICATION",
			v.PeriodStart, v.PeriodEnd, v.DueDate, 1, now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Create(context.Background(), v); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGCreateMapsUniqueViolationToLeaseConflict(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta(insertVerificationQuery)).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "uniq_verifications_active_lease"})

	err := repo.Create(context.Background(), sampleVerification(now))
	if !errors.Is(err, ErrLeaseConflict) {
		t.Fatalf("err = %v, want ErrLeaseConflict", err)
	}
}

func TestPGGetActiveByLeaseNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta(getActiveByLeaseQuery)).
		WithArgs("lease-1").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetActiveByLease(context.Background(), "lease-1")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestPGGetByIDScansNullables(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(getVerificationByIDQuery)).
		WithArgs("ver-1").
		WillReturnRows(sqlmock.NewRows(verificationColumnNames).AddRow(
			"ver-1", "lease-1", "IN_PROGRESS", "ANNUAL_RECERTIFICATION",
			now, now.AddDate(1, 0, 0), now.AddDate(0, 0, 90), 2,
			nil, nil, now, now,
		))

	v, err := repo.GetByID(context.Background(), "ver-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if v.LeaseYear != 2 || v.Status != StatusInProgress {
		t.Fatalf("unexpected verification: %+v", v)
	}
	if v.CalculatedVerifiedIncome != nil || v.FinalizedAt != nil {
		t.Fatalf("null columns should scan to nil: %+v", v)
	}
	if !v.PeriodEnd.Equal(now.AddDate(1, 0, 0)) {
		t.Fatalf("period end = %v", v.PeriodEnd)
	}
}

func TestPGCountByLease(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta(countByLeaseQuery)).
		WithArgs("lease-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err := repo.CountByLease(context.Background(), "lease-1")
	if err != nil || count != 3 {
		t.Fatalf("count = %d err = %v, want 3", count, err)
	}
}

func TestPGUpdateMissingVerification(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	v := sampleVerification(now)
	v.ID = "ghost"

	mock.ExpectExec(regexp.QuoteMeta(updateVerificationQuery)).
		WithArgs("ghost", "IN_PROGRESS", nil, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Update(context.Background(), v); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestPGSupersede(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	next := sampleVerification(now)
	next.ID = "ver-2"
	next.LeaseYear = 2
	total := 42000.0

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(finalizeStaleQuery)).
		WithArgs("ver-1", total, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(insertVerificationQuery)).
		WithArgs("ver-2", "lease-1", "IN_PROGRESS", "ANNUAL_RECERTIFICATION",
			next.PeriodStart, next.PeriodEnd, next.DueDate, 2, now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.Supersede(context.Background(), "ver-1", &total, next); err != nil {
		t.Fatalf("supersede: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGSupersedeInsertConflictRollsBack(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	next := sampleVerification(now)
	next.ID = "ver-2"
	total := 42000.0

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(finalizeStaleQuery)).
		WithArgs("ver-1", total, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(insertVerificationQuery)).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectRollback()

	err := repo.Supersede(context.Background(), "ver-1", &total, next)
	if !errors.Is(err, ErrLeaseConflict) {
		t.Fatalf("err = %v, want ErrLeaseConflict", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

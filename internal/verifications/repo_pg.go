package verifications

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

const verificationColumns = `id, lease_id, status, reason, verification_period_start,
	verification_period_end, due_date, lease_year, calculated_verified_income,
	finalized_at, created_at, updated_at`

const insertVerificationQuery = `INSERT INTO income_verifications (
	id, lease_id, status, reason, verification_period_start,
	verification_period_end, due_date, lease_year, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

const getVerificationByIDQuery = `SELECT ` + verificationColumns + `
FROM income_verifications WHERE id = $1`

const getActiveByLeaseQuery = `SELECT ` + verificationColumns + `
FROM income_verifications
WHERE lease_id = $1 AND status = 'IN_PROGRESS'
LIMIT 1`

const countByLeaseQuery = `SELECT COUNT(*) FROM income_verifications WHERE lease_id = $1`

const updateVerificationQuery = `UPDATE income_verifications
SET status = $2, calculated_verified_income = $3, finalized_at = $4, updated_at = $5
WHERE id = $1`

const finalizeStaleQuery = `UPDATE income_verifications
SET status = 'FINALIZED', calculated_verified_income = $2, finalized_at = $3, updated_at = $3
WHERE id = $1 AND status = 'IN_PROGRESS'`

// uniqueViolation is the Postgres error code raised when the partial unique
// index on (lease_id) WHERE status='IN_PROGRESS' rejects a second start.
const uniqueViolation = "23505"

// PGRepo is the PostgreSQL Repo.
type PGRepo struct {
	db *sql.DB
}

func NewPGRepo(db *sql.DB) *PGRepo {
	return &PGRepo{db: db}
}

var _ Repo = (*PGRepo)(nil)

func (r *PGRepo) Create(ctx context.Context, v Verification) error {
	_, err := r.db.ExecContext(ctx, insertVerificationQuery,
		v.ID,
		v.LeaseID,
		v.Status,
		v.Reason,
		v.PeriodStart,
		v.PeriodEnd,
		v.DueDate,
		v.LeaseYear,
		v.CreatedAt,
		v.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrLeaseConflict
	}
	if err != nil {
		return fmt.Errorf("insert verification: %w", err)
	}
	return nil
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (Verification, error) {
	row := r.db.QueryRowContext(ctx, getVerificationByIDQuery, id)
	v, err := scanVerification(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Verification{}, ErrNotFound
	}
	if err != nil {
		return Verification{}, fmt.Errorf("get verification: %w", err)
	}
	return v, nil
}

func (r *PGRepo) GetActiveByLease(ctx context.Context, leaseID string) (Verification, error) {
	row := r.db.QueryRowContext(ctx, getActiveByLeaseQuery, leaseID)
	v, err := scanVerification(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Verification{}, ErrNotFound
	}
	if err != nil {
		return Verification{}, fmt.Errorf("get active verification: %w", err)
	}
	return v, nil
}

func (r *PGRepo) CountByLease(ctx context.Context, leaseID string) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, countByLeaseQuery, leaseID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count verifications: %w", err)
	}
	return count, nil
}

func (r *PGRepo) Update(ctx context.Context, v Verification) error {
	res, err := r.db.ExecContext(ctx, updateVerificationQuery,
		v.ID,
		v.Status,
		nullFloat(v.CalculatedVerifiedIncome),
		nullTime(v.FinalizedAt),
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("update verification: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update verification: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Supersede finalizes the stale verification and inserts the replacement in
// one transaction. If a concurrent caller already finalized the stale row
// the finalize update becomes a no-op and only the insert matters.
func (r *PGRepo) Supersede(ctx context.Context, staleID string, finalTotal *float64, next Verification) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin supersede: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, finalizeStaleQuery, staleID, nullFloat(finalTotal), time.Now().UTC()); err != nil {
		return fmt.Errorf("finalize stale verification: %w", err)
	}
	_, err = tx.ExecContext(ctx, insertVerificationQuery,
		next.ID,
		next.LeaseID,
		next.Status,
		next.Reason,
		next.PeriodStart,
		next.PeriodEnd,
		next.DueDate,
		next.LeaseYear,
		next.CreatedAt,
		next.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrLeaseConflict
	}
	if err != nil {
		return fmt.Errorf("insert superseding verification: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit supersede: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVerification(s rowScanner) (Verification, error) {
	var (
		v           Verification
		total       sql.NullFloat64
		finalizedAt sql.NullTime
	)
	err := s.Scan(
		&v.ID,
		&v.LeaseID,
		&v.Status,
		&v.Reason,
		&v.PeriodStart,
		&v.PeriodEnd,
		&v.DueDate,
		&v.LeaseYear,
		&total,
		&finalizedAt,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	if err != nil {
		return Verification{}, err
	}
	if total.Valid {
		v.CalculatedVerifiedIncome = &total.Float64
	}
	if finalizedAt.Valid {
		v.FinalizedAt = &finalizedAt.Time
	}
	return v, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

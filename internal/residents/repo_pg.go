package residents

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const residentColumns = `id, lease_id, name, declared_annualized_income, calculated_annualized_income, verified_income, income_finalized, has_no_income, finalized_at, created_at, updated_at`

// Create inserts a new resident.
func (r *PGRepo) Create(ctx context.Context, res Resident) error {
	const query = `
INSERT INTO residents (
    id,
    lease_id,
    name,
    declared_annualized_income,
    income_finalized,
    has_no_income,
    created_at,
    updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.DB.ExecContext(
		ctx,
		query,
		res.ID,
		res.LeaseID,
		res.Name,
		nullFloat(res.DeclaredAnnualizedIncome),
		res.IncomeFinalized,
		res.HasNoIncome,
		res.CreatedAt,
		res.UpdatedAt,
	)
	return err
}

// GetByID returns a resident by id.
func (r *PGRepo) GetByID(ctx context.Context, id string) (Resident, error) {
	const query = `
SELECT ` + residentColumns + `
FROM residents
WHERE id = $1
LIMIT 1`
	row := r.DB.QueryRowContext(ctx, query, id)
	res, err := scanResident(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Resident{}, ErrNotFound
		}
		return Resident{}, err
	}
	return res, nil
}

// ListByLease returns the residents on a lease, oldest first.
func (r *PGRepo) ListByLease(ctx context.Context, leaseID string) ([]Resident, error) {
	const query = `
SELECT ` + residentColumns + `
FROM residents
WHERE lease_id = $1
ORDER BY created_at ASC, id ASC`

	rows, err := r.DB.QueryContext(ctx, query, leaseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Resident
	for rows.Next() {
		res, err := scanResident(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// Update replaces a resident's mutable fields.
func (r *PGRepo) Update(ctx context.Context, res Resident) error {
	const query = `
UPDATE residents
SET declared_annualized_income = $1,
    calculated_annualized_income = $2,
    verified_income = $3,
    income_finalized = $4,
    has_no_income = $5,
    finalized_at = $6,
    updated_at = $7
WHERE id = $8`

	result, err := r.DB.ExecContext(
		ctx,
		query,
		nullFloat(res.DeclaredAnnualizedIncome),
		nullFloat(res.CalculatedAnnualizedIncome),
		nullFloat(res.VerifiedIncome),
		res.IncomeFinalized,
		res.HasNoIncome,
		nullTime(res.FinalizedAt),
		time.Now().UTC(),
		res.ID,
	)
	if err != nil {
		return err
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResident(row rowScanner) (Resident, error) {
	var (
		res        Resident
		declared   sql.NullFloat64
		calculated sql.NullFloat64
		verified   sql.NullFloat64
		finalized  sql.NullTime
	)
	err := row.Scan(
		&res.ID,
		&res.LeaseID,
		&res.Name,
		&declared,
		&calculated,
		&verified,
		&res.IncomeFinalized,
		&res.HasNoIncome,
		&finalized,
		&res.CreatedAt,
		&res.UpdatedAt,
	)
	if err != nil {
		return Resident{}, err
	}
	if declared.Valid {
		res.DeclaredAnnualizedIncome = &declared.Float64
	}
	if calculated.Valid {
		res.CalculatedAnnualizedIncome = &calculated.Float64
	}
	if verified.Valid {
		res.VerifiedIncome = &verified.Float64
	}
	if finalized.Valid {
		res.FinalizedAt = &finalized.Time
	}
	return res, nil
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

var _ Repo = (*PGRepo)(nil)

package leases

import (
	"context"
	"database/sql"
	"errors"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a new lease.
func (r *PGRepo) Create(ctx context.Context, lease Lease) error {
	const query = `
INSERT INTO leases (
    id,
    name,
    address,
    unit_number,
    lease_start_date,
    lease_end_date,
    created_at,
    updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	var address sql.NullString
	if lease.Address != "" {
		address = sql.NullString{String: lease.Address, Valid: true}
	}
	var unitNumber sql.NullString
	if lease.UnitNumber != "" {
		unitNumber = sql.NullString{String: lease.UnitNumber, Valid: true}
	}
	var endDate sql.NullTime
	if lease.LeaseEndDate != nil {
		endDate = sql.NullTime{Time: *lease.LeaseEndDate, Valid: true}
	}

	_, err := r.DB.ExecContext(
		ctx,
		query,
		lease.ID,
		lease.Name,
		address,
		unitNumber,
		lease.LeaseStartDate,
		endDate,
		lease.CreatedAt,
		lease.UpdatedAt,
	)
	return err
}

// GetByID returns a lease by id.
func (r *PGRepo) GetByID(ctx context.Context, id string) (Lease, error) {
	const query = `
SELECT id, name, address, unit_number, lease_start_date, lease_end_date, created_at, updated_at
FROM leases
WHERE id = $1
LIMIT 1`

	var (
		lease      Lease
		address    sql.NullString
		unitNumber sql.NullString
		endDate    sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&lease.ID,
		&lease.Name,
		&address,
		&unitNumber,
		&lease.LeaseStartDate,
		&endDate,
		&lease.CreatedAt,
		&lease.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Lease{}, ErrNotFound
		}
		return Lease{}, err
	}
	if address.Valid {
		lease.Address = address.String
	}
	if unitNumber.Valid {
		lease.UnitNumber = unitNumber.String
	}
	if endDate.Valid {
		lease.LeaseEndDate = &endDate.Time
	}
	return lease, nil
}

var _ Repo = (*PGRepo)(nil)

package overrides

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

const overrideColumns = `id, type, status, explanation, requester_id, document_id, resident_id, verification_id, admin_notes, reviewed_by, reviewed_at, created_at, updated_at`

// Create inserts a new override request.
func (r *PGRepo) Create(ctx context.Context, req OverrideRequest) error {
	const query = `
INSERT INTO override_requests (
    id,
    type,
    status,
    explanation,
    requester_id,
    document_id,
    resident_id,
    verification_id,
    created_at,
    updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.DB.ExecContext(
		ctx,
		query,
		req.ID,
		req.Type,
		req.Status,
		req.Explanation,
		req.RequesterID,
		nullString(req.DocumentID),
		nullString(req.ResidentID),
		nullString(req.VerificationID),
		req.CreatedAt,
		req.UpdatedAt,
	)
	return err
}

// GetByID returns an override request by id.
func (r *PGRepo) GetByID(ctx context.Context, id string) (OverrideRequest, error) {
	const query = `
SELECT ` + overrideColumns + `
FROM override_requests
WHERE id = $1
LIMIT 1`
	req, err := scanOverride(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return OverrideRequest{}, ErrNotFound
		}
		return OverrideRequest{}, err
	}
	return req, nil
}

// List returns override requests, optionally filtered by status, newest first.
func (r *PGRepo) List(ctx context.Context, status string) ([]OverrideRequest, error) {
	query := `
SELECT ` + overrideColumns + `
FROM override_requests
ORDER BY created_at DESC, id ASC`
	args := []any{}
	if status != "" {
		query = `
SELECT ` + overrideColumns + `
FROM override_requests
WHERE status = $1
ORDER BY created_at DESC, id ASC`
		args = append(args, status)
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOverrides(rows)
}

// ListByVerification returns every override request attached to a verification.
func (r *PGRepo) ListByVerification(ctx context.Context, verificationID string) ([]OverrideRequest, error) {
	const query = `
SELECT ` + overrideColumns + `
FROM override_requests
WHERE verification_id = $1
ORDER BY created_at DESC, id ASC`

	rows, err := r.DB.QueryContext(ctx, query, verificationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOverrides(rows)
}

// HasPendingForDocument reports whether a document has an unreviewed request.
func (r *PGRepo) HasPendingForDocument(ctx context.Context, documentID string) (bool, error) {
	const query = `
SELECT EXISTS (
    SELECT 1 FROM override_requests
    WHERE document_id = $1 AND status = $2
)`
	var exists bool
	if err := r.DB.QueryRowContext(ctx, query, documentID, StatusPending).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// Update replaces an override request's review fields.
func (r *PGRepo) Update(ctx context.Context, req OverrideRequest) error {
	const query = `
UPDATE override_requests
SET status = $1,
    admin_notes = $2,
    reviewed_by = $3,
    reviewed_at = $4,
    updated_at = $5
WHERE id = $6`

	result, err := r.DB.ExecContext(
		ctx,
		query,
		req.Status,
		nullString(req.AdminNotes),
		nullString(req.ReviewedBy),
		nullReviewTime(req.ReviewedAt),
		time.Now().UTC(),
		req.ID,
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

func scanOverride(row rowScanner) (OverrideRequest, error) {
	var (
		req            OverrideRequest
		documentID     sql.NullString
		residentID     sql.NullString
		verificationID sql.NullString
		adminNotes     sql.NullString
		reviewedBy     sql.NullString
		reviewedAt     sql.NullTime
	)
	err := row.Scan(
		&req.ID,
		&req.Type,
		&req.Status,
		&req.Explanation,
		&req.RequesterID,
		&documentID,
		&residentID,
		&verificationID,
		&adminNotes,
		&reviewedBy,
		&reviewedAt,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return OverrideRequest{}, err
	}
	if documentID.Valid {
		req.DocumentID = &documentID.String
	}
	if residentID.Valid {
		req.ResidentID = &residentID.String
	}
	if verificationID.Valid {
		req.VerificationID = &verificationID.String
	}
	if adminNotes.Valid {
		req.AdminNotes = &adminNotes.String
	}
	if reviewedBy.Valid {
		req.ReviewedBy = &reviewedBy.String
	}
	if reviewedAt.Valid {
		req.ReviewedAt = &reviewedAt.Time
	}
	return req, nil
}

func collectOverrides(rows *sql.Rows) ([]OverrideRequest, error) {
	var out []OverrideRequest
	for rows.Next() {
		req, err := scanOverride(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

func nullString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullReviewTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

var _ Repo = (*PGRepo)(nil)

package documents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const documentColumns = `id, verification_id, resident_id, document_type, status,
	storage_key, file_name, mime_type, size_bytes, document_date, uploaded_by,
	employee_name, employer_name, tax_year, box1_wages, box3_ss_wages,
	box5_medicare_wages, gross_pay_amount, pay_period_start, pay_period_end,
	pay_frequency, benefit_amount, benefit_frequency, calculated_annualized_income,
	confidence, analyzer_model, analyzer_doc_type, review_reason, error_code,
	duplicate_of, started_at, completed_at, created_at, updated_at, deleted_at`

const insertDocumentQuery = `INSERT INTO income_documents (
	id, verification_id, resident_id, document_type, status, storage_key,
	file_name, mime_type, size_bytes, document_date, uploaded_by, started_at,
	created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

const getDocumentByIDQuery = `SELECT ` + documentColumns + `
FROM income_documents WHERE id = $1`

const listByVerificationQuery = `SELECT ` + documentColumns + `
FROM income_documents
WHERE verification_id = $1 AND deleted_at IS NULL
ORDER BY created_at DESC, id`

const listForDedupeQuery = `SELECT ` + documentColumns + `
FROM income_documents
WHERE resident_id = $1 AND document_type = $2 AND deleted_at IS NULL
  AND status IN ('COMPLETED', 'NEEDS_REVIEW')
ORDER BY created_at DESC, id`

const listCompletedByResidentQuery = `SELECT ` + documentColumns + `
FROM income_documents
WHERE resident_id = $1 AND status = 'COMPLETED' AND deleted_at IS NULL
ORDER BY created_at DESC, id`

const listNeedsReviewByResidentQuery = `SELECT ` + documentColumns + `
FROM income_documents
WHERE resident_id = $1 AND status = 'NEEDS_REVIEW' AND deleted_at IS NULL
ORDER BY created_at DESC, id`

const markNeedsReviewQuery = `UPDATE income_documents
SET status = 'NEEDS_REVIEW', review_reason = $2, error_code = $3,
    completed_at = $4, updated_at = $5
WHERE id = $1 AND status = 'PROCESSING' AND deleted_at IS NULL`

const markDuplicateQuery = `UPDATE income_documents
SET duplicate_of = $2, review_reason = $3, error_code = $4,
    completed_at = $5, deleted_at = $5, updated_at = $6
WHERE id = $1 AND status = 'PROCESSING' AND deleted_at IS NULL`

const listStuckProcessingQuery = `SELECT ` + documentColumns + `
FROM income_documents
WHERE status = 'PROCESSING' AND deleted_at IS NULL AND created_at < $1
ORDER BY created_at, id`

const documentExistsQuery = `SELECT 1 FROM income_documents WHERE id = $1`

// PGRepo is the PostgreSQL Repo.
type PGRepo struct {
	db *sql.DB
}

func NewPGRepo(db *sql.DB) *PGRepo {
	return &PGRepo{db: db}
}

var _ Repo = (*PGRepo)(nil)

func (r *PGRepo) Create(ctx context.Context, doc Document) error {
	_, err := r.db.ExecContext(ctx, insertDocumentQuery,
		doc.ID,
		doc.VerificationID,
		doc.ResidentID,
		doc.DocumentType,
		doc.Status,
		doc.StorageKey,
		doc.FileName,
		doc.MimeType,
		doc.SizeBytes,
		nullTime(doc.DocumentDate),
		doc.UploadedBy,
		nullTime(doc.StartedAt),
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (Document, error) {
	row := r.db.QueryRowContext(ctx, getDocumentByIDQuery, id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

func (r *PGRepo) ListByVerification(ctx context.Context, verificationID string) ([]Document, error) {
	return r.queryList(ctx, listByVerificationQuery, verificationID)
}

func (r *PGRepo) ListForDedupe(ctx context.Context, residentID, documentType string) ([]Document, error) {
	return r.queryList(ctx, listForDedupeQuery, residentID, documentType)
}

func (r *PGRepo) ListCompletedByResident(ctx context.Context, residentID string) ([]Document, error) {
	return r.queryList(ctx, listCompletedByResidentQuery, residentID)
}

func (r *PGRepo) ListNeedsReviewByResident(ctx context.Context, residentID string) ([]Document, error) {
	return r.queryList(ctx, listNeedsReviewByResidentQuery, residentID)
}

func (r *PGRepo) MarkNeedsReview(ctx context.Context, id, reason, errorCode string, completedAt time.Time) (bool, error) {
	return r.claim(ctx, id, markNeedsReviewQuery,
		id, nullString(reason), nullString(errorCode), completedAt, time.Now().UTC())
}

func (r *PGRepo) MarkDuplicate(ctx context.Context, id, duplicateOf, reason string, completedAt time.Time) (bool, error) {
	return r.claim(ctx, id, markDuplicateQuery,
		id, duplicateOf, nullString(reason), ErrorCodeDuplicate, completedAt, time.Now().UTC())
}

func (r *PGRepo) ListStuckProcessing(ctx context.Context, olderThan time.Time) ([]Document, error) {
	return r.queryList(ctx, listStuckProcessingQuery, olderThan)
}

func (r *PGRepo) ReclaimStuck(ctx context.Context, id, reason string, completedAt time.Time) (bool, error) {
	return r.MarkNeedsReview(ctx, id, reason, ErrorCodeTimeout, completedAt)
}

// claim runs a guarded transition and reports whether this caller won it. A
// zero-row update on an existing document means another writer got there
// first, which is not an error.
func (r *PGRepo) claim(ctx context.Context, id, query string, args ...any) (bool, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("update document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update document: %w", err)
	}
	if n > 0 {
		return true, nil
	}
	var one int
	err = r.db.QueryRowContext(ctx, documentExistsQuery, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, ErrNotFound
	}
	if err != nil {
		return false, fmt.Errorf("check document: %w", err)
	}
	return false, nil
}

func (r *PGRepo) queryList(ctx context.Context, query string, args ...any) ([]Document, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(s rowScanner) (Document, error) {
	var (
		doc              Document
		documentDate     sql.NullTime
		employeeName     sql.NullString
		employerName     sql.NullString
		taxYear          sql.NullString
		box1             sql.NullFloat64
		box3             sql.NullFloat64
		box5             sql.NullFloat64
		grossPay         sql.NullFloat64
		periodStart      sql.NullTime
		periodEnd        sql.NullTime
		payFrequency     sql.NullString
		benefitAmount    sql.NullFloat64
		benefitFrequency sql.NullString
		annualized       sql.NullFloat64
		confidence       sql.NullFloat64
		analyzerModel    sql.NullString
		analyzerDocType  sql.NullString
		reviewReason     sql.NullString
		errorCode        sql.NullString
		duplicateOf      sql.NullString
		startedAt        sql.NullTime
		completedAt      sql.NullTime
		deletedAt        sql.NullTime
	)
	err := s.Scan(
		&doc.ID,
		&doc.VerificationID,
		&doc.ResidentID,
		&doc.DocumentType,
		&doc.Status,
		&doc.StorageKey,
		&doc.FileName,
		&doc.MimeType,
		&doc.SizeBytes,
		&documentDate,
		&doc.UploadedBy,
		&employeeName,
		&employerName,
		&taxYear,
		&box1,
		&box3,
		&box5,
		&grossPay,
		&periodStart,
		&periodEnd,
		&payFrequency,
		&benefitAmount,
		&benefitFrequency,
		&annualized,
		&confidence,
		&analyzerModel,
		&analyzerDocType,
		&reviewReason,
		&errorCode,
		&duplicateOf,
		&startedAt,
		&completedAt,
		&doc.CreatedAt,
		&doc.UpdatedAt,
		&deletedAt,
	)
	if err != nil {
		return Document{}, err
	}
	if documentDate.Valid {
		doc.DocumentDate = &documentDate.Time
	}
	doc.EmployeeName = employeeName.String
	doc.EmployerName = employerName.String
	doc.TaxYear = taxYear.String
	if box1.Valid {
		doc.Box1Wages = &box1.Float64
	}
	if box3.Valid {
		doc.Box3SSWages = &box3.Float64
	}
	if box5.Valid {
		doc.Box5MediWages = &box5.Float64
	}
	if grossPay.Valid {
		doc.GrossPay = &grossPay.Float64
	}
	if periodStart.Valid {
		doc.PayPeriodStart = &periodStart.Time
	}
	if periodEnd.Valid {
		doc.PayPeriodEnd = &periodEnd.Time
	}
	doc.PayFrequency = payFrequency.String
	if benefitAmount.Valid {
		doc.BenefitAmount = &benefitAmount.Float64
	}
	doc.BenefitFrequency = benefitFrequency.String
	if annualized.Valid {
		doc.CalculatedAnnualizedIncome = &annualized.Float64
	}
	if confidence.Valid {
		doc.Confidence = &confidence.Float64
	}
	doc.AnalyzerModel = analyzerModel.String
	doc.AnalyzerDocType = analyzerDocType.String
	doc.ReviewReason = reviewReason.String
	doc.ErrorCode = errorCode.String
	doc.DuplicateOf = duplicateOf.String
	if startedAt.Valid {
		doc.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		doc.CompletedAt = &completedAt.Time
	}
	if deletedAt.Valid {
		doc.DeletedAt = &deletedAt.Time
	}
	return doc, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

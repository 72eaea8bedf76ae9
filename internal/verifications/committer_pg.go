package verifications

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Kayler1303/ACS-sub001/internal/documents"
	"github.com/Kayler1303/ACS-sub001/internal/income"
	"github.com/Kayler1303/ACS-sub001/internal/residents"
	"github.com/Kayler1303/ACS-sub001/internal/shared/telemetry"
)

// incomeDocColumns is the projection aggregation reads: identity plus the
// extracted figures that feed the annualization policy.
const incomeDocColumns = `id, verification_id, resident_id, document_type, status,
	employer_name, tax_year, box1_wages, box3_ss_wages, box5_medicare_wages,
	gross_pay_amount, pay_period_end, pay_frequency, benefit_amount,
	benefit_frequency, calculated_annualized_income`

const completeDocumentQuery = `UPDATE income_documents
SET status = 'COMPLETED',
    employee_name = $2, employer_name = $3, tax_year = $4,
    box1_wages = $5, box3_ss_wages = $6, box5_medicare_wages = $7,
    gross_pay_amount = $8, pay_period_start = $9, pay_period_end = $10,
    pay_frequency = $11, benefit_amount = $12, benefit_frequency = $13,
    calculated_annualized_income = $14, confidence = $15,
    analyzer_model = $16, analyzer_doc_type = $17, document_date = $18,
    review_reason = $19, error_code = $20, completed_at = $21, updated_at = $22
WHERE id = $1 AND status IN ('PROCESSING', 'NEEDS_REVIEW') AND deleted_at IS NULL`

const documentForUpdateQuery = `SELECT ` + incomeDocColumns + `
FROM income_documents
WHERE id = $1 AND deleted_at IS NULL
FOR UPDATE`

const softDeleteDocumentQuery = `UPDATE income_documents
SET deleted_at = $2, updated_at = $2
WHERE id = $1 AND deleted_at IS NULL`

const completedDocsByResidentQuery = `SELECT ` + incomeDocColumns + `
FROM income_documents
WHERE resident_id = $1 AND status = 'COMPLETED' AND deleted_at IS NULL
ORDER BY created_at DESC, id`

const updateResidentCalculatedQuery = `UPDATE residents
SET calculated_annualized_income = $2, updated_at = $3
WHERE id = $1`

const leaseMembersQuery = `SELECT income_finalized, verified_income, calculated_annualized_income
FROM residents
WHERE lease_id = (SELECT lease_id FROM residents WHERE id = $1)`

const updateVerificationTotalQuery = `UPDATE income_verifications
SET calculated_verified_income = $2, updated_at = $3
WHERE id = $1 AND status = 'IN_PROGRESS'`

const documentExistsQuery = `SELECT 1 FROM income_documents WHERE id = $1`

// PGCommitter applies document outcomes and the income recompute they
// trigger in a single transaction, so a reader never observes a COMPLETED
// document whose contribution is missing from the resident total.
type PGCommitter struct {
	db *sql.DB
}

func NewPGCommitter(db *sql.DB) *PGCommitter {
	return &PGCommitter{db: db}
}

var _ documents.OutcomeCommitter = (*PGCommitter)(nil)

// CompleteAndRecompute writes the completed document state and recomputes
// the resident and lease totals. The write is guarded on the document still
// being open; a redelivered or already-applied outcome is a silent no-op.
func (c *PGCommitter) CompleteAndRecompute(ctx context.Context, doc documents.Document) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin completion: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, completeDocumentQuery,
		doc.ID,
		nullString(doc.EmployeeName),
		nullString(doc.EmployerName),
		nullString(doc.TaxYear),
		nullFloat(doc.Box1Wages),
		nullFloat(doc.Box3SSWages),
		nullFloat(doc.Box5MediWages),
		nullFloat(doc.GrossPay),
		nullTime(doc.PayPeriodStart),
		nullTime(doc.PayPeriodEnd),
		nullString(doc.PayFrequency),
		nullFloat(doc.BenefitAmount),
		nullString(doc.BenefitFrequency),
		nullFloat(doc.CalculatedAnnualizedIncome),
		nullFloat(doc.Confidence),
		nullString(doc.AnalyzerModel),
		nullString(doc.AnalyzerDocType),
		nullTime(doc.DocumentDate),
		nullString(doc.ReviewReason),
		nullString(doc.ErrorCode),
		nullTime(doc.CompletedAt),
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("complete document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("complete document: %w", err)
	}
	if n == 0 {
		var one int
		err := tx.QueryRowContext(ctx, documentExistsQuery, doc.ID).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return documents.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("check document: %w", err)
		}
		return nil
	}

	if err := c.recompute(ctx, tx, doc.ResidentID, doc.VerificationID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit completion: %w", err)
	}
	return nil
}

// DeleteAndRecompute soft-deletes a document and recomputes the totals it
// contributed to, returning the document as it stood.
func (c *PGCommitter) DeleteAndRecompute(ctx context.Context, documentID string) (documents.Document, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return documents.Document{}, fmt.Errorf("begin deletion: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, documentForUpdateQuery, documentID)
	doc, err := scanIncomeDoc(row)
	if errors.Is(err, sql.ErrNoRows) {
		return documents.Document{}, documents.ErrNotFound
	}
	if err != nil {
		return documents.Document{}, fmt.Errorf("load document: %w", err)
	}

	if _, err := tx.ExecContext(ctx, softDeleteDocumentQuery, documentID, time.Now().UTC()); err != nil {
		return documents.Document{}, fmt.Errorf("delete document: %w", err)
	}
	if err := c.recompute(ctx, tx, doc.ResidentID, doc.VerificationID); err != nil {
		return documents.Document{}, err
	}
	if err := tx.Commit(); err != nil {
		return documents.Document{}, fmt.Errorf("commit deletion: %w", err)
	}
	return doc, nil
}

// recompute rebuilds the resident's calculated income from their completed
// documents and refreshes the running lease total, all on the caller's
// transaction. Finalized verifications keep their frozen total; the update
// is guarded on IN_PROGRESS.
func (c *PGCommitter) recompute(ctx context.Context, tx *sql.Tx, residentID, verificationID string) error {
	docs, err := c.completedDocs(ctx, tx, residentID)
	if err != nil {
		return err
	}
	var calculated sql.NullFloat64
	if len(docs) > 0 {
		summary := income.Annualize(projections(docs))
		calculated = sql.NullFloat64{Float64: summary.Total, Valid: true}
	}
	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, updateResidentCalculatedQuery, residentID, calculated, now); err != nil {
		return fmt.Errorf("update resident income: %w", err)
	}
	var calcValue any
	if calculated.Valid {
		calcValue = calculated.Float64
	}
	telemetry.Info("income.recompute", map[string]any{
		"resident_id":     residentID,
		"verification_id": verificationID,
		"documents":       len(docs),
		"calculated":      calcValue,
	})

	members, err := c.leaseMembers(ctx, tx, residentID)
	if err != nil {
		return err
	}
	total := leaseTotal(members)
	if _, err := tx.ExecContext(ctx, updateVerificationTotalQuery, verificationID, total, now); err != nil {
		return fmt.Errorf("update verification total: %w", err)
	}
	return nil
}

func (c *PGCommitter) completedDocs(ctx context.Context, tx *sql.Tx, residentID string) ([]documents.Document, error) {
	rows, err := tx.QueryContext(ctx, completedDocsByResidentQuery, residentID)
	if err != nil {
		return nil, fmt.Errorf("list completed documents: %w", err)
	}
	defer rows.Close()

	var out []documents.Document
	for rows.Next() {
		doc, err := scanIncomeDoc(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list completed documents: %w", err)
	}
	return out, nil
}

func (c *PGCommitter) leaseMembers(ctx context.Context, tx *sql.Tx, residentID string) ([]residents.Resident, error) {
	rows, err := tx.QueryContext(ctx, leaseMembersQuery, residentID)
	if err != nil {
		return nil, fmt.Errorf("list lease residents: %w", err)
	}
	defer rows.Close()

	var out []residents.Resident
	for rows.Next() {
		var (
			res        residents.Resident
			verified   sql.NullFloat64
			calculated sql.NullFloat64
		)
		if err := rows.Scan(&res.IncomeFinalized, &verified, &calculated); err != nil {
			return nil, fmt.Errorf("scan resident: %w", err)
		}
		if verified.Valid {
			res.VerifiedIncome = &verified.Float64
		}
		if calculated.Valid {
			res.CalculatedAnnualizedIncome = &calculated.Float64
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list lease residents: %w", err)
	}
	return out, nil
}

// scanIncomeDoc scans the aggregation projection into a document. Fields
// outside the projection stay zero.
func scanIncomeDoc(s rowScanner) (documents.Document, error) {
	var (
		doc         documents.Document
		employer    sql.NullString
		taxYear     sql.NullString
		box1        sql.NullFloat64
		box3        sql.NullFloat64
		box5        sql.NullFloat64
		gross       sql.NullFloat64
		periodEnd   sql.NullTime
		payFreq     sql.NullString
		benefit     sql.NullFloat64
		benefitFreq sql.NullString
		annualized  sql.NullFloat64
	)
	err := s.Scan(
		&doc.ID,
		&doc.VerificationID,
		&doc.ResidentID,
		&doc.DocumentType,
		&doc.Status,
		&employer,
		&taxYear,
		&box1,
		&box3,
		&box5,
		&gross,
		&periodEnd,
		&payFreq,
		&benefit,
		&benefitFreq,
		&annualized,
	)
	if err != nil {
		return documents.Document{}, err
	}
	doc.EmployerName = employer.String
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
	if gross.Valid {
		doc.GrossPay = &gross.Float64
	}
	if periodEnd.Valid {
		doc.PayPeriodEnd = &periodEnd.Time
	}
	doc.PayFrequency = payFreq.String
	if benefit.Valid {
		doc.BenefitAmount = &benefit.Float64
	}
	doc.BenefitFrequency = benefitFreq.String
	if annualized.Valid {
		doc.CalculatedAnnualizedIncome = &annualized.Float64
	}
	return doc, nil
}

func nullString(str string) sql.NullString {
	return sql.NullString{String: str, Valid: str != ""}
}

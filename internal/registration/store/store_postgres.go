package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"jobstream/internal/registration/models"
)

// PostgresStore persists registrations in PostgreSQL. Read-modify-write runs
// inside a transaction with a row lock so concurrent updates to the same
// registration serialize at the database.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed registration store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const registrationColumns = `
	id, company_email, contact_name,
	email_token, email_token_expires_at, email_verified,
	legal_name, registration_number, vat_number, address, industry,
	company_size, description, website_url, linkedin_url,
	bank_name, iban_ciphertext, account_holder_name, balance_proof_document_id,
	wallet_address, stake_amount, contract_address,
	status, completed_steps, queue_position,
	terms_accepted, terms_accepted_at,
	review_notes, reviewed_by,
	created_at, updated_at, expires_at, submitted_at, reviewed_at`

func (s *PostgresStore) Create(ctx context.Context, reg *models.Registration) error {
	query := `
		INSERT INTO registrations (` + registrationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29,
			$30, $31, $32, $33, $34)
	`
	_, err := s.db.ExecContext(ctx, query, registrationArgs(reg)...)
	if err != nil {
		return fmt.Errorf("insert registration: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (*models.Registration, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+registrationColumns+` FROM registrations WHERE id = $1`, id)
	reg, err := scanRegistration(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find registration: %w", err)
	}
	return reg, nil
}

func (s *PostgresStore) Update(ctx context.Context, id string, mutate func(*models.Registration) error) (*models.Registration, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	row := tx.QueryRowContext(ctx, `SELECT `+registrationColumns+` FROM registrations WHERE id = $1 FOR UPDATE`, id)
	reg, err := scanRegistration(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lock registration: %w", err)
	}

	if err := mutate(reg); err != nil {
		return nil, err
	}

	query := `
		UPDATE registrations SET
			company_email = $2, contact_name = $3,
			email_token = $4, email_token_expires_at = $5, email_verified = $6,
			legal_name = $7, registration_number = $8, vat_number = $9, address = $10,
			industry = $11, company_size = $12, description = $13, website_url = $14, linkedin_url = $15,
			bank_name = $16, iban_ciphertext = $17, account_holder_name = $18, balance_proof_document_id = $19,
			wallet_address = $20, stake_amount = $21, contract_address = $22,
			status = $23, completed_steps = $24, queue_position = $25,
			terms_accepted = $26, terms_accepted_at = $27,
			review_notes = $28, reviewed_by = $29,
			created_at = $30, updated_at = $31, expires_at = $32, submitted_at = $33, reviewed_at = $34
		WHERE id = $1
	`
	if _, err := tx.ExecContext(ctx, query, registrationArgs(reg)...); err != nil {
		return nil, fmt.Errorf("update registration: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit update: %w", err)
	}
	return reg, nil
}

func (s *PostgresStore) ExistsActiveByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM registrations
			WHERE lower(company_email) = lower($1)
			AND status IN ($2, $3)
		)
	`
	err := s.db.QueryRowContext(ctx, query, email,
		string(models.StatusPendingReview), string(models.StatusApproved)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check active registration: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) CountByStatus(ctx context.Context, status models.Status) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM registrations WHERE status = $1`, string(status)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count registrations: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) AddDocument(ctx context.Context, doc *models.Document) error {
	query := `
		INSERT INTO registration_documents
			(id, registration_id, file_name, content_type, storage_ref, size_bytes,
			 doc_type, status, uploaded_at, signed_url, signed_url_expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.db.ExecContext(ctx, query,
		doc.ID, doc.RegistrationID, doc.FileName, doc.ContentType, doc.StorageRef,
		doc.SizeBytes, string(doc.Type), string(doc.Status), doc.UploadedAt,
		nullString(doc.SignedURL), doc.SignedURLExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindDocument(ctx context.Context, id string) (*models.Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, registration_id, file_name, content_type, storage_ref, size_bytes,
		       doc_type, status, uploaded_at, signed_url, signed_url_expires_at
		FROM registration_documents WHERE id = $1`, id)
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("find document: %w", err)
	}
	return doc, nil
}

func (s *PostgresStore) ListDocuments(ctx context.Context, registrationID string) ([]*models.Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, registration_id, file_name, content_type, storage_ref, size_bytes,
		       doc_type, status, uploaded_at, signed_url, signed_url_expires_at
		FROM registration_documents WHERE registration_id = $1
		ORDER BY uploaded_at`, registrationID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var out []*models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateDocument(ctx context.Context, doc *models.Document) error {
	query := `
		UPDATE registration_documents SET
			file_name = $2, content_type = $3, storage_ref = $4, size_bytes = $5,
			doc_type = $6, status = $7, signed_url = $8, signed_url_expires_at = $9
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		doc.ID, doc.FileName, doc.ContentType, doc.StorageRef, doc.SizeBytes,
		string(doc.Type), string(doc.Status), nullString(doc.SignedURL), doc.SignedURLExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update document result: %w", err)
	}
	if affected == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

// DeleteExpired is the sweeper's store half: expiry boundary inclusive,
// PENDING_REVIEW and APPROVED rows untouchable, documents removed by the
// ON DELETE CASCADE constraint.
func (s *PostgresStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	query := `
		DELETE FROM registrations
		WHERE expires_at <= $1
		AND status NOT IN ($2, $3)
	`
	res, err := s.db.ExecContext(ctx, query, now,
		string(models.StatusPendingReview), string(models.StatusApproved))
	if err != nil {
		return 0, fmt.Errorf("delete expired registrations: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired result: %w", err)
	}
	return int(affected), nil
}

// rowScanner lets scanRegistration work for both QueryRow and Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func registrationArgs(reg *models.Registration) []any {
	var details models.CompanyDetails
	if reg.Details != nil {
		details = *reg.Details
	}
	var fin models.FinancialInfo
	if reg.Financial != nil {
		fin = *reg.Financial
	}

	steps := make([]string, 0, len(reg.Steps))
	for _, step := range reg.Steps.List() {
		steps = append(steps, string(step))
	}

	return []any{
		reg.ID, reg.CompanyEmail, reg.ContactName,
		reg.EmailToken, reg.EmailTokenExpiresAt, reg.EmailVerified,
		nullString(details.LegalName), nullString(details.RegistrationNumber),
		nullString(details.VATNumber), nullString(details.Address), nullString(details.Industry),
		nullString(details.CompanySize), nullString(details.Description),
		nullString(details.WebsiteURL), nullString(details.LinkedInURL),
		nullString(fin.BankName), nullString(fin.IBANCiphertext),
		nullString(fin.AccountHolderName), nullString(fin.BalanceProofDocumentID),
		reg.WalletAddress, reg.StakeAmount.String(), reg.ContractAddress,
		string(reg.Status), pq.Array(steps), reg.QueuePosition,
		reg.TermsAccepted, reg.TermsAcceptedAt,
		reg.ReviewNotes, reg.ReviewedBy,
		reg.CreatedAt, reg.UpdatedAt, reg.ExpiresAt, reg.SubmittedAt, reg.ReviewedAt,
	}
}

func scanRegistration(row rowScanner) (*models.Registration, error) {
	var (
		reg        models.Registration
		rawStatus  string
		rawSteps   pq.StringArray
		rawStake   string
		legalName, regNumber, vatNumber, address, industry     sql.NullString
		companySize, description, websiteURL, linkedinURL      sql.NullString
		bankName, ibanCiphertext, accountHolder, balanceProof  sql.NullString
		termsAcceptedAt, submittedAt, reviewedAt               sql.NullTime
	)

	err := row.Scan(
		&reg.ID, &reg.CompanyEmail, &reg.ContactName,
		&reg.EmailToken, &reg.EmailTokenExpiresAt, &reg.EmailVerified,
		&legalName, &regNumber, &vatNumber, &address, &industry,
		&companySize, &description, &websiteURL, &linkedinURL,
		&bankName, &ibanCiphertext, &accountHolder, &balanceProof,
		&reg.WalletAddress, &rawStake, &reg.ContractAddress,
		&rawStatus, &rawSteps, &reg.QueuePosition,
		&reg.TermsAccepted, &termsAcceptedAt,
		&reg.ReviewNotes, &reg.ReviewedBy,
		&reg.CreatedAt, &reg.UpdatedAt, &reg.ExpiresAt, &submittedAt, &reviewedAt,
	)
	if err != nil {
		return nil, err
	}

	status, err := models.ParseStatus(rawStatus)
	if err != nil {
		return nil, err
	}
	reg.Status = status

	reg.Steps = models.StepSet{}
	for _, raw := range rawSteps {
		reg.Steps.Mark(models.Step(raw))
	}

	stake, err := decimal.NewFromString(rawStake)
	if err != nil {
		return nil, fmt.Errorf("parse stake amount %q: %w", rawStake, err)
	}
	reg.StakeAmount = stake

	if legalName.Valid || description.Valid {
		reg.Details = &models.CompanyDetails{
			LegalName:          legalName.String,
			RegistrationNumber: regNumber.String,
			VATNumber:          vatNumber.String,
			Address:            address.String,
			Industry:           industry.String,
			CompanySize:        companySize.String,
			Description:        description.String,
			WebsiteURL:         websiteURL.String,
			LinkedInURL:        linkedinURL.String,
		}
	}
	if ibanCiphertext.Valid || bankName.Valid {
		reg.Financial = &models.FinancialInfo{
			BankName:               bankName.String,
			IBANCiphertext:         ibanCiphertext.String,
			AccountHolderName:      accountHolder.String,
			BalanceProofDocumentID: balanceProof.String,
		}
	}
	if termsAcceptedAt.Valid {
		reg.TermsAcceptedAt = &termsAcceptedAt.Time
	}
	if submittedAt.Valid {
		reg.SubmittedAt = &submittedAt.Time
	}
	if reviewedAt.Valid {
		reg.ReviewedAt = &reviewedAt.Time
	}
	return &reg, nil
}

func scanDocument(row rowScanner) (*models.Document, error) {
	var (
		doc                models.Document
		docType, docStatus string
		signedURL          sql.NullString
		signedURLExpiry    sql.NullTime
	)
	err := row.Scan(
		&doc.ID, &doc.RegistrationID, &doc.FileName, &doc.ContentType, &doc.StorageRef,
		&doc.SizeBytes, &docType, &docStatus, &doc.UploadedAt, &signedURL, &signedURLExpiry,
	)
	if err != nil {
		return nil, err
	}
	doc.Type = models.DocumentType(docType)
	doc.Status = models.DocumentStatus(docStatus)
	doc.SignedURL = signedURL.String
	if signedURLExpiry.Valid {
		doc.SignedURLExpiresAt = &signedURLExpiry.Time
	}
	return &doc, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

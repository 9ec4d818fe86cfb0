package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the current stage of a registration within the ordered workflow.
type Status string

const (
	StatusInitiated          Status = "INITIATED"
	StatusEmailVerified      Status = "EMAIL_VERIFIED"
	StatusDetailsSubmitted   Status = "DETAILS_SUBMITTED"
	StatusDocumentsUploaded  Status = "DOCUMENTS_UPLOADED"
	StatusFinancialSubmitted Status = "FINANCIAL_SUBMITTED"
	StatusPendingReview      Status = "PENDING_REVIEW"
	StatusApproved           Status = "APPROVED"
	StatusRejected           Status = "REJECTED"
)

// statusRank drives ordering comparisons. Approved and Rejected share the top
// rank: both are terminal, neither is "further along" than the other.
var statusRank = map[Status]int{
	StatusInitiated:          0,
	StatusEmailVerified:      1,
	StatusDetailsSubmitted:   2,
	StatusDocumentsUploaded:  3,
	StatusFinancialSubmitted: 4,
	StatusPendingReview:      5,
	StatusApproved:           6,
	StatusRejected:           6,
}

// Rank returns the position of the status in the workflow order.
func (s Status) Rank() int {
	return statusRank[s]
}

// IsValid reports whether the status is one of the defined constants.
func (s Status) IsValid() bool {
	_, ok := statusRank[s]
	return ok
}

// IsTerminal reports whether no further workflow transitions occur.
func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// AtLeast reports whether the status has reached the given stage.
func (s Status) AtLeast(other Status) bool {
	return s.Rank() >= other.Rank()
}

// ParseStatus validates a stored status value. Anything outside the defined
// constants is a data corruption condition and must be rejected by loaders.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.IsValid() {
		return "", fmt.Errorf("corrupt registration status %q", raw)
	}
	return s, nil
}

// Step marks a workflow step a registration has completed. The gate reads
// these markers rather than comparing status ranks, so gating never depends
// on the status declaration order.
type Step string

const (
	StepEmailVerified      Step = "email_verified"
	StepDetailsSubmitted   Step = "details_submitted"
	StepDocumentsUploaded  Step = "documents_uploaded"
	StepFinancialSubmitted Step = "financial_submitted"
	StepSubmittedForReview Step = "submitted_for_review"
)

// stepOrder is the canonical presentation order for completed steps.
var stepOrder = []Step{
	StepEmailVerified,
	StepDetailsSubmitted,
	StepDocumentsUploaded,
	StepFinancialSubmitted,
	StepSubmittedForReview,
}

// StepSet is a monotonically growing set of completed-step markers.
type StepSet map[Step]bool

// Mark records a step as completed. Marks are never removed.
func (s StepSet) Mark(step Step) {
	s[step] = true
}

// Completed reports whether the step has been completed.
func (s StepSet) Completed(step Step) bool {
	return s[step]
}

// List returns completed steps in canonical workflow order.
func (s StepSet) List() []Step {
	var out []Step
	for _, step := range stepOrder {
		if s[step] {
			out = append(out, step)
		}
	}
	return out
}

// Clone returns an independent copy of the set.
func (s StepSet) Clone() StepSet {
	out := make(StepSet, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// CompanyDetails holds the legal and descriptive company fields collected in
// the details step.
type CompanyDetails struct {
	LegalName          string
	RegistrationNumber string
	VATNumber          string
	Address            string
	Industry           string
	CompanySize        string
	Description        string
	WebsiteURL         string
	LinkedInURL        string
}

// FinancialInfo is the persisted form of the financial verification step.
// The IBAN is stored as ciphertext only; plaintext never reaches a store.
type FinancialInfo struct {
	BankName               string
	IBANCiphertext         string
	AccountHolderName      string
	BalanceProofDocumentID string
}

// Registration is the durable record tracking one company's onboarding
// progress. One per company email; mutated only by the workflow engine.
type Registration struct {
	ID           string
	CompanyEmail string
	ContactName  string

	EmailToken          string
	EmailTokenExpiresAt time.Time
	EmailVerified       bool

	Details   *CompanyDetails
	Financial *FinancialInfo

	WalletAddress   string
	StakeAmount     decimal.Decimal
	ContractAddress string

	Status Status
	Steps  StepSet

	QueuePosition int // 0 = not yet assigned

	TermsAccepted   bool
	TermsAcceptedAt *time.Time

	ReviewNotes string
	ReviewedBy  string

	CreatedAt   time.Time
	UpdatedAt   time.Time
	ExpiresAt   time.Time
	SubmittedAt *time.Time
	ReviewedAt  *time.Time
}

// AdvanceTo raises the status to the target stage. It never lowers it: a
// re-triggered step (e.g. a second document upload) leaves a further-along
// status untouched.
func (r *Registration) AdvanceTo(target Status) {
	if target.Rank() > r.Status.Rank() {
		r.Status = target
	}
}

// Clone returns a deep copy so store callers can mutate freely.
func (r *Registration) Clone() *Registration {
	out := *r
	out.Steps = r.Steps.Clone()
	if r.Details != nil {
		d := *r.Details
		out.Details = &d
	}
	if r.Financial != nil {
		f := *r.Financial
		out.Financial = &f
	}
	out.TermsAcceptedAt = cloneTime(r.TermsAcceptedAt)
	out.SubmittedAt = cloneTime(r.SubmittedAt)
	out.ReviewedAt = cloneTime(r.ReviewedAt)
	return &out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// DocumentType tags what an uploaded document is meant to prove.
type DocumentType string

const (
	DocumentBusinessRegistration DocumentType = "BUSINESS_REGISTRATION"
	DocumentBalanceProof         DocumentType = "BALANCE_PROOF"
	DocumentIdentity             DocumentType = "IDENTITY"
	DocumentOther                DocumentType = "OTHER"
)

// DocumentStatus is the per-document verification state set during review.
type DocumentStatus string

const (
	DocumentPending  DocumentStatus = "PENDING"
	DocumentVerified DocumentStatus = "VERIFIED"
	DocumentRejected DocumentStatus = "REJECTED"
)

// Document belongs to exactly one Registration and is deleted with it.
type Document struct {
	ID             string
	RegistrationID string
	FileName       string
	ContentType    string
	StorageRef     string
	SizeBytes      int64
	Type           DocumentType
	Status         DocumentStatus
	UploadedAt     time.Time

	SignedURL          string
	SignedURLExpiresAt *time.Time
}

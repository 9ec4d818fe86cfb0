package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// MinDescriptionWords is the minimum length of the free-text company
// description, counted as whitespace-delimited tokens.
const MinDescriptionWords = 200

// StartRequest opens a new registration.
type StartRequest struct {
	CompanyEmail string
	ContactName  string
}

// DetailsRequest carries the company details step.
type DetailsRequest struct {
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

// FinancialRequest carries the financial verification step. The IBAN arrives
// in plaintext and is encrypted before anything is persisted.
type FinancialRequest struct {
	BankName               string
	IBAN                   string
	AccountHolderName      string
	BalanceProofDocumentID string
}

// SubmitRequest carries the final submission for review.
type SubmitRequest struct {
	TermsAccepted bool
	StakeAmount   decimal.Decimal
	WalletAddress string
}

// Decision is an admin review outcome.
type Decision string

const (
	DecisionApprove Decision = "APPROVE"
	DecisionReject  Decision = "REJECT"
)

// DecisionRequest carries an admin decision into the workflow engine. The
// admin surface itself lives outside this module.
type DecisionRequest struct {
	Decision Decision
	Reviewer string
	Notes    string
}

// WordCount counts whitespace-delimited tokens.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

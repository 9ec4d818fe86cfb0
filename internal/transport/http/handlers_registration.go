package httptransport

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"jobstream/internal/registration/models"
	"jobstream/internal/risk"
	dErrors "jobstream/pkg/domain-errors"
)

// RegistrationService is the workflow engine surface the transport needs.
type RegistrationService interface {
	Start(ctx context.Context, req models.StartRequest) (*models.StartResponse, error)
	VerifyEmail(ctx context.Context, registrationID, token string) error
	SubmitDetails(ctx context.Context, registrationID string, req models.DetailsRequest) error
	UploadDocument(ctx context.Context, registrationID string, file io.Reader, filename, contentType string, docType models.DocumentType) (*models.Document, error)
	Documents(ctx context.Context, registrationID string) ([]*models.Document, error)
	SubmitFinancial(ctx context.Context, registrationID string, req models.FinancialRequest) error
	SubmitForReview(ctx context.Context, registrationID string, req models.SubmitRequest) (*models.Registration, error)
	Status(ctx context.Context, registrationID string) (*models.StatusResponse, error)
	AdminDecision(ctx context.Context, registrationID string, req models.DecisionRequest) error
	RiskAssessment(ctx context.Context, registrationID string) (*risk.Assessment, error)
}

// Handler is the thin HTTP layer over the workflow engine. It translates
// between JSON and the engine's request types; business rules stay in the
// engine.
type Handler struct {
	service RegistrationService
	logger  *slog.Logger
}

// NewHandler constructs the transport handler.
func NewHandler(service RegistrationService, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger}
}

type startPayload struct {
	CompanyEmail string `json:"company_email"`
	ContactName  string `json:"contact_name"`
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	var payload startPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	resp, err := h.service.Start(r.Context(), models.StartRequest{
		CompanyEmail: payload.CompanyEmail,
		ContactName:  payload.ContactName,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"registration_id": resp.RegistrationID,
		"expires_at":      resp.ExpiresAt.Format(time.RFC3339),
	})
}

type verifyPayload struct {
	Token string `json:"token"`
}

func (h *Handler) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var payload verifyPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := h.service.VerifyEmail(r.Context(), chi.URLParam(r, "id"), payload.Token); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "verified"})
}

type detailsPayload struct {
	LegalName          string `json:"legal_name"`
	RegistrationNumber string `json:"registration_number"`
	VATNumber          string `json:"vat_number"`
	Address            string `json:"address"`
	Industry           string `json:"industry"`
	CompanySize        string `json:"company_size"`
	Description        string `json:"description"`
	WebsiteURL         string `json:"website_url"`
	LinkedInURL        string `json:"linkedin_url"`
}

func (h *Handler) handleSubmitDetails(w http.ResponseWriter, r *http.Request) {
	var payload detailsPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	err := h.service.SubmitDetails(r.Context(), chi.URLParam(r, "id"), models.DetailsRequest{
		LegalName:          payload.LegalName,
		RegistrationNumber: payload.RegistrationNumber,
		VATNumber:          payload.VATNumber,
		Address:            payload.Address,
		Industry:           payload.Industry,
		CompanySize:        payload.CompanySize,
		Description:        payload.Description,
		WebsiteURL:         payload.WebsiteURL,
		LinkedInURL:        payload.LinkedInURL,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "details_submitted"})
}

type financialPayload struct {
	BankName               string `json:"bank_name"`
	IBAN                   string `json:"iban"`
	AccountHolderName      string `json:"account_holder_name"`
	BalanceProofDocumentID string `json:"balance_proof_document_id"`
}

func (h *Handler) handleSubmitFinancial(w http.ResponseWriter, r *http.Request) {
	var payload financialPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	err := h.service.SubmitFinancial(r.Context(), chi.URLParam(r, "id"), models.FinancialRequest{
		BankName:               payload.BankName,
		IBAN:                   payload.IBAN,
		AccountHolderName:      payload.AccountHolderName,
		BalanceProofDocumentID: payload.BalanceProofDocumentID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "financial_submitted"})
}

type submitPayload struct {
	TermsAccepted bool   `json:"terms_accepted"`
	StakeAmount   string `json:"stake_amount"`
	WalletAddress string `json:"wallet_address"`
}

func (h *Handler) handleSubmitForReview(w http.ResponseWriter, r *http.Request) {
	var payload submitPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	stake := decimal.Zero
	if payload.StakeAmount != "" {
		parsed, err := decimal.NewFromString(payload.StakeAmount)
		if err != nil {
			writeError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid stake amount"))
			return
		}
		stake = parsed
	}
	reg, err := h.service.SubmitForReview(r.Context(), chi.URLParam(r, "id"), models.SubmitRequest{
		TermsAccepted: payload.TermsAccepted,
		StakeAmount:   stake,
		WalletAddress: payload.WalletAddress,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":           string(reg.Status),
		"queue_position":   reg.QueuePosition,
		"contract_address": reg.ContractAddress,
		"submitted_at":     reg.SubmittedAt.Format(time.RFC3339),
	})
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.Status(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	steps := make([]map[string]any, 0, len(resp.Steps))
	for _, step := range resp.Steps {
		steps = append(steps, map[string]any{
			"step":      string(step.Step),
			"label":     step.Label,
			"completed": step.Completed,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"registration_id": resp.RegistrationID,
		"status":          string(resp.Status),
		"current_step":    resp.CurrentStep,
		"steps":           steps,
		"queue_position":  resp.QueuePosition,
		"expires_at":      resp.ExpiresAt.Format(time.RFC3339),
	})
}

type decisionPayload struct {
	Decision string `json:"decision"`
	Reviewer string `json:"reviewer"`
	Notes    string `json:"notes"`
}

func (h *Handler) handleDecision(w http.ResponseWriter, r *http.Request) {
	var payload decisionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	err := h.service.AdminDecision(r.Context(), chi.URLParam(r, "id"), models.DecisionRequest{
		Decision: models.Decision(payload.Decision),
		Reviewer: payload.Reviewer,
		Notes:    payload.Notes,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "decision_recorded"})
}

func (h *Handler) handleRiskAssessment(w http.ResponseWriter, r *http.Request) {
	assessment, err := h.service.RiskAssessment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, assessment)
}

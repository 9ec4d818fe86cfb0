package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"jobstream/internal/registration/events"
	"jobstream/internal/registration/gate"
	"jobstream/internal/registration/models"
	"jobstream/internal/registration/tracer"
	dErrors "jobstream/pkg/domain-errors"
)

// SubmitFinancial records the financial verification step. The IBAN is
// encrypted before anything touches the store; if encryption fails nothing
// is persisted.
func (e *Engine) SubmitFinancial(ctx context.Context, registrationID string, req models.FinancialRequest) (err error) {
	ctx, span := e.tracer.Start(ctx, tracer.SpanSubmitFinancial,
		tracer.String("registration_id", registrationID))
	defer func() { span.End(err) }()

	ciphertext, err := e.vault.Encrypt(req.IBAN)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "could not encrypt bank details")
	}

	_, err = e.store.Update(ctx, registrationID, func(reg *models.Registration) error {
		if err := gate.Permitted(reg, gate.OpSubmitFinancial); err != nil {
			return err
		}
		reg.Financial = &models.FinancialInfo{
			BankName:               req.BankName,
			IBANCiphertext:         ciphertext,
			AccountHolderName:      req.AccountHolderName,
			BalanceProofDocumentID: req.BalanceProofDocumentID,
		}
		reg.Steps.Mark(models.StepFinancialSubmitted)
		reg.AdvanceTo(models.StatusFinancialSubmitted)
		reg.UpdatedAt = e.clock()
		return nil
	})
	if err != nil {
		e.countRejection(gate.OpSubmitFinancial, err)
		return asUnavailable(err, "submit financial details")
	}
	return nil
}

// SubmitForReview performs the final submission: terms check, review-queue
// position, placeholder contract address, PENDING_REVIEW. A confirmation
// mail goes out asynchronously.
func (e *Engine) SubmitForReview(ctx context.Context, registrationID string, req models.SubmitRequest) (_ *models.Registration, err error) {
	ctx, span := e.tracer.Start(ctx, tracer.SpanSubmitReview,
		tracer.String("registration_id", registrationID))
	defer func() { span.End(err) }()

	reg, err := e.store.FindByID(ctx, registrationID)
	if err != nil {
		return nil, asUnavailable(err, "load registration")
	}
	if err := gate.Permitted(reg, gate.OpSubmitForReview); err != nil {
		e.countRejection(gate.OpSubmitForReview, err)
		return nil, err
	}
	if !req.TermsAccepted {
		return nil, dErrors.New(dErrors.CodeTermsNotAccepted,
			"terms and conditions must be accepted to submit")
	}

	position, err := e.queue.NextPosition(ctx)
	if err != nil {
		return nil, asUnavailable(err, "assign queue position")
	}

	now := e.clock()
	updated, err := e.store.Update(ctx, registrationID, func(reg *models.Registration) error {
		if err := gate.Permitted(reg, gate.OpSubmitForReview); err != nil {
			return err
		}
		reg.TermsAccepted = true
		reg.TermsAcceptedAt = &now
		reg.StakeAmount = req.StakeAmount
		reg.WalletAddress = req.WalletAddress
		reg.ContractAddress = placeholderContractAddress(reg.ID, now.UnixNano())
		reg.QueuePosition = position
		reg.SubmittedAt = &now
		reg.Steps.Mark(models.StepSubmittedForReview)
		reg.AdvanceTo(models.StatusPendingReview)
		reg.UpdatedAt = now
		return nil
	})
	if err != nil {
		e.countRejection(gate.OpSubmitForReview, err)
		return nil, asUnavailable(err, "submit for review")
	}

	if e.metrics != nil {
		e.metrics.IncrementSubmitted()
		if pending, err := e.store.CountByStatus(ctx, models.StatusPendingReview); err == nil {
			e.metrics.SetPendingReview(float64(pending))
		}
	}
	e.events.Publish(ctx, events.Event{
		Type:           events.TypeSubmitted,
		RegistrationID: registrationID,
		Status:         models.StatusPendingReview,
		OccurredAt:     now,
	})
	e.sendAsync(ctx, "confirmation email", func(ctx context.Context) error {
		return e.mail.SendConfirmation(ctx, updated.CompanyEmail, updated.ContactName, updated.ID)
	})
	return updated, nil
}

// placeholderContractAddress derives a deterministic stand-in address until
// the on-chain deployment flow exists.
func placeholderContractAddress(registrationID string, nonce int64) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d", registrationID, nonce)))
	return "0x" + hex.EncodeToString(sum[:20])
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"jobstream/internal/registration/events"
	"jobstream/internal/registration/gate"
	"jobstream/internal/registration/models"
	"jobstream/internal/registration/tracer"
	dErrors "jobstream/pkg/domain-errors"
	pkgemail "jobstream/pkg/email"
)

// Start opens a new registration for a company email address. It issues the
// verification token, sets the registration expiry and asynchronously sends
// the verification mail.
func (e *Engine) Start(ctx context.Context, req models.StartRequest) (_ *models.StartResponse, err error) {
	ctx, span := e.tracer.Start(ctx, tracer.SpanStart,
		tracer.String("email_hash", tracer.HashEmail(req.CompanyEmail)))
	defer func() { span.End(err) }()

	address := strings.TrimSpace(req.CompanyEmail)
	domain := pkgemail.Domain(address)
	if domain == "" {
		return nil, dErrors.New(dErrors.CodeInvalidEmail, "email address is not usable")
	}
	if _, denied := e.deniedDomains[domain]; denied {
		return nil, dErrors.New(dErrors.CodeInvalidEmail,
			fmt.Sprintf("domain %s is a consumer email provider, a company address is required", domain))
	}

	active, err := e.store.ExistsActiveByEmail(ctx, address)
	if err != nil {
		return nil, asUnavailable(err, "check existing registrations")
	}
	if active {
		return nil, dErrors.New(dErrors.CodeDuplicateRegistration,
			"an active registration already exists for this email")
	}

	emailToken, tokenExpiry, err := e.tokens.Issue(e.cfg.TokenTTL)
	if err != nil {
		return nil, err
	}

	contactName := strings.TrimSpace(req.ContactName)
	if contactName == "" {
		contactName = pkgemail.DeriveContactName(address)
	}

	now := e.clock()
	reg := &models.Registration{
		ID:                  e.newID(),
		CompanyEmail:        address,
		ContactName:         contactName,
		EmailToken:          emailToken,
		EmailTokenExpiresAt: tokenExpiry,
		Status:              models.StatusInitiated,
		Steps:               models.StepSet{},
		CreatedAt:           now,
		UpdatedAt:           now,
		ExpiresAt:           now.Add(e.cfg.RegistrationTTL),
	}
	if err := e.store.Create(ctx, reg); err != nil {
		return nil, asUnavailable(err, "persist registration")
	}

	if e.metrics != nil {
		e.metrics.IncrementStarted()
	}
	e.events.Publish(ctx, events.Event{
		Type:           events.TypeStarted,
		RegistrationID: reg.ID,
		Status:         reg.Status,
		OccurredAt:     now,
	})
	e.sendAsync(ctx, "verification email", func(ctx context.Context) error {
		return e.mail.SendVerification(ctx, address, contactName, reg.ID, emailToken)
	})

	return &models.StartResponse{RegistrationID: reg.ID, ExpiresAt: reg.ExpiresAt}, nil
}

// VerifyEmail validates the emailed token and marks the address verified.
// Verifying an already-verified registration succeeds without touching it.
func (e *Engine) VerifyEmail(ctx context.Context, registrationID, presented string) (err error) {
	ctx, span := e.tracer.Start(ctx, tracer.SpanVerifyEmail,
		tracer.String("registration_id", registrationID))
	defer func() { span.End(err) }()

	reg, err := e.store.FindByID(ctx, registrationID)
	if err != nil {
		return asUnavailable(err, "load registration")
	}
	if reg.EmailVerified {
		return nil
	}

	verified := false
	_, err = e.store.Update(ctx, registrationID, func(reg *models.Registration) error {
		if reg.EmailVerified {
			return nil
		}
		if err := gate.Permitted(reg, gate.OpVerifyEmail); err != nil {
			return err
		}
		if err := e.tokens.Validate(reg.EmailToken, presented, reg.EmailTokenExpiresAt); err != nil {
			return err
		}
		reg.EmailVerified = true
		reg.Steps.Mark(models.StepEmailVerified)
		reg.AdvanceTo(models.StatusEmailVerified)
		reg.UpdatedAt = e.clock()
		verified = true
		return nil
	})
	if err != nil {
		e.countRejection(gate.OpVerifyEmail, err)
		return asUnavailable(err, "verify email")
	}

	if verified {
		if e.metrics != nil {
			e.metrics.IncrementEmailVerified()
		}
		e.events.Publish(ctx, events.Event{
			Type:           events.TypeVerified,
			RegistrationID: registrationID,
			Status:         models.StatusEmailVerified,
		})
	}
	return nil
}

// SubmitDetails records the company details step.
func (e *Engine) SubmitDetails(ctx context.Context, registrationID string, req models.DetailsRequest) (err error) {
	ctx, span := e.tracer.Start(ctx, tracer.SpanSubmitDetails,
		tracer.String("registration_id", registrationID))
	defer func() { span.End(err) }()

	_, err = e.store.Update(ctx, registrationID, func(reg *models.Registration) error {
		if err := gate.Permitted(reg, gate.OpSubmitDetails); err != nil {
			return err
		}
		if words := models.WordCount(req.Description); words < models.MinDescriptionWords {
			return dErrors.New(dErrors.CodeValidation,
				fmt.Sprintf("business description has %d words, at least %d required", words, models.MinDescriptionWords))
		}
		reg.Details = &models.CompanyDetails{
			LegalName:          req.LegalName,
			RegistrationNumber: req.RegistrationNumber,
			VATNumber:          req.VATNumber,
			Address:            req.Address,
			Industry:           req.Industry,
			CompanySize:        req.CompanySize,
			Description:        req.Description,
			WebsiteURL:         req.WebsiteURL,
			LinkedInURL:        req.LinkedInURL,
		}
		reg.Steps.Mark(models.StepDetailsSubmitted)
		reg.AdvanceTo(models.StatusDetailsSubmitted)
		reg.UpdatedAt = e.clock()
		return nil
	})
	if err != nil {
		e.countRejection(gate.OpSubmitDetails, err)
		return asUnavailable(err, "submit details")
	}
	return nil
}

// Status returns the read-only progress projection. It is recomputed from
// the stored status on every call.
func (e *Engine) Status(ctx context.Context, registrationID string) (_ *models.StatusResponse, err error) {
	ctx, span := e.tracer.Start(ctx, tracer.SpanStatus,
		tracer.String("registration_id", registrationID))
	defer func() { span.End(err) }()

	reg, err := e.store.FindByID(ctx, registrationID)
	if err != nil {
		return nil, asUnavailable(err, "load registration")
	}
	resp := models.Project(reg)
	return &resp, nil
}

// sendAsync fires a mail delivery in the background. The registration flow
// never waits on, or fails because of, the mail system.
func (e *Engine) sendAsync(ctx context.Context, what string, send func(ctx context.Context) error) {
	ctx = context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := send(ctx); err != nil {
			e.logger.ErrorContext(ctx, "send "+what, "error", err)
		}
	}()
}

// countRejection records step-gate denials in metrics.
func (e *Engine) countRejection(op gate.Operation, err error) {
	if e.metrics != nil && dErrors.HasCode(err, dErrors.CodeStepOutOfOrder) {
		e.metrics.IncrementStepRejection(string(op))
	}
}

// asUnavailable surfaces infrastructure failures as unavailable while letting
// domain errors (not found, gate denials, validation) pass through untouched.
func asUnavailable(err error, action string) error {
	if err == nil {
		return nil
	}
	var dErr *dErrors.Error
	if errors.As(err, &dErr) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeUnavailable, "could not "+action)
}

func normalizeDomain(d string) string {
	return strings.ToLower(strings.TrimSpace(d))
}

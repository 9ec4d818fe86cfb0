package service

import (
	"context"
	"fmt"

	"jobstream/internal/registration/events"
	"jobstream/internal/registration/gate"
	"jobstream/internal/registration/models"
	"jobstream/internal/registration/tracer"
	"jobstream/internal/risk"
	dErrors "jobstream/pkg/domain-errors"
)

// minRejectionReasonLength is the shortest acceptable rejection note. A
// rejection without a usable reason is worse than no decision.
const minRejectionReasonLength = 10

// AdminDecision applies a reviewer's verdict to a registration pending
// review. The admin surface itself lives outside this module; this is the
// trigger it calls.
func (e *Engine) AdminDecision(ctx context.Context, registrationID string, req models.DecisionRequest) (err error) {
	ctx, span := e.tracer.Start(ctx, tracer.SpanDecision,
		tracer.String("registration_id", registrationID),
		tracer.String("decision", string(req.Decision)))
	defer func() { span.End(err) }()

	var target models.Status
	switch req.Decision {
	case models.DecisionApprove:
		target = models.StatusApproved
	case models.DecisionReject:
		target = models.StatusRejected
		if len(req.Notes) < minRejectionReasonLength {
			return dErrors.New(dErrors.CodeValidation,
				fmt.Sprintf("rejection requires a reason of at least %d characters", minRejectionReasonLength))
		}
	default:
		return dErrors.New(dErrors.CodeBadRequest,
			fmt.Sprintf("unknown decision %q", req.Decision))
	}

	now := e.clock()
	_, err = e.store.Update(ctx, registrationID, func(reg *models.Registration) error {
		if err := gate.Permitted(reg, gate.OpAdminDecision); err != nil {
			return err
		}
		reg.Status = target
		reg.ReviewedBy = req.Reviewer
		reg.ReviewNotes = req.Notes
		reg.ReviewedAt = &now
		reg.UpdatedAt = now
		return nil
	})
	if err != nil {
		e.countRejection(gate.OpAdminDecision, err)
		return asUnavailable(err, "record decision")
	}

	if e.metrics != nil {
		e.metrics.IncrementDecision(string(req.Decision))
		if pending, err := e.store.CountByStatus(ctx, models.StatusPendingReview); err == nil {
			e.metrics.SetPendingReview(float64(pending))
		}
	}
	e.events.Publish(ctx, events.Event{
		Type:           events.TypeDecided,
		RegistrationID: registrationID,
		Status:         target,
		Decision:       string(req.Decision),
		OccurredAt:     now,
	})
	return nil
}

// RiskAssessment scores the company for a reviewer. Requires a configured
// scorer and submitted company details; advisory only, never blocks a
// decision.
func (e *Engine) RiskAssessment(ctx context.Context, registrationID string) (*risk.Assessment, error) {
	if e.scorer == nil {
		return nil, dErrors.New(dErrors.CodeUnavailable, "risk scoring is not configured")
	}
	reg, err := e.store.FindByID(ctx, registrationID)
	if err != nil {
		return nil, asUnavailable(err, "load registration")
	}
	if reg.Details == nil {
		return nil, dErrors.New(dErrors.CodeValidation,
			"company details not submitted yet, nothing to score")
	}
	assessment, err := e.scorer.Score(ctx, risk.Request{
		RegistrationID:      reg.ID,
		CompanyName:         reg.Details.LegalName,
		CompanyNumber:       reg.Details.RegistrationNumber,
		VATNumber:           reg.Details.VATNumber,
		WebsiteURL:          reg.Details.WebsiteURL,
		LinkedInURL:         reg.Details.LinkedInURL,
		BusinessDescription: reg.Details.Description,
	})
	if err != nil {
		return nil, asUnavailable(err, "score company")
	}
	return assessment, nil
}

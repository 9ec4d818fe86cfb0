package service

import (
	"context"

	"go.uber.org/mock/gomock"

	"jobstream/internal/registration/models"
	"jobstream/internal/registration/service/mocks"
	"jobstream/internal/risk"
	dErrors "jobstream/pkg/domain-errors"
)

func (s *EngineSuite) TestAdminDecisionApprove() {
	id := s.submitted()

	s.Require().NoError(s.engine.AdminDecision(context.Background(), id, models.DecisionRequest{
		Decision: models.DecisionApprove,
		Reviewer: "reviewer@jobstream.example",
		Notes:    "registry extract checks out",
	}))

	reg := s.load(id)
	s.Equal(models.StatusApproved, reg.Status)
	s.Equal("reviewer@jobstream.example", reg.ReviewedBy)
	s.Require().NotNil(reg.ReviewedAt)
	s.Equal(s.now, *reg.ReviewedAt)
}

func (s *EngineSuite) TestAdminDecisionReject() {
	id := s.submitted()

	s.Require().NoError(s.engine.AdminDecision(context.Background(), id, models.DecisionRequest{
		Decision: models.DecisionReject,
		Reviewer: "reviewer@jobstream.example",
		Notes:    "registration number does not resolve in the commercial register",
	}))

	reg := s.load(id)
	s.Equal(models.StatusRejected, reg.Status)
	s.NotEmpty(reg.ReviewNotes)
}

func (s *EngineSuite) TestAdminDecisionRejectNeedsReason() {
	id := s.submitted()

	err := s.engine.AdminDecision(context.Background(), id, models.DecisionRequest{
		Decision: models.DecisionReject,
		Reviewer: "reviewer@jobstream.example",
		Notes:    "bad",
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	s.Equal(models.StatusPendingReview, s.load(id).Status)
}

func (s *EngineSuite) TestAdminDecisionRequiresPendingReview() {
	id := s.withFinancial()

	err := s.engine.AdminDecision(context.Background(), id, models.DecisionRequest{
		Decision: models.DecisionApprove,
		Reviewer: "reviewer@jobstream.example",
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeStepOutOfOrder))
}

func (s *EngineSuite) TestAdminDecisionIsFinal() {
	id := s.submitted()

	s.Require().NoError(s.engine.AdminDecision(context.Background(), id, models.DecisionRequest{
		Decision: models.DecisionApprove,
		Reviewer: "reviewer@jobstream.example",
	}))

	// A second verdict finds the registration no longer pending.
	err := s.engine.AdminDecision(context.Background(), id, models.DecisionRequest{
		Decision: models.DecisionReject,
		Reviewer: "other@jobstream.example",
		Notes:    "changed my mind about this one",
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeStepOutOfOrder))
	s.Equal(models.StatusApproved, s.load(id).Status)
}

func (s *EngineSuite) TestAdminDecisionUnknownVerdict() {
	id := s.submitted()

	err := s.engine.AdminDecision(context.Background(), id, models.DecisionRequest{Decision: "MAYBE"})
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func (s *EngineSuite) TestRiskAssessment() {
	id := s.withDetails()

	ctrl := gomock.NewController(s.T())
	scorer := mocks.NewMockRiskScorer(ctrl)
	scorer.EXPECT().
		Score(gomock.Any(), risk.Request{
			RegistrationID:      id,
			CompanyName:         "Acme Logistics GmbH",
			CompanyNumber:       "HRB 98765",
			VATNumber:           "DE123456789",
			WebsiteURL:          "https://acme-logistics.example",
			LinkedInURL:         "https://linkedin.com/company/acme-logistics",
			BusinessDescription: description(models.MinDescriptionWords),
		}).
		Return(&risk.Assessment{OverallRiskScore: 41, RiskLevel: "MEDIUM"}, nil)

	eng := s.newEngine(WithRiskScorer(scorer))
	assessment, err := eng.RiskAssessment(context.Background(), id)
	s.Require().NoError(err)
	s.Equal("MEDIUM", assessment.RiskLevel)
	s.Equal(41.0, assessment.OverallRiskScore)
}

func (s *EngineSuite) TestRiskAssessmentNotConfigured() {
	id := s.withDetails()

	_, err := s.engine.RiskAssessment(context.Background(), id)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
}

func (s *EngineSuite) TestRiskAssessmentNeedsDetails() {
	id := s.startVerified()

	ctrl := gomock.NewController(s.T())
	eng := s.newEngine(WithRiskScorer(mocks.NewMockRiskScorer(ctrl)))

	_, err := eng.RiskAssessment(context.Background(), id)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

package gate

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"jobstream/internal/registration/models"
	dErrors "jobstream/pkg/domain-errors"
)

type GateSuite struct {
	suite.Suite
}

func TestGateSuite(t *testing.T) {
	suite.Run(t, new(GateSuite))
}

func regAt(status models.Status, completed ...models.Step) *models.Registration {
	steps := models.StepSet{}
	for _, s := range completed {
		steps.Mark(s)
	}
	return &models.Registration{Status: status, Steps: steps}
}

func (s *GateSuite) TestEachOperationRequiresItsPrerequisite() {
	cases := []struct {
		op       Operation
		needs    models.Step
		priorSet []models.Step
	}{
		{OpSubmitDetails, models.StepEmailVerified, nil},
		{OpUploadDocument, models.StepDetailsSubmitted, []models.Step{models.StepEmailVerified}},
		{OpSubmitFinancial, models.StepDocumentsUploaded, []models.Step{models.StepEmailVerified, models.StepDetailsSubmitted}},
		{OpSubmitForReview, models.StepFinancialSubmitted, []models.Step{models.StepEmailVerified, models.StepDetailsSubmitted, models.StepDocumentsUploaded}},
	}

	for _, tc := range cases {
		s.Run(string(tc.op), func() {
			// Below the minimum: rejected.
			err := Permitted(regAt(models.StatusInitiated, tc.priorSet...), tc.op)
			s.Require().Error(err)
			s.True(dErrors.HasCode(err, dErrors.CodeStepOutOfOrder))

			// Prerequisite completed: allowed.
			withStep := append(append([]models.Step{}, tc.priorSet...), tc.needs)
			s.NoError(Permitted(regAt(models.StatusInitiated, withStep...), tc.op))
		})
	}
}

func (s *GateSuite) TestVerifyEmailAllowedFromInitiated() {
	s.NoError(Permitted(regAt(models.StatusInitiated), OpVerifyEmail))
}

func (s *GateSuite) TestRepeatedUploadAllowedFurtherAlong() {
	// A second upload while financial data is already in must stay permitted.
	reg := regAt(models.StatusFinancialSubmitted,
		models.StepEmailVerified,
		models.StepDetailsSubmitted,
		models.StepDocumentsUploaded,
		models.StepFinancialSubmitted,
	)
	s.NoError(Permitted(reg, OpUploadDocument))
}

func (s *GateSuite) TestSealedAfterSubmission() {
	reg := regAt(models.StatusPendingReview,
		models.StepEmailVerified,
		models.StepDetailsSubmitted,
		models.StepDocumentsUploaded,
		models.StepFinancialSubmitted,
		models.StepSubmittedForReview,
	)
	for _, op := range []Operation{OpVerifyEmail, OpSubmitDetails, OpUploadDocument, OpSubmitFinancial, OpSubmitForReview} {
		err := Permitted(reg, op)
		s.Require().Error(err, "op %s should be sealed", op)
		s.True(dErrors.HasCode(err, dErrors.CodeStepOutOfOrder))
	}
}

func (s *GateSuite) TestAdminDecisionRequiresPendingReview() {
	s.Error(Permitted(regAt(models.StatusFinancialSubmitted), OpAdminDecision))
	s.Error(Permitted(regAt(models.StatusApproved), OpAdminDecision))

	reg := regAt(models.StatusPendingReview)
	s.NoError(Permitted(reg, OpAdminDecision))
}

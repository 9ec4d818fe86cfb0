package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/mock/gomock"

	"jobstream/internal/registration/models"
	"jobstream/internal/registration/service/mocks"
	"jobstream/internal/registration/token"
	dErrors "jobstream/pkg/domain-errors"
)

func (s *EngineSuite) TestStartHappyPath() {
	resp, err := s.engine.Start(context.Background(), models.StartRequest{
		CompanyEmail: "ops@acme-logistics.example",
		ContactName:  "Dana Osei",
	})
	s.Require().NoError(err)
	s.NotEmpty(resp.RegistrationID)
	s.Equal(s.now.Add(7*24*time.Hour), resp.ExpiresAt)

	reg := s.load(resp.RegistrationID)
	s.Equal(models.StatusInitiated, reg.Status)
	s.False(reg.EmailVerified)
	s.NotEmpty(reg.EmailToken)
	s.Equal(s.now.Add(24*time.Hour), reg.EmailTokenExpiresAt)

	s.waitForMail()
	delivery, ok := s.mail.lastVerification()
	s.Require().True(ok)
	s.Equal("ops@acme-logistics.example", delivery.To)
	s.Equal(reg.EmailToken, delivery.Token)
	s.Equal(resp.RegistrationID, delivery.RegistrationID)
}

func (s *EngineSuite) TestStartDerivesContactNameWhenMissing() {
	resp, err := s.engine.Start(context.Background(), models.StartRequest{
		CompanyEmail: "jane.doe@acme-logistics.example",
	})
	s.Require().NoError(err)
	s.waitForMail()

	reg := s.load(resp.RegistrationID)
	s.Equal("Jane Doe", reg.ContactName)
}

func (s *EngineSuite) TestStartRejectsConsumerEmailDomain() {
	_, err := s.engine.Start(context.Background(), models.StartRequest{
		CompanyEmail: "Founder@GMAIL.com",
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidEmail))
}

func (s *EngineSuite) TestStartRejectsUnusableAddress() {
	for _, address := range []string{"", "no-at-sign", "trailing@"} {
		_, err := s.engine.Start(context.Background(), models.StartRequest{CompanyEmail: address})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidEmail), "address %q", address)
	}
}

func (s *EngineSuite) TestStartRejectsDuplicateActiveRegistration() {
	existing := &models.Registration{
		ID:           "existing",
		CompanyEmail: "ops@acme-logistics.example",
		Status:       models.StatusPendingReview,
		Steps:        models.StepSet{},
	}
	s.Require().NoError(s.store.Create(context.Background(), existing))

	// Case differences in the address do not dodge the check.
	_, err := s.engine.Start(context.Background(), models.StartRequest{
		CompanyEmail: "OPS@Acme-Logistics.example",
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeDuplicateRegistration))
}

func (s *EngineSuite) TestStartAfterRejectionIsAllowed() {
	rejected := &models.Registration{
		ID:           "rejected",
		CompanyEmail: "ops@acme-logistics.example",
		Status:       models.StatusRejected,
		Steps:        models.StepSet{},
	}
	s.Require().NoError(s.store.Create(context.Background(), rejected))

	_, err := s.engine.Start(context.Background(), models.StartRequest{
		CompanyEmail: "ops@acme-logistics.example",
	})
	s.NoError(err)
	s.waitForMail()
}

func (s *EngineSuite) TestStartSurfacesStoreOutage() {
	ctrl := gomock.NewController(s.T())
	mockStore := mocks.NewMockStore(ctrl)
	mockStore.EXPECT().
		ExistsActiveByEmail(gomock.Any(), "ops@acme-logistics.example").
		Return(false, errors.New("connection refused"))

	eng, err := New(mockStore, token.New(token.WithClock(s.clock)), s.blobs, s.mail, s.vault, s.queue, Config{}, WithClock(s.clock))
	s.Require().NoError(err)

	_, err = eng.Start(context.Background(), models.StartRequest{
		CompanyEmail: "ops@acme-logistics.example",
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
}

func (s *EngineSuite) TestVerifyEmail() {
	id := s.startRegistration()
	reg := s.load(id)

	s.Require().NoError(s.engine.VerifyEmail(context.Background(), id, reg.EmailToken))

	verified := s.load(id)
	s.True(verified.EmailVerified)
	s.Equal(models.StatusEmailVerified, verified.Status)
	s.True(verified.Steps.Completed(models.StepEmailVerified))
}

func (s *EngineSuite) TestVerifyEmailIsIdempotent() {
	id := s.startVerified()

	// A second attempt succeeds even with a token that would not validate.
	s.NoError(s.engine.VerifyEmail(context.Background(), id, "definitely-wrong"))
	s.Equal(models.StatusEmailVerified, s.load(id).Status)
}

func (s *EngineSuite) TestVerifyEmailTokenMismatch() {
	id := s.startRegistration()

	err := s.engine.VerifyEmail(context.Background(), id, "forged-token")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeTokenMismatch))

	reg := s.load(id)
	s.False(reg.EmailVerified)
	s.Equal(models.StatusInitiated, reg.Status)
}

func (s *EngineSuite) TestVerifyEmailExpiredToken() {
	id := s.startRegistration()
	reg := s.load(id)

	s.now = s.now.Add(25 * time.Hour)
	err := s.engine.VerifyEmail(context.Background(), id, reg.EmailToken)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeTokenExpired))
}

func (s *EngineSuite) TestVerifyEmailTokenExpiryBoundary() {
	id := s.startRegistration()
	reg := s.load(id)

	// One second shy of the TTL still passes.
	s.now = s.now.Add(24*time.Hour - time.Second)
	s.NoError(s.engine.VerifyEmail(context.Background(), id, reg.EmailToken))

	// Exactly at the TTL is expired.
	s.SetupTest()
	id = s.startRegistration()
	reg = s.load(id)
	s.now = s.now.Add(24 * time.Hour)
	err := s.engine.VerifyEmail(context.Background(), id, reg.EmailToken)
	s.True(dErrors.HasCode(err, dErrors.CodeTokenExpired))
}

func (s *EngineSuite) TestVerifyEmailUnknownRegistration() {
	err := s.engine.VerifyEmail(context.Background(), "no-such-id", "token")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *EngineSuite) TestSubmitDetailsOutOfOrder() {
	id := s.startRegistration()

	err := s.engine.SubmitDetails(context.Background(), id, validDetails())
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeStepOutOfOrder))

	// The failed call left no trace.
	reg := s.load(id)
	s.Equal(models.StatusInitiated, reg.Status)
	s.Nil(reg.Details)
}

func (s *EngineSuite) TestSubmitDetailsWordCountBoundary() {
	id := s.startVerified()

	short := validDetails()
	short.Description = description(models.MinDescriptionWords - 1)
	err := s.engine.SubmitDetails(context.Background(), id, short)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	s.Equal(models.StatusEmailVerified, s.load(id).Status)

	exact := validDetails()
	exact.Description = description(models.MinDescriptionWords)
	s.Require().NoError(s.engine.SubmitDetails(context.Background(), id, exact))

	reg := s.load(id)
	s.Equal(models.StatusDetailsSubmitted, reg.Status)
	s.Require().NotNil(reg.Details)
	s.Equal("Acme Logistics GmbH", reg.Details.LegalName)
}

func (s *EngineSuite) TestStatusProjection() {
	id := s.withDetails()

	resp, err := s.engine.Status(context.Background(), id)
	s.Require().NoError(err)
	s.Equal(models.StatusDetailsSubmitted, resp.Status)
	s.Equal("Upload documents", resp.CurrentStep)
	s.Equal(0, resp.QueuePosition)

	completed := map[models.Step]bool{}
	for _, step := range resp.Steps {
		completed[step.Step] = step.Completed
	}
	s.True(completed[models.StepEmailVerified])
	s.True(completed[models.StepDetailsSubmitted])
	s.False(completed[models.StepDocumentsUploaded])
	s.False(completed[models.StepFinancialSubmitted])
	s.False(completed[models.StepSubmittedForReview])
}

func (s *EngineSuite) TestStatusUnknownRegistration() {
	_, err := s.engine.Status(context.Background(), "no-such-id")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

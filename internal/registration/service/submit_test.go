package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/mock/gomock"

	"jobstream/internal/registration/models"
	"jobstream/internal/registration/service/mocks"
	"jobstream/internal/registration/token"
	dErrors "jobstream/pkg/domain-errors"
)

func (s *EngineSuite) TestUploadDocument() {
	id := s.withDetails()

	doc, err := s.engine.UploadDocument(context.Background(), id,
		strings.NewReader("%PDF-1.7 registry extract"), "extract.pdf", "application/pdf",
		models.DocumentBusinessRegistration)
	s.Require().NoError(err)
	s.Equal(models.DocumentPending, doc.Status)
	s.NotEmpty(doc.StorageRef)

	reg := s.load(id)
	s.Equal(models.StatusDocumentsUploaded, reg.Status)
	s.True(reg.Steps.Completed(models.StepDocumentsUploaded))

	// Stored bytes match what was uploaded.
	obj, err := s.blobs.Fetch(context.Background(), doc.StorageRef)
	s.Require().NoError(err)
	s.Equal([]byte("%PDF-1.7 registry extract"), obj.Data)
}

func (s *EngineSuite) TestUploadDocumentRepeatIsIdempotentTowardStatus() {
	id := s.withDocuments()

	_, err := s.engine.UploadDocument(context.Background(), id,
		strings.NewReader("scan"), "id.png", "image/png", models.DocumentIdentity)
	s.Require().NoError(err)

	s.Equal(models.StatusDocumentsUploaded, s.load(id).Status)
	docs, err := s.store.ListDocuments(context.Background(), id)
	s.Require().NoError(err)
	s.Len(docs, 2)
}

func (s *EngineSuite) TestUploadDocumentRejectsUnsupportedType() {
	id := s.withDetails()

	_, err := s.engine.UploadDocument(context.Background(), id,
		strings.NewReader("MZ"), "setup.exe", "application/octet-stream",
		models.DocumentOther)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnsupportedFileType))
	s.Equal(0, s.blobs.Len())
}

func (s *EngineSuite) TestUploadDocumentRejectsOversizedFile() {
	id := s.withDetails()

	oversized := bytes.Repeat([]byte{0x25}, testUploadCeiling+1)
	_, err := s.engine.UploadDocument(context.Background(), id,
		bytes.NewReader(oversized), "huge.pdf", "application/pdf",
		models.DocumentBalanceProof)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeFileTooLarge))
	s.Equal(0, s.blobs.Len())

	atCeiling := bytes.Repeat([]byte{0x25}, testUploadCeiling)
	_, err = s.engine.UploadDocument(context.Background(), id,
		bytes.NewReader(atCeiling), "fits.pdf", "application/pdf",
		models.DocumentBalanceProof)
	s.NoError(err)
}

func (s *EngineSuite) TestUploadDocumentOutOfOrder() {
	id := s.startVerified()

	_, err := s.engine.UploadDocument(context.Background(), id,
		strings.NewReader("x"), "a.pdf", "application/pdf", models.DocumentOther)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeStepOutOfOrder))
	s.Equal(models.StatusEmailVerified, s.load(id).Status)
}

func (s *EngineSuite) TestUploadDocumentStorageOutage() {
	id := s.withDetails()

	ctrl := gomock.NewController(s.T())
	mockBlobs := mocks.NewMockBlobStorage(ctrl)
	mockBlobs.EXPECT().
		Store(gomock.Any(), gomock.Any(), "extract.pdf", "application/pdf").
		Return("", errors.New("bucket gone"))

	eng, err := New(s.store, token.New(token.WithClock(s.clock)), mockBlobs, s.mail, s.vault, s.queue, Config{}, WithClock(s.clock))
	s.Require().NoError(err)

	_, err = eng.UploadDocument(context.Background(), id,
		strings.NewReader("%PDF"), "extract.pdf", "application/pdf",
		models.DocumentBusinessRegistration)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))

	docs, err := s.store.ListDocuments(context.Background(), id)
	s.Require().NoError(err)
	s.Empty(docs)
}

func (s *EngineSuite) TestSubmitFinancial() {
	id := s.withDocuments()

	const iban = "DE89370400440532013000"
	s.Require().NoError(s.engine.SubmitFinancial(context.Background(), id, models.FinancialRequest{
		BankName:          "Commerzbank",
		IBAN:              iban,
		AccountHolderName: "Acme Logistics GmbH",
	}))

	reg := s.load(id)
	s.Equal(models.StatusFinancialSubmitted, reg.Status)
	s.Require().NotNil(reg.Financial)
	s.Equal("Commerzbank", reg.Financial.BankName)

	// The IBAN is stored only as ciphertext and round-trips through the
	// vault.
	s.NotEqual(iban, reg.Financial.IBANCiphertext)
	s.NotContains(reg.Financial.IBANCiphertext, iban)
	plain, err := s.vault.Decrypt(reg.Financial.IBANCiphertext)
	s.Require().NoError(err)
	s.Equal(iban, plain)
}

func (s *EngineSuite) TestSubmitFinancialOutOfOrder() {
	// Immediately after start, the financial step is two gates away.
	id := s.startRegistration()

	err := s.engine.SubmitFinancial(context.Background(), id, models.FinancialRequest{IBAN: "DE00"})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeStepOutOfOrder))

	reg := s.load(id)
	s.Equal(models.StatusInitiated, reg.Status)
	s.Nil(reg.Financial)
}

func (s *EngineSuite) TestSubmitFinancialEncryptionFailureAborts() {
	id := s.withDocuments()

	ctrl := gomock.NewController(s.T())
	mockVault := mocks.NewMockEncrypter(ctrl)
	mockVault.EXPECT().Encrypt("DE89370400440532013000").Return("", errors.New("hsm offline"))

	eng, err := New(s.store, token.New(token.WithClock(s.clock)), s.blobs, s.mail, mockVault, s.queue, Config{}, WithClock(s.clock))
	s.Require().NoError(err)

	err = eng.SubmitFinancial(context.Background(), id, models.FinancialRequest{
		IBAN: "DE89370400440532013000",
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))

	reg := s.load(id)
	s.Nil(reg.Financial)
	s.Equal(models.StatusDocumentsUploaded, reg.Status)
}

func (s *EngineSuite) TestSubmitForReview() {
	id := s.withFinancial()

	reg, err := s.engine.SubmitForReview(context.Background(), id, models.SubmitRequest{
		TermsAccepted: true,
		StakeAmount:   decimal.NewFromInt(5000),
		WalletAddress: "0x8ba1f109551bd432803012645ac136ddd64dba72",
	})
	s.Require().NoError(err)

	s.Equal(models.StatusPendingReview, reg.Status)
	s.Equal(1, reg.QueuePosition, "first submitter takes position 1")
	s.True(reg.TermsAccepted)
	s.Require().NotNil(reg.SubmittedAt)
	s.Equal(s.now, *reg.SubmittedAt)
	s.True(decimal.NewFromInt(5000).Equal(reg.StakeAmount))

	s.True(strings.HasPrefix(reg.ContractAddress, "0x"))
	s.Len(reg.ContractAddress, 42)

	s.waitForMail()
	confirmation, ok := s.mail.lastConfirmation()
	s.Require().True(ok)
	s.Equal("ops@acme-logistics.example", confirmation.To)
	s.Equal(id, confirmation.RegistrationID)
}

func (s *EngineSuite) TestSubmitForReviewRequiresTerms() {
	id := s.withFinancial()

	_, err := s.engine.SubmitForReview(context.Background(), id, models.SubmitRequest{
		TermsAccepted: false,
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeTermsNotAccepted))
	s.Equal(models.StatusFinancialSubmitted, s.load(id).Status)
}

func (s *EngineSuite) TestSubmitForReviewOutOfOrder() {
	id := s.withDocuments()

	_, err := s.engine.SubmitForReview(context.Background(), id, models.SubmitRequest{TermsAccepted: true})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeStepOutOfOrder))
}

func (s *EngineSuite) TestSubmittedRegistrationIsSealed() {
	id := s.submitted()

	// Every applicant-facing mutation is refused once the registration is
	// pending review.
	s.True(dErrors.HasCode(
		s.engine.SubmitDetails(context.Background(), id, validDetails()),
		dErrors.CodeStepOutOfOrder))

	_, err := s.engine.UploadDocument(context.Background(), id,
		strings.NewReader("x"), "late.pdf", "application/pdf", models.DocumentOther)
	s.True(dErrors.HasCode(err, dErrors.CodeStepOutOfOrder))

	s.True(dErrors.HasCode(
		s.engine.SubmitFinancial(context.Background(), id, models.FinancialRequest{IBAN: "DE00"}),
		dErrors.CodeStepOutOfOrder))

	_, err = s.engine.SubmitForReview(context.Background(), id, models.SubmitRequest{TermsAccepted: true})
	s.True(dErrors.HasCode(err, dErrors.CodeStepOutOfOrder))
}

func (s *EngineSuite) TestQueuePositionsGrowWithSubmissions() {
	first := s.submitted()

	// A second company goes through the same flow.
	resp, err := s.engine.Start(context.Background(), models.StartRequest{
		CompanyEmail: "finance@beta-freight.example",
	})
	s.Require().NoError(err)
	s.waitForMail()
	second := resp.RegistrationID

	reg := s.load(second)
	s.Require().NoError(s.engine.VerifyEmail(context.Background(), second, reg.EmailToken))
	s.Require().NoError(s.engine.SubmitDetails(context.Background(), second, validDetails()))
	_, err = s.engine.UploadDocument(context.Background(), second,
		strings.NewReader("%PDF"), "extract.pdf", "application/pdf", models.DocumentBusinessRegistration)
	s.Require().NoError(err)
	s.Require().NoError(s.engine.SubmitFinancial(context.Background(), second, models.FinancialRequest{
		IBAN: "GB29NWBK60161331926819",
	}))
	submitted, err := s.engine.SubmitForReview(context.Background(), second, models.SubmitRequest{TermsAccepted: true})
	s.Require().NoError(err)
	s.waitForMail()

	s.Equal(1, s.load(first).QueuePosition)
	s.Equal(2, submitted.QueuePosition)
}

func (s *EngineSuite) TestDocumentsCarrySignedURLs() {
	id := s.withDocuments()

	signerSecret := []byte("url-secret")
	eng := s.newEngine(WithURLSigner(newTestSigner(signerSecret, s.clock)))

	docs, err := eng.Documents(context.Background(), id)
	s.Require().NoError(err)
	s.Require().Len(docs, 1)
	s.NotEmpty(docs[0].SignedURL)
	s.Contains(docs[0].SignedURL, "?token=")
}

func (s *EngineSuite) TestSubmitForReviewExpiryStampsDoNotDrift() {
	id := s.withFinancial()
	s.now = s.now.Add(3 * time.Hour)

	reg, err := s.engine.SubmitForReview(context.Background(), id, models.SubmitRequest{TermsAccepted: true})
	s.Require().NoError(err)
	s.waitForMail()

	s.Require().NotNil(reg.TermsAcceptedAt)
	s.Equal(s.now, *reg.TermsAcceptedAt)
	s.Equal(s.now, reg.UpdatedAt)
}

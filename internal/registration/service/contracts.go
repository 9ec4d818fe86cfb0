package service

//go:generate mockgen -source=contracts.go -destination=mocks/mocks.go -package=mocks
//go:generate mockgen -source=../store/store.go -destination=mocks/store_mock.go -package=mocks Store

import (
	"context"

	"jobstream/internal/risk"
	"jobstream/internal/storage"
)

// BlobStorage stores raw document bytes and returns an opaque reference.
// Satisfied by internal/storage implementations.
type BlobStorage interface {
	Store(ctx context.Context, data []byte, filename, contentType string) (string, error)
	Fetch(ctx context.Context, ref string) (*storage.Object, error)
	Delete(ctx context.Context, ref string) error
}

// MailSender delivers registration mail. Delivery is fire-and-forget: the
// engine logs failures and never surfaces them to the applicant.
type MailSender interface {
	SendVerification(ctx context.Context, to, contactName, registrationID, token string) error
	SendConfirmation(ctx context.Context, to, contactName, registrationID string) error
}

// Encrypter seals bank account numbers before persistence.
type Encrypter interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// PositionAssigner hands out the next review-queue position at submission.
type PositionAssigner interface {
	NextPosition(ctx context.Context) (int, error)
}

// RiskScorer assesses a company ahead of admin review.
type RiskScorer interface {
	Score(ctx context.Context, req risk.Request) (*risk.Assessment, error)
}

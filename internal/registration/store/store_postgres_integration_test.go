//go:build integration

package store_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"jobstream/internal/registration/models"
	"jobstream/internal/registration/store"
	"jobstream/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateAll(context.Background()))
}

func (s *PostgresStoreSuite) newRegistration(email string, status models.Status) *models.Registration {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.Registration{
		ID:                  fmt.Sprintf("reg_%s", uuid.New().String()),
		CompanyEmail:        email,
		ContactName:         "Jane Doe",
		EmailToken:          "tok",
		EmailTokenExpiresAt: now.Add(24 * time.Hour),
		Status:              status,
		Steps:               models.StepSet{},
		CreatedAt:           now,
		UpdatedAt:           now,
		ExpiresAt:           now.Add(7 * 24 * time.Hour),
	}
}

func (s *PostgresStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	reg := s.newRegistration("contact@acme.example", models.StatusDetailsSubmitted)
	reg.Steps.Mark(models.StepEmailVerified)
	reg.Steps.Mark(models.StepDetailsSubmitted)
	reg.EmailVerified = true
	reg.Details = &models.CompanyDetails{
		LegalName:   "Acme GmbH",
		Description: "software things",
		Industry:    "IT",
	}

	s.Require().NoError(s.store.Create(ctx, reg))

	found, err := s.store.FindByID(ctx, reg.ID)
	s.Require().NoError(err)
	s.Equal(reg.CompanyEmail, found.CompanyEmail)
	s.Equal(models.StatusDetailsSubmitted, found.Status)
	s.True(found.Steps.Completed(models.StepEmailVerified))
	s.True(found.Steps.Completed(models.StepDetailsSubmitted))
	s.Require().NotNil(found.Details)
	s.Equal("Acme GmbH", found.Details.LegalName)
	s.Nil(found.Financial)
}

func (s *PostgresStoreSuite) TestFindNotFound() {
	_, err := s.store.FindByID(context.Background(), "reg_missing")
	s.ErrorIs(err, store.ErrNotFound)
}

func (s *PostgresStoreSuite) TestUpdateSerializesConcurrentWriters() {
	ctx := context.Background()
	reg := s.newRegistration("contact@acme.example", models.StatusInitiated)
	s.Require().NoError(s.store.Create(ctx, reg))

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.Update(ctx, reg.ID, func(r *models.Registration) error {
				r.QueuePosition++
				return nil
			})
			s.NoError(err)
		}()
	}
	wg.Wait()

	found, err := s.store.FindByID(ctx, reg.ID)
	s.Require().NoError(err)
	s.Equal(writers, found.QueuePosition)
}

func (s *PostgresStoreSuite) TestExistsActiveByEmail() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, s.newRegistration("a@corp.example", models.StatusRejected)))

	exists, err := s.store.ExistsActiveByEmail(ctx, "a@corp.example")
	s.Require().NoError(err)
	s.False(exists)

	s.Require().NoError(s.store.Create(ctx, s.newRegistration("A@CORP.EXAMPLE", models.StatusPendingReview)))
	exists, err = s.store.ExistsActiveByEmail(ctx, "a@corp.example")
	s.Require().NoError(err)
	s.True(exists)
}

func (s *PostgresStoreSuite) TestDeleteExpiredCascadesDocuments() {
	ctx := context.Background()
	now := time.Now().UTC()

	expired := s.newRegistration("a@corp.example", models.StatusInitiated)
	expired.ExpiresAt = now.Add(-time.Hour)
	pending := s.newRegistration("b@corp.example", models.StatusPendingReview)
	pending.ExpiresAt = now.Add(-time.Hour)

	s.Require().NoError(s.store.Create(ctx, expired))
	s.Require().NoError(s.store.Create(ctx, pending))

	doc := &models.Document{
		ID:             fmt.Sprintf("doc_%s", uuid.New().String()),
		RegistrationID: expired.ID,
		FileName:       "balance.pdf",
		ContentType:    "application/pdf",
		StorageRef:     "ref-1",
		SizeBytes:      1024,
		Type:           models.DocumentBalanceProof,
		Status:         models.DocumentPending,
		UploadedAt:     now,
	}
	s.Require().NoError(s.store.AddDocument(ctx, doc))

	deleted, err := s.store.DeleteExpired(ctx, now)
	s.Require().NoError(err)
	s.Equal(1, deleted)

	_, err = s.store.FindByID(ctx, expired.ID)
	s.ErrorIs(err, store.ErrNotFound)
	_, err = s.store.FindDocument(ctx, doc.ID)
	s.ErrorIs(err, store.ErrDocumentNotFound)

	_, err = s.store.FindByID(ctx, pending.ID)
	s.NoError(err)
}

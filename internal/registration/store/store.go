package store

import (
	"context"
	"time"

	"jobstream/internal/registration/models"
	dErrors "jobstream/pkg/domain-errors"
)

var (
	// ErrNotFound keeps storage-specific 404s consistent across memory and
	// postgres implementations.
	ErrNotFound = dErrors.New(dErrors.CodeNotFound, "registration not found")

	// ErrDocumentNotFound is returned for unknown document ids.
	ErrDocumentNotFound = dErrors.New(dErrors.CodeNotFound, "document not found")
)

// Store is the system of record for registrations and their documents.
//
// Error Contract:
// - FindByID / FindDocument return ErrNotFound / ErrDocumentNotFound
// - Update applies mutate under a per-registration write lock (or a database
//   row lock) so concurrent read-modify-write cycles never lose updates;
//   an error from mutate aborts without persisting
// - DeleteExpired never touches PENDING_REVIEW or APPROVED rows and cascades
//   document deletion
type Store interface {
	Create(ctx context.Context, reg *models.Registration) error
	FindByID(ctx context.Context, id string) (*models.Registration, error)
	Update(ctx context.Context, id string, mutate func(*models.Registration) error) (*models.Registration, error)
	ExistsActiveByEmail(ctx context.Context, email string) (bool, error)
	CountByStatus(ctx context.Context, status models.Status) (int, error)

	AddDocument(ctx context.Context, doc *models.Document) error
	FindDocument(ctx context.Context, id string) (*models.Document, error)
	ListDocuments(ctx context.Context, registrationID string) ([]*models.Document, error)
	UpdateDocument(ctx context.Context, doc *models.Document) error

	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"jobstream/internal/registration/models"
)

// InMemoryStore keeps registrations in process memory. It favors clarity over
// performance and is the default when no database is configured.
type InMemoryStore struct {
	mu            sync.RWMutex
	registrations map[string]*models.Registration
	documents     map[string]*models.Document
}

// NewInMemoryStore constructs an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		registrations: make(map[string]*models.Registration),
		documents:     make(map[string]*models.Document),
	}
}

func (s *InMemoryStore) Create(_ context.Context, reg *models.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registrations[reg.ID] = reg.Clone()
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id string) (*models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if reg, ok := s.registrations[id]; ok {
		return reg.Clone(), nil
	}
	return nil, ErrNotFound
}

// Update runs mutate on a copy under the write lock and persists the result
// only when mutate succeeds. Concurrent updates to the same id serialize here.
func (s *InMemoryStore) Update(_ context.Context, id string, mutate func(*models.Registration) error) (*models.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.registrations[id]
	if !ok {
		return nil, ErrNotFound
	}
	updated := current.Clone()
	if err := mutate(updated); err != nil {
		return nil, err
	}
	s.registrations[id] = updated
	return updated.Clone(), nil
}

func (s *InMemoryStore) ExistsActiveByEmail(_ context.Context, email string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, reg := range s.registrations {
		if !strings.EqualFold(reg.CompanyEmail, email) {
			continue
		}
		if reg.Status == models.StatusPendingReview || reg.Status == models.StatusApproved {
			return true, nil
		}
	}
	return false, nil
}

func (s *InMemoryStore) CountByStatus(_ context.Context, status models.Status) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, reg := range s.registrations {
		if reg.Status == status {
			count++
		}
	}
	return count, nil
}

func (s *InMemoryStore) AddDocument(_ context.Context, doc *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.registrations[doc.RegistrationID]; !ok {
		return ErrNotFound
	}
	copied := *doc
	s.documents[doc.ID] = &copied
	return nil
}

func (s *InMemoryStore) FindDocument(_ context.Context, id string) (*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if doc, ok := s.documents[id]; ok {
		copied := *doc
		return &copied, nil
	}
	return nil, ErrDocumentNotFound
}

func (s *InMemoryStore) ListDocuments(_ context.Context, registrationID string) ([]*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Document
	for _, doc := range s.documents {
		if doc.RegistrationID == registrationID {
			copied := *doc
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UploadedAt.Before(out[j].UploadedAt) })
	return out, nil
}

func (s *InMemoryStore) UpdateDocument(_ context.Context, doc *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[doc.ID]; !ok {
		return ErrDocumentNotFound
	}
	copied := *doc
	s.documents[doc.ID] = &copied
	return nil
}

// DeleteExpired removes registrations whose expiry has passed (boundary
// inclusive) unless they reached PENDING_REVIEW or APPROVED. Documents go
// with their registration.
func (s *InMemoryStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for id, reg := range s.registrations {
		if reg.ExpiresAt.After(now) {
			continue
		}
		if reg.Status == models.StatusPendingReview || reg.Status == models.StatusApproved {
			continue
		}
		delete(s.registrations, id)
		for docID, doc := range s.documents {
			if doc.RegistrationID == id {
				delete(s.documents, docID)
			}
		}
		deleted++
	}
	return deleted, nil
}

// Package storage abstracts document blob storage. The engine stores raw
// uploads here and persists only the returned reference.
package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	dErrors "jobstream/pkg/domain-errors"
)

// ErrObjectNotFound is returned when a reference does not resolve to a
// stored object.
var ErrObjectNotFound = dErrors.New(dErrors.CodeNotFound, "stored object not found")

// Object is a stored blob together with the metadata recorded at upload time.
type Object struct {
	Ref         string
	Filename    string
	ContentType string
	Data        []byte
}

// Storage stores and retrieves document blobs by opaque reference.
type Storage interface {
	Store(ctx context.Context, data []byte, filename, contentType string) (string, error)
	Fetch(ctx context.Context, ref string) (*Object, error)
	Delete(ctx context.Context, ref string) error
}

// InMemoryStorage keeps objects in a map. Suitable for development and tests.
type InMemoryStorage struct {
	mu      sync.RWMutex
	objects map[string]*Object
}

// NewInMemoryStorage constructs an empty in-memory blob store.
func NewInMemoryStorage() *InMemoryStorage {
	return &InMemoryStorage{objects: make(map[string]*Object)}
}

func (s *InMemoryStorage) Store(_ context.Context, data []byte, filename, contentType string) (string, error) {
	ref := fmt.Sprintf("mem://%s", uuid.NewString())
	stored := &Object{
		Ref:         ref,
		Filename:    filename,
		ContentType: contentType,
		Data:        append([]byte(nil), data...),
	}
	s.mu.Lock()
	s.objects[ref] = stored
	s.mu.Unlock()
	return ref, nil
}

func (s *InMemoryStorage) Fetch(_ context.Context, ref string) (*Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[ref]
	if !ok {
		return nil, ErrObjectNotFound
	}
	out := *obj
	out.Data = append([]byte(nil), obj.Data...)
	return &out, nil
}

func (s *InMemoryStorage) Delete(_ context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[ref]; !ok {
		return ErrObjectNotFound
	}
	delete(s.objects, ref)
	return nil
}

// Len reports the number of stored objects.
func (s *InMemoryStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

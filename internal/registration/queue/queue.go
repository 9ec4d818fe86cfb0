// Package queue assigns review-queue positions at submission time.
//
// The naive count-then-assign sequence over the store is racy: two concurrent
// submissions can read the same count and claim the same position. Both
// implementations here hand out positions from a single atomically
// incremented counter instead.
package queue

import (
	"context"
	"sync"

	"jobstream/internal/registration/models"
)

// Assigner hands out the next review-queue position.
type Assigner interface {
	NextPosition(ctx context.Context) (int, error)
}

// PendingCounter exposes the store count used to seed the in-memory counter
// on startup.
type PendingCounter interface {
	CountByStatus(ctx context.Context, status models.Status) (int, error)
}

// CounterAssigner is a process-local monotonic counter. Safe for concurrent
// submissions within one process; multi-process deployments should use the
// Redis assigner.
type CounterAssigner struct {
	mu   sync.Mutex
	next int
}

// NewCounterAssigner constructs a counter starting at position 1.
func NewCounterAssigner() *CounterAssigner {
	return &CounterAssigner{}
}

// Seed initializes the counter from the number of registrations already
// pending review, so restarts continue the sequence instead of reusing
// positions.
func (a *CounterAssigner) Seed(ctx context.Context, store PendingCounter) error {
	count, err := store.CountByStatus(ctx, models.StatusPendingReview)
	if err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if count > a.next {
		a.next = count
	}
	return nil
}

func (a *CounterAssigner) NextPosition(_ context.Context) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.next++
	return a.next, nil
}

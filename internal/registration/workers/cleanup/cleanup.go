// Package cleanup runs the expiry sweeper: a periodic worker that removes
// registrations whose overall expiry has passed without reaching review.
package cleanup

import (
	"context"
	"log/slog"
	"time"

	"jobstream/internal/registration/events"
	"jobstream/internal/registration/metrics"
)

// SweepResult contains the results of one sweep.
type SweepResult struct {
	Deleted  int
	Duration time.Duration
}

// ExpiryStore deletes registrations past their expiry. The store contract
// guarantees PENDING_REVIEW and APPROVED rows are never touched and that
// document rows cascade.
type ExpiryStore interface {
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// Option configures the Sweeper.
type Option func(*Sweeper)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sweeper) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithInterval sets how often the sweeper runs.
func WithInterval(interval time.Duration) Option {
	return func(s *Sweeper) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Sweeper) {
		s.metrics = m
	}
}

// WithClock injects the time source used as the expiry boundary.
func WithClock(clock func() time.Time) Option {
	return func(s *Sweeper) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithEventPublisher sets the lifecycle event publisher.
func WithEventPublisher(p events.Publisher) Option {
	return func(s *Sweeper) {
		if p != nil {
			s.events = p
		}
	}
}

// Sweeper periodically deletes expired registrations.
type Sweeper struct {
	store    ExpiryStore
	logger   *slog.Logger
	interval time.Duration
	metrics  *metrics.Metrics
	events   events.Publisher
	clock    func() time.Time
}

// New constructs a sweeper with an hourly default interval.
func New(store ExpiryStore, opts ...Option) *Sweeper {
	s := &Sweeper{
		store:    store,
		logger:   slog.Default(),
		interval: time.Hour,
		events:   events.NoopPublisher{},
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start runs the sweep loop until the context is cancelled. Ticks never
// overlap: a long sweep simply delays the next one.
func (s *Sweeper) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			startTime := time.Now()
			res, err := s.RunOnce(ctx)
			duration := time.Since(startTime)

			if err != nil {
				s.logger.Error("registration_expiry_sweep_failed",
					"error", err,
					"duration_ms", duration.Milliseconds(),
				)
				continue
			}
			res.Duration = duration

			s.logger.Info("registration_expiry_sweep_completed",
				"deleted", res.Deleted,
				"duration_ms", duration.Milliseconds(),
			)

		case <-ctx.Done():
			s.logger.Info("registration expiry sweeper stopping", "reason", ctx.Err())
			return ctx.Err()
		}
	}
}

// RunOnce executes a single sweep. A registration whose expiry equals the
// current instant is already expired.
func (s *Sweeper) RunOnce(ctx context.Context) (*SweepResult, error) {
	now := s.clock()
	deleted, err := s.store.DeleteExpired(ctx, now)
	if err != nil {
		return nil, err
	}
	if deleted > 0 {
		if s.metrics != nil {
			s.metrics.AddExpiredSwept(deleted)
		}
		s.events.Publish(ctx, events.Event{
			Type:       events.TypeExpired,
			OccurredAt: now,
		})
	}
	return &SweepResult{Deleted: deleted}, nil
}

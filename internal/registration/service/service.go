// Package service implements the registration workflow engine: it owns the
// onboarding state machine and orchestrates the store, step gate, token
// service, queue assigner and external collaborators.
package service

import (
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"jobstream/internal/registration/events"
	"jobstream/internal/registration/metrics"
	"jobstream/internal/registration/store"
	"jobstream/internal/registration/token"
	"jobstream/internal/registration/tracer"
	"jobstream/internal/storage"
)

// Config carries the workflow knobs. Zero values fall back to defaults.
type Config struct {
	// TokenTTL bounds how long an email-verification token stays valid.
	TokenTTL time.Duration
	// RegistrationTTL bounds how long an unfinished registration survives
	// before the sweeper removes it.
	RegistrationTTL time.Duration
	// MaxUploadBytes caps a single document upload.
	MaxUploadBytes int64
	// DeniedDomains lists free/consumer email providers rejected at start.
	DeniedDomains []string
}

const (
	defaultTokenTTL        = 24 * time.Hour
	defaultRegistrationTTL = 7 * 24 * time.Hour
	defaultMaxUploadBytes  = 10 << 20
)

// Engine is the workflow engine.
type Engine struct {
	store   store.Store
	tokens  *token.Service
	storage BlobStorage
	mail    MailSender
	vault   Encrypter
	queue   PositionAssigner
	scorer  RiskScorer
	events  events.Publisher
	signer  *storage.URLSigner

	cfg     Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  tracer.Tracer
	clock   func() time.Time
	newID   func() string

	deniedDomains map[string]struct{}
}

// Option configures the Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics sets the metrics collector. Nil metrics means no recording.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithTracer sets the tracer.
func WithTracer(t tracer.Tracer) Option {
	return func(e *Engine) {
		if t != nil {
			e.tracer = t
		}
	}
}

// WithClock injects the time source for tests.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithIDGenerator injects the registration/document ID source for tests.
func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) {
		if newID != nil {
			e.newID = newID
		}
	}
}

// WithEventPublisher sets the lifecycle event publisher.
func WithEventPublisher(p events.Publisher) Option {
	return func(e *Engine) {
		if p != nil {
			e.events = p
		}
	}
}

// WithRiskScorer sets the company risk scorer consumed by admin review.
func WithRiskScorer(s RiskScorer) Option {
	return func(e *Engine) {
		e.scorer = s
	}
}

// WithURLSigner enables signed download URLs on listed documents.
func WithURLSigner(s *storage.URLSigner) Option {
	return func(e *Engine) {
		e.signer = s
	}
}

// New constructs the workflow engine.
func New(st store.Store, tokens *token.Service, blobs BlobStorage, mail MailSender, enc Encrypter, queue PositionAssigner, cfg Config, opts ...Option) (*Engine, error) {
	if st == nil {
		return nil, errors.New("service: store is required")
	}
	if tokens == nil {
		return nil, errors.New("service: token service is required")
	}
	if blobs == nil {
		return nil, errors.New("service: blob storage is required")
	}
	if mail == nil {
		return nil, errors.New("service: mail sender is required")
	}
	if enc == nil {
		return nil, errors.New("service: encrypter is required")
	}
	if queue == nil {
		return nil, errors.New("service: position assigner is required")
	}

	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = defaultTokenTTL
	}
	if cfg.RegistrationTTL <= 0 {
		cfg.RegistrationTTL = defaultRegistrationTTL
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}

	e := &Engine{
		store:   st,
		tokens:  tokens,
		storage: blobs,
		mail:    mail,
		vault:   enc,
		queue:   queue,
		events:  events.NoopPublisher{},
		cfg:     cfg,
		logger:  slog.Default(),
		tracer:  tracer.NewNoop(),
		clock:   time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}

	e.deniedDomains = make(map[string]struct{}, len(cfg.DeniedDomains))
	for _, d := range cfg.DeniedDomains {
		e.deniedDomains[normalizeDomain(d)] = struct{}{}
	}
	return e, nil
}

// Package events publishes registration lifecycle events for downstream
// consumers (compliance, analytics). Publishing is fire-and-forget: a broker
// outage never blocks or fails an applicant operation.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"jobstream/internal/platform/kafka/producer"
	"jobstream/internal/registration/models"
)

// Event types emitted over the registration lifecycle.
const (
	TypeStarted   = "registration.started"
	TypeVerified  = "registration.email_verified"
	TypeSubmitted = "registration.submitted"
	TypeDecided   = "registration.decided"
	TypeExpired   = "registration.expired"
)

const defaultTopic = "jobstream.registration.events"

// Event is the wire shape of a lifecycle event.
type Event struct {
	Type           string        `json:"type"`
	RegistrationID string        `json:"registration_id"`
	Status         models.Status `json:"status,omitempty"`
	Decision       string        `json:"decision,omitempty"`
	OccurredAt     time.Time     `json:"occurred_at"`
}

// Publisher emits lifecycle events.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// KafkaPublisher writes events to a Kafka topic keyed by registration ID.
type KafkaPublisher struct {
	producer *producer.Producer
	topic    string
	logger   *slog.Logger
	clock    func() time.Time
}

// KafkaOption configures the KafkaPublisher.
type KafkaOption func(*KafkaPublisher)

// WithTopic overrides the destination topic.
func WithTopic(topic string) KafkaOption {
	return func(p *KafkaPublisher) {
		if topic != "" {
			p.topic = topic
		}
	}
}

// WithLogger sets the logger used for delivery failures.
func WithLogger(logger *slog.Logger) KafkaOption {
	return func(p *KafkaPublisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithClock injects the time source stamped on events.
func WithClock(clock func() time.Time) KafkaOption {
	return func(p *KafkaPublisher) {
		if clock != nil {
			p.clock = clock
		}
	}
}

// NewKafkaPublisher constructs a publisher over the given producer.
func NewKafkaPublisher(prod *producer.Producer, opts ...KafkaOption) *KafkaPublisher {
	p := &KafkaPublisher{
		producer: prod,
		topic:    defaultTopic,
		logger:   slog.Default(),
		clock:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Publish serializes the event and hands it to the producer asynchronously.
// Failures are logged and dropped.
func (p *KafkaPublisher) Publish(ctx context.Context, event Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = p.clock()
	}
	value, err := json.Marshal(event)
	if err != nil {
		p.logger.ErrorContext(ctx, "encode lifecycle event", "type", event.Type, "error", err)
		return
	}
	if err := p.producer.ProduceAsync(&producer.Message{
		Topic: p.topic,
		Key:   []byte(event.RegistrationID),
		Value: value,
	}); err != nil {
		p.logger.ErrorContext(ctx, "publish lifecycle event",
			"type", event.Type,
			"registration_id", event.RegistrationID,
			"error", err,
		)
	}
}

// NoopPublisher drops all events. Used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) {}

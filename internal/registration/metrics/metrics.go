package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for the registration workflow.
type Metrics struct {
	RegistrationsStarted   prometheus.Counter
	EmailsVerified         prometheus.Counter
	RegistrationsSubmitted prometheus.Counter
	Decisions              *prometheus.CounterVec
	StepRejections         *prometheus.CounterVec
	ExpiredSwept           prometheus.Counter
	PendingReviewTotal     prometheus.Gauge
	StepLatency            *prometheus.HistogramVec
}

// New registers and returns registration workflow collectors.
func New() *Metrics {
	return &Metrics{
		RegistrationsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "jobstream_registrations_started_total",
			Help: "Total number of registrations started",
		}),
		EmailsVerified: promauto.NewCounter(prometheus.CounterOpts{
			Name: "jobstream_registration_emails_verified_total",
			Help: "Total number of successful email verifications",
		}),
		RegistrationsSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "jobstream_registrations_submitted_total",
			Help: "Total number of registrations submitted for review",
		}),
		Decisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "jobstream_registration_decisions_total",
			Help: "Total number of admin decisions, labeled by outcome",
		}, []string{"decision"}),
		StepRejections: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "jobstream_registration_step_rejections_total",
			Help: "Total number of operations rejected by the step gate, labeled by operation",
		}, []string{"operation"}),
		ExpiredSwept: promauto.NewCounter(prometheus.CounterOpts{
			Name: "jobstream_registrations_expired_total",
			Help: "Total number of expired registrations deleted by the sweeper",
		}),
		PendingReviewTotal: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "jobstream_registrations_pending_review",
			Help: "Current number of registrations awaiting review",
		}),
		StepLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "jobstream_registration_step_latency_seconds",
			Help:    "Latency of workflow operations in seconds, labeled by operation",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}

func (m *Metrics) IncrementStarted() {
	m.RegistrationsStarted.Inc()
}

func (m *Metrics) IncrementEmailVerified() {
	m.EmailsVerified.Inc()
}

func (m *Metrics) IncrementSubmitted() {
	m.RegistrationsSubmitted.Inc()
}

func (m *Metrics) IncrementDecision(decision string) {
	m.Decisions.WithLabelValues(decision).Inc()
}

func (m *Metrics) IncrementStepRejection(operation string) {
	m.StepRejections.WithLabelValues(operation).Inc()
}

func (m *Metrics) AddExpiredSwept(count int) {
	m.ExpiredSwept.Add(float64(count))
}

func (m *Metrics) SetPendingReview(count float64) {
	m.PendingReviewTotal.Set(count)
}

// ObserveStepLatency records how long a workflow operation took.
func (m *Metrics) ObserveStepLatency(operation string, start time.Time) {
	m.StepLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

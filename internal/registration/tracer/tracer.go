// Package tracer provides a small tracing abstraction for the workflow
// engine. The engine emits spans through this interface without depending on
// OpenTelemetry APIs directly; production wires the OTel adapter, tests use
// the noop.
package tracer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Span represents an active trace span.
type Span interface {
	// End completes the span. A non-nil err marks the span as failed.
	// End must be called exactly once, typically via defer.
	End(err error)

	// SetAttributes adds key-value pairs to the span.
	SetAttributes(attrs ...Attribute)

	// AddEvent records a timestamped event within the span.
	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans. Implementations must be safe for concurrent use.
type Tracer interface {
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Attribute is a key-value pair attached to spans.
type Attribute struct {
	Key   string
	Value any
}

// String creates a string attribute.
func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

// Bool creates a boolean attribute.
func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

// Int64 creates an int64 attribute.
func Int64(key string, value int64) Attribute {
	return Attribute{Key: key, Value: value}
}

// Duration creates a duration attribute in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// HashEmail returns a short SHA-256 hash of an email address for safe
// correlation in traces without exposing the address itself.
func HashEmail(email string) string {
	if email == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(email))
	return hex.EncodeToString(hash[:8])
}

// Span names used by the workflow engine.
const (
	SpanStart           = "registration.start"
	SpanVerifyEmail     = "registration.verify_email"
	SpanSubmitDetails   = "registration.submit_details"
	SpanUploadDocument  = "registration.upload_document"
	SpanSubmitFinancial = "registration.submit_financial"
	SpanSubmitReview    = "registration.submit_for_review"
	SpanStatus          = "registration.status"
	SpanDecision        = "registration.admin_decision"
)

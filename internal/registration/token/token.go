package token

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"time"

	dErrors "jobstream/pkg/domain-errors"
)

// Clock supplies the current time, injectable for tests.
type Clock func() time.Time

// Service issues and validates single-use, time-bound verification tokens.
type Service struct {
	clock Clock
}

// Option configures the Service.
type Option func(*Service)

// WithClock sets the clock function for testability.
func WithClock(clock Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// New constructs a token service.
func New(opts ...Option) *Service {
	svc := &Service{clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Issue returns a cryptographically random URL-safe token and its expiry.
// 32 bytes of entropy, base64url without padding.
func (s *Service) Issue(ttl time.Duration) (string, time.Time, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", time.Time{}, dErrors.Wrap(err, dErrors.CodeInternal, "could not generate token")
	}
	return base64.RawURLEncoding.EncodeToString(buf), s.clock().Add(ttl), nil
}

// Validate succeeds iff the presented token matches the expected one exactly
// and the expiry has not passed. Expiry is checked first so an expired token
// never leaks whether it would have matched.
func (s *Service) Validate(expected, presented string, expiresAt time.Time) error {
	if !s.clock().Before(expiresAt) {
		return dErrors.New(dErrors.CodeTokenExpired, "verification token expired")
	}
	if subtle.ConstantTimeCompare([]byte(expected), []byte(presented)) != 1 {
		return dErrors.New(dErrors.CodeTokenMismatch, "verification token does not match")
	}
	return nil
}

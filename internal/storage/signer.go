package storage

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	dErrors "jobstream/pkg/domain-errors"
)

// URLSigner mints short-lived signed download URLs for stored documents.
// Reviewers fetch documents through these links without a session.
type URLSigner struct {
	secret  []byte
	baseURL string
	ttl     time.Duration
	clock   func() time.Time
}

// SignerOption configures the URLSigner.
type SignerOption func(*URLSigner)

// WithSignerTTL overrides how long signed URLs stay valid.
func WithSignerTTL(ttl time.Duration) SignerOption {
	return func(s *URLSigner) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithSignerClock injects the time source used for issued-at and expiry
// claims.
func WithSignerClock(clock func() time.Time) SignerOption {
	return func(s *URLSigner) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewURLSigner constructs a signer. baseURL is the externally reachable
// document endpoint, e.g. "https://api.example.com/documents".
func NewURLSigner(secret []byte, baseURL string, opts ...SignerOption) *URLSigner {
	s := &URLSigner{
		secret:  secret,
		baseURL: baseURL,
		ttl:     15 * time.Minute,
		clock:   time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// SignedURL returns a download URL for the given storage reference, valid
// until the signer's TTL elapses.
func (s *URLSigner) SignedURL(ref string) (string, error) {
	now := s.clock()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"ref": ref,
		"iat": now.Unix(),
		"exp": now.Add(s.ttl).Unix(),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign document url: %w", err)
	}
	return fmt.Sprintf("%s?token=%s", s.baseURL, signed), nil
}

// Verify checks a download token and returns the storage reference it grants
// access to.
func (s *URLSigner) Verify(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.clock),
	)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeTokenExpired, "document url rejected")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", dErrors.New(dErrors.CodeTokenMismatch, "document url claims malformed")
	}
	ref, ok := claims["ref"].(string)
	if !ok || ref == "" {
		return "", dErrors.New(dErrors.CodeTokenMismatch, "document url missing reference")
	}
	return ref, nil
}

// Package risk calls the external company-verification service that scores
// a registration before it reaches a reviewer. Scores are advisory: the
// engine attaches them to the review, it never auto-rejects on them.
package risk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	dErrors "jobstream/pkg/domain-errors"
)

// Request carries the company facts the scoring service evaluates.
type Request struct {
	RegistrationID      string `json:"registration_id"`
	CompanyName         string `json:"company_name"`
	CompanyNumber       string `json:"company_number"`
	VATNumber           string `json:"vat_number,omitempty"`
	WebsiteURL          string `json:"website_url,omitempty"`
	LinkedInURL         string `json:"linkedin_url,omitempty"`
	BusinessDescription string `json:"business_description,omitempty"`
}

// Assessment is the scoring service's verdict.
type Assessment struct {
	OverallRiskScore float64         `json:"overall_risk_score"`
	RiskLevel        string          `json:"risk_level"`
	RiskFlags        []string        `json:"risk_flags"`
	Recommendations  []string        `json:"recommendations"`
	Confidence       float64         `json:"confidence"`
	WebIntelligence  json.RawMessage `json:"web_intelligence,omitempty"`
	Sentiment        json.RawMessage `json:"sentiment_analysis,omitempty"`
}

// Scorer assesses a company's risk profile.
type Scorer interface {
	Score(ctx context.Context, req Request) (*Assessment, error)
}

// Client calls the verification service over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// NewClient constructs a scoring client against the given base URL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Score submits the company for assessment. Transport and non-200 failures
// come back as unavailable errors so callers can fall back to manual review.
func (c *Client) Score(ctx context.Context, req Request) (*Assessment, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode risk request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/verify-company", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build risk request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "risk service unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, dErrors.New(dErrors.CodeUnavailable,
			fmt.Sprintf("risk service returned %d", resp.StatusCode))
	}

	var assessment Assessment
	if err := json.NewDecoder(resp.Body).Decode(&assessment); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "risk response malformed")
	}
	return &assessment, nil
}

// NoopScorer reports a neutral assessment. Used when no scoring service is
// configured.
type NoopScorer struct{}

func (NoopScorer) Score(_ context.Context, _ Request) (*Assessment, error) {
	return &Assessment{RiskLevel: "UNKNOWN"}, nil
}

// Package email sends registration lifecycle mail. The engine treats
// delivery as fire-and-forget: a send failure is logged, never surfaced to
// the applicant.
package email

import (
	"context"
	"log/slog"
)

// Sender delivers registration mail.
type Sender interface {
	// SendVerification delivers the email-verification link for a new
	// registration.
	SendVerification(ctx context.Context, to, contactName, registrationID, token string) error
	// SendConfirmation delivers the post-submission confirmation.
	SendConfirmation(ctx context.Context, to, contactName, registrationID string) error
}

// LogSender writes mail to the log instead of delivering it. Used in
// development and tests.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender constructs a log-backed sender.
func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) SendVerification(ctx context.Context, to, contactName, registrationID, token string) error {
	s.logger.InfoContext(ctx, "verification email",
		"to", to,
		"contact_name", contactName,
		"registration_id", registrationID,
		"token", token,
	)
	return nil
}

func (s *LogSender) SendConfirmation(ctx context.Context, to, contactName, registrationID string) error {
	s.logger.InfoContext(ctx, "submission confirmation email",
		"to", to,
		"contact_name", contactName,
		"registration_id", registrationID,
	)
	return nil
}

// Package notify delivers operator alerts about failed tax calculations.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dejobratic/salestax/internal/tax/domain"
	"github.com/dejobratic/salestax/internal/tax/ports"
	"github.com/google/uuid"
	"github.com/resend/resend-go/v2"
)

// EmailSender is the part of the Resend client the sink uses.
type EmailSender interface {
	Send(params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// ResendSink mails alerts to the configured operator addresses.
type ResendSink struct {
	sender EmailSender
	from   string
	to     []string
	logger *slog.Logger
}

// NewResendSink creates a sink backed by the Resend API.
func NewResendSink(apiKey, from string, to []string, logger *slog.Logger) (*ResendSink, error) {
	if apiKey == "" {
		return nil, errors.New("resend api key is required")
	}
	return NewResendSinkWithSender(resend.NewClient(apiKey).Emails, from, to, logger)
}

// NewResendSinkWithSender creates a sink around an existing sender.
func NewResendSinkWithSender(sender EmailSender, from string, to []string, logger *slog.Logger) (*ResendSink, error) {
	recipients := make([]string, 0, len(to))
	for _, addr := range to {
		if addr = strings.TrimSpace(addr); addr != "" {
			recipients = append(recipients, addr)
		}
	}

	if from == "" {
		return nil, errors.New("notification sender address is required")
	}
	if len(recipients) == 0 {
		return nil, errors.New("at least one notification recipient is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &ResendSink{
		sender: sender,
		from:   from,
		to:     recipients,
		logger: logger,
	}, nil
}

func (s *ResendSink) Notify(ctx context.Context, notification domain.Notification) error {
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      s.to,
		Subject: notification.Subject,
		Html:    notification.BodyHTML,
		Headers: map[string]string{
			"X-Entity-Ref-ID": uuid.NewString(),
		},
		Tags: []resend.Tag{
			{Name: "category", Value: "tax_calculation_failed"},
		},
	}

	sent, err := s.sender.Send(params)
	if err != nil {
		return fmt.Errorf("%w: send email for order %s: %w", ports.ErrNotificationFailed, notification.OrderID, err)
	}

	s.logger.InfoContext(ctx, "failure notification sent",
		"order_id", notification.OrderID,
		"email_id", sent.Id,
	)
	return nil
}

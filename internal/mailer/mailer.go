package mailer

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/impenglish/backend/internal/logger"
)

// Mailer delivers transactional email. The OTP service depends on this
// interface only, delivery details stay here.
type Mailer interface {
	Send(ctx context.Context, to string, subject string, htmlBody string) error
}

// SendGridMailer delivers mail through the SendGrid v3 API
type SendGridMailer struct {
	client    *sendgrid.Client
	fromName  string
	fromEmail string
}

func NewSendGrid(apiKey string, fromName string, fromEmail string) *SendGridMailer {
	return &SendGridMailer{
		client:    sendgrid.NewSendClient(apiKey),
		fromName:  fromName,
		fromEmail: fromEmail,
	}
}

func (m *SendGridMailer) Send(ctx context.Context, to string, subject string, htmlBody string) error {
	message := mail.NewSingleEmail(
		mail.NewEmail(m.fromName, m.fromEmail),
		subject,
		mail.NewEmail("", to),
		"",
		htmlBody,
	)

	resp, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("error while sending mail. Err: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid rejected mail with status %d: %s", resp.StatusCode, resp.Body)
	}

	return nil
}

// LogMailer writes mail to the log instead of delivering it. Used in dev
// environments without a SendGrid key and in tests.
type LogMailer struct {
	Logger logger.Logger
}

func (m LogMailer) Send(ctx context.Context, to string, subject string, htmlBody string) error {
	m.Logger.Info("mail delivery skipped", "to", to, "subject", subject)
	return nil
}

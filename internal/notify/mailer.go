// Package notify sends transactional email.
package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

const senderName = "Trading pour les nuls"

// ErrNotConfigured is returned by mailers without credentials.
var ErrNotConfigured = errors.New("mailer not configured")

// Welcome is the content of the account-created email.
type Welcome struct {
	To           string
	TempPassword string
	Plan         string
	LoginURL     string
}

// Mailer sends account emails.
type Mailer interface {
	SendWelcome(ctx context.Context, msg Welcome) error
}

type sendFunc func(ctx context.Context, m *mail.SGMailV3) (int, string, error)

// SendGridMailer delivers email through SendGrid.
type SendGridMailer struct {
	from *mail.Email
	send sendFunc
}

// NewSendGrid creates a SendGridMailer.
func NewSendGrid(apiKey, from string) (*SendGridMailer, error) {
	if apiKey == "" || from == "" {
		return nil, ErrNotConfigured
	}
	client := sendgrid.NewSendClient(apiKey)
	return &SendGridMailer{
		from: mail.NewEmail(senderName, from),
		send: func(ctx context.Context, m *mail.SGMailV3) (int, string, error) {
			resp, err := client.SendWithContext(ctx, m)
			if err != nil {
				return 0, "", err
			}
			return resp.StatusCode, resp.Body, nil
		},
	}, nil
}

// SendWelcome emails the temporary password for a newly provisioned account.
func (s *SendGridMailer) SendWelcome(ctx context.Context, msg Welcome) error {
	status, body, err := s.send(ctx, welcomeMessage(s.from, msg))
	if err != nil {
		return fmt.Errorf("send welcome email: %w", err)
	}
	if status >= 300 {
		return fmt.Errorf("send welcome email: sendgrid returned %d: %s", status, body)
	}
	return nil
}

func welcomeMessage(from *mail.Email, msg Welcome) *mail.SGMailV3 {
	subject := "Votre compte est prêt"
	to := mail.NewEmail("", msg.To)

	plain := fmt.Sprintf(
		"Merci pour votre abonnement %s.\n\nIdentifiant : %s\nMot de passe temporaire : %s\n\nConnectez-vous sur %s et choisissez un nouveau mot de passe.",
		msg.Plan, msg.To, msg.TempPassword, msg.LoginURL,
	)
	htmlBody := fmt.Sprintf(
		"<p>Merci pour votre abonnement <strong>%s</strong>.</p><p>Identifiant : %s<br>Mot de passe temporaire : <code>%s</code></p><p><a href=\"%s\">Connectez-vous</a> et choisissez un nouveau mot de passe.</p>",
		html.EscapeString(msg.Plan), html.EscapeString(msg.To), html.EscapeString(msg.TempPassword), html.EscapeString(msg.LoginURL),
	)

	return mail.NewSingleEmail(from, subject, to, plain, htmlBody)
}

// LogMailer records that an email would have been sent. The password is never logged.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer creates a LogMailer.
func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// SendWelcome logs the recipient only.
func (l *LogMailer) SendWelcome(ctx context.Context, msg Welcome) error {
	l.logger.Warn("email delivery not configured, welcome email skipped",
		"to", msg.To,
		"plan", msg.Plan,
	)
	return nil
}

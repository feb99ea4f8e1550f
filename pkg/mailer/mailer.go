package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/coldpipe/coldpipe/pkg/logger"
)

// Account carries the SMTP identity and credentials of one sending mailbox.
type Account struct {
	Email    string
	Host     string
	Port     int
	Username string
	Password string
}

// Mailer submits one rendered message over SMTP. Submission is atomic from
// the caller's point of view: it either succeeds or returns an error.
type Mailer interface {
	Send(ctx context.Context, account Account, to, subject, html string) error
}

// SMTPMailer implements Mailer against a per-account SMTP server.
type SMTPMailer struct {
	startTLS bool
}

// NewSMTPMailer creates an SMTP mailer. When startTLS is false the
// connection stays plaintext, for local relays on port 25.
func NewSMTPMailer(startTLS bool) *SMTPMailer {
	return &SMTPMailer{startTLS: startTLS}
}

func buildMessage(account Account, to, subject, html string) (*mail.Msg, error) {
	msg := mail.NewMsg(mail.WithNoDefaultUserAgent())

	if err := msg.From(account.Email); err != nil {
		return nil, fmt.Errorf("failed to set email from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("failed to set email recipient: %w", err)
	}

	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, html)
	msg.AddAlternativeString(mail.TypeTextPlain, "")

	return msg, nil
}

func (m *SMTPMailer) createClient(account Account) (*mail.Client, error) {
	tlsPolicy := mail.NoTLS
	if m.startTLS {
		tlsPolicy = mail.TLSOpportunistic
	}

	clientOptions := []mail.Option{
		mail.WithPort(account.Port),
		mail.WithTLSPolicy(tlsPolicy),
		mail.WithTimeout(10 * time.Second),
	}

	// Only add authentication if username and password are provided.
	// This allows for unauthenticated SMTP servers (e.g., local relays, port 25)
	if account.Username != "" && account.Password != "" {
		clientOptions = append(clientOptions,
			mail.WithUsername(account.Username),
			mail.WithPassword(account.Password),
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
		)
	}

	client, err := mail.NewClient(account.Host, clientOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to create SMTP client: %w", err)
	}

	return client, nil
}

// Send submits the message to the account's SMTP server.
func (m *SMTPMailer) Send(ctx context.Context, account Account, to, subject, html string) error {
	msg, err := buildMessage(account, to, subject, html)
	if err != nil {
		return err
	}

	client, err := m.createClient(account)
	if err != nil {
		return err
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}

	return nil
}

// ConsoleMailer is a development implementation that just logs emails.
type ConsoleMailer struct {
	logger logger.Logger
}

// NewConsoleMailer creates a console mailer for development.
func NewConsoleMailer(log logger.Logger) *ConsoleMailer {
	return &ConsoleMailer{logger: log}
}

// Send logs the message details instead of submitting it.
func (m *ConsoleMailer) Send(_ context.Context, account Account, to, subject, _ string) error {
	m.logger.WithFields(map[string]interface{}{
		"from":    account.Email,
		"to":      to,
		"subject": subject,
	}).Info("console mailer: email not sent")
	return nil
}

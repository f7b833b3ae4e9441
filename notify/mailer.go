package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"
)

// Mailer delivers a single email. Implementations are best-effort; the worker
// retries failures and never lets them reach auction state.
type Mailer interface {
	Send(ctx context.Context, email Email) error
}

// SMTPMailer delivers mail through a plain SMTP relay.
type SMTPMailer struct {
	addr string
	from string
}

// NewSMTPMailer builds a mailer for the given relay address (host:port).
func NewSMTPMailer(addr, from string) *SMTPMailer {
	return &SMTPMailer{addr: addr, from: from}
}

func (m *SMTPMailer) Send(ctx context.Context, email Email) error {
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.from)
	fmt.Fprintf(&msg, "To: %s\r\n", email.Recipient)
	fmt.Fprintf(&msg, "Subject: %s\r\n", email.Subject)
	msg.WriteString("\r\n")
	msg.WriteString(email.Body)

	if err := smtp.SendMail(m.addr, nil, m.from, []string{email.Recipient}, []byte(msg.String())); err != nil {
		return fmt.Errorf("notify: smtp send to %s: %w", email.Recipient, err)
	}
	return nil
}

// LogMailer writes deliveries to the log instead of a relay. Used in
// development and tests when no SMTP address is configured.
type LogMailer struct {
	log *zap.Logger
}

func NewLogMailer(log *zap.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) Send(_ context.Context, email Email) error {
	m.log.Info("mail delivered to log sink",
		zap.String("recipient", email.Recipient),
		zap.String("subject", email.Subject),
	)
	return nil
}

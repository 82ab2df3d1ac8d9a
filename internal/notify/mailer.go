// Package notify delivers customer emails over SMTP.
package notify

import (
	"context"
	"crypto/tls"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/spec-kit/fieldconnect/internal/config"
)

// Message is one outgoing email.
type Message struct {
	To       string
	Subject  string
	HTMLBody string
}

// Mailer sends emails.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// NewMailer returns an SMTP mailer, or a logging no-op when SMTP is not configured.
func NewMailer(cfg config.SMTPConfig, logger *zap.Logger) Mailer {
	if !cfg.Enabled() {
		logger.Info("SMTP_HOST not provided; emails are logged only")
		return &NoopMailer{logger: logger}
	}
	return NewSMTPMailer(cfg)
}

// SMTPMailer sends through a gomail dialer, one connection per message.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPMailer builds the dialer from configuration.
func NewSMTPMailer(cfg config.SMTPConfig) *SMTPMailer {
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	dialer.TLSConfig = &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12}
	return &SMTPMailer{dialer: dialer, from: cfg.From}
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.dialer.DialAndSend(m.compose(msg))
}

func (m *SMTPMailer) compose(msg Message) *gomail.Message {
	out := gomail.NewMessage()
	out.SetHeader("From", m.from)
	out.SetHeader("To", msg.To)
	out.SetHeader("Subject", msg.Subject)
	out.SetBody("text/html", msg.HTMLBody)
	return out
}

// NoopMailer logs messages instead of sending them.
type NoopMailer struct {
	logger *zap.Logger
}

func (m *NoopMailer) Send(_ context.Context, msg Message) error {
	m.logger.Debug("email suppressed", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}

// Package mail sends critical inventory notifications to the configured
// administrators.
package mail

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/jordan-wright/email"
	"github.com/maestranza/maestranza-backend/pkg/config"
	"github.com/maestranza/maestranza-backend/pkg/logger"
)

// Sender delivers a subject and plain text message to the administrators.
type Sender interface {
	Send(ctx context.Context, subject, message string) error
}

// NewSender returns an SMTP mailer when SMTP is enabled and a logging
// sender otherwise.
func NewSender(cfg *config.SMTPConfig, log *logger.Logger) Sender {
	if !cfg.Enabled || len(cfg.Admins) == 0 {
		return &LogSender{logger: log.WithComponent("mail")}
	}
	return NewMailer(cfg, log)
}

// Mailer sends email through an SMTP relay.
type Mailer struct {
	host     string
	user     string
	password string
	from     string
	admins   []string
	addr     string
	logger   *logger.Logger
}

// NewMailer creates an SMTP mailer
func NewMailer(cfg *config.SMTPConfig, log *logger.Logger) *Mailer {
	return &Mailer{
		host:     cfg.Host,
		user:     cfg.User,
		password: cfg.Password,
		from:     cfg.From,
		admins:   cfg.Admins,
		addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		logger:   log.WithComponent("mail"),
	}
}

// Send emails every administrator.
func (m *Mailer) Send(ctx context.Context, subject, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e := m.build(subject, message)

	var auth smtp.Auth
	if m.user != "" {
		auth = smtp.PlainAuth("", m.user, m.password, m.host)
	}
	if err := e.Send(m.addr, auth); err != nil {
		return fmt.Errorf("mailer: send %q: %w", subject, err)
	}

	m.logger.Info().Str("subject", subject).Int("recipients", len(m.admins)).Msg("critical email sent")
	return nil
}

func (m *Mailer) build(subject, message string) *email.Email {
	e := email.NewEmail()
	e.From = m.from
	e.To = append([]string(nil), m.admins...)
	e.Subject = "[Maestranza] " + subject
	e.Text = []byte(message)
	return e
}

// LogSender writes messages to the log instead of sending them.
type LogSender struct {
	logger *logger.Logger
}

// NewLogSender creates a LogSender
func NewLogSender(log *logger.Logger) *LogSender {
	return &LogSender{logger: log}
}

// Send logs the message at warn level.
func (s *LogSender) Send(_ context.Context, subject, message string) error {
	s.logger.Warn().Str("subject", subject).Str("message", message).Msg("critical notification (smtp disabled)")
	return nil
}

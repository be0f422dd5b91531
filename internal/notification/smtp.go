package notification

import (
	"context"
	"fmt"
	"lending-engine/internal/config"
	"log/slog"
	"net/smtp"

	"github.com/jordan-wright/email"
)

type SMTPSender struct {
	cfg    config.SMTPConfig
	send   func(e *email.Email, addr string, auth smtp.Auth) error
	logger *slog.Logger
}

func NewSMTPSender(cfg config.SMTPConfig, logger *slog.Logger) *SMTPSender {
	return &SMTPSender{
		cfg: cfg,
		send: func(e *email.Email, addr string, auth smtp.Auth) error {
			return e.Send(addr, auth)
		},
		logger: logger.With("component", "SMTPSender"),
	}
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	e := email.NewEmail()
	e.From = s.cfg.From
	e.To = []string{to}
	e.Subject = subject
	e.Text = []byte(body)

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	if err := s.send(e, addr, auth); err != nil {
		s.logger.ErrorContext(ctx, "Failed to send email", "to", to, slog.Any("error", err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.InfoContext(ctx, "Email sent", "to", to, "subject", subject)
	return nil
}

func (s *SMTPSender) Channel() string { return "smtp" }

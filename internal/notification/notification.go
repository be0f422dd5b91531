// Package notification delivers best-effort messages to customers.
package notification

import (
	"context"
	"lending-engine/internal/infrastructure/monitoring"
	"log/slog"
)

type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Notify sends through sender and only logs failures.
func Notify(ctx context.Context, sender Sender, logger *slog.Logger, to, subject, body string) {
	if sender == nil {
		return
	}
	if to == "" {
		logger.WarnContext(ctx, "Skipping notification without recipient", "subject", subject)
		return
	}
	if err := sender.Send(ctx, to, subject, body); err != nil {
		logger.ErrorContext(ctx, "Failed to send notification", "to", to, "subject", subject, slog.Any("error", err))
		monitoring.RecordNotification(channelOf(sender), "failure")
		return
	}
	monitoring.RecordNotification(channelOf(sender), "success")
}

type channelNamer interface {
	Channel() string
}

func channelOf(sender Sender) string {
	if n, ok := sender.(channelNamer); ok {
		return n.Channel()
	}
	return "unknown"
}

// LogSender writes notifications to the log instead of delivering them.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger.With("component", "LogSender")}
}

func (s *LogSender) Send(ctx context.Context, to, subject, body string) error {
	s.logger.InfoContext(ctx, "Notification", "to", to, "subject", subject, "body", body)
	return nil
}

func (s *LogSender) Channel() string { return "log" }

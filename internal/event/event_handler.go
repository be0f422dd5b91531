package event

import (
	"context"
	"encoding/json"
	"lending-engine/internal/infrastructure/monitoring"
	"lending-engine/internal/notification"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// NotificationEventHandler delivers queued notifications through a concrete
// sender such as SMTP.
type NotificationEventHandler struct {
	sender notification.Sender
	logger *slog.Logger
}

func NewNotificationEventHandler(sender notification.Sender, logger *slog.Logger) *NotificationEventHandler {
	return &NotificationEventHandler{
		sender: sender,
		logger: logger.With("component", "NotificationEventHandler"),
	}
}

func (h *NotificationEventHandler) HandleDelivery(ctx context.Context, d amqp.Delivery) {
	logCtx := h.logger.With(slog.Uint64("deliveryTag", d.DeliveryTag), slog.String("routingKey", d.RoutingKey))
	processed := false

	defer func() {
		if !processed {
			logCtx.WarnContext(ctx, "Message processing ended without explicit Ack/Nack")
			_ = d.Nack(false, false)
		}
	}()

	if d.RoutingKey != routingKeyNotificationRequested {
		logCtx.WarnContext(ctx, "Received message with unknown routing key. Discarding.")
		monitoring.RecordEventConsumed(d.RoutingKey, "rejected")
		_ = d.Reject(false)
		processed = true
		return
	}

	var event NotificationRequestedEvent
	if err := json.Unmarshal(d.Body, &event); err != nil {
		logCtx.ErrorContext(ctx, "Failed to unmarshal NotificationRequestedEvent", "error", err, "body", string(d.Body))
		monitoring.RecordEventConsumed(d.RoutingKey, "malformed")
		_ = d.Nack(false, false)
		processed = true
		return
	}

	logCtx = logCtx.With(slog.String("to", event.Payload.To), slog.String("subject", event.Payload.Subject))
	logCtx.InfoContext(ctx, "Delivering queued notification")

	if err := h.sender.Send(ctx, event.Payload.To, event.Payload.Subject, event.Payload.Body); err != nil {
		logCtx.ErrorContext(ctx, "Failed to deliver notification", "error", err)
		monitoring.RecordEventConsumed(d.RoutingKey, "failed")
		// Redelivered once; a second failure is dropped.
		_ = d.Nack(false, !d.Redelivered)
		processed = true
		return
	}
	monitoring.RecordEventConsumed(d.RoutingKey, "success")

	if err := d.Ack(false); err != nil {
		logCtx.ErrorContext(ctx, "Failed to acknowledge message after successful processing", "error", err)
	} else {
		logCtx.InfoContext(ctx, "Successfully processed and acknowledged message")
	}
	processed = true
}

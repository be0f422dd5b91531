package event

import "time"

const (
	routingKeyNotificationRequested = "notification.requested"
	publisherAppID                  = "lending-engine"
)

// NotificationRequestedEvent asks the notifier to deliver a message.
type NotificationRequestedEvent struct {
	Timestamp time.Time                  `json:"timestamp"`
	Payload   NotificationRequestPayload `json:"payload"`
}

type NotificationRequestPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

package event

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var logger = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeChannel struct {
	mu        sync.Mutex
	published []amqp.Publishing
	keys      []string
	err       error
	closed    bool
}

func (c *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.keys = append(c.keys, key)
	c.published = append(c.published, msg)
	return nil
}

func (c *fakeChannel) Close() error {
	c.closed = true
	return nil
}

type MockAcknowledger struct {
	mock.Mock
}

func (m *MockAcknowledger) Ack(tag uint64, multiple bool) error {
	return m.Called(tag, multiple).Error(0)
}

func (m *MockAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	return m.Called(tag, multiple, requeue).Error(0)
}

func (m *MockAcknowledger) Reject(tag uint64, requeue bool) error {
	return m.Called(tag, requeue).Error(0)
}

type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, to, subject, body string) error {
	return m.Called(ctx, to, subject, body).Error(0)
}

func TestNotificationSender_PublishesRequest(t *testing.T) {
	ch := &fakeChannel{}
	publisher := newPublisher(func() (publishChannel, error) { return ch, nil }, "lending-engine", logger)
	sender := NewNotificationSender(publisher)

	err := sender.Send(context.Background(), "alice@example.com", "Loan Application Approved", "Dear Alice")

	require.NoError(t, err)
	require.Len(t, ch.published, 1)
	assert.Equal(t, routingKeyNotificationRequested, ch.keys[0])
	assert.Equal(t, "application/json", ch.published[0].ContentType)
	assert.Equal(t, amqp.Persistent, ch.published[0].DeliveryMode)
	assert.Equal(t, publisherAppID, ch.published[0].AppId)
	assert.True(t, ch.closed)

	var event NotificationRequestedEvent
	require.NoError(t, json.Unmarshal(ch.published[0].Body, &event))
	assert.Equal(t, "alice@example.com", event.Payload.To)
	assert.Equal(t, "Loan Application Approved", event.Payload.Subject)
	assert.False(t, event.Timestamp.IsZero())
	assert.Equal(t, "rabbitmq", sender.Channel())
}

func TestRabbitMQEventPublisher_Errors(t *testing.T) {
	t.Run("channel cannot be opened", func(t *testing.T) {
		publisher := newPublisher(func() (publishChannel, error) { return nil, errors.New("connection closed") }, "x", logger)

		err := publisher.PublishNotificationRequested(context.Background(), NotificationRequestedEvent{})

		assert.ErrorContains(t, err, "failed to open channel")
	})

	t.Run("broker refuses the publish", func(t *testing.T) {
		ch := &fakeChannel{err: errors.New("channel/connection is not open")}
		publisher := newPublisher(func() (publishChannel, error) { return ch, nil }, "x", logger)

		err := publisher.PublishNotificationRequested(context.Background(), NotificationRequestedEvent{})

		assert.ErrorContains(t, err, "failed to publish message")
		assert.True(t, ch.closed)
	})
}

func delivery(ack amqp.Acknowledger, key string, body []byte) amqp.Delivery {
	return amqp.Delivery{Acknowledger: ack, DeliveryTag: 7, RoutingKey: key, Body: body}
}

func TestNotificationEventHandler_HandleDelivery(t *testing.T) {
	ctx := context.Background()
	body, err := json.Marshal(NotificationRequestedEvent{
		Timestamp: time.Now(),
		Payload:   NotificationRequestPayload{To: "bob@example.com", Subject: "Reminder", Body: "Pay up"},
	})
	require.NoError(t, err)

	t.Run("delivers and acks", func(t *testing.T) {
		ack := new(MockAcknowledger)
		sender := new(MockSender)
		sender.On("Send", mock.Anything, "bob@example.com", "Reminder", "Pay up").Return(nil)
		ack.On("Ack", uint64(7), false).Return(nil)

		NewNotificationEventHandler(sender, logger).HandleDelivery(ctx, delivery(ack, routingKeyNotificationRequested, body))

		sender.AssertExpectations(t)
		ack.AssertExpectations(t)
	})

	t.Run("send failure is requeued once", func(t *testing.T) {
		ack := new(MockAcknowledger)
		sender := new(MockSender)
		sender.On("Send", mock.Anything, "bob@example.com", "Reminder", "Pay up").Return(errors.New("smtp down"))
		ack.On("Nack", uint64(7), false, true).Return(nil)

		NewNotificationEventHandler(sender, logger).HandleDelivery(ctx, delivery(ack, routingKeyNotificationRequested, body))

		ack.AssertExpectations(t)
	})

	t.Run("redelivered failure is dropped", func(t *testing.T) {
		ack := new(MockAcknowledger)
		sender := new(MockSender)
		sender.On("Send", mock.Anything, "bob@example.com", "Reminder", "Pay up").Return(errors.New("smtp down"))
		ack.On("Nack", uint64(7), false, false).Return(nil)
		d := delivery(ack, routingKeyNotificationRequested, body)
		d.Redelivered = true

		NewNotificationEventHandler(sender, logger).HandleDelivery(ctx, d)

		ack.AssertExpectations(t)
	})

	t.Run("malformed body is nacked without requeue", func(t *testing.T) {
		ack := new(MockAcknowledger)
		sender := new(MockSender)
		ack.On("Nack", uint64(7), false, false).Return(nil)

		NewNotificationEventHandler(sender, logger).HandleDelivery(ctx, delivery(ack, routingKeyNotificationRequested, []byte("{")))

		ack.AssertExpectations(t)
		sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown routing key is rejected", func(t *testing.T) {
		ack := new(MockAcknowledger)
		sender := new(MockSender)
		ack.On("Reject", uint64(7), false).Return(nil)

		NewNotificationEventHandler(sender, logger).HandleDelivery(ctx, delivery(ack, "customer.created", body))

		ack.AssertExpectations(t)
	})
}

func TestConsume(t *testing.T) {
	t.Run("dispatches until the channel closes", func(t *testing.T) {
		deliveries := make(chan amqp.Delivery, 2)
		deliveries <- amqp.Delivery{DeliveryTag: 1}
		deliveries <- amqp.Delivery{DeliveryTag: 2}
		close(deliveries)

		var tags []uint64
		consume(context.Background(), deliveries, func(ctx context.Context, d amqp.Delivery) {
			tags = append(tags, d.DeliveryTag)
		}, logger)

		assert.Equal(t, []uint64{1, 2}, tags)
	})

	t.Run("stops when the context is cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			consume(ctx, make(chan amqp.Delivery), func(context.Context, amqp.Delivery) {}, logger)
			close(done)
		}()

		cancel()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("consume did not return after cancel")
		}
	})
}

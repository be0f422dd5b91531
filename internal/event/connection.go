package event

import (
	"fmt"
	"lending-engine/internal/config"
	"log/slog"
	"net/url"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const connectAttempts = 5

// RabbitMQURI builds the AMQP URI from cfg. Credentials must be given
// together or not at all.
func RabbitMQURI(cfg config.RabbitMQConfig) (string, error) {
	if cfg.Host == "" {
		return "", fmt.Errorf("RabbitMQ host is not configured")
	}
	if (cfg.Username == "") != (cfg.Password == "") {
		return "", fmt.Errorf("RabbitMQ username and password must be provided together")
	}

	host := cfg.Host
	if cfg.Port != 0 {
		host = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	}
	u := url.URL{Scheme: "amqp", Host: host, Path: "/"}
	if cfg.Username != "" {
		u.User = url.UserPassword(cfg.Username, cfg.Password)
	}
	return u.String(), nil
}

// Connect dials RabbitMQ with a linear backoff and logs when the broker
// blocks or closes the connection.
func Connect(cfg config.RabbitMQConfig, logger *slog.Logger) (*amqp.Connection, error) {
	uri, err := RabbitMQURI(cfg)
	if err != nil {
		return nil, err
	}

	var conn *amqp.Connection
	for i := 1; i <= connectAttempts; i++ {
		conn, err = amqp.Dial(uri)
		if err == nil {
			logger.Info("Successfully connected to RabbitMQ", "host", cfg.Host)
			go watchConnection(conn, logger)
			return conn, nil
		}
		logger.Warn("Failed to connect to RabbitMQ, retrying...",
			slog.Int("attempt", i),
			slog.Int("max_attempts", connectAttempts),
			slog.Any("error", err),
		)
		if i < connectAttempts {
			time.Sleep(time.Duration(i*2) * time.Second)
		}
	}
	return nil, fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", connectAttempts, err)
}

func watchConnection(conn *amqp.Connection, logger *slog.Logger) {
	blockChan := conn.NotifyBlocked(make(chan amqp.Blocking, 1))
	closeChan := conn.NotifyClose(make(chan *amqp.Error, 1))

	select {
	case b := <-blockChan:
		logger.Warn("RabbitMQ Connection Blocked", "reason", b.Reason)
	case e := <-closeChan:
		if e != nil {
			logger.Error("RabbitMQ Connection Closed", slog.Any("error", e))
		}
	}
}

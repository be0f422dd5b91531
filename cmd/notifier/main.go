package main

import (
	"context"
	"errors"
	"fmt"
	"lending-engine/internal/config"
	"lending-engine/internal/event"
	"lending-engine/internal/infrastructure/logging"
	"lending-engine/internal/notification"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	amqp "github.com/rabbitmq/amqp091-go"
)

// The notifier drains notification events published by the server and
// delivers them over SMTP.
func main() {
	cfg, logger := initializeConfigAndLogger()
	ctx, cancel := setupSignalHandling()
	defer cancel()

	rabbitConn := setupRabbitMQ(cfg, logger)
	defer closeRabbitMQ(rabbitConn, logger)

	sender := notification.NewSMTPSender(cfg.SMTP, logger)
	eventHandler := event.NewNotificationEventHandler(sender, logger)

	server := newMetricsServer(cfg.Metrics, logger)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Failed to start HTTP server", slog.Any("error", err))
			cancel()
		}
	}()

	consumer := setupConsumer(rabbitConn, cfg, eventHandler, logger)
	go startConsumer(ctx, consumer, logger)

	waitForShutdownSignal(ctx, consumer, logger)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	logger.Info("Shutting down HTTP server...")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error shutting down HTTP server", slog.Any("error", err))
	}
	logger.Info("HTTP server shut down gracefully.")
}

func initializeConfigAndLogger() (*config.Config, *slog.Logger) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := logging.NewLogger(cfg.Logger)
	logger.Info("Configuration loaded successfully")
	return cfg, logger
}

func setupSignalHandling() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()
	return ctx, cancel
}

func newMetricsServer(cfg config.MetricsConfig, logger *slog.Logger) *http.Server {
	path := cfg.Path
	if path == "" {
		path = "/metrics"
	}
	port := cfg.Port
	if port == 0 {
		port = 9090
	}
	logger.Info("Setting up Prometheus metrics endpoint", "path", path, "port", port)
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.Handler())
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func setupRabbitMQ(cfg *config.Config, logger *slog.Logger) *amqp.Connection {
	rabbitConn, err := event.Connect(cfg.RabbitMQ, logger)
	if err != nil {
		logger.Error("Failed to connect to RabbitMQ", slog.Any("error", err))
		os.Exit(1)
	}
	return rabbitConn
}

func closeRabbitMQ(rabbitConn *amqp.Connection, logger *slog.Logger) {
	if rabbitConn.IsClosed() {
		return
	}
	logger.Info("Closing RabbitMQ connection...")
	if err := rabbitConn.Close(); err != nil {
		logger.Error("Error closing RabbitMQ connection", slog.Any("error", err))
	}
}

func setupConsumer(rabbitConn *amqp.Connection, cfg *config.Config, eventHandler *event.NotificationEventHandler, logger *slog.Logger) *event.Consumer {
	consumer, err := event.NewConsumer(
		rabbitConn,
		cfg.RabbitMQ.ExchangeName,
		cfg.RabbitMQ.QueueName,
		cfg.RabbitMQ.ConsumerTag,
		eventHandler.HandleDelivery,
		logger,
	)
	if err != nil {
		logger.Error("Failed to create RabbitMQ consumer", slog.Any("error", err))
		os.Exit(1)
	}
	return consumer
}

func startConsumer(ctx context.Context, consumer *event.Consumer, logger *slog.Logger) {
	if err := consumer.Start(ctx); err != nil {
		logger.Error("Failed to start RabbitMQ consumer", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("Consumer started successfully. Waiting for events or shutdown signal...")
}

func waitForShutdownSignal(ctx context.Context, consumer *event.Consumer, logger *slog.Logger) {
	<-ctx.Done()
	logger.Info("Shutdown signal received. Initiating graceful shutdown...")
	consumer.Stop()
	logger.Info("Notifier shut down gracefully.")
}

package main

import (
	"context"
	"errors"
	"fmt"
	"lending-engine/internal/api"
	"lending-engine/internal/api/middleware"
	"lending-engine/internal/bank"
	"lending-engine/internal/batch"
	"lending-engine/internal/config"
	"lending-engine/internal/domain/creditscore"
	"lending-engine/internal/domain/ledger"
	"lending-engine/internal/domain/loan"
	"lending-engine/internal/domain/uow"
	"lending-engine/internal/domain/verification"
	"lending-engine/internal/event"
	"lending-engine/internal/infrastructure/cache"
	"lending-engine/internal/infrastructure/database/memory"
	"lending-engine/internal/infrastructure/database/postgres"
	"lending-engine/internal/infrastructure/logging"
	"lending-engine/internal/infrastructure/monitoring"
	"lending-engine/internal/notification"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// @title Lending Engine API
// @version 1.0
// @description Bank ledger and loan management API.

// @contact.name API Support

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, logger := initializeApp()

	terms, err := parseLendingConfig(cfg.Lending)
	if err != nil {
		logger.Error("Invalid lending configuration", slog.Any("error", err))
		os.Exit(1)
	}

	store, err := initializeStorage(context.Background(), cfg, terms.initialFund, logger)
	if err != nil {
		logger.Error("Failed to initialize storage", slog.Any("error", err))
		os.Exit(1)
	}
	defer store.close()

	notifier, rabbitConn := initializeNotifier(cfg, logger)
	services := initializeServices(cfg, store, notifier, terms, logger)

	redisClient := initializeRedisClient(cfg, logger)
	opts := initializeRouterOptions(cfg, redisClient, logger)

	reminderJob := batch.NewOverdueReminderJob(services.Loans, notifier, batch.DefaultReminderHorizon, logger)
	cronScheduler := startBatchJobs(cfg, reminderJob, logger)
	router := api.SetupRouter(services, opts, cfg, logger)

	srv, serverErrors, shutdownChan := startServer(cfg, router, logger)
	handleShutdown(srv, cronScheduler, rabbitConn, redisClient, shutdownChan, serverErrors, logger)
}

func initializeApp() (*config.Config, *slog.Logger) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg.Logger)
	slog.SetDefault(logger)
	logger.Info("Application starting...", "config_source", viper.ConfigFileUsed())

	return cfg, logger
}

type lendingTerms struct {
	loan         loan.Terms
	microDeposit decimal.Decimal
	initialFund  decimal.Decimal
}

func parseLendingConfig(cfg config.LendingConfig) (lendingTerms, error) {
	var terms lendingTerms
	rate, err := decimal.NewFromString(cfg.AnnualInterestRate)
	if err != nil {
		return terms, fmt.Errorf("lending.annualInterestRate %q: %w", cfg.AnnualInterestRate, err)
	}
	micro, err := decimal.NewFromString(cfg.MicroDepositAmount)
	if err != nil || !micro.IsPositive() {
		return terms, fmt.Errorf("lending.microDepositAmount %q must be a positive decimal", cfg.MicroDepositAmount)
	}
	fund, err := decimal.NewFromString(cfg.InitialFund)
	if err != nil || fund.IsNegative() {
		return terms, fmt.Errorf("lending.initialFund %q must be a non-negative decimal", cfg.InitialFund)
	}
	terms.loan = loan.Terms{AnnualInterestRate: rate, MinCreditScore: cfg.MinCreditScore}
	terms.microDeposit = micro
	terms.initialFund = fund
	return terms, nil
}

// storage bundles the repositories of the configured driver.
type storage struct {
	ledger       ledger.Repository
	verification verification.Repository
	loans        loan.Repository
	scores       creditscore.Repository
	tx           uow.TxManager
	close        func()
}

func initializeStorage(ctx context.Context, cfg *config.Config, initialFund decimal.Decimal, logger *slog.Logger) (*storage, error) {
	var s *storage
	switch cfg.Database.Driver {
	case "memory":
		logger.Warn("Using in-memory storage; data is lost on restart.")
		store := memory.NewStore()
		s = &storage{
			ledger:       store.Ledger(),
			verification: store.Verification(),
			loans:        store.Loans(),
			scores:       store.CreditScores(),
			tx:           store,
			close:        func() {},
		}
	case "postgres", "":
		logger.Info("Initializing database connection pool...")
		pool, err := postgres.NewConnectionPool(ctx, cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, pool, logger); err != nil {
			pool.Close()
			return nil, err
		}
		s = &storage{
			ledger:       postgres.NewLedgerRepository(pool, logger),
			verification: postgres.NewVerificationRepository(pool, logger),
			loans:        postgres.NewLoanRepository(pool, logger),
			scores:       postgres.NewCreditScoreRepository(pool, logger),
			tx:           postgres.NewTxManager(pool, logger),
			close: func() {
				logger.Info("Closing database connection pool...")
				pool.Close()
			},
		}
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}

	fund, err := s.ledger.EnsureFund(ctx, initialFund)
	if err != nil {
		s.close()
		return nil, fmt.Errorf("failed to ensure loan fund: %w", err)
	}
	monitoring.SetFundBalance(fund.Balance.InexactFloat64())
	logger.Info("Loan fund ready", "balance", fund.Balance.StringFixed(2))
	return s, nil
}

// initializeNotifier picks the sender named by notification.driver. A broker
// that cannot be reached falls back to logging.
func initializeNotifier(cfg *config.Config, logger *slog.Logger) (notification.Sender, *amqp.Connection) {
	switch cfg.Notification.Driver {
	case "smtp":
		logger.Info("Notifications delivered over SMTP", "host", cfg.SMTP.Host)
		return notification.NewSMTPSender(cfg.SMTP, logger), nil
	case "rabbitmq":
		conn, err := event.Connect(cfg.RabbitMQ, logger)
		if err != nil {
			logger.Error("RabbitMQ unavailable, falling back to log notifications", slog.Any("error", err))
			return notification.NewLogSender(logger), nil
		}
		publisher, err := event.NewRabbitMQEventPublisher(conn, cfg.RabbitMQ.ExchangeName, logger)
		if err != nil {
			logger.Error("Failed to create event publisher, falling back to log notifications", slog.Any("error", err))
			_ = conn.Close()
			return notification.NewLogSender(logger), nil
		}
		logger.Info("Notifications published to RabbitMQ", "exchange", cfg.RabbitMQ.ExchangeName)
		return event.NewNotificationSender(publisher), conn
	default:
		return notification.NewLogSender(logger), nil
	}
}

func initializeServices(cfg *config.Config, s *storage, notifier notification.Sender, terms lendingTerms, logger *slog.Logger) api.Services {
	logger.Info("Initializing application components...")
	ledgerService := ledger.NewService(s.ledger, s.tx, notifier, terms.microDeposit, logger)

	var bankClient bank.Client
	if cfg.Bank.Mode == "http" {
		logger.Info("Bank calls go over HTTP", "baseURL", cfg.Bank.BaseURL)
		bankClient = bank.NewHTTPClient(cfg.Bank, logger)
	} else {
		bankClient = bank.NewLocalClient(ledgerService)
	}

	scoreService := creditscore.NewService(s.scores, logger)
	verificationService := verification.NewService(s.verification, s.tx, bankClient, scoreService, notifier, logger)
	loanService := loan.NewService(s.loans, s.tx, bankClient, verificationService, scoreService, notifier, terms.loan, logger)

	return api.Services{
		Ledger:       ledgerService,
		Verification: verificationService,
		Loans:        loanService,
		CreditScores: scoreService,
	}
}

// initializeRedisClient returns nil when redis is disabled or unreachable;
// rate limiting then stays in process and repayments are not deduplicated.
func initializeRedisClient(cfg *config.Config, logger *slog.Logger) *redis.Client {
	if !cfg.Redis.Enabled {
		logger.Info("Redis disabled.")
		return nil
	}
	logger.Info("Initializing central Redis client...")
	client, err := cache.NewRedisClient(cfg.Redis)
	if err != nil {
		logger.Error("Failed to connect to Redis", slog.Any("error", err), "addr", cfg.Redis.Addr)
		return nil
	}
	logger.Info("Central Redis client connected successfully.", "addr", cfg.Redis.Addr, "db", cfg.Redis.DB)
	return client
}

func initializeRouterOptions(cfg *config.Config, redisClient *redis.Client, logger *slog.Logger) api.Options {
	var opts api.Options
	var counter *cache.WindowCounter
	if redisClient != nil {
		counter = cache.NewWindowCounter(redisClient, "ratelimit", time.Second)
		opts.IdempotencyStore = cache.NewIdempotencyStore(redisClient, cfg.Server.IdempotencyTTL)
	}
	if cfg.Server.RateLimit.Enabled {
		opts.RateLimiter = middleware.NewRateLimiterMiddleware(cfg.Server.RateLimit, counter, logger)
	}
	return opts
}

func startBatchJobs(cfg *config.Config, job *batch.OverdueReminderJob, logger *slog.Logger) *cron.Cron {
	logger.Info("Initializing batch job scheduler...")
	c := cron.New()
	if _, err := batch.Schedule(c, cfg.Batch.OverdueReminderSchedule, cfg.Batch.OverdueReminderTimeout, job, logger); err != nil {
		logger.Error("Failed to schedule overdue reminder job", slog.Any("error", err))
	}
	c.Start()
	logger.Info("Cron scheduler started.")
	return c
}

func startServer(cfg *config.Config, router http.Handler, logger *slog.Logger) (*http.Server, <-chan error, <-chan os.Signal) {
	logger.Info("Setting up HTTP server...", "port", cfg.Server.Port)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info(fmt.Sprintf("Server listening on port %d", cfg.Server.Port))
		err := srv.ListenAndServe()
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "error", err)
			serverErrors <- err
		} else {
			logger.Info("Server closed gracefully.")
			serverErrors <- nil
		}
	}()
	return srv, serverErrors, shutdownChan
}

func handleShutdown(srv *http.Server, cronScheduler *cron.Cron, rabbitConn *amqp.Connection, redisClient *redis.Client,
	shutdownChan <-chan os.Signal, serverErrors <-chan error, logger *slog.Logger) {
	logger.Info("Shutdown handler started. Waiting for signal or server error...")

	triggerReason := waitForShutdownTrigger(shutdownChan, serverErrors, logger)

	logger.Info("Starting graceful shutdown...", "trigger", triggerReason)

	stopCronScheduler(cronScheduler, logger)
	shutdownHTTPServer(srv, serverErrors, logger)
	closeRabbitMQConnection(rabbitConn, logger)
	closeRedisClient(redisClient, logger)

	logger.Info("Application shutdown process complete.")
}

func waitForShutdownTrigger(shutdownChan <-chan os.Signal, serverErrors <-chan error, logger *slog.Logger) string {
	select {
	case sig := <-shutdownChan:
		logger.Info("Shutdown signal received.", "signal", sig.String())
		return "signal: " + sig.String()
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server exited unexpectedly before signal", "error", err)
			os.Exit(1)
		}
		logger.Info("Server goroutine finished before signal.", "error", err)
		return "server exited"
	}
}

func stopCronScheduler(cronScheduler *cron.Cron, logger *slog.Logger) {
	logger.Info("Stopping cron scheduler...")
	cronCtx := cronScheduler.Stop()
	select {
	case <-cronCtx.Done():
		logger.Info("Cron scheduler stopped gracefully.")
	case <-time.After(15 * time.Second):
		logger.Warn("Cron scheduler shutdown timed out.")
	}
}

func shutdownHTTPServer(srv *http.Server, serverErrors <-chan error, logger *slog.Logger) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	logger.Info("Shutting down HTTP server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server graceful shutdown failed", "error", err)
		if err := srv.Close(); err != nil {
			logger.Error("HTTP server forced close failed", "error", err)
		}
	} else {
		logger.Info("HTTP server gracefully stopped.")
	}

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("Server goroutine exited with unexpected error after shutdown", "error", err)
		}
	case <-time.After(5 * time.Second):
		logger.Warn("Timed out waiting for server goroutine confirmation.")
	}
}

func closeRabbitMQConnection(rabbitConn *amqp.Connection, logger *slog.Logger) {
	if rabbitConn == nil {
		return
	}
	if rabbitConn.IsClosed() {
		logger.Info("RabbitMQ connection already closed, skipping close.")
		return
	}
	logger.Info("Closing RabbitMQ connection...")
	if err := rabbitConn.Close(); err != nil {
		logger.Error("Failed to close RabbitMQ connection gracefully", slog.Any("error", err))
	}
}

func closeRedisClient(redisClient *redis.Client, logger *slog.Logger) {
	if redisClient == nil {
		return
	}
	logger.Info("Closing central Redis client connection...")
	if err := redisClient.Close(); err != nil {
		logger.Error("Failed to close central Redis client connection gracefully", "error", err)
	}
}

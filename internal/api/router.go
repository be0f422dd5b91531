package api

import (
	"lending-engine/internal/api/handler"
	mw "lending-engine/internal/api/middleware"
	"lending-engine/internal/config"
	"lending-engine/internal/domain/creditscore"
	"lending-engine/internal/domain/ledger"
	"lending-engine/internal/domain/loan"
	"lending-engine/internal/domain/verification"
	"lending-engine/internal/identity"
	"lending-engine/internal/infrastructure/cache"
	"log/slog"
	"net/http"
	"time"

	_ "lending-engine/docs"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/traceid"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

// Services are the domain services exposed over HTTP.
type Services struct {
	Ledger       ledger.Service
	Verification verification.Service
	Loans        loan.Service
	CreditScores creditscore.Service
}

// Options carries the optional infrastructure the router wires in. A nil
// RateLimiter or IdempotencyStore disables the matching middleware.
type Options struct {
	RateLimiter      *mw.RateLimiterMiddleware
	IdempotencyStore *cache.IdempotencyStore
}

func SetupRouter(svc Services, opts Options, cfg *config.Config, logger *slog.Logger) *chi.Mux {
	router := chi.NewRouter()

	setupMiddleware(router, opts, logger)
	setupMetricsEndpoint(router, cfg, logger)
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	setupSwaggerEndpoint(router, logger)
	setupAuthRoutes(router, cfg, logger)
	setupBankRoutes(router, svc.Ledger, cfg, logger)
	setupLendingRoutes(router, svc, opts, cfg, logger)

	return router
}

func setupMiddleware(router *chi.Mux, opts Options, logger *slog.Logger) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(traceid.Middleware)
	router.Use(mw.StructuredLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))
	if opts.RateLimiter != nil {
		router.Use(opts.RateLimiter.Middleware)
	}
	router.Use(mw.MetricsMiddleware())
}

func setupMetricsEndpoint(router *chi.Mux, cfg *config.Config, logger *slog.Logger) {
	metricsPath := cfg.Metrics.Path
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	logger.Info("Setting up Prometheus metrics endpoint", "path", metricsPath)
	router.Handle(metricsPath, promhttp.Handler())
}

func setupSwaggerEndpoint(router *chi.Mux, logger *slog.Logger) {
	logger.Info("Setting up Swagger UI endpoint", "path", "/swagger/")
	router.Get("/swagger/*", httpSwagger.WrapHandler)
	router.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/swagger/index.html", http.StatusMovedPermanently)
	})
}

func setupAuthRoutes(router *chi.Mux, cfg *config.Config, logger *slog.Logger) {
	authHandler := handler.NewAuthHandler(cfg.Server.Auth, logger)
	router.Route("/auth", func(r chi.Router) {
		r.Post("/token", authHandler.GenerateBearerToken)
	})
}

// setupBankRoutes mounts the ledger API. Callers authenticate with a token
// signed by the bank service secret; with auth disabled the routes are open.
func setupBankRoutes(router *chi.Mux, svc ledger.Service, cfg *config.Config, logger *slog.Logger) {
	h := handler.NewBankHandler(svc, logger)
	bankAuth := config.AuthConfig{
		Enabled:   cfg.Server.Auth.Enabled,
		JWTSecret: cfg.Bank.JWTSecret,
	}

	router.Route("/api/bank", func(r chi.Router) {
		r.Use(mw.AuthMiddleware(bankAuth, logger))
		if bankAuth.Enabled {
			r.Use(mw.RequireRole(identity.RoleAdmin))
		}

		r.Post("/accounts", h.OpenAccount)
		r.Get("/accounts/{accountNumber}", h.GetAccount)
		r.Post("/accounts/{accountNumber}/deposit", h.Deposit)
		r.Get("/fund", h.GetFund)
		r.Post("/fund/deposit", h.TopUpFund)
		r.Post("/verify", h.SendMicroDeposit)
		r.Post("/verify-deposit", h.ConfirmMicroDeposit)
		r.Post("/loan", h.Disburse)
		r.Post("/repay", h.CollectRepayment)
		r.Get("/loan-summary/{accountNumber}", h.LoanSummary)
	})
}

func setupLendingRoutes(router *chi.Mux, svc Services, opts Options, cfg *config.Config, logger *slog.Logger) {
	lms := handler.NewLMSHandler(svc.Verification, svc.Loans, svc.CreditScores, logger)
	admin := handler.NewAdminHandler(svc.Loans, logger)

	router.Route("/api/lms", func(r chi.Router) {
		r.Use(mw.AuthMiddleware(cfg.Server.Auth, logger))

		r.Post("/account/send", lms.RequestVerification)
		r.Post("/account/confirm-deposit", lms.ConfirmDeposit)
		r.Get("/profile", lms.Profile)
		r.Get("/credit-score", lms.CreditScore)
		r.Post("/loan/apply", lms.Apply)
		r.With(mw.Idempotency(opts.IdempotencyStore, logger)).Post("/loan/repay", lms.Repay)
		r.Get("/applications/{accountNumber}", lms.ApplicationsByAccount)
		r.Get("/active/{accountNumber}", lms.ActiveLoan)
		r.Get("/loans/account/{accountNumber}", lms.LoansByAccount)
		r.Get("/loans/{loanID}/schedule", lms.Schedule)

		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(identity.RoleAdmin))
			r.Post("/loan/approve", admin.Approve)
			r.Post("/loan/reject", admin.Reject)
			r.Get("/loan/pending", admin.Pending)
			r.Get("/loan/admin-summary", admin.LoanSummary)
			r.Get("/admin/dashboard", admin.Dashboard)
			r.Get("/admin/applications", admin.Applications)
		})
	})
}

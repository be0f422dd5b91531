package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type HTTPMetrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

type DBMetrics struct {
	QueryDuration *prometheus.HistogramVec
}

type BusinessMetrics struct {
	RepaymentsTotal     *prometheus.CounterVec
	VerificationsTotal  *prometheus.CounterVec
	LoanDecisionsTotal  *prometheus.CounterVec
	NotificationsTotal  *prometheus.CounterVec
	EventsConsumed      *prometheus.CounterVec
	FundBalance         prometheus.Gauge
	ReminderJobDuration prometheus.Histogram
}

var (
	HTTP = HTTPMetrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lending_engine_http_requests_total",
				Help: "Total number of HTTP requests received.",
			},
			[]string{"method", "path", "code"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lending_engine_http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "code"},
		),
	}

	DB = DBMetrics{
		QueryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lending_engine_db_query_duration_seconds",
				Help:    "Histogram of database query latencies.",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"query_name", "status"},
		),
	}

	Business = BusinessMetrics{
		RepaymentsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lending_engine_repayments_total",
				Help: "Repayments processed, by outcome.",
			},
			[]string{"status"},
		),
		VerificationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lending_engine_verifications_total",
				Help: "Bank account verification attempts, by step and outcome.",
			},
			[]string{"step", "outcome"},
		),
		LoanDecisionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lending_engine_loan_decisions_total",
				Help: "Loan application decisions, by decision.",
			},
			[]string{"decision"},
		),
		NotificationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lending_engine_notifications_total",
				Help: "Notifications dispatched, by channel and status.",
			},
			[]string{"channel", "status"},
		),
		EventsConsumed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lending_engine_events_consumed_total",
				Help: "Broker messages handled by the notifier, by routing key and status.",
			},
			[]string{"routing_key", "status"},
		),
		FundBalance: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "lending_engine_loan_fund_balance",
				Help: "Last observed balance of the pooled loan fund.",
			},
		),
		ReminderJobDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "lending_engine_overdue_reminder_job_duration_seconds",
				Help:    "Duration of the overdue reminder batch job.",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
)

func RecordHTTPRequest(method, path, code string, duration time.Duration) {
	HTTP.RequestsTotal.WithLabelValues(method, path, code).Inc()
	HTTP.RequestDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
}

func RecordDBQuery(queryName, status string, duration time.Duration) {
	DB.QueryDuration.WithLabelValues(queryName, status).Observe(duration.Seconds())
}

func RecordRepayment(status string) {
	Business.RepaymentsTotal.WithLabelValues(status).Inc()
}

func RecordVerification(step, outcome string) {
	Business.VerificationsTotal.WithLabelValues(step, outcome).Inc()
}

func RecordLoanDecision(decision string) {
	Business.LoanDecisionsTotal.WithLabelValues(decision).Inc()
}

func RecordNotification(channel, status string) {
	Business.NotificationsTotal.WithLabelValues(channel, status).Inc()
}

func RecordEventConsumed(routingKey, status string) {
	Business.EventsConsumed.WithLabelValues(routingKey, status).Inc()
}

func SetFundBalance(balance float64) {
	Business.FundBalance.Set(balance)
}

func RecordReminderJob(duration time.Duration) {
	Business.ReminderJobDuration.Observe(duration.Seconds())
}

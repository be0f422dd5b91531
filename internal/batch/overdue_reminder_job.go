package batch

import (
	"context"
	"fmt"
	"lending-engine/internal/domain/loan"
	"lending-engine/internal/infrastructure/monitoring"
	"lending-engine/internal/notification"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultReminderHorizon is how far ahead an upcoming installment is reminded.
const DefaultReminderHorizon = 72 * time.Hour

// DueInstallmentLister is the part of the loan service the reminder job reads.
type DueInstallmentLister interface {
	DueInstallments(ctx context.Context, asOf time.Time, horizon time.Duration) ([]loan.DueInstallment, error)
}

// OverdueReminderJob mails every borrower whose next installment is overdue
// or due within the horizon.
type OverdueReminderJob struct {
	loans    DueInstallmentLister
	notifier notification.Sender
	horizon  time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

func NewOverdueReminderJob(loans DueInstallmentLister, notifier notification.Sender, horizon time.Duration, logger *slog.Logger) *OverdueReminderJob {
	if loans == nil || notifier == nil || logger == nil {
		panic("OverdueReminderJob dependencies cannot be nil")
	}
	if horizon <= 0 {
		horizon = DefaultReminderHorizon
	}
	return &OverdueReminderJob{
		loans:    loans,
		notifier: notifier,
		horizon:  horizon,
		now:      time.Now,
		logger:   logger.With("job", "OverdueReminder"),
	}
}

func (j *OverdueReminderJob) Run(ctx context.Context) error {
	startTime := time.Now()
	defer func() { monitoring.RecordReminderJob(time.Since(startTime)) }()
	j.logger.InfoContext(ctx, "Starting overdue reminder job.")

	due, err := j.loans.DueInstallments(ctx, j.now(), j.horizon)
	if err != nil {
		j.logger.ErrorContext(ctx, "Failed to list due installments, aborting job.", slog.Any("error", err))
		return fmt.Errorf("cannot run job, failed to list due installments: %w", err)
	}
	j.logger.InfoContext(ctx, "Fetched due installments.", slog.Int("count", len(due)))

	if len(due) == 0 {
		j.logger.InfoContext(ctx, "No installments due, nothing to remind.", slog.Duration("duration", time.Since(startTime)))
		return nil
	}

	var wg sync.WaitGroup
	var sentCount, overdueCount, skippedCount atomic.Int32

	for _, item := range due {
		wg.Add(1)
		go func(item loan.DueInstallment) {
			defer wg.Done()

			logCtx := j.logger.With(slog.Int64("loanID", item.Loan.ID), slog.Int("installment", item.Installment.Number))
			if item.Loan.ApplicantEmail == "" {
				logCtx.WarnContext(ctx, "Borrower has no email on file, skipping reminder.")
				skippedCount.Add(1)
				return
			}
			if item.Overdue {
				overdueCount.Add(1)
			}

			name := item.Loan.ApplicantName
			if name == "" {
				name = item.Loan.ApplicantEmail
			}
			subject, body := notification.PaymentReminder(name, item.Loan.ID, item.Installment.DueDate, item.Installment.EMI, item.Overdue)
			notification.Notify(ctx, j.notifier, logCtx, item.Loan.ApplicantEmail, subject, body)
			logCtx.DebugContext(ctx, "Reminder dispatched.", slog.Bool("overdue", item.Overdue))
			sentCount.Add(1)
		}(item)
	}

	wg.Wait()
	j.logger.With(
		slog.Duration("duration", time.Since(startTime)),
		slog.Int("installments_due", len(due)),
		slog.Int("reminders_sent", int(sentCount.Load())),
		slog.Int("overdue", int(overdueCount.Load())),
		slog.Int("skipped", int(skippedCount.Load())),
	).InfoContext(ctx, "Overdue reminder job finished.")
	return nil
}

// CronJob wraps Run for the scheduler, bounding each run by timeout.
func (j *OverdueReminderJob) CronJob(timeout time.Duration) cron.Job {
	if timeout <= 0 {
		timeout = time.Hour
	}
	return cron.FuncJob(func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		j.logger.Info("Cron triggered: Running overdue reminder job.")
		if err := j.Run(ctx); err != nil {
			j.logger.Error("Overdue reminder job finished with error", slog.Any("error", err))
		}
	})
}

// Schedule registers the job on c. An empty schedule falls back to 02:00 daily.
func Schedule(c *cron.Cron, spec string, timeout time.Duration, job *OverdueReminderJob, logger *slog.Logger) (cron.EntryID, error) {
	if spec == "" {
		spec = "0 2 * * *"
		logger.Warn("Overdue reminder schedule not configured, using default", "schedule", spec)
	}
	id, err := c.AddJob(spec, job.CronJob(timeout))
	if err != nil {
		return 0, fmt.Errorf("failed to schedule overdue reminder job %q: %w", spec, err)
	}
	logger.Info("Scheduled overdue reminder job", "schedule", spec, "job_id", id)
	return id, nil
}

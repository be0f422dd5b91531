package loan

import (
	"context"
	"errors"
	"fmt"
	"lending-engine/internal/domain/amortization"
	"lending-engine/internal/domain/creditscore"
	"lending-engine/internal/identity"
	"lending-engine/internal/infrastructure/monitoring"
	"lending-engine/internal/notification"
	"lending-engine/internal/pkg/apperrors"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

const maxTermMonths = 360

func (s *serviceImpl) Apply(ctx context.Context, applicant identity.Identity, req ApplyRequest) (*ApplyResult, error) {
	req.AccountNumber = strings.TrimSpace(req.AccountNumber)
	if err := validateApplyRequest(req); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Attempting loan application", "userID", applicant.UserID, "accountNumber", req.AccountNumber, "amount", req.Amount.String())

	verified, err := s.verifier.IsVerified(ctx, applicant.UserID, req.AccountNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to check account verification: %w", err)
	}
	if !verified {
		s.logger.WarnContext(ctx, "Loan application on unverified account", "userID", applicant.UserID, "accountNumber", req.AccountNumber)
		return nil, ErrAccountNotVerified
	}

	if err := s.ensureNoOutstanding(ctx, req.AccountNumber); err != nil {
		return nil, err
	}

	score, err := s.scores.Get(ctx, applicant.UserID)
	if err != nil {
		return nil, err
	}
	if score.Score < s.terms.MinCreditScore {
		s.logger.WarnContext(ctx, "Credit score below minimum", "userID", applicant.UserID, "score", score.Score, "minimum", s.terms.MinCreditScore)
		return nil, fmt.Errorf("%w: score %d, minimum %d", ErrCreditScoreTooLow, score.Score, s.terms.MinCreditScore)
	}

	schedule, err := amortization.Amortize(req.Amount, s.terms.AnnualInterestRate, req.TermMonths)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var created *Application
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		created, err = s.repo.CreateApplication(ctx, &Application{
			ApplicantID:    applicant.UserID,
			ApplicantEmail: applicant.Email,
			ApplicantName:  applicant.Name,
			AccountNumber:  req.AccountNumber,
			Amount:         req.Amount,
			Purpose:        strings.TrimSpace(req.Purpose),
			TermMonths:     req.TermMonths,
			InterestRate:   s.terms.AnnualInterestRate,
			EMI:            schedule.EMI,
			TotalPayable:   schedule.TotalPayable,
			Status:         ApplicationPending,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
		if err != nil {
			return fmt.Errorf("failed to save loan application: %w", err)
		}
		score, err = s.scores.Adjust(ctx, applicant.UserID, creditscore.DeltaApplied)
		return err
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Loan application failed", "userID", applicant.UserID, slog.Any("error", err))
		return nil, err
	}

	s.logger.InfoContext(ctx, "Successfully submitted loan application", "applicationID", created.ID, "emi", schedule.EMI.String())
	return &ApplyResult{
		Application:  created,
		EMI:          schedule.EMI,
		TotalPayable: schedule.TotalPayable,
		CreditScore:  score.Score,
	}, nil
}

func (s *serviceImpl) Approve(ctx context.Context, applicationID int64) (*Decision, error) {
	unlock := s.locks.Lock(applicationKey(applicationID))
	defer unlock()

	s.logger.InfoContext(ctx, "Attempting to approve loan application", "applicationID", applicationID)

	app, err := s.getApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if app.IsTerminal() {
		return nil, fmt.Errorf("%w: application %d is %s", ErrApplicationClosed, app.ID, app.Status)
	}

	// Approvals and repayments on one account run one at a time, so the
	// outstanding check below sees any loan disbursed by a sibling approval.
	unlockAccount := s.locks.Lock(accountKey(app.AccountNumber))
	defer unlockAccount()

	summary, err := s.bank.QueryOutstanding(ctx, app.AccountNumber)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to query outstanding balance", "accountNumber", app.AccountNumber, slog.Any("error", err))
		return nil, err
	}
	if summary.Remaining.IsPositive() {
		reason := fmt.Sprintf("outstanding loan balance of %s must be repaid first", summary.Remaining.StringFixed(2))
		return s.rejectOutstanding(ctx, app, reason)
	}

	app.Status = ApplicationApproved
	app.UpdatedAt = s.now()
	if err := s.repo.UpdateApplication(ctx, app); err != nil {
		s.logger.ErrorContext(ctx, "Failed to mark application approved", "applicationID", app.ID, slog.Any("error", err))
		return nil, fmt.Errorf("failed to approve application: %w", err)
	}

	outcome, err := s.bank.Disburse(ctx, app.AccountNumber, app.Amount)
	if err == nil && !outcome.Success {
		err = outcome.Err()
	}
	if err != nil {
		s.logger.WarnContext(ctx, "Loan approved but not disbursed", "applicationID", app.ID, slog.Any("error", err))
		monitoring.RecordLoanDecision("approved_not_disbursed")
		subject, body := notification.LoanApprovedNotDisbursed(applicantName(app.ApplicantName, app.ApplicantEmail), app.ID, err.Error())
		notification.Notify(ctx, s.notifier, s.logger, app.ApplicantEmail, subject, body)
		return nil, fmt.Errorf("disbursement failed for application %d: %w", app.ID, err)
	}

	schedule, err := amortization.Amortize(app.Amount, s.terms.AnnualInterestRate, app.TermMonths)
	if err != nil {
		return nil, err
	}

	origination := s.now()
	var created *Loan
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		created, err = s.repo.CreateLoan(ctx, &Loan{
			ApplicationID:   app.ID,
			ApplicantID:     app.ApplicantID,
			ApplicantEmail:  app.ApplicantEmail,
			ApplicantName:   app.ApplicantName,
			AccountNumber:   app.AccountNumber,
			TotalPrincipal:  app.Amount,
			RemainingAmount: app.Amount,
			InterestRate:    s.terms.AnnualInterestRate,
			TermMonths:      app.TermMonths,
			EMIAmount:       schedule.EMI,
			OriginationDate: origination,
			DueDate:         origination.AddDate(0, 0, app.TermMonths*LoanTermDays),
			CreatedAt:       origination,
			UpdatedAt:       origination,
		}, installmentsFromSchedule(schedule, origination))
		if err != nil {
			return fmt.Errorf("failed to create loan: %w", err)
		}
		_, err = s.scores.Adjust(ctx, app.ApplicantID, creditscore.DeltaApproved)
		return err
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to record disbursed loan", "applicationID", app.ID, slog.Any("error", err))
		return nil, err
	}
	monitoring.RecordLoanDecision("approved")

	subject, body := notification.LoanApproved(applicantName(app.ApplicantName, app.ApplicantEmail), app.ID, app.Amount, schedule.EMI, app.TermMonths)
	notification.Notify(ctx, s.notifier, s.logger, app.ApplicantEmail, subject, body)

	s.logger.InfoContext(ctx, "Successfully approved and disbursed loan", "applicationID", app.ID, "loanID", created.ID)
	return &Decision{Application: app, Loan: created}, nil
}

func (s *serviceImpl) Reject(ctx context.Context, applicationID int64, reason string) (*Application, error) {
	unlock := s.locks.Lock(applicationKey(applicationID))
	defer unlock()

	app, err := s.getApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	switch app.Status {
	case ApplicationApproved:
		return nil, fmt.Errorf("%w: application %d is already approved", ErrApplicationClosed, app.ID)
	case ApplicationRejected:
		return app, nil
	}

	if strings.TrimSpace(reason) == "" {
		reason = "rejected by administrator"
	}
	app.Status = ApplicationRejected
	app.Reason = reason
	app.UpdatedAt = s.now()
	if err := s.repo.UpdateApplication(ctx, app); err != nil {
		s.logger.ErrorContext(ctx, "Failed to reject application", "applicationID", app.ID, slog.Any("error", err))
		return nil, fmt.Errorf("failed to reject application: %w", err)
	}
	monitoring.RecordLoanDecision("rejected")

	subject, body := notification.LoanRejected(applicantName(app.ApplicantName, app.ApplicantEmail), app.ID, reason)
	notification.Notify(ctx, s.notifier, s.logger, app.ApplicantEmail, subject, body)

	s.logger.InfoContext(ctx, "Loan application rejected", "applicationID", app.ID)
	return app, nil
}

func (s *serviceImpl) rejectOutstanding(ctx context.Context, app *Application, reason string) (*Decision, error) {
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		app.Status = ApplicationRejected
		app.Reason = reason
		app.UpdatedAt = s.now()
		if err := s.repo.UpdateApplication(ctx, app); err != nil {
			return fmt.Errorf("failed to reject application: %w", err)
		}
		_, err := s.scores.Adjust(ctx, app.ApplicantID, creditscore.DeltaRejected)
		return err
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to reject application with outstanding loan", "applicationID", app.ID, slog.Any("error", err))
		return nil, err
	}
	monitoring.RecordLoanDecision("rejected")

	subject, body := notification.LoanRejected(applicantName(app.ApplicantName, app.ApplicantEmail), app.ID, reason)
	notification.Notify(ctx, s.notifier, s.logger, app.ApplicantEmail, subject, body)

	s.logger.InfoContext(ctx, "Loan application rejected at approval", "applicationID", app.ID, "reason", reason)
	return &Decision{Application: app, Rejected: true, Reason: reason}, nil
}

func (s *serviceImpl) ensureNoOutstanding(ctx context.Context, accountNumber string) error {
	summary, err := s.bank.QueryOutstanding(ctx, accountNumber)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to query outstanding balance", "accountNumber", accountNumber, slog.Any("error", err))
		return err
	}
	if summary.Remaining.IsPositive() {
		s.logger.WarnContext(ctx, "Account has outstanding loan", "accountNumber", accountNumber, "remaining", summary.Remaining.String())
		return fmt.Errorf("%w: remaining %s", ErrOutstandingLoanExists, summary.Remaining.StringFixed(2))
	}
	return nil
}

func (s *serviceImpl) getApplication(ctx context.Context, id int64) (*Application, error) {
	app, err := s.repo.GetApplication(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: id %d", ErrApplicationNotFound, id)
		}
		return nil, fmt.Errorf("failed to load application %d: %w", id, err)
	}
	return app, nil
}

func validateApplyRequest(req ApplyRequest) error {
	if req.AccountNumber == "" {
		return apperrors.NewValidationError("accountNumber", "account number is required")
	}
	if !req.Amount.IsPositive() {
		return apperrors.NewValidationError("amount", "amount must be greater than zero")
	}
	if !req.Amount.Equal(req.Amount.Round(amortization.MoneyScale)) {
		return apperrors.NewValidationError("amount", "amount cannot have more than two decimal places")
	}
	if req.TermMonths <= 0 || req.TermMonths > maxTermMonths {
		return apperrors.NewValidationError("termMonths", fmt.Sprintf("term must be between 1 and %d months", maxTermMonths))
	}
	return nil
}

// installmentsFromSchedule dates installment i at origination plus i months.
func installmentsFromSchedule(schedule *amortization.Schedule, origination time.Time) []Installment {
	installments := make([]Installment, 0, len(schedule.Installments))
	for _, entry := range schedule.Installments {
		installments = append(installments, Installment{
			Number:             entry.Number,
			DueDate:            origination.AddDate(0, entry.Number, 0),
			EMI:                entry.EMI,
			Interest:           entry.Interest,
			Principal:          entry.Principal,
			RemainingPrincipal: entry.Remaining,
			Status:             InstallmentPending,
		})
	}
	return installments
}

func accountKey(accountNumber string) string {
	return "account:" + accountNumber
}

func applicationKey(id int64) string {
	return "application:" + strconv.FormatInt(id, 10)
}

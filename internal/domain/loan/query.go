package loan

import (
	"context"
	"errors"
	"fmt"
	"lending-engine/internal/identity"
	"lending-engine/internal/pkg/apperrors"
	"log/slog"
	"time"
)

func (s *serviceImpl) GetLoan(ctx context.Context, caller identity.Identity, loanID int64) (*LoanDetails, error) {
	loan, err := s.repo.GetLoan(ctx, loanID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: id %d", ErrLoanNotFound, loanID)
		}
		return nil, fmt.Errorf("failed to load loan %d: %w", loanID, err)
	}
	if !caller.IsAdmin() && loan.ApplicantID != caller.UserID {
		return nil, ErrNotOwner
	}
	return s.details(ctx, loan)
}

func (s *serviceImpl) ActiveLoan(ctx context.Context, caller identity.Identity, accountNumber string) (*LoanDetails, error) {
	loan, err := s.repo.FindActiveLoanByAccount(ctx, accountNumber)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNoOutstandingLoan, accountNumber)
		}
		return nil, fmt.Errorf("failed to load active loan: %w", err)
	}
	if !caller.IsAdmin() && loan.ApplicantID != caller.UserID {
		return nil, ErrNotOwner
	}
	return s.details(ctx, loan)
}

func (s *serviceImpl) ListApplicationsByAccount(ctx context.Context, caller identity.Identity, accountNumber string) ([]Application, error) {
	filter := ApplicationFilter{AccountNumber: accountNumber}
	if !caller.IsAdmin() {
		filter.ApplicantID = caller.UserID
	}
	return s.ListApplications(ctx, filter)
}

func (s *serviceImpl) ListLoansByAccount(ctx context.Context, caller identity.Identity, accountNumber string) ([]Loan, error) {
	filter := LoanFilter{AccountNumber: accountNumber}
	if !caller.IsAdmin() {
		filter.ApplicantID = caller.UserID
	}
	loans, err := s.repo.ListLoans(ctx, filter)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list loans", "accountNumber", accountNumber, slog.Any("error", err))
		return nil, fmt.Errorf("failed to list loans: %w", err)
	}
	return loans, nil
}

func (s *serviceImpl) ListApplications(ctx context.Context, filter ApplicationFilter) ([]Application, error) {
	apps, err := s.repo.ListApplications(ctx, filter)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list applications", slog.Any("error", err))
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	return apps, nil
}

// ListPendingApplications attaches the bank's view of each account. A bank
// lookup failure leaves Bank nil instead of failing the listing.
func (s *serviceImpl) ListPendingApplications(ctx context.Context) ([]PendingApplication, error) {
	apps, err := s.ListApplications(ctx, ApplicationFilter{Status: ApplicationPending})
	if err != nil {
		return nil, err
	}

	pending := make([]PendingApplication, 0, len(apps))
	for _, app := range apps {
		entry := PendingApplication{Application: app}
		summary, err := s.bank.QueryOutstanding(ctx, app.AccountNumber)
		if err != nil {
			s.logger.WarnContext(ctx, "Could not load bank summary for application", "applicationID", app.ID, slog.Any("error", err))
		} else {
			entry.Bank = summary
		}
		pending = append(pending, entry)
	}
	return pending, nil
}

func (s *serviceImpl) AdminLoanSummary(ctx context.Context) ([]Loan, error) {
	loans, err := s.repo.ListLoans(ctx, LoanFilter{})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list loans", slog.Any("error", err))
		return nil, fmt.Errorf("failed to list loans: %w", err)
	}
	return loans, nil
}

func (s *serviceImpl) Dashboard(ctx context.Context) (*DashboardStats, error) {
	stats, err := s.repo.DashboardStats(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to compute dashboard stats", slog.Any("error", err))
		return nil, fmt.Errorf("failed to compute dashboard: %w", err)
	}
	return stats, nil
}

func (s *serviceImpl) DueInstallments(ctx context.Context, asOf time.Time, horizon time.Duration) ([]DueInstallment, error) {
	loans, err := s.repo.ListLoans(ctx, LoanFilter{ActiveOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to list active loans: %w", err)
	}

	cutoff := asOf.Add(horizon)
	var due []DueInstallment
	for _, loan := range loans {
		installments, err := s.repo.GetInstallments(ctx, loan.ID)
		if err != nil {
			s.logger.ErrorContext(ctx, "Failed to load installments", "loanID", loan.ID, slog.Any("error", err))
			continue
		}
		for _, inst := range installments {
			if inst.IsPaid() || inst.DueDate.After(cutoff) {
				continue
			}
			due = append(due, DueInstallment{Loan: loan, Installment: inst, Overdue: inst.DueDate.Before(asOf)})
			// Only the earliest pending installment of a loan is reminded.
			break
		}
	}
	return due, nil
}

func (s *serviceImpl) details(ctx context.Context, loan *Loan) (*LoanDetails, error) {
	installments, err := s.repo.GetInstallments(ctx, loan.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load installments: %w", err)
	}
	repayments, err := s.repo.ListRepayments(ctx, loan.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load repayments: %w", err)
	}
	return &LoanDetails{Loan: loan, Installments: installments, Repayments: repayments}, nil
}

package loan

import (
	"context"
	"time"
)

type Repository interface {
	CreateApplication(ctx context.Context, app *Application) (*Application, error)

	// GetApplication returns apperrors.ErrNotFound when absent.
	GetApplication(ctx context.Context, id int64) (*Application, error)

	UpdateApplication(ctx context.Context, app *Application) error

	ListApplications(ctx context.Context, filter ApplicationFilter) ([]Application, error)

	// CreateLoan stores the loan together with its installments.
	CreateLoan(ctx context.Context, loan *Loan, installments []Installment) (*Loan, error)

	// GetLoan returns apperrors.ErrNotFound when absent.
	GetLoan(ctx context.Context, id int64) (*Loan, error)

	// FindActiveLoanByAccount returns the oldest loan on the account with a
	// remaining amount above zero, or apperrors.ErrNotFound.
	FindActiveLoanByAccount(ctx context.Context, accountNumber string) (*Loan, error)

	ListLoans(ctx context.Context, filter LoanFilter) ([]Loan, error)

	UpdateLoan(ctx context.Context, loan *Loan) error

	// GetInstallments returns the schedule ordered by installment number.
	GetInstallments(ctx context.Context, loanID int64) ([]Installment, error)

	UpdateInstallments(ctx context.Context, installments []Installment) error

	CreateRepayment(ctx context.Context, repayment *Repayment) (*Repayment, error)

	UpdateRepaymentStatus(ctx context.Context, id int64, status RepaymentStatus, at time.Time) error

	ListRepayments(ctx context.Context, loanID int64) ([]Repayment, error)

	DashboardStats(ctx context.Context) (*DashboardStats, error)
}

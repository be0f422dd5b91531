package loan

import (
	"context"
	"lending-engine/internal/bank"
	"lending-engine/internal/domain/creditscore"
	"lending-engine/internal/domain/uow"
	"lending-engine/internal/identity"
	"lending-engine/internal/notification"
	"lending-engine/internal/pkg/keylock"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
)

type Service interface {
	Apply(ctx context.Context, applicant identity.Identity, req ApplyRequest) (*ApplyResult, error)

	Approve(ctx context.Context, applicationID int64) (*Decision, error)

	Reject(ctx context.Context, applicationID int64, reason string) (*Application, error)

	Repay(ctx context.Context, payer identity.Identity, accountNumber string, amount decimal.Decimal) (*RepaymentResult, error)

	GetLoan(ctx context.Context, caller identity.Identity, loanID int64) (*LoanDetails, error)

	ActiveLoan(ctx context.Context, caller identity.Identity, accountNumber string) (*LoanDetails, error)

	ListApplicationsByAccount(ctx context.Context, caller identity.Identity, accountNumber string) ([]Application, error)

	ListLoansByAccount(ctx context.Context, caller identity.Identity, accountNumber string) ([]Loan, error)

	ListApplications(ctx context.Context, filter ApplicationFilter) ([]Application, error)

	ListPendingApplications(ctx context.Context) ([]PendingApplication, error)

	AdminLoanSummary(ctx context.Context) ([]Loan, error)

	Dashboard(ctx context.Context) (*DashboardStats, error)

	// DueInstallments lists pending installments of active loans due on or
	// before asOf+horizon, flagging the ones already past due.
	DueInstallments(ctx context.Context, asOf time.Time, horizon time.Duration) ([]DueInstallment, error)
}

// AccountVerifier answers whether a user owns a verified link on an account.
type AccountVerifier interface {
	IsVerified(ctx context.Context, userID, accountNumber string) (bool, error)
}

// Terms are the lending parameters applied to every new loan.
type Terms struct {
	AnnualInterestRate decimal.Decimal
	MinCreditScore     int
}

type ApplyRequest struct {
	AccountNumber string
	Amount        decimal.Decimal
	Purpose       string
	TermMonths    int
}

type ApplyResult struct {
	Application  *Application
	EMI          decimal.Decimal
	TotalPayable decimal.Decimal
	CreditScore  int
}

// Decision is the result of an approval attempt. Loan is nil when the
// application was rejected instead.
type Decision struct {
	Application *Application
	Loan        *Loan
	Rejected    bool
	Reason      string
}

type RepaymentResult struct {
	Repayment    *Repayment
	Loan         *Loan
	Installments []Installment
	FullyRepaid  bool
	Late         bool
	CreditScore  int
}

type LoanDetails struct {
	Loan         *Loan
	Installments []Installment
	Repayments   []Repayment
}

type PendingApplication struct {
	Application Application
	// Bank is nil when the bank could not be queried.
	Bank *bank.Summary
}

type DueInstallment struct {
	Loan        Loan
	Installment Installment
	Overdue     bool
}

type serviceImpl struct {
	repo     Repository
	tx       uow.TxManager
	bank     bank.Client
	verifier AccountVerifier
	scores   creditscore.Service
	notifier notification.Sender
	terms    Terms
	locks    *keylock.Map
	now      func() time.Time
	logger   *slog.Logger
}

func NewService(
	repo Repository,
	tx uow.TxManager,
	bankClient bank.Client,
	verifier AccountVerifier,
	scores creditscore.Service,
	notifier notification.Sender,
	terms Terms,
	logger *slog.Logger,
) Service {
	return &serviceImpl{
		repo:     repo,
		tx:       tx,
		bank:     bankClient,
		verifier: verifier,
		scores:   scores,
		notifier: notifier,
		terms:    terms,
		locks:    keylock.New(),
		now:      time.Now,
		logger:   logger.With("component", "LoanService"),
	}
}

func applicantName(name, email string) string {
	if name != "" {
		return name
	}
	return email
}

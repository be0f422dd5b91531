package handler

import (
	"context"
	"lending-engine/internal/domain/creditscore"
	"lending-engine/internal/domain/ledger"
	"lending-engine/internal/domain/loan"
	"lending-engine/internal/domain/verification"
	"lending-engine/internal/identity"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type MockLedgerService struct {
	mock.Mock
}

func (m *MockLedgerService) OpenAccount(ctx context.Context, params ledger.OpenAccountParams) (*ledger.Account, error) {
	args := m.Called(ctx, params)
	if a, ok := args.Get(0).(*ledger.Account); ok {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLedgerService) GetAccount(ctx context.Context, accountNumber string) (*ledger.Account, error) {
	args := m.Called(ctx, accountNumber)
	if a, ok := args.Get(0).(*ledger.Account); ok {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLedgerService) Deposit(ctx context.Context, accountNumber string, amount decimal.Decimal) (*ledger.Account, error) {
	args := m.Called(ctx, accountNumber, amount)
	if a, ok := args.Get(0).(*ledger.Account); ok {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLedgerService) ListTransactions(ctx context.Context, accountNumber string) ([]ledger.Transaction, error) {
	args := m.Called(ctx, accountNumber)
	if txs, ok := args.Get(0).([]ledger.Transaction); ok {
		return txs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLedgerService) GetFund(ctx context.Context) (*ledger.Fund, error) {
	args := m.Called(ctx)
	if f, ok := args.Get(0).(*ledger.Fund); ok {
		return f, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLedgerService) TopUpFund(ctx context.Context, amount decimal.Decimal) (*ledger.Fund, error) {
	args := m.Called(ctx, amount)
	if f, ok := args.Get(0).(*ledger.Fund); ok {
		return f, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLedgerService) SendMicroDeposit(ctx context.Context, accountNumber string) (*ledger.Challenge, error) {
	args := m.Called(ctx, accountNumber)
	if c, ok := args.Get(0).(*ledger.Challenge); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLedgerService) ConfirmMicroDeposit(ctx context.Context, accountNumber string, amount decimal.Decimal) (*ledger.Challenge, error) {
	args := m.Called(ctx, accountNumber, amount)
	if c, ok := args.Get(0).(*ledger.Challenge); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLedgerService) Disburse(ctx context.Context, accountNumber string, amount decimal.Decimal) (*ledger.Account, error) {
	args := m.Called(ctx, accountNumber, amount)
	if a, ok := args.Get(0).(*ledger.Account); ok {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLedgerService) CollectRepayment(ctx context.Context, accountNumber string, amount decimal.Decimal) (*ledger.Collection, error) {
	args := m.Called(ctx, accountNumber, amount)
	if c, ok := args.Get(0).(*ledger.Collection); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLedgerService) LoanSummary(ctx context.Context, accountNumber string) (*ledger.LoanSummary, error) {
	args := m.Called(ctx, accountNumber)
	if s, ok := args.Get(0).(*ledger.LoanSummary); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

type MockVerificationService struct {
	mock.Mock
}

func (m *MockVerificationService) RequestVerification(ctx context.Context, claimant identity.Identity, accountNumber string) (*verification.Result, error) {
	args := m.Called(ctx, claimant, accountNumber)
	if r, ok := args.Get(0).(*verification.Result); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockVerificationService) ConfirmVerification(ctx context.Context, claimant identity.Identity, accountNumber string, amount decimal.Decimal) (*verification.Result, error) {
	args := m.Called(ctx, claimant, accountNumber, amount)
	if r, ok := args.Get(0).(*verification.Result); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockVerificationService) GetLink(ctx context.Context, userID string) (*verification.Link, error) {
	args := m.Called(ctx, userID)
	if l, ok := args.Get(0).(*verification.Link); ok {
		return l, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockVerificationService) IsVerified(ctx context.Context, userID, accountNumber string) (bool, error) {
	args := m.Called(ctx, userID, accountNumber)
	return args.Bool(0), args.Error(1)
}

type MockCreditScoreService struct {
	mock.Mock
}

func (m *MockCreditScoreService) Get(ctx context.Context, userID string) (*creditscore.Score, error) {
	args := m.Called(ctx, userID)
	if s, ok := args.Get(0).(*creditscore.Score); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCreditScoreService) Adjust(ctx context.Context, userID string, delta int) (*creditscore.Score, error) {
	args := m.Called(ctx, userID, delta)
	if s, ok := args.Get(0).(*creditscore.Score); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

type MockLoanService struct {
	mock.Mock
}

func (m *MockLoanService) Apply(ctx context.Context, applicant identity.Identity, req loan.ApplyRequest) (*loan.ApplyResult, error) {
	args := m.Called(ctx, applicant, req)
	if r, ok := args.Get(0).(*loan.ApplyResult); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLoanService) Approve(ctx context.Context, applicationID int64) (*loan.Decision, error) {
	args := m.Called(ctx, applicationID)
	if d, ok := args.Get(0).(*loan.Decision); ok {
		return d, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLoanService) Reject(ctx context.Context, applicationID int64, reason string) (*loan.Application, error) {
	args := m.Called(ctx, applicationID, reason)
	if a, ok := args.Get(0).(*loan.Application); ok {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLoanService) Repay(ctx context.Context, payer identity.Identity, accountNumber string, amount decimal.Decimal) (*loan.RepaymentResult, error) {
	args := m.Called(ctx, payer, accountNumber, amount)
	if r, ok := args.Get(0).(*loan.RepaymentResult); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLoanService) GetLoan(ctx context.Context, caller identity.Identity, loanID int64) (*loan.LoanDetails, error) {
	args := m.Called(ctx, caller, loanID)
	if d, ok := args.Get(0).(*loan.LoanDetails); ok {
		return d, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLoanService) ActiveLoan(ctx context.Context, caller identity.Identity, accountNumber string) (*loan.LoanDetails, error) {
	args := m.Called(ctx, caller, accountNumber)
	if d, ok := args.Get(0).(*loan.LoanDetails); ok {
		return d, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLoanService) ListApplicationsByAccount(ctx context.Context, caller identity.Identity, accountNumber string) ([]loan.Application, error) {
	args := m.Called(ctx, caller, accountNumber)
	if a, ok := args.Get(0).([]loan.Application); ok {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLoanService) ListLoansByAccount(ctx context.Context, caller identity.Identity, accountNumber string) ([]loan.Loan, error) {
	args := m.Called(ctx, caller, accountNumber)
	if l, ok := args.Get(0).([]loan.Loan); ok {
		return l, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLoanService) ListApplications(ctx context.Context, filter loan.ApplicationFilter) ([]loan.Application, error) {
	args := m.Called(ctx, filter)
	if a, ok := args.Get(0).([]loan.Application); ok {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLoanService) ListPendingApplications(ctx context.Context) ([]loan.PendingApplication, error) {
	args := m.Called(ctx)
	if p, ok := args.Get(0).([]loan.PendingApplication); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLoanService) AdminLoanSummary(ctx context.Context) ([]loan.Loan, error) {
	args := m.Called(ctx)
	if l, ok := args.Get(0).([]loan.Loan); ok {
		return l, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLoanService) Dashboard(ctx context.Context) (*loan.DashboardStats, error) {
	args := m.Called(ctx)
	if s, ok := args.Get(0).(*loan.DashboardStats); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLoanService) DueInstallments(ctx context.Context, asOf time.Time, horizon time.Duration) ([]loan.DueInstallment, error) {
	args := m.Called(ctx, asOf, horizon)
	if d, ok := args.Get(0).([]loan.DueInstallment); ok {
		return d, args.Error(1)
	}
	return nil, args.Error(1)
}

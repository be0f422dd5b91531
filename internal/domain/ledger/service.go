package ledger

import (
	"context"
	"errors"
	"fmt"
	"lending-engine/internal/domain/uow"
	"lending-engine/internal/infrastructure/monitoring"
	"lending-engine/internal/notification"
	"lending-engine/internal/pkg/apperrors"
	"lending-engine/internal/pkg/keylock"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Service interface {
	OpenAccount(ctx context.Context, params OpenAccountParams) (*Account, error)

	GetAccount(ctx context.Context, accountNumber string) (*Account, error)

	Deposit(ctx context.Context, accountNumber string, amount decimal.Decimal) (*Account, error)

	ListTransactions(ctx context.Context, accountNumber string) ([]Transaction, error)

	GetFund(ctx context.Context) (*Fund, error)

	TopUpFund(ctx context.Context, amount decimal.Decimal) (*Fund, error)

	SendMicroDeposit(ctx context.Context, accountNumber string) (*Challenge, error)

	ConfirmMicroDeposit(ctx context.Context, accountNumber string, amount decimal.Decimal) (*Challenge, error)

	Disburse(ctx context.Context, accountNumber string, amount decimal.Decimal) (*Account, error)

	CollectRepayment(ctx context.Context, accountNumber string, amount decimal.Decimal) (*Collection, error)

	LoanSummary(ctx context.Context, accountNumber string) (*LoanSummary, error)
}

type serviceImpl struct {
	repo               Repository
	tx                 uow.TxManager
	notifier           notification.Sender
	microDepositAmount decimal.Decimal
	locks              *keylock.Map
	logger             *slog.Logger
}

func NewService(repo Repository, tx uow.TxManager, notifier notification.Sender, microDepositAmount decimal.Decimal, logger *slog.Logger) Service {
	return &serviceImpl{
		repo:               repo,
		tx:                 tx,
		notifier:           notifier,
		microDepositAmount: microDepositAmount,
		locks:              keylock.New(),
		logger:             logger.With("component", "LedgerService"),
	}
}

func (s *serviceImpl) OpenAccount(ctx context.Context, params OpenAccountParams) (*Account, error) {
	params.AccountNumber = strings.TrimSpace(params.AccountNumber)
	if params.AccountNumber == "" {
		return nil, apperrors.NewValidationError("accountNumber", "account number is required")
	}
	if params.InitialBalance.IsNegative() {
		return nil, apperrors.NewValidationError("initialBalance", "initial balance cannot be negative")
	}

	s.logger.InfoContext(ctx, "Opening bank account", "accountNumber", params.AccountNumber)
	created, err := s.repo.CreateAccount(ctx, &Account{
		AccountNumber: params.AccountNumber,
		CustomerName:  params.CustomerName,
		Email:         params.Email,
		Balance:       params.InitialBalance,
		LoanPaid:      decimal.Zero,
		LoanRemaining: decimal.Zero,
		TotalLoan:     decimal.Zero,
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			s.logger.WarnContext(ctx, "Account number already registered", "accountNumber", params.AccountNumber)
			return nil, fmt.Errorf("%w: %s", ErrAccountExists, params.AccountNumber)
		}
		s.logger.ErrorContext(ctx, "Failed to open account", slog.Any("error", err))
		return nil, fmt.Errorf("failed to open account: %w", err)
	}

	s.logger.InfoContext(ctx, "Successfully opened bank account", "accountNumber", created.AccountNumber, "accountID", created.ID)
	return created, nil
}

func (s *serviceImpl) GetAccount(ctx context.Context, accountNumber string) (*Account, error) {
	account, err := s.repo.GetAccountByNumber(ctx, accountNumber)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, accountNumber)
		}
		return nil, fmt.Errorf("failed to load account %s: %w", accountNumber, err)
	}
	return account, nil
}

func (s *serviceImpl) Deposit(ctx context.Context, accountNumber string, amount decimal.Decimal) (*Account, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	unlock := s.locks.Lock(accountNumber)
	defer unlock()

	var account *Account
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		account, err = s.GetAccount(ctx, accountNumber)
		if err != nil {
			return err
		}
		account.Balance = account.Balance.Add(amount)
		if err := s.repo.UpdateAccount(ctx, account); err != nil {
			return fmt.Errorf("failed to update account balance: %w", err)
		}
		return s.record(ctx, account.ID, TransactionDeposit, amount)
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Deposit failed", "accountNumber", accountNumber, slog.Any("error", err))
		return nil, err
	}

	s.logger.InfoContext(ctx, "Deposit recorded", "accountNumber", accountNumber, "amount", amount.String())
	return account, nil
}

func (s *serviceImpl) ListTransactions(ctx context.Context, accountNumber string) ([]Transaction, error) {
	account, err := s.GetAccount(ctx, accountNumber)
	if err != nil {
		return nil, err
	}
	return s.repo.ListTransactions(ctx, account.ID)
}

func (s *serviceImpl) GetFund(ctx context.Context) (*Fund, error) {
	fund, err := s.repo.GetFund(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load loan fund", slog.Any("error", err))
		return nil, fmt.Errorf("failed to load loan fund: %w", err)
	}
	monitoring.SetFundBalance(fund.Balance.InexactFloat64())
	return fund, nil
}

func (s *serviceImpl) TopUpFund(ctx context.Context, amount decimal.Decimal) (*Fund, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	fund, err := s.repo.CreditFund(ctx, amount)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to top up loan fund", slog.Any("error", err))
		return nil, fmt.Errorf("failed to top up loan fund: %w", err)
	}
	monitoring.SetFundBalance(fund.Balance.InexactFloat64())
	s.logger.InfoContext(ctx, "Loan fund topped up", "amount", amount.String(), "balance", fund.Balance.String())
	return fund, nil
}

// SendMicroDeposit debits the fund and opens a new pending challenge. Nothing
// is written when the fund cannot cover the micro deposit.
func (s *serviceImpl) SendMicroDeposit(ctx context.Context, accountNumber string) (*Challenge, error) {
	unlock := s.locks.Lock(accountNumber)
	defer unlock()

	s.logger.InfoContext(ctx, "Attempting to send micro deposit", "accountNumber", accountNumber)

	var account *Account
	var challenge *Challenge
	var fund *Fund
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		account, err = s.GetAccount(ctx, accountNumber)
		if err != nil {
			return err
		}

		fund, err = s.debitFund(ctx, s.microDepositAmount)
		if err != nil {
			return err
		}

		challenge, err = s.repo.CreateChallenge(ctx, &Challenge{
			AccountID: account.ID,
			Amount:    s.microDepositAmount,
			Status:    ChallengePending,
		})
		if err != nil {
			return fmt.Errorf("failed to create micro deposit challenge: %w", err)
		}
		return s.record(ctx, account.ID, TransactionMicroDeposit, s.microDepositAmount)
	})
	if err != nil {
		s.logger.WarnContext(ctx, "Micro deposit not sent", "accountNumber", accountNumber, slog.Any("error", err))
		return nil, err
	}
	monitoring.SetFundBalance(fund.Balance.InexactFloat64())

	subject, body := notification.MicroDepositSent(account.CustomerName, accountNumber, s.microDepositAmount)
	notification.Notify(ctx, s.notifier, s.logger, account.Email, subject, body)

	s.logger.InfoContext(ctx, "Successfully sent micro deposit", "accountNumber", accountNumber, "challengeID", challenge.ID)
	return challenge, nil
}

func (s *serviceImpl) ConfirmMicroDeposit(ctx context.Context, accountNumber string, amount decimal.Decimal) (*Challenge, error) {
	unlock := s.locks.Lock(accountNumber)
	defer unlock()

	account, err := s.GetAccount(ctx, accountNumber)
	if err != nil {
		return nil, err
	}

	challenge, err := s.latestChallenge(ctx, account)
	if err != nil {
		return nil, err
	}

	if !challenge.Amount.Equal(amount) {
		s.logger.WarnContext(ctx, "Micro deposit amount mismatch", "accountNumber", accountNumber, "challengeID", challenge.ID)
		return nil, ErrAmountMismatch
	}

	if challenge.Status != ChallengeVerified {
		if err := s.repo.UpdateChallengeStatus(ctx, challenge.ID, ChallengeVerified); err != nil {
			s.logger.ErrorContext(ctx, "Failed to mark challenge verified", "challengeID", challenge.ID, slog.Any("error", err))
			return nil, fmt.Errorf("failed to update challenge: %w", err)
		}
		challenge.Status = ChallengeVerified
	}

	s.logger.InfoContext(ctx, "Micro deposit confirmed", "accountNumber", accountNumber, "challengeID", challenge.ID)
	return challenge, nil
}

func (s *serviceImpl) Disburse(ctx context.Context, accountNumber string, amount decimal.Decimal) (*Account, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	unlock := s.locks.Lock(accountNumber)
	defer unlock()

	s.logger.InfoContext(ctx, "Attempting loan disbursement", "accountNumber", accountNumber, "amount", amount.String())

	var account *Account
	var fund *Fund
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		account, err = s.GetAccount(ctx, accountNumber)
		if err != nil {
			return err
		}

		challenge, err := s.latestChallenge(ctx, account)
		if err != nil && !errors.Is(err, ErrNoChallengeFound) {
			return err
		}
		if challenge == nil || challenge.Status != ChallengeVerified {
			return ErrAccountNotVerified
		}

		if account.LoanRemaining.IsPositive() {
			return ErrOutstandingLoanExists
		}

		fund, err = s.debitFund(ctx, amount)
		if err != nil {
			return err
		}

		account.Balance = account.Balance.Add(amount)
		account.LoanRemaining = account.LoanRemaining.Add(amount)
		account.TotalLoan = account.TotalLoan.Add(amount)
		if err := s.repo.UpdateAccount(ctx, account); err != nil {
			return fmt.Errorf("failed to update account after disbursement: %w", err)
		}
		return s.record(ctx, account.ID, TransactionLoanDisburse, amount)
	})
	if err != nil {
		s.logger.WarnContext(ctx, "Loan disbursement failed", "accountNumber", accountNumber, slog.Any("error", err))
		return nil, err
	}
	monitoring.SetFundBalance(fund.Balance.InexactFloat64())

	s.logger.InfoContext(ctx, "Successfully disbursed loan", "accountNumber", accountNumber, "amount", amount.String())
	return account, nil
}

// CollectRepayment pulls min(amount, loan remaining, balance) from the
// account back into the fund.
func (s *serviceImpl) CollectRepayment(ctx context.Context, accountNumber string, amount decimal.Decimal) (*Collection, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	unlock := s.locks.Lock(accountNumber)
	defer unlock()

	s.logger.InfoContext(ctx, "Attempting to collect repayment", "accountNumber", accountNumber, "amount", amount.String())

	var collection *Collection
	var fund *Fund
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		account, err := s.GetAccount(ctx, accountNumber)
		if err != nil {
			return err
		}

		collected := decimal.Min(amount, account.LoanRemaining, account.Balance)
		if !collected.IsPositive() {
			return ErrNothingToCollect
		}

		account.Balance = account.Balance.Sub(collected)
		account.LoanRemaining = account.LoanRemaining.Sub(collected)
		account.LoanPaid = account.LoanPaid.Add(collected)
		if err := s.repo.UpdateAccount(ctx, account); err != nil {
			return fmt.Errorf("failed to update account after repayment: %w", err)
		}

		fund, err = s.repo.CreditFund(ctx, collected)
		if err != nil {
			return fmt.Errorf("failed to credit loan fund: %w", err)
		}

		if err := s.record(ctx, account.ID, TransactionLoanRepayment, collected); err != nil {
			return err
		}
		collection = &Collection{Collected: collected, Account: account}
		return nil
	})
	if err != nil {
		s.logger.WarnContext(ctx, "Repayment collection failed", "accountNumber", accountNumber, slog.Any("error", err))
		return nil, err
	}
	monitoring.SetFundBalance(fund.Balance.InexactFloat64())

	s.logger.InfoContext(ctx, "Successfully collected repayment", "accountNumber", accountNumber, "collected", collection.Collected.String())
	return collection, nil
}

func (s *serviceImpl) LoanSummary(ctx context.Context, accountNumber string) (*LoanSummary, error) {
	account, err := s.GetAccount(ctx, accountNumber)
	if err != nil {
		return nil, err
	}
	return &LoanSummary{
		AccountNumber: account.AccountNumber,
		Paid:          account.LoanPaid,
		Remaining:     account.LoanRemaining,
		Total:         account.TotalLoan,
	}, nil
}

func (s *serviceImpl) latestChallenge(ctx context.Context, account *Account) (*Challenge, error) {
	challenge, err := s.repo.GetLatestChallenge(ctx, account.ID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNoChallengeFound, account.AccountNumber)
		}
		return nil, fmt.Errorf("failed to load micro deposit challenge: %w", err)
	}
	return challenge, nil
}

func (s *serviceImpl) debitFund(ctx context.Context, amount decimal.Decimal) (*Fund, error) {
	fund, err := s.repo.DebitFund(ctx, amount)
	if err != nil {
		if errors.Is(err, apperrors.ErrInsufficientFund) {
			return nil, fmt.Errorf("%w: requested %s", ErrInsufficientFund, amount.StringFixed(2))
		}
		return nil, fmt.Errorf("failed to debit loan fund: %w", err)
	}
	return fund, nil
}

func (s *serviceImpl) record(ctx context.Context, accountID int64, kind TransactionType, amount decimal.Decimal) error {
	_, err := s.repo.RecordTransaction(ctx, &Transaction{
		AccountID: accountID,
		Type:      kind,
		Amount:    amount,
		CreatedAt: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to record %s transaction: %w", kind, err)
	}
	return nil
}

package ledger

import (
	"context"

	"github.com/shopspring/decimal"
)

type Repository interface {
	// CreateAccount returns apperrors.ErrAlreadyExists on a duplicate number.
	CreateAccount(ctx context.Context, account *Account) (*Account, error)

	// GetAccountByNumber returns apperrors.ErrNotFound when absent.
	GetAccountByNumber(ctx context.Context, accountNumber string) (*Account, error)

	UpdateAccount(ctx context.Context, account *Account) error

	// EnsureFund creates the singleton fund with initial balance if missing.
	EnsureFund(ctx context.Context, initial decimal.Decimal) (*Fund, error)

	GetFund(ctx context.Context) (*Fund, error)

	// DebitFund subtracts amount only if the balance covers it, in one
	// atomic step. Returns apperrors.ErrInsufficientFund otherwise.
	DebitFund(ctx context.Context, amount decimal.Decimal) (*Fund, error)

	CreditFund(ctx context.Context, amount decimal.Decimal) (*Fund, error)

	CreateChallenge(ctx context.Context, challenge *Challenge) (*Challenge, error)

	// GetLatestChallenge returns apperrors.ErrNotFound when none exists.
	GetLatestChallenge(ctx context.Context, accountID int64) (*Challenge, error)

	UpdateChallengeStatus(ctx context.Context, challengeID int64, status ChallengeStatus) error

	RecordTransaction(ctx context.Context, tx *Transaction) (*Transaction, error)

	ListTransactions(ctx context.Context, accountID int64) ([]Transaction, error)
}

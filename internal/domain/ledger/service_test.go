package ledger_test

import (
	"context"
	"lending-engine/internal/domain/ledger"
	"lending-engine/internal/infrastructure/database/memory"
	"lending-engine/internal/pkg/apperrors"
	"log/slog"
	"os"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, nil))

var microDeposit = decimal.RequireFromString("0.50")

func setupLedger(t *testing.T, fund string) (ledger.Service, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	_, err := store.Ledger().EnsureFund(context.Background(), decimal.RequireFromString(fund))
	require.NoError(t, err)
	return ledger.NewService(store.Ledger(), store, nil, microDeposit, logger), store
}

func openAccount(t *testing.T, svc ledger.Service, number string, balance string) *ledger.Account {
	t.Helper()
	account, err := svc.OpenAccount(context.Background(), ledger.OpenAccountParams{
		AccountNumber:  number,
		CustomerName:   "Jane Doe",
		Email:          "jane@example.com",
		InitialBalance: decimal.RequireFromString(balance),
	})
	require.NoError(t, err)
	return account
}

func TestService_OpenAccount(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupLedger(t, "1000")

	account := openAccount(t, svc, " ACC-1 ", "25.00")
	assert.Equal(t, "ACC-1", account.AccountNumber)
	assert.True(t, account.LoanRemaining.IsZero())

	_, err := svc.OpenAccount(ctx, ledger.OpenAccountParams{AccountNumber: "ACC-1"})
	assert.ErrorIs(t, err, ledger.ErrAccountExists)

	_, err = svc.OpenAccount(ctx, ledger.OpenAccountParams{AccountNumber: "ACC-2", InitialBalance: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestService_SendMicroDeposit_InsufficientFund(t *testing.T) {
	ctx := context.Background()
	svc, store := setupLedger(t, "0.40")
	account := openAccount(t, svc, "ACC-1", "0")

	_, err := svc.SendMicroDeposit(ctx, "ACC-1")

	assert.ErrorIs(t, err, ledger.ErrInsufficientFund)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientFund)

	_, err = store.Ledger().GetLatestChallenge(ctx, account.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	fund, err := svc.GetFund(ctx)
	require.NoError(t, err)
	assert.Equal(t, "0.4", fund.Balance.String())

	txs, err := svc.ListTransactions(ctx, "ACC-1")
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestService_MicroDepositRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupLedger(t, "100")
	openAccount(t, svc, "ACC-1", "0")

	challenge, err := svc.SendMicroDeposit(ctx, "ACC-1")
	require.NoError(t, err)
	assert.Equal(t, ledger.ChallengePending, challenge.Status)

	fund, err := svc.GetFund(ctx)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("99.50").Equal(fund.Balance))

	_, err = svc.ConfirmMicroDeposit(ctx, "ACC-1", decimal.RequireFromString("0.49"))
	assert.ErrorIs(t, err, ledger.ErrAmountMismatch)

	confirmed, err := svc.ConfirmMicroDeposit(ctx, "ACC-1", decimal.RequireFromString("0.5"))
	require.NoError(t, err)
	assert.Equal(t, ledger.ChallengeVerified, confirmed.Status)

	txs, err := svc.ListTransactions(ctx, "ACC-1")
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, ledger.TransactionMicroDeposit, txs[0].Type)
}

func TestService_ConfirmWithoutChallenge(t *testing.T) {
	svc, _ := setupLedger(t, "100")
	openAccount(t, svc, "ACC-1", "0")

	_, err := svc.ConfirmMicroDeposit(context.Background(), "ACC-1", microDeposit)

	assert.ErrorIs(t, err, ledger.ErrNoChallengeFound)
}

func verifiedAccount(t *testing.T, svc ledger.Service, number, balance string) {
	t.Helper()
	ctx := context.Background()
	openAccount(t, svc, number, balance)
	_, err := svc.SendMicroDeposit(ctx, number)
	require.NoError(t, err)
	_, err = svc.ConfirmMicroDeposit(ctx, number, microDeposit)
	require.NoError(t, err)
}

func TestService_Disburse(t *testing.T) {
	ctx := context.Background()

	t.Run("unverified account is refused", func(t *testing.T) {
		svc, _ := setupLedger(t, "10000")
		openAccount(t, svc, "ACC-1", "0")

		_, err := svc.Disburse(ctx, "ACC-1", decimal.NewFromInt(1200))
		assert.ErrorIs(t, err, ledger.ErrAccountNotVerified)
	})

	t.Run("credits account and tracks loan", func(t *testing.T) {
		svc, _ := setupLedger(t, "10000")
		verifiedAccount(t, svc, "ACC-1", "0")

		account, err := svc.Disburse(ctx, "ACC-1", decimal.NewFromInt(1200))
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(1200).Equal(account.Balance))
		assert.True(t, decimal.NewFromInt(1200).Equal(account.LoanRemaining))
		assert.True(t, decimal.NewFromInt(1200).Equal(account.TotalLoan))

		fund, err := svc.GetFund(ctx)
		require.NoError(t, err)
		assert.True(t, decimal.RequireFromString("8799.50").Equal(fund.Balance))

		_, err = svc.Disburse(ctx, "ACC-1", decimal.NewFromInt(100))
		assert.ErrorIs(t, err, ledger.ErrOutstandingLoanExists)
	})

	t.Run("fund too small leaves everything untouched", func(t *testing.T) {
		svc, _ := setupLedger(t, "500.50")
		verifiedAccount(t, svc, "ACC-1", "0")

		_, err := svc.Disburse(ctx, "ACC-1", decimal.NewFromInt(1200))
		assert.ErrorIs(t, err, ledger.ErrInsufficientFund)

		account, err := svc.GetAccount(ctx, "ACC-1")
		require.NoError(t, err)
		assert.True(t, account.LoanRemaining.IsZero())
		assert.True(t, account.Balance.IsZero())
	})
}

func TestService_CollectRepayment(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupLedger(t, "10000")
	verifiedAccount(t, svc, "ACC-1", "0")
	_, err := svc.Disburse(ctx, "ACC-1", decimal.NewFromInt(1000))
	require.NoError(t, err)

	collection, err := svc.CollectRepayment(ctx, "ACC-1", decimal.NewFromInt(300))
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(300).Equal(collection.Collected))
	assert.True(t, decimal.NewFromInt(700).Equal(collection.Account.LoanRemaining))
	assert.True(t, decimal.NewFromInt(300).Equal(collection.Account.LoanPaid))

	collection, err = svc.CollectRepayment(ctx, "ACC-1", decimal.NewFromInt(5000))
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(700).Equal(collection.Collected), "collection is capped at the remaining loan")

	_, err = svc.CollectRepayment(ctx, "ACC-1", decimal.NewFromInt(10))
	assert.ErrorIs(t, err, ledger.ErrNothingToCollect)

	summary, err := svc.LoanSummary(ctx, "ACC-1")
	require.NoError(t, err)
	assert.True(t, summary.Remaining.IsZero())
	assert.True(t, decimal.NewFromInt(1000).Equal(summary.Paid))

	fund, err := svc.GetFund(ctx)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("9999.50").Equal(fund.Balance))

	_, err = svc.CollectRepayment(ctx, "ACC-1", decimal.Zero)
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)
}

func TestService_DepositAndTopUp(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupLedger(t, "0")
	openAccount(t, svc, "ACC-1", "10")

	account, err := svc.Deposit(ctx, "ACC-1", decimal.RequireFromString("15.25"))
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("25.25").Equal(account.Balance))

	_, err = svc.Deposit(ctx, "ACC-404", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	fund, err := svc.TopUpFund(ctx, decimal.NewFromInt(50))
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(50).Equal(fund.Balance))

	_, err = svc.TopUpFund(ctx, decimal.NewFromInt(-5))
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)
}

package memory

import (
	"context"
	"errors"
	"lending-engine/internal/domain/ledger"
	"lending-engine/internal/domain/verification"
	"lending-engine/internal/pkg/apperrors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_WithinTxRollsBackOnError(t *testing.T) {
	store := NewStore()
	repo := store.Ledger()
	ctx := context.Background()

	_, err := repo.EnsureFund(ctx, decimal.NewFromInt(100))
	require.NoError(t, err)

	boom := errors.New("boom")
	err = store.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := repo.DebitFund(ctx, decimal.NewFromInt(40)); err != nil {
			return err
		}
		if _, err := repo.CreateAccount(ctx, &ledger.Account{AccountNumber: "ACC-1"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	fund, err := repo.GetFund(ctx)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(100).Equal(fund.Balance))

	_, err = repo.GetAccountByNumber(ctx, "ACC-1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestStore_RollbackKeepsWritesMadeOutsideTx(t *testing.T) {
	store := NewStore()
	repo := store.Ledger()
	ctx := context.Background()
	_, err := repo.EnsureFund(ctx, decimal.NewFromInt(100))
	require.NoError(t, err)

	inTx := make(chan struct{})
	outsideDone := make(chan error, 1)
	go func() {
		<-inTx
		if _, err := repo.CreditFund(ctx, decimal.NewFromInt(50)); err != nil {
			outsideDone <- err
			return
		}
		_, err := repo.CreateAccount(ctx, &ledger.Account{AccountNumber: "OTHER"})
		outsideDone <- err
	}()

	boom := errors.New("boom")
	err = store.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := repo.DebitFund(ctx, decimal.NewFromInt(30)); err != nil {
			return err
		}
		close(inTx)
		select {
		case <-outsideDone:
			t.Error("write outside the transaction completed while it was open")
		case <-time.After(50 * time.Millisecond):
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.NoError(t, <-outsideDone)

	fund, err := repo.GetFund(ctx)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(150).Equal(fund.Balance), "fund %s", fund.Balance)

	_, err = repo.GetAccountByNumber(ctx, "OTHER")
	assert.NoError(t, err)
}

func TestCreditScoreRepository_AdjustIsAtomic(t *testing.T) {
	repo := NewStore().CreditScores()
	ctx := context.Background()
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Adjust(ctx, "u1", 2, at)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	score, err := repo.GetByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 640, score.Score)

	score, err = repo.Adjust(ctx, "u1", 1000, at)
	require.NoError(t, err)
	assert.Equal(t, 900, score.Score)
}

func TestStore_NestedTxJoinsOuter(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	err := store.WithinTx(ctx, func(ctx context.Context) error {
		return store.WithinTx(ctx, func(ctx context.Context) error {
			_, err := store.Ledger().CreateAccount(ctx, &ledger.Account{AccountNumber: "ACC-1"})
			return err
		})
	})
	require.NoError(t, err)

	_, err = store.Ledger().GetAccountByNumber(ctx, "ACC-1")
	assert.NoError(t, err)
}

func TestLedgerRepository_DebitFundNeverGoesNegative(t *testing.T) {
	store := NewStore()
	repo := store.Ledger()
	ctx := context.Background()
	_, err := repo.EnsureFund(ctx, decimal.NewFromInt(10))
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.DebitFund(ctx, decimal.NewFromInt(1)); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, apperrors.ErrInsufficientFund)
			}
		}()
	}
	wg.Wait()

	fund, err := repo.GetFund(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, succeeded)
	assert.True(t, fund.Balance.IsZero())
}

func TestLedgerRepository_DuplicateAccountNumber(t *testing.T) {
	repo := NewStore().Ledger()
	ctx := context.Background()

	_, err := repo.CreateAccount(ctx, &ledger.Account{AccountNumber: "ACC-1"})
	require.NoError(t, err)
	_, err = repo.CreateAccount(ctx, &ledger.Account{AccountNumber: "ACC-1"})
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
}

func TestLedgerRepository_LatestChallenge(t *testing.T) {
	repo := NewStore().Ledger()
	ctx := context.Background()

	_, err := repo.GetLatestChallenge(ctx, 7)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = repo.CreateChallenge(ctx, &ledger.Challenge{AccountID: 7, Amount: decimal.RequireFromString("0.50")})
	require.NoError(t, err)
	second, err := repo.CreateChallenge(ctx, &ledger.Challenge{AccountID: 7, Amount: decimal.RequireFromString("0.75")})
	require.NoError(t, err)

	latest, err := repo.GetLatestChallenge(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)
}

func TestVerificationRepository_DeleteOthers(t *testing.T) {
	repo := NewStore().Verification()
	ctx := context.Background()

	for _, user := range []string{"u1", "u2", "u3"} {
		_, err := repo.Create(ctx, &verification.Link{UserID: user, AccountNumber: "ACC-1", Status: verification.StatusWaiting})
		require.NoError(t, err)
	}
	_, err := repo.Create(ctx, &verification.Link{UserID: "u4", AccountNumber: "ACC-2", Status: verification.StatusWaiting})
	require.NoError(t, err)

	deleted, err := repo.DeleteOthersByAccountNumber(ctx, "ACC-1", "u2")
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	remaining, err := repo.ListByAccountNumber(ctx, "ACC-1")
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "u2", remaining[0].UserID)

	_, err = repo.GetByUserID(ctx, "u4")
	assert.NoError(t, err)
}

func TestVerificationRepository_OneLinkPerUser(t *testing.T) {
	repo := NewStore().Verification()
	ctx := context.Background()

	_, err := repo.Create(ctx, &verification.Link{UserID: "u1", AccountNumber: "ACC-1"})
	require.NoError(t, err)
	_, err = repo.Create(ctx, &verification.Link{UserID: "u1", AccountNumber: "ACC-2"})
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
}

package memory

import (
	"context"
	"lending-engine/internal/domain/ledger"
	"lending-engine/internal/pkg/apperrors"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

type LedgerRepository struct {
	s *Store
}

var _ ledger.Repository = (*LedgerRepository)(nil)

func (r *LedgerRepository) CreateAccount(ctx context.Context, account *ledger.Account) (*ledger.Account, error) {
	defer r.s.lock(ctx)()

	for _, existing := range r.s.st.accounts {
		if existing.AccountNumber == account.AccountNumber {
			return nil, apperrors.ErrAlreadyExists
		}
	}
	created := *account
	created.ID = r.s.newID()
	created.CreatedAt = time.Now()
	created.UpdatedAt = created.CreatedAt
	r.s.st.accounts[created.ID] = created
	return &created, nil
}

func (r *LedgerRepository) GetAccountByNumber(ctx context.Context, accountNumber string) (*ledger.Account, error) {
	defer r.s.lock(ctx)()

	for _, account := range r.s.st.accounts {
		if account.AccountNumber == accountNumber {
			return &account, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *LedgerRepository) UpdateAccount(ctx context.Context, account *ledger.Account) error {
	defer r.s.lock(ctx)()

	if _, ok := r.s.st.accounts[account.ID]; !ok {
		return apperrors.ErrNotFound
	}
	account.UpdatedAt = time.Now()
	r.s.st.accounts[account.ID] = *account
	return nil
}

func (r *LedgerRepository) EnsureFund(ctx context.Context, initial decimal.Decimal) (*ledger.Fund, error) {
	defer r.s.lock(ctx)()

	if r.s.st.fund == nil {
		r.s.st.fund = &ledger.Fund{ID: ledger.FundID, Balance: initial, UpdatedAt: time.Now()}
	}
	fund := *r.s.st.fund
	return &fund, nil
}

func (r *LedgerRepository) GetFund(ctx context.Context) (*ledger.Fund, error) {
	defer r.s.lock(ctx)()

	if r.s.st.fund == nil {
		return nil, apperrors.ErrNotFound
	}
	fund := *r.s.st.fund
	return &fund, nil
}

func (r *LedgerRepository) DebitFund(ctx context.Context, amount decimal.Decimal) (*ledger.Fund, error) {
	defer r.s.lock(ctx)()

	if r.s.st.fund == nil {
		return nil, apperrors.ErrNotFound
	}
	if r.s.st.fund.Balance.LessThan(amount) {
		return nil, apperrors.ErrInsufficientFund
	}
	r.s.st.fund.Balance = r.s.st.fund.Balance.Sub(amount)
	r.s.st.fund.UpdatedAt = time.Now()
	fund := *r.s.st.fund
	return &fund, nil
}

func (r *LedgerRepository) CreditFund(ctx context.Context, amount decimal.Decimal) (*ledger.Fund, error) {
	defer r.s.lock(ctx)()

	if r.s.st.fund == nil {
		return nil, apperrors.ErrNotFound
	}
	r.s.st.fund.Balance = r.s.st.fund.Balance.Add(amount)
	r.s.st.fund.UpdatedAt = time.Now()
	fund := *r.s.st.fund
	return &fund, nil
}

func (r *LedgerRepository) CreateChallenge(ctx context.Context, challenge *ledger.Challenge) (*ledger.Challenge, error) {
	defer r.s.lock(ctx)()

	created := *challenge
	created.ID = r.s.newID()
	created.CreatedAt = time.Now()
	created.UpdatedAt = created.CreatedAt
	r.s.st.challenges[created.ID] = created
	return &created, nil
}

// GetLatestChallenge picks the highest id, which is also the newest.
func (r *LedgerRepository) GetLatestChallenge(ctx context.Context, accountID int64) (*ledger.Challenge, error) {
	defer r.s.lock(ctx)()

	var latest *ledger.Challenge
	for _, challenge := range r.s.st.challenges {
		if challenge.AccountID != accountID {
			continue
		}
		if latest == nil || challenge.ID > latest.ID {
			c := challenge
			latest = &c
		}
	}
	if latest == nil {
		return nil, apperrors.ErrNotFound
	}
	return latest, nil
}

func (r *LedgerRepository) UpdateChallengeStatus(ctx context.Context, challengeID int64, status ledger.ChallengeStatus) error {
	defer r.s.lock(ctx)()

	challenge, ok := r.s.st.challenges[challengeID]
	if !ok {
		return apperrors.ErrNotFound
	}
	challenge.Status = status
	challenge.UpdatedAt = time.Now()
	r.s.st.challenges[challengeID] = challenge
	return nil
}

func (r *LedgerRepository) RecordTransaction(ctx context.Context, tx *ledger.Transaction) (*ledger.Transaction, error) {
	defer r.s.lock(ctx)()

	created := *tx
	created.ID = r.s.newID()
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now()
	}
	r.s.st.transactions = append(r.s.st.transactions, created)
	return &created, nil
}

func (r *LedgerRepository) ListTransactions(ctx context.Context, accountID int64) ([]ledger.Transaction, error) {
	defer r.s.lock(ctx)()

	var out []ledger.Transaction
	for _, tx := range r.s.st.transactions {
		if tx.AccountID == accountID {
			out = append(out, tx)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

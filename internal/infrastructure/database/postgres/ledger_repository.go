package postgres

import (
	"context"
	"errors"
	"fmt"
	"lending-engine/internal/domain/ledger"
	"lending-engine/internal/infrastructure/monitoring"
	"lending-engine/internal/pkg/apperrors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type LedgerRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ ledger.Repository = (*LedgerRepository)(nil)

func NewLedgerRepository(db DBPool, logger *slog.Logger) *LedgerRepository {
	return &LedgerRepository{db: db, logger: logger.With("component", "LedgerRepository")}
}

func recordQuery(name string, start time.Time, err error) {
	status := "success"
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		status = "error"
	}
	monitoring.RecordDBQuery(name, status, time.Since(start))
}

const accountColumns = `id, account_number, customer_name, email, balance, loan_paid, loan_remaining, total_loan, created_at, updated_at`

func scanAccount(row pgx.Row) (*ledger.Account, error) {
	var a ledger.Account
	err := row.Scan(&a.ID, &a.AccountNumber, &a.CustomerName, &a.Email, &a.Balance,
		&a.LoanPaid, &a.LoanRemaining, &a.TotalLoan, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *LedgerRepository) CreateAccount(ctx context.Context, account *ledger.Account) (*ledger.Account, error) {
	query := `
        INSERT INTO bank_accounts (account_number, customer_name, email, balance, loan_paid, loan_remaining, total_loan, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
        RETURNING ` + accountColumns
	startTime := time.Now()

	created, err := scanAccount(conn(ctx, r.db).QueryRow(ctx, query,
		account.AccountNumber, account.CustomerName, account.Email, account.Balance,
		account.LoanPaid, account.LoanRemaining, account.TotalLoan,
	))
	recordQuery("CreateAccount", startTime, err)

	if err != nil {
		if isUniqueViolation(err) {
			r.logger.WarnContext(ctx, "Account number already exists", "account_number", account.AccountNumber)
			return nil, apperrors.ErrAlreadyExists
		}
		r.logger.ErrorContext(ctx, "Failed to insert account", "account_number", account.AccountNumber, "error", err)
		return nil, fmt.Errorf("%w: failed to insert account: %w", apperrors.ErrDatabase, err)
	}
	return created, nil
}

func (r *LedgerRepository) GetAccountByNumber(ctx context.Context, accountNumber string) (*ledger.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM bank_accounts WHERE account_number = $1`
	startTime := time.Now()

	account, err := scanAccount(conn(ctx, r.db).QueryRow(ctx, query, accountNumber))
	recordQuery("GetAccountByNumber", startTime, err)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WarnContext(ctx, "Account not found", "account_number", accountNumber)
			return nil, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to get account", "account_number", accountNumber, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return account, nil
}

func (r *LedgerRepository) UpdateAccount(ctx context.Context, account *ledger.Account) error {
	query := `
        UPDATE bank_accounts
        SET customer_name = $2, email = $3, balance = $4, loan_paid = $5, loan_remaining = $6, total_loan = $7, updated_at = NOW()
        WHERE id = $1`
	startTime := time.Now()

	cmdTag, err := conn(ctx, r.db).Exec(ctx, query, account.ID, account.CustomerName, account.Email,
		account.Balance, account.LoanPaid, account.LoanRemaining, account.TotalLoan)
	recordQuery("UpdateAccount", startTime, err)

	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to update account", "account_id", account.ID, "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *LedgerRepository) EnsureFund(ctx context.Context, initial decimal.Decimal) (*ledger.Fund, error) {
	insert := `INSERT INTO loan_fund (id, balance, updated_at) VALUES ($1, $2, NOW()) ON CONFLICT (id) DO NOTHING`
	startTime := time.Now()

	_, err := conn(ctx, r.db).Exec(ctx, insert, ledger.FundID, initial)
	recordQuery("EnsureFund", startTime, err)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to seed loan fund", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return r.GetFund(ctx)
}

func (r *LedgerRepository) scanFund(ctx context.Context, name string, query string, args ...any) (*ledger.Fund, error) {
	startTime := time.Now()

	var f ledger.Fund
	err := conn(ctx, r.db).QueryRow(ctx, query, args...).Scan(&f.ID, &f.Balance, &f.UpdatedAt)
	recordQuery(name, startTime, err)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Loan fund query failed", "query", name, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return &f, nil
}

func (r *LedgerRepository) GetFund(ctx context.Context) (*ledger.Fund, error) {
	return r.scanFund(ctx, "GetFund", `SELECT id, balance, updated_at FROM loan_fund WHERE id = $1`, ledger.FundID)
}

// DebitFund relies on the conditional update to keep concurrent debits from
// overdrawing the fund.
func (r *LedgerRepository) DebitFund(ctx context.Context, amount decimal.Decimal) (*ledger.Fund, error) {
	query := `
        UPDATE loan_fund
        SET balance = balance - $2, updated_at = NOW()
        WHERE id = $1 AND balance >= $2
        RETURNING id, balance, updated_at`

	fund, err := r.scanFund(ctx, "DebitFund", query, ledger.FundID, amount)
	if errors.Is(err, apperrors.ErrNotFound) {
		r.logger.WarnContext(ctx, "Loan fund cannot cover debit", "amount", amount.String())
		return nil, apperrors.ErrInsufficientFund
	}
	return fund, err
}

func (r *LedgerRepository) CreditFund(ctx context.Context, amount decimal.Decimal) (*ledger.Fund, error) {
	query := `
        UPDATE loan_fund
        SET balance = balance + $2, updated_at = NOW()
        WHERE id = $1
        RETURNING id, balance, updated_at`
	return r.scanFund(ctx, "CreditFund", query, ledger.FundID, amount)
}

func (r *LedgerRepository) CreateChallenge(ctx context.Context, challenge *ledger.Challenge) (*ledger.Challenge, error) {
	query := `
        INSERT INTO micro_deposit_challenges (account_id, amount, status, created_at, updated_at)
        VALUES ($1, $2, $3, NOW(), NOW())
        RETURNING id, account_id, amount, status, created_at, updated_at`
	startTime := time.Now()

	var c ledger.Challenge
	err := conn(ctx, r.db).QueryRow(ctx, query, challenge.AccountID, challenge.Amount, challenge.Status).Scan(
		&c.ID, &c.AccountID, &c.Amount, &c.Status, &c.CreatedAt, &c.UpdatedAt,
	)
	recordQuery("CreateChallenge", startTime, err)

	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert challenge", "account_id", challenge.AccountID, "error", err)
		return nil, fmt.Errorf("%w: failed to insert challenge: %w", apperrors.ErrDatabase, err)
	}
	return &c, nil
}

func (r *LedgerRepository) GetLatestChallenge(ctx context.Context, accountID int64) (*ledger.Challenge, error) {
	query := `
        SELECT id, account_id, amount, status, created_at, updated_at
        FROM micro_deposit_challenges
        WHERE account_id = $1
        ORDER BY id DESC
        LIMIT 1`
	startTime := time.Now()

	var c ledger.Challenge
	err := conn(ctx, r.db).QueryRow(ctx, query, accountID).Scan(
		&c.ID, &c.AccountID, &c.Amount, &c.Status, &c.CreatedAt, &c.UpdatedAt,
	)
	recordQuery("GetLatestChallenge", startTime, err)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to get latest challenge", "account_id", accountID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return &c, nil
}

func (r *LedgerRepository) UpdateChallengeStatus(ctx context.Context, challengeID int64, status ledger.ChallengeStatus) error {
	query := `UPDATE micro_deposit_challenges SET status = $2, updated_at = NOW() WHERE id = $1`
	startTime := time.Now()

	cmdTag, err := conn(ctx, r.db).Exec(ctx, query, challengeID, status)
	recordQuery("UpdateChallengeStatus", startTime, err)

	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to update challenge status", "challenge_id", challengeID, "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *LedgerRepository) RecordTransaction(ctx context.Context, tx *ledger.Transaction) (*ledger.Transaction, error) {
	query := `
        INSERT INTO bank_transactions (account_id, type, amount, created_at)
        VALUES ($1, $2, $3, NOW())
        RETURNING id, account_id, type, amount, created_at`
	startTime := time.Now()

	var t ledger.Transaction
	err := conn(ctx, r.db).QueryRow(ctx, query, tx.AccountID, tx.Type, tx.Amount).Scan(
		&t.ID, &t.AccountID, &t.Type, &t.Amount, &t.CreatedAt,
	)
	recordQuery("RecordTransaction", startTime, err)

	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to record transaction", "account_id", tx.AccountID, "type", tx.Type, "error", err)
		return nil, fmt.Errorf("%w: failed to record transaction: %w", apperrors.ErrDatabase, err)
	}
	return &t, nil
}

func (r *LedgerRepository) ListTransactions(ctx context.Context, accountID int64) ([]ledger.Transaction, error) {
	query := `
        SELECT id, account_id, type, amount, created_at
        FROM bank_transactions
        WHERE account_id = $1
        ORDER BY id ASC`
	startTime := time.Now()

	rows, err := conn(ctx, r.db).Query(ctx, query, accountID)
	if err != nil {
		recordQuery("ListTransactions", startTime, err)
		r.logger.ErrorContext(ctx, "Failed to query transactions", "account_id", accountID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	transactions := make([]ledger.Transaction, 0)
	for rows.Next() {
		var t ledger.Transaction
		if err := rows.Scan(&t.ID, &t.AccountID, &t.Type, &t.Amount, &t.CreatedAt); err != nil {
			recordQuery("ListTransactions", startTime, err)
			r.logger.ErrorContext(ctx, "Failed to scan transaction row", "account_id", accountID, "error", err)
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		transactions = append(transactions, t)
	}
	err = rows.Err()
	recordQuery("ListTransactions", startTime, err)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error iterating transaction rows", "account_id", accountID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return transactions, nil
}

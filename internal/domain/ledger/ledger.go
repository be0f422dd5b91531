// Package ledger is the bank side: customer accounts, the pooled loan fund,
// micro-deposit challenges and the transaction journal.
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// FundID identifies the singleton loan fund row.
const FundID int64 = 1

type TransactionType string

const (
	TransactionMicroDeposit  TransactionType = "MICRO_DEPOSIT"
	TransactionLoanDisburse  TransactionType = "LOAN_DISBURSE"
	TransactionLoanRepayment TransactionType = "LOAN_REPAYMENT"
	TransactionDeposit       TransactionType = "DEPOSIT"
)

type ChallengeStatus string

const (
	ChallengePending  ChallengeStatus = "PENDING"
	ChallengeVerified ChallengeStatus = "VERIFIED"
)

type Account struct {
	ID            int64
	AccountNumber string
	CustomerName  string
	Email         string
	Balance       decimal.Decimal
	LoanPaid      decimal.Decimal
	LoanRemaining decimal.Decimal
	TotalLoan     decimal.Decimal
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Fund struct {
	ID        int64
	Balance   decimal.Decimal
	UpdatedAt time.Time
}

type Transaction struct {
	ID        int64
	AccountID int64
	Type      TransactionType
	Amount    decimal.Decimal
	CreatedAt time.Time
}

// Challenge is a micro deposit awaiting confirmation. The most recent
// challenge of an account is the authoritative one.
type Challenge struct {
	ID        int64
	AccountID int64
	Amount    decimal.Decimal
	Status    ChallengeStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

type LoanSummary struct {
	AccountNumber string
	Paid          decimal.Decimal
	Remaining     decimal.Decimal
	Total         decimal.Decimal
}

type OpenAccountParams struct {
	AccountNumber  string
	CustomerName   string
	Email          string
	InitialBalance decimal.Decimal
}

// Collection is the result of a repayment pulled from an account.
type Collection struct {
	Collected decimal.Decimal
	Account   *Account
}

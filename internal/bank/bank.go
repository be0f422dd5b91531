// Package bank is the loan side's view of the bank ledger. Calls go either
// in-process or over HTTP and always report a structured Outcome.
package bank

import (
	"context"
	"lending-engine/internal/domain/ledger"
	"lending-engine/internal/pkg/apperrors"

	"github.com/shopspring/decimal"
)

// Reason codes carried by unsuccessful outcomes.
const (
	ReasonAccountNotFound       = ledger.CodeAccountNotFound
	ReasonInsufficientFund      = ledger.CodeInsufficientFund
	ReasonNoChallengeFound      = ledger.CodeNoChallengeFound
	ReasonAmountMismatch        = ledger.CodeAmountMismatch
	ReasonAccountNotVerified    = ledger.CodeAccountNotVerified
	ReasonOutstandingLoanExists = ledger.CodeOutstandingLoanExists
	ReasonNothingToCollect      = ledger.CodeNothingToCollect
	ReasonInvalidAmount         = ledger.CodeInvalidAmount
	ReasonRemoteError           = "REMOTE_ERROR"
)

type Outcome struct {
	Success bool
	Reason  string
	Message string
	// Amount is the amount actually moved, when the operation moves money.
	Amount decimal.Decimal
}

// Err converts a failed outcome into an error classified by its reason.
// Insufficient fund keeps its own kind; every other remote refusal is a
// conflict.
func (o *Outcome) Err() error {
	if o == nil || o.Success {
		return nil
	}
	kind := apperrors.ErrConflict
	if o.Reason == ReasonInsufficientFund {
		kind = apperrors.ErrInsufficientFund
	}
	return apperrors.New(o.Reason, o.Message, kind)
}

type Summary struct {
	AccountNumber string
	Paid          decimal.Decimal
	Remaining     decimal.Decimal
	Total         decimal.Decimal
}

// Client is the set of remote ledger operations the lending flows use. A
// non-nil error means the call itself failed; refusals come back as an
// unsuccessful Outcome.
type Client interface {
	SendChallenge(ctx context.Context, accountNumber string) (*Outcome, error)

	ConfirmChallenge(ctx context.Context, accountNumber string, amount decimal.Decimal) (*Outcome, error)

	Disburse(ctx context.Context, accountNumber string, amount decimal.Decimal) (*Outcome, error)

	CollectRepayment(ctx context.Context, accountNumber string, amount decimal.Decimal) (*Outcome, error)

	QueryOutstanding(ctx context.Context, accountNumber string) (*Summary, error)
}

package bank

import (
	"context"
	"errors"
	"fmt"
	"lending-engine/internal/domain/ledger"
	"lending-engine/internal/pkg/apperrors"

	"github.com/shopspring/decimal"
)

// LocalClient calls the ledger service in the same process.
type LocalClient struct {
	ledger ledger.Service
}

func NewLocalClient(svc ledger.Service) *LocalClient {
	return &LocalClient{ledger: svc}
}

func (c *LocalClient) SendChallenge(ctx context.Context, accountNumber string) (*Outcome, error) {
	challenge, err := c.ledger.SendMicroDeposit(ctx, accountNumber)
	if err != nil {
		return outcomeFromError(err)
	}
	return &Outcome{
		Success: true,
		Message: fmt.Sprintf("A micro deposit has been sent to account %s", accountNumber),
		Amount:  challenge.Amount,
	}, nil
}

func (c *LocalClient) ConfirmChallenge(ctx context.Context, accountNumber string, amount decimal.Decimal) (*Outcome, error) {
	if _, err := c.ledger.ConfirmMicroDeposit(ctx, accountNumber, amount); err != nil {
		return outcomeFromError(err)
	}
	return &Outcome{Success: true, Message: "Account verified successfully", Amount: amount}, nil
}

func (c *LocalClient) Disburse(ctx context.Context, accountNumber string, amount decimal.Decimal) (*Outcome, error) {
	if _, err := c.ledger.Disburse(ctx, accountNumber, amount); err != nil {
		return outcomeFromError(err)
	}
	return &Outcome{
		Success: true,
		Message: fmt.Sprintf("Loan of %s disbursed to account %s", amount.StringFixed(2), accountNumber),
		Amount:  amount,
	}, nil
}

func (c *LocalClient) CollectRepayment(ctx context.Context, accountNumber string, amount decimal.Decimal) (*Outcome, error) {
	collection, err := c.ledger.CollectRepayment(ctx, accountNumber, amount)
	if err != nil {
		return outcomeFromError(err)
	}
	return &Outcome{
		Success: true,
		Message: fmt.Sprintf("Repayment of %s received from account %s", collection.Collected.StringFixed(2), accountNumber),
		Amount:  collection.Collected,
	}, nil
}

func (c *LocalClient) QueryOutstanding(ctx context.Context, accountNumber string) (*Summary, error) {
	summary, err := c.ledger.LoanSummary(ctx, accountNumber)
	if err != nil {
		outcome, infraErr := outcomeFromError(err)
		if infraErr != nil {
			return nil, infraErr
		}
		return nil, outcome.Err()
	}
	return &Summary{
		AccountNumber: summary.AccountNumber,
		Paid:          summary.Paid,
		Remaining:     summary.Remaining,
		Total:         summary.Total,
	}, nil
}

// outcomeFromError turns domain refusals into outcomes and passes
// infrastructure failures through as errors.
func outcomeFromError(err error) (*Outcome, error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && !errors.Is(err, apperrors.ErrDatabase) {
		return &Outcome{Success: false, Reason: appErr.Code, Message: appErr.Message}, nil
	}
	var validationErr *apperrors.ValidationError
	if errors.As(err, &validationErr) {
		return &Outcome{Success: false, Reason: ReasonInvalidAmount, Message: validationErr.Message}, nil
	}
	return nil, err
}

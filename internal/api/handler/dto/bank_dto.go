package dto

import (
	"lending-engine/internal/domain/ledger"
	"lending-engine/internal/pkg/apperrors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type OpenAccountRequest struct {
	AccountNumber  string `json:"accountNumber"`
	CustomerName   string `json:"customerName"`
	Email          string `json:"email"`
	InitialBalance string `json:"initialBalance"`
}

func (r *OpenAccountRequest) Validate() (ledger.OpenAccountParams, error) {
	if err := requireAccountNumber(r.AccountNumber); err != nil {
		return ledger.OpenAccountParams{}, err
	}
	params := ledger.OpenAccountParams{
		AccountNumber:  strings.TrimSpace(r.AccountNumber),
		CustomerName:   strings.TrimSpace(r.CustomerName),
		Email:          strings.TrimSpace(r.Email),
		InitialBalance: decimal.Zero,
	}
	if r.InitialBalance != "" {
		balance, err := decimal.NewFromString(r.InitialBalance)
		if err != nil || balance.IsNegative() {
			return params, apperrors.NewValidationError("initialBalance", "initialBalance must be a non-negative decimal")
		}
		params.InitialBalance = balance
	}
	return params, nil
}

type AmountRequest struct {
	Amount string `json:"amount"`
}

// BankOperationRequest is the body of the bank operations called by the
// lending side. Its JSON shape matches bank.OperationRequest.
type BankOperationRequest struct {
	AccountNumber string `json:"accountNumber"`
	Amount        string `json:"amount,omitempty"`
}

func (r *BankOperationRequest) ValidateAccount() error {
	return requireAccountNumber(r.AccountNumber)
}

func (r *BankOperationRequest) ValidateWithAmount() (decimal.Decimal, error) {
	if err := requireAccountNumber(r.AccountNumber); err != nil {
		return decimal.Zero, err
	}
	return ParseAmount("amount", r.Amount)
}

// BankOperationResponse matches bank.OperationResponse.
type BankOperationResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Amount  string `json:"amount,omitempty"`
}

type TransactionResponse struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Amount    string    `json:"amount"`
	CreatedAt time.Time `json:"createdAt"`
}

type AccountResponse struct {
	ID            int64                 `json:"id"`
	AccountNumber string                `json:"accountNumber"`
	CustomerName  string                `json:"customerName"`
	Email         string                `json:"email,omitempty"`
	Balance       string                `json:"balance"`
	LoanPaid      string                `json:"loanPaid"`
	LoanRemaining string                `json:"loanRemaining"`
	TotalLoan     string                `json:"totalLoan"`
	CreatedAt     time.Time             `json:"createdAt"`
	UpdatedAt     time.Time             `json:"updatedAt"`
	Transactions  []TransactionResponse `json:"transactions,omitempty"`
}

func NewAccountResponse(account *ledger.Account, transactions []ledger.Transaction) AccountResponse {
	resp := AccountResponse{
		ID:            account.ID,
		AccountNumber: account.AccountNumber,
		CustomerName:  account.CustomerName,
		Email:         account.Email,
		Balance:       Money(account.Balance),
		LoanPaid:      Money(account.LoanPaid),
		LoanRemaining: Money(account.LoanRemaining),
		TotalLoan:     Money(account.TotalLoan),
		CreatedAt:     account.CreatedAt,
		UpdatedAt:     account.UpdatedAt,
	}
	for _, tx := range transactions {
		resp.Transactions = append(resp.Transactions, TransactionResponse{
			ID:        tx.ID,
			Type:      string(tx.Type),
			Amount:    Money(tx.Amount),
			CreatedAt: tx.CreatedAt,
		})
	}
	return resp
}

type FundResponse struct {
	Balance   string    `json:"balance"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func NewFundResponse(fund *ledger.Fund) FundResponse {
	return FundResponse{Balance: Money(fund.Balance), UpdatedAt: fund.UpdatedAt}
}

// LoanSummaryResponse matches bank.SummaryResponse.
type LoanSummaryResponse struct {
	AccountNumber string `json:"accountNumber"`
	Paid          string `json:"loanPaid"`
	Remaining     string `json:"loanRemaining"`
	Total         string `json:"totalLoan"`
}

func NewLoanSummaryResponse(summary *ledger.LoanSummary) LoanSummaryResponse {
	return LoanSummaryResponse{
		AccountNumber: summary.AccountNumber,
		Paid:          Money(summary.Paid),
		Remaining:     Money(summary.Remaining),
		Total:         Money(summary.Total),
	}
}

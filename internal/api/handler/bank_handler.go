package handler

import (
	"fmt"
	"lending-engine/internal/api/handler/dto"
	"lending-engine/internal/domain/ledger"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// BankHandler exposes the ledger under /api/bank. Lending-side instances
// running with bank.mode=http call the operation endpoints through
// bank.HTTPClient.
type BankHandler struct {
	ledger ledger.Service
	logger *slog.Logger
}

func NewBankHandler(s ledger.Service, l *slog.Logger) *BankHandler {
	return &BankHandler{
		ledger: s,
		logger: l.With("component", "BankHandler"),
	}
}

// OpenAccount onboards a customer account.
//
// @Summary Open a bank account
// @Tags Bank
// @Accept json
// @Produce json
// @Param request body dto.OpenAccountRequest true "Account details"
// @Success 201 {object} dto.AccountResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse "Account number already registered"
// @Router /api/bank/accounts [post]
// @Security BearerAuth
func (h *BankHandler) OpenAccount(w http.ResponseWriter, r *http.Request) {
	var req dto.OpenAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	params, err := req.Validate()
	if err != nil {
		respondError(w, err)
		return
	}

	account, err := h.ledger.OpenAccount(r.Context(), params)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, dto.NewAccountResponse(account, nil))
}

// GetAccount returns an account with its transaction journal.
//
// @Summary Get a bank account
// @Tags Bank
// @Produce json
// @Param accountNumber path string true "Account number"
// @Success 200 {object} dto.AccountResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/bank/accounts/{accountNumber} [get]
// @Security BearerAuth
func (h *BankHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	accountNumber := chi.URLParam(r, "accountNumber")

	account, err := h.ledger.GetAccount(r.Context(), accountNumber)
	if err != nil {
		respondError(w, err)
		return
	}
	transactions, err := h.ledger.ListTransactions(r.Context(), accountNumber)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewAccountResponse(account, transactions))
}

// Deposit credits cash to an account.
//
// @Summary Deposit into an account
// @Tags Bank
// @Accept json
// @Produce json
// @Param accountNumber path string true "Account number"
// @Param request body dto.AmountRequest true "Amount"
// @Success 200 {object} dto.AccountResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/bank/accounts/{accountNumber}/deposit [post]
// @Security BearerAuth
func (h *BankHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	var req dto.AmountRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	amount, err := dto.ParseAmount("amount", req.Amount)
	if err != nil {
		respondError(w, err)
		return
	}

	account, err := h.ledger.Deposit(r.Context(), chi.URLParam(r, "accountNumber"), amount)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewAccountResponse(account, nil))
}

// GetFund returns the pooled loan fund balance.
//
// @Summary Get the loan fund
// @Tags Bank
// @Produce json
// @Success 200 {object} dto.FundResponse
// @Router /api/bank/fund [get]
// @Security BearerAuth
func (h *BankHandler) GetFund(w http.ResponseWriter, r *http.Request) {
	fund, err := h.ledger.GetFund(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewFundResponse(fund))
}

// TopUpFund adds money to the loan fund.
//
// @Summary Top up the loan fund
// @Tags Bank
// @Accept json
// @Produce json
// @Param request body dto.AmountRequest true "Amount"
// @Success 200 {object} dto.FundResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/bank/fund/deposit [post]
// @Security BearerAuth
func (h *BankHandler) TopUpFund(w http.ResponseWriter, r *http.Request) {
	var req dto.AmountRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	amount, err := dto.ParseAmount("amount", req.Amount)
	if err != nil {
		respondError(w, err)
		return
	}

	fund, err := h.ledger.TopUpFund(r.Context(), amount)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewFundResponse(fund))
}

// SendMicroDeposit moves the micro deposit from the fund and records a new
// challenge for the account.
//
// @Summary Send a micro deposit
// @Tags Bank
// @Accept json
// @Produce json
// @Param request body dto.BankOperationRequest true "Account number"
// @Success 200 {object} dto.BankOperationResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ErrorResponse "Insufficient fund"
// @Router /api/bank/verify [post]
// @Security BearerAuth
func (h *BankHandler) SendMicroDeposit(w http.ResponseWriter, r *http.Request) {
	var req dto.BankOperationRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := req.ValidateAccount(); err != nil {
		respondError(w, err)
		return
	}

	challenge, err := h.ledger.SendMicroDeposit(r.Context(), req.AccountNumber)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.BankOperationResponse{
		Success: true,
		Message: fmt.Sprintf("A micro deposit has been sent to account %s", req.AccountNumber),
		Amount:  dto.Money(challenge.Amount),
	})
}

// ConfirmMicroDeposit checks the amount against the latest challenge.
//
// @Summary Confirm a micro deposit
// @Tags Bank
// @Accept json
// @Produce json
// @Param request body dto.BankOperationRequest true "Account number and amount"
// @Success 200 {object} dto.BankOperationResponse
// @Failure 404 {object} dto.ErrorResponse "No challenge found"
// @Failure 409 {object} dto.ErrorResponse "Amount mismatch"
// @Router /api/bank/verify-deposit [post]
// @Security BearerAuth
func (h *BankHandler) ConfirmMicroDeposit(w http.ResponseWriter, r *http.Request) {
	var req dto.BankOperationRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	amount, err := req.ValidateWithAmount()
	if err != nil {
		respondError(w, err)
		return
	}

	if _, err := h.ledger.ConfirmMicroDeposit(r.Context(), req.AccountNumber, amount); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.BankOperationResponse{
		Success: true,
		Message: "Account verified successfully",
		Amount:  dto.Money(amount),
	})
}

// Disburse pays a loan out of the fund into the account.
//
// @Summary Disburse a loan
// @Tags Bank
// @Accept json
// @Produce json
// @Param request body dto.BankOperationRequest true "Account number and amount"
// @Success 200 {object} dto.BankOperationResponse
// @Failure 409 {object} dto.ErrorResponse "Account not verified or outstanding loan"
// @Failure 422 {object} dto.ErrorResponse "Insufficient fund"
// @Router /api/bank/loan [post]
// @Security BearerAuth
func (h *BankHandler) Disburse(w http.ResponseWriter, r *http.Request) {
	var req dto.BankOperationRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	amount, err := req.ValidateWithAmount()
	if err != nil {
		respondError(w, err)
		return
	}

	if _, err := h.ledger.Disburse(r.Context(), req.AccountNumber, amount); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.BankOperationResponse{
		Success: true,
		Message: fmt.Sprintf("Loan of %s disbursed to account %s", dto.Money(amount), req.AccountNumber),
		Amount:  dto.Money(amount),
	})
}

// CollectRepayment pulls up to amount from the account back into the fund.
//
// @Summary Collect a repayment
// @Tags Bank
// @Accept json
// @Produce json
// @Param request body dto.BankOperationRequest true "Account number and amount"
// @Success 200 {object} dto.BankOperationResponse "Amount holds what was actually collected"
// @Failure 409 {object} dto.ErrorResponse "Nothing to collect"
// @Router /api/bank/repay [post]
// @Security BearerAuth
func (h *BankHandler) CollectRepayment(w http.ResponseWriter, r *http.Request) {
	var req dto.BankOperationRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	amount, err := req.ValidateWithAmount()
	if err != nil {
		respondError(w, err)
		return
	}

	collection, err := h.ledger.CollectRepayment(r.Context(), req.AccountNumber, amount)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.BankOperationResponse{
		Success: true,
		Message: fmt.Sprintf("Repayment of %s received from account %s", dto.Money(collection.Collected), req.AccountNumber),
		Amount:  dto.Money(collection.Collected),
	})
}

// LoanSummary reports paid, remaining and total loan amounts of an account.
//
// @Summary Get the loan summary of an account
// @Tags Bank
// @Produce json
// @Param accountNumber path string true "Account number"
// @Success 200 {object} dto.LoanSummaryResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/bank/loan-summary/{accountNumber} [get]
// @Security BearerAuth
func (h *BankHandler) LoanSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.ledger.LoanSummary(r.Context(), chi.URLParam(r, "accountNumber"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewLoanSummaryResponse(summary))
}

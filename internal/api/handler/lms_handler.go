package handler

import (
	"errors"
	"lending-engine/internal/api/handler/dto"
	"lending-engine/internal/domain/creditscore"
	"lending-engine/internal/domain/loan"
	"lending-engine/internal/domain/verification"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// LMSHandler serves the borrower-facing lending endpoints under /api/lms.
type LMSHandler struct {
	verification verification.Service
	loans        loan.Service
	scores       creditscore.Service
	logger       *slog.Logger
}

func NewLMSHandler(v verification.Service, loans loan.Service, scores creditscore.Service, l *slog.Logger) *LMSHandler {
	return &LMSHandler{
		verification: v,
		loans:        loans,
		scores:       scores,
		logger:       l.With("component", "LMSHandler"),
	}
}

// RequestVerification starts or repeats the micro deposit check of a bank account.
//
// @Summary Request bank account verification
// @Description Sends a micro deposit to the account. A user may request at most twice per link.
// @Tags Verification
// @Accept json
// @Produce json
// @Param request body dto.VerificationRequest true "Account number"
// @Success 200 {object} dto.VerificationResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse "Already verified, claimed by another user or retries exhausted"
// @Router /api/lms/account/send [post]
// @Security BearerAuth
func (h *LMSHandler) RequestVerification(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		respondError(w, err)
		return
	}
	var req dto.VerificationRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, err)
		return
	}

	result, err := h.verification.RequestVerification(r.Context(), caller, req.AccountNumber)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewVerificationResponse(result))
}

// ConfirmDeposit completes verification with the micro deposit amount.
//
// @Summary Confirm the micro deposit amount
// @Tags Verification
// @Accept json
// @Produce json
// @Param request body dto.ConfirmDepositRequest true "Account number and received amount"
// @Success 200 {object} dto.VerificationResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse "No pending verification"
// @Failure 409 {object} dto.ErrorResponse "Amount mismatch"
// @Router /api/lms/account/confirm-deposit [post]
// @Security BearerAuth
func (h *LMSHandler) ConfirmDeposit(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		respondError(w, err)
		return
	}
	var req dto.ConfirmDepositRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	amount, err := req.Validate()
	if err != nil {
		respondError(w, err)
		return
	}

	result, err := h.verification.ConfirmVerification(r.Context(), caller, req.AccountNumber, amount)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewVerificationResponse(result))
}

// Profile returns the caller with their linked account and credit score.
//
// @Summary Get the caller profile
// @Tags Profile
// @Produce json
// @Success 200 {object} dto.ProfileResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /api/lms/profile [get]
// @Security BearerAuth
func (h *LMSHandler) Profile(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		respondError(w, err)
		return
	}

	link, err := h.verification.GetLink(r.Context(), caller.UserID)
	if err != nil && !errors.Is(err, verification.ErrLinkNotFound) {
		respondError(w, err)
		return
	}
	score, err := h.scores.Get(r.Context(), caller.UserID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewProfileResponse(caller, link, score))
}

// CreditScore returns the caller's credit score.
//
// @Summary Get the caller credit score
// @Tags Profile
// @Produce json
// @Success 200 {object} dto.CreditScoreResponse
// @Router /api/lms/credit-score [get]
// @Security BearerAuth
func (h *LMSHandler) CreditScore(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		respondError(w, err)
		return
	}

	score, err := h.scores.Get(r.Context(), caller.UserID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewCreditScoreResponse(score))
}

// Apply submits a loan application against a verified account.
//
// @Summary Apply for a loan
// @Tags Loans
// @Accept json
// @Produce json
// @Param request body dto.ApplyLoanRequest true "Application"
// @Success 201 {object} dto.ApplyLoanResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse "Account not verified, score too low or outstanding loan"
// @Router /api/lms/loan/apply [post]
// @Security BearerAuth
func (h *LMSHandler) Apply(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		respondError(w, err)
		return
	}
	var req dto.ApplyLoanRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	applyReq, err := req.Validate()
	if err != nil {
		respondError(w, err)
		return
	}

	result, err := h.loans.Apply(r.Context(), caller, applyReq)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, dto.NewApplyLoanResponse(result))
}

// Repay pays toward the active loan of an account. Send an Idempotency-Key
// header to make retries safe.
//
// @Summary Repay a loan
// @Tags Loans
// @Accept json
// @Produce json
// @Param Idempotency-Key header string false "Client generated key for safe retries"
// @Param request body dto.RepayRequest true "Account number and amount"
// @Success 200 {object} dto.RepayResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse "Loan belongs to another user"
// @Failure 404 {object} dto.ErrorResponse "No outstanding loan"
// @Failure 409 {object} dto.ErrorResponse "Bank refused the collection"
// @Router /api/lms/loan/repay [post]
// @Security BearerAuth
func (h *LMSHandler) Repay(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		respondError(w, err)
		return
	}
	var req dto.RepayRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	amount, err := req.Validate()
	if err != nil {
		respondError(w, err)
		return
	}

	result, err := h.loans.Repay(r.Context(), caller, req.AccountNumber, amount)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewRepayResponse(result))
}

// ApplicationsByAccount lists the caller's applications on an account.
//
// @Summary List applications of an account
// @Tags Loans
// @Produce json
// @Param accountNumber path string true "Account number"
// @Success 200 {array} dto.ApplicationResponse
// @Router /api/lms/applications/{accountNumber} [get]
// @Security BearerAuth
func (h *LMSHandler) ApplicationsByAccount(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		respondError(w, err)
		return
	}

	apps, err := h.loans.ListApplicationsByAccount(r.Context(), caller, chi.URLParam(r, "accountNumber"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewApplicationResponses(apps))
}

// LoansByAccount lists the caller's loans on an account.
//
// @Summary List loans of an account
// @Tags Loans
// @Produce json
// @Param accountNumber path string true "Account number"
// @Success 200 {array} dto.LoanResponse
// @Router /api/lms/loans/account/{accountNumber} [get]
// @Security BearerAuth
func (h *LMSHandler) LoansByAccount(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		respondError(w, err)
		return
	}

	loans, err := h.loans.ListLoansByAccount(r.Context(), caller, chi.URLParam(r, "accountNumber"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewLoanResponses(loans))
}

// ActiveLoan returns the outstanding loan of an account with its schedule.
//
// @Summary Get the active loan of an account
// @Tags Loans
// @Produce json
// @Param accountNumber path string true "Account number"
// @Success 200 {object} dto.LoanResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/lms/active/{accountNumber} [get]
// @Security BearerAuth
func (h *LMSHandler) ActiveLoan(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		respondError(w, err)
		return
	}

	details, err := h.loans.ActiveLoan(r.Context(), caller, chi.URLParam(r, "accountNumber"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewLoanDetailsResponse(details))
}

// Schedule returns a loan with its installments and repayments.
//
// @Summary Get a loan schedule
// @Tags Loans
// @Produce json
// @Param loanID path int true "Loan ID"
// @Success 200 {object} dto.LoanResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/lms/loans/{loanID}/schedule [get]
// @Security BearerAuth
func (h *LMSHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		respondError(w, err)
		return
	}
	loanID, err := int64FromURL(r, "loanID")
	if err != nil {
		respondError(w, err)
		return
	}

	details, err := h.loans.GetLoan(r.Context(), caller, loanID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewLoanDetailsResponse(details))
}

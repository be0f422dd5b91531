package ledger

import "lending-engine/internal/pkg/apperrors"

const (
	CodeAccountNotFound       = "ACCOUNT_NOT_FOUND"
	CodeAccountExists         = "ACCOUNT_ALREADY_EXISTS"
	CodeInsufficientFund      = "INSUFFICIENT_FUND"
	CodeNoChallengeFound      = "NO_CHALLENGE_FOUND"
	CodeAmountMismatch        = "AMOUNT_MISMATCH"
	CodeAccountNotVerified    = "ACCOUNT_NOT_VERIFIED"
	CodeOutstandingLoanExists = "OUTSTANDING_LOAN_EXISTS"
	CodeNothingToCollect      = "NOTHING_TO_COLLECT"
	CodeInvalidAmount         = "INVALID_AMOUNT"
)

var (
	ErrAccountNotFound       = apperrors.New(CodeAccountNotFound, "account not found", apperrors.ErrNotFound)
	ErrAccountExists         = apperrors.New(CodeAccountExists, "account number already registered", apperrors.ErrAlreadyExists)
	ErrInsufficientFund      = apperrors.New(CodeInsufficientFund, "insufficient bank funds", apperrors.ErrInsufficientFund)
	ErrNoChallengeFound      = apperrors.New(CodeNoChallengeFound, "no micro deposit found for account", apperrors.ErrNotFound)
	ErrAmountMismatch        = apperrors.New(CodeAmountMismatch, "micro deposit amount does not match", apperrors.ErrConflict)
	ErrAccountNotVerified    = apperrors.New(CodeAccountNotVerified, "account is not verified for loan disbursement", apperrors.ErrConflict)
	ErrOutstandingLoanExists = apperrors.New(CodeOutstandingLoanExists, "previous loan must be fully repaid first", apperrors.ErrConflict)
	ErrNothingToCollect      = apperrors.New(CodeNothingToCollect, "no repayment possible: no loan remaining or insufficient balance", apperrors.ErrConflict)
	ErrInvalidAmount         = apperrors.New(CodeInvalidAmount, "amount must be greater than zero", apperrors.ErrInvalidArgument)
)

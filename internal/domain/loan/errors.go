package loan

import (
	"lending-engine/internal/bank"
	"lending-engine/internal/pkg/apperrors"
)

var (
	ErrApplicationNotFound   = apperrors.New("APPLICATION_NOT_FOUND", "loan application not found", apperrors.ErrNotFound)
	ErrApplicationClosed     = apperrors.New("APPLICATION_CLOSED", "loan application has already been decided", apperrors.ErrConflict)
	ErrLoanNotFound          = apperrors.New("LOAN_NOT_FOUND", "loan not found", apperrors.ErrNotFound)
	ErrAccountNotVerified    = apperrors.New(bank.ReasonAccountNotVerified, "bank account is not verified by the applicant", apperrors.ErrConflict)
	ErrOutstandingLoanExists = apperrors.New(bank.ReasonOutstandingLoanExists, "previous loan must be fully repaid first", apperrors.ErrConflict)
	ErrCreditScoreTooLow     = apperrors.New("CREDIT_SCORE_TOO_LOW", "credit score is below the required minimum", apperrors.ErrConflict)
	ErrNoOutstandingLoan     = apperrors.New("NO_OUTSTANDING_LOAN", "no outstanding loan for this account", apperrors.ErrNotFound)
	ErrNotOwner              = apperrors.New("NOT_OWNER", "loan does not belong to the caller", apperrors.ErrUnauthorized)
)

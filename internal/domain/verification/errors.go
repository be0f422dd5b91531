package verification

import (
	"lending-engine/internal/bank"
	"lending-engine/internal/pkg/apperrors"
)

const (
	CodeAlreadyVerifiedByOther = "ALREADY_VERIFIED_BY_OTHER"
	CodeAlreadyVerified        = "ALREADY_VERIFIED"
	CodeRetryExceeded          = "RETRY_EXCEEDED"
)

var (
	ErrAlreadyVerifiedByOther = apperrors.New(CodeAlreadyVerifiedByOther, "account is already verified by another user", apperrors.ErrConflict)
	ErrAlreadyVerified        = apperrors.New(CodeAlreadyVerified, "your bank account is already verified", apperrors.ErrConflict)
	ErrRetryExceeded          = apperrors.New(CodeRetryExceeded, "maximum verification attempts reached", apperrors.ErrConflict)
	ErrAmountMismatch         = apperrors.New(bank.ReasonAmountMismatch, "micro deposit amount does not match", apperrors.ErrConflict)
	ErrNoChallengeFound       = apperrors.New(bank.ReasonNoChallengeFound, "no pending verification for this account", apperrors.ErrNotFound)
	ErrLinkNotFound           = apperrors.New("LINK_NOT_FOUND", "no bank account linked", apperrors.ErrNotFound)
)

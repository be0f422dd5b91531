// Package dto holds the JSON request and response shapes of the HTTP API.
// Money is always a string with two decimals.
package dto

import (
	"lending-engine/internal/pkg/apperrors"
	"strings"

	"github.com/shopspring/decimal"
)

type ErrorDetail struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type TokenRequest struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}

func (r *TokenRequest) Validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return apperrors.NewValidationError("userId", "userId is required")
	}
	switch strings.ToUpper(r.Role) {
	case "", "USER", "ADMIN":
		return nil
	default:
		return apperrors.NewValidationError("role", "role must be USER or ADMIN")
	}
}

type TokenResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expiresAt"`
}

func Money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// ParseAmount parses a positive money amount from a request field.
func ParseAmount(field, raw string) (decimal.Decimal, error) {
	if strings.TrimSpace(raw) == "" {
		return decimal.Zero, apperrors.NewValidationError(field, field+" is required")
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, apperrors.NewValidationError(field, field+" must be a decimal number")
	}
	if !amount.IsPositive() {
		return decimal.Zero, apperrors.NewValidationError(field, field+" must be greater than zero")
	}
	return amount, nil
}

func requireAccountNumber(accountNumber string) error {
	if strings.TrimSpace(accountNumber) == "" {
		return apperrors.NewValidationError("accountNumber", "accountNumber is required")
	}
	return nil
}

package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("resource not found")

	ErrInvalidArgument = errors.New("invalid argument")

	ErrValidation = errors.New("validation failed")

	ErrAlreadyExists = errors.New("resource already exists")

	ErrDatabase = errors.New("database error")

	ErrInternalServer = errors.New("internal server error")

	ErrInsufficientFund = errors.New("insufficient fund")

	ErrUnauthorized = errors.New("unauthorized")

	ErrForbidden = errors.New("forbidden")

	ErrConflict = errors.New("resource conflict")
)

type ValidationError struct {
	Field   string
	Message string
	Cause   error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}

func NewValidationError(field, message string) error {
	return fmt.Errorf("%w: %w", ErrValidation, &ValidationError{Field: field, Message: message})
}

// AppError carries a machine-readable code. Cause is normally one of the
// kind sentinels above so callers can classify with errors.Is.
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(code, message string, kind error) *AppError {
	return &AppError{Code: code, Message: message, Cause: kind}
}

// Code returns the code of the outermost AppError in the chain, or "".
func Code(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// Kind maps an error to the kind sentinel it wraps, defaulting to
// ErrInternalServer.
func Kind(err error) error {
	for _, kind := range []error{
		ErrNotFound,
		ErrConflict,
		ErrAlreadyExists,
		ErrInsufficientFund,
		ErrUnauthorized,
		ErrForbidden,
		ErrInvalidArgument,
		ErrValidation,
		ErrDatabase,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return ErrInternalServer
}

func WrapDatabaseError(cause error, message string) error {
	return &AppError{
		Code:    "DB_ERROR",
		Message: message,
		Cause:   fmt.Errorf("%w: %w", ErrDatabase, cause),
	}
}

package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"lending-engine/internal/api/handler/dto"
	"lending-engine/internal/identity"
	"lending-engine/internal/pkg/apperrors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

var errMissingIdentity = apperrors.New("UNAUTHENTICATED", "missing or invalid credentials", apperrors.ErrUnauthorized)

func decodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return fmt.Errorf("%w: no request body", apperrors.ErrInvalidArgument)
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err)
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		slog.Default().Error("Failed to marshal JSON response", "error", err)
		http.Error(w, `{"error":{"message":"Internal server error"}}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(response)
}

// respondError maps err to a status by its kind. Domain errors keep their
// code and message; anything unclassified is logged and hidden behind a
// generic 500.
func respondError(w http.ResponseWriter, err error) {
	status, code, message, field := http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred.", ""

	switch kind := apperrors.Kind(err); kind {
	case apperrors.ErrNotFound:
		status, code = http.StatusNotFound, "NOT_FOUND"
	case apperrors.ErrConflict, apperrors.ErrAlreadyExists:
		status, code = http.StatusConflict, "CONFLICT"
	case apperrors.ErrInsufficientFund:
		status, code = http.StatusUnprocessableEntity, "INSUFFICIENT_FUND"
	case apperrors.ErrUnauthorized, apperrors.ErrForbidden:
		status, code = http.StatusForbidden, "FORBIDDEN"
	case apperrors.ErrInvalidArgument, apperrors.ErrValidation:
		status, code = http.StatusBadRequest, "INVALID_ARGUMENT"
	default:
		slog.Default().Error("Unhandled internal error", "error", err)
	}

	if status != http.StatusInternalServerError {
		message = err.Error()
		var validationError *apperrors.ValidationError
		var appErr *apperrors.AppError
		switch {
		case errors.As(err, &validationError):
			code, message, field = "VALIDATION_FAILED", validationError.Message, validationError.Field
		case errors.As(err, &appErr):
			message = appErr.Message
			if appErr.Code != "" {
				code = appErr.Code
			}
		}
	}
	if errors.Is(err, errMissingIdentity) {
		status = http.StatusUnauthorized
	}

	respondJSON(w, status, dto.ErrorResponse{
		Error: dto.ErrorDetail{
			Code:    code,
			Message: message,
			Field:   field,
		},
	})
}

func callerFrom(r *http.Request) (identity.Identity, error) {
	id, ok := identity.FromContext(r.Context())
	if !ok || id.UserID == "" {
		return identity.Identity{}, errMissingIdentity
	}
	return id, nil
}

func int64FromURL(r *http.Request, param string) (int64, error) {
	raw := chi.URLParam(r, param)
	if raw == "" {
		return 0, fmt.Errorf("%w: %s not found in URL path", apperrors.ErrInvalidArgument, param)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", apperrors.ErrInvalidArgument, param)
	}
	return id, nil
}

package handler

import (
	"lending-engine/internal/api/handler/dto"
	"lending-engine/internal/api/middleware"
	"lending-engine/internal/config"
	"lending-engine/internal/identity"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const defaultTokenTTL = 24 * time.Hour

type AuthHandler struct {
	cfg    config.AuthConfig
	now    func() time.Time
	logger *slog.Logger
}

func NewAuthHandler(cfg config.AuthConfig, l *slog.Logger) *AuthHandler {
	return &AuthHandler{
		cfg:    cfg,
		now:    time.Now,
		logger: l.With("component", "AuthHandler"),
	}
}

// GenerateBearerToken issues a signed token for the given user. It stands in
// for a real identity provider in development.
//
// @Summary Generate a JWT bearer token
// @Description Issues an HS256 token carrying the user id, email, name and role.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.TokenRequest true "Token subject"
// @Success 200 {object} dto.TokenResponse "Token successfully generated"
// @Failure 400 {object} dto.ErrorResponse "Invalid request parameters"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /auth/token [post]
func (h *AuthHandler) GenerateBearerToken(w http.ResponseWriter, r *http.Request) {
	var req dto.TokenRequest
	if err := decodeJSON(r, &req); err != nil {
		h.logger.WarnContext(r.Context(), "Failed to decode token request", "error", err)
		respondError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, err)
		return
	}

	ttl := h.cfg.TokenTTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	now := h.now()
	expiresAt := now.Add(ttl)

	role := identity.RoleUser
	if strings.EqualFold(req.Role, string(identity.RoleAdmin)) {
		role = identity.RoleAdmin
	}

	claims := middleware.Claims{
		Email: req.Email,
		Name:  req.Name,
		Role:  string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   req.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(h.cfg.JWTSecret))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to sign token", "error", err)
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Issued bearer token", "userId", req.UserID, "role", role)
	respondJSON(w, http.StatusOK, dto.TokenResponse{Token: "Bearer " + tokenString, ExpiresAt: expiresAt.Unix()})
}

package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"lending-engine/internal/api/handler/dto"
	"lending-engine/internal/api/middleware"
	"lending-engine/internal/config"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var logger = slog.New(slog.NewTextHandler(io.Discard, nil))

const testSecret = "test-jwt-secret-key"

func TestGenerateBearerToken(t *testing.T) {
	handler := NewAuthHandler(config.AuthConfig{JWTSecret: testSecret}, logger)

	t.Run("successfully generates token", func(t *testing.T) {
		body, _ := json.Marshal(dto.TokenRequest{UserID: "u-1", Email: "u1@example.com", Name: "User One", Role: "admin"})
		req := httptest.NewRequest(http.MethodPost, "/auth/token", bytes.NewReader(body))
		w := httptest.NewRecorder()

		handler.GenerateBearerToken(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var resp dto.TokenResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		require.True(t, strings.HasPrefix(resp.Token, "Bearer "))

		var claims middleware.Claims
		_, err := jwt.ParseWithClaims(strings.TrimPrefix(resp.Token, "Bearer "), &claims, func(*jwt.Token) (interface{}, error) {
			return []byte(testSecret), nil
		})
		require.NoError(t, err)
		assert.Equal(t, "u-1", claims.Subject)
		assert.Equal(t, "ADMIN", claims.Role)
		assert.Equal(t, "u1@example.com", claims.Email)
	})

	t.Run("rejects a missing user id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader(`{"email":"x@y.z"}`))
		w := httptest.NewRecorder()

		handler.GenerateBearerToken(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var resp dto.ErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, "userId", resp.Error.Field)
	})

	t.Run("rejects malformed json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader(`{`))
		w := httptest.NewRecorder()

		handler.GenerateBearerToken(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

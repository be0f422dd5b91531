package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"lending-engine/internal/identity"
	"lending-engine/internal/infrastructure/cache"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

const (
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderReplayed       = "Idempotent-Replayed"

	maxIdempotencyKeyLength = 255
	idempotencyStoreTimeout = 2 * time.Second
)

// Idempotency replays the stored response of a mutating request that repeats
// an Idempotency-Key. Keys are scoped to method, path and caller. Requests
// without the header, and every request when store is nil, pass through.
func Idempotency(store *cache.IdempotencyStore, logger *slog.Logger) func(http.Handler) http.Handler {
	logger = logger.With("component", "Idempotency")

	return func(next http.Handler) http.Handler {
		if store == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			idemKey := strings.TrimSpace(r.Header.Get(HeaderIdempotencyKey))
			if idemKey == "" {
				next.ServeHTTP(w, r)
				return
			}
			if len(idemKey) > maxIdempotencyKeyLength {
				writeError(w, http.StatusBadRequest, "INVALID_IDEMPOTENCY_KEY", "Idempotency-Key is too long")
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", "Unable to read request body")
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))
			bodyHash := hashBody(body)

			key := buildIdempotencyKey(r, idemKey)
			ctx, cancel := context.WithTimeout(r.Context(), idempotencyStoreTimeout)
			defer cancel()

			reserved, err := store.Reserve(ctx, key, bodyHash)
			if err != nil {
				logger.ErrorContext(r.Context(), "Idempotency store unavailable", "error", err)
				writeError(w, http.StatusServiceUnavailable, "IDEMPOTENCY_UNAVAILABLE", "Idempotency store unavailable")
				return
			}

			if !reserved {
				entry, err := store.Load(ctx, key)
				if err != nil {
					logger.WarnContext(r.Context(), "Failed to load idempotency entry", "key", key, "error", err)
				}
				switch {
				case entry != nil && entry.BodySHA256 != "" && entry.BodySHA256 != bodyHash:
					writeError(w, http.StatusUnprocessableEntity, "IDEMPOTENCY_KEY_REUSED", "Idempotency-Key reused with a different body")
				case entry != nil && entry.Replayable():
					w.Header().Set("Content-Type", "application/json")
					w.Header().Set(HeaderReplayed, "true")
					w.WriteHeader(entry.Code)
					_, _ = w.Write(entry.Body)
				default:
					writeError(w, http.StatusConflict, "REQUEST_IN_PROGRESS", "A request with this Idempotency-Key is already in progress")
				}
				return
			}

			var captured bytes.Buffer
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			ww.Tee(&captured)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			// Detached from the request so a client disconnect does not lose the result.
			saveCtx, saveCancel := context.WithTimeout(context.Background(), idempotencyStoreTimeout)
			defer saveCancel()

			if status >= http.StatusInternalServerError {
				if err := store.Release(saveCtx, key); err != nil {
					logger.WarnContext(r.Context(), "Failed to release idempotency key", "key", key, "error", err)
				}
				return
			}
			entry := cache.IdempotencyEntry{Code: status, Body: captured.Bytes(), BodySHA256: bodyHash}
			if err := store.Complete(saveCtx, key, entry); err != nil {
				logger.WarnContext(r.Context(), "Failed to store idempotent response", "key", key, "error", err)
			}
		})
	}
}

func buildIdempotencyKey(r *http.Request, idemKey string) string {
	caller := "anonymous"
	if id, ok := identity.FromContext(r.Context()); ok {
		caller = id.UserID
	}
	return strings.Join([]string{"idempotency", r.Method, r.URL.Path, caller, idemKey}, ":")
}

func hashBody(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

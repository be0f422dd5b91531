package middleware

import (
	"bytes"
	"encoding/json"
	"lending-engine/internal/config"
	"lending-engine/internal/infrastructure/cache"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimiterMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	cfg := config.RateLimitConfig{
		Enabled: true,
		RPS:     1,
		Burst:   1,
	}

	middleware := NewRateLimiterMiddleware(cfg, nil, logger)

	t.Run("allows requests under the rate limit", func(t *testing.T) {
		handler := middleware.Middleware(okHandler())

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "127.0.0.2:12345"
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
	})

	t.Run("blocks requests exceeding the rate limit", func(t *testing.T) {
		handler := middleware.Middleware(okHandler())

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "127.0.0.1:12345"

		rec1 := httptest.NewRecorder()
		handler.ServeHTTP(rec1, req)
		if rec1.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rec1.Code)
		}

		rec2 := httptest.NewRecorder()
		handler.ServeHTTP(rec2, req)
		if rec2.Code != http.StatusTooManyRequests {
			t.Errorf("expected status %d, got %d", http.StatusTooManyRequests, rec2.Code)
		}

		var response map[string]interface{}
		if err := json.NewDecoder(rec2.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if response["error"].(map[string]interface{})["message"] != "Rate limit exceeded" {
			t.Errorf("unexpected error message: %v", response)
		}
	})

	t.Run("disabled limiter passes everything", func(t *testing.T) {
		disabled := NewRateLimiterMiddleware(config.RateLimitConfig{Enabled: false}, nil, logger)
		handler := disabled.Middleware(okHandler())

		for i := 0; i < 5; i++ {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			if rec.Code != http.StatusOK {
				t.Fatalf("request %d: expected status %d, got %d", i, http.StatusOK, rec.Code)
			}
		}
	})

	t.Run("extractIP handles various headers", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Forwarded-For", "192.168.1.1, 10.0.0.1")
		if ip := middleware.extractIP(req); ip != "192.168.1.1" {
			t.Errorf("expected IP %s, got %s", "192.168.1.1", ip)
		}

		req = httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Real-IP", "10.0.0.1")
		if ip := middleware.extractIP(req); ip != "10.0.0.1" {
			t.Errorf("expected IP %s, got %s", "10.0.0.1", ip)
		}

		req = httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "127.0.0.1:12345"
		if ip := middleware.extractIP(req); ip != "127.0.0.1" {
			t.Errorf("expected IP %s, got %s", "127.0.0.1", ip)
		}
	})
}

func TestRateLimiterMiddleware_Redis(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := config.RateLimitConfig{Enabled: true, RPS: 2, Burst: 2}
	limiter := NewRateLimiterMiddleware(cfg, cache.NewWindowCounter(client, "ratelimit", time.Second), logger)
	handler := limiter.Middleware(okHandler())

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.1.1.1:4000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 2; i++ {
		if rec := send(); rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected status %d, got %d", i, http.StatusOK, rec.Code)
		}
	}

	rec := send()
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status %d, got %d", http.StatusTooManyRequests, rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "1" {
		t.Errorf("expected Retry-After 1, got %q", got)
	}

	mr.FastForward(2 * time.Second)
	if rec := send(); rec.Code != http.StatusOK {
		t.Errorf("expected a fresh window to allow the request, got %d", rec.Code)
	}

	t.Run("fails open when redis is unavailable", func(t *testing.T) {
		mr.Close()
		if rec := send(); rec.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
	})
}

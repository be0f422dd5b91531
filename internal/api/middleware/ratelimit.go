package middleware

import (
	"fmt"
	"lending-engine/internal/config"
	"lending-engine/internal/infrastructure/cache"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiterMiddleware limits requests per client IP. With a redis counter
// it uses a shared fixed window so every replica sees the same budget;
// without one it falls back to a token bucket per IP held in memory.
type RateLimiterMiddleware struct {
	counter  *cache.WindowCounter
	limiters sync.Map
	cfg      config.RateLimitConfig
	logger   *slog.Logger
}

func NewRateLimiterMiddleware(cfg config.RateLimitConfig, counter *cache.WindowCounter, logger *slog.Logger) *RateLimiterMiddleware {
	rl := &RateLimiterMiddleware{
		counter: counter,
		cfg:     cfg,
		logger:  logger.With("component", "RateLimiter"),
	}

	switch {
	case !cfg.Enabled:
		rl.logger.Info("Rate limiting is disabled via configuration.")
	case counter != nil:
		rl.logger.Info("Rate limiter using redis fixed window", "limit", rl.windowLimit(), "window", counter.Window())
	default:
		rl.logger.Info("Rate limiter using in-memory token buckets", "rps", cfg.RPS, "burst", cfg.Burst)
		go rl.cleanupLimiters()
	}

	return rl
}

// windowLimit is the number of requests allowed per redis window.
func (rl *RateLimiterMiddleware) windowLimit() int64 {
	if rl.cfg.Burst > 0 {
		return int64(rl.cfg.Burst)
	}
	return int64(math.Ceil(rl.cfg.RPS))
}

func (rl *RateLimiterMiddleware) getLimiter(ip string) *rate.Limiter {
	limiter, exists := rl.limiters.Load(ip)
	if !exists {
		newLimiter := rate.NewLimiter(rate.Limit(rl.cfg.RPS), rl.cfg.Burst)
		actual, _ := rl.limiters.LoadOrStore(ip, newLimiter)
		return actual.(*rate.Limiter)
	}
	return limiter.(*rate.Limiter)
}

func (rl *RateLimiterMiddleware) cleanupLimiters() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		rl.limiters.Range(func(key, value interface{}) bool {
			limiter := value.(*rate.Limiter)
			if limiter.Tokens() >= float64(rl.cfg.Burst) {
				rl.limiters.Delete(key)
			}
			return true
		})
	}
}

func (rl *RateLimiterMiddleware) extractIP(r *http.Request) string {
	xff := r.Header.Get("X-Forwarded-For")
	if xff != "" {
		ips := strings.Split(xff, ",")
		return strings.TrimSpace(ips[0])
	}

	xRealIP := r.Header.Get("X-Real-IP")
	if xRealIP != "" {
		return xRealIP
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// allow reports whether the request fits the budget of ip. Redis failures
// let the request through.
func (rl *RateLimiterMiddleware) allow(r *http.Request, ip string) bool {
	if rl.counter == nil {
		return rl.getLimiter(ip).Allow()
	}

	count, err := rl.counter.Hit(r.Context(), ip)
	if err != nil {
		rl.logger.ErrorContext(r.Context(), "Redis rate limit check failed", "ip", ip, "error", err)
		return true
	}
	return count <= rl.windowLimit()
}

func (rl *RateLimiterMiddleware) Middleware(next http.Handler) http.Handler {
	if !rl.cfg.Enabled {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := rl.extractIP(r)

		if !rl.allow(r, ip) {
			rl.logger.WarnContext(r.Context(), "Rate limit exceeded", "ip", ip)
			if rl.counter != nil {
				w.Header().Set("Retry-After", fmt.Sprintf("%.0f", rl.counter.Window().Seconds()))
			}
			writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}

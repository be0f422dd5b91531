package middleware

import (
	"bytes"
	"fmt"
	"io"
	"lending-engine/internal/identity"
	"lending-engine/internal/infrastructure/cache"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIdempotencyStore(t *testing.T) (*miniredis.Miniredis, *cache.IdempotencyStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, cache.NewIdempotencyStore(client, time.Hour)
}

func doIdempotent(h http.Handler, method, key, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/api/lms/loan/repay", strings.NewReader(body))
	req = req.WithContext(identity.WithIdentity(req.Context(), identity.Identity{UserID: "u-1"}))
	if key != "" {
		req.Header.Set(HeaderIdempotencyKey, key)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIdempotency(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var calls atomic.Int32
	created := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = fmt.Fprintf(w, `{"call":%d,"echo":%s}`, n, body)
	})

	t.Run("replays the first response for a repeated key", func(t *testing.T) {
		calls.Store(0)
		_, store := newIdempotencyStore(t)
		h := Idempotency(store, logger)(created)

		first := doIdempotent(h, http.MethodPost, "k-1", `{"amount":"300"}`)
		second := doIdempotent(h, http.MethodPost, "k-1", `{"amount":"300"}`)

		assert.Equal(t, http.StatusCreated, first.Code)
		assert.Equal(t, http.StatusCreated, second.Code)
		assert.Equal(t, first.Body.String(), second.Body.String())
		assert.Equal(t, "true", second.Header().Get(HeaderReplayed))
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("rejects a reused key with another body", func(t *testing.T) {
		calls.Store(0)
		_, store := newIdempotencyStore(t)
		h := Idempotency(store, logger)(created)

		doIdempotent(h, http.MethodPost, "k-2", `{"amount":"300"}`)
		rec := doIdempotent(h, http.MethodPost, "k-2", `{"amount":"999"}`)

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("in-flight key is a conflict", func(t *testing.T) {
		_, store := newIdempotencyStore(t)
		h := Idempotency(store, logger)(created)
		key := "idempotency:POST:/api/lms/loan/repay:u-1:k-3"
		_, err := store.Reserve(t.Context(), key, hashBody([]byte(`{}`)))
		require.NoError(t, err)

		rec := doIdempotent(h, http.MethodPost, "k-3", `{}`)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("requests without a key pass through", func(t *testing.T) {
		calls.Store(0)
		_, store := newIdempotencyStore(t)
		h := Idempotency(store, logger)(created)

		doIdempotent(h, http.MethodPost, "", `{}`)
		doIdempotent(h, http.MethodPost, "", `{}`)

		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("server errors release the key", func(t *testing.T) {
		_, store := newIdempotencyStore(t)
		var failing atomic.Bool
		failing.Store(true)
		h := Idempotency(store, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if failing.Load() {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.WriteHeader(http.StatusOK)
		}))

		assert.Equal(t, http.StatusInternalServerError, doIdempotent(h, http.MethodPost, "k-4", `{}`).Code)
		failing.Store(false)
		assert.Equal(t, http.StatusOK, doIdempotent(h, http.MethodPost, "k-4", `{}`).Code)
	})

	t.Run("store outage is a 503", func(t *testing.T) {
		mr, store := newIdempotencyStore(t)
		h := Idempotency(store, logger)(created)
		mr.Close()

		rec := doIdempotent(h, http.MethodPost, "k-5", `{}`)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("nil store disables the middleware", func(t *testing.T) {
		calls.Store(0)
		h := Idempotency(nil, logger)(created)

		doIdempotent(h, http.MethodPost, "k-6", `{}`)
		doIdempotent(h, http.MethodPost, "k-6", `{}`)

		assert.Equal(t, int32(2), calls.Load())
	})
}

func TestHashBody(t *testing.T) {
	assert.Equal(t, hashBody([]byte("a")), hashBody(bytes.Clone([]byte("a"))))
	assert.NotEqual(t, hashBody([]byte("a")), hashBody([]byte("b")))
}

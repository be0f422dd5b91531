package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ProvisionalTTL bounds how long an in-flight request holds its key.
const ProvisionalTTL = 60 * time.Second

type IdempotencyEntry struct {
	InProgress bool      `json:"in_progress"`
	Code       int       `json:"code"`
	Body       []byte    `json:"body"`
	BodySHA256 string    `json:"body_sha256"`
	CreatedAt  time.Time `json:"created_at"`
}

// Replayable reports whether the entry holds a finished response.
func (e *IdempotencyEntry) Replayable() bool {
	return !e.InProgress && e.Code != 0
}

type IdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewIdempotencyStore(client *redis.Client, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IdempotencyStore{client: client, ttl: ttl}
}

// Reserve claims key for a new request. It returns false when the key is
// already taken by an earlier request.
func (s *IdempotencyStore) Reserve(ctx context.Context, key, bodyHash string) (bool, error) {
	raw, err := json.Marshal(IdempotencyEntry{InProgress: true, BodySHA256: bodyHash, CreatedAt: time.Now().UTC()})
	if err != nil {
		return false, err
	}
	ok, err := s.client.SetNX(ctx, key, raw, ProvisionalTTL).Result()
	if err != nil {
		return false, fmt.Errorf("reserve idempotency key: %w", err)
	}
	return ok, nil
}

// Load returns nil without error when the key is unknown or expired.
func (s *IdempotencyStore) Load(ctx context.Context, key string) (*IdempotencyEntry, error) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load idempotency key: %w", err)
	}

	var entry IdempotencyEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, fmt.Errorf("decode idempotency entry: %w", err)
	}
	return &entry, nil
}

// Complete stores the final response under key for the store TTL.
func (s *IdempotencyStore) Complete(ctx context.Context, key string, entry IdempotencyEntry) error {
	entry.InProgress = false
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, raw, s.ttl).Err()
}

// Release drops a reservation so the request can be retried.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

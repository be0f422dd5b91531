package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// WindowCounter counts hits per key in fixed windows. The window starts at
// the first hit and the key expires with it.
type WindowCounter struct {
	client *redis.Client
	prefix string
	window time.Duration
}

func NewWindowCounter(client *redis.Client, prefix string, window time.Duration) *WindowCounter {
	return &WindowCounter{client: client, prefix: prefix, window: window}
}

func (c *WindowCounter) Window() time.Duration {
	return c.window
}

// Hit increments the counter of key and returns the count in the current window.
func (c *WindowCounter) Hit(ctx context.Context, key string) (int64, error) {
	redisKey := fmt.Sprintf("%s:%s", c.prefix, key)

	pipe := c.client.Pipeline()
	incrCmd := pipe.Incr(ctx, redisKey)
	ttlCmd := pipe.TTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("rate counter pipeline for %s: %w", redisKey, err)
	}

	count, err := incrCmd.Result()
	if err != nil {
		return 0, err
	}

	// -1 is "no expiry", -2 "no key"; both mean this hit opened the window.
	if ttl, err := ttlCmd.Result(); err != nil || ttl < 0 {
		if err := c.client.Expire(ctx, redisKey, c.window).Err(); err != nil {
			return count, fmt.Errorf("set expiry on %s: %w", redisKey, err)
		}
	}
	return count, nil
}

package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultClaimTTL = 24 * time.Hour

// AccrualClaims records accrual idempotency keys with SET NX.
// Key format: accrual:idem:<artist>/<song>/<period>/<idempotency key>, with
// each segment path-escaped by the caller.
type AccrualClaims struct {
	client *redis.Client
	ttl    time.Duration
}

// NewAccrualClaims wraps client. Claims expire after ttl (24h when ttl <= 0).
func NewAccrualClaims(client *redis.Client, ttl time.Duration) *AccrualClaims {
	if ttl <= 0 {
		ttl = defaultClaimTTL
	}
	return &AccrualClaims{client: client, ttl: ttl}
}

// Claim reports true when this call is the first to see key.
func (c *AccrualClaims) Claim(ctx context.Context, key string) (bool, error) {
	ok, err := c.client.SetNX(ctx, c.key(key), time.Now().UTC().Unix(), c.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim accrual key: %w", err)
	}
	return ok, nil
}

// Release forgets key so that a failed accrual can be retried.
func (c *AccrualClaims) Release(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.key(key)).Err(); err != nil {
		return fmt.Errorf("release accrual key: %w", err)
	}
	return nil
}

func (c *AccrualClaims) key(k string) string {
	return "accrual:idem:" + k
}

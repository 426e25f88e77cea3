package rates

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCached is the shared-cache variant of Cached: the last good quote
// lives in Redis so every replica serves the same degraded-mode rate.
type RedisCached struct {
	inner  Oracle
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCached(inner Oracle, client *redis.Client, ttl time.Duration) *RedisCached {
	return &RedisCached{inner: inner, client: client, ttl: ttl}
}

func rateKey(base, quote string) string {
	return fmt.Sprintf("rates:%s:%s", base, quote)
}

func (r *RedisCached) GetRate(ctx context.Context, base, quote string) (float64, error) {
	rate, err := r.inner.GetRate(ctx, base, quote)
	if err == nil && rate > 0 {
		// Cache write failures are invisible to the caller; the quote is good.
		_ = r.client.Set(ctx, rateKey(base, quote), rate, r.ttl).Err()
		return rate, nil
	}

	raw, getErr := r.client.Get(ctx, rateKey(base, quote)).Result()
	if getErr == nil {
		if cached, parseErr := strconv.ParseFloat(raw, 64); parseErr == nil && cached > 0 {
			return cached, nil
		}
	}
	if err != nil {
		return 0, err
	}
	return 0, fmt.Errorf("oracle returned non-positive rate for %s/%s", base, quote)
}

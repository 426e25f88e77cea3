// Package rates provides exchange-rate oracle implementations and caching
// decorators. Every type here satisfies the minting service's RateOracle
// port.
package rates

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Oracle mirrors the rate port so decorators can wrap any source.
type Oracle interface {
	GetRate(ctx context.Context, base, quote string) (float64, error)
}

// Static always quotes the same rate. Local development and tests.
type Static struct {
	Rate float64
}

func (s Static) GetRate(context.Context, string, string) (float64, error) {
	return s.Rate, nil
}

type cachedRate struct {
	rate float64
	at   time.Time
}

// Cached remembers the last good quote per pair and serves it when the inner
// oracle fails, as long as it is younger than the TTL. Only after the cache
// also misses does the caller's own fallback apply.
type Cached struct {
	inner Oracle
	ttl   time.Duration

	mu   sync.Mutex
	last map[string]cachedRate
}

func NewCached(inner Oracle, ttl time.Duration) *Cached {
	return &Cached{inner: inner, ttl: ttl, last: make(map[string]cachedRate)}
}

func (c *Cached) GetRate(ctx context.Context, base, quote string) (float64, error) {
	key := base + "/" + quote
	rate, err := c.inner.GetRate(ctx, base, quote)
	if err == nil && rate > 0 {
		c.mu.Lock()
		c.last[key] = cachedRate{rate: rate, at: time.Now()}
		c.mu.Unlock()
		return rate, nil
	}

	c.mu.Lock()
	entry, ok := c.last[key]
	c.mu.Unlock()
	if ok && time.Since(entry.at) < c.ttl {
		return entry.rate, nil
	}
	if err != nil {
		return 0, err
	}
	return 0, fmt.Errorf("oracle returned non-positive rate for %s", key)
}

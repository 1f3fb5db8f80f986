package source

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter enforces a minimum delay between requests to the same source. The
// cool-down key lives in Redis so pacing holds across pipeline instances.
type Limiter struct {
	rdb   *redis.Client
	delay time.Duration
}

// NewLimiter constructs a Limiter. A nil client disables pacing, which is
// what tests want.
func NewLimiter(rdb *redis.Client, delay time.Duration) *Limiter {
	return &Limiter{rdb: rdb, delay: delay}
}

// Wait blocks until the source's cool-down has elapsed, then claims the next
// window. Returns early only when ctx is done.
func (l *Limiter) Wait(ctx context.Context, sourceName string) error {
	if l == nil || l.rdb == nil || l.delay <= 0 {
		return nil
	}

	key := "source:cooldown:" + sourceName
	for {
		ok, err := l.rdb.SetNX(ctx, key, 1, l.delay).Result()
		if err != nil {
			// Redis being down should not stop scraping; pacing is
			// best effort.
			return nil
		}
		if ok {
			return nil
		}

		ttl, err := l.rdb.PTTL(ctx, key).Result()
		if err != nil || ttl <= 0 {
			ttl = l.delay
		}

		select {
		case <-time.After(ttl):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

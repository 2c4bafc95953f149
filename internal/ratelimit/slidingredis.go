package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Limiter counts events per key in a Redis sorted set scored by nanosecond
// timestamp, which gives a sliding window rather than fixed buckets.
type Limiter struct {
	Client *redis.Client
	Prefix string
}

// Allow records one event for key and reports whether the window still has
// room. An unconfigured limiter admits everything.
func (l Limiter) Allow(ctx context.Context, key string, window time.Duration, max int) (allowed bool, remaining int, reset time.Time, err error) {
	now := time.Now()
	reset = now.Add(window)
	if l.Client == nil || max <= 0 || window <= 0 {
		return true, max, reset, nil
	}

	setKey := l.Prefix + key
	cutoff := strconv.FormatInt(now.Add(-window).UnixNano(), 10)

	// The event is added before counting, so the event itself occupies a slot.
	pipe := l.Client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, setKey, "-inf", cutoff)
	pipe.ZAdd(ctx, setKey, redis.Z{
		Score:  float64(now.UnixNano()),
		Member: uuid.NewString(),
	})
	count := pipe.ZCard(ctx, setKey)
	pipe.Expire(ctx, setKey, window)
	if _, err = pipe.Exec(ctx); err != nil {
		return false, 0, reset, err
	}

	used := int(count.Val())
	remaining = max - used
	if remaining < 0 {
		remaining = 0
	}
	return used <= max, remaining, reset, nil
}

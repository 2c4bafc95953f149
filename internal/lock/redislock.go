package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultTTL = 30 * time.Second

// releaseScript deletes the key only while it still holds our token, so a
// worker that outlived its TTL cannot free a lock another worker now owns.
const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
else
  return 0
end`

// Locker is a Redis-backed mutual exclusion helper. The catalog importer
// holds one of these across the wholesale replace so concurrent workers
// cannot clobber each other.
type Locker struct {
	R            *redis.Client
	RetryBackoff time.Duration
}

// WithLock runs fn under the named lock, polling until the lock is acquired
// or ctx is cancelled. The lock is released when fn returns, success or not.
func (l Locker) WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error {
	if l.R == nil {
		return errors.New("lock: redis client not configured")
	}
	if fn == nil {
		return errors.New("lock: callback not provided")
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}

	token := uuid.NewString()
	for {
		acquired, err := l.R.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return err
		}
		if acquired {
			break
		}
		if err := l.wait(ctx); err != nil {
			return err
		}
	}

	defer l.release(key, token)
	return fn(ctx)
}

func (l Locker) wait(ctx context.Context) error {
	backoff := l.RetryBackoff
	if backoff <= 0 {
		backoff = 50 * time.Millisecond
	}
	timer := time.NewTimer(backoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// release uses a fresh context: the lock must come free even when the
// caller's context is already cancelled.
func (l Locker) release(key, token string) {
	_ = l.R.Eval(context.Background(), releaseScript, []string{key}, token).Err()
}

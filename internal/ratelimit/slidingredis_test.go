package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T) (Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return Limiter{Client: client, Prefix: "rl:"}, mr
}

func TestAllowWithinLimit(t *testing.T) {
	limiter, _ := newTestLimiter(t)

	for i := 0; i < 3; i++ {
		allowed, _, _, err := limiter.Allow(context.Background(), "login:1.2.3.4", time.Minute, 3)
		require.NoError(t, err)
		require.True(t, allowed, "request %d should pass", i+1)
	}
	allowed, remaining, _, err := limiter.Allow(context.Background(), "login:1.2.3.4", time.Minute, 3)
	require.NoError(t, err)
	require.False(t, allowed)
	require.Zero(t, remaining)
}

func TestAllowKeysAreIndependent(t *testing.T) {
	limiter, _ := newTestLimiter(t)

	for i := 0; i < 2; i++ {
		_, _, _, err := limiter.Allow(context.Background(), "login:1.2.3.4", time.Minute, 1)
		require.NoError(t, err)
	}
	allowed, _, _, err := limiter.Allow(context.Background(), "login:5.6.7.8", time.Minute, 1)
	require.NoError(t, err)
	require.True(t, allowed)
}

func TestAllowWindowSlides(t *testing.T) {
	limiter, mr := newTestLimiter(t)

	allowed, _, _, err := limiter.Allow(context.Background(), "k", 100*time.Millisecond, 1)
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, _, _, err = limiter.Allow(context.Background(), "k", 100*time.Millisecond, 1)
	require.NoError(t, err)
	require.False(t, allowed)

	mr.FastForward(200 * time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	allowed, _, _, err = limiter.Allow(context.Background(), "k", 100*time.Millisecond, 1)
	require.NoError(t, err)
	require.True(t, allowed)
}

func TestAllowUnconfiguredPassesThrough(t *testing.T) {
	allowed, _, _, err := Limiter{}.Allow(context.Background(), "k", time.Minute, 5)
	require.NoError(t, err)
	require.True(t, allowed)
}

func TestMiddlewareBlocksOverLimit(t *testing.T) {
	limiter, _ := newTestLimiter(t)
	handler := Handler{
		Limiter: limiter,
		Config: Config{
			Key:    func(*http.Request) string { return "fixed" },
			Window: time.Minute,
			Max:    1,
		},
	}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/login", nil))
	require.Equal(t, http.StatusNoContent, first.Code)
	require.Equal(t, "1", first.Header().Get("X-RateLimit-Limit"))

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/login", nil))
	require.Equal(t, http.StatusTooManyRequests, second.Code)
	require.NotEmpty(t, second.Header().Get("Retry-After"))
}

func TestMiddlewareFailsOpenOnRedisOutage(t *testing.T) {
	limiter, mr := newTestLimiter(t)
	mr.Close()

	var reported error
	handler := Handler{
		Limiter: limiter,
		Config: Config{
			Key:    func(*http.Request) string { return "fixed" },
			Window: time.Minute,
			Max:    1,
		},
		OnError: func(err error) { reported = err },
	}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Error(t, reported)
}

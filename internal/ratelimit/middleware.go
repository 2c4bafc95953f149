package ratelimit

import (
	"net/http"
	"strconv"
	"time"
)

// Config binds a limit to a request: how to key it and how much to admit.
type Config struct {
	Key    func(*http.Request) string
	Window time.Duration
	Max    int
}

// Handler wraps an endpoint with a sliding-window limit. Limiter failures
// never block traffic; they are reported through OnError and the request
// proceeds.
type Handler struct {
	Limiter Limiter
	Config  Config
	OnError func(error)
}

// Middleware returns the wrapping middleware.
func (h Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Config.Key == nil {
			next.ServeHTTP(w, r)
			return
		}
		allowed, remaining, resetAt, err := h.Limiter.Allow(r.Context(), h.Config.Key(r), h.Config.Window, h.Config.Max)
		if err != nil {
			if h.OnError != nil {
				h.OnError(err)
			}
			next.ServeHTTP(w, r)
			return
		}

		h.writeHeaders(w, remaining, resetAt)
		if !allowed {
			retryAfter := int(time.Until(resetAt).Seconds())
			if retryAfter < 0 {
				retryAfter = 0
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h Handler) writeHeaders(w http.ResponseWriter, remaining int, resetAt time.Time) {
	limit := h.Config.Max
	if limit < 0 {
		limit = 0
	}
	header := w.Header()
	header.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	header.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	header.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
}

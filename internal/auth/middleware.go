package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/andinotravel/partner-portal/internal/common"
)

var errNoToken = errors.New("auth: token missing")

// Middleware wires authentication context into HTTP handlers. Tokens are read
// from the Authorization header, or from AccessCookie when one is configured.
type Middleware struct {
	Service      *Service
	AccessCookie string
}

// Authenticate attaches the verified email to the request context when a
// valid token is present; anonymous requests pass through untouched.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return m.handle(next, false)
}

// RequireAuth rejects requests that carry no valid token.
func (m Middleware) RequireAuth(next http.Handler) http.Handler {
	return m.handle(next, true)
}

func (m Middleware) handle(next http.Handler, required bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := m.identify(r)
		switch {
		case err == nil:
			ctx := common.WithIdentity(r.Context(), identity.Email)
			next.ServeHTTP(w, r.WithContext(ctx))
		case !required:
			next.ServeHTTP(w, r)
		case errors.Is(err, errNoToken):
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
		default:
			common.WriteError(w, err)
		}
	})
}

func (m Middleware) identify(r *http.Request) (Identity, error) {
	if m.Service == nil {
		return Identity{}, errors.New("auth: service not configured")
	}
	token := m.extractToken(r)
	if token == "" {
		return Identity{}, errNoToken
	}
	return m.Service.ParseAccessToken(token)
}

func (m Middleware) extractToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return strings.TrimSpace(header[len("bearer "):])
	}
	if m.AccessCookie != "" {
		if cookie, err := r.Cookie(m.AccessCookie); err == nil {
			return strings.TrimSpace(cookie.Value)
		}
	}
	return ""
}

package capability

import (
	"context"
	"net/http"

	"github.com/andinotravel/partner-portal/internal/common"
)

type ctxKey struct{}

// WithCapabilities stores resolved capabilities on the context.
func WithCapabilities(ctx context.Context, caps *Capabilities) context.Context {
	return context.WithValue(ctx, ctxKey{}, caps)
}

// FromContext extracts resolved capabilities from the context if present.
func FromContext(ctx context.Context) (*Capabilities, bool) {
	caps, ok := ctx.Value(ctxKey{}).(*Capabilities)
	return caps, ok && caps != nil
}

// Middleware resolves capabilities for the authenticated identity and guards
// handlers behind them.
type Middleware struct {
	Resolver Resolver
}

// Require resolves the caller's capabilities and rejects the request when the
// identity is missing (401) or resolves to no capabilities (403). Resolution
// happens per request so admin edits take effect immediately.
func (m Middleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		email, ok := common.Identity(r.Context())
		if !ok || email == "" {
			common.WriteError(w, common.ErrUnauthenticated())
			return
		}
		caps, err := m.Resolver.Resolve(r.Context(), email)
		if err != nil {
			common.WriteError(w, err)
			return
		}
		if caps == nil {
			common.WriteError(w, common.ErrForbidden("account not found or inactive"))
			return
		}
		next.ServeHTTP(w, r.WithContext(WithCapabilities(r.Context(), caps)))
	})
}

// RequireAdmin allows only admin-role callers through. Must be mounted after Require.
func (m Middleware) RequireAdmin(next http.Handler) http.Handler {
	return requireCheck(next, func(caps *Capabilities) bool { return caps.IsAdmin }, "admin access required")
}

// RequireReserve gates reservation endpoints on the reserve capability.
func (m Middleware) RequireReserve(next http.Handler) http.Handler {
	return requireCheck(next, func(caps *Capabilities) bool { return caps.CanReserve }, "reservation access not enabled")
}

// RequireMural gates bulletin endpoints on the mural capability.
func (m Middleware) RequireMural(next http.Handler) http.Handler {
	return requireCheck(next, func(caps *Capabilities) bool { return caps.CanAccessMural }, "mural access not enabled")
}

// RequireExchange gates exchange-board endpoints on the exchange capability.
func (m Middleware) RequireExchange(next http.Handler) http.Handler {
	return requireCheck(next, func(caps *Capabilities) bool { return caps.CanAccessExchange }, "exchange access not enabled")
}

func requireCheck(next http.Handler, check func(*Capabilities) bool, message string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caps, ok := FromContext(r.Context())
		if !ok {
			common.WriteError(w, common.ErrUnauthenticated())
			return
		}
		if !check(caps) {
			common.WriteError(w, common.ErrForbidden(message))
			return
		}
		next.ServeHTTP(w, r)
	})
}

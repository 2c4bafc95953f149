package obs

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type routePatternKey struct{}

// WithRoutePattern stores the matched router pattern on the context so later
// middleware can label metrics and spans without re-resolving the route.
func WithRoutePattern(ctx context.Context, pattern string) context.Context {
	return context.WithValue(ctx, routePatternKey{}, pattern)
}

// RoutePatternFromContext returns the stored route pattern, or "".
func RoutePatternFromContext(ctx context.Context) string {
	pattern, _ := ctx.Value(routePatternKey{}).(string)
	return pattern
}

// responseRecorder captures the status code and byte count the handler
// produced. Status defaults to 200 because handlers may never call
// WriteHeader explicitly.
type responseRecorder struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func record(w http.ResponseWriter) *responseRecorder {
	return &responseRecorder{ResponseWriter: w, status: http.StatusOK}
}

func (rec *responseRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *responseRecorder) Write(p []byte) (int, error) {
	n, err := rec.ResponseWriter.Write(p)
	rec.bytes += int64(n)
	return n, err
}

// HTTPObs labels request metrics by method, route pattern, and status.
type HTTPObs struct {
	Metrics *HTTPMetrics
}

// Middleware instruments the request with counters, a latency histogram,
// and the in-flight gauge.
func (o HTTPObs) Middleware(next http.Handler) http.Handler {
	if o.Metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := record(w)
		o.Metrics.InFlight.Inc()
		started := time.Now()
		next.ServeHTTP(rec, r)
		o.Metrics.InFlight.Dec()

		route := routeFromRequest(r)
		o.Metrics.ReqTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		o.Metrics.ReqDur.WithLabelValues(r.Method, route).Observe(DurationMillis(time.Since(started)))
	})
}

// RoutePatternMiddleware copies chi's matched route pattern onto the context.
func RoutePatternMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if rc := chi.RouteContext(ctx); rc != nil {
			if pattern := rc.RoutePattern(); pattern != "" {
				ctx = WithRoutePattern(ctx, pattern)
			}
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// TracingMiddleware opens a server span per request, named by method and
// route pattern rather than the raw path to keep cardinality bounded.
func TracingMiddleware(next http.Handler) http.Handler {
	tracer := otel.Tracer("partner-portal/http")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := routeFromRequest(r)
		ctx, span := tracer.Start(r.Context(), r.Method+" "+route)
		defer span.End()

		rec := record(w)
		next.ServeHTTP(rec, r.WithContext(ctx))

		span.SetAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", route),
			attribute.String("http.target", r.URL.Path),
			attribute.Int("http.status_code", rec.status),
		)
		if rec.status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(rec.status))
		}
	})
}

func routeFromRequest(r *http.Request) string {
	if route := RoutePatternFromContext(r.Context()); route != "" {
		return route
	}
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if route := rc.RoutePattern(); route != "" {
			return route
		}
	}
	return r.URL.Path
}

package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"loandash/internal/infrastructure"
)

// Tracing starts a server span per request. A nil provider falls back to
// the global one, which is a no-op unless tracing was initialized.
func Tracing(tp trace.TracerProvider) func(http.Handler) http.Handler {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	instrument := otelhttp.NewMiddleware(infrastructure.ServiceName,
		otelhttp.WithTracerProvider(tp),
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
	return func(next http.Handler) http.Handler {
		tagged := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			span := trace.SpanFromContext(r.Context())
			if reqID := middleware.GetReqID(r.Context()); reqID != "" {
				span.SetAttributes(attribute.String("http.request_id", reqID))
			}
			next.ServeHTTP(w, r)
			if pattern := routePattern(r); pattern != "" {
				span.SetAttributes(attribute.String("http.route", pattern))
			}
		})
		return instrument(tagged)
	}
}

// Metrics records request count, latency and in-flight requests, keyed by
// the chi route pattern so path parameters do not explode cardinality.
func Metrics(metrics *infrastructure.BusinessMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			metrics.AddActiveRequests(ctx, 1)
			defer metrics.AddActiveRequests(ctx, -1)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := routePattern(r)
			if route == "" {
				route = "unmatched"
			}
			metrics.RecordHTTPRequest(ctx, r.Method, route, status, time.Since(start))
		})
	}
}

// routePattern extracts the route pattern from request context
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		return rctx.RoutePattern()
	}
	return ""
}

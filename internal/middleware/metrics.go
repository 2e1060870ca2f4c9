package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/fitplan/internal/observability"
)

// unmatchedRoute labels requests no route matched, so arbitrary paths never
// become metric labels.
const unmatchedRoute = "unmatched"

// Metrics records request latency by method, chi route pattern and status.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := wrapWriter(w)

		next.ServeHTTP(wrapped, r)

		route := unmatchedRoute
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		observability.ObserveRequest(r.Method, route, wrapped.statusCode, time.Since(start))
	})
}

// Package middleware contains the HTTP middleware specific to the poster
// API. Generic concerns such as request ids and panic recovery come from
// chi's middleware package.
package middleware

import (
	"log/slog"
	"net/http"

	"github.com/simongrossi/maptoposter-web/internal/api/shared"
	"github.com/simongrossi/maptoposter-web/internal/platform/logger"
)

// TraceHeader echoes the request trace id back to the client.
const TraceHeader = "X-Trace-ID"

// NewTraceMiddleware adds a trace id to the request context and stores a
// logger carrying it, so handlers and services log with the same trace_id.
func NewTraceMiddleware(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := shared.SetTraceID(r.Context())
			traceID := shared.GetTraceID(ctx)

			log := base.With(slog.String("trace_id", traceID))
			ctx = logger.WithLogger(ctx, log)

			log.Debug("request started",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr))

			w.Header().Set(TraceHeader, traceID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

package middleware

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/scry-bulkgen/internal/api/shared"
	"github.com/phrazzld/scry-bulkgen/internal/platform/logger"
)

// NewTraceMiddleware attaches a trace ID to every request. The ID is taken
// from the X-Trace-ID header when well-formed, echoed back in the response
// header and bound to a request-scoped logger stored in the context.
func NewTraceMiddleware(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := shared.SetTraceID(r.Context(), r.Header.Get(shared.TraceIDHeader))
			traceID := shared.GetTraceID(ctx)
			w.Header().Set(shared.TraceIDHeader, traceID)

			log := base.With(slog.String("trace_id", traceID))
			log.Debug("request started",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr))

			ctx = logger.WithLogger(ctx, log)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/scry-bulkgen/internal/api/middleware"
	"github.com/phrazzld/scry-bulkgen/internal/api/shared"
	"github.com/phrazzld/scry-bulkgen/internal/metrics"
	"github.com/phrazzld/scry-bulkgen/internal/platform/logger"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestTraceMiddleware(t *testing.T) {
	var seenTrace string
	var hasLogger bool
	handler := middleware.NewTraceMiddleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenTrace = shared.GetTraceID(r.Context())
		hasLogger = logger.FromContextOrDefault(r.Context(), nil) != nil
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("generated", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Len(t, seenTrace, 32)
		assert.True(t, hasLogger)
		assert.Equal(t, seenTrace, w.Header().Get(shared.TraceIDHeader))
	})

	t.Run("propagated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(shared.TraceIDHeader, "upstream-trace-42")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, "upstream-trace-42", seenTrace)
		assert.Equal(t, "upstream-trace-42", w.Header().Get(shared.TraceIDHeader))
	})
}

func TestRequestMetrics(t *testing.T) {
	r := chi.NewRouter()
	r.Use(middleware.RequestMetrics)
	r.Get("/api/jobs/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	counter := metrics.HTTPRequests.WithLabelValues(http.MethodGet, "/api/jobs/{id}", "404")
	before := testutil.ToFloat64(counter)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/jobs/abc", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

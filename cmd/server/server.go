package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/scry-bulkgen/internal/api"
	apiMiddleware "github.com/phrazzld/scry-bulkgen/internal/api/middleware"
	"github.com/phrazzld/scry-bulkgen/internal/api/shared"
	"github.com/phrazzld/scry-bulkgen/internal/service"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 10 * time.Second

// pinger reports whether a dependency is reachable.
type pinger interface {
	PingContext(ctx context.Context) error
}

// newRouter builds the HTTP router: the job control API under /api/jobs,
// a health check and the Prometheus metrics endpoint.
func newRouter(jobs service.JobService, db pinger, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.NewTraceMiddleware(logger))
	r.Use(apiMiddleware.RequestMetrics)

	jobHandler := api.NewJobHandler(jobs, logger)
	r.Route("/api", func(r chi.Router) {
		r.Route("/jobs", jobHandler.Routes)
	})

	r.Get("/health", healthHandler(db))
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func healthHandler(db pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				shared.RespondWithErrorAndLog(w, r, http.StatusServiceUnavailable, "Database unavailable", err)
				return
			}
		}
		shared.RespondWithJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// startHTTPServer serves router until ctx is cancelled or the listener
// fails, then shuts the server down gracefully.
func (app *application) startHTTPServer(ctx context.Context, router http.Handler) error {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", app.config.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		app.logger.Info("starting server", "port", app.config.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		app.logger.Info("shutting down server")
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	app.logger.Info("server shutdown completed")
	return nil
}

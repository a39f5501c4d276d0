// Package httpapi assembles the HTTP surface: middleware chain, domain
// handlers, health and metrics endpoints.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	aggregatehandler "laudo/internal/aggregate/handler"
	"laudo/internal/platform/middleware"
	submissionhandler "laudo/internal/submission/handler"
	"laudo/pkg/platform/httputil"
	"laudo/pkg/platform/middleware/metadata"
	"laudo/pkg/platform/middleware/requestid"
	"laudo/pkg/platform/middleware/requesttime"
)

// HealthChecker reports whether a backing dependency is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Deps carries everything the router mounts.
type Deps struct {
	Submissions *submissionhandler.Handler
	Documents   *aggregatehandler.Handler
	Logger      *slog.Logger
	// Checks maps a dependency name to its health probe. Nil values are
	// skipped so optional backends (redis, postgres) can stay unset.
	Checks map[string]HealthChecker
}

// NewRouter wires the middleware chain and every endpoint.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(requestid.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.AccessLog(deps.Logger))

	deps.Submissions.Register(r)
	deps.Documents.Register(r)

	r.Get("/healthz", handleHealth(deps.Checks))
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func handleHealth(checks map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		body := map[string]string{"status": "ok"}
		for name, check := range checks {
			if check == nil {
				continue
			}
			if err := check.Health(ctx); err != nil {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
				body[name] = err.Error()
			} else {
				body[name] = "ok"
			}
		}
		httputil.WriteJSON(w, status, body)
	}
}

// Package httpapi assembles the public router: shared middleware, the
// operational endpoints and each module's routes.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"idintake/internal/platform/metrics"
	"idintake/internal/platform/middleware"
	dErrors "idintake/pkg/domain-errors"
	"idintake/pkg/platform/httputil"
	"idintake/pkg/platform/middleware/metadata"
	"idintake/pkg/platform/middleware/requestid"
	"idintake/pkg/platform/middleware/requesttime"
)

const (
	// requestTimeout bounds a whole request, including one provider round trip.
	requestTimeout = 30 * time.Second
	checkTimeout   = 2 * time.Second
)

// RouteRegistrar is implemented by every module handler.
type RouteRegistrar interface {
	Register(r chi.Router)
}

// HealthCheck probes one backing service for /healthz.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Deps carries what the router needs beyond the module handlers.
type Deps struct {
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Checks   []HealthCheck
}

// NewRouter wires middleware, /healthz, /metrics and the given modules.
func NewRouter(deps Deps, modules ...RouteRegistrar) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(requestid.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(middleware.RequestLogger(deps.Logger, deps.Metrics))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(requestTimeout))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeMethodNotAllowed, "method not allowed"))
	})

	r.Get("/healthz", healthz(deps.Logger, deps.Checks))
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	for _, m := range modules {
		m.Register(r)
	}
	return r
}

// healthz reports 200 {"status":"ok"} when every check passes, otherwise 503
// with the failing checks by name.
func healthz(logger *slog.Logger, checks []HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		failed := make(map[string]string)
		for _, c := range checks {
			ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
			err := c.Check(ctx)
			cancel()
			if err != nil {
				failed[c.Name] = err.Error()
				logger.WarnContext(r.Context(), "health check failed",
					"check", c.Name,
					"error", err,
				)
			}
		}
		if len(failed) > 0 {
			httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status": "unavailable",
				"checks": failed,
			})
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

package httpserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"modgate/internal/cache"
	"modgate/internal/handlers"
	"modgate/internal/metrics"
	"modgate/internal/middleware"
	"modgate/internal/ratelimit"
)

// Deps carries everything the router wires together.
type Deps struct {
	Moderate *handlers.ModerateHandler
	Health   *handlers.HealthHandler

	// Limiter may be nil (rate limiting disabled).
	Limiter *ratelimit.Limiter
	// ResponseCache may be nil (caching disabled).
	ResponseCache cache.Store
	CacheTTL      time.Duration

	Version string
}

func SetupRouter(r *chi.Mux, baseLogger *zap.Logger, deps Deps) {

	r.Use(metrics.Middleware)

	// base middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)

	r.Use(middleware.LoggingContext(baseLogger))
	r.Use(middleware.Recoverer())               // panic recovery
	r.Use(middleware.Timeout(30 * time.Second)) // request timeout

	// routes
	r.Route("/v1", func(r chi.Router) {
		// Order matters: limiter admits before the cache looks up, the
		// cache answers before the orchestrator runs.
		r.With(
			middleware.MaxBodySize(1*1024*1024), // 1 MB max body
			middleware.RateLimit(deps.Limiter),
			middleware.ResponseCache(deps.ResponseCache, deps.CacheTTL),
		).Post("/moderate", deps.Moderate.Moderate)

		r.Get("/health", deps.Health.Health)
	})

	// service descriptor
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"message": "Moderation Gateway",
			"version": deps.Version,
			"health":  "/v1/health",
		})
	})

	// liveness probe
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Handle("/metrics", metrics.Handler())
}

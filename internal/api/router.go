package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/ideapods/moderation/internal/api/handlers"
	"github.com/ideapods/moderation/internal/api/middleware"
	"github.com/ideapods/moderation/internal/config"
)

// Deps are the collaborators the router wires into handlers. DB, Redis,
// Audit and Queue are optional.
type Deps struct {
	DB        *pgxpool.Pool
	Redis     *redis.Client
	Config    *config.Config
	Moderator handlers.Moderator
	Audit     handlers.AuditLog
	Queue     handlers.Enqueuer
	Gatherer  prometheus.Gatherer
}

type Router struct {
	mux  *chi.Mux
	deps Deps
}

func NewRouter(deps Deps) *Router {
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}
	return &Router{
		mux:  chi.NewRouter(),
		deps: deps,
	}
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)

	// Health and metrics (not rate limited)
	health := handlers.NewHealthHandler(rt.readinessChecks())
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(rt.deps.Gatherer, promhttp.HandlerOpts{}))

	rl := middleware.NewRateLimiter(rt.deps.Config.RateLimit.RPS, rt.deps.Config.RateLimit.Burst)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rl.Limit)

		modH := handlers.NewModerationHandler(rt.deps.Moderator, rt.deps.Audit, rt.deps.Queue)
		r.Route("/moderation", func(r chi.Router) {
			r.Post("/moderate", modH.Moderate)
			r.Post("/quick-check", modH.QuickCheck)
			r.Post("/async", modH.Async)
			r.Get("/diagnostics", modH.Diagnostics)
			r.Get("/audit", modH.Audit)
		})
	})

	return r
}

func (rt *Router) readinessChecks() map[string]handlers.Check {
	checks := map[string]handlers.Check{}
	if rt.deps.DB != nil {
		checks["database"] = rt.deps.DB.Ping
	}
	if rt.deps.Redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return rt.deps.Redis.Ping(ctx).Err()
		}
	}
	return checks
}

package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"yoco/stocksync/internal/api"
	"yoco/stocksync/internal/middleware"
)

// RegisterRoutes builds the chi router. gatherer backs /metrics.
func RegisterRoutes(deps *api.Dependencies, gatherer prometheus.Gatherer, upSince time.Time, logger *zap.SugaredLogger) http.Handler {
	r := chi.NewRouter()

	// global middleware
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.MetricsMiddleware(deps.Metrics, logger.Named("HTTP")))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.API.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	r.Get("/healthCheck", api.HealthCheckHandler(deps.ORM, deps.Catalog, deps.Redis, upSince))
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	handlers := api.NewHandlers(deps, logger)

	webhookLimiter := middleware.NewRateLimiter(deps.Config.API.WebhookRPS, deps.Config.API.WebhookBurst)
	r.Route("/hooks", func(hooks chi.Router) {
		hooks.Use(webhookLimiter.Middleware)
		hooks.Get("/sync-all", handlers.SyncAllWebhook())
		hooks.Post("/sync-all", handlers.SyncAllWebhook())
	})

	RegisterAPIRoutes(r, deps, handlers)

	logger.Infow("Router initialized")
	return r
}

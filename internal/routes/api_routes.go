package routes

import (
	"github.com/go-chi/chi/v5"

	"yoco/stocksync/internal/api"
	"yoco/stocksync/internal/constants"
	"yoco/stocksync/internal/middleware"
)

// RegisterAPIRoutes registers all API v1 routes and handlers
func RegisterAPIRoutes(r chi.Router, deps *api.Dependencies, handlers *api.Handlers) {
	r.Route("/api/v1", func(v1 chi.Router) {
		v1.Use(middleware.AuthMiddleware(deps.Services.Tokens)) // global: all routes must carry a bearer token

		// Operators run syncs and read state
		v1.Group(func(operator chi.Router) {
			operator.Use(middleware.RequireRole(constants.RoleOperator))

			operator.Get("/suppliers", handlers.ListSuppliers())
			operator.Post("/suppliers/{id}/sync", handlers.SyncSupplier())
			operator.Post("/suppliers/{id}/test-feed", handlers.TestFeed())
			operator.Get("/suppliers/{id}/schedule", handlers.GetSchedule())
			operator.Delete("/suppliers/{id}/feed-cache", handlers.ClearFeedCache())

			operator.Post("/sync-all", handlers.SyncAll())
			operator.Get("/sync-logs", handlers.ListSyncLogs())
			operator.Get("/sync-batches", handlers.ListSyncBatches())

			operator.Post("/products/{id}/check-stock", handlers.CheckStock())
			operator.Post("/products/{id}/reconcile", handlers.Reconcile())
			operator.Get("/products/{id}/supplier-stock", handlers.SupplierStock())

			// Admin-only group
			operator.Group(func(admin chi.Router) {
				admin.Use(middleware.RequireRole(constants.RoleAdmin))

				admin.Put("/products/{id}/sync-enabled", handlers.SetSyncEnabled())
				admin.Delete("/sync-logs", handlers.PurgeSyncLogs())
			})
		})
	})
}

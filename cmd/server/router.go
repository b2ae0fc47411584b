package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/listas/listas-api/internal/api"
	apiMiddleware "github.com/listas/listas-api/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes
// and middleware. It accepts the application dependencies to create handlers
// and register routes. Returns the configured router.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	// Apply standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	// Create API handlers using the application's services
	resourceHandler := api.NewResourceHandler(app.resourceService, app.logger)
	importHandler := api.NewImportHandler(app.importService, app.logger)
	integrationHandler := api.NewIntegrationHandler(app.integrationService, app.logger)

	// Register routes. Identity comes from the gateway in front of this
	// service, so every API route requires the user header.
	r.Route("/api", func(r chi.Router) {
		r.Use(apiMiddleware.UserIdentity)

		// Resource endpoints
		r.Post("/resources", resourceHandler.CreateResource)
		r.Put("/resources/{id}/position", resourceHandler.RepositionResource)
		r.Post("/resources/{id}/complete", resourceHandler.CompleteResource)
		r.Delete("/resources/{id}/complete", resourceHandler.UncompleteResource)
		r.Delete("/resources/{id}", resourceHandler.DeleteResource)

		// Bulk import endpoint
		r.Post("/import-resources", importHandler.ImportResources)

		// Subscription endpoints
		r.Post("/integrations", integrationHandler.CreateSubscription)
		r.Delete("/integrations/{id}", integrationHandler.DeleteSubscription)
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte("OK"))
		if err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}

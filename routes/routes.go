package routes

import (
	"net/http"
	"time"

	"github.com/dupatihari/azure-rag-demo/app"
	"github.com/dupatihari/azure-rag-demo/middleware"
	"github.com/dupatihari/azure-rag-demo/utils"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// InsightsPath is the public insights endpoint
const InsightsPath = "/api/getcampaigninsights"

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(requestTimeout(deps)))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check endpoints
	r.Get("/healthz", deps.HealthHandler.HandleHealth)
	r.Get("/readyz", deps.HealthHandler.HandleReadiness)

	r.Get(InsightsPath, deps.InsightsHandler.HandleGetInsights)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/insights", deps.InsightsHandler.HandleGetInsights)

		if deps.AuditHandler != nil && deps.Config.Server.AdminAPIKey != "" {
			auth := middleware.NewAuthMiddleware(middleware.NewAPIKeyAuthenticator(deps.Config.Server.AdminAPIKey), deps.Logger)
			r.With(auth.RequireAuth).Get("/audit", deps.AuditHandler.HandleList)
		}
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteError(w, http.StatusNotFound, "endpoint not found", nil)
	})

	return r
}

// requestTimeout leaves the pipeline its own deadline plus headroom
func requestTimeout(deps *app.Dependencies) time.Duration {
	if d := deps.Config.Insights.RequestTimeout; d > 0 {
		return d + 5*time.Second
	}
	return 120 * time.Second
}

package routes

import (
	"net/http"

	"github.com/rxgrid/pharmacy-discovery/internal/api/handlers"
	"github.com/rxgrid/pharmacy-discovery/internal/api/middleware"
	"github.com/rxgrid/pharmacy-discovery/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	discoveryHandler      *handlers.DiscoveryHandler
	recommendationHandler *handlers.RecommendationHandler
	coverageHandler       *handlers.CoverageHandler
	notificationHandler   *handlers.NotificationHandler

	metrics        *observability.Metrics
	allowedOrigins []string
}

// NewRouter creates a new router
func NewRouter(
	discoveryHandler *handlers.DiscoveryHandler,
	recommendationHandler *handlers.RecommendationHandler,
	coverageHandler *handlers.CoverageHandler,
	notificationHandler *handlers.NotificationHandler,
	metrics *observability.Metrics,
	allowedOrigins []string,
) *Router {
	return &Router{
		mux:                   http.NewServeMux(),
		discoveryHandler:      discoveryHandler,
		recommendationHandler: recommendationHandler,
		coverageHandler:       coverageHandler,
		notificationHandler:   notificationHandler,
		metrics:               metrics,
		allowedOrigins:        allowedOrigins,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	// Health check endpoint
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	// Discovery endpoints
	r.mux.HandleFunc("GET /api/pharmacies/nearby", r.discoveryHandler.FindNearby)
	r.mux.HandleFunc("GET /api/pharmacies/{id}/score", r.discoveryHandler.ScorePharmacy)
	r.mux.HandleFunc("POST /api/pharmacies/medications/check", r.discoveryHandler.CheckMedications)

	// Recommendation endpoints
	r.mux.HandleFunc("GET /api/users/{id}/recommendations", r.recommendationHandler.GetRecommendations)

	// Coverage analytics endpoints
	r.mux.HandleFunc("POST /api/coverage/analyze", r.coverageHandler.AnalyzeCoverage)

	// Notification endpoints
	if r.notificationHandler != nil {
		r.mux.HandleFunc("POST /api/pharmacies/notify", r.notificationHandler.NotifyPharmacies)
	}

	// Apply middleware in reverse order (last middleware wraps first)
	// CORS must be outermost so error responses also get CORS headers.
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)

	return handler
}

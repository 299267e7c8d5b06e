package handlers

import (
	"net/http"

	"github.com/rxgrid/pharmacy-discovery/internal/application/services"
)

// RecommendationHandler handles personalized recommendation HTTP requests
type RecommendationHandler struct {
	recommendations *services.RecommendationService
}

// NewRecommendationHandler creates a new recommendation handler
func NewRecommendationHandler(recommendations *services.RecommendationService) *RecommendationHandler {
	return &RecommendationHandler{
		recommendations: recommendations,
	}
}

// GetRecommendations handles GET /api/users/{id}/recommendations
func (h *RecommendationHandler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if userID == "" {
		respondWithError(w, http.StatusBadRequest, "user ID is required")
		return
	}

	location, ok := parseLocation(w, r)
	if !ok {
		return
	}

	radiusKm, err := parseFloatParam(r, "radius_km", 10)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "radius_km must be a number")
		return
	}

	filter, ok := parseFilter(w, r)
	if !ok {
		return
	}

	result, err := h.recommendations.GetRecommendations(r.Context(), userID, location, radiusKm, filter)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"results": result.Results,
		"count":   len(result.Results),
		"partial": result.Partial,
	})
}

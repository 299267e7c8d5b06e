package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/rxgrid/pharmacy-discovery/internal/application/services"
	"github.com/rxgrid/pharmacy-discovery/internal/domain/entities"
)

// DiscoveryHandler handles pharmacy discovery HTTP requests
type DiscoveryHandler struct {
	discovery   *services.DiscoveryService
	medications *services.MedicationService
}

// NewDiscoveryHandler creates a new discovery handler
func NewDiscoveryHandler(discovery *services.DiscoveryService, medications *services.MedicationService) *DiscoveryHandler {
	return &DiscoveryHandler{
		discovery:   discovery,
		medications: medications,
	}
}

// FindNearby handles GET /api/pharmacies/nearby
func (h *DiscoveryHandler) FindNearby(w http.ResponseWriter, r *http.Request) {
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

	result, err := h.discovery.FindNearby(r.Context(), location, radiusKm, filter)
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

// ScorePharmacy handles GET /api/pharmacies/{id}/score
func (h *DiscoveryHandler) ScorePharmacy(w http.ResponseWriter, r *http.Request) {
	pharmacyID := r.PathValue("id")
	if pharmacyID == "" {
		respondWithError(w, http.StatusBadRequest, "pharmacy ID is required")
		return
	}

	location, ok := parseLocation(w, r)
	if !ok {
		return
	}

	filter, ok := parseFilter(w, r)
	if !ok {
		return
	}

	scored, err := h.discovery.ScorePharmacy(r.Context(), pharmacyID, location, filter)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, scored)
}

type medicationCheckRequest struct {
	PharmacyIDs []string `json:"pharmacy_ids"`
	Medications []string `json:"medications"`
}

// CheckMedications handles POST /api/pharmacies/medications/check
func (h *DiscoveryHandler) CheckMedications(w http.ResponseWriter, r *http.Request) {
	var req medicationCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.PharmacyIDs) == 0 {
		respondWithError(w, http.StatusBadRequest, "pharmacy_ids is required")
		return
	}
	if len(req.Medications) == 0 {
		respondWithError(w, http.StatusBadRequest, "medications is required")
		return
	}

	reports, err := h.medications.FilterByMedication(r.Context(), req.PharmacyIDs, req.Medications)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"reports": reports,
		"count":   len(reports),
	})
}

// parseLocation reads lat/lon query params. Validation of the coordinate
// range happens in the service layer.
func parseLocation(w http.ResponseWriter, r *http.Request) (entities.Location, bool) {
	latStr := r.URL.Query().Get("lat")
	lonStr := r.URL.Query().Get("lon")
	if latStr == "" || lonStr == "" {
		respondWithError(w, http.StatusBadRequest, "lat and lon are required")
		return entities.Location{}, false
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "lat must be a number")
		return entities.Location{}, false
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "lon must be a number")
		return entities.Location{}, false
	}

	return entities.Location{Latitude: lat, Longitude: lon}, true
}

func parseFilter(w http.ResponseWriter, r *http.Request) (entities.DiscoveryFilter, bool) {
	query := r.URL.Query()

	filter := entities.DiscoveryFilter{
		RequiredServices:  parseCSVParam(query.Get("services")),
		Medications:       parseCSVParam(query.Get("medications")),
		Urgency:           entities.UrgencyLevel(query.Get("urgency")),
		RequiresInsurance: query.Get("requires_insurance") == "true",
		RequiresDelivery:  query.Get("requires_delivery") == "true",
		OpenAllDay:        query.Get("open_all_day") == "true",
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "limit must be an integer")
			return entities.DiscoveryFilter{}, false
		}
		filter.Limit = limit
	}

	return filter, true
}

func parseCSVParam(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parseFloatParam(r *http.Request, name string, fallback float64) (float64, error) {
	value := r.URL.Query().Get(name)
	if value == "" {
		return fallback, nil
	}
	return strconv.ParseFloat(value, 64)
}

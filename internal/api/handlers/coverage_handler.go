package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rxgrid/pharmacy-discovery/internal/application/services"
	"github.com/rxgrid/pharmacy-discovery/pkg/geo"
)

// CoverageHandler handles coverage analysis HTTP requests
type CoverageHandler struct {
	coverage *services.CoverageService
}

// NewCoverageHandler creates a new coverage handler
func NewCoverageHandler(coverage *services.CoverageService) *CoverageHandler {
	return &CoverageHandler{
		coverage: coverage,
	}
}

type coverageAnalyzeRequest struct {
	North         float64 `json:"north"`
	South         float64 `json:"south"`
	East          float64 `json:"east"`
	West          float64 `json:"west"`
	CellSizeKm    float64 `json:"cell_size_km"`
	MaxDistanceKm float64 `json:"max_distance_km"`
}

// AnalyzeCoverage handles POST /api/coverage/analyze
func (h *CoverageHandler) AnalyzeCoverage(w http.ResponseWriter, r *http.Request) {
	var req coverageAnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	box := geo.BoundingBox{
		North: req.North,
		South: req.South,
		East:  req.East,
		West:  req.West,
	}

	report, err := h.coverage.AnalyzeCoverage(r.Context(), box, req.CellSizeKm, req.MaxDistanceKm)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, report)
}

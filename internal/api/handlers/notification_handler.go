package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rxgrid/pharmacy-discovery/internal/application/services"
	"github.com/rxgrid/pharmacy-discovery/internal/domain/entities"
)

// NotificationHandler handles pharmacy notification HTTP requests
type NotificationHandler struct {
	notifications *services.NotificationService
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(notifications *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{
		notifications: notifications,
	}
}

type notifyRequest struct {
	PharmacyIDs []string                     `json:"pharmacy_ids"`
	Payload     entities.NotificationPayload `json:"payload"`
}

// NotifyPharmacies handles POST /api/pharmacies/notify
func (h *NotificationHandler) NotifyPharmacies(w http.ResponseWriter, r *http.Request) {
	var req notifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.notifications.NotifyCandidates(r.Context(), req.PharmacyIDs, req.Payload)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

package entities

import "time"

// DispatchStatus represents the delivery status of a notification intent.
// Actual channel delivery happens outside this engine; "sent" means the
// dispatcher accepted the intent.
type DispatchStatus string

const (
	DispatchStatusSent    DispatchStatus = "sent"
	DispatchStatusFailed  DispatchStatus = "failed"
	DispatchStatusSkipped DispatchStatus = "skipped"
)

// NotificationPayload is the request context attached to every intent.
type NotificationPayload struct {
	PrescriptionID string   `json:"prescription_id,omitempty"`
	Medications    []string `json:"medications,omitempty"`
	Urgency        string   `json:"urgency,omitempty"`
	Message        string   `json:"message,omitempty"`
}

// NotificationIntent is one notification the engine wants delivered to a
// pharmacy.
type NotificationIntent struct {
	ID         string              `json:"id"`
	PharmacyID string              `json:"pharmacy_id"`
	Payload    NotificationPayload `json:"payload"`
	CreatedAt  time.Time           `json:"created_at"`
}

// PharmacyDispatchStatus is the per-recipient outcome of a notify request.
type PharmacyDispatchStatus struct {
	PharmacyID string         `json:"pharmacy_id"`
	Status     DispatchStatus `json:"status"`
	Error      string         `json:"error,omitempty"`
}

// NotifyResult summarizes a notify request.
type NotifyResult struct {
	SentCount int                      `json:"sent_count"`
	Statuses  []PharmacyDispatchStatus `json:"statuses"`
}

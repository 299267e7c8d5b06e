package entities

import "time"

// Prescription is a completed prescription as returned by the history
// collaborator. Only the fields the ranker needs are modeled.
type Prescription struct {
	ID          string    `json:"id" db:"id"`
	UserID      string    `json:"user_id" db:"user_id"`
	PharmacyID  string    `json:"pharmacy_id" db:"pharmacy_id"`
	TotalAmount float64   `json:"total_amount" db:"total_amount"`
	CompletedAt time.Time `json:"completed_at" db:"completed_at"`
}

// UsageRecord is a per-user aggregate over completed prescriptions at one
// pharmacy. Built transiently per request; never persisted by the engine.
type UsageRecord struct {
	PharmacyID string    `json:"pharmacy_id"`
	UsageCount int       `json:"usage_count"`
	LastUsed   time.Time `json:"last_used"`
	TotalSpend float64   `json:"total_spend"`
}

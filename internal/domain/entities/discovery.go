package entities

import "time"

// UrgencyLevel adjusts fulfillment estimates for how quickly the patient
// needs the prescription.
type UrgencyLevel string

const (
	UrgencyEmergency UrgencyLevel = "emergency"
	UrgencyUrgent    UrgencyLevel = "urgent"
	UrgencyNormal    UrgencyLevel = "normal"
	UrgencyRoutine   UrgencyLevel = "routine"
)

// ProcessingMultiplier scales the average processing time. Unknown levels
// fall back to 1.0.
func (u UrgencyLevel) ProcessingMultiplier() float64 {
	switch u {
	case UrgencyEmergency:
		return 0.5
	case UrgencyUrgent:
		return 0.7
	case UrgencyRoutine:
		return 1.2
	default:
		return 1.0
	}
}

// DiscoveryFilter narrows a discovery request.
type DiscoveryFilter struct {
	RequiredServices  []string     `json:"required_services,omitempty"`
	Medications       []string     `json:"medications,omitempty"`
	Urgency           UrgencyLevel `json:"urgency,omitempty"`
	RequiresInsurance bool         `json:"requires_insurance,omitempty"`
	RequiresDelivery  bool         `json:"requires_delivery,omitempty"`
	OpenAllDay        bool         `json:"open_all_day,omitempty"`
	Limit             int          `json:"limit,omitempty"`
}

// AvailabilityStatus is the real-time state of a pharmacy at query time.
// Unknown is set when enrichment failed and conservative defaults were
// substituted.
type AvailabilityStatus struct {
	IsOpen      bool       `json:"is_open"`
	CapacityPct float64    `json:"capacity_pct"`
	WaitMinutes int        `json:"wait_minutes"`
	NextOpen    *time.Time `json:"next_open,omitempty"`
	Unknown     bool       `json:"availability_unknown,omitempty"`
}

// Score breakdown keys. Values are the weighted contribution of each axis;
// review_volume_bonus is informational and not part of the 0-100 score.
const (
	BreakdownDistance          = "distance"
	BreakdownRating            = "rating"
	BreakdownSpeed             = "speed"
	BreakdownServices          = "services"
	BreakdownAvailability      = "availability"
	BreakdownReviewVolumeBonus = "review_volume_bonus"
)

// ScoredPharmacy is a pharmacy enriched and scored for one discovery request.
type ScoredPharmacy struct {
	Pharmacy                    *Pharmacy          `json:"pharmacy"`
	DistanceKm                  float64            `json:"distance_km"`
	Score                       int                `json:"score"`
	Breakdown                   map[string]float64 `json:"breakdown,omitempty"`
	EstimatedFulfillmentMinutes int                `json:"estimated_fulfillment_minutes"`
	Availability                AvailabilityStatus `json:"availability"`
	CanDeliver                  bool               `json:"can_deliver"`
	Medications                 *MedicationReport  `json:"medications,omitempty"`
	RecommendationScore         float64            `json:"recommendation_score,omitempty"`
}

// DiscoveryResult is the ranked output of a discovery request. Partial is
// set when the request deadline cut enrichment short.
type DiscoveryResult struct {
	Results []ScoredPharmacy `json:"results"`
	Partial bool             `json:"partial,omitempty"`
}

package entities

import (
	"strings"
	"time"
)

// Pharmacy represents a pharmacy in the system. Records are created and
// updated by the pharmacy-management side; the discovery engine reads them.
type Pharmacy struct {
	ID                   string              `json:"id" db:"id"`
	Name                 string              `json:"name" db:"name"`
	Address              Address             `json:"address" db:"-"`
	Location             Location            `json:"location" db:"-"`
	PhoneNumber          string              `json:"phone_number" db:"phone_number"`
	Email                string              `json:"email" db:"email"`
	Services             ServiceCapabilities `json:"services" db:"-"`
	OperatingHours       OperatingHours      `json:"operating_hours" db:"-"`
	DeliveryRadiusKm     *float64            `json:"delivery_radius_km,omitempty" db:"delivery_radius_km"`
	AcceptsInsurance     bool                `json:"accepts_insurance" db:"accepts_insurance"`
	AvgProcessingMinutes *int                `json:"avg_processing_minutes,omitempty" db:"avg_processing_minutes"`
	Rating               float64             `json:"rating" db:"rating"`
	ReviewCount          int                 `json:"review_count" db:"review_count"`
	CurrentOrderCount    int                 `json:"current_order_count" db:"current_order_count"`
	CurrentCapacityPct   float64             `json:"current_capacity_pct" db:"current_capacity_pct"`
	IsVerified           bool                `json:"is_verified" db:"is_verified"`
	IsActive             bool                `json:"is_active" db:"is_active"`
	CreatedAt            time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time           `json:"updated_at" db:"updated_at"`
}

// Address represents a physical address
type Address struct {
	Street  string `json:"street" db:"street"`
	City    string `json:"city" db:"city"`
	State   string `json:"state" db:"state"`
	ZipCode string `json:"zip_code" db:"zip_code"`
	Country string `json:"country" db:"country"`
}

// Location represents geographical coordinates
type Location struct {
	Latitude  float64 `json:"latitude" db:"latitude"`
	Longitude float64 `json:"longitude" db:"longitude"`
}

// Service capability names as used in discovery filters.
const (
	ServicePrescription = "prescription_fulfillment"
	ServiceConsultation = "consultation"
	ServiceDelivery     = "delivery"
	ServiceVaccination  = "vaccination"
	ServiceCompounding  = "compounding"
)

// ServiceCapabilities flags what a pharmacy can do.
type ServiceCapabilities struct {
	PrescriptionFulfillment bool `json:"prescription_fulfillment" db:"svc_prescription"`
	Consultation            bool `json:"consultation" db:"svc_consultation"`
	Delivery                bool `json:"delivery" db:"svc_delivery"`
	Vaccination             bool `json:"vaccination" db:"svc_vaccination"`
	Compounding             bool `json:"compounding" db:"svc_compounding"`
}

// Has reports whether the named service is offered. Unknown names are not
// offered.
func (s ServiceCapabilities) Has(name string) bool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case ServicePrescription:
		return s.PrescriptionFulfillment
	case ServiceConsultation:
		return s.Consultation
	case ServiceDelivery:
		return s.Delivery
	case ServiceVaccination:
		return s.Vaccination
	case ServiceCompounding:
		return s.Compounding
	}
	return false
}

// List returns the offered service names.
func (s ServiceCapabilities) List() []string {
	var out []string
	if s.PrescriptionFulfillment {
		out = append(out, ServicePrescription)
	}
	if s.Consultation {
		out = append(out, ServiceConsultation)
	}
	if s.Delivery {
		out = append(out, ServiceDelivery)
	}
	if s.Vaccination {
		out = append(out, ServiceVaccination)
	}
	if s.Compounding {
		out = append(out, ServiceCompounding)
	}
	return out
}

// MatchCount returns how many of the required services are offered.
func (s ServiceCapabilities) MatchCount(required []string) int {
	matched := 0
	for _, name := range required {
		if s.Has(name) {
			matched++
		}
	}
	return matched
}

// DayHours holds one weekday's opening window. Times are "HH:MM" in the
// pharmacy's local time. A close before open means the window wraps past
// midnight.
type DayHours struct {
	Open   string `json:"open"`
	Close  string `json:"close"`
	Closed bool   `json:"closed"`
}

// OperatingHours is keyed by lowercase weekday name ("monday" ... "sunday").
type OperatingHours map[string]DayHours

// For returns the hours for the given weekday. Missing days count as closed.
func (h OperatingHours) For(day time.Weekday) DayHours {
	if h == nil {
		return DayHours{Closed: true}
	}
	hours, ok := h[strings.ToLower(day.String())]
	if !ok {
		return DayHours{Closed: true}
	}
	return hours
}

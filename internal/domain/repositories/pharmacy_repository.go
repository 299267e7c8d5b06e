package repositories

import (
	"context"

	"github.com/rxgrid/pharmacy-discovery/internal/domain/entities"
)

// GeoSearchParams defines parameters for a radius-bounded pharmacy search.
// Equality/boolean filters are applied by the store ahead of the range scan.
type GeoSearchParams struct {
	Latitude          float64
	Longitude         float64
	RadiusKm          float64
	RequiredServices  []string
	RequiresInsurance bool
	RequiresDelivery  bool
	Limit             int
}

// PharmacyRepository defines the interface for pharmacy data operations
type PharmacyRepository interface {
	// GetByID retrieves a pharmacy by ID
	GetByID(ctx context.Context, id string) (*entities.Pharmacy, error)

	// GetByIDs retrieves multiple pharmacies by their IDs
	GetByIDs(ctx context.Context, ids []string) ([]*entities.Pharmacy, error)

	// Search returns active, verified pharmacies matching the params within
	// the bounding box around the center. Callers apply the exact radius cut.
	Search(ctx context.Context, params GeoSearchParams) ([]*entities.Pharmacy, error)
}

// PharmacySearchRepository defines the interface for search-engine-backed
// pharmacy retrieval (e.g. Typesense).
type PharmacySearchRepository interface {
	// Search searches pharmacies by geo radius and filters
	Search(ctx context.Context, params GeoSearchParams) ([]*entities.Pharmacy, error)

	// Index indexes a pharmacy
	Index(ctx context.Context, pharmacy *entities.Pharmacy) error

	// Delete removes a pharmacy from the index
	Delete(ctx context.Context, id string) error
}

// InventoryRepository exposes read-only inventory snapshots.
type InventoryRepository interface {
	// GetByPharmacies returns the inventory lines for the given pharmacies,
	// optionally narrowed to the given medication names.
	GetByPharmacies(ctx context.Context, pharmacyIDs []string, medications []string) ([]entities.InventoryLine, error)
}

// PrescriptionHistoryRepository exposes a user's completed prescriptions.
type PrescriptionHistoryRepository interface {
	// ListCompletedByUser returns the user's completed prescriptions, most
	// recent first.
	ListCompletedByUser(ctx context.Context, userID string, limit int) ([]entities.Prescription, error)
}

package search

import (
	"context"
	"fmt"

	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"

	"github.com/rxgrid/pharmacy-discovery/internal/domain/entities"
	"github.com/rxgrid/pharmacy-discovery/internal/domain/repositories"
	tsclient "github.com/rxgrid/pharmacy-discovery/internal/infrastructure/clients/typesense"
)

// TypesenseAdapter implements pharmacy geo search using Typesense. The
// index holds only the filterable projection; hits are hydrated into full
// records through the pharmacy repository.
type TypesenseAdapter struct {
	client     *tsclient.Client
	pharmacies repositories.PharmacyRepository
}

// Ensure TypesenseAdapter implements PharmacySearchRepository
var _ repositories.PharmacySearchRepository = (*TypesenseAdapter)(nil)

// NewTypesenseAdapter creates a new Typesense adapter
func NewTypesenseAdapter(client *tsclient.Client, pharmacies repositories.PharmacyRepository) *TypesenseAdapter {
	return &TypesenseAdapter{client: client, pharmacies: pharmacies}
}

// InitSchema ensures the collection exists
func (a *TypesenseAdapter) InitSchema(ctx context.Context) error {
	// Check if collection exists
	_, err := a.client.Client().Collection(tsclient.PharmaciesCollection).Retrieve(ctx)
	if err == nil {
		return nil // Collection exists
	}

	schema := &api.CollectionSchema{
		Name: tsclient.PharmaciesCollection,
		Fields: []api.Field{
			{Name: "id", Type: "string"},
			{Name: "name", Type: "string"},
			{Name: "is_active", Type: "bool"},
			{Name: "is_verified", Type: "bool"},
			{Name: "accepts_insurance", Type: "bool"},
			{Name: "svc_prescription", Type: "bool"},
			{Name: "svc_consultation", Type: "bool"},
			{Name: "svc_delivery", Type: "bool"},
			{Name: "svc_vaccination", Type: "bool"},
			{Name: "svc_compounding", Type: "bool"},
			{Name: "location", Type: "geopoint"},
			{Name: "rating", Type: "float"},
			{Name: "review_count", Type: "int32"},
			{Name: "created_at", Type: "int64"},
		},
		DefaultSortingField: pointer.String("created_at"),
	}

	_, err = a.client.Client().Collections().Create(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to create typesense collection: %w", err)
	}

	return nil
}

// Index indexes a pharmacy
func (a *TypesenseAdapter) Index(ctx context.Context, pharmacy *entities.Pharmacy) error {
	document := map[string]interface{}{
		"id":                pharmacy.ID,
		"name":              pharmacy.Name,
		"is_active":         pharmacy.IsActive,
		"is_verified":       pharmacy.IsVerified,
		"accepts_insurance": pharmacy.AcceptsInsurance,
		"svc_prescription":  pharmacy.Services.PrescriptionFulfillment,
		"svc_consultation":  pharmacy.Services.Consultation,
		"svc_delivery":      pharmacy.Services.Delivery,
		"svc_vaccination":   pharmacy.Services.Vaccination,
		"svc_compounding":   pharmacy.Services.Compounding,
		"location":          []float64{pharmacy.Location.Latitude, pharmacy.Location.Longitude},
		"rating":            pharmacy.Rating,
		"review_count":      pharmacy.ReviewCount,
		"created_at":        pharmacy.CreatedAt.Unix(),
	}

	_, err := a.client.Client().Collection(tsclient.PharmaciesCollection).Documents().Upsert(ctx, document)
	if err != nil {
		return fmt.Errorf("failed to index pharmacy: %w", err)
	}

	return nil
}

// Delete removes a pharmacy from the index
func (a *TypesenseAdapter) Delete(ctx context.Context, id string) error {
	_, err := a.client.Client().Collection(tsclient.PharmaciesCollection).Document(id).Delete(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete pharmacy from index: %w", err)
	}
	return nil
}

// serviceFields maps discovery-filter service names to index fields.
var serviceFields = map[string]string{
	entities.ServicePrescription: "svc_prescription",
	entities.ServiceConsultation: "svc_consultation",
	entities.ServiceDelivery:     "svc_delivery",
	entities.ServiceVaccination:  "svc_vaccination",
	entities.ServiceCompounding:  "svc_compounding",
}

// Search runs a radius query against the index and hydrates the hits into
// full pharmacy records from the primary store.
func (a *TypesenseAdapter) Search(ctx context.Context, params repositories.GeoSearchParams) ([]*entities.Pharmacy, error) {
	filterBy := fmt.Sprintf("is_active:=true && is_verified:=true && location:(%f, %f, %f km)",
		params.Latitude, params.Longitude, params.RadiusKm)
	if params.RequiresInsurance {
		filterBy += " && accepts_insurance:=true"
	}
	if params.RequiresDelivery {
		filterBy += " && svc_delivery:=true"
	}
	for _, name := range params.RequiredServices {
		if field, ok := serviceFields[name]; ok {
			filterBy += fmt.Sprintf(" && %s:=true", field)
		}
	}

	limit := params.Limit
	if limit <= 0 {
		limit = 100
	}

	searchParams := &api.SearchCollectionParams{
		Q:        pointer.String("*"),
		QueryBy:  pointer.String("name"),
		FilterBy: pointer.String(filterBy),
		SortBy:   pointer.String(fmt.Sprintf("location(%f, %f):asc", params.Latitude, params.Longitude)),
		Page:     pointer.Int(1),
		PerPage:  pointer.Int(limit),
	}

	result, err := a.client.Client().Collection(tsclient.PharmaciesCollection).Documents().Search(ctx, searchParams)
	if err != nil {
		return nil, fmt.Errorf("failed to search pharmacies: %w", err)
	}

	if result.Hits == nil || len(*result.Hits) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(*result.Hits))
	for _, hit := range *result.Hits {
		doc := *hit.Document
		if id, ok := doc["id"].(string); ok {
			ids = append(ids, id)
		}
	}

	// The index carries only the filter projection; the primary store has
	// hours, capacity and contact details.
	pharmacies, err := a.pharmacies.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	// Preserve the index's distance ordering.
	byID := make(map[string]*entities.Pharmacy, len(pharmacies))
	for _, pharmacy := range pharmacies {
		byID[pharmacy.ID] = pharmacy
	}
	ordered := make([]*entities.Pharmacy, 0, len(ids))
	for _, id := range ids {
		if pharmacy, ok := byID[id]; ok {
			ordered = append(ordered, pharmacy)
		}
	}
	return ordered, nil
}

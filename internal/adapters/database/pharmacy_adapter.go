package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"

	"github.com/rxgrid/pharmacy-discovery/internal/domain/entities"
	"github.com/rxgrid/pharmacy-discovery/internal/domain/repositories"
	"github.com/rxgrid/pharmacy-discovery/internal/infrastructure/clients/postgres"
	"github.com/rxgrid/pharmacy-discovery/internal/infrastructure/observability"
	apperrors "github.com/rxgrid/pharmacy-discovery/pkg/errors"
	"github.com/rxgrid/pharmacy-discovery/pkg/geo"
)

var dialect = goqu.Dialect("postgres")

var pharmacyColumns = []interface{}{
	"id", "name", "street", "city", "state", "zip_code", "country",
	"latitude", "longitude", "phone_number", "email",
	"svc_prescription", "svc_consultation", "svc_delivery", "svc_vaccination", "svc_compounding",
	"operating_hours", "delivery_radius_km", "accepts_insurance", "avg_processing_minutes",
	"rating", "review_count", "current_order_count", "current_capacity_pct",
	"is_verified", "is_active", "created_at", "updated_at",
}

// serviceColumns maps discovery-filter service names to table columns.
var serviceColumns = map[string]string{
	entities.ServicePrescription: "svc_prescription",
	entities.ServiceConsultation: "svc_consultation",
	entities.ServiceDelivery:     "svc_delivery",
	entities.ServiceVaccination:  "svc_vaccination",
	entities.ServiceCompounding:  "svc_compounding",
}

// PharmacyAdapter implements the PharmacyRepository interface
type PharmacyAdapter struct {
	client *postgres.Client
}

// NewPharmacyAdapter creates a new pharmacy adapter
func NewPharmacyAdapter(client *postgres.Client) *PharmacyAdapter {
	return &PharmacyAdapter{
		client: client,
	}
}

var _ repositories.PharmacyRepository = (*PharmacyAdapter)(nil)

// GetByID retrieves a pharmacy by ID
func (a *PharmacyAdapter) GetByID(ctx context.Context, id string) (*entities.Pharmacy, error) {
	defer observability.RecordDBQuery(ctx, "pharmacies.get_by_id", time.Now())

	query, args, err := dialect.From("pharmacies").
		Select(pharmacyColumns...).
		Where(goqu.Ex{"id": id, "is_active": true}).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build pharmacy query", err)
	}

	var row pharmacyRow
	if err := a.client.DB().GetContext(ctx, &row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("pharmacy with id %s not found", id))
		}
		return nil, apperrors.NewRetrievalError("failed to get pharmacy", err)
	}

	return row.toEntity()
}

// GetByIDs retrieves multiple pharmacies by their IDs
func (a *PharmacyAdapter) GetByIDs(ctx context.Context, ids []string) ([]*entities.Pharmacy, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	defer observability.RecordDBQuery(ctx, "pharmacies.get_by_ids", time.Now())

	query, args, err := dialect.From("pharmacies").
		Select(pharmacyColumns...).
		Where(goqu.C("id").In(ids), goqu.C("is_active").IsTrue()).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build pharmacy query", err)
	}

	return a.queryPharmacies(ctx, query, args)
}

// Search returns active, verified pharmacies inside the bounding box around
// the search center. Equality and boolean predicates go ahead of the range
// scan so the store can use its indexes; the caller applies the exact
// haversine cut.
func (a *PharmacyAdapter) Search(ctx context.Context, params repositories.GeoSearchParams) ([]*entities.Pharmacy, error) {
	defer observability.RecordDBQuery(ctx, "pharmacies.geo_search", time.Now())

	ds := dialect.From("pharmacies").
		Select(pharmacyColumns...).
		Where(goqu.C("is_active").IsTrue(), goqu.C("is_verified").IsTrue())

	if params.RequiresInsurance {
		ds = ds.Where(goqu.C("accepts_insurance").IsTrue())
	}
	if params.RequiresDelivery {
		ds = ds.Where(goqu.C("svc_delivery").IsTrue())
	}
	for _, name := range params.RequiredServices {
		if col, ok := serviceColumns[name]; ok {
			ds = ds.Where(goqu.C(col).IsTrue())
		}
	}

	box := geo.NewBoundingBox(geo.Point(params.Latitude, params.Longitude), params.RadiusKm)
	ds = ds.Where(
		goqu.C("latitude").Between(goqu.Range(box.South, box.North)),
		goqu.C("longitude").Between(goqu.Range(box.West, box.East)),
	)

	if params.Limit > 0 {
		ds = ds.Limit(uint(params.Limit))
	}

	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build pharmacy search query", err)
	}

	return a.queryPharmacies(ctx, query, args)
}

// ListActive pages through active pharmacies in id order. Used by the
// indexer to rebuild the search collection.
func (a *PharmacyAdapter) ListActive(ctx context.Context, limit, offset int) ([]*entities.Pharmacy, error) {
	if limit <= 0 {
		limit = 500
	}
	defer observability.RecordDBQuery(ctx, "pharmacies.list_active", time.Now())

	query, args, err := dialect.From("pharmacies").
		Select(pharmacyColumns...).
		Where(goqu.C("is_active").IsTrue()).
		Order(goqu.C("id").Asc()).
		Limit(uint(limit)).
		Offset(uint(offset)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build pharmacy list query", err)
	}

	return a.queryPharmacies(ctx, query, args)
}

func (a *PharmacyAdapter) queryPharmacies(ctx context.Context, query string, args []interface{}) ([]*entities.Pharmacy, error) {
	var rows []pharmacyRow
	if err := a.client.DB().SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, apperrors.NewRetrievalError("pharmacy query failed", err)
	}

	pharmacies := make([]*entities.Pharmacy, 0, len(rows))
	for _, row := range rows {
		pharmacy, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		pharmacies = append(pharmacies, pharmacy)
	}
	return pharmacies, nil
}

// pharmacyRow is the flat scan target for the pharmacies table.
type pharmacyRow struct {
	ID                   string          `db:"id"`
	Name                 string          `db:"name"`
	Street               string          `db:"street"`
	City                 string          `db:"city"`
	State                string          `db:"state"`
	ZipCode              string          `db:"zip_code"`
	Country              string          `db:"country"`
	Latitude             float64         `db:"latitude"`
	Longitude            float64         `db:"longitude"`
	PhoneNumber          string          `db:"phone_number"`
	Email                string          `db:"email"`
	SvcPrescription      bool            `db:"svc_prescription"`
	SvcConsultation      bool            `db:"svc_consultation"`
	SvcDelivery          bool            `db:"svc_delivery"`
	SvcVaccination       bool            `db:"svc_vaccination"`
	SvcCompounding       bool            `db:"svc_compounding"`
	OperatingHours       []byte          `db:"operating_hours"`
	DeliveryRadiusKm     sql.NullFloat64 `db:"delivery_radius_km"`
	AcceptsInsurance     bool            `db:"accepts_insurance"`
	AvgProcessingMinutes sql.NullInt64   `db:"avg_processing_minutes"`
	Rating               float64         `db:"rating"`
	ReviewCount          int             `db:"review_count"`
	CurrentOrderCount    int             `db:"current_order_count"`
	CurrentCapacityPct   float64         `db:"current_capacity_pct"`
	IsVerified           bool            `db:"is_verified"`
	IsActive             bool            `db:"is_active"`
	CreatedAt            time.Time       `db:"created_at"`
	UpdatedAt            time.Time       `db:"updated_at"`
}

func (r pharmacyRow) toEntity() (*entities.Pharmacy, error) {
	pharmacy := &entities.Pharmacy{
		ID:   r.ID,
		Name: r.Name,
		Address: entities.Address{
			Street:  r.Street,
			City:    r.City,
			State:   r.State,
			ZipCode: r.ZipCode,
			Country: r.Country,
		},
		Location: entities.Location{
			Latitude:  r.Latitude,
			Longitude: r.Longitude,
		},
		PhoneNumber: r.PhoneNumber,
		Email:       r.Email,
		Services: entities.ServiceCapabilities{
			PrescriptionFulfillment: r.SvcPrescription,
			Consultation:            r.SvcConsultation,
			Delivery:                r.SvcDelivery,
			Vaccination:             r.SvcVaccination,
			Compounding:             r.SvcCompounding,
		},
		AcceptsInsurance:   r.AcceptsInsurance,
		Rating:             r.Rating,
		ReviewCount:        r.ReviewCount,
		CurrentOrderCount:  r.CurrentOrderCount,
		CurrentCapacityPct: r.CurrentCapacityPct,
		IsVerified:         r.IsVerified,
		IsActive:           r.IsActive,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}

	if r.DeliveryRadiusKm.Valid {
		radius := r.DeliveryRadiusKm.Float64
		pharmacy.DeliveryRadiusKm = &radius
	}
	if r.AvgProcessingMinutes.Valid {
		minutes := int(r.AvgProcessingMinutes.Int64)
		pharmacy.AvgProcessingMinutes = &minutes
	}

	if len(r.OperatingHours) > 0 {
		var hours entities.OperatingHours
		if err := json.Unmarshal(r.OperatingHours, &hours); err != nil {
			return nil, apperrors.NewInternalError(fmt.Sprintf("malformed operating hours for pharmacy %s", r.ID), err)
		}
		pharmacy.OperatingHours = hours
	}

	return pharmacy, nil
}

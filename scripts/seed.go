package main

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"

	"github.com/rxgrid/pharmacy-discovery/internal/adapters/database"
	"github.com/rxgrid/pharmacy-discovery/internal/adapters/search"
	"github.com/rxgrid/pharmacy-discovery/internal/domain/entities"
	"github.com/rxgrid/pharmacy-discovery/internal/infrastructure/clients/postgres"
	"github.com/rxgrid/pharmacy-discovery/internal/infrastructure/clients/typesense"
	"github.com/rxgrid/pharmacy-discovery/pkg/config"
)

// Development seed data: a handful of pharmacies around central Lagos plus
// inventory snapshots, inserted into Postgres and indexed into Typesense.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer pgClient.Close()

	var searchRepo *search.TypesenseAdapter
	if cfg.Typesense.Enabled {
		tsClient, err := typesense.NewClient(&cfg.Typesense)
		if err != nil {
			log.Printf("Typesense unavailable, seeding Postgres only: %v", err)
		} else {
			searchRepo = search.NewTypesenseAdapter(tsClient, database.NewPharmacyAdapter(pgClient))
			if err := searchRepo.InitSchema(context.Background()); err != nil {
				log.Printf("Failed to init Typesense schema: %v", err)
			}
		}
	}

	ctx := context.Background()
	dialect := goqu.Dialect("postgres")

	pharmacies := samplePharmacies()
	for _, p := range pharmacies {
		hoursJSON, err := json.Marshal(p.OperatingHours)
		if err != nil {
			log.Fatalf("Failed to encode hours for %s: %v", p.Name, err)
		}

		record := goqu.Record{
			"id":                   p.ID,
			"name":                 p.Name,
			"street":               p.Address.Street,
			"city":                 p.Address.City,
			"state":                p.Address.State,
			"zip_code":             p.Address.ZipCode,
			"country":              p.Address.Country,
			"latitude":             p.Location.Latitude,
			"longitude":            p.Location.Longitude,
			"phone_number":         p.PhoneNumber,
			"email":                p.Email,
			"svc_prescription":     p.Services.PrescriptionFulfillment,
			"svc_consultation":     p.Services.Consultation,
			"svc_delivery":         p.Services.Delivery,
			"svc_vaccination":      p.Services.Vaccination,
			"svc_compounding":      p.Services.Compounding,
			"operating_hours":      string(hoursJSON),
			"accepts_insurance":    p.AcceptsInsurance,
			"rating":               p.Rating,
			"review_count":         p.ReviewCount,
			"current_order_count":  p.CurrentOrderCount,
			"current_capacity_pct": p.CurrentCapacityPct,
			"is_verified":          p.IsVerified,
			"is_active":            p.IsActive,
			"created_at":           p.CreatedAt,
			"updated_at":           p.UpdatedAt,
		}
		if p.DeliveryRadiusKm != nil {
			record["delivery_radius_km"] = *p.DeliveryRadiusKm
		}
		if p.AvgProcessingMinutes != nil {
			record["avg_processing_minutes"] = *p.AvgProcessingMinutes
		}

		query, args, err := dialect.Insert("pharmacies").Rows(record).
			OnConflict(goqu.DoNothing()).Prepared(true).ToSQL()
		if err != nil {
			log.Fatalf("Failed to build insert for %s: %v", p.Name, err)
		}
		if _, err := pgClient.DB().ExecContext(ctx, query, args...); err != nil {
			log.Fatalf("Failed to insert %s: %v", p.Name, err)
		}

		if searchRepo != nil {
			if err := searchRepo.Index(ctx, p); err != nil {
				log.Printf("Failed to index %s: %v", p.Name, err)
			}
		}
		log.Printf("Seeded %s", p.Name)
	}

	for _, line := range sampleInventory(pharmacies) {
		query, args, err := dialect.Insert("inventory_lines").Rows(goqu.Record{
			"pharmacy_id":     line.PharmacyID,
			"medication_name": line.MedicationName,
			"stock_count":     line.StockCount,
			"unit_price":      line.UnitPrice,
		}).OnConflict(goqu.DoNothing()).Prepared(true).ToSQL()
		if err != nil {
			log.Fatalf("Failed to build inventory insert: %v", err)
		}
		if _, err := pgClient.DB().ExecContext(ctx, query, args...); err != nil {
			log.Fatalf("Failed to insert inventory line: %v", err)
		}
	}

	log.Println("Seeding complete.")
}

func samplePharmacies() []*entities.Pharmacy {
	now := time.Now().UTC()

	weekdayHours := entities.OperatingHours{
		"monday":    {Open: "08:00", Close: "20:00"},
		"tuesday":   {Open: "08:00", Close: "20:00"},
		"wednesday": {Open: "08:00", Close: "20:00"},
		"thursday":  {Open: "08:00", Close: "20:00"},
		"friday":    {Open: "08:00", Close: "20:00"},
		"saturday":  {Open: "09:00", Close: "18:00"},
		"sunday":    {Closed: true},
	}

	allDayHours := entities.OperatingHours{}
	for _, day := range []string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"} {
		allDayHours[day] = entities.DayHours{Open: "00:00", Close: "00:00"}
	}

	overnightHours := entities.OperatingHours{}
	for _, day := range []string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"} {
		overnightHours[day] = entities.DayHours{Open: "18:00", Close: "02:00"}
	}

	deliveryRadius := 12.0
	fastProcessing := 25
	slowProcessing := 75

	return []*entities.Pharmacy{
		{
			ID:   uuid.NewString(),
			Name: "HealthPlus Pharmacy Ikeja",
			Address: entities.Address{
				Street: "23 Allen Avenue", City: "Ikeja", State: "Lagos", Country: "NG",
			},
			Location:    entities.Location{Latitude: 6.6018, Longitude: 3.3515},
			PhoneNumber: "+234-801-000-0001",
			Email:       "ikeja@healthplus.example",
			Services: entities.ServiceCapabilities{
				PrescriptionFulfillment: true,
				Consultation:            true,
				Delivery:                true,
				Vaccination:             true,
			},
			OperatingHours:       weekdayHours,
			DeliveryRadiusKm:     &deliveryRadius,
			AcceptsInsurance:     true,
			AvgProcessingMinutes: &fastProcessing,
			Rating:               4.6,
			ReviewCount:          312,
			CurrentOrderCount:    2,
			CurrentCapacityPct:   85,
			IsVerified:           true,
			IsActive:             true,
			CreatedAt:            now,
			UpdatedAt:            now,
		},
		{
			ID:   uuid.NewString(),
			Name: "MedCare 24/7 Surulere",
			Address: entities.Address{
				Street: "10 Adeniran Ogunsanya", City: "Surulere", State: "Lagos", Country: "NG",
			},
			Location:    entities.Location{Latitude: 6.4969, Longitude: 3.3553},
			PhoneNumber: "+234-801-000-0002",
			Email:       "surulere@medcare.example",
			Services: entities.ServiceCapabilities{
				PrescriptionFulfillment: true,
				Delivery:                true,
			},
			OperatingHours:     allDayHours,
			AcceptsInsurance:   false,
			Rating:             4.1,
			ReviewCount:        98,
			CurrentOrderCount:  5,
			CurrentCapacityPct: 60,
			IsVerified:         true,
			IsActive:           true,
			CreatedAt:          now,
			UpdatedAt:          now,
		},
		{
			ID:   uuid.NewString(),
			Name: "NightOwl Chemists Yaba",
			Address: entities.Address{
				Street: "4 Herbert Macaulay Way", City: "Yaba", State: "Lagos", Country: "NG",
			},
			Location:    entities.Location{Latitude: 6.5095, Longitude: 3.3711},
			PhoneNumber: "+234-801-000-0003",
			Email:       "yaba@nightowl.example",
			Services: entities.ServiceCapabilities{
				PrescriptionFulfillment: true,
				Compounding:             true,
			},
			OperatingHours:       overnightHours,
			AcceptsInsurance:     true,
			AvgProcessingMinutes: &slowProcessing,
			Rating:               3.8,
			ReviewCount:          41,
			CurrentOrderCount:    0,
			CurrentCapacityPct:   95,
			IsVerified:           true,
			IsActive:             true,
			CreatedAt:            now,
			UpdatedAt:            now,
		},
	}
}

func sampleInventory(pharmacies []*entities.Pharmacy) []entities.InventoryLine {
	if len(pharmacies) < 2 {
		return nil
	}
	return []entities.InventoryLine{
		{PharmacyID: pharmacies[0].ID, MedicationName: "Amoxicillin 500mg", StockCount: 40, UnitPrice: 9.50},
		{PharmacyID: pharmacies[0].ID, MedicationName: "Metformin 850mg", StockCount: 25, UnitPrice: 6.00},
		{PharmacyID: pharmacies[0].ID, MedicationName: "Ibuprofen 200mg", StockCount: 120, UnitPrice: 2.20},
		{PharmacyID: pharmacies[1].ID, MedicationName: "Amoxicillin 500mg", StockCount: 0, UnitPrice: 10.00},
		{PharmacyID: pharmacies[1].ID, MedicationName: "Ibuprofen 200mg", StockCount: 60, UnitPrice: 1.95},
	}
}

package services

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/rxgrid/pharmacy-discovery/internal/domain/entities"
	"github.com/rxgrid/pharmacy-discovery/internal/domain/repositories"
	"github.com/rxgrid/pharmacy-discovery/internal/infrastructure/observability"
	apperrors "github.com/rxgrid/pharmacy-discovery/pkg/errors"
	"github.com/rxgrid/pharmacy-discovery/pkg/geo"
)

const (
	minRadiusKm = 1.0
	maxRadiusKm = 100.0
	maxLimit    = 100
)

// DiscoveryService runs the discovery pipeline: retrieval, bounded parallel
// enrichment, scoring, ranking.
type DiscoveryService struct {
	pharmacies  repositories.PharmacyRepository
	searchRepo  repositories.PharmacySearchRepository
	scorer      *ScoringService
	estimator   *AvailabilityEstimator
	medications *MedicationService

	enrichmentConcurrency int
	defaultLimit          int
}

// NewDiscoveryService creates a discovery service. searchRepo and
// medications are optional; without a search repository retrieval goes to
// the primary store.
func NewDiscoveryService(
	pharmacies repositories.PharmacyRepository,
	searchRepo repositories.PharmacySearchRepository,
	scorer *ScoringService,
	estimator *AvailabilityEstimator,
	medications *MedicationService,
	enrichmentConcurrency int,
	defaultLimit int,
) *DiscoveryService {
	if enrichmentConcurrency <= 0 {
		enrichmentConcurrency = 20
	}
	if defaultLimit <= 0 {
		defaultLimit = 20
	}
	return &DiscoveryService{
		pharmacies:            pharmacies,
		searchRepo:            searchRepo,
		scorer:                scorer,
		estimator:             estimator,
		medications:           medications,
		enrichmentConcurrency: enrichmentConcurrency,
		defaultLimit:          defaultLimit,
	}
}

// FindNearby returns the ranked pharmacies within radiusKm of the location.
func (s *DiscoveryService) FindNearby(ctx context.Context, location entities.Location, radiusKm float64, filter entities.DiscoveryFilter) (*entities.DiscoveryResult, error) {
	origin := geo.Point(location.Latitude, location.Longitude)
	if !geo.Valid(origin) {
		return nil, apperrors.NewValidationError(fmt.Sprintf("invalid coordinates (%v, %v)", location.Latitude, location.Longitude))
	}
	if radiusKm < minRadiusKm || radiusKm > maxRadiusKm {
		return nil, apperrors.NewValidationError(fmt.Sprintf("radius must be between %.0f and %.0f km", minRadiusKm, maxRadiusKm))
	}
	limit := filter.Limit
	if limit == 0 {
		limit = s.defaultLimit
	}
	if limit < 0 || limit > maxLimit {
		return nil, apperrors.NewValidationError(fmt.Sprintf("limit must be between 1 and %d", maxLimit))
	}

	candidates, err := s.retrieve(ctx, location, radiusKm, filter)
	if err != nil {
		return nil, err
	}

	within := make([]*entities.Pharmacy, 0, len(candidates))
	distances := make([]float64, 0, len(candidates))
	for _, p := range candidates {
		if p == nil {
			continue
		}
		if filter.OpenAllDay && !isOpenAllDay(p.OperatingHours) {
			continue
		}
		dist := geo.DistanceKm(origin, geo.Point(p.Location.Latitude, p.Location.Longitude))
		if dist > radiusKm {
			// bounding boxes over-approximate the circle
			continue
		}
		within = append(within, p)
		distances = append(distances, dist)
	}

	results := make([]entities.ScoredPharmacy, len(within))
	partial := false

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.enrichmentConcurrency)
	for i := range within {
		if gctx.Err() != nil {
			// deadline hit: keep what finished, default the rest
			partial = true
			for j := i; j < len(within); j++ {
				results[j] = degradedResult(within[j], distances[j])
			}
			break
		}
		i := i
		g.Go(func() error {
			results[i] = s.enrich(gctx, within[i], distances[i], filter)
			return nil
		})
	}
	_ = g.Wait()
	if ctx.Err() != nil {
		partial = true
	}

	s.attachMedicationReports(ctx, results, filter.Medications)

	sortScored(results)
	results = ReorderByAvailability(results, filter.Medications)
	if filter.RequiresDelivery {
		results = keepDeliverable(results)
	}
	if len(results) > limit {
		results = results[:limit]
	}

	return &entities.DiscoveryResult{Results: results, Partial: partial}, nil
}

// ScorePharmacy scores a single pharmacy for a user location, returning the
// itemized breakdown.
func (s *DiscoveryService) ScorePharmacy(ctx context.Context, pharmacyID string, location entities.Location, filter entities.DiscoveryFilter) (*entities.ScoredPharmacy, error) {
	origin := geo.Point(location.Latitude, location.Longitude)
	if !geo.Valid(origin) {
		return nil, apperrors.NewValidationError(fmt.Sprintf("invalid coordinates (%v, %v)", location.Latitude, location.Longitude))
	}

	pharmacy, err := s.pharmacies.GetByID(ctx, pharmacyID)
	if err != nil {
		return nil, err
	}

	dist := geo.DistanceKm(origin, geo.Point(pharmacy.Location.Latitude, pharmacy.Location.Longitude))
	scored := s.enrich(ctx, pharmacy, dist, filter)
	return &scored, nil
}

// retrieve issues the radius-bounded store query, preferring the search
// engine when configured.
func (s *DiscoveryService) retrieve(ctx context.Context, location entities.Location, radiusKm float64, filter entities.DiscoveryFilter) ([]*entities.Pharmacy, error) {
	params := repositories.GeoSearchParams{
		Latitude:          location.Latitude,
		Longitude:         location.Longitude,
		RadiusKm:          radiusKm,
		RequiredServices:  filter.RequiredServices,
		RequiresInsurance: filter.RequiresInsurance,
		RequiresDelivery:  filter.RequiresDelivery,
	}

	if s.searchRepo != nil {
		candidates, err := s.searchRepo.Search(ctx, params)
		if err == nil {
			return candidates, nil
		}
		logger := observability.LoggerFromContext(ctx)
		logger.Warn().Err(err).Msg("search engine retrieval failed, falling back to primary store")
	}

	candidates, err := s.pharmacies.Search(ctx, params)
	if err != nil {
		if appErr, ok := err.(*apperrors.AppError); ok && appErr.Type == apperrors.ErrorTypeRetrieval {
			return nil, err
		}
		return nil, apperrors.NewRetrievalError("pharmacy search failed", err)
	}
	return candidates, nil
}

// enrich builds one scored result. It never fails the batch: anything wrong
// with the candidate degrades into conservative defaults.
func (s *DiscoveryService) enrich(ctx context.Context, p *entities.Pharmacy, distanceKm float64, filter entities.DiscoveryFilter) entities.ScoredPharmacy {
	if p == nil || !geo.Valid(geo.Point(p.Location.Latitude, p.Location.Longitude)) {
		logger := observability.LoggerFromContext(ctx)
		logger.Warn().Str("pharmacy_id", pharmacyID(p)).Msg("enrichment degraded, substituting defaults")
		observability.RecordEnrichmentDegradation(ctx)
		return degradedResult(p, distanceKm)
	}

	availability := s.estimator.CurrentStatus(p)
	score, breakdown := s.scorer.Score(p, distanceKm, filter.RequiredServices, availability)
	eta := s.estimator.EstimateFulfillmentMinutes(distanceKm, p.AvgProcessingMinutes, filter.Urgency, p.CurrentOrderCount)

	return entities.ScoredPharmacy{
		Pharmacy:                    p,
		DistanceKm:                  distanceKm,
		Score:                       score,
		Breakdown:                   breakdown,
		EstimatedFulfillmentMinutes: eta,
		Availability:                availability,
		CanDeliver:                  canDeliver(p, distanceKm),
	}
}

// attachMedicationReports enriches results with inventory availability.
// A snapshot fetch failure is logged and the results go out without reports.
func (s *DiscoveryService) attachMedicationReports(ctx context.Context, results []entities.ScoredPharmacy, medications []string) {
	if len(medications) == 0 || s.medications == nil || len(results) == 0 {
		return
	}

	ids := make([]string, 0, len(results))
	for _, r := range results {
		if r.Pharmacy != nil {
			ids = append(ids, r.Pharmacy.ID)
		}
	}

	lines, err := s.medications.inventory.GetByPharmacies(ctx, ids, medications)
	if err != nil {
		logger := observability.LoggerFromContext(ctx)
		logger.Warn().Err(err).Msg("inventory snapshot fetch failed, returning results without medication reports")
		return
	}
	byPharmacy := groupInventory(lines)

	for i := range results {
		if results[i].Pharmacy == nil {
			continue
		}
		report := BuildMedicationReport(results[i].Pharmacy.ID, medications, byPharmacy[results[i].Pharmacy.ID])
		report.PharmacyName = results[i].Pharmacy.Name
		results[i].Medications = &report
	}
}

// sortScored orders by score desc, distance asc, review count desc.
func sortScored(results []entities.ScoredPharmacy) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].DistanceKm != results[j].DistanceKm {
			return results[i].DistanceKm < results[j].DistanceKm
		}
		return reviewCount(results[i].Pharmacy) > reviewCount(results[j].Pharmacy)
	})
}

func keepDeliverable(results []entities.ScoredPharmacy) []entities.ScoredPharmacy {
	kept := results[:0]
	for _, r := range results {
		if r.CanDeliver {
			kept = append(kept, r)
		}
	}
	return kept
}

func canDeliver(p *entities.Pharmacy, distanceKm float64) bool {
	if !p.Services.Delivery {
		return false
	}
	if p.DeliveryRadiusKm == nil {
		return true
	}
	return distanceKm <= *p.DeliveryRadiusKm
}

func degradedResult(p *entities.Pharmacy, distanceKm float64) entities.ScoredPharmacy {
	return entities.ScoredPharmacy{
		Pharmacy:   p,
		DistanceKm: distanceKm,
		Availability: entities.AvailabilityStatus{
			IsOpen:      false,
			WaitMinutes: 0,
			NextOpen:    nil,
			Unknown:     true,
		},
	}
}

func isOpenAllDay(hours entities.OperatingHours) bool {
	days := []string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}
	for _, day := range days {
		h, ok := hours[day]
		if !ok || h.Closed || h.Open != "00:00" || h.Close != "00:00" {
			return false
		}
	}
	return true
}

func reviewCount(p *entities.Pharmacy) int {
	if p == nil {
		return 0
	}
	return p.ReviewCount
}

func pharmacyID(p *entities.Pharmacy) string {
	if p == nil {
		return ""
	}
	return p.ID
}

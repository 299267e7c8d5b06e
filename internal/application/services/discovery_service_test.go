package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rxgrid/pharmacy-discovery/internal/domain/entities"
	apperrors "github.com/rxgrid/pharmacy-discovery/pkg/errors"
)

func newTestDiscovery(t *testing.T, repo *fakePharmacyRepo, searchRepo *fakeSearchRepo, inventory *fakeInventoryRepo) *DiscoveryService {
	t.Helper()

	scorer, err := NewScoringService(DefaultScoringConfig())
	require.NoError(t, err)
	estimator := NewAvailabilityEstimatorAt(fixedClock(time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)))

	var medications *MedicationService
	if inventory != nil {
		medications = NewMedicationService(inventory, repo)
	}

	var search *fakeSearchRepo
	if searchRepo != nil {
		search = searchRepo
	}
	if search == nil {
		return NewDiscoveryService(repo, nil, scorer, estimator, medications, 4, 20)
	}
	return NewDiscoveryService(repo, search, scorer, estimator, medications, 4, 20)
}

func TestFindNearbyRejectsBadRadius(t *testing.T) {
	svc := newTestDiscovery(t, &fakePharmacyRepo{}, nil, nil)

	for _, radius := range []float64{0, 0.5, 150} {
		_, err := svc.FindNearby(context.Background(), entities.Location{}, radius, entities.DiscoveryFilter{})
		require.Error(t, err)
		appErr, ok := err.(*apperrors.AppError)
		require.True(t, ok)
		assert.Equal(t, apperrors.ErrorTypeValidation, appErr.Type)
	}
}

func TestFindNearbyRejectsBadCoordinates(t *testing.T) {
	svc := newTestDiscovery(t, &fakePharmacyRepo{}, nil, nil)

	_, err := svc.FindNearby(context.Background(), entities.Location{Latitude: 95, Longitude: 0}, 10, entities.DiscoveryFilter{})
	require.Error(t, err)
	appErr, ok := err.(*apperrors.AppError)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrorTypeValidation, appErr.Type)
}

func TestFindNearbyRejectsBadLimit(t *testing.T) {
	svc := newTestDiscovery(t, &fakePharmacyRepo{}, nil, nil)

	_, err := svc.FindNearby(context.Background(), entities.Location{}, 10, entities.DiscoveryFilter{Limit: 500})
	require.Error(t, err)
}

func TestFindNearbyPropagatesRetrievalError(t *testing.T) {
	repo := &fakePharmacyRepo{searchErr: apperrors.NewRetrievalError("store down", nil)}
	svc := newTestDiscovery(t, repo, nil, nil)

	_, err := svc.FindNearby(context.Background(), entities.Location{}, 10, entities.DiscoveryFilter{})
	require.Error(t, err)
	appErr, ok := err.(*apperrors.AppError)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrorTypeRetrieval, appErr.Type)
}

func TestFindNearbyFallsBackWhenSearchEngineFails(t *testing.T) {
	repo := &fakePharmacyRepo{pharmacies: []*entities.Pharmacy{testPharmacy("p1", 0.01, 0.01)}}
	search := &fakeSearchRepo{searchErr: apperrors.NewExternalError("typesense down", nil)}
	svc := newTestDiscovery(t, repo, search, nil)

	result, err := svc.FindNearby(context.Background(), entities.Location{}, 10, entities.DiscoveryFilter{})
	require.NoError(t, err)
	require.Len(t, result.Results, 1)
	assert.Equal(t, 1, search.calls)
}

func TestFindNearbyAppliesExactRadiusCut(t *testing.T) {
	repo := &fakePharmacyRepo{pharmacies: []*entities.Pharmacy{
		testPharmacy("near", 0.05, 0),   // ~5.6 km
		testPharmacy("far", 0.5, 0),     // ~55.6 km
		testPharmacy("edge", 0.0899, 0), // just inside 10 km
	}}
	svc := newTestDiscovery(t, repo, nil, nil)

	result, err := svc.FindNearby(context.Background(), entities.Location{}, 10, entities.DiscoveryFilter{})
	require.NoError(t, err)
	require.Len(t, result.Results, 2)
	for _, r := range result.Results {
		assert.NotEqual(t, "far", r.Pharmacy.ID)
		assert.LessOrEqual(t, r.DistanceKm, 10.0)
	}
}

func TestFindNearbyRanksByScoreThenDistance(t *testing.T) {
	better := testPharmacy("better", 0.01, 0)
	better.Rating = 5.0
	worse := testPharmacy("worse", 0.08, 0)
	worse.Rating = 2.0

	repo := &fakePharmacyRepo{pharmacies: []*entities.Pharmacy{worse, better}}
	svc := newTestDiscovery(t, repo, nil, nil)

	result, err := svc.FindNearby(context.Background(), entities.Location{}, 10, entities.DiscoveryFilter{})
	require.NoError(t, err)
	require.Len(t, result.Results, 2)
	assert.Equal(t, "better", result.Results[0].Pharmacy.ID)
	assert.Greater(t, result.Results[0].Score, result.Results[1].Score)
}

func TestFindNearbyHonorsLimit(t *testing.T) {
	repo := &fakePharmacyRepo{}
	for i := 0; i < 30; i++ {
		repo.pharmacies = append(repo.pharmacies, testPharmacy(string(rune('a'+i)), 0.01, 0))
	}
	svc := newTestDiscovery(t, repo, nil, nil)

	result, err := svc.FindNearby(context.Background(), entities.Location{}, 10, entities.DiscoveryFilter{Limit: 5})
	require.NoError(t, err)
	assert.Len(t, result.Results, 5)

	// default limit applies when the filter leaves it zero
	result, err = svc.FindNearby(context.Background(), entities.Location{}, 10, entities.DiscoveryFilter{})
	require.NoError(t, err)
	assert.Len(t, result.Results, 20)
}

func TestFindNearbyRequiresDeliveryDropsNonDeliverable(t *testing.T) {
	radius := 3.0
	deliverer := testPharmacy("deliverer", 0.01, 0)
	deliverer.Services.Delivery = true
	tooFar := testPharmacy("toofar", 0.08, 0) // ~8.9 km, outside its own delivery radius
	tooFar.Services.Delivery = true
	tooFar.DeliveryRadiusKm = &radius
	noDelivery := testPharmacy("nodelivery", 0.01, 0)

	repo := &fakePharmacyRepo{pharmacies: []*entities.Pharmacy{deliverer, tooFar, noDelivery}}
	svc := newTestDiscovery(t, repo, nil, nil)

	result, err := svc.FindNearby(context.Background(), entities.Location{}, 10, entities.DiscoveryFilter{RequiresDelivery: true})
	require.NoError(t, err)
	require.Len(t, result.Results, 1)
	assert.Equal(t, "deliverer", result.Results[0].Pharmacy.ID)
	assert.True(t, result.Results[0].CanDeliver)
}

func TestFindNearbyOpenAllDayFilter(t *testing.T) {
	allDay := testPharmacy("allday", 0.01, 0)
	dayOnly := testPharmacy("dayonly", 0.01, 0)
	dayOnly.OperatingHours = entities.OperatingHours{
		"monday": {Open: "09:00", Close: "17:00"},
	}

	repo := &fakePharmacyRepo{pharmacies: []*entities.Pharmacy{allDay, dayOnly}}
	svc := newTestDiscovery(t, repo, nil, nil)

	result, err := svc.FindNearby(context.Background(), entities.Location{}, 10, entities.DiscoveryFilter{OpenAllDay: true})
	require.NoError(t, err)
	require.Len(t, result.Results, 1)
	assert.Equal(t, "allday", result.Results[0].Pharmacy.ID)
}

func TestFindNearbyAttachesMedicationReports(t *testing.T) {
	repo := &fakePharmacyRepo{pharmacies: []*entities.Pharmacy{
		testPharmacy("stocked", 0.01, 0),
		testPharmacy("empty", 0.01, 0),
	}}
	inventory := &fakeInventoryRepo{lines: []entities.InventoryLine{
		{PharmacyID: "stocked", MedicationName: "aspirin", StockCount: 3, UnitPrice: 2},
	}}
	svc := newTestDiscovery(t, repo, nil, inventory)

	result, err := svc.FindNearby(context.Background(), entities.Location{}, 10, entities.DiscoveryFilter{Medications: []string{"aspirin"}})
	require.NoError(t, err)
	require.Len(t, result.Results, 2)

	// full-stock pharmacy is promoted ahead regardless of base order
	assert.Equal(t, "stocked", result.Results[0].Pharmacy.ID)
	require.NotNil(t, result.Results[0].Medications)
	assert.True(t, result.Results[0].Medications.HasAllRequested)
	require.NotNil(t, result.Results[1].Medications)
	assert.False(t, result.Results[1].Medications.HasAllRequested)
}

func TestScorePharmacyNotFound(t *testing.T) {
	svc := newTestDiscovery(t, &fakePharmacyRepo{}, nil, nil)

	_, err := svc.ScorePharmacy(context.Background(), "missing", entities.Location{}, entities.DiscoveryFilter{})
	require.Error(t, err)
	appErr, ok := err.(*apperrors.AppError)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrorTypeNotFound, appErr.Type)
}

func TestScorePharmacyReturnsBreakdown(t *testing.T) {
	p := testPharmacy("p1", 0.02, 0)
	p.CurrentCapacityPct = 90
	repo := &fakePharmacyRepo{pharmacies: []*entities.Pharmacy{p}}
	svc := newTestDiscovery(t, repo, nil, nil)

	scored, err := svc.ScorePharmacy(context.Background(), "p1", entities.Location{}, entities.DiscoveryFilter{})
	require.NoError(t, err)
	assert.Positive(t, scored.Score)
	assert.Contains(t, scored.Breakdown, entities.BreakdownDistance)
	assert.Contains(t, scored.Breakdown, entities.BreakdownReviewVolumeBonus)
	assert.True(t, scored.Availability.IsOpen)
}

func TestScorePharmacyDegradesOnInvalidCoordinates(t *testing.T) {
	p := testPharmacy("broken", 95, 200)
	repo := &fakePharmacyRepo{pharmacies: []*entities.Pharmacy{p}}
	svc := newTestDiscovery(t, repo, nil, nil)

	scored, err := svc.ScorePharmacy(context.Background(), "broken", entities.Location{}, entities.DiscoveryFilter{})
	require.NoError(t, err)
	assert.True(t, scored.Availability.Unknown)
	assert.False(t, scored.Availability.IsOpen)
	assert.Zero(t, scored.Score)
}

func TestScorePharmacyDegradationRecordsMetric(t *testing.T) {
	reader := installMetricsReader(t)

	p := testPharmacy("broken", 95, 200)
	repo := &fakePharmacyRepo{pharmacies: []*entities.Pharmacy{p}}
	svc := newTestDiscovery(t, repo, nil, nil)

	_, err := svc.ScorePharmacy(context.Background(), "broken", entities.Location{}, entities.DiscoveryFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), counterTotal(t, reader, "discovery.enrichment.degraded.count"))
}

func TestSortScoredTieBreaks(t *testing.T) {
	highReviews := testPharmacy("reviews", 0, 0)
	highReviews.ReviewCount = 500
	lowReviews := testPharmacy("fewer", 0, 0)
	lowReviews.ReviewCount = 5

	results := []entities.ScoredPharmacy{
		{Pharmacy: lowReviews, Score: 80, DistanceKm: 2},
		{Pharmacy: highReviews, Score: 80, DistanceKm: 2},
		{Pharmacy: testPharmacy("closer", 0, 0), Score: 80, DistanceKm: 1},
		{Pharmacy: testPharmacy("top", 0, 0), Score: 90, DistanceKm: 9},
	}

	sortScored(results)

	assert.Equal(t, "top", results[0].Pharmacy.ID)
	assert.Equal(t, "closer", results[1].Pharmacy.ID)
	assert.Equal(t, "reviews", results[2].Pharmacy.ID)
	assert.Equal(t, "fewer", results[3].Pharmacy.ID)
}

package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rxgrid/pharmacy-discovery/internal/domain/entities"
)

func TestNewScoringServiceRejectsBadWeights(t *testing.T) {
	cfg := DefaultScoringConfig()
	cfg.DistanceWeight = 0.5

	_, err := NewScoringService(cfg)
	assert.Error(t, err)
}

func TestNewScoringServiceRejectsBadThresholds(t *testing.T) {
	cfg := DefaultScoringConfig()
	cfg.MaxDistanceKm = 0

	_, err := NewScoringService(cfg)
	assert.Error(t, err)
}

func TestScorePerfectPharmacy(t *testing.T) {
	svc, err := NewScoringService(DefaultScoringConfig())
	require.NoError(t, err)

	zero := 0
	p := &entities.Pharmacy{
		Rating:               5.0,
		AvgProcessingMinutes: &zero,
		CurrentOrderCount:    0,
	}
	avail := entities.AvailabilityStatus{IsOpen: true, CapacityPct: 100}

	score, breakdown := svc.Score(p, 0, nil, avail)

	assert.Equal(t, 100, score)
	assert.InDelta(t, 30.0, breakdown[entities.BreakdownDistance], 1e-9)
	assert.InDelta(t, 25.0, breakdown[entities.BreakdownRating], 1e-9)
	assert.InDelta(t, 20.0, breakdown[entities.BreakdownSpeed], 1e-9)
	assert.InDelta(t, 15.0, breakdown[entities.BreakdownServices], 1e-9)
	assert.InDelta(t, 10.0, breakdown[entities.BreakdownAvailability], 1e-9)
}

func TestScoreDistanceAxisZeroBeyondMax(t *testing.T) {
	svc, err := NewScoringService(DefaultScoringConfig())
	require.NoError(t, err)

	p := &entities.Pharmacy{Rating: 3.0}
	_, breakdown := svc.Score(p, 40, nil, entities.AvailabilityStatus{})

	assert.Zero(t, breakdown[entities.BreakdownDistance])
}

func TestScoreDefaultsProcessingTime(t *testing.T) {
	svc, err := NewScoringService(DefaultScoringConfig())
	require.NoError(t, err)

	// no reported average: 60 min default gives a 50 speed sub-score
	p := &entities.Pharmacy{}
	_, breakdown := svc.Score(p, 0, nil, entities.AvailabilityStatus{})

	assert.InDelta(t, 10.0, breakdown[entities.BreakdownSpeed], 1e-9)
}

func TestScoreWeightedAxes(t *testing.T) {
	svc, err := NewScoringService(DefaultScoringConfig())
	require.NoError(t, err)

	thirty := 30
	p := &entities.Pharmacy{
		Rating:               4.0,
		AvgProcessingMinutes: &thirty,
		CurrentOrderCount:    2,
		Services: entities.ServiceCapabilities{
			Delivery: true,
		},
	}
	avail := entities.AvailabilityStatus{IsOpen: true, CapacityPct: 80}

	score, breakdown := svc.Score(p, 5, []string{entities.ServiceDelivery, entities.ServiceVaccination}, avail)

	// distance 80*0.30 + rating 80*0.25 + speed 75*0.20 + services 50*0.15 +
	// availability (80+80)/2*0.10
	assert.InDelta(t, 24.0, breakdown[entities.BreakdownDistance], 1e-9)
	assert.InDelta(t, 20.0, breakdown[entities.BreakdownRating], 1e-9)
	assert.InDelta(t, 15.0, breakdown[entities.BreakdownSpeed], 1e-9)
	assert.InDelta(t, 7.5, breakdown[entities.BreakdownServices], 1e-9)
	assert.InDelta(t, 8.0, breakdown[entities.BreakdownAvailability], 1e-9)
	assert.Equal(t, 75, score)
}

func TestScoreNearbyFullServiceBeatsDistantHighRated(t *testing.T) {
	svc, err := NewScoringService(DefaultScoringConfig())
	require.NoError(t, err)

	procA, procB := 30, 10
	nearby := &entities.Pharmacy{
		Rating:               4.5,
		AvgProcessingMinutes: &procA,
		Services: entities.ServiceCapabilities{
			Delivery:     true,
			Consultation: true,
		},
	}
	distant := &entities.Pharmacy{
		Rating:               5.0,
		AvgProcessingMinutes: &procB,
	}

	avail := entities.AvailabilityStatus{IsOpen: true, CapacityPct: 100}
	required := []string{entities.ServiceDelivery, entities.ServiceConsultation}

	scoreNearby, bdNearby := svc.Score(nearby, 2, required, avail)
	scoreDistant, bdDistant := svc.Score(distant, 20, required, avail)

	// 2 km, both services: 92*0.30 + 90*0.25 + 75*0.20 + 100*0.15 + 100*0.10
	assert.Equal(t, 90, scoreNearby)
	assert.InDelta(t, 27.6, bdNearby[entities.BreakdownDistance], 1e-9)
	assert.InDelta(t, 22.5, bdNearby[entities.BreakdownRating], 1e-9)
	assert.InDelta(t, 15.0, bdNearby[entities.BreakdownSpeed], 1e-9)
	assert.InDelta(t, 15.0, bdNearby[entities.BreakdownServices], 1e-9)
	assert.InDelta(t, 10.0, bdNearby[entities.BreakdownAvailability], 1e-9)

	// 20 km, no required services: 20*0.30 + 100*0.25 + (275/3)*0.20 + 0 + 100*0.10
	assert.Equal(t, 59, scoreDistant)
	assert.InDelta(t, 6.0, bdDistant[entities.BreakdownDistance], 1e-9)
	assert.InDelta(t, 25.0, bdDistant[entities.BreakdownRating], 1e-9)
	assert.InDelta(t, 55.0/3.0, bdDistant[entities.BreakdownSpeed], 1e-9)
	assert.Zero(t, bdDistant[entities.BreakdownServices])
	assert.InDelta(t, 10.0, bdDistant[entities.BreakdownAvailability], 1e-9)

	assert.Greater(t, scoreNearby, scoreDistant)
}

func TestScoreServicesAxisFullWhenNoneRequired(t *testing.T) {
	svc, err := NewScoringService(DefaultScoringConfig())
	require.NoError(t, err)

	p := &entities.Pharmacy{}
	_, breakdown := svc.Score(p, 0, nil, entities.AvailabilityStatus{})

	assert.InDelta(t, 15.0, breakdown[entities.BreakdownServices], 1e-9)
}

func TestReviewVolumeBonus(t *testing.T) {
	assert.InDelta(t, 0.0, ReviewVolumeBonus(0), 1e-9)
	assert.InDelta(t, 2.5, ReviewVolumeBonus(25), 1e-9)
	assert.InDelta(t, 10.0, ReviewVolumeBonus(100), 1e-9)
	assert.InDelta(t, 10.0, ReviewVolumeBonus(5000), 1e-9)
}

func TestReviewVolumeBonusIsInformationalOnly(t *testing.T) {
	svc, err := NewScoringService(DefaultScoringConfig())
	require.NoError(t, err)

	few := &entities.Pharmacy{Rating: 4.0, ReviewCount: 5}
	many := &entities.Pharmacy{Rating: 4.0, ReviewCount: 900}

	scoreFew, bdFew := svc.Score(few, 3, nil, entities.AvailabilityStatus{CapacityPct: 50})
	scoreMany, bdMany := svc.Score(many, 3, nil, entities.AvailabilityStatus{CapacityPct: 50})

	assert.Equal(t, scoreFew, scoreMany)
	assert.Less(t, bdFew[entities.BreakdownReviewVolumeBonus], bdMany[entities.BreakdownReviewVolumeBonus])
}

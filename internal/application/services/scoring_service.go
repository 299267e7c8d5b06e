package services

import (
	"fmt"
	"math"

	"github.com/rxgrid/pharmacy-discovery/internal/domain/entities"
)

// ScoringConfig holds the weight table and decay thresholds for the ranking
// formula. It is built once at startup and injected; algorithm code never
// reaches for literals.
type ScoringConfig struct {
	DistanceWeight     float64
	RatingWeight       float64
	SpeedWeight        float64
	ServicesWeight     float64
	AvailabilityWeight float64

	// MaxDistanceKm is where the distance sub-score decays to zero.
	MaxDistanceKm float64
	// MaxProcessingMinutes is where the speed sub-score decays to zero.
	MaxProcessingMinutes float64
	// DefaultProcessingMinutes substitutes for pharmacies that never
	// reported an average.
	DefaultProcessingMinutes float64
	// QueuePenaltyPerOrder is subtracted from 100 per queued order.
	QueuePenaltyPerOrder float64
}

// DefaultScoringConfig returns the production weight table.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		DistanceWeight:           0.30,
		RatingWeight:             0.25,
		SpeedWeight:              0.20,
		ServicesWeight:           0.15,
		AvailabilityWeight:       0.10,
		MaxDistanceKm:            25,
		MaxProcessingMinutes:     120,
		DefaultProcessingMinutes: 60,
		QueuePenaltyPerOrder:     10,
	}
}

// Validate checks the weights sum to 1.0.
func (c ScoringConfig) Validate() error {
	sum := c.DistanceWeight + c.RatingWeight + c.SpeedWeight + c.ServicesWeight + c.AvailabilityWeight
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("scoring weights must sum to 1.0, got %.4f", sum)
	}
	if c.MaxDistanceKm <= 0 || c.MaxProcessingMinutes <= 0 {
		return fmt.Errorf("scoring thresholds must be positive")
	}
	return nil
}

// ScoringService computes the weighted 0-100 pharmacy score.
type ScoringService struct {
	cfg ScoringConfig
}

// NewScoringService creates a scoring service, rejecting invalid weight
// tables up front.
func NewScoringService(cfg ScoringConfig) (*ScoringService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &ScoringService{cfg: cfg}, nil
}

// Config returns the immutable configuration in use.
func (s *ScoringService) Config() ScoringConfig {
	return s.cfg
}

// Score computes the pharmacy's score for one request. The breakdown maps
// each axis to its weighted contribution; review_volume_bonus is
// informational only and used as the final tie-breaker, never added to the
// score.
func (s *ScoringService) Score(p *entities.Pharmacy, distanceKm float64, requiredServices []string, avail entities.AvailabilityStatus) (int, map[string]float64) {
	breakdown := make(map[string]float64, 6)

	distanceScore := math.Max(0, 100-(distanceKm/s.cfg.MaxDistanceKm)*100)
	breakdown[entities.BreakdownDistance] = distanceScore * s.cfg.DistanceWeight

	ratingScore := p.Rating * 20
	breakdown[entities.BreakdownRating] = ratingScore * s.cfg.RatingWeight

	processing := s.cfg.DefaultProcessingMinutes
	if p.AvgProcessingMinutes != nil {
		processing = float64(*p.AvgProcessingMinutes)
	}
	speedScore := math.Max(0, 100-(processing/s.cfg.MaxProcessingMinutes)*100)
	breakdown[entities.BreakdownSpeed] = speedScore * s.cfg.SpeedWeight

	servicesScore := 100.0
	if len(requiredServices) > 0 {
		matched := p.Services.MatchCount(requiredServices)
		servicesScore = float64(matched) / float64(len(requiredServices)) * 100
	}
	breakdown[entities.BreakdownServices] = servicesScore * s.cfg.ServicesWeight

	queueScore := math.Max(0, 100-float64(p.CurrentOrderCount)*s.cfg.QueuePenaltyPerOrder)
	availabilityScore := (avail.CapacityPct + queueScore) / 2
	breakdown[entities.BreakdownAvailability] = availabilityScore * s.cfg.AvailabilityWeight

	breakdown[entities.BreakdownReviewVolumeBonus] = ReviewVolumeBonus(p.ReviewCount)

	total := breakdown[entities.BreakdownDistance] +
		breakdown[entities.BreakdownRating] +
		breakdown[entities.BreakdownSpeed] +
		breakdown[entities.BreakdownServices] +
		breakdown[entities.BreakdownAvailability]

	return int(math.Round(total)), breakdown
}

// ReviewVolumeBonus is the informational secondary ranking field:
// min(reviewCount/10, 10).
func ReviewVolumeBonus(reviewCount int) float64 {
	return math.Min(float64(reviewCount)/10, 10)
}

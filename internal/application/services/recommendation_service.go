package services

import (
	"context"
	"sort"

	"github.com/rxgrid/pharmacy-discovery/internal/domain/entities"
	"github.com/rxgrid/pharmacy-discovery/internal/domain/repositories"
	"github.com/rxgrid/pharmacy-discovery/internal/infrastructure/observability"
)

const (
	recommendationTopN   = 20
	usageBoostPerVisit   = 10.0
	serviceMatchBonusMax = 20.0
	historyLookback      = 200
)

// RecommendationService personalizes base-scored candidates with the user's
// prescription history.
type RecommendationService struct {
	discovery  *DiscoveryService
	history    repositories.PrescriptionHistoryRepository
	pharmacies repositories.PharmacyRepository
}

// NewRecommendationService creates a new recommendation service
func NewRecommendationService(discovery *DiscoveryService, history repositories.PrescriptionHistoryRepository, pharmacies repositories.PharmacyRepository) *RecommendationService {
	return &RecommendationService{
		discovery:  discovery,
		history:    history,
		pharmacies: pharmacies,
	}
}

// GetRecommendations runs discovery and re-weights the results for the
// user. A history lookup failure degrades to the base ordering rather than
// failing the request.
func (s *RecommendationService) GetRecommendations(ctx context.Context, userID string, location entities.Location, radiusKm float64, filter entities.DiscoveryFilter) (*entities.DiscoveryResult, error) {
	base, err := s.discovery.FindNearby(ctx, location, radiusKm, filter)
	if err != nil {
		return nil, err
	}

	prescriptions, err := s.history.ListCompletedByUser(ctx, userID, historyLookback)
	if err != nil {
		logger := observability.LoggerFromContext(ctx)
		logger.Warn().Err(err).Str("user_id", userID).Msg("history lookup failed, returning base ranking")
		prescriptions = nil
	}

	base.Results = s.Rank(ctx, base.Results, prescriptions)
	return base, nil
}

// Rank applies the personalization boost and returns the top candidates by
// recommendation score. Empty history leaves every candidate at its base
// score.
func (s *RecommendationService) Rank(ctx context.Context, candidates []entities.ScoredPharmacy, history []entities.Prescription) []entities.ScoredPharmacy {
	usage := BuildUsageRecords(history)
	prefWeights, totalWeight := s.servicePreferences(ctx, usage)

	for i := range candidates {
		rec := float64(candidates[i].Score)
		if p := candidates[i].Pharmacy; p != nil {
			if record, ok := usage[p.ID]; ok {
				rec += float64(record.UsageCount) * usageBoostPerVisit
			}
			if totalWeight > 0 {
				matched := 0
				for _, svc := range p.Services.List() {
					matched += prefWeights[svc]
				}
				rec += float64(matched) / float64(totalWeight) * serviceMatchBonusMax
			}
		}
		candidates[i].RecommendationScore = rec
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].RecommendationScore > candidates[j].RecommendationScore
	})

	if len(candidates) > recommendationTopN {
		candidates = candidates[:recommendationTopN]
	}
	return candidates
}

// BuildUsageRecords aggregates completed prescriptions per pharmacy.
func BuildUsageRecords(history []entities.Prescription) map[string]entities.UsageRecord {
	usage := make(map[string]entities.UsageRecord, len(history))
	for _, rx := range history {
		record := usage[rx.PharmacyID]
		record.PharmacyID = rx.PharmacyID
		record.UsageCount++
		record.TotalSpend += rx.TotalAmount
		if rx.CompletedAt.After(record.LastUsed) {
			record.LastUsed = rx.CompletedAt
		}
		usage[rx.PharmacyID] = record
	}
	return usage
}

// servicePreferences derives per-service weights from the services offered
// by the user's historical pharmacies, weighted by how often each pharmacy
// was used.
func (s *RecommendationService) servicePreferences(ctx context.Context, usage map[string]entities.UsageRecord) (map[string]int, int) {
	if len(usage) == 0 {
		return nil, 0
	}

	ids := make([]string, 0, len(usage))
	for id := range usage {
		ids = append(ids, id)
	}

	pharmacies, err := s.pharmacies.GetByIDs(ctx, ids)
	if err != nil {
		logger := observability.LoggerFromContext(ctx)
		logger.Warn().Err(err).Msg("historical pharmacy lookup failed, skipping service preference bonus")
		return nil, 0
	}

	weights := make(map[string]int)
	total := 0
	for _, p := range pharmacies {
		count := usage[p.ID].UsageCount
		for _, svc := range p.Services.List() {
			weights[svc] += count
			total += count
		}
	}
	return weights, total
}

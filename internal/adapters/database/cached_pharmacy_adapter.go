package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rxgrid/pharmacy-discovery/internal/domain/entities"
	"github.com/rxgrid/pharmacy-discovery/internal/domain/providers"
	"github.com/rxgrid/pharmacy-discovery/internal/domain/repositories"
	"github.com/rxgrid/pharmacy-discovery/internal/infrastructure/observability"
)

// CachedPharmacyAdapter wraps PharmacyAdapter with caching
type CachedPharmacyAdapter struct {
	adapter repositories.PharmacyRepository
	cache   providers.CacheProvider
}

// NewCachedPharmacyAdapter creates a new cached pharmacy adapter
func NewCachedPharmacyAdapter(adapter repositories.PharmacyRepository, cache providers.CacheProvider) repositories.PharmacyRepository {
	return &CachedPharmacyAdapter{
		adapter: adapter,
		cache:   cache,
	}
}

// Cache TTLs (in seconds)
const (
	pharmacyByIDTTL  = 300 // 5 minutes for single pharmacy
	searchResultsTTL = 120 // 2 minutes for geo search results
)

func pharmacyCacheKey(id string) string {
	return fmt.Sprintf("pharmacy:%s", id)
}

func pharmacySearchCacheKey(params repositories.GeoSearchParams) string {
	paramsJSON, _ := json.Marshal(params)
	return fmt.Sprintf("pharmacies:search:%s", paramsJSON)
}

// GetByID retrieves a pharmacy by ID with caching
func (a *CachedPharmacyAdapter) GetByID(ctx context.Context, id string) (*entities.Pharmacy, error) {
	cacheKey := pharmacyCacheKey(id)

	if cached, err := a.cache.Get(ctx, cacheKey); err == nil {
		var pharmacy entities.Pharmacy
		if err := json.Unmarshal(cached, &pharmacy); err == nil {
			observability.RecordCacheLookup(ctx, "pharmacy", true)
			return &pharmacy, nil
		}
		observability.GetLogger().Warn().Err(err).Str("pharmacy_id", id).Msg("failed to unmarshal cached pharmacy")
	}
	observability.RecordCacheLookup(ctx, "pharmacy", false)

	pharmacy, err := a.adapter.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// Update cache asynchronously to avoid blocking the response
	go func() {
		bgCtx := context.Background()
		if data, err := json.Marshal(pharmacy); err == nil {
			if err := a.cache.Set(bgCtx, cacheKey, data, pharmacyByIDTTL); err != nil {
				observability.GetLogger().Warn().Err(err).Str("pharmacy_id", id).Msg("failed to cache pharmacy")
			}
		}
	}()

	return pharmacy, nil
}

// GetByIDs retrieves multiple pharmacies by ID, serving what it can from
// cache and fetching the rest in one batch.
func (a *CachedPharmacyAdapter) GetByIDs(ctx context.Context, ids []string) ([]*entities.Pharmacy, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	cachedPharmacies := make([]*entities.Pharmacy, 0, len(ids))
	missingIDs := make([]string, 0)

	for _, id := range ids {
		data, err := a.cache.Get(ctx, pharmacyCacheKey(id))
		if err == nil {
			var pharmacy entities.Pharmacy
			if err := json.Unmarshal(data, &pharmacy); err == nil {
				observability.RecordCacheLookup(ctx, "pharmacy", true)
				cachedPharmacies = append(cachedPharmacies, &pharmacy)
				continue
			}
		}
		observability.RecordCacheLookup(ctx, "pharmacy", false)
		missingIDs = append(missingIDs, id)
	}

	if len(missingIDs) == 0 {
		return cachedPharmacies, nil
	}

	dbPharmacies, err := a.adapter.GetByIDs(ctx, missingIDs)
	if err != nil {
		return nil, err
	}

	go func() {
		bgCtx := context.Background()
		for _, pharmacy := range dbPharmacies {
			if data, err := json.Marshal(pharmacy); err == nil {
				if err := a.cache.Set(bgCtx, pharmacyCacheKey(pharmacy.ID), data, pharmacyByIDTTL); err != nil {
					observability.GetLogger().Warn().Err(err).Str("pharmacy_id", pharmacy.ID).Msg("failed to cache pharmacy")
				}
			}
		}
	}()

	return append(cachedPharmacies, dbPharmacies...), nil
}

// Search runs a geo search with caching
func (a *CachedPharmacyAdapter) Search(ctx context.Context, params repositories.GeoSearchParams) ([]*entities.Pharmacy, error) {
	cacheKey := pharmacySearchCacheKey(params)

	if cached, err := a.cache.Get(ctx, cacheKey); err == nil {
		var pharmacies []*entities.Pharmacy
		if err := json.Unmarshal(cached, &pharmacies); err == nil {
			observability.RecordCacheLookup(ctx, "search", true)
			return pharmacies, nil
		}
		observability.GetLogger().Warn().Err(err).Msg("failed to unmarshal cached search results")
	}
	observability.RecordCacheLookup(ctx, "search", false)

	pharmacies, err := a.adapter.Search(ctx, params)
	if err != nil {
		return nil, err
	}

	go func() {
		bgCtx := context.Background()
		if data, err := json.Marshal(pharmacies); err == nil {
			if err := a.cache.Set(bgCtx, cacheKey, data, searchResultsTTL); err != nil {
				observability.GetLogger().Warn().Err(err).Msg("failed to cache search results")
			}
		}
	}()

	return pharmacies, nil
}

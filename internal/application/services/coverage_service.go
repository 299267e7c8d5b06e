package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/paulmach/orb"

	"github.com/rxgrid/pharmacy-discovery/internal/domain/entities"
	"github.com/rxgrid/pharmacy-discovery/internal/domain/repositories"
	apperrors "github.com/rxgrid/pharmacy-discovery/pkg/errors"
	"github.com/rxgrid/pharmacy-discovery/pkg/geo"
)

const (
	// a cell counts as well covered at this many reachable pharmacies
	wellCoveredThreshold = 3
	// nearest pharmacies reported per cell
	nearestPerCell = 3
)

// CoverageService tiles a region and computes pharmacy density per cell for
// service-area planning.
type CoverageService struct {
	pharmacies repositories.PharmacyRepository
}

// NewCoverageService creates a new coverage service
func NewCoverageService(pharmacies repositories.PharmacyRepository) *CoverageService {
	return &CoverageService{pharmacies: pharmacies}
}

// AnalyzeCoverage generates the grid for the box and computes per-cell and
// aggregate statistics. maxDistanceKm is the reachability cutoff per cell.
func (s *CoverageService) AnalyzeCoverage(ctx context.Context, box geo.BoundingBox, cellSizeKm, maxDistanceKm float64) (*entities.CoverageReport, error) {
	if box.North <= box.South || box.East <= box.West {
		return nil, apperrors.NewValidationError("bounding box is empty or inverted")
	}
	if !geo.Valid(geo.Point(box.North, box.East)) || !geo.Valid(geo.Point(box.South, box.West)) {
		return nil, apperrors.NewValidationError("bounding box coordinates out of range")
	}
	if cellSizeKm <= 0 {
		return nil, apperrors.NewValidationError("cell size must be positive")
	}
	if maxDistanceKm <= 0 {
		return nil, apperrors.NewValidationError("max distance must be positive")
	}

	candidates, err := s.retrieveForBox(ctx, box, maxDistanceKm)
	if err != nil {
		return nil, err
	}

	locations := make([]orb.Point, len(candidates))
	for i, p := range candidates {
		locations[i] = geo.Point(p.Location.Latitude, p.Location.Longitude)
	}

	tiles := geo.CoverageGrid(box, cellSizeKm)
	grid := make([]entities.GridCell, 0, len(tiles))

	stats := entities.CoverageStats{TotalCells: len(tiles)}
	totalFound := 0

	for _, tile := range tiles {
		cell := s.analyzeCell(tile, candidates, locations, maxDistanceKm)
		totalFound += cell.PharmacyCount

		if cell.Covered {
			stats.CoveredCells++
		} else {
			stats.UnderservedCells++
		}
		if cell.PharmacyCount >= wellCoveredThreshold {
			stats.WellCoveredCells++
		}
		grid = append(grid, cell)
	}

	if stats.TotalCells > 0 {
		stats.CoveragePercent = float64(stats.CoveredCells) / float64(stats.TotalCells) * 100
		stats.MeanPharmaciesPerCell = float64(totalFound) / float64(stats.TotalCells)
	}

	return &entities.CoverageReport{Grid: grid, Stats: stats}, nil
}

// retrieveForBox pulls every pharmacy reachable from anywhere in the box:
// the circle around the box center covering its corners, padded by the
// per-cell cutoff.
func (s *CoverageService) retrieveForBox(ctx context.Context, box geo.BoundingBox, maxDistanceKm float64) ([]*entities.Pharmacy, error) {
	center := box.Center()
	corner := geo.Point(box.North, box.East)
	radius := geo.DistanceKm(center, corner) + maxDistanceKm

	candidates, err := s.pharmacies.Search(ctx, repositories.GeoSearchParams{
		Latitude:  center.Lat(),
		Longitude: center.Lon(),
		RadiusKm:  radius,
	})
	if err != nil {
		if appErr, ok := err.(*apperrors.AppError); ok && appErr.Type == apperrors.ErrorTypeRetrieval {
			return nil, err
		}
		return nil, apperrors.NewRetrievalError(fmt.Sprintf("coverage retrieval failed for radius %.1f km", radius), err)
	}
	return candidates, nil
}

func (s *CoverageService) analyzeCell(tile geo.Tile, candidates []*entities.Pharmacy, locations []orb.Point, maxDistanceKm float64) entities.GridCell {
	type reachable struct {
		id   string
		dist float64
	}

	var found []reachable
	for i, p := range candidates {
		dist := geo.DistanceKm(tile.Center, locations[i])
		if dist <= maxDistanceKm {
			found = append(found, reachable{id: p.ID, dist: dist})
		}
	}

	cell := entities.GridCell{
		CellID:        tile.ID,
		Latitude:      tile.Center.Lat(),
		Longitude:     tile.Center.Lon(),
		Covered:       len(found) > 0,
		PharmacyCount: len(found),
	}

	if len(found) == 0 {
		return cell
	}

	sort.Slice(found, func(i, j int) bool { return found[i].dist < found[j].dist })

	sum := 0.0
	for _, r := range found {
		sum += r.dist
	}
	avg := sum / float64(len(found))
	cell.AverageDistanceKm = &avg

	n := nearestPerCell
	if len(found) < n {
		n = len(found)
	}
	for i := 0; i < n; i++ {
		cell.NearestPharmacyIDs = append(cell.NearestPharmacyIDs, found[i].id)
	}
	return cell
}

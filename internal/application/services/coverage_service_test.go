package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rxgrid/pharmacy-discovery/internal/domain/entities"
	apperrors "github.com/rxgrid/pharmacy-discovery/pkg/errors"
	"github.com/rxgrid/pharmacy-discovery/pkg/geo"
)

// a ~10km square on the equator
func testBox() geo.BoundingBox {
	return geo.BoundingBox{North: 0.09009, South: 0, East: 0.09009, West: 0}
}

func TestAnalyzeCoverageValidation(t *testing.T) {
	svc := NewCoverageService(&fakePharmacyRepo{})
	ctx := context.Background()

	cases := []struct {
		name    string
		box     geo.BoundingBox
		cell    float64
		maxDist float64
	}{
		{"inverted box", geo.BoundingBox{North: 0, South: 1, East: 1, West: 0}, 5, 5},
		{"empty box", geo.BoundingBox{North: 1, South: 1, East: 1, West: 1}, 5, 5},
		{"out of range", geo.BoundingBox{North: 95, South: 0, East: 1, West: 0}, 5, 5},
		{"zero cell size", testBox(), 0, 5},
		{"zero max distance", testBox(), 5, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.AnalyzeCoverage(ctx, tc.box, tc.cell, tc.maxDist)
			require.Error(t, err)
			appErr, ok := err.(*apperrors.AppError)
			require.True(t, ok)
			assert.Equal(t, apperrors.ErrorTypeValidation, appErr.Type)
		})
	}
}

func TestAnalyzeCoverageGridShape(t *testing.T) {
	svc := NewCoverageService(&fakePharmacyRepo{})

	report, err := svc.AnalyzeCoverage(context.Background(), testBox(), 5, 5)
	require.NoError(t, err)

	// 10km box at 5km cells: 3 boundary-inclusive steps per axis
	assert.Len(t, report.Grid, 9)
	assert.Equal(t, "cell_0_0", report.Grid[0].CellID)
	assert.Equal(t, "cell_2_2", report.Grid[8].CellID)
	assert.Equal(t, 9, report.Stats.TotalCells)
	assert.Zero(t, report.Stats.CoveredCells)
	assert.Equal(t, 9, report.Stats.UnderservedCells)
	assert.Zero(t, report.Stats.CoveragePercent)
}

func TestAnalyzeCoverageCountsReachablePharmacies(t *testing.T) {
	// one pharmacy at the center cell; 6km reach covers the center cell and
	// its four edge neighbors, the diagonal cells stay out of range
	repo := &fakePharmacyRepo{pharmacies: []*entities.Pharmacy{
		testPharmacy("center", 0.045045, 0.045045),
	}}
	svc := NewCoverageService(repo)

	report, err := svc.AnalyzeCoverage(context.Background(), testBox(), 5, 6)
	require.NoError(t, err)

	assert.Equal(t, 5, report.Stats.CoveredCells)
	assert.Equal(t, 4, report.Stats.UnderservedCells)
	assert.InDelta(t, 5.0/9.0*100, report.Stats.CoveragePercent, 1e-6)
	assert.InDelta(t, 5.0/9.0, report.Stats.MeanPharmaciesPerCell, 1e-6)
	assert.Zero(t, report.Stats.WellCoveredCells)

	for _, cell := range report.Grid {
		if cell.CellID == "cell_1_1" {
			require.True(t, cell.Covered)
			assert.Equal(t, []string{"center"}, cell.NearestPharmacyIDs)
			require.NotNil(t, cell.AverageDistanceKm)
			assert.InDelta(t, 0.0, *cell.AverageDistanceKm, 0.01)
		}
	}
}

func TestAnalyzeCoverageWellCoveredThreshold(t *testing.T) {
	repo := &fakePharmacyRepo{pharmacies: []*entities.Pharmacy{
		testPharmacy("a", 0.045045, 0.045045),
		testPharmacy("b", 0.045045, 0.046),
		testPharmacy("c", 0.046, 0.045045),
		testPharmacy("d", 0.044, 0.044),
	}}
	svc := NewCoverageService(repo)

	report, err := svc.AnalyzeCoverage(context.Background(), testBox(), 5, 2)
	require.NoError(t, err)

	var centerCell *entities.GridCell
	for i := range report.Grid {
		if report.Grid[i].CellID == "cell_1_1" {
			centerCell = &report.Grid[i]
		}
	}
	require.NotNil(t, centerCell)
	assert.Equal(t, 4, centerCell.PharmacyCount)
	// nearest list is capped at three
	assert.Len(t, centerCell.NearestPharmacyIDs, 3)
	assert.Equal(t, "a", centerCell.NearestPharmacyIDs[0])
	assert.Equal(t, 1, report.Stats.WellCoveredCells)
}

func TestAnalyzeCoveragePropagatesRetrievalError(t *testing.T) {
	repo := &fakePharmacyRepo{searchErr: apperrors.NewRetrievalError("store down", nil)}
	svc := NewCoverageService(repo)

	_, err := svc.AnalyzeCoverage(context.Background(), testBox(), 5, 5)
	require.Error(t, err)
	appErr, ok := err.(*apperrors.AppError)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrorTypeRetrieval, appErr.Type)
}

package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/rxgrid/pharmacy-discovery/internal/domain/entities"
	"github.com/rxgrid/pharmacy-discovery/internal/domain/repositories"
	"github.com/rxgrid/pharmacy-discovery/internal/infrastructure/observability"
	apperrors "github.com/rxgrid/pharmacy-discovery/pkg/errors"
)

type fakePharmacyRepo struct {
	pharmacies []*entities.Pharmacy
	searchErr  error
	getErr     error
}

func (f *fakePharmacyRepo) GetByID(_ context.Context, id string) (*entities.Pharmacy, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, p := range f.pharmacies {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, apperrors.NewNotFoundError("pharmacy with id " + id + " not found")
}

func (f *fakePharmacyRepo) GetByIDs(_ context.Context, ids []string) ([]*entities.Pharmacy, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []*entities.Pharmacy
	for _, p := range f.pharmacies {
		if want[p.ID] {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePharmacyRepo) Search(_ context.Context, _ repositories.GeoSearchParams) ([]*entities.Pharmacy, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.pharmacies, nil
}

type fakeSearchRepo struct {
	pharmacies []*entities.Pharmacy
	searchErr  error
	calls      int
}

func (f *fakeSearchRepo) Search(_ context.Context, _ repositories.GeoSearchParams) ([]*entities.Pharmacy, error) {
	f.calls++
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.pharmacies, nil
}

func (f *fakeSearchRepo) Index(_ context.Context, _ *entities.Pharmacy) error { return nil }

func (f *fakeSearchRepo) Delete(_ context.Context, _ string) error { return nil }

type fakeInventoryRepo struct {
	lines []entities.InventoryLine
	err   error
}

func (f *fakeInventoryRepo) GetByPharmacies(_ context.Context, pharmacyIDs []string, medications []string) ([]entities.InventoryLine, error) {
	if f.err != nil {
		return nil, f.err
	}
	want := make(map[string]bool, len(pharmacyIDs))
	for _, id := range pharmacyIDs {
		want[id] = true
	}
	meds := make(map[string]bool, len(medications))
	for _, m := range medications {
		meds[strings.ToLower(m)] = true
	}
	var out []entities.InventoryLine
	for _, line := range f.lines {
		if !want[line.PharmacyID] {
			continue
		}
		if len(meds) > 0 && !meds[strings.ToLower(line.MedicationName)] {
			continue
		}
		out = append(out, line)
	}
	return out, nil
}

type fakeHistoryRepo struct {
	prescriptions []entities.Prescription
	err           error
}

func (f *fakeHistoryRepo) ListCompletedByUser(_ context.Context, _ string, _ int) ([]entities.Prescription, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.prescriptions, nil
}

type fakeDispatcher struct {
	failFor    map[string]bool
	dispatched []entities.NotificationIntent
}

func (f *fakeDispatcher) Dispatch(_ context.Context, intent entities.NotificationIntent) error {
	if f.failFor[intent.PharmacyID] {
		return apperrors.NewExternalError("gateway rejected intent", nil)
	}
	f.dispatched = append(f.dispatched, intent)
	return nil
}

// alwaysOpenHours is a full 24/7 schedule.
func alwaysOpenHours() entities.OperatingHours {
	hours := entities.OperatingHours{}
	for _, day := range []string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"} {
		hours[day] = entities.DayHours{Open: "00:00", Close: "00:00"}
	}
	return hours
}

func testPharmacy(id string, lat, lon float64) *entities.Pharmacy {
	return &entities.Pharmacy{
		ID:             id,
		Name:           "Pharmacy " + id,
		Location:       entities.Location{Latitude: lat, Longitude: lon},
		OperatingHours: alwaysOpenHours(),
		Services: entities.ServiceCapabilities{
			PrescriptionFulfillment: true,
		},
		Rating:     4.0,
		IsVerified: true,
		IsActive:   true,
	}
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// installMetricsReader points the global meter provider at a manual reader
// and rebuilds the application metrics against it, so tests can assert on
// recorded counters.
func installMetricsReader(t *testing.T) *sdkmetric.ManualReader {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	otel.SetMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))
	_, err := observability.InitMetrics()
	require.NoError(t, err)
	return reader
}

func counterTotal(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	var total int64
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "metric %s is not an int64 sum", name)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

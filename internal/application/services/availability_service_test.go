package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rxgrid/pharmacy-discovery/internal/domain/entities"
)

func TestIsOpenAtSimpleWindow(t *testing.T) {
	e := NewAvailabilityEstimator()
	hours := entities.DayHours{Open: "09:00", Close: "17:00"}

	assert.True(t, e.IsOpenAt(hours, time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)))
	assert.True(t, e.IsOpenAt(hours, time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)))
	assert.False(t, e.IsOpenAt(hours, time.Date(2026, 3, 2, 17, 0, 0, 0, time.UTC)))
	assert.False(t, e.IsOpenAt(hours, time.Date(2026, 3, 2, 8, 59, 0, 0, time.UTC)))
}

func TestIsOpenAtOvernightWindowWraps(t *testing.T) {
	e := NewAvailabilityEstimator()
	hours := entities.DayHours{Open: "22:00", Close: "06:00"}

	assert.True(t, e.IsOpenAt(hours, time.Date(2026, 3, 2, 23, 30, 0, 0, time.UTC)))
	assert.True(t, e.IsOpenAt(hours, time.Date(2026, 3, 2, 5, 0, 0, 0, time.UTC)))
	assert.False(t, e.IsOpenAt(hours, time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)))
}

func TestIsOpenAtIdenticalTimesMeans24Hours(t *testing.T) {
	e := NewAvailabilityEstimator()
	hours := entities.DayHours{Open: "00:00", Close: "00:00"}

	assert.True(t, e.IsOpenAt(hours, time.Date(2026, 3, 2, 3, 0, 0, 0, time.UTC)))
	assert.True(t, e.IsOpenAt(hours, time.Date(2026, 3, 2, 15, 45, 0, 0, time.UTC)))
}

func TestIsOpenAtMalformedHoursCountAsClosed(t *testing.T) {
	e := NewAvailabilityEstimator()
	noon := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	assert.False(t, e.IsOpenAt(entities.DayHours{Open: "9am", Close: "17:00"}, noon))
	assert.False(t, e.IsOpenAt(entities.DayHours{Open: "09:00", Close: "25:00"}, noon))
	assert.False(t, e.IsOpenAt(entities.DayHours{Open: "", Close: ""}, noon))
	assert.False(t, e.IsOpenAt(entities.DayHours{Open: "09:00", Close: "17:00", Closed: true}, noon))
}

func TestWaitMinutes(t *testing.T) {
	e := NewAvailabilityEstimator()

	assert.Equal(t, 0, e.WaitMinutes(0))
	assert.Equal(t, 0, e.WaitMinutes(-3))
	assert.Equal(t, 45, e.WaitMinutes(3))
	assert.Equal(t, 120, e.WaitMinutes(8))
	assert.Equal(t, 120, e.WaitMinutes(50))
}

func TestEstimateFulfillmentMinutes(t *testing.T) {
	e := NewAvailabilityEstimator()
	forty := 40

	// 40*0.7 + 5*2 + 2*15 = 68
	eta := e.EstimateFulfillmentMinutes(5, &forty, entities.UrgencyUrgent, 2)
	assert.Equal(t, 68, eta)

	// default processing 60, emergency halves it: 30 + 4 + 0 = 34
	eta = e.EstimateFulfillmentMinutes(2, nil, entities.UrgencyEmergency, 0)
	assert.Equal(t, 34, eta)

	// routine stretches processing: 60*1.2 + 0 + 0 = 72
	eta = e.EstimateFulfillmentMinutes(0, nil, entities.UrgencyRoutine, 0)
	assert.Equal(t, 72, eta)

	// unknown urgency falls back to 1.0
	eta = e.EstimateFulfillmentMinutes(0, nil, entities.UrgencyLevel("whenever"), 0)
	assert.Equal(t, 60, eta)
}

func TestNextOpenTimeSkipsTodayOncePassed(t *testing.T) {
	// Monday 10:00; Monday opens 08:00, Tuesday closed, Wednesday opens 09:00
	monday := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	e := NewAvailabilityEstimatorAt(fixedClock(monday))

	hours := entities.OperatingHours{
		"monday":    {Open: "08:00", Close: "17:00"},
		"tuesday":   {Closed: true},
		"wednesday": {Open: "09:00", Close: "17:00"},
	}

	next := e.NextOpenTime(hours)
	require.NotNil(t, next)
	assert.Equal(t, time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC), *next)
}

func TestNextOpenTimeLaterToday(t *testing.T) {
	monday := time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)
	e := NewAvailabilityEstimatorAt(fixedClock(monday))

	hours := entities.OperatingHours{
		"monday": {Open: "08:00", Close: "17:00"},
	}

	next := e.NextOpenTime(hours)
	require.NotNil(t, next)
	assert.Equal(t, time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC), *next)
}

func TestNextOpenTimeNilWhenAlwaysClosed(t *testing.T) {
	e := NewAvailabilityEstimatorAt(fixedClock(time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)))

	hours := entities.OperatingHours{}
	for _, day := range []string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"} {
		hours[day] = entities.DayHours{Closed: true}
	}

	assert.Nil(t, e.NextOpenTime(hours))
	assert.Nil(t, e.NextOpenTime(nil))
}

func TestCurrentStatus(t *testing.T) {
	// Monday 12:00, closed Mondays so NextOpen lands Tuesday 09:00
	monday := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	e := NewAvailabilityEstimatorAt(fixedClock(monday))

	p := &entities.Pharmacy{
		CurrentCapacityPct: 65,
		CurrentOrderCount:  2,
		OperatingHours: entities.OperatingHours{
			"monday":  {Closed: true},
			"tuesday": {Open: "09:00", Close: "17:00"},
		},
	}

	status := e.CurrentStatus(p)
	assert.False(t, status.IsOpen)
	assert.InDelta(t, 65.0, status.CapacityPct, 1e-9)
	assert.Equal(t, 30, status.WaitMinutes)
	require.NotNil(t, status.NextOpen)
	assert.Equal(t, time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC), *status.NextOpen)
}

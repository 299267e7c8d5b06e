package services

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rxgrid/pharmacy-discovery/internal/domain/entities"
)

const (
	waitMinutesPerOrder = 15
	maxWaitMinutes      = 120
	travelMinutesPerKm  = 2
	nextOpenScanDays    = 7
)

// AvailabilityEstimator derives the real-time open/closed state, queue wait
// and fulfillment ETA for a pharmacy. The clock is injectable for tests.
type AvailabilityEstimator struct {
	now func() time.Time
}

// NewAvailabilityEstimator creates an estimator on the wall clock.
func NewAvailabilityEstimator() *AvailabilityEstimator {
	return &AvailabilityEstimator{now: time.Now}
}

// NewAvailabilityEstimatorAt creates an estimator pinned to a clock function.
func NewAvailabilityEstimatorAt(now func() time.Time) *AvailabilityEstimator {
	return &AvailabilityEstimator{now: now}
}

// CurrentStatus computes the pharmacy's availability at the current moment.
func (e *AvailabilityEstimator) CurrentStatus(p *entities.Pharmacy) entities.AvailabilityStatus {
	now := e.now()
	status := entities.AvailabilityStatus{
		CapacityPct: p.CurrentCapacityPct,
		WaitMinutes: e.WaitMinutes(p.CurrentOrderCount),
	}

	status.IsOpen = e.IsOpenAt(p.OperatingHours.For(now.Weekday()), now)
	if !status.IsOpen {
		status.NextOpen = e.NextOpenTime(p.OperatingHours)
	}
	return status
}

// IsOpenAt reports whether the window covers the given moment. Windows with
// close before open wrap past midnight.
func (e *AvailabilityEstimator) IsOpenAt(hours entities.DayHours, t time.Time) bool {
	if hours.Closed {
		return false
	}
	open, okOpen := parseClock(hours.Open)
	close, okClose := parseClock(hours.Close)
	if !okOpen || !okClose {
		// malformed hours count as closed, consistent with degraded enrichment
		return false
	}

	minutes := t.Hour()*60 + t.Minute()
	if open == close {
		// identical open and close marks a 24-hour window
		return true
	}
	if close < open {
		return minutes >= open || minutes < close
	}
	return minutes >= open && minutes < close
}

// WaitMinutes estimates queue wait from the live order count: 15 minutes per
// order, capped at 2 hours.
func (e *AvailabilityEstimator) WaitMinutes(currentOrders int) int {
	if currentOrders <= 0 {
		return 0
	}
	wait := currentOrders * waitMinutesPerOrder
	if wait > maxWaitMinutes {
		return maxWaitMinutes
	}
	return wait
}

// EstimateFulfillmentMinutes combines urgency-adjusted processing time,
// travel time at a flat 2 min/km, and queue wait.
func (e *AvailabilityEstimator) EstimateFulfillmentMinutes(distanceKm float64, avgProcessingMinutes *int, urgency entities.UrgencyLevel, currentOrders int) int {
	processing := 60.0
	if avgProcessingMinutes != nil {
		processing = float64(*avgProcessingMinutes)
	}
	adjusted := processing * urgency.ProcessingMultiplier()
	travel := distanceKm * travelMinutesPerKm
	total := adjusted + travel + float64(e.WaitMinutes(currentOrders))
	return int(math.Round(total))
}

// NextOpenTime scans the next 7 days for an opening, starting today. Today
// is skipped once its open time has passed. Returns nil when no open day is
// found in the window; callers must treat nil as unknown, not never.
func (e *AvailabilityEstimator) NextOpenTime(hours entities.OperatingHours) *time.Time {
	now := e.now()
	for i := 0; i < nextOpenScanDays; i++ {
		day := now.AddDate(0, 0, i)
		dayHours := hours.For(day.Weekday())
		if dayHours.Closed {
			continue
		}
		open, ok := parseClock(dayHours.Open)
		if !ok {
			continue
		}
		openAt := time.Date(day.Year(), day.Month(), day.Day(), open/60, open%60, 0, 0, day.Location())
		if i == 0 && !openAt.After(now) {
			continue
		}
		return &openAt
	}
	return nil
}

// parseClock parses "HH:MM" into minutes since midnight.
func parseClock(s string) (int, bool) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}

// Package engine turns raw usage records into the KPI snapshot: window
// aggregation, quota utilization, efficiency ratios, projections, and
// gate decisions. Every computation is a pure function of the record
// set, the calibration, and "now"; the Engine type wraps them behind
// the peek/refresh contract.
package engine

import (
	"sort"
	"time"

	"github.com/mblanc/ccmeter/internal/models"
)

const dayFormat = "2006-01-02"

// WeekStart returns the start of the current billing week: the most
// recent occurrence of the anchor weekday plus the reset hour at or
// before now. On the anchor weekday before the reset hour, now still
// belongs to the previous week.
func WeekStart(now, anchor time.Time, resetHour int) time.Time {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	back := (int(day.Weekday()) - int(anchor.Weekday()) + 7) % 7
	day = day.AddDate(0, 0, -back)

	start := resetTime(day, resetHour)
	if start.After(now) {
		start = resetTime(day.AddDate(0, 0, -7), resetHour)
	}
	return start
}

// NextReset returns the boundary exactly one week after a week start,
// in wall-clock terms so DST transitions do not shift the reset hour.
func NextReset(start time.Time) time.Time {
	return time.Date(start.Year(), start.Month(), start.Day()+7,
		start.Hour(), start.Minute(), 0, 0, start.Location())
}

// resetTime places a reset hour on a day's midnight. Hours past 24 roll
// into following days, so a staggered cap can reset after the anchor
// weekday has ended.
func resetTime(day time.Time, resetHour int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day()+resetHour/24,
		resetHour%24, 0, 0, 0, day.Location())
}

// Windows holds every aggregate of one refresh cycle. All windows are
// recomputed whole from the same record slice; nothing is carried over
// from the previous cycle.
type Windows struct {
	WeekStart time.Time

	Today     models.WindowAggregate
	Rolling7  models.WindowAggregate
	Rolling30 models.WindowAggregate
	Week      models.WindowAggregate

	Hourly      [24]models.HourBucket
	TodayModels []string

	// WeekRecords are the records inside [WeekStart, now), kept for
	// per-cap subset costing.
	WeekRecords []models.UsageRecord

	// DayCosts maps local date to total cost, for run-rate and trend.
	DayCosts map[string]float64
}

// ComputeWindows rolls records into today / rolling-7 / rolling-30 and
// the current billing week. Records at or after now are ignored.
func ComputeWindows(records []models.UsageRecord, now, weekStart time.Time) Windows {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	start7 := midnight.AddDate(0, 0, -6)
	start30 := midnight.AddDate(0, 0, -29)

	w := Windows{
		WeekStart: weekStart,
		Today:     models.WindowAggregate{Start: midnight, End: now},
		Rolling7:  models.WindowAggregate{Start: start7, End: now},
		Rolling30: models.WindowAggregate{Start: start30, End: now},
		Week:      models.WindowAggregate{Start: weekStart, End: now},
		DayCosts:  make(map[string]float64),
	}
	for h := range w.Hourly {
		w.Hourly[h].Hour = h
	}

	modelsToday := make(map[string]struct{})

	for _, r := range records {
		if !r.Timestamp.Before(now) {
			continue
		}

		if !r.Timestamp.Before(start30) {
			w.DayCosts[r.Timestamp.Format(dayFormat)] += r.CostUSD
			accumulate(&w.Rolling30, r)
		}
		if !r.Timestamp.Before(start7) {
			accumulate(&w.Rolling7, r)
		}
		if !r.Timestamp.Before(midnight) {
			accumulate(&w.Today, r)
			h := r.Timestamp.Hour()
			w.Hourly[h].CostUSD += r.CostUSD
			w.Hourly[h].Tokens.Add(r.Tokens)
			if r.Model != "" {
				modelsToday[r.Model] = struct{}{}
			}
		}
		if !r.Timestamp.Before(weekStart) {
			accumulate(&w.Week, r)
			w.WeekRecords = append(w.WeekRecords, r)
		}
	}

	for m := range modelsToday {
		w.TodayModels = append(w.TodayModels, m)
	}
	sort.Strings(w.TodayModels)

	return w
}

func accumulate(agg *models.WindowAggregate, r models.UsageRecord) {
	agg.CostUSD += r.CostUSD
	agg.Tokens.Add(r.Tokens)
	agg.Records++
}

// Trend builds the last-n-days series, oldest first, zero-filling quiet
// days. Ratio is cost against the plan's daily pro-rata; zero when the
// plan is unset.
func Trend(dayCosts map[string]float64, now time.Time, days int, planDailyUSD float64) []models.DayPoint {
	points := make([]models.DayPoint, 0, days)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	for i := days - 1; i >= 0; i-- {
		date := midnight.AddDate(0, 0, -i).Format(dayFormat)
		cost := dayCosts[date]
		p := models.DayPoint{Date: date, CostUSD: cost}
		if planDailyUSD > 0 {
			p.Ratio = cost / planDailyUSD
		}
		points = append(points, p)
	}
	return points
}

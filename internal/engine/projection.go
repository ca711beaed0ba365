package engine

import (
	"time"

	"github.com/mblanc/ccmeter/internal/models"
)

// elapsedEpsilon is the fraction of a period below which extrapolation
// would amplify noise into a spike; anything under it is reported as
// insufficient data instead.
const elapsedEpsilon = 0.02

// RunRate averages cost per active day over the trailing window ending
// today. Days with zero recorded cost do not count, so an off day does
// not drag the pace down. Returns the rate and the active day count; a
// zero count means no rate exists.
func RunRate(dayCosts map[string]float64, now time.Time, trailingDays int) (float64, int) {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	total := 0.0
	active := 0
	for i := 0; i < trailingDays; i++ {
		cost := dayCosts[midnight.AddDate(0, 0, -i).Format(dayFormat)]
		if cost > 0 {
			total += cost
			active++
		}
	}
	if active == 0 {
		return 0, 0
	}
	return total / float64(active), active
}

// ComputeWeekProjection extrapolates the partial billing week to its
// end: projected = week cost so far + run rate * remaining days. With
// no active days in the trailing window there is nothing to
// extrapolate from; the partial total passes through flagged as low
// confidence.
func ComputeWeekProjection(w Windows, quota QuotaResult, now time.Time, trailingDays int, cutoffs Cutoffs) models.WeekProjection {
	rate, active := RunRate(w.DayCosts, now, trailingDays)

	remainingHours := NextReset(w.WeekStart).Sub(now).Hours()
	if remainingHours < 0 {
		remainingHours = 0
	}

	p := models.WeekProjection{
		RunRatePerDay: rate,
		ActiveDays:    active,
		ProjectedUSD:  w.Week.CostUSD,
		LowConfidence: active == 0,
	}
	if active > 0 {
		p.ProjectedUSD = w.Week.CostUSD + rate*remainingHours/24
	}

	// Project each cap by its share of week spend so the per-cap
	// ordering survives extrapolation. Right after a reset there is no
	// spend to split yet; a full-coverage cap then takes the whole
	// projected total and a prefix cap an assumed majority share.
	const freshWeekPrefixShare = 0.95
	for _, cu := range quota.Caps {
		share := freshWeekPrefixShare
		if w.Week.CostUSD > 0 {
			share = cu.CostUSD / w.Week.CostUSD
		} else if cu.Cap.ModelPrefix == "" {
			share = 1.0
		}
		util := 0.0
		if cu.Cap.WeeklyLimitUSD > 0 {
			util = p.ProjectedUSD * share / cu.Cap.WeeklyLimitUSD
		}
		p.ByCap = append(p.ByCap, models.CapProjection{
			Name:        cu.Cap.Name,
			Utilization: util,
		})
	}
	if quota.Binding >= 0 && quota.Binding < len(p.ByCap) {
		p.BindingPct = p.ByCap[quota.Binding].Utilization
	}
	p.Band = cutoffs.Band(p.BindingPct)

	return p
}

// ComputeDayProjection extrapolates today's cost to a day-end estimate
// from the elapsed fraction of the day, the hour-granularity pattern
// applied at day scale. An elapsed fraction under the epsilon would
// turn the first minutes of the day into an absurd spike, so it is
// insufficient data instead of a number.
func ComputeDayProjection(todayCost float64, now time.Time, baseline models.Baseline) models.DayProjection {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	elapsed := now.Sub(midnight).Hours() / 24

	p := models.DayProjection{
		CostSoFarUSD:    todayCost,
		ElapsedFraction: elapsed,
	}
	if elapsed < elapsedEpsilon {
		return p
	}

	p.Valid = true
	p.ProjectedUSD = todayCost / elapsed

	dailyBaseline := baseline.WeeklySpendUSD / 7
	if dailyBaseline <= 0 {
		p.Band = models.BandNominal
		return p
	}
	switch ratio := p.ProjectedUSD / dailyBaseline; {
	case ratio <= 1.0:
		p.Band = models.BandNominal
	case ratio <= 1.25:
		p.Band = models.BandElevated
	default:
		p.Band = models.BandCritical
	}
	return p
}

// ComputeResets derives the reset schedule from the cap set. Caps may
// reset at different hours of the billing week; between the first and
// last reset of a cycle the caps disagree about which week they are in,
// the dead zone.
func ComputeResets(caps models.CapSet, now, anchor time.Time) models.ResetSchedule {
	if len(caps) == 0 {
		return models.ResetSchedule{}
	}

	var first, last time.Time
	var earliestPast, latestPast time.Time
	for _, cap := range caps {
		start := WeekStart(now, anchor, cap.ResetHour)
		next := NextReset(start)
		if first.IsZero() || next.Before(first) {
			first = next
		}
		if last.IsZero() || next.After(last) {
			last = next
		}
		if earliestPast.IsZero() || start.Before(earliestPast) {
			earliestPast = start
		}
		if latestPast.IsZero() || start.After(latestPast) {
			latestPast = start
		}
	}

	s := models.ResetSchedule{
		NextReset:    first,
		LastReset:    last,
		HoursToFirst: first.Sub(now).Hours(),
	}

	// When the caps are aligned in the same cycle their most recent
	// resets sit within the reset-hour spread of each other. In the
	// dead zone one cap has rolled over and another has not, pushing
	// the spread of past resets out by nearly a full week.
	if latestPast.Sub(earliestPast) > 84*time.Hour {
		s.InDeadZone = true
		s.Label = "caps mid-reset"
	} else {
		s.Label = "next reset " + first.Format("Mon 15:04")
	}

	return s
}

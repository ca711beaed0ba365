package engine

import "github.com/mblanc/ccmeter/internal/models"

// QuotaResult is the per-cap standing for one billing week.
type QuotaResult struct {
	Caps    []models.CapUtilization
	Binding int

	// SprintRoomUSD is how much unscheduled spend fits before the warn
	// cutoff on the binding cap, after holding back the scheduled-work
	// reserve. Never negative.
	SprintRoomUSD float64

	// SpendPct is the week's cost as a percentage of the historical
	// weekly baseline.
	SpendPct float64

	// Gate is the overall decision, taken from the binding cap.
	Gate models.GateDecision
}

// ComputeQuota evaluates every cap against the week's records. Each
// cap's cost sums the records its model prefix matches, so overlapping
// caps each see their own subset. Utilization stays unclamped past 1.0.
// The binding cap is the highest utilization; declaration order breaks
// ties, first listed wins.
func ComputeQuota(weekRecords []models.UsageRecord, cal models.Calibration, cutoffs Cutoffs) QuotaResult {
	result := QuotaResult{
		Caps:    make([]models.CapUtilization, 0, len(cal.Caps)),
		Binding: -1,
		Gate:    models.GatePermit,
	}

	for _, cap := range cal.Caps {
		cost := 0.0
		for _, r := range weekRecords {
			if cap.Matches(r.Model) {
				cost += r.CostUSD
			}
		}
		util := cost / cap.WeeklyLimitUSD
		result.Caps = append(result.Caps, models.CapUtilization{
			Cap:         cap,
			CostUSD:     cost,
			Utilization: util,
			Band:        cutoffs.Band(util),
			Gate:        cutoffs.Gate(util),
		})
		if result.Binding < 0 || util > result.Caps[result.Binding].Utilization {
			result.Binding = len(result.Caps) - 1
		}
	}

	if result.Binding >= 0 {
		binding := result.Caps[result.Binding]
		result.Gate = binding.Gate

		room := binding.Cap.WeeklyLimitUSD*cutoffs.Warn - binding.CostUSD -
			binding.Cap.WeeklyLimitUSD*cutoffs.Reserve
		if room > 0 {
			result.SprintRoomUSD = room
		}
	}

	if cal.Baseline.WeeklySpendUSD > 0 {
		weekCost := 0.0
		for _, r := range weekRecords {
			weekCost += r.CostUSD
		}
		result.SpendPct = weekCost / cal.Baseline.WeeklySpendUSD * 100
	}

	return result
}

// EfficiencyRatio measures value per dollar for a window: window cost
// divided by the plan's pro-rated cost over the same number of days. A
// zero or missing plan makes the ratio undefined, reported with Valid
// false rather than zero or infinity.
func EfficiencyRatio(costUSD float64, days float64, baseline models.Baseline) models.EfficiencyRatio {
	reference := baseline.PlanDailyUSD() * days
	if reference <= 0 {
		return models.EfficiencyRatio{CostUSD: costUSD, Valid: false}
	}
	ratio := costUSD / reference
	return models.EfficiencyRatio{
		CostUSD: costUSD,
		Ratio:   ratio,
		Band:    RatioBand(ratio, baseline),
		Valid:   true,
	}
}

package engine

import "github.com/mblanc/ccmeter/internal/models"

// Cutoffs classifies utilization fractions into risk bands and gate
// decisions. Warn and Abort are fractions of a cap (0.80 means 80%);
// Reserve is the fraction of the weekly quota held back for scheduled
// work when computing sprint room.
type Cutoffs struct {
	Warn    float64
	Abort   float64
	Reserve float64
}

// Band maps an unclamped utilization onto a risk band.
func (c Cutoffs) Band(utilization float64) models.RiskBand {
	switch {
	case utilization >= c.Abort:
		return models.BandCritical
	case utilization >= c.Warn:
		return models.BandElevated
	default:
		return models.BandNominal
	}
}

// Gate maps an unclamped utilization onto a gate decision. The mapping
// is deterministic: the same utilization always yields the same answer.
func (c Cutoffs) Gate(utilization float64) models.GateDecision {
	switch {
	case utilization >= c.Abort:
		return models.GateDeny
	case utilization >= c.Warn:
		return models.GateWarn
	default:
		return models.GatePermit
	}
}

// RatioBand classifies a value-per-dollar ratio against the baseline.
// Higher is better here, the inverse of utilization.
func RatioBand(ratio float64, baseline models.Baseline) models.RiskBand {
	switch {
	case ratio >= baseline.RatioTarget:
		return models.BandNominal
	case ratio >= baseline.RatioFloor:
		return models.BandElevated
	default:
		return models.BandCritical
	}
}

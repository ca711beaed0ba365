package models

import "time"

// RiskBand classifies a metric against the configured cutoffs.
type RiskBand int

const (
	BandNominal RiskBand = iota
	BandElevated
	BandCritical
)

// String returns the display name for a risk band.
func (b RiskBand) String() string {
	switch b {
	case BandNominal:
		return "NOMINAL"
	case BandElevated:
		return "ELEVATED"
	case BandCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// GateDecision is the pass/fail form of a band classification.
type GateDecision int

const (
	GatePermit GateDecision = iota
	GateWarn
	GateDeny
)

// String returns the display name for a gate decision.
func (g GateDecision) String() string {
	switch g {
	case GatePermit:
		return "PERMIT"
	case GateWarn:
		return "WARN"
	case GateDeny:
		return "DENY"
	default:
		return "UNKNOWN"
	}
}

// CapUtilization is one cap's standing for the current billing week.
// Utilization is never clamped: a week costing 3x the cap reports 3.0.
type CapUtilization struct {
	Cap         Cap
	CostUSD     float64
	Utilization float64
	Band        RiskBand
	Gate        GateDecision
}

// EfficiencyRatio is a value-per-dollar measurement over one window.
// Valid is false when the reference period had no pro-rated cost to
// divide by; consumers must render a no-data marker, never a zero.
type EfficiencyRatio struct {
	CostUSD float64
	Ratio   float64
	Band    RiskBand
	Valid   bool
}

// CapProjection is one cap's projected end-of-week utilization.
type CapProjection struct {
	Name        string
	Utilization float64
}

// WeekProjection extrapolates the partial billing week to its end using
// the trailing run-rate. LowConfidence is set when no trailing active
// days existed and the projection is the unextrapolated partial total.
type WeekProjection struct {
	RunRatePerDay float64
	ActiveDays    int
	ProjectedUSD  float64
	ByCap         []CapProjection
	BindingPct    float64
	Band          RiskBand
	LowConfidence bool
}

// DayProjection extrapolates today's cost to a day-end estimate from the
// elapsed fraction of the day. Valid is false when the elapsed fraction
// is below the insufficient-data epsilon.
type DayProjection struct {
	CostSoFarUSD    float64
	ElapsedFraction float64
	ProjectedUSD    float64
	Band            RiskBand
	Valid           bool
}

// ResetSchedule describes the upcoming cap resets. When caps reset at
// different hours the window between the first and last reset is the
// dead zone.
type ResetSchedule struct {
	NextReset    time.Time // first cap reset at or after now
	LastReset    time.Time // last cap reset of the cycle
	InDeadZone   bool
	HoursToFirst float64
	Label        string
}

// KPISnapshot is the engine's single output type: every aggregate, ratio,
// projection, and gate decision for one refresh cycle. It is immutable
// once published; a renderer holding one never observes partial state.
type KPISnapshot struct {
	GeneratedAt time.Time
	WeekStart   time.Time

	// Uncalibrated is true when cap and baseline values are built-in
	// defaults; ratio figures are then indicative only.
	Uncalibrated bool
	CalibratedAt time.Time

	Today     WindowAggregate
	Hourly    [24]HourBucket
	Rolling7  WindowAggregate
	Rolling30 WindowAggregate
	Week      WindowAggregate

	// Caps in calibration declaration order; Binding indexes the cap
	// with the highest utilization (first listed wins ties).
	Caps    []CapUtilization
	Binding int

	SprintRoomUSD float64
	SpendPct      float64 // week cost vs the historical weekly baseline

	TodayRatio   EfficiencyRatio
	RollingRatio EfficiencyRatio
	TodayModels  []string

	DaysElapsed   int
	DaysRemaining int
	Projection    WeekProjection
	DayOutlook    DayProjection

	Trend  []DayPoint // last 7 days, oldest first
	Resets ResetSchedule

	// Gate is the overall decision, taken from the binding cap.
	Gate GateDecision
}

// BindingCap returns the binding cap's utilization entry, or nil when the
// snapshot has no caps.
func (s *KPISnapshot) BindingCap() *CapUtilization {
	if s.Binding < 0 || s.Binding >= len(s.Caps) {
		return nil
	}
	return &s.Caps[s.Binding]
}

package models

import (
	"fmt"
	"strings"
	"time"
)

// Cap is one independent weekly quota ceiling. A cap with an empty
// ModelPrefix applies to every record; a prefixed cap applies only to
// records whose model identifier starts with the prefix.
type Cap struct {
	Name           string  `json:"name"`
	ModelPrefix    string  `json:"modelPrefix,omitempty"`
	WeeklyLimitUSD float64 `json:"weeklyLimitUsd"`
	// ResetHour is hours after midnight of the reset day, local time.
	// Values past 24 roll into the following day (26 = 02:00 next day).
	ResetHour int `json:"resetHour"`
}

// Matches reports whether a record's model falls under this cap.
func (c Cap) Matches(model string) bool {
	return c.ModelPrefix == "" || strings.HasPrefix(model, c.ModelPrefix)
}

// CapSet is an ordered list of caps. Declaration order is significant:
// it breaks utilization ties when selecting the binding cap.
type CapSet []Cap

// Baseline holds the value-per-dollar reference points.
type Baseline struct {
	// PlanMonthlyUSD is the subscription price the efficiency ratio is
	// measured against, pro-rated to the window length.
	PlanMonthlyUSD float64 `json:"planMonthlyUsd"`
	// RatioTarget is the value-per-dollar ratio considered on-track.
	RatioTarget float64 `json:"ratioTarget"`
	// RatioFloor is the ratio below which efficiency is degraded.
	RatioFloor float64 `json:"ratioFloor"`
	// WeeklySpendUSD is the historical weekly average used by the spend
	// pattern metric.
	WeeklySpendUSD float64 `json:"weeklySpendUsd"`
}

// PlanDailyUSD returns the plan price pro-rated to one day.
func (b Baseline) PlanDailyUSD() float64 {
	return b.PlanMonthlyUSD / 30.0
}

// Calibration is the persisted configuration snapshot the engine reads
// once per refresh. It is immutable for the duration of a computation.
type Calibration struct {
	Caps     CapSet   `json:"caps"`
	Baseline Baseline `json:"baseline"`
	// AnchorDate fixes the weekday the billing week starts on; week
	// boundaries are whole weeks from this date.
	AnchorDate   string    `json:"anchorDate"` // "2006-01-02"
	CalibratedAt time.Time `json:"calibratedAt,omitzero"`
	// Calibrated is false when the values are built-in defaults rather
	// than a persisted calibration.
	Calibrated bool `json:"-"`
}

// Anchor parses the anchor date in the given location.
func (c Calibration) Anchor(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", c.AnchorDate, loc)
}

// Validate rejects calibrations that could not produce meaningful KPIs.
// The full valid range for a reset hour is one week (0-167) so a cap may
// reset on a different day than the anchor weekday.
func (c Calibration) Validate() error {
	if len(c.Caps) == 0 {
		return fmt.Errorf("calibration has no caps")
	}
	for _, cap := range c.Caps {
		if cap.Name == "" {
			return fmt.Errorf("cap with empty name")
		}
		if cap.WeeklyLimitUSD <= 0 {
			return fmt.Errorf("cap %q: weekly limit must be positive, got %.2f", cap.Name, cap.WeeklyLimitUSD)
		}
		if cap.ResetHour < 0 || cap.ResetHour >= 168 {
			return fmt.Errorf("cap %q: reset hour %d outside 0-167", cap.Name, cap.ResetHour)
		}
	}
	if c.Baseline.PlanMonthlyUSD <= 0 {
		return fmt.Errorf("plan monthly cost must be positive, got %.2f", c.Baseline.PlanMonthlyUSD)
	}
	if _, err := time.Parse("2006-01-02", c.AnchorDate); err != nil {
		return fmt.Errorf("invalid anchor date %q: %w", c.AnchorDate, err)
	}
	return nil
}

// DefaultCalibration returns the built-in values used before any
// calibration has been persisted. Callers must treat the result as
// uncalibrated.
func DefaultCalibration() Calibration {
	return Calibration{
		Caps: CapSet{
			{Name: "all-models", WeeklyLimitUSD: 607.0, ResetHour: 12},
			{Name: "sonnet-only", ModelPrefix: "claude-sonnet", WeeklyLimitUSD: 789.0, ResetHour: 26},
		},
		Baseline: Baseline{
			PlanMonthlyUSD: 100.0,
			RatioTarget:    15.5,
			RatioFloor:     12.0,
			WeeklySpendUSD: 55.0,
		},
		AnchorDate: "2026-02-07",
		Calibrated: false,
	}
}

package engine

import (
	"testing"
	"time"

	"github.com/mblanc/ccmeter/internal/models"
)

func testCalibration() models.Calibration {
	return models.Calibration{
		Caps: models.CapSet{
			{Name: "all-models", WeeklyLimitUSD: 500, ResetHour: 12},
			{Name: "sonnet-only", ModelPrefix: "claude-sonnet", WeeklyLimitUSD: 300, ResetHour: 12},
		},
		Baseline: models.Baseline{
			PlanMonthlyUSD: 100,
			RatioTarget:    15.5,
			RatioFloor:     12.0,
			WeeklySpendUSD: 55,
		},
		AnchorDate: "2026-02-07",
		Calibrated: true,
	}
}

func TestComputeQuota_BindingCap(t *testing.T) {
	ts := time.Date(2026, 8, 25, 10, 0, 0, 0, time.Local)
	records := []models.UsageRecord{
		rec(ts, "claude-sonnet-4-5", 200),
		rec(ts.Add(time.Hour), "claude-opus-4-1", 400),
	}
	cutoffs := Cutoffs{Warn: 0.80, Abort: 1.0, Reserve: 0.05}

	q := ComputeQuota(records, testCalibration(), cutoffs)

	if len(q.Caps) != 2 {
		t.Fatalf("Expected 2 caps, got %d", len(q.Caps))
	}

	// all-models: $600 of $500 = 120%, sonnet-only: $200 of $300 = 67%.
	all, sonnet := q.Caps[0], q.Caps[1]
	if all.CostUSD != 600 || sonnet.CostUSD != 200 {
		t.Errorf("Cap costs = %v / %v, want 600 / 200", all.CostUSD, sonnet.CostUSD)
	}
	if all.Utilization != 1.2 {
		t.Errorf("all-models utilization = %v, want 1.2 unclamped", all.Utilization)
	}
	if q.Binding != 0 {
		t.Errorf("Binding = %d, want 0 (all-models)", q.Binding)
	}
	if q.Gate != models.GateDeny {
		t.Errorf("Gate = %v, want DENY past the abort cutoff", q.Gate)
	}

	// The binding cap dominates every other cap.
	for i, c := range q.Caps {
		if c.Utilization > q.Caps[q.Binding].Utilization {
			t.Errorf("Cap %d utilization %v exceeds binding %v", i, c.Utilization, q.Caps[q.Binding].Utilization)
		}
	}
}

func TestComputeQuota_NeverClamped(t *testing.T) {
	cal := testCalibration()
	cal.Caps = models.CapSet{{Name: "all-models", WeeklyLimitUSD: 100, ResetHour: 12}}

	ts := time.Date(2026, 8, 25, 10, 0, 0, 0, time.Local)
	records := []models.UsageRecord{rec(ts, "claude-opus-4-1", 300)}

	q := ComputeQuota(records, cal, Cutoffs{Warn: 0.80, Abort: 0.90})
	if q.Caps[0].Utilization != 3.0 {
		t.Errorf("Utilization = %v, want 3.0", q.Caps[0].Utilization)
	}
}

func TestComputeQuota_TieBreakDeclarationOrder(t *testing.T) {
	cal := testCalibration()
	cal.Caps = models.CapSet{
		{Name: "first", WeeklyLimitUSD: 100, ResetHour: 12},
		{Name: "second", WeeklyLimitUSD: 100, ResetHour: 12},
	}

	ts := time.Date(2026, 8, 25, 10, 0, 0, 0, time.Local)
	q := ComputeQuota([]models.UsageRecord{rec(ts, "claude-opus-4-1", 50)}, cal, Cutoffs{Warn: 0.80, Abort: 0.90})

	if q.Binding != 0 {
		t.Errorf("Tied utilizations must bind to the first declared cap, got %d", q.Binding)
	}
}

func TestComputeQuota_SprintRoom(t *testing.T) {
	cal := testCalibration()
	cal.Caps = models.CapSet{{Name: "all-models", WeeklyLimitUSD: 607, ResetHour: 12}}
	cutoffs := Cutoffs{Warn: 0.80, Abort: 0.90, Reserve: 0.05}

	ts := time.Date(2026, 8, 25, 10, 0, 0, 0, time.Local)
	q := ComputeQuota([]models.UsageRecord{rec(ts, "claude-opus-4-1", 300)}, cal, cutoffs)

	// 607*0.80 - 300 - 607*0.05 = 155.25
	if diff := q.SprintRoomUSD - 155.25; diff < -0.001 || diff > 0.001 {
		t.Errorf("SprintRoomUSD = %v, want 155.25", q.SprintRoomUSD)
	}

	// Past the warn cutoff there is no room left, never a negative.
	q = ComputeQuota([]models.UsageRecord{rec(ts, "claude-opus-4-1", 580)}, cal, cutoffs)
	if q.SprintRoomUSD != 0 {
		t.Errorf("SprintRoomUSD = %v, want 0", q.SprintRoomUSD)
	}
}

func TestComputeQuota_SpendPct(t *testing.T) {
	ts := time.Date(2026, 8, 25, 10, 0, 0, 0, time.Local)
	q := ComputeQuota([]models.UsageRecord{rec(ts, "claude-opus-4-1", 110)}, testCalibration(), Cutoffs{Warn: 0.80, Abort: 0.90})

	if q.SpendPct != 200 {
		t.Errorf("SpendPct = %v, want 200 (110 of 55 baseline)", q.SpendPct)
	}
}

func TestEfficiencyRatio(t *testing.T) {
	baseline := testCalibration().Baseline // $100/mo, $3.33/day

	r := EfficiencyRatio(40, 1, baseline)
	if !r.Valid {
		t.Fatal("Expected valid ratio")
	}
	if r.Ratio < 11.9 || r.Ratio > 12.1 {
		t.Errorf("Ratio = %v, want ~12.0", r.Ratio)
	}
	if r.Band != models.BandElevated {
		t.Errorf("Band = %v, want ELEVATED between floor and target", r.Band)
	}

	if r := EfficiencyRatio(60, 1, baseline); r.Band != models.BandNominal {
		t.Errorf("Ratio 18x should be NOMINAL, got %v", r.Band)
	}
	if r := EfficiencyRatio(10, 1, baseline); r.Band != models.BandCritical {
		t.Errorf("Ratio 3x should be CRITICAL, got %v", r.Band)
	}
}

func TestEfficiencyRatio_NoPlan(t *testing.T) {
	r := EfficiencyRatio(40, 1, models.Baseline{})
	if r.Valid {
		t.Error("Zero reference plan must report no data, not a number")
	}
	if r.Ratio != 0 {
		t.Errorf("Invalid ratio should carry no value, got %v", r.Ratio)
	}
}

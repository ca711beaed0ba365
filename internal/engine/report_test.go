package engine

import (
	"testing"
	"time"

	"github.com/mblanc/ccmeter/internal/models"
)

func TestReport_RoundTrip(t *testing.T) {
	snap := &models.KPISnapshot{
		GeneratedAt: time.Date(2026, 8, 26, 18, 30, 0, 0, time.Local),
		WeekStart:   time.Date(2026, 8, 22, 12, 0, 0, 0, time.Local),
		Week:        models.WindowAggregate{CostUSD: 312.41},
		Today:       models.WindowAggregate{CostUSD: 41.13},
		Caps: []models.CapUtilization{
			{Cap: models.Cap{Name: "all-models"}, Utilization: 0.5148},
		},
		Binding:       0,
		SpendPct:      568.02,
		SprintRoomUSD: 12.34,
		TodayRatio:    models.EfficiencyRatio{Ratio: 12.35, Valid: true},
		RollingRatio:  models.EfficiencyRatio{Valid: false},
		Projection:    models.WeekProjection{ProjectedUSD: 498.77},
		Gate:          models.GateWarn,
	}

	rendered := NewReport(snap).Render()
	parsed, err := ParseReport(rendered)
	if err != nil {
		t.Fatalf("ParseReport failed: %v", err)
	}

	if !parsed.GeneratedAt.Equal(snap.GeneratedAt) {
		t.Errorf("GeneratedAt = %v, want %v", parsed.GeneratedAt, snap.GeneratedAt)
	}
	if !parsed.WeekStart.Equal(snap.WeekStart) {
		t.Errorf("WeekStart = %v, want %v", parsed.WeekStart, snap.WeekStart)
	}
	if parsed.WeekCostUSD != 312.41 {
		t.Errorf("WeekCostUSD = %v, want 312.41", parsed.WeekCostUSD)
	}
	if parsed.BindingCap != "all-models" {
		t.Errorf("BindingCap = %q, want all-models", parsed.BindingCap)
	}
	if parsed.BindingPct != 51.48 {
		t.Errorf("BindingPct = %v, want 51.48", parsed.BindingPct)
	}
	if parsed.SpendPct != 568.02 {
		t.Errorf("SpendPct = %v, want 568.02", parsed.SpendPct)
	}
	if parsed.SprintRoomUSD != 12.34 {
		t.Errorf("SprintRoomUSD = %v, want 12.34", parsed.SprintRoomUSD)
	}
	if parsed.TodayCostUSD != 41.13 {
		t.Errorf("TodayCostUSD = %v, want 41.13", parsed.TodayCostUSD)
	}
	if !parsed.TodayRatioOK || parsed.TodayRatio != 12.35 {
		t.Errorf("TodayRatio = %v (ok=%v), want 12.35", parsed.TodayRatio, parsed.TodayRatioOK)
	}
	if parsed.RollingOK {
		t.Error("An n/a ratio must parse back as no data")
	}
	if parsed.ProjectedUSD != 498.77 {
		t.Errorf("ProjectedUSD = %v, want 498.77", parsed.ProjectedUSD)
	}
	if parsed.Gate != "WARN" {
		t.Errorf("Gate = %q, want WARN", parsed.Gate)
	}
}

func TestParseReport_Malformed(t *testing.T) {
	if _, err := ParseReport("week_cost_usd: not-a-number\n"); err == nil {
		t.Error("Expected an error for a non-numeric field")
	}
	if _, err := ParseReport("no separator here\n"); err == nil {
		t.Error("Expected an error for a line without a key")
	}
}

func TestParseReport_SkipsUnknownKeys(t *testing.T) {
	r, err := ParseReport("future_field: 1.00\nweek_cost_usd: 5.00\n")
	if err != nil {
		t.Fatalf("ParseReport failed: %v", err)
	}
	if r.WeekCostUSD != 5.00 {
		t.Errorf("WeekCostUSD = %v, want 5.00", r.WeekCostUSD)
	}
}

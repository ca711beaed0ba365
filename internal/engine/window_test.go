package engine

import (
	"testing"
	"time"

	"github.com/mblanc/ccmeter/internal/models"
)

// anchorDate is a Saturday.
var anchorDate = time.Date(2026, 2, 7, 0, 0, 0, 0, time.Local)

func rec(ts time.Time, model string, cost float64) models.UsageRecord {
	return models.UsageRecord{
		Timestamp: ts,
		Model:     model,
		CostUSD:   cost,
		Tokens:    models.TokenCounts{Input: 100, Output: 1000},
	}
}

func TestWeekStart(t *testing.T) {
	tests := []struct {
		name      string
		now       time.Time
		resetHour int
		want      time.Time
	}{
		{
			name:      "MidWeek",
			now:       time.Date(2026, 8, 26, 15, 0, 0, 0, time.Local), // Wednesday
			resetHour: 8,
			want:      time.Date(2026, 8, 22, 8, 0, 0, 0, time.Local),
		},
		{
			name: "AnchorWeekdayBeforeResetHour",
			// Saturday 07:59 with an 08:00 reset still belongs to the
			// previous week.
			now:       time.Date(2026, 8, 29, 7, 59, 0, 0, time.Local),
			resetHour: 8,
			want:      time.Date(2026, 8, 22, 8, 0, 0, 0, time.Local),
		},
		{
			name:      "AnchorWeekdayAtResetHour",
			now:       time.Date(2026, 8, 29, 8, 0, 0, 0, time.Local),
			resetHour: 8,
			want:      time.Date(2026, 8, 29, 8, 0, 0, 0, time.Local),
		},
		{
			name: "ResetHourPastMidnight",
			// Hour 26 lands at 02:00 on the day after the anchor
			// weekday. Sunday 01:00 is still the old week.
			now:       time.Date(2026, 8, 30, 1, 0, 0, 0, time.Local),
			resetHour: 26,
			want:      time.Date(2026, 8, 23, 2, 0, 0, 0, time.Local),
		},
		{
			name:      "ResetHourPastMidnightAfterReset",
			now:       time.Date(2026, 8, 30, 3, 0, 0, 0, time.Local),
			resetHour: 26,
			want:      time.Date(2026, 8, 30, 2, 0, 0, 0, time.Local),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WeekStart(tt.now, anchorDate, tt.resetHour)
			if !got.Equal(tt.want) {
				t.Errorf("WeekStart() = %v, want %v", got, tt.want)
			}
			if got.After(tt.now) {
				t.Errorf("Week start %v is after now %v", got, tt.now)
			}
			if next := NextReset(got); next.Sub(got) != 7*24*time.Hour {
				t.Errorf("Cycle length = %v, want 168h", next.Sub(got))
			}
		})
	}
}

func TestComputeWindows(t *testing.T) {
	now := time.Date(2026, 8, 26, 18, 0, 0, 0, time.Local) // Wednesday
	weekStart := time.Date(2026, 8, 22, 12, 0, 0, 0, time.Local)

	records := []models.UsageRecord{
		rec(time.Date(2026, 8, 26, 9, 0, 0, 0, time.Local), "claude-sonnet-4-5", 10),  // today
		rec(time.Date(2026, 8, 26, 14, 0, 0, 0, time.Local), "claude-opus-4-1", 30),   // today
		rec(time.Date(2026, 8, 24, 10, 0, 0, 0, time.Local), "claude-sonnet-4-5", 20), // this week
		rec(time.Date(2026, 8, 21, 10, 0, 0, 0, time.Local), "claude-sonnet-4-5", 15), // before week start, within 7d
		rec(time.Date(2026, 8, 1, 10, 0, 0, 0, time.Local), "claude-haiku-4-5", 5),    // within 30d only
		rec(time.Date(2026, 8, 26, 23, 0, 0, 0, time.Local), "claude-sonnet-4-5", 99), // future, ignored
	}

	w := ComputeWindows(records, now, weekStart)

	if w.Today.CostUSD != 40 {
		t.Errorf("Today cost = %v, want 40", w.Today.CostUSD)
	}
	if w.Week.CostUSD != 60 {
		t.Errorf("Week cost = %v, want 60", w.Week.CostUSD)
	}
	if w.Rolling7.CostUSD != 75 {
		t.Errorf("Rolling7 cost = %v, want 75", w.Rolling7.CostUSD)
	}
	if w.Rolling30.CostUSD != 80 {
		t.Errorf("Rolling30 cost = %v, want 80", w.Rolling30.CostUSD)
	}
	if len(w.WeekRecords) != 3 {
		t.Errorf("Week records = %d, want 3", len(w.WeekRecords))
	}

	// All 24 hour buckets exist, quiet hours as zeros.
	for h, bucket := range w.Hourly {
		if bucket.Hour != h {
			t.Fatalf("Bucket %d reports hour %d", h, bucket.Hour)
		}
	}
	if w.Hourly[9].CostUSD != 10 || w.Hourly[14].CostUSD != 30 {
		t.Errorf("Hourly[9]=%v Hourly[14]=%v, want 10 and 30", w.Hourly[9].CostUSD, w.Hourly[14].CostUSD)
	}
	if w.Hourly[3].CostUSD != 0 {
		t.Errorf("Quiet hour should be zero, got %v", w.Hourly[3].CostUSD)
	}

	want := []string{"claude-opus-4-1", "claude-sonnet-4-5"}
	if len(w.TodayModels) != 2 || w.TodayModels[0] != want[0] || w.TodayModels[1] != want[1] {
		t.Errorf("TodayModels = %v, want %v", w.TodayModels, want)
	}
}

func TestComputeWindows_Empty(t *testing.T) {
	now := time.Date(2026, 8, 26, 18, 0, 0, 0, time.Local)
	weekStart := time.Date(2026, 8, 22, 12, 0, 0, 0, time.Local)

	w := ComputeWindows(nil, now, weekStart)

	if !w.Today.IsZero() || !w.Week.IsZero() {
		t.Error("Empty input should produce zero aggregates")
	}
	if !w.Week.Start.Equal(weekStart) || !w.Week.End.Equal(now) {
		t.Errorf("Zero aggregate lost its bounds: %v..%v", w.Week.Start, w.Week.End)
	}
}

func TestTrend(t *testing.T) {
	now := time.Date(2026, 8, 26, 18, 0, 0, 0, time.Local)
	dayCosts := map[string]float64{
		"2026-08-26": 40,
		"2026-08-24": 20,
	}

	points := Trend(dayCosts, now, 7, 3.33)

	if len(points) != 7 {
		t.Fatalf("Expected 7 points, got %d", len(points))
	}
	if points[0].Date != "2026-08-20" || points[6].Date != "2026-08-26" {
		t.Errorf("Expected oldest-first 08-20..08-26, got %s..%s", points[0].Date, points[6].Date)
	}
	if points[6].CostUSD != 40 {
		t.Errorf("Expected 40 for today, got %v", points[6].CostUSD)
	}
	if points[1].CostUSD != 0 {
		t.Errorf("Quiet day should be zero-filled, got %v", points[1].CostUSD)
	}
	if points[6].Ratio < 12.0 || points[6].Ratio > 12.02 {
		t.Errorf("Expected ratio near 12.01, got %v", points[6].Ratio)
	}
}

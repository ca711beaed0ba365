package components

import (
	"strings"
	"testing"

	"github.com/charmbracelet/bubbles/spinner"

	"github.com/mblanc/ccmeter/internal/models"
)

func TestNewSpinner(t *testing.T) {
	s := NewSpinner("Loading")
	if s.label != "Loading" {
		t.Error("Spinner label mismatch")
	}
}

func TestSpinner_Methods(t *testing.T) {
	s := NewSpinner("Init")

	s.SetLabel("Loading")
	if s.label != "Loading" {
		t.Errorf("label = %s, want Loading", s.label)
	}

	if s.View() == "" {
		t.Error("View returned empty")
	}
	if s.ViewWithLabel() == "" {
		t.Error("ViewWithLabel returned empty")
	}
	if s.Init() == nil {
		t.Error("Init should return command")
	}

	_, cmd := s.Update(spinner.TickMsg{})
	if cmd == nil {
		t.Error("Update should return command for tick")
	}

	if s.Tick() == nil {
		t.Error("Tick should return command")
	}
}

func TestRenderSpinnerCentered(t *testing.T) {
	s := NewSpinner("Loading...")
	view := RenderSpinnerCentered(s, 20, 5)
	if view == "" {
		t.Error("RenderSpinnerCentered returned empty")
	}
}

func TestQuotaBar_View(t *testing.T) {
	bar := NewQuotaBar()
	cap := models.CapUtilization{
		Cap:         models.Cap{Name: "all-models", WeeklyLimitUSD: 600},
		CostUSD:     300,
		Utilization: 0.5,
	}
	view := bar.View(cap, 60, false)
	if !strings.Contains(view, "all-models") {
		t.Error("View should contain cap name")
	}
	if !strings.Contains(view, "50") {
		t.Error("View should contain percentage")
	}
}

func TestQuotaBar_View_BindingMarker(t *testing.T) {
	bar := NewQuotaBar()
	cap := models.CapUtilization{
		Cap:         models.Cap{Name: "sonnet", WeeklyLimitUSD: 300},
		CostUSD:     360,
		Utilization: 1.2,
	}
	view := bar.View(cap, 60, true)
	if !strings.Contains(view, "▶") {
		t.Error("binding cap should carry marker")
	}
	if !strings.Contains(view, "120") {
		t.Error("percentage text should not clamp at 100")
	}
}

func TestRenderCountdownBar(t *testing.T) {
	s := RenderCountdownBar(0.5, 10)
	if s == "" {
		t.Error("RenderCountdownBar returned empty")
	}
	if !strings.Contains(s, "█") || !strings.Contains(s, "░") {
		t.Error("countdown bar should mix filled and empty cells")
	}
}

func TestRenderCountdownBar_Clamped(t *testing.T) {
	full := RenderCountdownBar(1.5, 10)
	if strings.Contains(full, "░") {
		t.Error("overfull countdown bar should be fully filled")
	}
	empty := RenderCountdownBar(-0.5, 10)
	if strings.Contains(empty, "█") {
		t.Error("negative countdown bar should be empty")
	}
}

func TestRenderLineChart(t *testing.T) {
	data := []float64{1, 2, 3, 4}
	s := RenderLineChart(data, 20, 5, "Test")
	if s == "" {
		t.Error("RenderLineChart returned empty")
	}
}

func TestRenderLineChart_Empty(t *testing.T) {
	s := RenderLineChart(nil, 20, 5, "Test")
	if !strings.Contains(s, "No data") {
		t.Error("empty chart should carry placeholder")
	}
}

func TestRenderDualLineChart(t *testing.T) {
	series := []float64{10, 20, 30}
	baseline := []float64{55, 55, 55}
	s := RenderDualLineChart(series, baseline, 20, 5, "Daily cost")
	if s == "" {
		t.Error("RenderDualLineChart returned empty")
	}
}

func TestRenderBarChart(t *testing.T) {
	values := []float64{10, 20}
	labels := []string{"Mon", "Tue"}
	s := RenderBarChart(values, labels, 40)
	if !strings.Contains(s, "Mon") {
		t.Error("RenderBarChart should contain labels")
	}
}

func TestRenderHourlyHeatmap(t *testing.T) {
	data := make([]float64, 24)
	data[9] = 12.5
	s := RenderHourlyHeatmap(data)
	if !strings.Contains(s, "00") || !strings.Contains(s, "23") {
		t.Error("heatmap should carry hour bounds")
	}
}

func TestRenderHourlyHeatmap_ShortInput(t *testing.T) {
	s := RenderHourlyHeatmap([]float64{1, 2, 3})
	if s == "" {
		t.Error("heatmap should pad short input")
	}
}

func TestRenderSparkline(t *testing.T) {
	data := []float64{1, 2, 3}
	s := RenderSparkline(data, 10)
	if s == "" {
		t.Error("RenderSparkline returned empty")
	}
}

func TestRenderLegend(t *testing.T) {
	s := RenderLegend([]LegendItem{{Label: "cost", Color: "196"}})
	if !strings.Contains(s, "cost") {
		t.Error("RenderLegend should contain labels")
	}
}

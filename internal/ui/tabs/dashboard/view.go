package dashboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/mblanc/ccmeter/internal/models"
	"github.com/mblanc/ccmeter/internal/ui/components"
	"github.com/mblanc/ccmeter/internal/ui/styles"
)

// View renders the dashboard tab.
func (m *Model) View() string {
	snap := m.state.GetSnapshot()
	if snap == nil {
		return components.RenderSpinnerCentered(m.spinner, m.width, m.height)
	}

	var sections []string
	sections = append(sections, m.renderHeader(snap))
	sections = append(sections, m.renderQuotaCard(snap))
	sections = append(sections, m.renderEfficiencyCard(snap))
	sections = append(sections, m.renderProjectionCard(snap))
	sections = append(sections, m.renderResetsCard(snap))
	sections = append(sections, m.renderHourlyCard(snap))

	content := lipgloss.JoinVertical(lipgloss.Left, sections...)
	m.viewport.SetContent(content)

	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(m.viewport.View())
}

func (m *Model) renderHeader(snap *models.KPISnapshot) string {
	title := styles.TitleStyle.Render("ccmeter")
	subtitle := styles.HelpStyle.Render("Claude usage and weekly quota monitor")

	lines := []string{lipgloss.JoinHorizontal(lipgloss.Center, title, "  ", subtitle)}

	if snap.Uncalibrated {
		lines = append(lines, styles.UncalibratedStyle.Render(
			"⚠ uncalibrated: cap limits are built-in defaults, run --calibrate"))
	}
	if errMsg := m.state.SourceError(); errMsg != "" {
		lines = append(lines, styles.ErrorTextStyle.Render("source: "+errMsg))
	}
	lines = append(lines, "")

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m *Model) renderQuotaCard(snap *models.KPISnapshot) string {
	cardWidth := max(m.width-6, 50)

	var rows []string
	header := styles.CardTitleStyle.Render("Weekly Quota")
	gateBadge := styles.GetGateStyle(snap.Gate).Render(" " + snap.Gate.String() + " ")
	rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Center, header, "  ", gateBadge))
	rows = append(rows, "")

	if len(snap.Caps) == 0 {
		rows = append(rows, styles.HelpStyle.Render("No caps configured"))
	}
	for i, cap := range snap.Caps {
		rows = append(rows, m.quotaBar.View(cap, cardWidth-6, i == snap.Binding))
	}
	rows = append(rows, "")

	if binding := snap.BindingCap(); binding != nil {
		rows = append(rows, fmt.Sprintf("%s %s at %s of its cap",
			styles.HelpStyle.Render("binding:"),
			lipgloss.NewStyle().Bold(true).Render(binding.Cap.Name),
			styles.GetUtilizationStyle(binding.Utilization*100).
				Render(fmt.Sprintf("%.1f%%", binding.Utilization*100)),
		))
	}

	sprintStyle := styles.SuccessTextStyle
	if snap.SprintRoomUSD <= 0 {
		sprintStyle = styles.ErrorTextStyle
	}
	rows = append(rows, fmt.Sprintf("%s %s before the warn cutoff",
		styles.HelpStyle.Render("sprint room:"),
		sprintStyle.Render(fmt.Sprintf("$%.2f", snap.SprintRoomUSD)),
	))

	rows = append(rows, fmt.Sprintf("%s $%.2f (%s of a typical week)",
		styles.HelpStyle.Render("week spend:"),
		snap.Week.CostUSD,
		styles.GetUtilizationStyle(snap.SpendPct).Render(fmt.Sprintf("%.0f%%", snap.SpendPct)),
	))

	return styles.CardStyle.Width(cardWidth).Render(
		lipgloss.JoinVertical(lipgloss.Left, rows...),
	)
}

func (m *Model) renderEfficiencyCard(snap *models.KPISnapshot) string {
	cardWidth := max(m.width-6, 50)

	var rows []string
	rows = append(rows, styles.CardTitleStyle.Render("Efficiency"))
	rows = append(rows, "")

	rows = append(rows, m.renderRatioRow("today", snap.TodayRatio))
	rows = append(rows, m.renderRatioRow("7-day", snap.RollingRatio))
	rows = append(rows, "")

	rows = append(rows, fmt.Sprintf("%s $%.2f across %d requests",
		styles.HelpStyle.Render("today:"),
		snap.Today.CostUSD, snap.Today.Records,
	))

	if len(snap.TodayModels) > 0 {
		rows = append(rows, styles.HelpStyle.Render("models: ")+strings.Join(snap.TodayModels, ", "))
	}

	if len(snap.Trend) > 0 {
		costs := make([]float64, len(snap.Trend))
		for i, p := range snap.Trend {
			costs[i] = p.CostUSD
		}
		spark := components.RenderSparkline(costs, min(len(costs)*2, cardWidth-20))
		rows = append(rows, "")
		rows = append(rows, styles.HelpStyle.Render("7-day trend: ")+spark)
	}

	return styles.CardStyle.Width(cardWidth).Render(
		lipgloss.JoinVertical(lipgloss.Left, rows...),
	)
}

func (m *Model) renderRatioRow(label string, ratio models.EfficiencyRatio) string {
	labelStr := styles.ProgressLabelStyle.Width(10).Render(label)
	if !ratio.Valid {
		return labelStr + styles.NoDataStyle.Render("n/a (no baseline)")
	}
	value := styles.GetBandStyle(ratio.Band).Render(fmt.Sprintf("%.1fx", ratio.Ratio))
	return fmt.Sprintf("%s%s  %s $%.2f",
		labelStr, value,
		styles.HelpStyle.Render("on"), ratio.CostUSD,
	)
}

func (m *Model) renderProjectionCard(snap *models.KPISnapshot) string {
	cardWidth := max(m.width-6, 50)
	proj := snap.Projection

	var rows []string
	rows = append(rows, styles.CardTitleStyle.Render("Projection"))
	rows = append(rows, "")

	projected := styles.GetBandStyle(proj.Band).Render(fmt.Sprintf("$%.2f", proj.ProjectedUSD))
	line := fmt.Sprintf("%s %s by week end", styles.HelpStyle.Render("projected:"), projected)
	if proj.LowConfidence {
		line += " " + styles.NoDataStyle.Render("(low confidence, no recent activity)")
	}
	rows = append(rows, line)

	rows = append(rows, fmt.Sprintf("%s $%.2f/day over %d active day(s)",
		styles.HelpStyle.Render("run rate:"),
		proj.RunRatePerDay, proj.ActiveDays,
	))

	if len(proj.ByCap) > 0 {
		var parts []string
		for _, cp := range proj.ByCap {
			parts = append(parts, fmt.Sprintf("%s %s", cp.Name,
				styles.GetUtilizationStyle(cp.Utilization*100).
					Render(fmt.Sprintf("%.0f%%", cp.Utilization*100))))
		}
		rows = append(rows, styles.HelpStyle.Render("caps at week end: ")+strings.Join(parts, "  "))
	}

	rows = append(rows, "")
	outlook := snap.DayOutlook
	if !outlook.Valid {
		rows = append(rows, styles.HelpStyle.Render("today's outlook: ")+
			styles.NoDataStyle.Render("too early to call"))
	} else {
		rows = append(rows, fmt.Sprintf("%s %s from $%.2f at %.0f%% of the day",
			styles.HelpStyle.Render("today's outlook:"),
			styles.GetBandStyle(outlook.Band).Render(fmt.Sprintf("$%.2f", outlook.ProjectedUSD)),
			outlook.CostSoFarUSD,
			outlook.ElapsedFraction*100,
		))
	}

	return styles.CardStyle.Width(cardWidth).Render(
		lipgloss.JoinVertical(lipgloss.Left, rows...),
	)
}

func (m *Model) renderResetsCard(snap *models.KPISnapshot) string {
	cardWidth := max(m.width-6, 50)

	var rows []string
	rows = append(rows, styles.CardTitleStyle.Render("Billing Week"))
	rows = append(rows, "")

	elapsed := time.Since(snap.WeekStart).Hours() / (7 * 24)
	bar := components.RenderCountdownBar(elapsed, max(cardWidth-30, 10))
	rows = append(rows, fmt.Sprintf("%s %s day %d of 7",
		bar,
		styles.HelpStyle.Render(" "),
		snap.DaysElapsed,
	))
	rows = append(rows, "")

	resets := snap.Resets
	if resets.InDeadZone {
		rows = append(rows, styles.BandElevatedStyle.Render("⚠ "+resets.Label))
		rows = append(rows, styles.HelpStyle.Render(
			"per-cap utilization may be misaligned until all caps reset"))
	} else if resets.Label != "" {
		rows = append(rows, fmt.Sprintf("%s %s (%s)",
			styles.HelpStyle.Render("next reset:"),
			resets.NextReset.Format("Mon Jan 2 15:04"),
			formatHours(resets.HoursToFirst),
		))
	}

	return styles.CardStyle.Width(cardWidth).Render(
		lipgloss.JoinVertical(lipgloss.Left, rows...),
	)
}

func (m *Model) renderHourlyCard(snap *models.KPISnapshot) string {
	cardWidth := max(m.width-6, 50)

	var rows []string
	rows = append(rows, styles.CardTitleStyle.Render("Today by Hour"))
	rows = append(rows, "")

	costs := make([]float64, 24)
	quiet := true
	for i, b := range snap.Hourly {
		costs[i] = b.CostUSD
		if b.CostUSD > 0 {
			quiet = false
		}
	}

	if quiet {
		rows = append(rows, styles.HelpStyle.Render("No usage recorded today"))
	} else {
		rows = append(rows, components.RenderHourlyHeatmap(costs))
	}

	return styles.CardStyle.Width(cardWidth).Render(
		lipgloss.JoinVertical(lipgloss.Left, rows...),
	)
}

func formatHours(hours float64) string {
	if hours <= 0 {
		return "now"
	}
	h := int(hours)
	if h >= 24 {
		return fmt.Sprintf("%dd %dh", h/24, h%24)
	}
	mins := int((hours - float64(h)) * 60)
	return fmt.Sprintf("%dh %02dm", h, mins)
}

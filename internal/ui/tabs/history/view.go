package history

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mblanc/ccmeter/internal/ui/components"
	"github.com/mblanc/ccmeter/internal/ui/styles"
)

// View renders the history tab.
func (m *Model) View() string {
	if m.loading && !m.loaded {
		return styles.DocStyle.
			Width(m.width).
			Height(m.height).
			Render(styles.HelpStyle.Render("Loading history..."))
	}
	if m.errorMsg != "" {
		content := fmt.Sprintf("%s %s",
			styles.ErrorTextStyle.Render("Error:"),
			m.errorMsg,
		)
		return styles.DocStyle.Width(m.width).Height(m.height).Render(content)
	}
	if len(m.rollups) == 0 && len(m.logs) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			styles.TitleStyle.Render("History"),
			"",
			styles.HelpStyle.Render("No historical data recorded yet."),
			styles.HelpStyle.Render("Day rollups appear after the first refresh persists."),
		)
		return styles.DocStyle.Width(m.width).Height(m.height).Render(content)
	}

	sections := []string{
		m.renderHeader(),
		m.renderCostChart(),
		m.renderRatioChart(),
		m.renderSnapshotLog(),
	}

	content := lipgloss.JoinVertical(lipgloss.Left, sections...)
	m.viewport.SetContent(content)

	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(m.viewport.View())
}

func (m *Model) renderHeader() string {
	title := styles.TitleStyle.Render("History")

	rangeStyle := lipgloss.NewStyle().
		Foreground(styles.Primary).
		Bold(true).
		Padding(0, 1).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.Primary)
	rangeIndicator := rangeStyle.Render(fmt.Sprintf("[t] %d days", m.rangeDays))

	header := lipgloss.JoinHorizontal(lipgloss.Center, title, "  ", rangeIndicator)

	var subtitle string
	if len(m.rollups) > 0 {
		subtitle = styles.HelpStyle.Render(fmt.Sprintf("Data: %s → %s (%d days)",
			m.rollups[0].Date,
			m.rollups[len(m.rollups)-1].Date,
			len(m.rollups),
		))
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, subtitle, "")
}

func (m *Model) renderCostChart() string {
	cardWidth := max(m.width-6, 40)

	var rows []string
	rows = append(rows, styles.CardTitleStyle.Render("Daily Cost"), "")

	if len(m.rollups) == 0 {
		rows = append(rows, styles.HelpStyle.Render("  No daily data available"))
	} else {
		costs := make([]float64, len(m.rollups))
		total := 0.0
		for i, r := range m.rollups {
			costs[i] = r.CostUSD
			total += r.CostUSD
		}
		mean := total / float64(len(costs))
		baseline := make([]float64, len(costs))
		for i := range baseline {
			baseline[i] = mean
		}

		chartWidth := max(cardWidth-12, 30)
		chart := components.RenderDualLineChart(costs, baseline, chartWidth, 8,
			fmt.Sprintf("Last %d days - cost (red) vs mean $%.2f (blue)", len(costs), mean))

		for _, line := range strings.Split(chart, "\n") {
			rows = append(rows, "  "+line)
		}
	}

	rows = append(rows, "")

	return styles.CardStyle.Width(cardWidth).Render(
		lipgloss.JoinVertical(lipgloss.Left, rows...),
	)
}

func (m *Model) renderRatioChart() string {
	cardWidth := max(m.width-6, 40)

	var rows []string
	rows = append(rows, styles.CardTitleStyle.Render("Value Ratio"), "")

	any := false
	ratios := make([]float64, len(m.rollups))
	for i, r := range m.rollups {
		ratios[i] = r.Ratio
		if r.Ratio > 0 {
			any = true
		}
	}

	if !any {
		rows = append(rows, styles.HelpStyle.Render("  No ratio data; calibrate the plan baseline first"))
	} else {
		chartWidth := max(cardWidth-12, 30)
		chart := components.RenderLineChart(ratios, chartWidth, 6, "Daily cost vs plan pro-rata")
		for _, line := range strings.Split(chart, "\n") {
			rows = append(rows, "  "+line)
		}
	}

	rows = append(rows, "")

	return styles.CardStyle.Width(cardWidth).Render(
		lipgloss.JoinVertical(lipgloss.Left, rows...),
	)
}

func (m *Model) renderSnapshotLog() string {
	cardWidth := max(m.width-6, 40)

	var rows []string
	rows = append(rows, styles.CardTitleStyle.Render("Recent Snapshots"), "")

	if len(m.logs) == 0 {
		rows = append(rows, styles.HelpStyle.Render("  No snapshots recorded yet"))
	} else {
		header := fmt.Sprintf("  %-17s %10s %-14s %8s %10s %-6s",
			"When", "Week $", "Binding", "Used", "Proj $", "Gate")
		rows = append(rows, styles.TableHeaderStyle.Render(header))

		for _, entry := range m.logs {
			gate := entry.Gate
			gateStyle := styles.GatePermitStyle
			switch gate {
			case "DENY":
				gateStyle = styles.GateDenyStyle
			case "WARN":
				gateStyle = styles.GateWarnStyle
			}

			row := fmt.Sprintf("  %-17s %10.2f %-14s %7.1f%% %10.2f ",
				entry.GeneratedAt.Format("Jan 2 15:04"),
				entry.WeekCostUSD,
				entry.BindingCap,
				entry.BindingPct,
				entry.ProjectedUSD,
			)
			rows = append(rows, row+gateStyle.Render(gate))
		}
	}

	rows = append(rows, "")

	return styles.CardStyle.Width(cardWidth).Render(
		lipgloss.JoinVertical(lipgloss.Left, rows...),
	)
}

// Package components provides reusable UI components.
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/mblanc/ccmeter/internal/models"
	"github.com/mblanc/ccmeter/internal/ui/styles"
)

// QuotaBar renders a cap utilization bar with label and percentage.
// Utilization arrives unclamped; the bar pins at full while the
// percentage text keeps the real value, so 120% reads as 120%.
type QuotaBar struct {
	progress progress.Model
}

// NewQuotaBar creates a new quota bar with gradient colors.
func NewQuotaBar() QuotaBar {
	p := progress.New(
		progress.WithScaledGradient("#51cf66", "#ff6b6b"),
		progress.WithWidth(30),
		progress.WithoutPercentage(),
	)
	return QuotaBar{progress: p}
}

// View renders one cap's bar line: label, bar, percentage, cost.
func (q QuotaBar) View(cap models.CapUtilization, width int, binding bool) string {
	percent := cap.Utilization * 100

	barWidth := width - 44
	if barWidth < 10 {
		barWidth = 10
	}
	q.progress.Width = barWidth

	fill := cap.Utilization
	if fill > 1 {
		fill = 1
	}
	bar := q.progress.ViewAs(fill)

	label := cap.Cap.Name
	if binding {
		label = "▶ " + label
	} else {
		label = "  " + label
	}
	labelStr := styles.ProgressLabelStyle.Width(15).Render(label)

	percentStr := styles.GetUtilizationStyle(percent).
		Width(7).
		Align(lipgloss.Right).
		Render(fmt.Sprintf("%.1f%%", percent))

	costStr := styles.HelpStyle.Render(fmt.Sprintf(" $%.2f/$%.0f", cap.CostUSD, cap.Cap.WeeklyLimitUSD))

	return lipgloss.JoinHorizontal(
		lipgloss.Center,
		labelStr,
		bar,
		" ",
		percentStr,
		costStr,
	)
}

// RenderCountdownBar renders the time remaining toward the next reset,
// filling up as the week runs out.
func RenderCountdownBar(elapsedFraction float64, width int) string {
	if width < 1 {
		return ""
	}

	filled := int(float64(width) * elapsedFraction)
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}

	var b strings.Builder
	fillStyle := lipgloss.NewStyle().Foreground(styles.Secondary)
	restStyle := lipgloss.NewStyle().Foreground(styles.Subtle)
	b.WriteString(fillStyle.Render(strings.Repeat("█", filled)))
	b.WriteString(restStyle.Render(strings.Repeat("░", width-filled)))
	return b.String()
}

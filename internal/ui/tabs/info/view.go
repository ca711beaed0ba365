package info

import (
	"fmt"
	"runtime"

	"github.com/charmbracelet/lipgloss"

	"github.com/mblanc/ccmeter/internal/ui/styles"
	"github.com/mblanc/ccmeter/internal/version"
)

// View renders the info tab.
func (m *Model) View() string {
	sections := []string{
		m.renderTitle(),
		m.renderCalibrationCard(),
		m.renderConfigCard(),
		m.renderAboutCard(),
	}

	content := lipgloss.JoinVertical(lipgloss.Left, sections...)
	m.viewport.SetContent(content)

	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(m.viewport.View())
}

func (m *Model) renderTitle() string {
	title := styles.TitleStyle.Render("Info")
	subtitle := styles.HelpStyle.Render("Calibration, configuration, and build details")

	return lipgloss.JoinVertical(lipgloss.Left, title, subtitle, "")
}

func (m *Model) cardWidth() int {
	w := m.width - 6
	if w < 50 {
		w = 50
	}
	if w > 80 {
		w = 80
	}
	return w
}

func (m *Model) renderCalibrationCard() string {
	cal := m.calibration()

	var rows []string
	rows = append(rows, styles.CardTitleStyle.Render("Calibration"))
	rows = append(rows, "")

	if cal.Calibrated {
		rows = append(rows, m.renderRow("Calibrated", cal.CalibratedAt.Format("2006-01-02 15:04")))
	} else {
		rows = append(rows, m.renderRow("Calibrated",
			styles.UncalibratedStyle.Render("no (built-in defaults)")))
	}
	rows = append(rows, m.renderRow("Week anchor", cal.AnchorDate))
	rows = append(rows, "")

	for _, cap := range cal.Caps {
		scope := "all models"
		if cap.ModelPrefix != "" {
			scope = "prefix " + cap.ModelPrefix
		}
		rows = append(rows, m.renderRow(cap.Name,
			fmt.Sprintf("$%.2f/week, reset hour %d, %s", cap.WeeklyLimitUSD, cap.ResetHour, scope)))
	}
	rows = append(rows, "")

	rows = append(rows, m.renderRow("Plan", fmt.Sprintf("$%.0f/month ($%.2f/day)",
		cal.Baseline.PlanMonthlyUSD, cal.Baseline.PlanDailyUSD())))
	rows = append(rows, m.renderRow("Ratio target", fmt.Sprintf("%.1fx", cal.Baseline.RatioTarget)))
	rows = append(rows, m.renderRow("Ratio floor", fmt.Sprintf("%.1fx", cal.Baseline.RatioFloor)))
	rows = append(rows, m.renderRow("Typical week", fmt.Sprintf("$%.2f", cal.Baseline.WeeklySpendUSD)))

	return styles.CardStyle.Width(m.cardWidth()).Render(
		lipgloss.JoinVertical(lipgloss.Left, rows...),
	)
}

func (m *Model) renderConfigCard() string {
	var rows []string
	rows = append(rows, styles.CardTitleStyle.Render("Configuration"))
	rows = append(rows, "")

	if m.config != nil {
		rows = append(rows, m.renderRow("Usage logs", m.config.ClaudeDir))
		rows = append(rows, m.renderRow("Database", m.config.DatabasePath))
		rows = append(rows, m.renderRow("Calibration", m.config.CalibrationPath))
		rows = append(rows, m.renderRow("Reports", m.config.OutboxDir))
		rows = append(rows, m.renderRow("Refresh", m.config.RefreshInterval.String()))
		rows = append(rows, m.renderRow("Tick", m.config.TickInterval.String()))
		rows = append(rows, m.renderRow("Cutoffs", fmt.Sprintf("warn %.0f%% / abort %.0f%% / reserve %.0f%%",
			m.config.WarnCutoff*100, m.config.AbortCutoff*100, m.config.SchedReserve*100)))
	} else {
		rows = append(rows, styles.HelpStyle.Render("Configuration not loaded"))
	}

	return styles.CardStyle.Width(m.cardWidth()).Render(
		lipgloss.JoinVertical(lipgloss.Left, rows...),
	)
}

func (m *Model) renderRow(label, value string) string {
	labelStyle := lipgloss.NewStyle().
		Width(16).
		Foreground(styles.TextMuted)

	valueStyle := lipgloss.NewStyle().
		Foreground(styles.TextPrimary)

	return labelStyle.Render(label+":") + " " + valueStyle.Render(value)
}

func (m *Model) renderAboutCard() string {
	var rows []string
	rows = append(rows, styles.CardTitleStyle.Render("About ccmeter"))
	rows = append(rows, "")

	rows = append(rows, m.renderRow("Build", version.Info()))
	rows = append(rows, m.renderRow("Go", runtime.Version()))
	rows = append(rows, m.renderRow("Platform", fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH)))

	if t := m.state.GetLastUpdated(); !t.IsZero() {
		rows = append(rows, "")
		rows = append(rows, m.renderRow("Last refresh", t.Format("15:04:05")))
	}

	return styles.CardStyle.Width(m.cardWidth()).Render(
		lipgloss.JoinVertical(lipgloss.Left, rows...),
	)
}

package engine

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mblanc/ccmeter/internal/models"
)

const (
	reportTimeFormat = "2006-01-02 15:04"
	noData           = "n/a"
)

// Report is the flat, parseable form of a snapshot's headline figures.
// Rendering and parsing are pure serialization; the values round-trip
// at the rendered precision.
type Report struct {
	GeneratedAt   time.Time
	WeekStart     time.Time
	WeekCostUSD   float64
	BindingCap    string
	BindingPct    float64
	SpendPct      float64
	SprintRoomUSD float64
	TodayCostUSD  float64
	TodayRatio    float64
	TodayRatioOK  bool
	RollingRatio  float64
	RollingOK     bool
	ProjectedUSD  float64
	Gate          string
}

// NewReport extracts the headline figures from a snapshot.
func NewReport(s *models.KPISnapshot) Report {
	r := Report{
		GeneratedAt:   s.GeneratedAt,
		WeekStart:     s.WeekStart,
		WeekCostUSD:   s.Week.CostUSD,
		SpendPct:      s.SpendPct,
		SprintRoomUSD: s.SprintRoomUSD,
		TodayCostUSD:  s.Today.CostUSD,
		ProjectedUSD:  s.Projection.ProjectedUSD,
		Gate:          s.Gate.String(),
	}
	if b := s.BindingCap(); b != nil {
		r.BindingCap = b.Cap.Name
		r.BindingPct = b.Utilization * 100
	}
	if s.TodayRatio.Valid {
		r.TodayRatio = s.TodayRatio.Ratio
		r.TodayRatioOK = true
	}
	if s.RollingRatio.Valid {
		r.RollingRatio = s.RollingRatio.Ratio
		r.RollingOK = true
	}
	return r
}

// Render serializes the report as key: value lines.
func (r Report) Render() string {
	var b strings.Builder
	writeLine := func(key, value string) {
		b.WriteString(key)
		b.WriteString(": ")
		b.WriteString(value)
		b.WriteString("\n")
	}

	writeLine("generated_at", r.GeneratedAt.Format(reportTimeFormat))
	writeLine("week_start", r.WeekStart.Format(reportTimeFormat))
	writeLine("week_cost_usd", formatFloat(r.WeekCostUSD))
	writeLine("binding_cap", r.BindingCap)
	writeLine("binding_pct", formatFloat(r.BindingPct))
	writeLine("spend_pct", formatFloat(r.SpendPct))
	writeLine("sprint_room_usd", formatFloat(r.SprintRoomUSD))
	writeLine("today_cost_usd", formatFloat(r.TodayCostUSD))
	if r.TodayRatioOK {
		writeLine("today_ratio", formatFloat(r.TodayRatio))
	} else {
		writeLine("today_ratio", noData)
	}
	if r.RollingOK {
		writeLine("rolling_ratio", formatFloat(r.RollingRatio))
	} else {
		writeLine("rolling_ratio", noData)
	}
	writeLine("projected_usd", formatFloat(r.ProjectedUSD))
	writeLine("gate", r.Gate)

	return b.String()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// ParseReport reads back a rendered report. Unknown keys are skipped so
// the format can grow without breaking old parsers.
func ParseReport(text string) (Report, error) {
	var r Report

	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, ": ")
		if !ok {
			// A bare "key:" line carries an empty value.
			key, _, ok = strings.Cut(line, ":")
			if !ok {
				return r, fmt.Errorf("malformed report line %q", line)
			}
			value = ""
		}

		var err error
		switch key {
		case "generated_at":
			r.GeneratedAt, err = time.ParseInLocation(reportTimeFormat, value, time.Local)
		case "week_start":
			r.WeekStart, err = time.ParseInLocation(reportTimeFormat, value, time.Local)
		case "week_cost_usd":
			r.WeekCostUSD, err = strconv.ParseFloat(value, 64)
		case "binding_cap":
			r.BindingCap = value
		case "binding_pct":
			r.BindingPct, err = strconv.ParseFloat(value, 64)
		case "spend_pct":
			r.SpendPct, err = strconv.ParseFloat(value, 64)
		case "sprint_room_usd":
			r.SprintRoomUSD, err = strconv.ParseFloat(value, 64)
		case "today_cost_usd":
			r.TodayCostUSD, err = strconv.ParseFloat(value, 64)
		case "today_ratio":
			if value != noData {
				r.TodayRatio, err = strconv.ParseFloat(value, 64)
				r.TodayRatioOK = err == nil
			}
		case "rolling_ratio":
			if value != noData {
				r.RollingRatio, err = strconv.ParseFloat(value, 64)
				r.RollingOK = err == nil
			}
		case "projected_usd":
			r.ProjectedUSD, err = strconv.ParseFloat(value, 64)
		case "gate":
			r.Gate = value
		}
		if err != nil {
			return r, fmt.Errorf("report field %s: %w", key, err)
		}
	}

	return r, scanner.Err()
}

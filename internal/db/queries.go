package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mblanc/ccmeter/internal/models"
)

const dayFormat = "2006-01-02"

// UpsertDayRollup writes or replaces a per-day usage total. The rollup for
// a date is always rewritten whole; partial days converge to the final
// total as the day fills in.
func (db *DB) UpsertDayRollup(rollup *models.DayRollup) error {
	query := `
		INSERT INTO usage_daily (
			date, cost_usd, input_tokens, output_tokens,
			cache_write_tokens, cache_read_tokens, models, ratio, recorded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			cost_usd = excluded.cost_usd,
			input_tokens = excluded.input_tokens,
			output_tokens = excluded.output_tokens,
			cache_write_tokens = excluded.cache_write_tokens,
			cache_read_tokens = excluded.cache_read_tokens,
			models = excluded.models,
			ratio = excluded.ratio,
			recorded_at = excluded.recorded_at
	`

	recordedAt := rollup.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now()
	}

	_, err := db.ExecContext(context.Background(), query,
		rollup.Date,
		rollup.CostUSD,
		rollup.Tokens.Input,
		rollup.Tokens.Output,
		rollup.Tokens.CacheWrite,
		rollup.Tokens.CacheRead,
		strings.Join(rollup.Models, ","),
		rollup.Ratio,
		recordedAt.Format("2006-01-02 15:04:05"),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert day rollup: %w", err)
	}

	return nil
}

// GetDayRollups returns rollups for dates on or after since, oldest first.
func (db *DB) GetDayRollups(since time.Time) ([]models.DayRollup, error) {
	query := `
		SELECT date, cost_usd, input_tokens, output_tokens,
			   cache_write_tokens, cache_read_tokens, models, ratio, recorded_at
		FROM usage_daily
		WHERE date >= ?
		ORDER BY date ASC
	`

	rows, err := db.QueryContext(context.Background(), query, since.Format(dayFormat))
	if err != nil {
		return nil, fmt.Errorf("failed to query day rollups: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var rollups []models.DayRollup
	for rows.Next() {
		var r models.DayRollup
		var modelList string
		var recordedAt string

		err := rows.Scan(
			&r.Date,
			&r.CostUSD,
			&r.Tokens.Input,
			&r.Tokens.Output,
			&r.Tokens.CacheWrite,
			&r.Tokens.CacheRead,
			&modelList,
			&r.Ratio,
			&recordedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan day rollup: %w", err)
		}

		if modelList != "" {
			r.Models = strings.Split(modelList, ",")
		}
		if t, err := time.ParseInLocation("2006-01-02 15:04:05", recordedAt, time.Local); err == nil {
			r.RecordedAt = t
		}

		rollups = append(rollups, r)
	}

	return rollups, rows.Err()
}

// GetDayRollup returns the rollup for one date, or nil when none exists.
func (db *DB) GetDayRollup(date string) (*models.DayRollup, error) {
	rollups, err := db.GetDayRollups(mustDay(date))
	if err != nil {
		return nil, err
	}
	for i := range rollups {
		if rollups[i].Date == date {
			return &rollups[i], nil
		}
	}
	return nil, nil
}

func mustDay(date string) time.Time {
	t, err := time.ParseInLocation(dayFormat, date, time.Local)
	if err != nil {
		return time.Time{}
	}
	return t
}

// InsertSnapshotLog appends the headline figures of a snapshot for
// historical charting.
func (db *DB) InsertSnapshotLog(snapshot *models.KPISnapshot) error {
	query := `
		INSERT INTO snapshot_log (
			generated_at, week_start, week_cost_usd, binding_cap, binding_pct,
			spend_pct, today_cost_usd, today_ratio, projected_usd, gate
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	bindingName := ""
	bindingPct := 0.0
	if b := snapshot.BindingCap(); b != nil {
		bindingName = b.Cap.Name
		bindingPct = b.Utilization
	}

	todayRatio := 0.0
	if snapshot.TodayRatio.Valid {
		todayRatio = snapshot.TodayRatio.Ratio
	}

	_, err := db.ExecContext(context.Background(), query,
		snapshot.GeneratedAt.Format("2006-01-02 15:04:05"),
		snapshot.WeekStart.Format("2006-01-02 15:04:05"),
		snapshot.Week.CostUSD,
		bindingName,
		bindingPct,
		snapshot.SpendPct,
		snapshot.Today.CostUSD,
		todayRatio,
		snapshot.Projection.ProjectedUSD,
		snapshot.Gate.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert snapshot log: %w", err)
	}

	return nil
}

// SnapshotLogEntry is one persisted headline row.
type SnapshotLogEntry struct {
	ID           int64
	GeneratedAt  time.Time
	WeekCostUSD  float64
	BindingCap   string
	BindingPct   float64
	SpendPct     float64
	TodayCostUSD float64
	TodayRatio   float64
	ProjectedUSD float64
	Gate         string
}

// GetRecentSnapshotLogs returns the newest entries, most recent first.
func (db *DB) GetRecentSnapshotLogs(limit int) ([]SnapshotLogEntry, error) {
	query := `
		SELECT id, generated_at, week_cost_usd, binding_cap, binding_pct,
			   spend_pct, today_cost_usd, today_ratio, projected_usd, gate
		FROM snapshot_log
		ORDER BY generated_at DESC
		LIMIT ?
	`

	rows, err := db.QueryContext(context.Background(), query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot log: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []SnapshotLogEntry
	for rows.Next() {
		var e SnapshotLogEntry
		var generatedAt string

		err := rows.Scan(
			&e.ID,
			&generatedAt,
			&e.WeekCostUSD,
			&e.BindingCap,
			&e.BindingPct,
			&e.SpendPct,
			&e.TodayCostUSD,
			&e.TodayRatio,
			&e.ProjectedUSD,
			&e.Gate,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot log: %w", err)
		}

		if t, err := time.ParseInLocation("2006-01-02 15:04:05", generatedAt, time.Local); err == nil {
			e.GeneratedAt = t
		}

		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// PruneSnapshotLog removes entries older than the cutoff.
func (db *DB) PruneSnapshotLog(before time.Time) (int64, error) {
	result, err := db.ExecContext(context.Background(),
		"DELETE FROM snapshot_log WHERE generated_at < ?",
		before.Format("2006-01-02 15:04:05"),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to prune snapshot log: %w", err)
	}
	return result.RowsAffected()
}

package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mblanc/ccmeter/internal/logger"
	"github.com/mblanc/ccmeter/internal/models"
)

// Source yields the usage records for a lookback window. A source must
// honor the context deadline; a slow or unreachable source surfaces as
// models.ErrSourceUnavailable.
type Source interface {
	Records(ctx context.Context, since time.Time) ([]models.UsageRecord, error)
}

// CalibrationStore loads the persisted calibration. A missing
// calibration is not an error: the store returns the built-in defaults
// with Calibrated false and the snapshot carries the uncalibrated
// marker.
type CalibrationStore interface {
	Load() (models.Calibration, error)
}

// Options configure one engine instance. Cutoffs and windows live here
// rather than in package state so independent instances never
// interfere.
type Options struct {
	Cutoffs      Cutoffs
	RunRateDays  int
	LookbackDays int
	TrendDays    int

	// Now is the clock, replaceable in tests. Defaults to time.Now.
	Now func() time.Time
}

// Engine computes KPI snapshots from a record source and a calibration
// store. Peek returns the latest completed snapshot without I/O or
// locking; Refresh recomputes. At most one refresh runs at a time,
// concurrent callers coalesce onto the in-flight computation.
type Engine struct {
	source Source
	store  CalibrationStore
	opts   Options

	snapshot atomic.Pointer[models.KPISnapshot]

	mu       sync.Mutex
	inflight chan struct{}
	lastErr  error
}

// New creates an engine. Zero option fields get working defaults.
func New(source Source, store CalibrationStore, opts Options) *Engine {
	if opts.RunRateDays <= 0 {
		opts.RunRateDays = 3
	}
	if opts.LookbackDays <= 0 {
		opts.LookbackDays = 30
	}
	if opts.TrendDays <= 0 {
		opts.TrendDays = 7
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Cutoffs.Warn <= 0 {
		opts.Cutoffs.Warn = 0.80
	}
	if opts.Cutoffs.Abort <= 0 {
		opts.Cutoffs.Abort = 0.90
	}
	return &Engine{source: source, store: store, opts: opts}
}

// Peek returns the most recently completed snapshot, or nil before the
// first successful refresh. It never blocks on I/O or on an in-flight
// refresh; a reader always sees a complete snapshot, never a partial
// one.
func (e *Engine) Peek() *models.KPISnapshot {
	return e.snapshot.Load()
}

// Refresh recomputes the snapshot from the source and calibration
// store. A refresh arriving while one is in flight waits for that one
// and returns its result instead of running a second computation. On
// failure the previous snapshot stays in place and is returned
// alongside the error.
func (e *Engine) Refresh(ctx context.Context) (*models.KPISnapshot, error) {
	e.mu.Lock()
	if ch := e.inflight; ch != nil {
		e.mu.Unlock()
		select {
		case <-ch:
			e.mu.Lock()
			err := e.lastErr
			e.mu.Unlock()
			return e.Peek(), err
		case <-ctx.Done():
			return e.Peek(), ctx.Err()
		}
	}
	ch := make(chan struct{})
	e.inflight = ch
	e.mu.Unlock()

	snap, err := e.compute(ctx)
	if err == nil {
		e.snapshot.Store(snap)
	} else {
		logger.Warn("refresh failed, previous snapshot remains current", "error", err)
	}

	e.mu.Lock()
	e.lastErr = err
	e.inflight = nil
	e.mu.Unlock()
	close(ch)

	return e.Peek(), err
}

// compute runs one full aggregation cycle. The calibration is loaded
// once up front and used unchanged for the whole computation, so a
// concurrent calibration write never produces a mixed result.
func (e *Engine) compute(ctx context.Context) (*models.KPISnapshot, error) {
	now := e.opts.Now()

	cal, err := e.store.Load()
	if err != nil {
		return nil, fmt.Errorf("load calibration: %w", err)
	}

	anchor, err := cal.Anchor(now.Location())
	if err != nil {
		return nil, fmt.Errorf("%w: bad anchor date %q", models.ErrInvalidCalibration, cal.AnchorDate)
	}

	since := now.AddDate(0, 0, -e.opts.LookbackDays)
	records, err := e.source.Records(ctx, since)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			err = fmt.Errorf("%w: %v", models.ErrSourceUnavailable, err)
		}
		return nil, err
	}
	records = dedup(records)

	// The week window follows the earliest-resetting cap; staggered
	// caps show up in the reset schedule, not in the window boundary.
	resetHour := 0
	if len(cal.Caps) > 0 {
		resetHour = cal.Caps[0].ResetHour
		for _, cap := range cal.Caps {
			if cap.ResetHour < resetHour {
				resetHour = cap.ResetHour
			}
		}
	}
	weekStart := WeekStart(now, anchor, resetHour)

	w := ComputeWindows(records, now, weekStart)
	quota := ComputeQuota(w.WeekRecords, cal, e.opts.Cutoffs)
	projection := ComputeWeekProjection(w, quota, now, e.opts.RunRateDays, e.opts.Cutoffs)

	elapsedDays := int(now.Sub(weekStart).Hours()/24) + 1
	if elapsedDays > 7 {
		elapsedDays = 7
	}

	snap := &models.KPISnapshot{
		GeneratedAt:   now,
		WeekStart:     weekStart,
		Uncalibrated:  !cal.Calibrated,
		CalibratedAt:  cal.CalibratedAt,
		Today:         w.Today,
		Hourly:        w.Hourly,
		Rolling7:      w.Rolling7,
		Rolling30:     w.Rolling30,
		Week:          w.Week,
		Caps:          quota.Caps,
		Binding:       quota.Binding,
		SprintRoomUSD: quota.SprintRoomUSD,
		SpendPct:      quota.SpendPct,
		TodayRatio:    EfficiencyRatio(w.Today.CostUSD, 1, cal.Baseline),
		RollingRatio:  EfficiencyRatio(w.Rolling7.CostUSD, 7, cal.Baseline),
		TodayModels:   w.TodayModels,
		DaysElapsed:   elapsedDays,
		DaysRemaining: 7 - elapsedDays,
		Projection:    projection,
		DayOutlook:    ComputeDayProjection(w.Today.CostUSD, now, cal.Baseline),
		Trend:         Trend(w.DayCosts, now, e.opts.TrendDays, cal.Baseline.PlanDailyUSD()),
		Resets:        ComputeResets(cal.Caps, now, anchor),
		Gate:          quota.Gate,
	}

	return snap, nil
}

// dedup drops records sharing a key, keeping the first occurrence. An
// overlapping fetch from rotated and live logs can report the same
// request twice; counting it twice would inflate every window.
func dedup(records []models.UsageRecord) []models.UsageRecord {
	seen := make(map[string]struct{}, len(records))
	out := records[:0]
	for _, r := range records {
		key := r.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}

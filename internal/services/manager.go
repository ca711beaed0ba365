// Package services provides service orchestration for the TUI.
package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gen2brain/beeep"

	"github.com/mblanc/ccmeter/internal/config"
	"github.com/mblanc/ccmeter/internal/db"
	"github.com/mblanc/ccmeter/internal/engine"
	"github.com/mblanc/ccmeter/internal/logger"
	"github.com/mblanc/ccmeter/internal/models"
	"github.com/mblanc/ccmeter/internal/services/calibration"
	"github.com/mblanc/ccmeter/internal/services/usage"
)

type (
	// SnapshotUpdatedEvent is emitted after a refresh produces a new
	// KPI snapshot.
	SnapshotUpdatedEvent struct {
		Snapshot *models.KPISnapshot
	}

	// CalibrationChangedEvent is emitted when the calibration file
	// changes, before the follow-up refresh lands.
	CalibrationChangedEvent struct{}

	// ErrorEvent is emitted when an error occurs in any service.
	ErrorEvent struct {
		Service string
		Error   error
	}
)

// ServiceEvent is the interface implemented by all service events.
type ServiceEvent interface {
	isServiceEvent()
}

func (SnapshotUpdatedEvent) isServiceEvent()    {}
func (CalibrationChangedEvent) isServiceEvent() {}
func (ErrorEvent) isServiceEvent()              {}

// Manager orchestrates the usage source, calibration store, database,
// and engine, and routes events to subscribers.
type Manager struct {
	mu          sync.RWMutex
	cfg         *config.Config
	usage       *usage.Service
	calibration *calibration.Service
	database    *db.DB
	engine      *engine.Engine

	stopChan     chan struct{}
	stopOnce     sync.Once
	subscribers  []chan<- ServiceEvent
	previousBand models.RiskBand
	notified     bool
}

// NewManager creates a new service manager.
func NewManager(cfg *config.Config) (*Manager, error) {
	m := &Manager{
		cfg:      cfg,
		stopChan: make(chan struct{}),
	}

	var err error
	m.database, err = db.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	m.usage, err = usage.New(cfg.ClaudeDir, m.database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize usage source: %w", err)
	}

	m.calibration, err = calibration.New(cfg.CalibrationPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize calibration store: %w", err)
	}

	m.engine = engine.New(m.usage, m.calibration, engine.Options{
		Cutoffs: engine.Cutoffs{
			Warn:    cfg.WarnCutoff,
			Abort:   cfg.AbortCutoff,
			Reserve: cfg.SchedReserve,
		},
		RunRateDays:  cfg.RunRateDays,
		LookbackDays: cfg.LookbackDays,
	})

	go m.routeEvents()
	go m.refreshLoop()

	return m, nil
}

// routeEvents routes events from individual services to subscribers.
// A source or calibration change triggers an early refresh alongside
// the fixed-interval loop.
func (m *Manager) routeEvents() {
	for {
		select {
		case event, ok := <-m.usage.Events():
			if !ok {
				return
			}
			switch event.Type {
			case usage.EventSourceChanged:
				go m.Refresh()
			case usage.EventError:
				m.broadcast(ErrorEvent{Service: "usage", Error: event.Error})
			}

		case event, ok := <-m.calibration.Events():
			if !ok {
				return
			}
			switch event.Type {
			case calibration.EventCalibrationChanged:
				m.broadcast(CalibrationChangedEvent{})
				go m.Refresh()
			case calibration.EventError:
				m.broadcast(ErrorEvent{Service: "calibration", Error: event.Error})
			}

		case <-m.stopChan:
			return
		}
	}
}

// refreshLoop drives the expensive cadence. The cheap cadence is the
// UI peeking the snapshot; nothing here runs per tick.
func (m *Manager) refreshLoop() {
	m.Refresh()

	interval := m.cfg.RefreshInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Refresh()
		case <-m.stopChan:
			return
		}
	}
}

// Refresh runs one engine refresh bounded by the source timeout.
// Concurrent calls coalesce inside the engine. On success the snapshot
// is broadcast, rollups and the history log are persisted, and band
// transitions are notified; on failure the previous snapshot stays
// current and only the error is broadcast.
func (m *Manager) Refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), m.sourceTimeout())
	defer cancel()

	snapshot, err := m.engine.Refresh(ctx)
	if err != nil {
		m.broadcast(ErrorEvent{Service: "engine", Error: err})
		return
	}

	m.persist(snapshot)
	m.checkNotifications(snapshot)
	m.broadcast(SnapshotUpdatedEvent{Snapshot: snapshot})
}

// persist writes the snapshot's history rows. Failures are logged, not
// broadcast; the snapshot itself is already good.
func (m *Manager) persist(snapshot *models.KPISnapshot) {
	cal, err := m.calibration.Load()
	planDaily := 0.0
	if err == nil {
		planDaily = cal.Baseline.PlanDailyUSD()
	}
	if err := m.usage.PersistRollups(m.usage.LastRecords(), planDaily); err != nil {
		logger.Warn("failed to persist daily rollups", "error", err)
	}

	if err := m.database.InsertSnapshotLog(snapshot); err != nil {
		logger.Warn("failed to log snapshot", "error", err)
	}
}

// checkNotifications sends a desktop notification when the binding cap
// crosses into the critical band, once per crossing.
func (m *Manager) checkNotifications(snapshot *models.KPISnapshot) {
	binding := snapshot.BindingCap()
	if binding == nil {
		return
	}

	m.mu.Lock()
	wasCritical := m.previousBand == models.BandCritical && m.notified
	m.previousBand = binding.Band
	isCritical := binding.Band == models.BandCritical
	if isCritical {
		m.notified = true
	} else {
		m.notified = false
	}
	m.mu.Unlock()

	if isCritical && !wasCritical {
		title := fmt.Sprintf("Quota critical: %s", binding.Cap.Name)
		body := fmt.Sprintf("Week usage at %.0f%% of the %s cap", binding.Utilization*100, binding.Cap.Name)
		if err := beeep.Notify(title, body, ""); err != nil {
			logger.Debug("notification failed", "error", err)
		}
	}
}

func (m *Manager) sourceTimeout() time.Duration {
	if m.cfg.SourceTimeout > 0 {
		return m.cfg.SourceTimeout
	}
	return 30 * time.Second
}

// Peek returns the latest snapshot without recomputation, nil before
// the first successful refresh.
func (m *Manager) Peek() *models.KPISnapshot {
	return m.engine.Peek()
}

// CalibrateFromPercent recalibrates the cap limits from observed
// console percentages, using the current week costs per cap.
func (m *Manager) CalibrateFromPercent(percents map[string]float64) (models.Calibration, error) {
	snapshot := m.engine.Peek()
	if snapshot == nil {
		ctx, cancel := context.WithTimeout(context.Background(), m.sourceTimeout())
		defer cancel()
		var err error
		snapshot, err = m.engine.Refresh(ctx)
		if err != nil {
			return models.Calibration{}, fmt.Errorf("cannot calibrate without a snapshot: %w", err)
		}
	}

	capCosts := make(map[string]float64, len(snapshot.Caps))
	for _, c := range snapshot.Caps {
		capCosts[c.Cap.Name] = c.CostUSD
	}

	return m.calibration.CalibrateFromPercent(percents, capCosts)
}

// WriteReport renders the current snapshot as a plain-text report into
// the outbox directory and returns the file path.
func (m *Manager) WriteReport() (string, error) {
	snapshot := m.engine.Peek()
	if snapshot == nil {
		return "", fmt.Errorf("no snapshot to report yet")
	}

	if err := os.MkdirAll(m.cfg.OutboxDir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create outbox directory: %w", err)
	}

	name := fmt.Sprintf("kpi-%s.txt", snapshot.GeneratedAt.Format("20060102-150405"))
	path := filepath.Join(m.cfg.OutboxDir, name)
	report := engine.NewReport(snapshot).Render()
	if err := os.WriteFile(path, []byte(report), 0o600); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}

	return path, nil
}

// History returns the most recent persisted snapshot headlines.
func (m *Manager) History(limit int) ([]db.SnapshotLogEntry, error) {
	return m.database.GetRecentSnapshotLogs(limit)
}

// DayRollups returns the persisted per-day usage totals since a date.
func (m *Manager) DayRollups(since time.Time) ([]models.DayRollup, error) {
	return m.database.GetDayRollups(since)
}

// broadcast sends an event to all subscribers.
func (m *Manager) broadcast(event ServiceEvent) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, sub := range m.subscribers {
		select {
		case sub <- event:
		default:
			// Subscriber channel full, skip
		}
	}
}

// Subscribe creates a channel for receiving service events.
// Returns a tea.Cmd that can be used in Bubble Tea's Init or Update.
func (m *Manager) Subscribe() (chan ServiceEvent, tea.Cmd) {
	ch := make(chan ServiceEvent, 50)

	m.mu.Lock()
	m.subscribers = append(m.subscribers, ch)
	m.mu.Unlock()

	return ch, waitForEvent(ch)
}

// waitForEvent returns a tea.Cmd that waits for the next event.
func waitForEvent(ch <-chan ServiceEvent) tea.Cmd {
	return func() tea.Msg {
		return <-ch
	}
}

// WaitForEvent returns a tea.Cmd for the next event on a channel.
func WaitForEvent(ch <-chan ServiceEvent) tea.Cmd {
	return waitForEvent(ch)
}

// Unsubscribe removes a subscriber channel.
func (m *Manager) Unsubscribe(ch chan ServiceEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, sub := range m.subscribers {
		if sub == ch {
			m.subscribers = append(m.subscribers[:i], m.subscribers[i+1:]...)
			close(ch)
			break
		}
	}
}

// Engine returns the KPI engine.
func (m *Manager) Engine() *engine.Engine {
	return m.engine
}

// Calibration returns the calibration service.
func (m *Manager) Calibration() *calibration.Service {
	return m.calibration
}

// Database returns the database instance for direct access.
func (m *Manager) Database() *db.DB {
	return m.database
}

// Close closes the manager and all its services.
func (m *Manager) Close() error {
	m.stopOnce.Do(func() { close(m.stopChan) })

	m.mu.Lock()
	for _, sub := range m.subscribers {
		close(sub)
	}
	m.subscribers = nil
	m.mu.Unlock()

	m.usage.Stop()
	m.calibration.Stop()

	if m.database != nil {
		return m.database.Close()
	}
	return nil
}

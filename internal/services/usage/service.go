// Package usage reads Claude Code session logs and turns them into
// priced usage records, with file watching and daily rollup
// persistence for days whose logs have rotated away.
package usage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mblanc/ccmeter/internal/db"
	"github.com/mblanc/ccmeter/internal/logger"
	"github.com/mblanc/ccmeter/internal/models"
)

// maxLineSize bounds a single JSONL line; session logs can carry large
// embedded tool output.
const maxLineSize = 10 * 1024 * 1024

// Event represents a usage service event.
type Event struct {
	Type  EventType
	Error error
}

// EventType defines the type of usage event.
type EventType int

const (
	// EventSourceChanged fires after session logs change on disk.
	EventSourceChanged EventType = iota
	EventError
)

// Service scans the Claude projects directory for session logs. It
// implements the record source the engine refreshes from.
type Service struct {
	mu          sync.RWMutex
	claudeDir   string
	database    *db.DB
	rates       models.RateTable
	lastRecords []models.UsageRecord

	watcher       *fsnotify.Watcher
	eventChan     chan Event
	stopChan      chan struct{}
	stopOnce      sync.Once
	debounceTimer *time.Timer
}

// New creates a usage service watching the given projects directory.
// The database is optional; without one, rotated-away days are simply
// absent from the lookback.
func New(claudeDir string, database *db.DB) (*Service, error) {
	if claudeDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve home directory: %w", err)
		}
		claudeDir = filepath.Join(home, ".claude", "projects")
	}

	s := &Service{
		claudeDir: claudeDir,
		database:  database,
		rates:     models.DefaultRateTable(),
		eventChan: make(chan Event, 100),
		stopChan:  make(chan struct{}),
	}

	if err := s.startWatcher(); err != nil {
		// A missing directory is not fatal; Records reports source
		// unavailability per call and the watcher stays off.
		logger.Warn("usage watcher disabled", "dir", claudeDir, "error", err)
	}

	return s, nil
}

// Events returns the event channel for subscribing to source changes.
func (s *Service) Events() <-chan Event {
	return s.eventChan
}

// Records scans every session log for assistant entries at or after
// since and prices them from the rate table. Days older than the oldest
// surviving log are filled from the persisted rollups. The context
// bounds the scan; an expired context or unreadable directory reports
// the source unavailable.
func (s *Service) Records(ctx context.Context, since time.Time) ([]models.UsageRecord, error) {
	s.mu.RLock()
	dir := s.claudeDir
	rates := s.rates
	s.mu.RUnlock()

	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrSourceUnavailable, err)
	}

	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable subtree, skip
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() || !strings.HasSuffix(path, ".jsonl") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		// A log untouched since before the lookback cannot contain
		// records inside it.
		if info.ModTime().Before(since) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: scanning %s: %v", models.ErrSourceUnavailable, dir, err)
	}

	var records []models.UsageRecord
	for _, path := range paths {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrSourceUnavailable, ctxErr)
		}
		records = append(records, s.scanFile(path, since, rates)...)
	}

	records = s.mergeRollups(records, since)

	sort.Slice(records, func(i, j int) bool {
		return records[i].Timestamp.Before(records[j].Timestamp)
	})

	s.mu.Lock()
	s.lastRecords = records
	s.mu.Unlock()

	return records, nil
}

// LastRecords returns the records the most recent scan produced. The
// caller must not mutate them.
func (s *Service) LastRecords() []models.UsageRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRecords
}

// jsonlEntry is one session log line. Only assistant entries carry
// usage; everything else is skipped.
type jsonlEntry struct {
	Type      string    `json:"type"`
	Timestamp string    `json:"timestamp"`
	RequestID string    `json:"requestId,omitempty"`
	Message   *jsonlMsg `json:"message,omitempty"`
}

type jsonlMsg struct {
	ID    string      `json:"id,omitempty"`
	Model string      `json:"model"`
	Usage *jsonlUsage `json:"usage,omitempty"`
}

type jsonlUsage struct {
	InputTokens              int64 `json:"input_tokens"`
	OutputTokens             int64 `json:"output_tokens"`
	CacheCreationInputTokens int64 `json:"cache_creation_input_tokens"`
	CacheReadInputTokens     int64 `json:"cache_read_input_tokens"`
}

// scanFile parses one session log, skipping malformed lines rather
// than failing the whole scan.
func (s *Service) scanFile(path string, since time.Time, rates models.RateTable) []models.UsageRecord {
	f, err := os.Open(path)
	if err != nil {
		logger.Debug("skipping unreadable session log", "path", path, "error", err)
		return nil
	}
	defer func() { _ = f.Close() }()

	var records []models.UsageRecord

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 256*1024), maxLineSize)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var entry jsonlEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			continue
		}
		if entry.Type != "assistant" || entry.Message == nil || entry.Message.Usage == nil {
			continue
		}

		ts, err := time.Parse(time.RFC3339, entry.Timestamp)
		if err != nil {
			continue
		}
		// Truncate on local wall-clock components; Truncate(time.Hour)
		// works in absolute time and misbuckets half-hour offset zones.
		l := ts.In(time.Local)
		ts = time.Date(l.Year(), l.Month(), l.Day(), l.Hour(), 0, 0, 0, time.Local)
		if ts.Before(since) {
			continue
		}

		model := normalizeModel(entry.Message.Model)
		u := entry.Message.Usage
		tokens := models.TokenCounts{
			Input:      u.InputTokens,
			Output:     u.OutputTokens,
			CacheWrite: u.CacheCreationInputTokens,
			CacheRead:  u.CacheReadInputTokens,
		}

		requestID := entry.RequestID
		if requestID == "" {
			requestID = entry.Message.ID
		}

		records = append(records, models.UsageRecord{
			Timestamp: ts,
			Model:     model,
			RequestID: requestID,
			Tokens:    tokens,
			CostUSD:   rates.Cost(model, tokens),
		})
	}
	if err := scanner.Err(); err != nil {
		logger.Debug("session log scan aborted", "path", path, "error", err)
	}

	return records
}

// normalizeModel gives every model identifier the claude- prefix so
// cap prefix matching sees a uniform namespace.
func normalizeModel(model string) string {
	model = strings.TrimSpace(model)
	if model == "" {
		return "unknown"
	}
	if !strings.HasPrefix(model, "claude-") {
		return "claude-" + model
	}
	return model
}

// mergeRollups fills days the surviving logs no longer cover from the
// persisted daily totals. A synthesized record carries no model, so it
// counts toward the all-models cap only; prefix caps cannot be
// reconstructed from a mixed-model day total.
func (s *Service) mergeRollups(records []models.UsageRecord, since time.Time) []models.UsageRecord {
	if s.database == nil {
		return records
	}

	covered := make(map[string]struct{})
	for _, r := range records {
		covered[r.Timestamp.Format("2006-01-02")] = struct{}{}
	}

	rollups, err := s.database.GetDayRollups(since)
	if err != nil {
		logger.Warn("daily rollups unavailable", "error", err)
		return records
	}

	for _, r := range rollups {
		if _, ok := covered[r.Date]; ok {
			continue
		}
		day, err := time.ParseInLocation("2006-01-02", r.Date, time.Local)
		if err != nil {
			continue
		}
		records = append(records, models.UsageRecord{
			Timestamp: day.Add(12 * time.Hour),
			RequestID: "rollup:" + r.Date,
			Tokens:    r.Tokens,
			CostUSD:   r.CostUSD,
		})
	}

	return records
}

// PersistRollups writes per-day totals for every complete day in the
// records, so the history survives session log rotation. Today is
// included; its rollup converges as the day fills in.
func (s *Service) PersistRollups(records []models.UsageRecord, planDailyUSD float64) error {
	if s.database == nil {
		return nil
	}

	type dayTotal struct {
		cost   float64
		tokens models.TokenCounts
		models map[string]struct{}
	}
	days := make(map[string]*dayTotal)
	for _, r := range records {
		if strings.HasPrefix(r.RequestID, "rollup:") {
			continue // already persisted, do not round-trip
		}
		date := r.Timestamp.Format("2006-01-02")
		d := days[date]
		if d == nil {
			d = &dayTotal{models: make(map[string]struct{})}
			days[date] = d
		}
		d.cost += r.CostUSD
		d.tokens.Add(r.Tokens)
		if r.Model != "" {
			d.models[r.Model] = struct{}{}
		}
	}

	for date, d := range days {
		names := make([]string, 0, len(d.models))
		for m := range d.models {
			names = append(names, m)
		}
		sort.Strings(names)

		ratio := 0.0
		if planDailyUSD > 0 {
			ratio = d.cost / planDailyUSD
		}

		rollup := &models.DayRollup{
			Date:       date,
			CostUSD:    d.cost,
			Tokens:     d.tokens,
			Models:     names,
			Ratio:      ratio,
			RecordedAt: time.Now(),
		}
		if err := s.database.UpsertDayRollup(rollup); err != nil {
			return fmt.Errorf("failed to persist rollup for %s: %w", date, err)
		}
	}

	return nil
}

// startWatcher starts the file system watcher over the projects tree.
func (s *Service) startWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	if err := watcher.Add(s.claudeDir); err != nil {
		_ = watcher.Close()
		return err
	}
	// Session logs live one level down, per project.
	entries, err := os.ReadDir(s.claudeDir)
	if err == nil {
		for _, e := range entries {
			if e.IsDir() {
				_ = watcher.Add(filepath.Join(s.claudeDir, e.Name()))
			}
		}
	}

	s.watcher = watcher
	go s.watchLoop()
	return nil
}

// watchLoop handles file system events with debouncing. Session logs
// take many appends per minute while a conversation runs; one changed
// event per burst is enough.
func (s *Service) watchLoop() {
	const debounceInterval = 500 * time.Millisecond

	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}

			if event.Op&fsnotify.Create != 0 {
				// A new project directory needs its own watch.
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = s.watcher.Add(event.Name)
					continue
				}
			}

			if !strings.HasSuffix(event.Name, ".jsonl") {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				s.mu.Lock()
				if s.debounceTimer != nil {
					s.debounceTimer.Stop()
				}
				s.debounceTimer = time.AfterFunc(debounceInterval, func() {
					s.sendEvent(Event{Type: EventSourceChanged})
				})
				s.mu.Unlock()
			}

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.sendEvent(Event{Type: EventError, Error: err})

		case <-s.stopChan:
			return
		}
	}
}

func (s *Service) sendEvent(event Event) {
	select {
	case s.eventChan <- event:
	default:
		logger.Warn("usage event channel full, dropping event", "type", event.Type)
	}
}

// Stop shuts down the watcher and event delivery.
func (s *Service) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
		if s.watcher != nil {
			_ = s.watcher.Close()
		}
		s.mu.Lock()
		if s.debounceTimer != nil {
			s.debounceTimer.Stop()
		}
		s.mu.Unlock()
	})
}

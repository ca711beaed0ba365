// Package calibration persists the cap set and baseline as a JSON
// file, with file watching so an external edit takes effect on the
// next refresh.
package calibration

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mblanc/ccmeter/internal/logger"
	"github.com/mblanc/ccmeter/internal/models"
)

// Event represents a calibration service event.
type Event struct {
	Type  EventType
	Error error
}

// EventType defines the type of calibration event.
type EventType int

const (
	EventCalibrationChanged EventType = iota
	EventError
)

// Service owns the calibration file. Reads hand out a copy of the
// in-memory calibration; writes validate, persist atomically, then
// swap the in-memory copy, so a rejected write leaves the prior
// calibration in effect.
type Service struct {
	mu          sync.RWMutex
	calibration models.Calibration
	filePath    string

	watcher       *fsnotify.Watcher
	eventChan     chan Event
	stopChan      chan struct{}
	stopOnce      sync.Once
	debounceTimer *time.Timer
}

// New creates a calibration service. A missing file is not an error:
// the built-in defaults apply and every read reports uncalibrated
// until the first save.
func New(filePath string) (*Service, error) {
	s := &Service{
		calibration: models.DefaultCalibration(),
		filePath:    filePath,
		eventChan:   make(chan Event, 100),
		stopChan:    make(chan struct{}),
	}

	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := s.loadFromFile(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load calibration: %w", err)
		}
	}

	if err := s.startWatcher(); err != nil {
		return nil, fmt.Errorf("failed to start file watcher: %w", err)
	}

	return s, nil
}

// Events returns the event channel for subscribing to calibration
// changes.
func (s *Service) Events() <-chan Event {
	return s.eventChan
}

// Load returns the current calibration. The engine calls this once per
// refresh and uses the copy unchanged for the whole computation.
func (s *Service) Load() (models.Calibration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cal := s.calibration
	cal.Caps = make(models.CapSet, len(s.calibration.Caps))
	copy(cal.Caps, s.calibration.Caps)
	return cal, nil
}

// Save validates and persists a new calibration. An invalid one is
// rejected before anything is written and the prior calibration stays
// in effect.
func (s *Service) Save(cal models.Calibration) error {
	if err := cal.Validate(); err != nil {
		return fmt.Errorf("%w: %v", models.ErrInvalidCalibration, err)
	}

	cal.Calibrated = true
	if cal.CalibratedAt.IsZero() {
		cal.CalibratedAt = time.Now()
	}

	if err := s.writeFile(cal); err != nil {
		return err
	}

	s.mu.Lock()
	s.calibration = cal
	s.mu.Unlock()

	s.sendEvent(Event{Type: EventCalibrationChanged})
	return nil
}

// CalibrateFromPercent derives new weekly limits from observed console
// percentages: if the week cost $C shows as P% of a cap, the cap is
// C/(P/100). Caps without an observation keep their current limit.
func (s *Service) CalibrateFromPercent(percents, capCosts map[string]float64) (models.Calibration, error) {
	s.mu.RLock()
	cal := s.calibration
	cal.Caps = make(models.CapSet, len(s.calibration.Caps))
	copy(cal.Caps, s.calibration.Caps)
	s.mu.RUnlock()

	for i, cap := range cal.Caps {
		pct, ok := percents[cap.Name]
		if !ok {
			continue
		}
		cost := capCosts[cap.Name]
		if pct <= 0 || cost <= 0 {
			return models.Calibration{}, fmt.Errorf("%w: cap %q needs a positive percentage and week cost, got %.2f%% of $%.2f",
				models.ErrInvalidCalibration, cap.Name, pct, cost)
		}
		cal.Caps[i].WeeklyLimitUSD = cost / (pct / 100)
	}

	cal.CalibratedAt = time.Now()
	if err := s.Save(cal); err != nil {
		return models.Calibration{}, err
	}
	return cal, nil
}

func (s *Service) loadFromFile() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}

	var cal models.Calibration
	if err := json.Unmarshal(data, &cal); err != nil {
		return fmt.Errorf("failed to parse calibration file: %w", err)
	}
	if err := cal.Validate(); err != nil {
		return fmt.Errorf("%w: %v", models.ErrInvalidCalibration, err)
	}
	cal.Calibrated = true

	s.mu.Lock()
	s.calibration = cal
	s.mu.Unlock()
	return nil
}

// writeFile persists atomically via a temp file and rename, so a crash
// mid-write never leaves a truncated calibration behind.
func (s *Service) writeFile(cal models.Calibration) error {
	data, err := json.MarshalIndent(cal, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal calibration: %w", err)
	}

	tmpFile := s.filePath + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0o600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmpFile, s.filePath); err != nil {
		if removeErr := os.Remove(tmpFile); removeErr != nil {
			logger.Error("failed to remove temp file", "error", removeErr)
		}
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// startWatcher starts the file system watcher.
func (s *Service) startWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	s.watcher = watcher

	// Watch the directory to catch file creation and atomic renames.
	dir := filepath.Dir(s.filePath)
	if err := watcher.Add(dir); err != nil {
		if closeErr := watcher.Close(); closeErr != nil {
			logger.Error("failed to close watcher", "error", closeErr)
		}
		return err
	}

	go s.watchLoop()
	return nil
}

// watchLoop handles file system events with debouncing.
func (s *Service) watchLoop() {
	const debounceInterval = 100 * time.Millisecond

	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}

			if filepath.Base(event.Name) != filepath.Base(s.filePath) {
				continue
			}

			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				s.mu.Lock()
				if s.debounceTimer != nil {
					s.debounceTimer.Stop()
				}
				s.debounceTimer = time.AfterFunc(debounceInterval, func() {
					s.handleFileChange()
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

// handleFileChange reloads the calibration after an external edit. A
// file that no longer parses or validates keeps the prior calibration
// in memory.
func (s *Service) handleFileChange() {
	if err := s.loadFromFile(); err != nil {
		if os.IsNotExist(err) {
			return // our own atomic rename mid-flight
		}
		s.sendEvent(Event{Type: EventError, Error: err})
		return
	}
	s.sendEvent(Event{Type: EventCalibrationChanged})
}

func (s *Service) sendEvent(event Event) {
	select {
	case s.eventChan <- event:
	default:
		logger.Warn("calibration event channel full, dropping event", "type", event.Type)
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

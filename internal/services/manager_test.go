package services

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/mblanc/ccmeter/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	tmpDir := t.TempDir()
	return &config.Config{
		DatabasePath:    filepath.Join(tmpDir, "test.db"),
		CalibrationPath: filepath.Join(tmpDir, "calibration.json"),
		ClaudeDir:       t.TempDir(),
		OutboxDir:       filepath.Join(tmpDir, "outbox"),
		RefreshInterval: time.Minute,
		SourceTimeout:   5 * time.Second,
		WarnCutoff:      0.80,
		AbortCutoff:     0.90,
		SchedReserve:    0.05,
		RunRateDays:     3,
		LookbackDays:    30,
	}
}

func TestNewManager(t *testing.T) {
	mgr, err := NewManager(testConfig(t))
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	defer mgr.Close()

	if mgr.Engine() == nil {
		t.Error("Engine should be initialized")
	}
	if mgr.Calibration() == nil {
		t.Error("Calibration service should be initialized")
	}
	if mgr.Database() == nil {
		t.Error("Database should be initialized")
	}
}

func TestManager_SnapshotEvent(t *testing.T) {
	mgr, err := NewManager(testConfig(t))
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	defer mgr.Close()

	ch, _ := mgr.Subscribe()
	defer mgr.Unsubscribe(ch)

	deadline := time.After(5 * time.Second)
	for {
		select {
		case event := <-ch:
			if _, ok := event.(SnapshotUpdatedEvent); ok {
				if mgr.Peek() == nil {
					t.Error("Peek should return a snapshot after the update event")
				}
				return
			}
		case <-deadline:
			t.Fatal("Timed out waiting for a snapshot event")
		}
	}
}

func TestManager_PeekBeforeFirstRefresh(t *testing.T) {
	// Peek never blocks; at worst it reports no snapshot yet.
	mgr, err := NewManager(testConfig(t))
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	defer mgr.Close()

	_ = mgr.Peek()
}

func TestManager_WriteReport(t *testing.T) {
	mgr, err := NewManager(testConfig(t))
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	defer mgr.Close()

	// Wait for the first refresh so there is something to report.
	ch, _ := mgr.Subscribe()
	defer mgr.Unsubscribe(ch)
	deadline := time.After(5 * time.Second)
	for mgr.Peek() == nil {
		select {
		case <-ch:
		case <-deadline:
			t.Fatal("Timed out waiting for the first snapshot")
		}
	}

	path, err := mgr.WriteReport()
	if err != nil {
		t.Fatalf("WriteReport failed: %v", err)
	}
	if filepath.Ext(path) != ".txt" {
		t.Errorf("Unexpected report path %q", path)
	}
}

func TestManager_Unsubscribe(t *testing.T) {
	mgr, err := NewManager(testConfig(t))
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	defer mgr.Close()

	ch, _ := mgr.Subscribe()
	mgr.Unsubscribe(ch)

	// The channel is closed once unsubscribed; buffered events drain
	// first.
	timeout := time.After(time.Second)
	for {
		select {
		case _, open := <-ch:
			if !open {
				return
			}
		case <-timeout:
			t.Fatal("Unsubscribed channel was not closed")
		}
	}
}

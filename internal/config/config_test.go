package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CCMETER_DATA_DIR", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.RefreshInterval != 60*time.Second {
		t.Errorf("RefreshInterval = %v, want 60s", cfg.RefreshInterval)
	}
	if cfg.TickInterval != time.Second {
		t.Errorf("TickInterval = %v, want 1s", cfg.TickInterval)
	}
	if cfg.WarnCutoff != 0.80 || cfg.AbortCutoff != 0.90 {
		t.Errorf("cutoffs = %v/%v, want 0.80/0.90", cfg.WarnCutoff, cfg.AbortCutoff)
	}
	if cfg.RunRateDays != 3 {
		t.Errorf("RunRateDays = %d, want 3", cfg.RunRateDays)
	}
	if cfg.DatabasePath == "" || cfg.CalibrationPath == "" {
		t.Error("expected non-empty storage paths")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CCMETER_DATA_DIR", t.TempDir())
	t.Setenv("CCMETER_REFRESH_INTERVAL", "30s")
	t.Setenv("CCMETER_WARN_CUTOFF", "0.75")
	t.Setenv("CCMETER_RUNRATE_DAYS", "5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.RefreshInterval != 30*time.Second {
		t.Errorf("RefreshInterval = %v, want 30s", cfg.RefreshInterval)
	}
	if cfg.WarnCutoff != 0.75 {
		t.Errorf("WarnCutoff = %v, want 0.75", cfg.WarnCutoff)
	}
	if cfg.RunRateDays != 5 {
		t.Errorf("RunRateDays = %d, want 5", cfg.RunRateDays)
	}
}

func TestGetEnvDurationBareSeconds(t *testing.T) {
	t.Setenv("CCMETER_TEST_DUR", "45")
	if got := getEnvDuration("CCMETER_TEST_DUR", time.Second); got != 45*time.Second {
		t.Errorf("getEnvDuration bare seconds = %v, want 45s", got)
	}
}

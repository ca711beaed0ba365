// Package config contains everything related to configuration
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration. Every engine tunable lives
// here and is passed into constructors; nothing reads the environment
// mid-computation, so multiple engine instances never interfere.
type Config struct {
	DatabasePath    string
	CalibrationPath string
	ClaudeDir       string
	OutboxDir       string

	RefreshInterval time.Duration // expensive re-aggregation cadence
	TickInterval    time.Duration // cheap clock/peek cadence
	SourceTimeout   time.Duration // bound on one usage-source scan

	// Gate cutoffs, as fractions of the binding cap.
	WarnCutoff  float64
	AbortCutoff float64
	// SchedReserve is the cap fraction held back for scheduled jobs when
	// computing sprint room.
	SchedReserve float64

	// RunRateDays is the trailing window for the week projection's
	// cost-per-active-day run-rate.
	RunRateDays int
	// LookbackDays bounds how far back the source is asked for records.
	LookbackDays int
}

// Default values
const (
	defaultRefreshInterval = 60 * time.Second
	defaultTickInterval    = time.Second
	defaultSourceTimeout   = 30 * time.Second

	defaultWarnCutoff   = 0.80
	defaultAbortCutoff  = 0.90
	defaultSchedReserve = 0.05

	defaultRunRateDays  = 3
	defaultLookbackDays = 30
)

// Load reads configuration from .env files and environment variables.
func Load() (*Config, error) {
	for _, path := range getEnvPaths() {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			break
		}
	}

	dataDir := getEnvString("CCMETER_DATA_DIR", defaultDataDir())

	cfg := &Config{
		DatabasePath:    getEnvString("CCMETER_DATABASE_PATH", filepath.Join(dataDir, "usage.db")),
		CalibrationPath: getEnvString("CCMETER_CALIBRATION_PATH", filepath.Join(dataDir, "calibration.json")),
		ClaudeDir:       getEnvString("CCMETER_CLAUDE_DIR", defaultClaudeDir()),
		OutboxDir:       getEnvString("CCMETER_OUTBOX_DIR", filepath.Join(dataDir, "reports")),
		RefreshInterval: getEnvDuration("CCMETER_REFRESH_INTERVAL", defaultRefreshInterval),
		TickInterval:    getEnvDuration("CCMETER_TICK_INTERVAL", defaultTickInterval),
		SourceTimeout:   getEnvDuration("CCMETER_SOURCE_TIMEOUT", defaultSourceTimeout),
		WarnCutoff:      getEnvFloat("CCMETER_WARN_CUTOFF", defaultWarnCutoff),
		AbortCutoff:     getEnvFloat("CCMETER_ABORT_CUTOFF", defaultAbortCutoff),
		SchedReserve:    getEnvFloat("CCMETER_SCHED_RESERVE", defaultSchedReserve),
		RunRateDays:     getEnvInt("CCMETER_RUNRATE_DAYS", defaultRunRateDays),
		LookbackDays:    getEnvInt("CCMETER_LOOKBACK_DAYS", defaultLookbackDays),
	}

	if err := ensureDir(filepath.Dir(cfg.DatabasePath)); err != nil {
		return nil, err
	}
	if err := ensureDir(filepath.Dir(cfg.CalibrationPath)); err != nil {
		return nil, err
	}

	return cfg, nil
}

// getEnvPaths returns a list of paths to check for .env files.
func getEnvPaths() []string {
	var paths []string

	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".env"))
	}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".config", "ccmeter", ".env"),
			filepath.Join(home, ".ccmeter", ".env"),
		)
	}

	return paths
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ccmeter"
	}
	return filepath.Join(home, ".config", "ccmeter")
}

// defaultClaudeDir is where Claude Code writes per-project session logs.
func defaultClaudeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".claude", "projects")
}

// getEnvString retrieves a string environment variable or returns the default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvDuration retrieves a duration environment variable or returns the default.
// Accepts values like "30s", "1m", "500ms", or bare seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// ensureDir creates a directory and all parent directories if they don't exist.
func ensureDir(path string) error {
	if path == "" || path == "." {
		return nil
	}
	return os.MkdirAll(path, 0o750)
}

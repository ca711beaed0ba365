// Package db manages the database connection
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	// Import modernc.org/sqlite as a blank import to register the driver
	_ "modernc.org/sqlite"
)

// DB wraps the SQL database connection with application-specific methods.
type DB struct {
	*sql.DB
	path string
}

// New creates a new database connection and initializes the schema.
func New(path string) (*DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := sqlDB.PingContext(context.Background()); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db := &DB{
		DB:   sqlDB,
		path: path,
	}

	if err := db.configure(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}

	if err := db.createSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return db, nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// configure sets up database pragmas for optimal performance.
func (db *DB) configure() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA cache_size=-64000", // 64MB cache
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA temp_store=MEMORY",
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(context.Background(), pragma); err != nil {
			return fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}

	return nil
}

func (db *DB) createSchema() error {
	if err := db.createUsageDailyTable(); err != nil {
		return err
	}
	return db.createSnapshotLogTable()
}

func (db *DB) createUsageDailyTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS usage_daily (
		date TEXT PRIMARY KEY,
		cost_usd REAL NOT NULL DEFAULT 0,
		input_tokens INTEGER NOT NULL DEFAULT 0,
		output_tokens INTEGER NOT NULL DEFAULT 0,
		cache_write_tokens INTEGER NOT NULL DEFAULT 0,
		cache_read_tokens INTEGER NOT NULL DEFAULT 0,
		models TEXT NOT NULL DEFAULT '',
		ratio REAL NOT NULL DEFAULT 0,
		recorded_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_usage_daily_date ON usage_daily(date);
	`
	_, err := db.ExecContext(context.Background(), query)
	return err
}

func (db *DB) createSnapshotLogTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS snapshot_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		generated_at DATETIME NOT NULL,
		week_start DATETIME NOT NULL,
		week_cost_usd REAL NOT NULL DEFAULT 0,
		binding_cap TEXT NOT NULL DEFAULT '',
		binding_pct REAL NOT NULL DEFAULT 0,
		spend_pct REAL NOT NULL DEFAULT 0,
		today_cost_usd REAL NOT NULL DEFAULT 0,
		today_ratio REAL NOT NULL DEFAULT 0,
		projected_usd REAL NOT NULL DEFAULT 0,
		gate TEXT NOT NULL DEFAULT 'PERMIT'
	);
	CREATE INDEX IF NOT EXISTS idx_snapshot_log_generated ON snapshot_log(generated_at);
	`
	_, err := db.ExecContext(context.Background(), query)
	return err
}

// Close closes the database connection gracefully.
func (db *DB) Close() error {
	// Checkpoint WAL before closing
	_, _ = db.ExecContext(context.Background(), "PRAGMA wal_checkpoint(TRUNCATE)")
	return db.DB.Close()
}

// Vacuum performs database maintenance to reclaim space.
func (db *DB) Vacuum() error {
	_, err := db.ExecContext(context.Background(), "VACUUM")
	return err
}

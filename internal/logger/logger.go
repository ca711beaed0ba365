// Package logger provides a thin wrapper around slog for structured logging.
//
// While the dashboard runs it owns the terminal, so logs are redirected to
// a file under the data directory via Init. Before Init (and in one-shot
// CLI modes) they go to stderr.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger is the global logger instance.
var Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: levelFromEnv()}))

// Init redirects logging to the given file, creating it if needed. The
// returned closer flushes the file on shutdown. On failure the current
// destination is kept and the error returned.
func Init(path string) (io.Closer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	Logger = slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: levelFromEnv()}))
	return f, nil
}

// levelFromEnv reads CCMETER_LOG_LEVEL, defaulting to info.
func levelFromEnv() slog.Level {
	switch strings.ToLower(os.Getenv("CCMETER_LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Error logs an error message.
func Error(msg string, args ...any) {
	Logger.Error(msg, args...)
}

// Info logs an informational message.
func Info(msg string, args ...any) {
	Logger.Info(msg, args...)
}

// Warn logs a warning message.
func Warn(msg string, args ...any) {
	Logger.Warn(msg, args...)
}

// Debug logs a debug message.
func Debug(msg string, args ...any) {
	Logger.Debug(msg, args...)
}

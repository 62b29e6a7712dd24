// Package logger provides structured logging configuration using log/slog
// rendered by charmbracelet/log.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// Config holds logger configuration.
type Config struct {
	Level  slog.Level
	Format string // "text", "json" or "logfmt"
	Output io.Writer
}

// NewLogger creates a configured slog.Logger.
// The charm logger implements slog.Handler, so services keep depending on slog only.
func NewLogger(cfg Config) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	handler := log.NewWithOptions(out, log.Options{
		Level:           log.Level(cfg.Level),
		ReportTimestamp: true,
		Prefix:          "espot",
		Formatter:       formatter(cfg.Format),
	})

	return slog.New(handler)
}

func formatter(format string) log.Formatter {
	switch strings.ToLower(format) {
	case "json":
		return log.JSONFormatter
	case "logfmt":
		return log.LogfmtFormatter
	default:
		return log.TextFormatter
	}
}

// ParseLevel maps DEBUG, INFO, WARN, WARNING and ERROR (any case) to a level.
// Unknown values yield fallback.
func ParseLevel(s string, fallback slog.Level) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return fallback
	}
}

// DefaultConfig returns the default logger configuration.
// Parses the ESPOT_LOG_LEVEL environment variable to set the log level.
// Default: INFO
func DefaultConfig() Config {
	return Config{
		Level:  ParseLevel(os.Getenv("ESPOT_LOG_LEVEL"), slog.LevelInfo),
		Format: "text",
	}
}

package logger

import (
	"io"
	"log/slog"
	"os"
)

// NewTestLogger creates a logger for tests that writes to stdout.
// WARN by default; TEST_LOG_LEVEL picks a level and TEST_DEBUG is shorthand for DEBUG.
func NewTestLogger() *slog.Logger {
	return NewLogger(Config{Level: testLevel(), Format: "text", Output: os.Stdout})
}

func testLevel() slog.Level {
	if v := os.Getenv("TEST_LOG_LEVEL"); v != "" {
		return ParseLevel(v, slog.LevelWarn)
	}
	if os.Getenv("TEST_DEBUG") != "" {
		return slog.LevelDebug
	}
	return slog.LevelWarn
}

// NewSilentLogger discards everything.
func NewSilentLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// NewCaptureLogger logs everything from DEBUG up to w as logfmt, for tests
// that assert on what was logged.
func NewCaptureLogger(w io.Writer) *slog.Logger {
	return NewLogger(Config{Level: slog.LevelDebug, Format: "logfmt", Output: w})
}

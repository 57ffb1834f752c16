// Package logger provides structured logging using log/slog.
// It sets up a JSON handler with service-level context and tags every record
// of a run with a run ID for correlation across stages.
package logger

import (
	"fmt"
	"log/slog"
	"os"
	"time"
)

// Init creates and returns a structured logger for the given service.
// The logger outputs JSON to stdout with the service name embedded.
func Init(service string, level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})

	logger := slog.New(handler).With(
		slog.String("service", service),
	)

	// Set as default so log/slog.Info() etc. also use structured output
	slog.SetDefault(logger)

	return logger
}

// NewRunID creates a run identifier from the start timestamp,
// formatted as "run-{unixNano}".
func NewRunID(start time.Time) string {
	return fmt.Sprintf("run-%d", start.UnixNano())
}

// WithRun returns a child logger tagged with the run ID.
func WithRun(log *slog.Logger, runID string) *slog.Logger {
	return log.With(slog.String("run_id", runID))
}

// Package observability provides structured logging, metrics and tracing
// for carving runs.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import "log/slog"

// EnrichLogger adds run and session context to a logger.
//
// Example:
//
//	enriched := EnrichLogger(logger, "run-123", "jpg")
//	enriched.Info("scanning") // includes run_id and type
func EnrichLogger(logger *slog.Logger, runID, fileType string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("run_id", runID),
		slog.String("type", fileType),
	)
}

// LogRunStart logs the start of a recovery run.
func LogRunStart(logger *slog.Logger, runID, source string, types []string) {
	if logger == nil {
		return
	}
	logger.Info("recovery run starting",
		slog.String("run_id", runID),
		slog.String("source", source),
		slog.Any("types", types),
	)
}

// LogRunComplete logs the end of a recovery run.
func LogRunComplete(logger *slog.Logger, runID, status string, durationMs float64, artifacts int) {
	if logger == nil {
		return
	}
	logger.Info("recovery run completed",
		slog.String("run_id", runID),
		slog.String("status", status),
		slog.Float64("duration_ms", durationMs),
		slog.Int("artifacts", artifacts),
	)
}

// LogRunError logs a run rejected before any session started.
func LogRunError(logger *slog.Logger, runID string, err error) {
	if logger == nil {
		return
	}
	logger.Error("recovery run rejected",
		slog.String("run_id", runID),
		slog.String("error", err.Error()),
	)
}

// LogSessionStart logs a session acquiring its worker slot.
func LogSessionStart(logger *slog.Logger, fileType string) {
	if logger == nil {
		return
	}
	logger.Debug("session starting",
		slog.String("type", fileType),
	)
}

// LogSessionComplete logs a session reaching a terminal state.
func LogSessionComplete(logger *slog.Logger, fileType, state string, artifacts int, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("session completed",
		slog.String("type", fileType),
		slog.String("state", state),
		slog.Int("artifacts", artifacts),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogSessionError logs a fatal session error. Sibling sessions keep running.
func LogSessionError(logger *slog.Logger, fileType string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("session failed",
		slog.String("type", fileType),
		slog.String("error", err.Error()),
	)
}

// LogArtifact logs one written artifact.
func LogArtifact(logger *slog.Logger, fileType string, sequence int, offset, length int64, complete bool) {
	if logger == nil {
		return
	}
	logger.Debug("artifact written",
		slog.String("type", fileType),
		slog.Int("sequence", sequence),
		slog.Int64("offset", offset),
		slog.Int64("length", length),
		slog.Bool("complete", complete),
	)
}

package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// NoopMetrics is a MetricsRecorder that does nothing.
type NoopMetrics struct{}

// Compile-time interface check.
var _ MetricsRecorder = NoopMetrics{}

// RecordSession does nothing.
func (NoopMetrics) RecordSession(_ context.Context, _, _ string, _ time.Duration, _ error) {}

// RecordArtifact does nothing.
func (NoopMetrics) RecordArtifact(_ context.Context, _ string, _ int64, _ bool) {}

// RecordRun does nothing.
func (NoopMetrics) RecordRun(_ context.Context, _ string, _ time.Duration) {}

// NoopSpanManager is a SpanManager that does nothing.
type NoopSpanManager struct{}

// Compile-time interface check.
var _ SpanManager = NoopSpanManager{}

var noopSpan = noop.Span{}

// StartRunSpan returns the context unchanged and a no-op span.
func (NoopSpanManager) StartRunSpan(ctx context.Context, _, _ string, _ []string) (context.Context, trace.Span) {
	return ctx, noopSpan
}

// EndRunSpan does nothing.
func (NoopSpanManager) EndRunSpan(trace.Span, string, int, error) {}

// StartSessionSpan returns the context unchanged and a no-op span.
func (NoopSpanManager) StartSessionSpan(ctx context.Context, _ string) (context.Context, trace.Span) {
	return ctx, noopSpan
}

// EndSessionSpan does nothing.
func (NoopSpanManager) EndSessionSpan(trace.Span, SessionOutcome) {}

// AddArtifactEvent does nothing.
func (NoopSpanManager) AddArtifactEvent(context.Context, int, int64, int64, bool) {}

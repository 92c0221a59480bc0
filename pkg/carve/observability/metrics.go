package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records carving metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordSession records a finished session with its final state.
	RecordSession(ctx context.Context, fileType, state string, duration time.Duration, err error)

	// RecordArtifact records one written artifact.
	RecordArtifact(ctx context.Context, fileType string, sizeBytes int64, complete bool)

	// RecordRun records a run completion.
	RecordRun(ctx context.Context, status string, duration time.Duration)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	sessionRuns    metric.Int64Counter
	sessionLatency metric.Float64Histogram
	sessionErrors  metric.Int64Counter
	artifacts      metric.Int64Counter
	artifactSize   metric.Int64Histogram
	runs           metric.Int64Counter
	runLatency     metric.Float64Histogram
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("sigcarve")

	sessionRuns, err := meter.Int64Counter("carve.session.runs",
		metric.WithDescription("Number of carving sessions"),
	)
	if err != nil {
		return nil, err
	}

	sessionLatency, err := meter.Float64Histogram("carve.session.latency_ms",
		metric.WithDescription("Session duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	sessionErrors, err := meter.Int64Counter("carve.session.errors",
		metric.WithDescription("Number of sessions stopped by a fatal error"),
	)
	if err != nil {
		return nil, err
	}

	artifacts, err := meter.Int64Counter("carve.artifacts",
		metric.WithDescription("Number of artifacts written"),
	)
	if err != nil {
		return nil, err
	}

	artifactSize, err := meter.Int64Histogram("carve.artifact.size_bytes",
		metric.WithDescription("Artifact size in bytes"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	runs, err := meter.Int64Counter("carve.run.runs",
		metric.WithDescription("Number of recovery runs"),
	)
	if err != nil {
		return nil, err
	}

	runLatency, err := meter.Float64Histogram("carve.run.latency_ms",
		metric.WithDescription("Run duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		sessionRuns:    sessionRuns,
		sessionLatency: sessionLatency,
		sessionErrors:  sessionErrors,
		artifacts:      artifacts,
		artifactSize:   artifactSize,
		runs:           runs,
		runLatency:     runLatency,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordSession records a finished session.
func (m *otelMetrics) RecordSession(ctx context.Context, fileType, state string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("type", fileType),
		attribute.String("state", state),
	}

	m.sessionRuns.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.sessionLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))

	if err != nil {
		m.sessionErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("type", fileType)))
	}
}

// RecordArtifact records one artifact.
func (m *otelMetrics) RecordArtifact(ctx context.Context, fileType string, sizeBytes int64, complete bool) {
	attrs := []attribute.KeyValue{
		attribute.String("type", fileType),
		attribute.Bool("complete", complete),
	}
	m.artifacts.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.artifactSize.Record(ctx, sizeBytes, metric.WithAttributes(attrs...))
}

// RecordRun records a run.
func (m *otelMetrics) RecordRun(ctx context.Context, status string, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("status", status),
	}
	m.runs.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.runLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}

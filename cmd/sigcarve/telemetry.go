package main

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// telemetry owns the SDK providers installed for --metrics and --tracing.
type telemetry struct {
	logger *slog.Logger
	reader *sdkmetric.ManualReader
	meters *sdkmetric.MeterProvider
	tracer *sdktrace.TracerProvider
}

// setupTelemetry installs global providers for the enabled signals.
func setupTelemetry(logger *slog.Logger, metrics, tracing bool) *telemetry {
	t := &telemetry{logger: logger}
	if metrics {
		t.reader = sdkmetric.NewManualReader()
		t.meters = sdkmetric.NewMeterProvider(sdkmetric.WithReader(t.reader))
		otel.SetMeterProvider(t.meters)
	}
	if tracing {
		t.tracer = sdktrace.NewTracerProvider(sdktrace.WithSyncer(&spanLogger{logger: logger}))
		otel.SetTracerProvider(t.tracer)
	}
	return t
}

// shutdown reports collected metrics and flushes the providers.
func (t *telemetry) shutdown(ctx context.Context) {
	if t.reader != nil {
		var rm metricdata.ResourceMetrics
		if err := t.reader.Collect(ctx, &rm); err != nil {
			t.logger.Warn("collect metrics", slog.String("error", err.Error()))
		} else {
			reportMetrics(t.logger, &rm)
		}
		if err := t.meters.Shutdown(ctx); err != nil {
			t.logger.Warn("shutdown meter provider", slog.String("error", err.Error()))
		}
	}
	if t.tracer != nil {
		if err := t.tracer.Shutdown(ctx); err != nil {
			t.logger.Warn("shutdown tracer provider", slog.String("error", err.Error()))
		}
	}
}

// reportMetrics logs one line per data point.
func reportMetrics(logger *slog.Logger, rm *metricdata.ResourceMetrics) {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					logger.Info("metric", slog.String("name", m.Name),
						slog.Int64("value", dp.Value), slog.Any("attributes", dp.Attributes.ToSlice()))
				}
			case metricdata.Histogram[float64]:
				for _, dp := range data.DataPoints {
					logger.Info("metric", slog.String("name", m.Name),
						slog.Uint64("count", dp.Count), slog.Float64("sum", dp.Sum),
						slog.Any("attributes", dp.Attributes.ToSlice()))
				}
			case metricdata.Histogram[int64]:
				for _, dp := range data.DataPoints {
					logger.Info("metric", slog.String("name", m.Name),
						slog.Uint64("count", dp.Count), slog.Int64("sum", dp.Sum),
						slog.Any("attributes", dp.Attributes.ToSlice()))
				}
			}
		}
	}
}

// spanLogger exports finished spans as log records.
type spanLogger struct {
	logger *slog.Logger
}

func (e *spanLogger) ExportSpans(_ context.Context, spans []sdktrace.ReadOnlySpan) error {
	for _, s := range spans {
		e.logger.Info("span",
			slog.String("name", s.Name()),
			slog.String("trace_id", s.SpanContext().TraceID().String()),
			slog.Int64("duration_ms", s.EndTime().Sub(s.StartTime()).Milliseconds()),
			slog.String("status", s.Status().Code.String()),
			slog.Int("events", len(s.Events())),
		)
	}
	return nil
}

func (e *spanLogger) Shutdown(context.Context) error {
	return nil
}

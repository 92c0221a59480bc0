package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracer uses the global OTel tracer provider.
var tracer = otel.Tracer("sigcarve")

// Span attribute keys.
const (
	AttrSource       = attribute.Key("carve.source")
	AttrRunID        = attribute.Key("carve.run_id")
	AttrTypes        = attribute.Key("carve.types")
	AttrFileType     = attribute.Key("carve.file_type")
	AttrStatus       = attribute.Key("carve.status")
	AttrState        = attribute.Key("carve.state")
	AttrArtifacts    = attribute.Key("carve.artifacts")
	AttrIncomplete   = attribute.Key("carve.incomplete")
	AttrBytesScanned = attribute.Key("carve.bytes_scanned")
	AttrSequence     = attribute.Key("artifact.sequence")
	AttrOffset       = attribute.Key("artifact.offset")
	AttrLength       = attribute.Key("artifact.length")
	AttrComplete     = attribute.Key("artifact.complete")
)

// SessionOutcome is what a finished session reports on its span.
type SessionOutcome struct {
	State        string
	Artifacts    int
	Incomplete   int
	BytesScanned int64
	Err          error
}

// SpanManager handles trace span lifecycle for a recovery run: one run span
// with a child span per session, and an event per recovered artifact.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartRunSpan starts the span covering every session of a run.
	StartRunSpan(ctx context.Context, source, runID string, types []string) (context.Context, trace.Span)

	// EndRunSpan records the run status and total artifact count, then ends span.
	EndRunSpan(span trace.Span, status string, artifacts int, err error)

	// StartSessionSpan starts a child span for one type-specific session.
	StartSessionSpan(ctx context.Context, fileType string) (context.Context, trace.Span)

	// EndSessionSpan records the session outcome, then ends span.
	EndSessionSpan(span trace.Span, outcome SessionOutcome)

	// AddArtifactEvent adds an "artifact" event to the span carried by ctx.
	AddArtifactEvent(ctx context.Context, sequence int, offset, length int64, complete bool)
}

type otelSpanManager struct{}

// NewSpanManager returns a SpanManager that uses the global OTel tracer provider.
func NewSpanManager() SpanManager {
	return &otelSpanManager{}
}

func (m *otelSpanManager) StartRunSpan(ctx context.Context, source, runID string, types []string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "carve.run",
		trace.WithAttributes(
			AttrSource.String(source),
			AttrRunID.String(runID),
			AttrTypes.StringSlice(types),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (m *otelSpanManager) EndRunSpan(span trace.Span, status string, artifacts int, err error) {
	if span == nil {
		return
	}
	span.SetAttributes(AttrStatus.String(status), AttrArtifacts.Int(artifacts))
	endSpan(span, err)
}

func (m *otelSpanManager) StartSessionSpan(ctx context.Context, fileType string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "carve.session."+fileType,
		trace.WithAttributes(AttrFileType.String(fileType)),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (m *otelSpanManager) EndSessionSpan(span trace.Span, outcome SessionOutcome) {
	if span == nil {
		return
	}
	span.SetAttributes(
		AttrState.String(outcome.State),
		AttrArtifacts.Int(outcome.Artifacts),
		AttrIncomplete.Int(outcome.Incomplete),
		AttrBytesScanned.Int64(outcome.BytesScanned),
	)
	endSpan(span, outcome.Err)
}

func (m *otelSpanManager) AddArtifactEvent(ctx context.Context, sequence int, offset, length int64, complete bool) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.AddEvent("artifact", trace.WithAttributes(
		AttrSequence.Int(sequence),
		AttrOffset.Int64(offset),
		AttrLength.Int64(length),
		AttrComplete.Bool(complete),
	))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

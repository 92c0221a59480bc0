package carve

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// LogSink receives events from every session of a run.
// Implementations must be safe for concurrent use: Log is called from
// whichever session goroutine produced the event.
type LogSink interface {
	Log(evt Event)
}

// SinkFunc adapts a function to LogSink. The function must be safe for
// concurrent calls.
type SinkFunc func(evt Event)

// Log calls f(evt).
func (f SinkFunc) Log(evt Event) {
	f(evt)
}

// DiscardSink drops every event.
var DiscardSink LogSink = SinkFunc(func(Event) {})

// LineSink writes one line per event to a writer, serializing writers.
type LineSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewLineSink returns a sink that prints Event.String lines to w.
func NewLineSink(w io.Writer) *LineSink {
	return &LineSink{w: w}
}

// Log writes the event line.
func (s *LineSink) Log(evt Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.w, evt.String())
}

// SlogSink forwards events to a structured logger.
type SlogSink struct {
	logger *slog.Logger
}

// NewSlogSink returns a sink logging through logger, or slog.Default() if nil.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger}
}

// Log records the event with its payload as attributes.
func (s *SlogSink) Log(evt Event) {
	attrs := []any{
		slog.String("event", string(evt.Kind)),
		slog.String("run_id", evt.RunID),
	}
	if evt.Type != "" {
		attrs = append(attrs, slog.String("type", evt.Type))
	}
	if a := evt.Artifact; a != nil {
		attrs = append(attrs,
			slog.Int("sequence", a.Sequence),
			slog.Int64("offset", a.SourceOffset),
			slog.Int64("length", a.Length),
			slog.Bool("complete", a.Complete),
			slog.String("path", a.Path),
		)
		if a.Cancelled {
			attrs = append(attrs, slog.Bool("cancelled", true))
		}
		if a.Digest != "" {
			attrs = append(attrs, slog.String("digest", a.Digest))
		}
	}
	if r := evt.Result; r != nil {
		attrs = append(attrs,
			slog.String("state", r.State.String()),
			slog.Int("artifacts", r.Artifacts),
			slog.Int("incomplete", r.Incomplete),
			slog.Int64("bytes_scanned", r.BytesScanned),
		)
	}
	if sum := evt.Summary; sum != nil {
		attrs = append(attrs,
			slog.String("status", string(sum.Status())),
			slog.Int("artifacts", sum.TotalArtifacts()),
			slog.Int("sessions", len(sum.Sessions)),
		)
	}

	switch evt.Kind {
	case EventSessionFailed:
		if evt.Err != nil {
			attrs = append(attrs, slog.String("error", evt.Err.Error()))
		}
		s.logger.Error("carve session failed", attrs...)
	case EventArtifact:
		s.logger.Info("artifact recovered", attrs...)
	case EventRunCompleted:
		s.logger.Info("carve run completed", attrs...)
	default:
		s.logger.Debug("carve session update", attrs...)
	}
}

type multiSink []LogSink

func (m multiSink) Log(evt Event) {
	for _, s := range m {
		s.Log(evt)
	}
}

// MultiSink fans each event out to every non-nil sink in order.
func MultiSink(sinks ...LogSink) LogSink {
	out := make(multiSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

// guardedSink drops events whose delivery panics.
type guardedSink struct {
	next LogSink
}

func (g guardedSink) Log(evt Event) {
	defer func() { _ = recover() }()
	g.next.Log(evt)
}

package carve

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"sync"
	"time"

	"github.com/randalmurphal/sigcarve/pkg/carve/observability"
)

// Request describes one recovery run.
type Request struct {
	// Types lists the type tags to carve. Duplicates are ignored.
	Types []string

	// Source is the raw byte source. Every session opens its own handle.
	Source Source

	// Destination is an existing, writable directory for artifacts.
	Destination string

	// ChunkSize is the read granularity; 0 uses the coordinator default.
	ChunkSize int

	// Token stops the run when set. Nil creates a private token that is
	// only set when ctx is done.
	Token *CancellationToken

	// Sink receives every event of the run. It must be safe for
	// concurrent use. Nil discards events.
	Sink LogSink
}

// Coordinator validates recovery requests and runs one session per
// requested type with bounded concurrency.
// A Coordinator is safe for concurrent use.
type Coordinator struct {
	catalog *Catalog
	opts    []Option
}

// NewCoordinator returns a coordinator over catalog.
// A nil catalog selects DefaultCatalog().
func NewCoordinator(catalog *Catalog, opts ...Option) *Coordinator {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Coordinator{catalog: catalog, opts: opts}
}

// Catalog returns the catalog requests are resolved against.
func (c *Coordinator) Catalog() *Catalog {
	return c.catalog
}

// Run validates req and, if it passes, carves every requested type.
//
// A non-nil error means the request was rejected before any session
// started; no output file exists in that case. Once sessions start, Run
// always returns a summary and a nil error: session failures are in
// RunSummary.Err and cancellation in RunSummary.Cancelled.
//
// Cancelling ctx sets the run's token; sessions stop at their next chunk
// boundary.
//
// Example:
//
//	summary, err := carve.NewCoordinator(nil).Run(ctx, carve.Request{
//	    Types:       []string{"jpg", "pdf"},
//	    Source:      carve.OpenSource("/dev/sdb", false),
//	    Destination: "./recovered",
//	})
func (c *Coordinator) Run(ctx context.Context, req Request) (summary *RunSummary, runErr error) {
	cfg := defaultRunConfig()
	for _, opt := range c.opts {
		opt(&cfg)
	}
	cfg.resolve()

	sigs, chunkSize, err := c.preflight(req, &cfg)
	if err != nil {
		observability.LogRunError(cfg.logger, cfg.runID, err)
		return nil, err
	}

	token := req.Token
	if token == nil {
		token = NewCancellationToken()
	}
	if ctx.Err() != nil {
		token.Cancel()
	}
	stop := context.AfterFunc(ctx, token.Cancel)
	defer stop()

	sink := req.Sink
	if sink == nil {
		sink = DiscardSink
	}

	startTime := time.Now()
	tags := make([]string, len(sigs))
	for i, sig := range sigs {
		tags[i] = sig.Type
	}
	observability.LogRunStart(cfg.logger, cfg.runID, req.Source.Name(), tags)

	runCtx, runSpan := cfg.spans.StartRunSpan(ctx, req.Source.Name(), cfg.runID, tags)
	defer func() {
		if summary == nil {
			cfg.spans.EndRunSpan(runSpan, string(RunFailed), 0, runErr)
			return
		}
		cfg.spans.EndRunSpan(runSpan, string(summary.Status()), summary.TotalArtifacts(), summary.Err())
	}()

	sem := make(chan struct{}, cfg.maxConcurrency)
	results := make(chan SessionResult, len(sigs))
	var wg sync.WaitGroup

	for _, sig := range sigs {
		wg.Add(1)
		go func(sig FileSignature) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()
			defer func() {
				if r := recover(); r != nil {
					results <- panicResult(sig.Type, r)
				}
			}()

			results <- c.runSession(runCtx, sig, req.Source, req.Destination, chunkSize, token, sink, &cfg)
		}(sig)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	summary = &RunSummary{
		RunID:    cfg.runID,
		Source:   req.Source.Name(),
		Sessions: make([]SessionResult, 0, len(sigs)),
	}
	for result := range results {
		summary.Sessions = append(summary.Sessions, result)
		if result.Cancelled {
			summary.Cancelled = true
		}
	}
	summary.sortSessions()
	summary.Duration = time.Since(startTime)

	cfg.metrics.RecordRun(runCtx, string(summary.Status()), summary.Duration)
	observability.LogRunComplete(cfg.logger, cfg.runID, string(summary.Status()),
		float64(summary.Duration.Milliseconds()), summary.TotalArtifacts())

	sink.Log(Event{
		Kind:    EventRunCompleted,
		Time:    time.Now(),
		RunID:   cfg.runID,
		Summary: summary,
	})
	return summary, nil
}

// runSession carves one type. It runs once a concurrency slot is held.
func (c *Coordinator) runSession(
	ctx context.Context,
	sig FileSignature,
	src Source,
	dest string,
	chunkSize int,
	token *CancellationToken,
	sink LogSink,
	cfg *runConfig,
) SessionResult {
	startTime := time.Now()
	sessCtx, span := cfg.spans.StartSessionSpan(ctx, sig.Type)
	logger := observability.EnrichLogger(cfg.logger, cfg.runID, sig.Type)
	observability.LogSessionStart(logger, sig.Type)

	out := &sessionSink{ctx: sessCtx, cfg: cfg, next: sink}
	result := c.carve(sig, src, dest, chunkSize, token, out, cfg.runID, cfg.checksum)
	if result.Duration == 0 {
		result.Duration = time.Since(startTime)
	}

	cfg.metrics.RecordSession(sessCtx, sig.Type, result.State.String(), result.Duration, result.Err)
	if result.Err != nil {
		observability.LogSessionError(logger, sig.Type, result.Err)
	}
	observability.LogSessionComplete(logger, sig.Type, result.State.String(),
		result.Artifacts, float64(result.Duration.Milliseconds()))
	cfg.spans.EndSessionSpan(span, observability.SessionOutcome{
		State:        result.State.String(),
		Artifacts:    result.Artifacts,
		Incomplete:   result.Incomplete,
		BytesScanned: result.BytesScanned,
		Err:          result.Err,
	})
	return result
}

// carve opens a reader for sig and runs its session. Sessions whose slot
// arrives after cancellation stop without opening the source.
func (c *Coordinator) carve(
	sig FileSignature,
	src Source,
	dest string,
	chunkSize int,
	token *CancellationToken,
	sink LogSink,
	runID string,
	checksum ChecksumAlgorithm,
) (result SessionResult) {
	emit := func(evt Event) {
		evt.Time = time.Now()
		evt.RunID = runID
		evt.Type = sig.Type
		sink.Log(evt)
	}
	defer func() {
		if r := recover(); r != nil {
			result = panicResult(sig.Type, r)
			sink = guardedSink{next: sink}
			emit(Event{Kind: EventSessionFailed, Err: result.Err})
			emit(Event{Kind: EventSessionFinished, Result: &result})
		}
	}()

	if token.Cancelled() {
		result := SessionResult{Type: sig.Type, State: StateStopped, Cancelled: true}
		emit(Event{Kind: EventSessionFinished, Result: &result})
		return result
	}

	reader, err := OpenChunkReader(src, chunkSize)
	if err != nil {
		sessErr := &SessionError{Type: sig.Type, State: StateSearching, Err: err}
		result := SessionResult{Type: sig.Type, State: StateStopped, Err: sessErr}
		emit(Event{Kind: EventSessionFailed, Err: sessErr})
		emit(Event{Kind: EventSessionFinished, Result: &result})
		return result
	}

	session := NewSession(sig, reader, SessionConfig{
		Destination: dest,
		Token:       token,
		Checksum:    checksum,
		Sink:        sink,
		RunID:       runID,
	})
	return session.Run()
}

// preflight validates req. No session is started and no artifact is
// written unless it succeeds.
func (c *Coordinator) preflight(req Request, cfg *runConfig) ([]FileSignature, int, error) {
	if len(req.Types) == 0 {
		return nil, 0, ErrNoTypes
	}

	seen := make(map[string]bool, len(req.Types))
	var sigs []FileSignature
	var unknown []string
	for _, tag := range req.Types {
		if seen[tag] {
			continue
		}
		seen[tag] = true
		sig, err := c.catalog.Lookup(tag)
		if err != nil {
			unknown = append(unknown, tag)
			continue
		}
		sigs = append(sigs, sig)
	}
	if len(unknown) > 0 {
		return nil, 0, &UnknownTypeError{Types: unknown}
	}

	chunkSize := req.ChunkSize
	if chunkSize < 0 {
		return nil, 0, fmt.Errorf("%w: %d", ErrInvalidChunkSize, chunkSize)
	}
	if chunkSize == 0 {
		chunkSize = cfg.chunkSize
	}
	if chunkSize == 0 {
		chunkSize = DefaultChunkSize
	}

	if _, err := NewHasher(cfg.checksum); err != nil {
		return nil, 0, err
	}

	if req.Source == nil {
		return nil, 0, ErrNilSource
	}
	if err := checkDestination(req.Destination); err != nil {
		return nil, 0, err
	}
	if err := probeSource(req.Source); err != nil {
		return nil, 0, err
	}
	return sigs, chunkSize, nil
}

// checkDestination verifies dir exists, is a directory and accepts new files.
func checkDestination(dir string) error {
	if dir == "" {
		return fmt.Errorf("%w: empty path", ErrInvalidDestination)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDestination, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrInvalidDestination, dir)
	}

	probe, err := os.CreateTemp(dir, ".sigcarve-probe-*")
	if err != nil {
		return fmt.Errorf("%w: %s is not writable: %w", ErrInvalidDestination, dir, err)
	}
	name := probe.Name()
	probe.Close()
	os.Remove(name)
	return nil
}

// probeSource opens src, reads one byte and closes it again.
func probeSource(src Source) error {
	rc, err := src.Open()
	if err != nil {
		var se *SourceError
		if errors.As(err, &se) {
			return err
		}
		return &SourceError{Source: src.Name(), Op: "open", Err: err}
	}
	defer rc.Close()

	var b [1]byte
	if _, err := rc.Read(b[:]); err != nil && !errors.Is(err, io.EOF) {
		return &SourceError{Source: src.Name(), Op: "open", Err: err}
	}
	return nil
}

// panicResult reports a panic raised outside a session's scan loop, for
// example in Source.Open.
func panicResult(tag string, r any) SessionResult {
	err := &SessionError{
		Type:  tag,
		State: StateSearching,
		Err:   &PanicError{Type: tag, Value: r, Stack: string(debug.Stack())},
	}
	return SessionResult{Type: tag, State: StateStopped, Err: err}
}

// sessionSink records telemetry for a session's events before passing
// them on to the run's sink.
type sessionSink struct {
	ctx  context.Context
	cfg  *runConfig
	next LogSink
}

func (s *sessionSink) Log(evt Event) {
	if a := evt.Artifact; a != nil && evt.Kind == EventArtifact {
		s.cfg.metrics.RecordArtifact(s.ctx, a.Type, a.Length, a.Complete)
		s.cfg.spans.AddArtifactEvent(s.ctx, a.Sequence, a.SourceOffset, a.Length, a.Complete)
		observability.LogArtifact(observability.EnrichLogger(s.cfg.logger, s.cfg.runID, a.Type),
			a.Type, a.Sequence, a.SourceOffset, a.Length, a.Complete)
	}
	s.next.Log(evt)
}

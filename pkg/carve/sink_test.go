package carve

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleArtifact() *RecoveredArtifact {
	return &RecoveredArtifact{
		Type:         "jpg",
		Sequence:     0,
		SourceOffset: 1000,
		Path:         "/out/jpg_0.jpg",
		Length:       206,
		Complete:     true,
	}
}

func TestEvent_String(t *testing.T) {
	incomplete := sampleArtifact()
	incomplete.Complete = false
	cancelled := sampleArtifact()
	cancelled.Complete = false
	cancelled.Cancelled = true
	digested := sampleArtifact()
	digested.Digest = "abc123"

	summary := &RunSummary{Sessions: []SessionResult{
		{Type: "jpg", State: StateExhausted, Artifacts: 2, Incomplete: 1},
		{Type: "pdf", State: StateExhausted},
	}}

	tests := []struct {
		name string
		evt  Event
		want string
	}{
		{"started", Event{Kind: EventSessionStarted, Type: "jpg"}, "==== Scanning for JPG ===="},
		{
			"artifact",
			Event{Kind: EventArtifact, Type: "jpg", Artifact: sampleArtifact()},
			"==== Found JPG #0 at location: 0x3e8 (206 bytes, complete) -> /out/jpg_0.jpg ====",
		},
		{
			"incomplete",
			Event{Kind: EventArtifact, Type: "jpg", Artifact: incomplete},
			"==== Found JPG #0 at location: 0x3e8 (206 bytes, incomplete) -> /out/jpg_0.jpg ====",
		},
		{
			"cancelled",
			Event{Kind: EventArtifact, Type: "jpg", Artifact: cancelled},
			"==== Found JPG #0 at location: 0x3e8 (206 bytes, incomplete, cancelled) -> /out/jpg_0.jpg ====",
		},
		{
			"digest",
			Event{Kind: EventArtifact, Type: "jpg", Artifact: digested},
			"==== Found JPG #0 at location: 0x3e8 (206 bytes, complete) -> /out/jpg_0.jpg ==== digest abc123",
		},
		{
			"failed",
			Event{Kind: EventSessionFailed, Type: "pdf", Err: errors.New("disk full")},
			"==== PDF recovery failed: disk full ====",
		},
		{
			"finished",
			Event{Kind: EventSessionFinished, Type: "jpg", Result: &SessionResult{State: StateExhausted, Artifacts: 2, Incomplete: 1}},
			"==== JPG finished (exhausted): 2 complete, 1 incomplete ====",
		},
		{
			"run completed",
			Event{Kind: EventRunCompleted, Summary: summary},
			"==== Recovery completed: jpg=2/1(exhausted) pdf=0/0(exhausted) ====",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.evt.String())
		})
	}
}

func TestLineSink_Concurrent(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLineSink(&buf)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sink.Log(Event{Kind: EventArtifact, Type: "jpg", Artifact: sampleArtifact()})
		}()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 20)
	for _, line := range lines {
		assert.True(t, strings.HasPrefix(line, "==== Found JPG #0"), line)
	}
}

func TestSlogSink(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	sink := NewSlogSink(logger)

	sink.Log(Event{Kind: EventArtifact, RunID: "r1", Type: "jpg", Time: time.Now(), Artifact: sampleArtifact()})
	sink.Log(Event{Kind: EventSessionFailed, RunID: "r1", Type: "pdf", Err: errors.New("disk full")})
	sink.Log(Event{Kind: EventSessionFinished, RunID: "r1", Type: "jpg", Result: &SessionResult{State: StateExhausted}})

	out := buf.String()
	assert.Contains(t, out, `msg="artifact recovered"`)
	assert.Contains(t, out, "offset=1000")
	assert.Contains(t, out, "level=ERROR")
	assert.Contains(t, out, `error="disk full"`)
	assert.Contains(t, out, "state=exhausted")
	assert.Contains(t, out, "run_id=r1")
}

func TestMultiSink(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	sink := MultiSink(a, nil, b)

	sink.Log(Event{Kind: EventSessionStarted, Type: "jpg"})
	assert.Len(t, a.Events(), 1)
	assert.Len(t, b.Events(), 1)

	assert.NotPanics(t, func() { DiscardSink.Log(Event{}) })
}

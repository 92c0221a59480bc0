package carve

import (
	"fmt"
	"strings"
	"time"
)

// State is the lifecycle state of a carving session.
type State int

// Session states.
const (
	StateSearching State = iota
	StateCapturing
	StateStopped
	StateExhausted
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateSearching:
		return "searching"
	case StateCapturing:
		return "capturing"
	case StateStopped:
		return "stopped"
	case StateExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Terminal reports whether the session can make no further progress.
func (s State) Terminal() bool {
	return s == StateStopped || s == StateExhausted
}

// RecoveredArtifact describes one file written by a session.
type RecoveredArtifact struct {
	Type     string
	Sequence int
	// SourceOffset is the absolute offset of the start marker's first byte.
	SourceOffset int64
	Path         string
	Length       int64
	// Complete is false when the file was closed without its end marker.
	Complete bool
	// Cancelled is set when an incomplete artifact was closed by cancellation.
	Cancelled bool
	// Digest is the hex checksum of the written bytes, empty when disabled.
	Digest string
}

// EventKind classifies an Event.
type EventKind string

// Event kinds.
const (
	EventSessionStarted  EventKind = "session_started"
	EventArtifact        EventKind = "artifact"
	EventSessionFailed   EventKind = "session_failed"
	EventSessionFinished EventKind = "session_finished"
	EventRunCompleted    EventKind = "run_completed"
)

// Event is one progress or result notification from a run.
// Only the fields that belong to the kind are set: Artifact for
// EventArtifact (and for EventSessionFailed when a file was open),
// Err for EventSessionFailed, Result for EventSessionFinished,
// Summary for EventRunCompleted.
type Event struct {
	Kind     EventKind
	Time     time.Time
	RunID    string
	Type     string
	Artifact *RecoveredArtifact
	Err      error
	Result   *SessionResult
	Summary  *RunSummary
}

// String renders the event as a single human-readable line.
func (e Event) String() string {
	tag := strings.ToUpper(e.Type)
	switch e.Kind {
	case EventSessionStarted:
		return fmt.Sprintf("==== Scanning for %s ====", tag)
	case EventArtifact:
		a := e.Artifact
		if a == nil {
			return fmt.Sprintf("==== %s artifact event without payload ====", tag)
		}
		status := "complete"
		switch {
		case a.Cancelled:
			status = "incomplete, cancelled"
		case !a.Complete:
			status = "incomplete"
		}
		line := fmt.Sprintf("==== Found %s #%d at location: %#x (%d bytes, %s) -> %s ====",
			tag, a.Sequence, a.SourceOffset, a.Length, status, a.Path)
		if a.Digest != "" {
			line += " digest " + a.Digest
		}
		return line
	case EventSessionFailed:
		if e.Artifact != nil {
			return fmt.Sprintf("==== %s recovery failed while capturing #%d from %#x: %v ====",
				tag, e.Artifact.Sequence, e.Artifact.SourceOffset, e.Err)
		}
		return fmt.Sprintf("==== %s recovery failed: %v ====", tag, e.Err)
	case EventSessionFinished:
		if e.Result == nil {
			return fmt.Sprintf("==== %s finished ====", tag)
		}
		return fmt.Sprintf("==== %s finished (%s): %d complete, %d incomplete ====",
			tag, e.Result.State, e.Result.Artifacts, e.Result.Incomplete)
	case EventRunCompleted:
		if e.Summary == nil {
			return "==== Recovery run completed ===="
		}
		return e.Summary.String()
	default:
		return fmt.Sprintf("==== %s %s ====", tag, e.Kind)
	}
}

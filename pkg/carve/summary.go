package carve

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// SessionResult is the outcome of one type-specific session.
type SessionResult struct {
	Type  string
	State State
	// Artifacts counts complete artifacts.
	Artifacts int
	// Incomplete counts artifacts closed without their end marker.
	Incomplete int
	// BytesScanned is the number of source bytes the session consumed.
	BytesScanned int64
	// BytesWritten is the total size of every artifact written.
	BytesWritten int64
	// Cancelled is true when the session stopped because of the token.
	Cancelled bool
	// Err is the fatal error that stopped the session, if any.
	Err      error
	Duration time.Duration
}

// Failed reports whether the session ended with a fatal error.
func (r SessionResult) Failed() bool {
	return r.Err != nil
}

// RunStatus is the overall outcome of a run.
type RunStatus string

// Run statuses. Failed takes precedence over cancelled.
const (
	RunCompleted RunStatus = "completed"
	RunCancelled RunStatus = "cancelled"
	RunFailed    RunStatus = "failed"
)

// RunSummary aggregates every session of a run, ordered by type tag.
type RunSummary struct {
	RunID     string
	Source    string
	Sessions  []SessionResult
	Cancelled bool
	Duration  time.Duration
}

// Result returns the session result for tag.
func (s *RunSummary) Result(tag string) (SessionResult, bool) {
	for _, r := range s.Sessions {
		if r.Type == tag {
			return r, true
		}
	}
	return SessionResult{}, false
}

// Artifacts returns the number of complete artifacts recovered for tag.
func (s *RunSummary) Artifacts(tag string) int {
	r, _ := s.Result(tag)
	return r.Artifacts
}

// TotalArtifacts returns complete artifacts across every session.
func (s *RunSummary) TotalArtifacts() int {
	total := 0
	for _, r := range s.Sessions {
		total += r.Artifacts
	}
	return total
}

// Failed returns the sessions that ended with a fatal error.
func (s *RunSummary) Failed() []SessionResult {
	var out []SessionResult
	for _, r := range s.Sessions {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}

// Err joins every session error, or returns nil.
func (s *RunSummary) Err() error {
	var errs []error
	for _, r := range s.Sessions {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	return errors.Join(errs...)
}

// Status returns the overall run status.
func (s *RunSummary) Status() RunStatus {
	switch {
	case len(s.Failed()) > 0:
		return RunFailed
	case s.Cancelled:
		return RunCancelled
	default:
		return RunCompleted
	}
}

// String renders per-type counts and the overall status on one line.
func (s *RunSummary) String() string {
	parts := make([]string, 0, len(s.Sessions))
	for _, r := range s.Sessions {
		parts = append(parts, fmt.Sprintf("%s=%d/%d(%s)", r.Type, r.Artifacts, r.Incomplete, r.State))
	}
	return fmt.Sprintf("==== Recovery %s: %s ====", s.Status(), strings.Join(parts, " "))
}

func (s *RunSummary) sortSessions() {
	sort.Slice(s.Sessions, func(i, j int) bool {
		return s.Sessions[i].Type < s.Sessions[j].Type
	})
}

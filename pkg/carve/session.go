package carve

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"runtime/debug"
	"time"
)

// SessionConfig configures a single carving session.
type SessionConfig struct {
	// Destination is the directory artifacts are written to.
	Destination string

	// Token is polled between chunks. Nil means the session never stops early.
	Token *CancellationToken

	// Checksum selects the artifact digest; ChecksumNone disables it.
	Checksum ChecksumAlgorithm

	// Sink receives the session's events. Nil discards them.
	Sink LogSink

	// RunID is copied into every event.
	RunID string
}

// Session carves one file type from its own ChunkReader.
//
// The session keeps the last few bytes of each chunk (longest marker
// length minus one) and scans them again with the next chunk, so a
// marker split across a chunk boundary is still found. After a match the
// rest of the chunk is scanned too: an end marker in the same chunk as
// its start marker closes the artifact, and a further start marker begins
// the next one.
//
// A Session is not safe for concurrent use; run it from one goroutine.
type Session struct {
	sig    FileSignature
	reader *ChunkReader
	cfg    SessionConfig

	state State
	seq   int

	// buf holds carried bytes followed by the current chunk; bufStart is
	// the absolute source offset of buf[0].
	buf      []byte
	bufStart int64
	// cursor is the first index in buf not yet examined for a marker.
	cursor int
	// written is the first index in buf not yet copied to out.
	written    int
	startKeep  int
	anchorUsed bool

	out *artifactWriter
	// pendingFailure is an artifact whose close failed, reported by fail.
	pendingFailure *RecoveredArtifact
	result         SessionResult
}

// errStopScan ends a chunk early once cancellation is observed between artifacts.
var errStopScan = errors.New("scan stopped")

// NewSession returns a session in StateSearching. The session takes
// ownership of reader and closes it when Run returns.
func NewSession(sig FileSignature, reader *ChunkReader, cfg SessionConfig) *Session {
	keep := 0
	for _, m := range sig.StartMarkers {
		if len(m)-1 > keep {
			keep = len(m) - 1
		}
	}
	if cfg.Sink == nil {
		cfg.Sink = DiscardSink
	}
	return &Session{
		sig:       sig,
		reader:    reader,
		cfg:       cfg,
		state:     StateSearching,
		startKeep: keep,
		buf:       make([]byte, 0, reader.ChunkSize()+sig.MaxMarkerLen()),
		result:    SessionResult{Type: sig.Type},
	}
}

// State returns the current session state.
func (s *Session) State() State {
	return s.state
}

// Run scans until the source is exhausted, the token is set, or a fatal
// error occurs. Errors and panics never escape; they are reported through
// the sink and the returned result.
func (s *Session) Run() (result SessionResult) {
	start := time.Now()
	defer func() {
		// The sink may be what panicked; events sent from here must not
		// take the session down a second time.
		s.cfg.Sink = guardedSink{next: s.cfg.Sink}
		if r := recover(); r != nil {
			s.fail(&PanicError{Type: s.sig.Type, Value: r, Stack: string(debug.Stack())})
		}
		if err := s.reader.Close(); err != nil && s.result.Err == nil {
			s.fail(&SourceError{Source: s.reader.name, Op: "close", Err: err})
		}
		s.result.State = s.state
		s.result.BytesScanned = s.reader.Offset()
		s.result.Duration = time.Since(start)
		res := s.result
		s.cfg.Sink.Log(s.finishedEvent(&res))
		result = s.result
	}()

	s.cfg.Sink.Log(s.event(EventSessionStarted, nil, nil))
	for !s.state.Terminal() {
		if s.cfg.Token.Cancelled() {
			s.stop()
			break
		}

		chunk, err := s.reader.Next()
		if errors.Is(err, io.EOF) {
			s.exhaust()
			break
		}
		if err != nil {
			s.fail(err)
			break
		}

		if err := s.consume(chunk); err != nil {
			if errors.Is(err, errStopScan) {
				s.stop()
				break
			}
			s.fail(err)
			break
		}
	}
	return s.result
}

// consume scans one chunk, opening and closing artifacts as markers appear.
func (s *Session) consume(chunk []byte) error {
	s.buf = append(s.buf, chunk...)

	for {
		switch s.state {
		case StateSearching:
			idx, marker := s.findStart()
			if idx < 0 {
				s.cursor = max(s.cursor, len(s.buf)-s.startKeep)
				s.compact()
				return nil
			}
			if s.cfg.Token.Cancelled() {
				return errStopScan
			}
			if err := s.open(idx); err != nil {
				return err
			}
			s.cursor = idx + len(marker)

		case StateCapturing:
			end := s.sig.EndMarker
			idx := s.findEnd()
			if idx < 0 {
				if err := s.out.Write(s.buf[s.written:]); err != nil {
					return err
				}
				s.written = len(s.buf)
				s.cursor = max(s.cursor, len(s.buf)-max(len(end)-1, 0))
				s.compact()
				return nil
			}
			stop := idx + len(end)
			if err := s.out.Write(s.buf[s.written:stop]); err != nil {
				return err
			}
			s.written = stop
			s.cursor = stop
			if err := s.closeArtifact(true, false); err != nil {
				return err
			}

		default:
			return fmt.Errorf("consume in terminal state %s", s.state)
		}
	}
}

// findStart returns the lowest index at or after the cursor where a start
// marker begins. At equal offsets the earlier marker wins.
func (s *Session) findStart() (int, []byte) {
	best := -1
	var bestMarker []byte
	for _, m := range s.sig.StartMarkers {
		var idx int
		if len(m) == 0 {
			if s.anchorUsed || s.bufStart+int64(s.cursor) != 0 {
				continue
			}
			idx = s.cursor
		} else {
			idx = bytes.Index(s.buf[s.cursor:], m)
			if idx < 0 {
				continue
			}
			idx += s.cursor
		}
		if best < 0 || idx < best {
			best, bestMarker = idx, m
		}
	}
	if best >= 0 && len(bestMarker) == 0 {
		s.anchorUsed = true
	}
	return best, bestMarker
}

func (s *Session) findEnd() int {
	end := s.sig.EndMarker
	if len(end) == 0 {
		return -1
	}
	idx := bytes.Index(s.buf[s.cursor:], end)
	if idx < 0 {
		return -1
	}
	return idx + s.cursor
}

// compact drops bytes before the cursor; they can no longer start a match.
func (s *Session) compact() {
	drop := s.cursor
	if drop <= 0 {
		return
	}
	n := copy(s.buf, s.buf[drop:])
	s.buf = s.buf[:n]
	s.bufStart += int64(drop)
	s.cursor = 0
	s.written = max(s.written-drop, 0)
}

func (s *Session) open(idx int) error {
	w, err := createArtifact(s.cfg.Destination, s.sig.Type, s.seq, s.bufStart+int64(idx), s.cfg.Checksum)
	if err != nil {
		return err
	}
	s.out = w
	s.written = idx
	s.state = StateCapturing
	return nil
}

// closeArtifact closes the open file and reports it. The sequence number
// advances even for incomplete artifacts so names are never reused.
func (s *Session) closeArtifact(complete, cancelled bool) error {
	w := s.out
	s.out = nil
	s.seq++
	s.state = StateSearching

	art, err := w.Close(complete, cancelled)
	s.result.BytesWritten += art.Length
	if err != nil {
		s.pendingFailure = &art
		return err
	}
	if complete {
		s.result.Artifacts++
	} else {
		s.result.Incomplete++
	}
	s.cfg.Sink.Log(s.event(EventArtifact, &art, nil))
	return nil
}

func (s *Session) exhaust() {
	if s.out != nil {
		if err := s.closeArtifact(false, false); err != nil {
			s.fail(err)
			return
		}
	}
	s.state = StateExhausted
}

func (s *Session) stop() {
	s.result.Cancelled = true
	if s.out != nil {
		if err := s.closeArtifact(false, true); err != nil {
			s.fail(err)
			return
		}
	}
	s.state = StateStopped
}

// fail records a fatal error. An open artifact is closed and reported as
// incomplete in the failure event.
func (s *Session) fail(err error) {
	failedIn := s.state
	art := s.pendingFailure
	s.pendingFailure = nil
	if s.out != nil {
		w := s.out
		s.out = nil
		s.seq++
		closed, _ := w.Close(false, false)
		s.result.BytesWritten += closed.Length
		art = &closed
	}
	if art != nil {
		failedIn = StateCapturing
		s.result.Incomplete++
	}

	sessErr := &SessionError{Type: s.sig.Type, State: failedIn, Err: err}
	s.result.Err = sessErr
	s.state = StateStopped
	s.cfg.Sink.Log(s.event(EventSessionFailed, art, sessErr))
}

func (s *Session) event(kind EventKind, art *RecoveredArtifact, err error) Event {
	return Event{
		Kind:     kind,
		Time:     time.Now(),
		RunID:    s.cfg.RunID,
		Type:     s.sig.Type,
		Artifact: art,
		Err:      err,
	}
}

func (s *Session) finishedEvent(res *SessionResult) Event {
	evt := s.event(EventSessionFinished, nil, nil)
	evt.Result = res
	return evt
}

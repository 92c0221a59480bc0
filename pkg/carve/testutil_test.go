package carve

import (
	"bytes"
	"errors"
	"io"
	"os"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// Test data builders

var (
	jpegSOI  = []byte{0xFF, 0xD8, 0xFF, 0xE0}
	jpegEXIF = []byte{0xFF, 0xD8, 0xFF, 0xE1}
	jpegEOI  = []byte{0xFF, 0xD9}
)

// jpegSig mirrors the built-in jpg signature.
var jpegSig = FileSignature{
	Type:         "jpg",
	StartMarkers: [][]byte{jpegSOI, jpegEXIF},
	EndMarker:    jpegEOI,
}

func zeros(n int) []byte {
	return make([]byte, n)
}

func fill(b byte, n int) []byte {
	return bytes.Repeat([]byte{b}, n)
}

// image concatenates its parts into one buffer.
func image(parts ...[]byte) []byte {
	return bytes.Join(parts, nil)
}

// jpegImage is 1000 zero bytes, a 206-byte JPEG, then 500 zero bytes.
func jpegImage() []byte {
	return image(zeros(1000), jpegSOI, fill(0xAA, 200), jpegEOI, zeros(500))
}

// recordingSink stores every event it receives.
type recordingSink struct {
	mu     sync.Mutex
	events []Event
	onLog  func(Event)
}

func (s *recordingSink) Log(evt Event) {
	s.mu.Lock()
	s.events = append(s.events, evt)
	hook := s.onLog
	s.mu.Unlock()
	if hook != nil {
		hook(evt)
	}
}

func (s *recordingSink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

func (s *recordingSink) Kinds() []EventKind {
	var out []EventKind
	for _, e := range s.Events() {
		out = append(out, e.Kind)
	}
	return out
}

func (s *recordingSink) Artifacts(tag string) []RecoveredArtifact {
	var out []RecoveredArtifact
	for _, e := range s.Events() {
		if e.Kind == EventArtifact && e.Type == tag {
			out = append(out, *e.Artifact)
		}
	}
	return out
}

func (s *recordingSink) OfKind(kind EventKind) []Event {
	var out []Event
	for _, e := range s.Events() {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// runSession carves sig out of data and returns the result.
func runSession(t *testing.T, sig FileSignature, data []byte, chunk int, cfg SessionConfig) SessionResult {
	t.Helper()
	reader, err := OpenChunkReader(BytesSource{Data: data}, chunk)
	require.NoError(t, err)
	if cfg.Destination == "" {
		cfg.Destination = t.TempDir()
	}
	return NewSession(sig, reader, cfg).Run()
}

// listDir returns the sorted file names in dir.
func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

// failingSource cannot be opened.
type failingSource struct {
	err error
}

func (s failingSource) Name() string { return "broken" }

func (s failingSource) Open() (io.ReadCloser, error) {
	return nil, s.err
}

// flakySource opens successfully only for the first n opens.
type flakySource struct {
	mu    sync.Mutex
	data  []byte
	opens int
	limit int
}

func (s *flakySource) Name() string { return "flaky" }

func (s *flakySource) Open() (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opens++
	if s.opens > s.limit {
		return nil, errors.New("device went away")
	}
	return io.NopCloser(bytes.NewReader(s.data)), nil
}

// panickySource panics on the open numbered panicOn; other opens succeed.
type panickySource struct {
	mu      sync.Mutex
	data    []byte
	opens   int
	panicOn int
}

func (s *panickySource) Name() string { return "panicky" }

func (s *panickySource) Open() (io.ReadCloser, error) {
	s.mu.Lock()
	s.opens++
	n := s.opens
	s.mu.Unlock()
	if n == s.panicOn {
		panic("open boom")
	}
	return io.NopCloser(bytes.NewReader(s.data)), nil
}

// closeErrSource serves data from a reader whose Close fails.
type closeErrSource struct {
	data []byte
	err  error
}

func (s closeErrSource) Name() string { return "close-err" }

func (s closeErrSource) Open() (io.ReadCloser, error) {
	return closeErrReader{Reader: bytes.NewReader(s.data), err: s.err}, nil
}

type closeErrReader struct {
	io.Reader
	err error
}

func (r closeErrReader) Close() error { return r.err }

// errAfterReader returns data then fails with err.
type errAfterReader struct {
	data []byte
	err  error
}

func (r *errAfterReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, r.err
	}
	n := copy(p, r.data)
	r.data = r.data[n:]
	return n, nil
}

func (r *errAfterReader) Close() error { return nil }

// readErrSource yields data and then a read error.
type readErrSource struct {
	data []byte
	err  error
}

func (s readErrSource) Name() string { return "bad-sectors" }

func (s readErrSource) Open() (io.ReadCloser, error) {
	return &errAfterReader{data: bytes.Clone(s.data), err: s.err}, nil
}

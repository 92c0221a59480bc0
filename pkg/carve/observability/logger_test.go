package observability

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newJSONLogger returns a debug-level JSON logger writing to a buffer.
func newJSONLogger() (*slog.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	handler := slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(handler), buf
}

// records decodes every JSON line in buf.
func records(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		out = append(out, rec)
	}
	return out
}

func TestEnrichLogger(t *testing.T) {
	logger, buf := newJSONLogger()

	EnrichLogger(logger, "run-1", "jpg").Info("scanning")

	recs := records(t, buf)
	require.Len(t, recs, 1)
	assert.Equal(t, "run-1", recs[0]["run_id"])
	assert.Equal(t, "jpg", recs[0]["type"])

	assert.Nil(t, EnrichLogger(nil, "run-1", "jpg"))
}

func TestLogRunLifecycle(t *testing.T) {
	logger, buf := newJSONLogger()

	LogRunStart(logger, "run-1", "/dev/sdb", []string{"jpg", "pdf"})
	LogRunComplete(logger, "run-1", "completed", 12, 3)
	LogRunError(logger, "run-2", errors.New("unknown file type: foo"))

	recs := records(t, buf)
	require.Len(t, recs, 3)

	assert.Equal(t, "recovery run starting", recs[0]["msg"])
	assert.Equal(t, "/dev/sdb", recs[0]["source"])
	assert.Equal(t, []any{"jpg", "pdf"}, recs[0]["types"])

	assert.Equal(t, "recovery run completed", recs[1]["msg"])
	assert.Equal(t, "completed", recs[1]["status"])
	assert.Equal(t, float64(3), recs[1]["artifacts"])

	assert.Equal(t, "ERROR", recs[2]["level"])
	assert.Equal(t, "unknown file type: foo", recs[2]["error"])
}

func TestLogSessionHelpers(t *testing.T) {
	logger, buf := newJSONLogger()

	LogSessionStart(logger, "jpg")
	LogArtifact(logger, "jpg", 0, 1000, 206, true)
	LogSessionError(logger, "jpg", errors.New("disk full"))
	LogSessionComplete(logger, "jpg", "stopped", 1, 4)

	recs := records(t, buf)
	require.Len(t, recs, 4)
	assert.Equal(t, "session starting", recs[0]["msg"])
	assert.Equal(t, float64(1000), recs[1]["offset"])
	assert.Equal(t, float64(206), recs[1]["length"])
	assert.Equal(t, true, recs[1]["complete"])
	assert.Equal(t, "WARN", recs[2]["level"])
	assert.Equal(t, "stopped", recs[3]["state"])
}

func TestLogHelpers_NilLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		LogRunStart(nil, "run", "src", nil)
		LogRunComplete(nil, "run", "completed", 0, 0)
		LogRunError(nil, "run", errors.New("x"))
		LogSessionStart(nil, "jpg")
		LogSessionComplete(nil, "jpg", "exhausted", 0, 0)
		LogSessionError(nil, "jpg", errors.New("x"))
		LogArtifact(nil, "jpg", 0, 0, 0, false)
	})
}

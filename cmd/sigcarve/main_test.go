package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/sigcarve/pkg/carve"
)

func exitCode(t *testing.T, err error) int {
	t.Helper()
	if err == nil {
		return exitOK
	}
	var ee *exitError
	require.True(t, errors.As(err, &ee), "expected exitError, got %v", err)
	return ee.ExitCode()
}

func TestParseArgs(t *testing.T) {
	var stderr bytes.Buffer
	opts, _, err := parseArgs([]string{
		"-s", "/dev/sdb", "-o", "./out", "-t", "jpg,pdf", "--types", "png",
		"--chunk-size", "4096", "--workers", "2", "--digest", "blake3", "--exclusive",
	}, &stderr)
	require.NoError(t, err)

	assert.Equal(t, "/dev/sdb", opts.flags.Source)
	assert.Equal(t, "./out", opts.flags.Destination)
	assert.Equal(t, []string{"jpg", "pdf", "png"}, opts.flags.Types)
	assert.Equal(t, 4096, opts.flags.ChunkSize)
	assert.Equal(t, 2, opts.flags.Workers)
	assert.Equal(t, "blake3", opts.flags.Checksum)
	assert.True(t, opts.flags.Exclusive)
}

func TestParseArgs_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown flag", []string{"--bogus"}},
		{"bad int", []string{"--workers", "many"}},
		{"positional", []string{"extra"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := parseArgs(tt.args, &bytes.Buffer{})
			require.Error(t, err)
			assert.Equal(t, exitUsage, exitCode(t, err))
		})
	}
}

func TestRun_Help(t *testing.T) {
	var stderr bytes.Buffer
	require.NoError(t, run([]string{"--help"}, &bytes.Buffer{}, &stderr))
	assert.Contains(t, stderr.String(), "Usage:")
	assert.Contains(t, stderr.String(), "--chunk-size")
}

func TestRun_ListTypes(t *testing.T) {
	var stdout bytes.Buffer
	require.NoError(t, run([]string{"--list-types"}, &stdout, &bytes.Buffer{}))

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	assert.Equal(t, carve.DefaultCatalog().Types(), lines)
}

func TestRun_Usage(t *testing.T) {
	dir := t.TempDir()
	img := filepath.Join(dir, "disk.img")
	require.NoError(t, os.WriteFile(img, make([]byte, 1024), 0o644))

	tests := []struct {
		name string
		args []string
	}{
		{"missing source", []string{"-o", dir, "-t", "jpg"}},
		{"missing out", []string{"-s", img, "-t", "jpg"}},
		{"missing types", []string{"-s", img, "-o", dir}},
		{"bad digest", []string{"-s", img, "-o", dir, "-t", "jpg", "--digest", "md5"}},
		{"bad log level", []string{"-s", img, "-o", dir, "-t", "jpg", "--log-level", "loud"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := run(tt.args, &bytes.Buffer{}, &bytes.Buffer{})
			assert.Equal(t, exitUsage, exitCode(t, err))
		})
	}
}

func TestRun_UnknownType(t *testing.T) {
	dir := t.TempDir()
	img := filepath.Join(dir, "disk.img")
	require.NoError(t, os.WriteFile(img, make([]byte, 1024), 0o644))
	out := filepath.Join(dir, "out")
	require.NoError(t, os.Mkdir(out, 0o755))

	err := run([]string{"-s", img, "-o", out, "-t", "foo"}, &bytes.Buffer{}, &bytes.Buffer{})
	assert.Equal(t, exitPreflight, exitCode(t, err))
	assert.ErrorIs(t, err, carve.ErrUnknownType)

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRun_Recovers(t *testing.T) {
	dir := t.TempDir()
	data := make([]byte, 0, 2048)
	data = append(data, make([]byte, 1000)...)
	data = append(data, 0xFF, 0xD8, 0xFF, 0xE0)
	data = append(data, bytes.Repeat([]byte{0xAA}, 200)...)
	data = append(data, 0xFF, 0xD9)
	data = append(data, make([]byte, 500)...)

	img := filepath.Join(dir, "disk.img")
	require.NoError(t, os.WriteFile(img, data, 0o644))
	out := filepath.Join(dir, "out")
	require.NoError(t, os.Mkdir(out, 0o755))

	var stdout bytes.Buffer
	err := run([]string{"-s", img, "-o", out, "-t", "jpg", "--digest", "sha256"}, &stdout, &bytes.Buffer{})
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(out, "jpg_0.jpg"))
	require.NoError(t, err)
	assert.Equal(t, data[1000:1206], got)
	assert.Contains(t, stdout.String(), "Found JPG #0 at location: 0x3e8")
	assert.Contains(t, stdout.String(), "Recovery completed")
}

func TestRun_ConfigFileAndFlags(t *testing.T) {
	dir := t.TempDir()
	img := filepath.Join(dir, "disk.img")
	require.NoError(t, os.WriteFile(img, []byte("xx%PDF-1.4 body %%EOF yy"), 0o644))
	out := filepath.Join(dir, "out")
	require.NoError(t, os.Mkdir(out, 0o755))

	cfgPath := filepath.Join(dir, "sigcarve.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("source: "+img+"\ndestination: "+out+"\ntypes: [jpg]\n"), 0o644))

	// --types overrides the file.
	err := run([]string{"--config", cfgPath, "-t", "pdf"}, &bytes.Buffer{}, &bytes.Buffer{})
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(out, "pdf_0.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 body %%EOF", string(got))
	assert.NoFileExists(t, filepath.Join(out, "jpg_0.jpg"))
}

func TestExitFor(t *testing.T) {
	tests := []struct {
		name    string
		summary *carve.RunSummary
		want    int
	}{
		{"completed", &carve.RunSummary{Sessions: []carve.SessionResult{{Type: "jpg", State: carve.StateExhausted}}}, exitOK},
		{"cancelled", &carve.RunSummary{Cancelled: true}, exitCancelled},
		{"failed", &carve.RunSummary{Sessions: []carve.SessionResult{{Type: "jpg", Err: errors.New("boom")}}}, exitFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(t, exitFor(tt.summary)))
		})
	}
}

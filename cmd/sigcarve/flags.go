package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/pflag"

	"github.com/randalmurphal/sigcarve/pkg/carve/config"
)

// Exit codes.
const (
	exitOK        = 0
	exitPreflight = 1
	exitUsage     = 2
	exitFailed    = 3
	exitCancelled = 130
)

// exitError carries a process exit code. A nil err means the command has
// already reported the outcome.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit code %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

// ExitCode returns the process exit code.
func (e *exitError) ExitCode() int {
	return e.code
}

func usageError(format string, args ...any) error {
	return &exitError{code: exitUsage, err: fmt.Errorf(format, args...)}
}

// cliOptions is the parsed command line.
type cliOptions struct {
	flags       config.Recovery
	configPath  string
	listTypes   bool
	listSources bool
	help        bool
}

func newFlagSet(opts *cliOptions) *pflag.FlagSet {
	fs := pflag.NewFlagSet("sigcarve", pflag.ContinueOnError)
	fs.StringVarP(&opts.flags.Source, "source", "s", "", "block device, partition or image to scan (.gz, .zst, .lz4 are decompressed)")
	fs.StringVarP(&opts.flags.Destination, "out", "o", "", "existing directory for recovered files")
	fs.StringSliceVarP(&opts.flags.Types, "types", "t", nil, "comma-separated file types to recover")
	fs.IntVar(&opts.flags.ChunkSize, "chunk-size", 0, "read granularity in bytes (default 512)")
	fs.IntVarP(&opts.flags.Workers, "workers", "w", 0, "sessions scanning at the same time (default 5)")
	fs.StringVar(&opts.flags.Checksum, "digest", "", "artifact digest: none, sha256, blake3, xxhash")
	fs.BoolVar(&opts.flags.Exclusive, "exclusive", false, "open the source exclusively (fails on busy block devices)")
	fs.StringVar(&opts.flags.LogFormat, "log-format", "", "log format: text or json (default text)")
	fs.StringVar(&opts.flags.LogLevel, "log-level", "", "log level: debug, info, warn, error (default warn)")
	fs.BoolVar(&opts.flags.Metrics, "metrics", false, "report OpenTelemetry metrics when the run ends")
	fs.BoolVar(&opts.flags.Tracing, "tracing", false, "log OpenTelemetry spans")
	fs.StringVarP(&opts.configPath, "config", "c", "", "YAML or JSON settings file")
	fs.BoolVar(&opts.listTypes, "list-types", false, "print the supported file types and exit")
	fs.BoolVar(&opts.listSources, "list-sources", false, "print candidate block devices and exit")
	fs.BoolVarP(&opts.help, "help", "h", false, "show help")
	return fs
}

// parseArgs parses the command line. Help is reported through opts.help.
func parseArgs(args []string, stderr io.Writer) (*cliOptions, *pflag.FlagSet, error) {
	opts := &cliOptions{}
	fs := newFlagSet(opts)
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			opts.help = true
			return opts, fs, nil
		}
		return nil, fs, &exitError{code: exitUsage, err: err}
	}
	if rest := fs.Args(); len(rest) > 0 {
		return nil, fs, usageError("unexpected argument: %s", rest[0])
	}
	return opts, fs, nil
}

// resolveSettings layers the config file, SIGCARVE_* variables and flags.
func resolveSettings(opts *cliOptions) (config.Recovery, error) {
	var settings config.Recovery
	if opts.configPath != "" {
		fromFile, err := config.FromFile(opts.configPath)
		if err != nil {
			return settings, usageError("%w", err)
		}
		settings = fromFile
	}

	env, err := config.FromEnv()
	if err != nil {
		return settings, usageError("environment: %w", err)
	}
	settings = config.Merge(settings, env)
	return config.Merge(settings, opts.flags), nil
}

func parseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "", "warn", "warning":
		return slog.LevelWarn, nil
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", name)
	}
}

// newLogger builds the diagnostic logger. Event lines go to stdout
// separately; the logger writes to w.
func newLogger(w io.Writer, format, level string) (*slog.Logger, error) {
	lvl, err := parseLevel(level)
	if err != nil {
		return nil, err
	}
	handlerOpts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, handlerOpts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, handlerOpts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

func printHelp(w io.Writer, fs *pflag.FlagSet) {
	fmt.Fprintf(w, `sigcarve recovers files from raw disks and images by their signatures.

Every requested type is scanned by its own session; recovered files are
written to the output directory as {type}_{n}.{type}.

Usage:
  sigcarve --source PATH --out DIR --types jpg,pdf [flags]

Examples:
  # Recover photos from a USB stick
  sigcarve -s /dev/sdb -o ./recovered -t jpg,png

  # Scan a compressed image with digests
  sigcarve -s disk.img.zst -o ./out -t pdf,docx --digest blake3

Settings are read from --config, then SIGCARVE_* environment variables,
then flags; later sources win.

Flags:
`)
	fs.SetOutput(w)
	fs.PrintDefaults()
}

// sigcarve recovers files from block devices and disk images by scanning
// for the start and end signatures of known file types.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/randalmurphal/sigcarve/internal/devices"
	"github.com/randalmurphal/sigcarve/pkg/carve"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		var coder interface{ ExitCode() int }
		if errors.As(err, &coder) {
			var ee *exitError
			if errors.As(err, &ee) && ee.err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", ee.err)
			}
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(exitPreflight)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	opts, fs, err := parseArgs(args, stderr)
	if err != nil {
		return err
	}
	if opts.help {
		printHelp(stderr, fs)
		return nil
	}

	settings, err := resolveSettings(opts)
	if err != nil {
		return err
	}

	logger, err := newLogger(stderr, settings.LogFormat, settings.LogLevel)
	if err != nil {
		return usageError("%w", err)
	}

	switch {
	case opts.listTypes:
		for _, tag := range carve.DefaultCatalog().Types() {
			fmt.Fprintln(stdout, tag)
		}
		return nil
	case opts.listSources:
		return listSources(stdout, devices.NewGlobLister())
	}

	if settings.Source == "" {
		return usageError("--source is required")
	}
	if settings.Destination == "" {
		return usageError("--out is required")
	}
	if len(settings.Types) == 0 {
		return usageError("--types is required (see --list-types)")
	}
	checksum, err := carve.ParseChecksumAlgorithm(settings.Checksum)
	if err != nil {
		return usageError("%w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tel := setupTelemetry(logger, settings.Metrics, settings.Tracing)
	defer tel.shutdown(context.Background())

	coord := carve.NewCoordinator(carve.DefaultCatalog(),
		carve.WithMaxConcurrency(settings.Workers),
		carve.WithChecksum(checksum),
		carve.WithLogger(logger),
		carve.WithMetrics(settings.Metrics),
		carve.WithTracing(settings.Tracing),
	)

	summary, err := coord.Run(ctx, carve.Request{
		Types:       settings.Types,
		Source:      carve.OpenSource(settings.Source, settings.Exclusive),
		Destination: settings.Destination,
		ChunkSize:   settings.ChunkSize,
		Sink:        carve.NewLineSink(stdout),
	})
	if err != nil {
		return &exitError{code: exitPreflight, err: err}
	}

	logger.Debug("run finished",
		slog.String("run_id", summary.RunID),
		slog.String("status", string(summary.Status())),
		slog.Duration("duration", summary.Duration),
	)
	return exitFor(summary)
}

// exitFor maps a run outcome to its exit code.
func exitFor(summary *carve.RunSummary) error {
	switch summary.Status() {
	case carve.RunFailed:
		return &exitError{code: exitFailed, err: summary.Err()}
	case carve.RunCancelled:
		return &exitError{code: exitCancelled}
	default:
		return nil
	}
}

func listSources(w io.Writer, lister devices.Lister) error {
	sources, err := lister.ListSources()
	if err != nil {
		return err
	}
	for _, d := range sources {
		fmt.Fprintf(w, "%s\t%d\n", d.Path, d.Size)
	}
	return nil
}

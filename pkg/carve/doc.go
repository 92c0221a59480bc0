/*
Package carve recovers files from raw byte sources by signature.

# Overview

carve scans a block device, partition or disk image for the start and
end markers of known file types and writes every byte range between a
start marker and its end marker to its own output file. It works without
any file system metadata, so it recovers data from formatted, damaged or
unmounted media.

Each requested type runs in its own Session with its own forward-only
ChunkReader. Sessions never share read state; a Coordinator runs them
concurrently with a bounded number of workers.

# Basic Usage

	coord := carve.NewCoordinator(nil) // DefaultCatalog
	summary, err := coord.Run(ctx, carve.Request{
	    Types:       []string{"jpg", "png"},
	    Source:      carve.OpenSource("/dev/sdb1", false),
	    Destination: "./recovered",
	    Sink:        carve.NewLineSink(os.Stdout),
	})
	if err != nil {
	    log.Fatal(err) // request rejected, nothing written
	}
	fmt.Println(summary.Artifacts("jpg"))

Artifacts are named {type}_{seq}.{type}, numbered from 0 per type.

# Sessions

A Session moves through four states:

	searching -> capturing   start marker found, output file opened
	capturing -> searching   end marker found, output file closed
	any       -> stopped     cancellation or fatal error
	any       -> exhausted   end of source

An artifact still open when the source ends or the run is cancelled is
closed and reported as incomplete. A marker split across a chunk
boundary is still recognised, and several artifacts within one chunk are
all recovered.

# Cancellation

A CancellationToken is a one-way flag checked at every chunk boundary:

	token := carve.NewCancellationToken()
	go func() {
	    <-sigCh
	    token.Cancel()
	}()
	coord.Run(ctx, carve.Request{Token: token, Types: types, Source: src, Destination: out})

Cancelling the context passed to Run sets the token as well.

# Catalogs

DefaultCatalog covers common image, document, archive, executable, media
and text formats. Custom catalogs are built with NewCatalog:

	cat, err := carve.NewCatalog(carve.FileSignature{
	    Type:         "jpg",
	    StartMarkers: [][]byte{{0xFF, 0xD8, 0xFF, 0xE0}},
	    EndMarker:    []byte{0xFF, 0xD9},
	})

# Events

Progress is reported as Events through a LogSink. LineSink prints
human-readable lines, SlogSink forwards to log/slog and MultiSink
combines sinks. Sinks are called from session goroutines and must be
safe for concurrent use.

# Observability

	coord := carve.NewCoordinator(nil,
	    carve.WithLogger(logger),
	    carve.WithMetrics(true),
	    carve.WithTracing(true),
	)

Metrics and spans use the global OpenTelemetry providers.
*/
package carve

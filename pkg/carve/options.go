package carve

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/randalmurphal/sigcarve/pkg/carve/observability"
)

// DefaultMaxConcurrency is the number of sessions allowed to scan at once.
const DefaultMaxConcurrency = 5

// runConfig holds configuration for a recovery run.
type runConfig struct {
	maxConcurrency int
	chunkSize      int
	checksum       ChecksumAlgorithm
	runID          string

	logger         *slog.Logger
	metricsEnabled bool
	tracingEnabled bool
	metrics        observability.MetricsRecorder
	spans          observability.SpanManager
}

// defaultRunConfig returns the default run configuration.
func defaultRunConfig() runConfig {
	return runConfig{
		maxConcurrency: DefaultMaxConcurrency,
		metrics:        observability.NoopMetrics{},
		spans:          observability.NoopSpanManager{},
	}
}

// resolve fills in the pieces that depend on other options.
func (c *runConfig) resolve() {
	if c.runID == "" {
		c.runID = uuid.NewString()
	}
	if c.metricsEnabled {
		c.metrics = observability.NewMetricsRecorder()
	}
	if c.tracingEnabled {
		c.spans = observability.NewSpanManager()
	}
}

// Option configures a Coordinator.
type Option func(*runConfig)

// WithMaxConcurrency sets how many sessions may scan at the same time.
// Default: 5
//
// Sessions beyond the limit are queued and start as slots free up.
// Values below 1 are ignored.
//
// Example:
//
//	coord := carve.NewCoordinator(catalog, carve.WithMaxConcurrency(2))
func WithMaxConcurrency(n int) Option {
	return func(c *runConfig) {
		if n > 0 {
			c.maxConcurrency = n
		}
	}
}

// WithChunkSize sets the chunk size used when a Request leaves it at 0.
// Default: DefaultChunkSize (512)
func WithChunkSize(n int) Option {
	return func(c *runConfig) {
		if n > 0 {
			c.chunkSize = n
		}
	}
}

// WithChecksum enables a digest over every artifact.
func WithChecksum(alg ChecksumAlgorithm) Option {
	return func(c *runConfig) {
		c.checksum = alg
	}
}

// WithRunID fixes the run identifier. Without it each run gets a random UUID.
func WithRunID(id string) Option {
	return func(c *runConfig) {
		c.runID = id
	}
}

// WithLogger enables structured run logging.
// Nil disables logging.
func WithLogger(logger *slog.Logger) Option {
	return func(c *runConfig) {
		c.logger = logger
	}
}

// WithMetrics enables OpenTelemetry metrics through the global meter provider.
func WithMetrics(enabled bool) Option {
	return func(c *runConfig) {
		c.metricsEnabled = enabled
	}
}

// WithTracing enables OpenTelemetry spans through the global tracer provider.
func WithTracing(enabled bool) Option {
	return func(c *runConfig) {
		c.tracingEnabled = enabled
	}
}

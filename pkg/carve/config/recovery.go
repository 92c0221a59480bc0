package config

import beaverconfig "github.com/gobeaver/beaver-kit/config"

// EnvPrefix is prepended to every environment variable read by FromEnv.
const EnvPrefix = "SIGCARVE_"

// Recovery holds the settings of a recovery run. Zero values mean "not set",
// so a layer only overrides the fields it names.
type Recovery struct {
	Source      string
	Destination string
	Types       []string
	ChunkSize   int
	Workers     int
	Checksum    string
	Exclusive   bool
	LogFormat   string
	LogLevel    string
	Metrics     bool
	Tracing     bool
}

// Merge returns base with every set field of override applied on top.
func Merge(base, override Recovery) Recovery {
	out := base
	if override.Source != "" {
		out.Source = override.Source
	}
	if override.Destination != "" {
		out.Destination = override.Destination
	}
	if len(override.Types) > 0 {
		out.Types = override.Types
	}
	if override.ChunkSize != 0 {
		out.ChunkSize = override.ChunkSize
	}
	if override.Workers != 0 {
		out.Workers = override.Workers
	}
	if override.Checksum != "" {
		out.Checksum = override.Checksum
	}
	if override.LogFormat != "" {
		out.LogFormat = override.LogFormat
	}
	if override.LogLevel != "" {
		out.LogLevel = override.LogLevel
	}
	out.Exclusive = out.Exclusive || override.Exclusive
	out.Metrics = out.Metrics || override.Metrics
	out.Tracing = out.Tracing || override.Tracing
	return out
}

// env mirrors Recovery for environment loading.
type env struct {
	Source      string `env:"SOURCE"`
	Destination string `env:"OUT"`
	Types       string `env:"TYPES"`
	ChunkSize   int    `env:"CHUNK_SIZE,default:0"`
	Workers     int    `env:"WORKERS,default:0"`
	Checksum    string `env:"DIGEST"`
	Exclusive   bool   `env:"EXCLUSIVE,default:false"`
	LogFormat   string `env:"LOG_FORMAT"`
	LogLevel    string `env:"LOG_LEVEL"`
	Metrics     bool   `env:"METRICS,default:false"`
	Tracing     bool   `env:"TRACING,default:false"`
}

// FromEnv reads SIGCARVE_* environment variables, for example
// SIGCARVE_SOURCE, SIGCARVE_OUT, SIGCARVE_TYPES=jpg,pdf and
// SIGCARVE_CHUNK_SIZE.
func FromEnv() (Recovery, error) {
	var e env
	if err := beaverconfig.Load(&e, beaverconfig.LoadOptions{Prefix: EnvPrefix}); err != nil {
		return Recovery{}, err
	}
	return Recovery{
		Source:      e.Source,
		Destination: e.Destination,
		Types:       SplitList(e.Types),
		ChunkSize:   e.ChunkSize,
		Workers:     e.Workers,
		Checksum:    e.Checksum,
		Exclusive:   e.Exclusive,
		LogFormat:   e.LogFormat,
		LogLevel:    e.LogLevel,
		Metrics:     e.Metrics,
		Tracing:     e.Tracing,
	}, nil
}

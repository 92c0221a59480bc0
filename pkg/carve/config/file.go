package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// document is the on-disk layout of a settings file. Unknown keys are
// rejected so a misspelled option fails loudly.
type document struct {
	Source      string `yaml:"source" json:"source"`
	Destination string `yaml:"destination" json:"destination"`
	Types       List   `yaml:"types" json:"types"`
	ChunkSize   int    `yaml:"chunk_size" json:"chunk_size"`
	Workers     int    `yaml:"workers" json:"workers"`
	Checksum    string `yaml:"checksum" json:"checksum"`
	Exclusive   bool   `yaml:"exclusive" json:"exclusive"`
	LogFormat   string `yaml:"log_format" json:"log_format"`
	LogLevel    string `yaml:"log_level" json:"log_level"`
	Metrics     bool   `yaml:"metrics" json:"metrics"`
	Tracing     bool   `yaml:"tracing" json:"tracing"`
}

func (d document) recovery() Recovery {
	return Recovery{
		Source:      d.Source,
		Destination: d.Destination,
		Types:       []string(d.Types),
		ChunkSize:   d.ChunkSize,
		Workers:     d.Workers,
		Checksum:    d.Checksum,
		Exclusive:   d.Exclusive,
		LogFormat:   d.LogFormat,
		LogLevel:    d.LogLevel,
		Metrics:     d.Metrics,
		Tracing:     d.Tracing,
	}
}

// FromFile loads settings from a file, choosing the format by extension.
// Supported extensions: .yaml, .yml, .json
func FromFile(path string) (Recovery, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Recovery{}, fmt.Errorf("read config file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		return FromYAML(data)
	case ".json":
		return FromJSON(data)
	default:
		return Recovery{}, fmt.Errorf("unsupported config file extension: %s", ext)
	}
}

// FromYAML parses YAML settings. An empty document yields zero settings.
func FromYAML(data []byte) (Recovery, error) {
	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return Recovery{}, fmt.Errorf("parse yaml: %w", err)
	}
	return doc.recovery(), nil
}

// FromJSON parses JSON settings.
func FromJSON(data []byte) (Recovery, error) {
	var doc document
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return Recovery{}, fmt.Errorf("parse json: %w", err)
	}
	return doc.recovery(), nil
}

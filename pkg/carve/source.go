package carve

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Source is an openable raw byte source: a block device, partition or image.
//
// Open must return an independent handle positioned at offset 0 on every
// call, since each session reads with its own forward-only cursor.
type Source interface {
	// Name identifies the source in logs and errors.
	Name() string

	// Open returns a new read handle.
	Open() (io.ReadCloser, error)
}

// FileSource reads a regular file or a block device.
type FileSource struct {
	// Path is the file or device path.
	Path string

	// Exclusive requests an exclusive open where the platform supports it.
	// On Linux a second exclusive open of a mounted or busy block device fails.
	Exclusive bool
}

// Name returns the path.
func (s FileSource) Name() string {
	return s.Path
}

// Open opens the path read-only.
func (s FileSource) Open() (io.ReadCloser, error) {
	f, err := openRaw(s.Path, s.Exclusive)
	if err != nil {
		return nil, &SourceError{Source: s.Path, Op: "open", Err: err}
	}
	return f, nil
}

// Compression identifies the container wrapped around a captured image.
type Compression string

// Supported image compressions.
const (
	CompressionNone Compression = ""
	CompressionGzip Compression = "gzip"
	CompressionZstd Compression = "zstd"
	CompressionLZ4  Compression = "lz4"
)

// CompressionFromPath infers the compression from a file extension.
func CompressionFromPath(path string) Compression {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz", ".gzip":
		return CompressionGzip
	case ".zst", ".zstd":
		return CompressionZstd
	case ".lz4":
		return CompressionLZ4
	default:
		return CompressionNone
	}
}

// CompressedSource decompresses a captured image while it is read.
// Chunk offsets refer to the decompressed stream.
type CompressedSource struct {
	Source      Source
	Compression Compression
}

// Name returns the wrapped source name.
func (s CompressedSource) Name() string {
	return s.Source.Name()
}

// Open opens the wrapped source and layers a decompressor on top.
func (s CompressedSource) Open() (io.ReadCloser, error) {
	raw, err := s.Source.Open()
	if err != nil {
		return nil, err
	}

	var dec io.Reader
	var closeDec func()
	switch s.Compression {
	case CompressionNone:
		return raw, nil
	case CompressionGzip:
		zr, err := gzip.NewReader(raw)
		if err != nil {
			raw.Close()
			return nil, &SourceError{Source: s.Name(), Op: "open", Err: fmt.Errorf("gzip header: %w", err)}
		}
		dec, closeDec = zr, func() { zr.Close() }
	case CompressionZstd:
		zr, err := zstd.NewReader(raw)
		if err != nil {
			raw.Close()
			return nil, &SourceError{Source: s.Name(), Op: "open", Err: fmt.Errorf("zstd decoder: %w", err)}
		}
		dec, closeDec = zr, zr.Close
	case CompressionLZ4:
		dec = lz4.NewReader(raw)
	default:
		raw.Close()
		return nil, &SourceError{Source: s.Name(), Op: "open", Err: fmt.Errorf("unsupported compression %q", s.Compression)}
	}

	return &decompressingReader{Reader: dec, raw: raw, closeDec: closeDec}, nil
}

type decompressingReader struct {
	io.Reader
	raw      io.Closer
	closeDec func()
}

func (r *decompressingReader) Close() error {
	if r.closeDec != nil {
		r.closeDec()
	}
	return r.raw.Close()
}

// OpenSource returns a Source for path, decompressing .gz, .zst and .lz4
// captures transparently.
func OpenSource(path string, exclusive bool) Source {
	src := FileSource{Path: path, Exclusive: exclusive}
	if c := CompressionFromPath(path); c != CompressionNone {
		return CompressedSource{Source: src, Compression: c}
	}
	return src
}

// BytesSource serves an in-memory image.
type BytesSource struct {
	// Label names the source; defaults to "memory".
	Label string
	Data  []byte
}

// Name returns the label.
func (s BytesSource) Name() string {
	if s.Label == "" {
		return "memory"
	}
	return s.Label
}

// Open returns a reader over Data.
func (s BytesSource) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(s.Data)), nil
}

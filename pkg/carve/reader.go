package carve

import (
	"errors"
	"fmt"
	"io"
)

// DefaultChunkSize matches a disk sector.
const DefaultChunkSize = 512

// ChunkReader reads a source front to back in fixed-size chunks.
// It owns its handle exclusively and never seeks backward.
// A ChunkReader is not safe for concurrent use.
type ChunkReader struct {
	name   string
	rc     io.ReadCloser
	buf    []byte
	offset int64
	index  int64
	done   bool
	err    error
}

// OpenChunkReader opens src and returns a reader yielding size-byte chunks.
// A size of 0 selects DefaultChunkSize. Open failures match ErrSourceUnavailable.
func OpenChunkReader(src Source, size int) (*ChunkReader, error) {
	if size < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidChunkSize, size)
	}
	if size == 0 {
		size = DefaultChunkSize
	}
	rc, err := src.Open()
	if err != nil {
		var se *SourceError
		if errors.As(err, &se) {
			return nil, err
		}
		return nil, &SourceError{Source: src.Name(), Op: "open", Err: err}
	}
	return &ChunkReader{name: src.Name(), rc: rc, buf: make([]byte, size)}, nil
}

// Next returns the next chunk, or io.EOF once the source is exhausted.
// The returned slice is only valid until the following call to Next.
// Only the last chunk of a source may be shorter than the chunk size.
func (r *ChunkReader) Next() ([]byte, error) {
	if r.err != nil {
		return nil, r.err
	}
	if r.done {
		return nil, io.EOF
	}

	n, err := io.ReadFull(r.rc, r.buf)
	switch {
	case err == nil:
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		r.done = true
		if n == 0 {
			return nil, io.EOF
		}
	default:
		// Bytes read before the failure are returned first; the error
		// follows on the next call.
		r.err = &SourceError{Source: r.name, Op: "read", Err: fmt.Errorf("at offset %d: %w", r.offset+int64(n), err)}
		if n == 0 {
			return nil, r.err
		}
	}

	r.offset += int64(n)
	r.index++
	return r.buf[:n], nil
}

// Offset returns the number of bytes consumed so far.
func (r *ChunkReader) Offset() int64 {
	return r.offset
}

// Chunks returns the number of chunks returned so far.
func (r *ChunkReader) Chunks() int64 {
	return r.index
}

// ChunkSize returns the configured chunk size.
func (r *ChunkReader) ChunkSize() int {
	return len(r.buf)
}

// Close releases the underlying handle.
func (r *ChunkReader) Close() error {
	return r.rc.Close()
}

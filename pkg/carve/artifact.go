package carve

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"hash"
	"os"
	"path/filepath"
)

// ArtifactName returns the output file name for the seq-th artifact of tag.
func ArtifactName(tag string, seq int) string {
	return fmt.Sprintf("%s_%d.%s", tag, seq, tag)
}

// artifactWriter owns one open output file until Close.
type artifactWriter struct {
	f    *os.File
	bw   *bufio.Writer
	hash hash.Hash
	art  RecoveredArtifact
}

func createArtifact(dir, tag string, seq int, offset int64, alg ChecksumAlgorithm) (*artifactWriter, error) {
	path := filepath.Join(dir, ArtifactName(tag, seq))
	h, err := NewHasher(alg)
	if err != nil {
		return nil, &DestinationError{Path: path, Op: "create", Err: err}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, &DestinationError{Path: path, Op: "create", Err: err}
	}
	return &artifactWriter{
		f:    f,
		bw:   bufio.NewWriterSize(f, 64*1024),
		hash: h,
		art: RecoveredArtifact{
			Type:         tag,
			Sequence:     seq,
			SourceOffset: offset,
			Path:         path,
		},
	}, nil
}

func (w *artifactWriter) Write(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	n, err := w.bw.Write(p)
	w.art.Length += int64(n)
	if err != nil {
		return &DestinationError{Path: w.art.Path, Op: "write", Err: err}
	}
	if w.hash != nil {
		w.hash.Write(p)
	}
	return nil
}

// Close flushes and closes the file. The file handle is released even
// when flushing fails.
func (w *artifactWriter) Close(complete, cancelled bool) (RecoveredArtifact, error) {
	flushErr := w.bw.Flush()
	closeErr := w.f.Close()

	w.art.Complete = complete
	w.art.Cancelled = cancelled && !complete
	if w.hash != nil {
		w.art.Digest = hex.EncodeToString(w.hash.Sum(nil))
	}

	switch {
	case flushErr != nil:
		return w.art, &DestinationError{Path: w.art.Path, Op: "write", Err: flushErr}
	case closeErr != nil:
		return w.art, &DestinationError{Path: w.art.Path, Op: "close", Err: closeErr}
	}
	return w.art, nil
}

// Package devices lists candidate raw sources on the local machine.
package devices

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/gobwas/glob"
)

// DefaultDir is where block devices live on Linux.
const DefaultDir = "/dev"

// DefaultPatterns match whole disks and partitions of common drivers.
var DefaultPatterns = []string{"sd*", "nvme*", "mmcblk*", "vd*", "xvd*", "hd*"}

// Descriptor describes one source found by a Lister.
type Descriptor struct {
	Path string
	// Size is the readable size in bytes, 0 when the source cannot be opened.
	Size int64
}

// Lister enumerates candidate sources.
type Lister interface {
	ListSources() ([]Descriptor, error)
}

// GlobLister lists the entries of Dir whose names match any of Patterns.
type GlobLister struct {
	Dir      string
	Patterns []string
}

// NewGlobLister returns a lister over DefaultDir with DefaultPatterns.
func NewGlobLister() *GlobLister {
	return &GlobLister{Dir: DefaultDir, Patterns: DefaultPatterns}
}

// ListSources returns the matching entries sorted by path.
func (l *GlobLister) ListSources() ([]Descriptor, error) {
	matchers := make([]glob.Glob, 0, len(l.Patterns))
	for _, p := range l.Patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compile pattern %q: %w", p, err)
		}
		matchers = append(matchers, g)
	}

	entries, err := os.ReadDir(l.Dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", l.Dir, err)
	}

	var out []Descriptor
	for _, e := range entries {
		if e.IsDir() || !matchAny(matchers, e.Name()) {
			continue
		}
		path := filepath.Join(l.Dir, e.Name())
		out = append(out, Descriptor{Path: path, Size: sizeOf(path)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func matchAny(matchers []glob.Glob, name string) bool {
	for _, g := range matchers {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// sizeOf seeks to the end, which works for block devices where Stat reports 0.
func sizeOf(path string) int64 {
	f, err := os.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()
	n, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return 0
	}
	return n
}

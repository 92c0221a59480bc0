package carve

import (
	"bytes"
	"fmt"
	"sort"
	"sync"
)

// FileSignature describes how one file type is recognised in raw bytes.
//
// StartMarkers are checked in order; when two markers match at the same
// offset the earlier entry wins. An empty start marker matches only at
// source offset 0. An empty EndMarker never matches, so the capture runs
// to the end of the source and is reported incomplete.
type FileSignature struct {
	Type         string
	StartMarkers [][]byte
	EndMarker    []byte
}

// MaxMarkerLen returns the length of the longest start or end marker.
func (s FileSignature) MaxMarkerLen() int {
	n := len(s.EndMarker)
	for _, m := range s.StartMarkers {
		if len(m) > n {
			n = len(m)
		}
	}
	return n
}

func (s FileSignature) clone() FileSignature {
	out := FileSignature{
		Type:         s.Type,
		StartMarkers: make([][]byte, len(s.StartMarkers)),
		EndMarker:    bytes.Clone(s.EndMarker),
	}
	for i, m := range s.StartMarkers {
		out.StartMarkers[i] = bytes.Clone(m)
		if out.StartMarkers[i] == nil {
			out.StartMarkers[i] = []byte{}
		}
	}
	return out
}

// Catalog is an immutable registry of file signatures keyed by type tag.
// It is safe for concurrent use.
type Catalog struct {
	entries map[string]FileSignature
	types   []string
}

// NewCatalog builds a catalog from the given signatures.
// Marker bytes are copied, so later changes to the arguments have no effect.
func NewCatalog(sigs ...FileSignature) (*Catalog, error) {
	c := &Catalog{entries: make(map[string]FileSignature, len(sigs))}
	for _, sig := range sigs {
		if sig.Type == "" {
			return nil, fmt.Errorf("%w: empty type tag", ErrInvalidSignature)
		}
		if len(sig.StartMarkers) == 0 {
			return nil, fmt.Errorf("%w: %s has no start markers", ErrInvalidSignature, sig.Type)
		}
		if _, dup := c.entries[sig.Type]; dup {
			return nil, fmt.Errorf("%w: duplicate type %s", ErrInvalidSignature, sig.Type)
		}
		c.entries[sig.Type] = sig.clone()
		c.types = append(c.types, sig.Type)
	}
	sort.Strings(c.types)
	return c, nil
}

// Lookup returns the signature registered for tag.
// The returned value is a copy and may be modified freely.
func (c *Catalog) Lookup(tag string) (FileSignature, error) {
	sig, ok := c.entries[tag]
	if !ok {
		return FileSignature{}, &UnknownTypeError{Types: []string{tag}}
	}
	return sig.clone(), nil
}

// Has reports whether tag is registered.
func (c *Catalog) Has(tag string) bool {
	_, ok := c.entries[tag]
	return ok
}

// Types returns the registered type tags in sorted order.
func (c *Catalog) Types() []string {
	return append([]string(nil), c.types...)
}

// Len returns the number of registered signatures.
func (c *Catalog) Len() int {
	return len(c.entries)
}

var (
	jpegStart = [][]byte{{0xFF, 0xD8, 0xFF, 0xE0}, {0xFF, 0xD8, 0xFF, 0xE1}}
	zipStart  = [][]byte{[]byte("PK\x03\x04")}
	zipEnd    = []byte("PK\x05\x06")
	oleStart  = [][]byte{{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}}
	mzStart   = [][]byte{[]byte("MZ")}
	riffStart = [][]byte{[]byte("RIFF")}
)

// selfTerminated builds a signature for a format without a trailer:
// the next occurrence of the first start marker ends the capture.
func selfTerminated(tag string, starts ...[]byte) FileSignature {
	return FileSignature{Type: tag, StartMarkers: starts, EndMarker: starts[0]}
}

// defaultSignatures covers archives, images, office containers,
// executables, media containers and plain text or markup.
// ZIP, OLE, MZ and RIFF containers share leading bytes across types.
func defaultSignatures() []FileSignature {
	return []FileSignature{
		// Images
		{Type: "jpg", StartMarkers: jpegStart, EndMarker: []byte{0xFF, 0xD9}},
		{Type: "png", StartMarkers: [][]byte{[]byte("\x89PNG\r\n\x1a\n")}, EndMarker: []byte("IEND\xae\x42\x60\x82")},
		{Type: "gif", StartMarkers: [][]byte{[]byte("GIF87a"), []byte("GIF89a")}, EndMarker: []byte{0x00, 0x3B}},
		selfTerminated("bmp", []byte("BM")),
		selfTerminated("webp", riffStart...),
		selfTerminated("psd", []byte("8BPS")),
		selfTerminated("tiff", []byte("II*\x00"), []byte("MM\x00*")),

		// Documents and office containers
		{Type: "pdf", StartMarkers: [][]byte{[]byte("%PDF-")}, EndMarker: []byte("%%EOF")},
		selfTerminated("doc", oleStart...),
		selfTerminated("xls", oleStart...),
		{Type: "docx", StartMarkers: zipStart, EndMarker: zipEnd},
		{Type: "xlsx", StartMarkers: zipStart, EndMarker: zipEnd},
		{Type: "epub", StartMarkers: zipStart, EndMarker: zipEnd},

		// Archives
		{Type: "zip", StartMarkers: zipStart, EndMarker: zipEnd},
		{Type: "jar", StartMarkers: zipStart, EndMarker: zipEnd},
		selfTerminated("rar", []byte("Rar!\x1a\x07\x00"), []byte("Rar!\x1a\x07\x01")),
		selfTerminated("7z", []byte{'7', 'z', 0xBC, 0xAF, 0x27, 0x1C}),
		selfTerminated("tar", []byte("ustar")),
		selfTerminated("gz", []byte{0x1F, 0x8B}),
		selfTerminated("tar.gz", []byte{0x1F, 0x8B, 0x08}),
		selfTerminated("iso", []byte("CD001")),
		selfTerminated("sqlite", []byte("SQLite format 3\x00")),

		// Executables
		selfTerminated("exe", mzStart...),
		selfTerminated("dll", mzStart...),
		selfTerminated("class", []byte{0xCA, 0xFE, 0xBA, 0xBE}),

		// Audio and video
		selfTerminated("mp3", []byte("ID3")),
		selfTerminated("wav", riffStart...),
		selfTerminated("avi", riffStart...),
		selfTerminated("mov", []byte("\x00\x00\x00\x14ftypqt")),
		selfTerminated("mp4", []byte("\x00\x00\x00\x18ftypmp4")),
		selfTerminated("flv", []byte("FLV\x01")),

		// Text and markup
		selfTerminated("json", []byte("{"), []byte("[")),
		selfTerminated("xml", []byte("<?xml")),
		{Type: "html", StartMarkers: [][]byte{[]byte("<!DOCTYPE html"), []byte("<html")}, EndMarker: []byte("</html>")},
		selfTerminated("css", []byte("/*"), []byte("@import")),
		selfTerminated("js", []byte("//"), []byte("function"), []byte("var")),
		selfTerminated("py", []byte("#"), []byte("import "), []byte("def ")),
		{Type: "txt", StartMarkers: [][]byte{{}}, EndMarker: nil},
	}
}

var (
	defaultCatalog     *Catalog
	defaultCatalogOnce sync.Once
)

// DefaultCatalog returns the built-in catalog. It is built once per process.
func DefaultCatalog() *Catalog {
	defaultCatalogOnce.Do(func() {
		c, err := NewCatalog(defaultSignatures()...)
		if err != nil {
			panic("carve: invalid built-in catalog: " + err.Error())
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

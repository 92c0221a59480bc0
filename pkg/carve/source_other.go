//go:build !unix

package carve

import "os"

// openRaw opens path read-only. Exclusive opens are not supported here.
func openRaw(path string, _ bool) (*os.File, error) {
	return os.Open(path)
}

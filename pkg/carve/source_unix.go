//go:build unix

package carve

import (
	"os"

	"golang.org/x/sys/unix"
)

// openRaw opens path read-only. On a Linux block device O_EXCL asks the
// kernel for an exclusive claim and fails with EBUSY if one is held.
func openRaw(path string, exclusive bool) (*os.File, error) {
	flags := unix.O_RDONLY | unix.O_CLOEXEC
	if exclusive {
		flags |= unix.O_EXCL
	}
	fd, err := unix.Open(path, flags, 0)
	if err != nil {
		return nil, &os.PathError{Op: "open", Path: path, Err: err}
	}
	return os.NewFile(uintptr(fd), path), nil
}

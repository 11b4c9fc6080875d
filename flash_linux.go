//go:build linux

package ffs

import (
	"os"

	"golang.org/x/sys/unix"
)

// openBacking opens path for a FileMedium on Linux, preferring O_DIRECT so
// reads/writes bypass the page cache the way a real flash controller would
// — matching the teacher's platform-split pattern (inode_linux.go vs
// inode_darwin.go) but applied to the flash adapter, the layer that
// actually talks to the OS file in this rewrite. O_DIRECT requires
// aligned, sized I/O on most filesystems; when the open fails for that
// reason we silently fall back to a buffered open rather than fail the
// mount, since FFS's correctness never depends on bypassing the cache.
// An advisory flock is taken for the process lifetime of the *os.File,
// since spec.md §5 assumes a single mount per image.
func openBacking(path string) (*os.File, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_DIRECT, 0644)
	if err != nil {
		f, err2 := os.OpenFile(path, os.O_RDWR, 0644)
		if err2 != nil {
			return nil, err2
		}
		if lerr := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); lerr != nil {
			f.Close()
			return nil, lerr
		}
		return f, nil
	}
	if lerr := unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB); lerr != nil {
		unix.Close(fd)
		return nil, lerr
	}
	return os.NewFile(uintptr(fd), path), nil
}

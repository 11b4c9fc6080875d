//go:build !linux

package ffs

import "os"

// openBacking is the portable fallback used on every GOOS other than
// Linux: a plain buffered open, mirroring the teacher's inode_darwin.go
// providing a simpler counterpart to the Linux-specific path.
func openBacking(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_RDWR, 0644)
}

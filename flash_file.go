package ffs

import (
	"os"
)

// AreaDesc describes one physical area's placement within a backing file
// or device, the Go analogue of struct ffs_area_desc consumed by restore/
// format in the original (spec.md §6 "Mount API").
type AreaDesc struct {
	Offset uint32
	Length uint32
}

// FileMedium is a Medium backed by a single *os.File, carved into areas by
// the AreaDesc table — grounded on the teacher's Superblock holding a
// plain io.ReaderAt (super.go: `fs io.ReaderAt`), generalized to
// read+write+erase over regions of one file instead of the whole file
// being one read-only image.
type FileMedium struct {
	f     *os.File
	areas []AreaDesc
}

// OpenFileMedium opens path as a FileMedium over the given area layout.
// On Linux this takes the platform-specific path in flash_linux.go
// (O_DIRECT when possible, plus an advisory flock); everywhere else it
// falls back to a plain os.OpenFile (flash_other.go), mirroring the
// teacher's inode_linux.go/inode_darwin.go build-tag split.
func OpenFileMedium(path string, areas []AreaDesc) (*FileMedium, error) {
	f, err := openBacking(path)
	if err != nil {
		return nil, newErr("open", ErrIO, err)
	}
	return &FileMedium{f: f, areas: areas}, nil
}

// CreateFileMedium creates (or truncates) path sized to fit every area,
// suitable for Format.
func CreateFileMedium(path string, areas []AreaDesc) (*FileMedium, error) {
	var total uint32
	for _, a := range areas {
		if end := a.Offset + a.Length; end > total {
			total = end
		}
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, newErr("create", ErrIO, err)
	}
	if err := f.Truncate(int64(total)); err != nil {
		f.Close()
		return nil, newErr("create", ErrIO, err)
	}
	return &FileMedium{f: f, areas: areas}, nil
}

func (m *FileMedium) Close() error { return m.f.Close() }

func (m *FileMedium) abs(area int, offset uint32) (int64, error) {
	if area < 0 || area >= len(m.areas) {
		return 0, newErr("abs", ErrInvalid, nil)
	}
	a := m.areas[area]
	if offset > a.Length {
		return 0, newErr("abs", ErrInvalid, nil)
	}
	return int64(a.Offset) + int64(offset), nil
}

func (m *FileMedium) ReadAt(area int, offset uint32, buf []byte) error {
	off, err := m.abs(area, offset)
	if err != nil {
		return err
	}
	if _, err := m.f.ReadAt(buf, off); err != nil {
		return newErr("read", ErrIO, err)
	}
	return nil
}

func (m *FileMedium) WriteAt(area int, offset uint32, buf []byte) error {
	off, err := m.abs(area, offset)
	if err != nil {
		return err
	}
	if _, err := m.f.WriteAt(buf, off); err != nil {
		return newErr("write", ErrIO, err)
	}
	return nil
}

func (m *FileMedium) Erase(area int) error {
	if area < 0 || area >= len(m.areas) {
		return newErr("erase", ErrInvalid, nil)
	}
	a := m.areas[area]
	blank := make([]byte, 4096)
	for i := range blank {
		blank[i] = 0xFF
	}
	var off uint32
	for off < a.Length {
		n := uint32(len(blank))
		if rem := a.Length - off; rem < n {
			n = rem
		}
		if _, err := m.f.WriteAt(blank[:n], int64(a.Offset+off)); err != nil {
			return newErr("erase", ErrIO, err)
		}
		off += n
	}
	return nil
}

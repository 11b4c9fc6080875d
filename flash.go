package ffs

// Medium is the flash I/O adapter contract (component A / spec.md §6
// "Flash medium contract"): read, write-once-per-location, full-area
// erase, and a copy primitive used by the GC. Areas are addressed by a
// logical index (0..len(areas)-1); Medium maps that to wherever the bytes
// actually live (a file, a byte slice, a real block device).
type Medium interface {
	ReadAt(area int, offset uint32, buf []byte) error
	WriteAt(area int, offset uint32, buf []byte) error
	Erase(area int) error
}

// copier is implemented by a Medium that can relocate bytes between areas
// more efficiently than read-then-write (e.g. an mmap'd file could memmove).
// copyArea falls back to read-then-write when a Medium doesn't implement it.
type copier interface {
	Copy(fromArea int, fromOff uint32, toArea int, toOff uint32, length uint32) error
}

// copyArea implements the flash copy primitive (spec.md §4.A): read-then-
// write in BlockSize chunks. It is not atomic — callers (the GC) must
// tolerate a destination left with a partial write if the process dies
// mid-copy, because the destination is always either scratch (re-scanned
// and re-validated on the next restore) or an append-only tail.
func copyArea(m Medium, fromArea int, fromOff uint32, toArea int, toOff uint32, length uint32) error {
	if c, ok := m.(copier); ok {
		return c.Copy(fromArea, fromOff, toArea, toOff, length)
	}
	buf := make([]byte, BlockSize)
	for length > 0 {
		n := uint32(len(buf))
		if length < n {
			n = length
		}
		chunk := buf[:n]
		if err := m.ReadAt(fromArea, fromOff, chunk); err != nil {
			return err
		}
		if err := m.WriteAt(toArea, toOff, chunk); err != nil {
			return err
		}
		fromOff += n
		toOff += n
		length -= n
	}
	return nil
}

// MemMedium is an in-memory Medium, used by tests (and the power-loss
// fuzzing scenario, which needs byte-exact control over what has "landed")
// in place of a real flash chip. Grounded on the teacher's mockReader
// (mock_test.go), generalized from read-only to read/write/erase.
type MemMedium struct {
	areas [][]byte
}

// NewMemMedium allocates a MemMedium with one zeroed byte slice per area
// length given.
func NewMemMedium(areaLengths []uint32) *MemMedium {
	m := &MemMedium{areas: make([][]byte, len(areaLengths))}
	for i, l := range areaLengths {
		m.areas[i] = make([]byte, l)
	}
	return m
}

func (m *MemMedium) ReadAt(area int, offset uint32, buf []byte) error {
	if area < 0 || area >= len(m.areas) {
		return newErr("read", ErrInvalid, nil)
	}
	a := m.areas[area]
	if uint64(offset)+uint64(len(buf)) > uint64(len(a)) {
		return newErr("read", ErrIO, nil)
	}
	copy(buf, a[offset:])
	return nil
}

func (m *MemMedium) WriteAt(area int, offset uint32, buf []byte) error {
	if area < 0 || area >= len(m.areas) {
		return newErr("write", ErrInvalid, nil)
	}
	a := m.areas[area]
	if uint64(offset)+uint64(len(buf)) > uint64(len(a)) {
		return newErr("write", ErrIO, nil)
	}
	copy(a[offset:], buf)
	return nil
}

func (m *MemMedium) Erase(area int) error {
	if area < 0 || area >= len(m.areas) {
		return newErr("erase", ErrInvalid, nil)
	}
	for i := range m.areas[area] {
		m.areas[area][i] = 0xFF
	}
	return nil
}


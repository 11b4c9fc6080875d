package ffs

import (
	"io"
	"io/fs"
	"path"
	"time"
)

// File is a POSIX-style file handle over an inode (component I), grounded
// on the teacher's File wrapping an Inode behind io.Reader/io.Seeker
// (file.go), generalized to also support writing and an explicit Close
// that releases the handle back to the file pool.
type File struct {
	mnt    *Mount
	ino    *Inode
	flags  OpenFlags
	offset int64
	closed bool
}

var _ io.ReadWriteSeeker = (*File)(nil)
var _ io.Closer = (*File)(nil)
var _ fs.File = (*File)(nil)

// fileinfo adapts an Inode to fs.FileInfo, matching the teacher's fileinfo
// type (file.go) but sourcing size from the RAM-cached block chain total
// rather than a disk-stored size field.
type fileinfo struct {
	ino  *Inode
	name string
}

var _ fs.FileInfo = (*fileinfo)(nil)

func (fi *fileinfo) Name() string       { return fi.name }
func (fi *fileinfo) Size() int64        { return int64(fi.ino.DataLen()) }
func (fi *fileinfo) Mode() fs.FileMode {
	if fi.ino.IsDir() {
		return fs.ModeDir | 0755
	}
	return 0644
}
func (fi *fileinfo) ModTime() time.Time { return time.Time{} }
func (fi *fileinfo) IsDir() bool        { return fi.ino.IsDir() }
func (fi *fileinfo) Sys() any           { return fi.ino }

// Open resolves path and returns a handle to it, creating the file first
// if OpenCreate is set and it does not yet exist — spec.md §4.I
// ffs_file_open.
func (mnt *Mount) Open(path string, flags OpenFlags) (*File, error) {
	mnt.lock()
	defer mnt.unlock()

	ino, err := mnt.find(path)
	if err != nil {
		if !flags.Has(OpenCreate) {
			return nil, err
		}
		dir, leaf, rerr := mnt.resolveParent(path)
		if rerr != nil {
			return nil, rerr
		}
		if dir.childNamed(leaf) != nil {
			return nil, newErr("open", ErrExists, nil)
		}
		created, cerr := mnt.newInode(dir.id, leaf, 0)
		if cerr != nil {
			return nil, cerr
		}
		if werr := mnt.writeInodeRecord(created); werr != nil {
			mnt.inodePool.free()
			return nil, werr
		}
		mnt.index.insert(created)
		dir.addChild(created)
		ino = created
	}

	if ino.IsDir() {
		return nil, newErr("open", ErrIsADirectory, nil)
	}
	if !mnt.filePool.alloc() {
		return nil, newErr("open", ErrOutOfResources, nil)
	}
	ino.AddRef()

	if flags.Has(OpenTruncate) && len(ino.blocks) > 0 {
		for _, b := range ino.blocks {
			if err := mnt.deleteBlockRecord(b); err != nil {
				return nil, err
			}
		}
		ino.blocks = nil
		ino.dataLen = 0
		ino.seq++
		if err := mnt.writeInodeRecord(ino); err != nil {
			return nil, err
		}
	}

	return &File{mnt: mnt, ino: ino, flags: flags}, nil
}

func (f *File) Stat() (fs.FileInfo, error) {
	return &fileinfo{ino: f.ino, name: path.Base(f.ino.Name())}, nil
}

func (f *File) Sys() any { return f.ino }

// Read implements io.Reader, spec.md §4.I ffs_file_read built atop
// Inode.readAt.
func (f *File) Read(p []byte) (int, error) {
	if f.closed {
		return 0, fs.ErrClosed
	}
	if !f.flags.Has(OpenRead) {
		return 0, newErr("read", ErrInvalid, nil)
	}
	f.mnt.lock()
	defer f.mnt.unlock()

	n, err := f.ino.readAt(f.mnt, uint32(f.offset), p)
	f.offset += int64(n)
	if err != nil {
		return n, err
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

// Write writes p at the file's current offset, spec.md §4.I ffs_file_write.
// A write wholly or partly within the existing data range overwrites: each
// block it overlaps is superseded by a new block at the same rank but a
// higher seq (§4.I "overwriting a range writes new blocks with the same
// rank as the superseded ones at a higher seq"), and the superseded block
// is tombstoned via deleteBlockRecord. Any remainder of p past the current
// end of file is appended as new blocks the normal way. Writing past the
// current end of file (leaving a hole) is not supported by the original
// and is rejected here too.
func (f *File) Write(p []byte) (int, error) {
	if f.closed {
		return 0, fs.ErrClosed
	}
	if !f.flags.Has(OpenWrite) {
		return 0, newErr("write", ErrInvalid, nil)
	}
	if uint32(f.offset) > f.ino.dataLen {
		return 0, newErr("write", ErrInvalid, nil)
	}
	f.mnt.lock()
	defer f.mnt.unlock()

	written := 0
	if uint32(f.offset) < f.ino.dataLen {
		n, err := f.overwriteRange(p)
		written += n
		f.offset += int64(n)
		if err != nil {
			return written, err
		}
		p = p[n:]
	}

	rank := uint32(len(f.ino.blocks))
	for len(p) > 0 {
		chunk := p
		if len(chunk) > BlockDataLen {
			chunk = chunk[:BlockDataLen]
		}
		b, err := f.mnt.newBlock(f.ino.id, rank, chunk)
		if err != nil {
			return written, err
		}
		if err := f.mnt.writeBlockRecord(b, chunk); err != nil {
			f.mnt.blockPool.free()
			return written, err
		}
		f.mnt.index.insert(b)
		f.ino.insertBlock(b)
		rank++
		written += len(chunk)
		f.offset += int64(len(chunk))
		p = p[len(chunk):]
	}
	return written, nil
}

// overwriteRange patches the portion of p that falls within the file's
// existing data (starting at f.offset, the caller has already checked
// f.offset < f.ino.dataLen), returning the number of leading bytes of p it
// consumed. Each block the range overlaps is replaced wholesale: its full
// payload is read back, the overlapping slice is patched in place, and the
// patched payload is written as a new block at the same rank and
// old.seq+1, leaving the old block to be tombstoned.
func (f *File) overwriteRange(p []byte) (int, error) {
	start := uint32(f.offset)
	writeEnd := start + uint32(len(p))
	consumed := uint32(0)

	old := append([]*Block(nil), f.ino.blocks...)
	var acc uint32
	for _, b := range old {
		blockStart := acc
		blockEnd := acc + uint32(b.dataLen)
		acc = blockEnd
		if b.flags.Has(BlockFlagDeleted) || writeEnd <= blockStart || start >= blockEnd {
			continue
		}

		data, err := b.readData(f.mnt)
		if err != nil {
			return int(consumed), err
		}
		patched := make([]byte, len(data))
		copy(patched, data)

		ovStart, ovEnd := start, writeEnd
		if blockStart > ovStart {
			ovStart = blockStart
		}
		if blockEnd < ovEnd {
			ovEnd = blockEnd
		}
		loStart, loEnd := ovStart-blockStart, ovEnd-blockStart
		srcStart := ovStart - start
		copy(patched[loStart:loEnd], p[srcStart:srcStart+(loEnd-loStart)])
		consumed += loEnd - loStart

		nb, err := f.mnt.newBlock(f.ino.id, b.rank, patched)
		if err != nil {
			return int(consumed), err
		}
		nb.seq = b.seq + 1
		if err := f.mnt.writeBlockRecord(nb, patched); err != nil {
			f.mnt.blockPool.free()
			return int(consumed), err
		}
		f.mnt.index.insert(nb)
		f.ino.insertBlock(nb)

		if err := f.mnt.deleteBlockRecord(b); err != nil {
			return int(consumed), err
		}
	}
	return int(consumed), nil
}

// Seek implements io.Seeker with io.SeekStart, io.SeekCurrent and
// io.SeekEnd. A later Write at a position inside the data overwrites from
// there; a Write at a position past the end of file is rejected.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	if f.closed {
		return 0, fs.ErrClosed
	}
	var base int64
	switch whence {
	case io.SeekStart:
		base = 0
	case io.SeekCurrent:
		base = f.offset
	case io.SeekEnd:
		base = int64(f.ino.DataLen())
	default:
		return 0, newErr("seek", ErrInvalid, nil)
	}
	pos := base + offset
	if pos < 0 {
		return 0, newErr("seek", ErrInvalid, nil)
	}
	f.offset = pos
	return pos, nil
}

// Close releases the handle's reference on the underlying inode and
// returns its slot to the file pool — spec.md §4.I ffs_file_close.
func (f *File) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	f.mnt.lock()
	defer f.mnt.unlock()
	f.ino.decRefcnt(f.mnt)
	f.mnt.filePool.free()
	return nil
}

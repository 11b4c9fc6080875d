package ffs

import (
	"encoding/binary"
	"errors"
)

// Restore rebuilds a Mount from an existing flash image by linearly
// scanning every non-scratch area, keeping the highest-seq copy of each id
// (invariant 2), then relinking the parent/child and inode/block graphs —
// spec.md §4.G "mount/restore".
func Restore(areas []AreaDesc, m Medium, opts ...Option) (*Mount, error) {
	if len(areas) < 2 {
		return nil, newErr("restore", ErrInvalid, errors.New("need at least one data area and one scratch area"))
	}

	mnt := newMount(m, len(areas))
	if err := mnt.applyOptions(opts); err != nil {
		return nil, err
	}

	// The GC role-swap (gc.go's gc()) reformats the old source area as the
	// new scratch, then clears the is_scratch flag on the old scratch area,
	// as two separate writes (spec.md §4.B "is_scratch is written ...
	// without rewriting the full header"). A crash between those two writes
	// leaves BOTH areas flagged is_scratch on disk at once. Picking
	// whichever is_scratch area sorts last by index ("last scratch wins")
	// would then depend on which of the two happens to have the higher
	// index, and could pick the one still holding the relocated live
	// records GC just copied in — silently losing them. Break the tie the
	// same way every other duplicate on this filesystem is broken
	// (invariant 2, highest seq wins): the freshly reformatted area always
	// has a strictly higher seq than the area whose flag-clear didn't land,
	// so it alone is the real scratch; any other is_scratch-flagged area is
	// scanned like an ordinary area instead of skipped.
	scratchSeq := int16(-1)
	for i := range areas {
		hdrBuf := make([]byte, diskAreaHeaderSize)
		if err := m.ReadAt(i, 0, hdrBuf); err != nil {
			return nil, newErr("restore", ErrIO, err)
		}
		hdr, ok := decodeAreaHeader(hdrBuf)
		if !ok {
			return nil, newErr("restore", ErrCorrupt, errors.New("bad area header"))
		}
		mnt.am.areas[i] = &Area{Offset: 0, Length: hdr.length, cur: diskAreaHeaderSize, seq: hdr.seq}
		if hdr.isScratch && int16(hdr.seq) > scratchSeq {
			mnt.am.scratch = i
			scratchSeq = int16(hdr.seq)
		}
	}
	if mnt.am.scratch < 0 {
		return nil, newErr("restore", ErrCorrupt, errors.New("no scratch area found"))
	}

	for i := range areas {
		if i == mnt.am.scratch {
			continue
		}
		mnt.scanArea(i)
	}

	mnt.linkTree()

	root := mnt.index.findInode(0)
	if root == nil {
		return nil, newErr("restore", ErrCorrupt, errors.New("missing root inode"))
	}
	mnt.root = root

	return mnt, nil
}

// scanArea walks area i's records from right after its header up to the
// first position that doesn't decode as a known record, which is either
// the erased tail of the log or an in-flight write truncated by a power
// loss (spec.md §8 "power loss truncates the log cleanly at a record
// boundary"). It never returns an error: a short/corrupt area is simply
// treated as ending at the last good record, exactly as invariant 3
// requires.
func (mnt *Mount) scanArea(i int) {
	area := mnt.am.areas[i]
	off := uint32(diskAreaHeaderSize)
	for off+4 <= area.Length {
		magicBuf := make([]byte, 4)
		if err := mnt.medium.ReadAt(i, off, magicBuf); err != nil {
			return
		}
		switch binary.LittleEndian.Uint32(magicBuf) {
		case inodeMagic:
			rec, err := mnt.readInodeRecord(uint16(i), off)
			if err != nil {
				return
			}
			mnt.restoreInode(uint16(i), off, rec)
			off += diskInodeHeaderSize + uint32(rec.filenameLn)
		case blockMagic:
			rec, err := mnt.readBlockRecord(uint16(i), off)
			if err != nil {
				return
			}
			mnt.restoreBlock(uint16(i), off, rec)
			off += diskBlockHeaderSize + uint32(rec.dataLen)
		default:
			return
		}
		area.cur = off
	}
}

// restoreInode indexes a decoded inode record, replacing any earlier copy
// of the same id only if this one's seq is strictly higher (invariant 2).
func (mnt *Mount) restoreInode(area uint16, offset uint32, rec *diskInode) {
	existing := mnt.index.findInode(rec.id)
	if existing != nil && rec.seq <= existing.seq {
		return
	}
	ino := &Inode{
		object:   object{id: rec.id, seq: rec.seq, areaID: area, offset: offset, typ: ObjInode},
		parentID: rec.parentID,
		flags:    rec.flags,
	}
	ino.setFilename(string(rec.filename))
	if existing != nil {
		mnt.index.replace(rec.id, ino)
	} else {
		mnt.index.insert(ino)
		mnt.inodePool.alloc()
	}
	mnt.observeID(rec.id)
}

// restoreBlock indexes a decoded block record under the same highest-seq
// rule as restoreInode.
func (mnt *Mount) restoreBlock(area uint16, offset uint32, rec *diskBlock) {
	existing := mnt.index.findBlock(rec.id)
	if existing != nil && rec.seq <= existing.seq {
		return
	}
	b := &Block{
		object:  object{id: rec.id, seq: rec.seq, areaID: area, offset: offset, typ: ObjBlock},
		inodeID: rec.inodeID,
		rank:    rec.rank,
		flags:   rec.flags,
		dataLen: rec.dataLen,
	}
	if existing != nil {
		mnt.index.replace(rec.id, b)
	} else {
		mnt.index.insert(b)
		mnt.blockPool.alloc()
	}
	mnt.observeID(rec.id)
}

// linkTree runs the two passes that turn the flat index built by scanArea
// into a navigable tree: first give every live, non-root inode its
// tree-membership reference, then attach it under its parent, then thread
// every live block onto its owning inode's chain (spec.md §4.G "second
// pass"). An inode whose parent no longer exists (the parent was deleted
// in a later record than any child update reached) is left unattached but
// stays in the index with its blocks. GC judges liveness by each record's
// own flags, not by reachability from the root, so it relocates such an
// inode like any other live one and does not reclaim it.
func (mnt *Mount) linkTree() {
	mnt.index.forEach(func(o baseObj) {
		ino, ok := o.(*Inode)
		if !ok || ino.id == 0 || ino.IsDeleted() {
			return
		}
		ino.refcnt = 1
	})
	mnt.index.forEach(func(o baseObj) {
		ino, ok := o.(*Inode)
		if !ok || ino.id == 0 || ino.IsDeleted() {
			return
		}
		if parent := mnt.index.findInode(ino.parentID); parent != nil {
			parent.addChild(ino)
		}
	})
	mnt.index.forEach(func(o baseObj) {
		b, ok := o.(*Block)
		if !ok || b.flags.Has(BlockFlagDeleted) {
			return
		}
		if ino := mnt.index.findInode(b.inodeID); ino != nil {
			ino.insertBlock(b)
		}
	})
}

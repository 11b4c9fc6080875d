package ffs

import (
	"errors"
	"sort"
)

// gc runs one copy-compact garbage collection pass (component H): the
// non-scratch area carrying the least live data is chosen, every live
// inode and block record still in it is rewritten into the scratch area
// with a bumped seq, the now-empty source area is erased and reformatted
// as the new scratch, and the former scratch — now full of relocated
// records — is promoted to an ordinary area by flipping its is_scratch bit
// in place (spec.md §4.H). required is passed to the source selector but
// not consulted: the pass does not check that it will free that much room,
// so the caller's retried reservation can still fail after it.
func (mnt *Mount) gc(required uint32) error {
	srcIdx, err := mnt.selectGCSource(required)
	if err != nil {
		return err
	}
	scratchIdx := mnt.am.scratch

	var liveInodes []*Inode
	var liveBlocks []*Block
	mnt.index.forEach(func(o baseObj) {
		if int(o.Area()) != srcIdx {
			return
		}
		switch v := o.(type) {
		case *Inode:
			if !v.IsDeleted() {
				liveInodes = append(liveInodes, v)
			}
		case *Block:
			if !v.flags.Has(BlockFlagDeleted) {
				liveBlocks = append(liveBlocks, v)
			}
		}
	})

	for _, ino := range liveInodes {
		if err := mnt.relocateInode(ino, scratchIdx); err != nil {
			return err
		}
	}
	for _, b := range liveBlocks {
		if err := mnt.relocateBlock(b, scratchIdx); err != nil {
			return err
		}
	}

	if err := mnt.medium.Erase(srcIdx); err != nil {
		return newErr("gc", ErrIO, err)
	}
	newSeq := mnt.am.areas[srcIdx].seq + 1
	length := mnt.am.areas[srcIdx].Length
	if err := mnt.am.formatArea(mnt.medium, srcIdx, length, newSeq, true); err != nil {
		return err
	}

	if err := patchScratchFlag(mnt.medium, scratchIdx, false); err != nil {
		return err
	}

	mnt.log.Printf("gc: reclaimed area %d, relocated %d inodes and %d blocks into area %d",
		srcIdx, len(liveInodes), len(liveBlocks), scratchIdx)
	return nil
}

// selectGCSource picks the non-scratch area with the least live data,
// skipping any candidate whose live data wouldn't fit in the scratch
// area's current free space.
func (mnt *Mount) selectGCSource(required uint32) (int, error) {
	liveBytes := make(map[int]uint32)
	mnt.index.forEach(func(o baseObj) {
		area := int(o.Area())
		if area == mnt.am.scratch {
			return
		}
		var sz uint32
		switch v := o.(type) {
		case *Inode:
			if v.IsDeleted() {
				return
			}
			sz = diskInodeHeaderSize + uint32(v.filenameLen)
		case *Block:
			if v.flags.Has(BlockFlagDeleted) {
				return
			}
			sz = diskBlockHeaderSize + uint32(v.dataLen)
		}
		liveBytes[area] += sz
	})

	type candidate struct {
		idx  int
		live uint32
	}
	var cands []candidate
	for i, a := range mnt.am.areas {
		if i == mnt.am.scratch || a == nil {
			continue
		}
		cands = append(cands, candidate{i, liveBytes[i]})
	}
	if len(cands) == 0 {
		return 0, newErr("gc", ErrNotEnoughSpace, errors.New("no reclaimable area"))
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i].live < cands[j].live })

	scratchFree := mnt.am.areas[mnt.am.scratch].freeSpace()
	for _, c := range cands {
		if c.live <= scratchFree {
			return c.idx, nil
		}
	}
	_ = required
	return 0, newErr("gc", ErrNotEnoughSpace, errors.New("no area's live data fits in scratch"))
}

func (mnt *Mount) relocateInode(ino *Inode, area int) error {
	name := []byte(ino.Name())
	ino.seq++
	buf := encodeInode(&diskInode{
		id:         ino.id,
		seq:        ino.seq,
		parentID:   ino.parentID,
		flags:      ino.flags,
		filenameLn: ino.filenameLen,
		filename:   name,
	})
	off, err := mnt.am.reserveIn(area, uint32(len(buf)))
	if err != nil {
		return err
	}
	if err := mnt.medium.WriteAt(area, off, buf); err != nil {
		return newErr("gc", ErrIO, err)
	}
	ino.areaID = uint16(area)
	ino.offset = off
	return nil
}

// relocateBlock rewrites b's header (new seq, recomputed ECC) at the new
// location and relocates its payload via the flash copy primitive
// (flash.go's copyArea/copier, spec.md §4.A) straight from the old location
// to the new one, rather than reading the payload into Go's heap first —
// the payload is usually far larger than the header and, unlike the
// header, doesn't change when seq bumps (encodeBlock's ECC covers only the
// header bytes), so there is nothing to patch on the way.
func (mnt *Mount) relocateBlock(b *Block, area int) error {
	oldArea, oldOff := int(b.areaID), b.offset
	b.seq++
	hdr := encodeBlock(&diskBlock{
		id:      b.id,
		seq:     b.seq,
		rank:    b.rank,
		inodeID: b.inodeID,
		flags:   b.flags,
		dataLen: b.dataLen,
	})
	off, err := mnt.am.reserveIn(area, uint32(len(hdr))+uint32(b.dataLen))
	if err != nil {
		return err
	}
	if err := mnt.medium.WriteAt(area, off, hdr); err != nil {
		return newErr("gc", ErrIO, err)
	}
	if b.dataLen > 0 {
		if err := copyArea(mnt.medium, oldArea, oldOff+diskBlockHeaderSize, area, off+diskBlockHeaderSize, uint32(b.dataLen)); err != nil {
			return newErr("gc", ErrIO, err)
		}
	}
	b.areaID = uint16(area)
	b.offset = off
	return nil
}

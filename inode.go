package ffs

import (
	"context"
	"sort"
)

// Inode is the in-RAM representation of a disk inode record (component E).
// A file's Blocks and a directory's Children are mutually exclusive,
// discriminated by flags.Has(InodeFlagDirectory) — DESIGN NOTES "Union of
// file/directory payload" as a sum type rather than two separate Go types,
// mirroring the teacher's single Inode struct switching behavior on
// ino.Type (inode.go).
type Inode struct {
	object

	parentID    uint32
	flags       InodeFlags
	filename    [ShortFilenameLen]byte
	filenameLen uint8

	refcnt uint32

	// directory payload
	children []*Inode

	// file payload, blocks kept sorted by rank ascending (invariant 5)
	blocks  []*Block
	dataLen uint32

	// parent is a lookup convenience, resolved by restore's second pass or
	// by add_child; it is not ownership (DESIGN NOTES "the parent pointer
	// in an inode is a lookup key, not ownership").
	parent *Inode
}

func (ino *Inode) Name() string {
	return string(ino.filename[:ino.filenameLen])
}

func (ino *Inode) IsDir() bool { return ino.flags.Has(InodeFlagDirectory) }

func (ino *Inode) IsDeleted() bool { return ino.flags.Has(InodeFlagDeleted) }

func (ino *Inode) IsDummy() bool { return ino.flags.Has(InodeFlagDummy) }

func (ino *Inode) ParentID() uint32 { return ino.parentID }

func (ino *Inode) DataLen() uint32 { return ino.dataLen }

func (ino *Inode) AddRef()           { ino.refcnt++ }
func (ino *Inode) RefCount() uint32  { return ino.refcnt }
func (ino *Inode) setFilename(name string) {
	ino.filenameLen = uint8(len(name))
	copy(ino.filename[:], name)
}

// insertBlock inserts b into ino.blocks ordered by rank ascending. Equal
// ranks resolve by seq descending: the newer record wins and the older is
// dropped, matching the resolution rule spec.md §4.E documents for inode
// rename (DESIGN NOTES "Open question" extends it to blocks). Updates the
// cached data length.
func (ino *Inode) insertBlock(b *Block) {
	i := sort.Search(len(ino.blocks), func(i int) bool {
		return ino.blocks[i].rank >= b.rank
	})
	if i < len(ino.blocks) && ino.blocks[i].rank == b.rank {
		if b.seq > ino.blocks[i].seq {
			ino.blocks[i] = b
		} // else: b is the superseded (older) copy, drop it
	} else {
		ino.blocks = append(ino.blocks, nil)
		copy(ino.blocks[i+1:], ino.blocks[i:])
		ino.blocks[i] = b
	}
	ino.recalcDataLen()
}

func (ino *Inode) recalcDataLen() {
	var total uint32
	for _, b := range ino.blocks {
		if !b.flags.Has(BlockFlagDeleted) {
			total += uint32(b.dataLen)
		}
	}
	ino.dataLen = total
}

// addChild links child into ino's child list. Caller (path resolver) must
// have already enforced sibling-name uniqueness (invariant 4).
func (ino *Inode) addChild(child *Inode) {
	child.parent = ino
	child.parentID = ino.id
	ino.children = append(ino.children, child)
}

// removeChild detaches child from ino's child list, if present.
func (ino *Inode) removeChild(child *Inode) {
	for i, c := range ino.children {
		if c == child {
			ino.children = append(ino.children[:i], ino.children[i+1:]...)
			return
		}
	}
}

func (ino *Inode) childNamed(name string) *Inode {
	for _, c := range ino.children {
		if c.Name() == name {
			return c
		}
	}
	return nil
}

// seek walks the block chain accumulating data_len until offset falls
// within a block, returning the previous block, the block containing
// offset, and the offset within that block — spec.md §4.E ffs_inode_seek.
func (ino *Inode) seek(offset uint32) (prev, cur *Block, within uint32) {
	var acc uint32
	for _, b := range ino.blocks {
		if b.flags.Has(BlockFlagDeleted) {
			continue
		}
		if offset < acc+uint32(b.dataLen) {
			return prev, b, offset - acc
		}
		acc += uint32(b.dataLen)
		prev = b
	}
	return prev, nil, 0
}

// readAt reads into buf starting at offset, across as many blocks as
// needed, clamping to the file's cached data length. Returns the number of
// bytes actually read.
func (ino *Inode) readAt(mnt *Mount, offset uint32, buf []byte) (int, error) {
	if offset >= ino.dataLen {
		return 0, nil
	}
	if remain := ino.dataLen - offset; uint32(len(buf)) > remain {
		buf = buf[:remain]
	}

	_, cur, within := ino.seek(offset)
	n := 0
	started := false
	for _, b := range ino.blocks {
		if b.flags.Has(BlockFlagDeleted) {
			continue
		}
		if !started {
			if b != cur {
				continue
			}
			started = true
		}
		data, err := b.readData(mnt)
		if err != nil {
			return n, err
		}
		if within > 0 {
			if within >= uint32(len(data)) {
				within -= uint32(len(data))
				continue
			}
			data = data[within:]
			within = 0
		}
		c := copy(buf[n:], data)
		n += c
		if n >= len(buf) {
			break
		}
	}
	return n, nil
}

// decRefcnt drops the refcount by one; once it reaches zero on an inode
// already deleted from the tree, the in-RAM object and its block chain are
// released (spec.md §4.E ffs_inode_dec_refcnt and §3 Lifecycle).
func (ino *Inode) decRefcnt(mnt *Mount) {
	if ino.refcnt > 0 {
		ino.refcnt--
	}
	if ino.refcnt == 0 && ino.IsDeleted() {
		mnt.index.removeID(ino.id)
		for _, b := range ino.blocks {
			mnt.index.removeID(b.id)
			mnt.blockPool.free()
		}
		ino.blocks = nil
		mnt.inodePool.free()
	}
}

// lookupChild resolves one slash-free path component under ino, ignoring
// ctx; used by the FUSE frontend's Lookup (fuse.go). Kept here, rather than
// in path.go, because it only ever touches Inode state.
func (ino *Inode) lookupChild(_ context.Context, name string) *Inode {
	return ino.childNamed(name)
}

package ffs

import (
	"errors"
	"sync"
)

const (
	defaultInodePoolSize = 256
	defaultBlockPoolSize = 1024
	defaultFilePoolSize  = 16
)

// Mount bundles every piece of global mutable state the original C
// implementation keeps as module-global tables (areas, hash index, root,
// next_id) into one value threaded through every API call — DESIGN NOTES
// "Global mount state": tests mount multiple independent instances, which
// a package-global table would not allow.
type Mount struct {
	mu sync.Mutex

	medium Medium
	am     *areaManager
	index  *index
	root   *Inode
	nextID uint32

	inodePool *pool
	blockPool *pool
	filePool  *pool

	inodePoolSize int
	blockPoolSize int
	filePoolSize  int

	log Logger
}

func newMount(m Medium, nAreas int) *Mount {
	mnt := &Mount{
		medium:        m,
		am:            newAreaManager(nAreas),
		index:         newIndex(),
		inodePoolSize: defaultInodePoolSize,
		blockPoolSize: defaultBlockPoolSize,
		filePoolSize:  defaultFilePoolSize,
		log:           discardLogger,
	}
	return mnt
}

func (mnt *Mount) applyOptions(opts []Option) error {
	for _, opt := range opts {
		if err := opt(mnt); err != nil {
			return err
		}
	}
	mnt.inodePool = newPool(mnt.inodePoolSize)
	mnt.blockPool = newPool(mnt.blockPoolSize)
	mnt.filePool = newPool(mnt.filePoolSize)
	return nil
}

// Format lays a fresh filesystem across the given areas: every area gets a
// disk header, the last area is designated scratch, and a root directory
// inode (id 0) is written into area 0 — spec.md §4.B/§6 "format".
func Format(areas []AreaDesc, m Medium, opts ...Option) (*Mount, error) {
	if len(areas) < 2 {
		return nil, newErr("format", ErrInvalid, errors.New("need at least one data area and one scratch area"))
	}
	if len(areas) > MaxAreas {
		return nil, newErr("format", ErrInvalid, errors.New("too many areas"))
	}

	mnt := newMount(m, len(areas))
	if err := mnt.applyOptions(opts); err != nil {
		return nil, err
	}

	scratchIdx := len(areas) - 1
	for i, a := range areas {
		if err := mnt.am.formatArea(m, i, a.Length, 0, i == scratchIdx); err != nil {
			return nil, err
		}
	}

	mnt.nextID = 1
	root, err := mnt.newInode(IDNone, "", InodeFlagDirectory)
	if err != nil {
		return nil, err
	}
	root.id = 0
	mnt.index.insert(root)
	if err := mnt.writeInodeRecord(root); err != nil {
		return nil, err
	}
	mnt.root = root

	return mnt, nil
}

// allocID hands out the next never-reused id (invariant 7).
func (mnt *Mount) allocID() uint32 {
	id := mnt.nextID
	mnt.nextID++
	return id
}

func (mnt *Mount) observeID(id uint32) {
	if id != IDNone && id >= mnt.nextID {
		mnt.nextID = id + 1
	}
}

// newInode allocates a fresh in-RAM inode (not yet written to disk).
func (mnt *Mount) newInode(parentID uint32, name string, flags InodeFlags) (*Inode, error) {
	if !mnt.inodePool.alloc() {
		return nil, newErr("alloc_inode", ErrOutOfResources, nil)
	}
	ino := &Inode{
		object:   object{id: mnt.allocID(), seq: 0, typ: ObjInode},
		parentID: parentID,
		flags:    flags,
		refcnt:   1,
	}
	ino.setFilename(name)
	return ino, nil
}

func (mnt *Mount) newBlock(inodeID uint32, rank uint32, data []byte) (*Block, error) {
	if !mnt.blockPool.alloc() {
		return nil, newErr("alloc_block", ErrOutOfResources, nil)
	}
	b := &Block{
		object:  object{id: mnt.allocID(), seq: 0, typ: ObjBlock},
		inodeID: inodeID,
		rank:    rank,
		dataLen: uint16(len(data)),
	}
	return b, nil
}

// reserve finds space for size bytes, invoking GC once and retrying if the
// first attempt fails — spec.md §4.B "prompting the caller to invoke GC and
// retry once".
func (mnt *Mount) reserve(size uint32) (int, uint32, error) {
	area, off, err := mnt.am.reserveSpace(size)
	if err == nil {
		return area, off, nil
	}
	if err2 := mnt.gc(size); err2 != nil {
		return 0, 0, err
	}
	return mnt.am.reserveSpace(size)
}

// writeInodeRecord encodes ino's current RAM state and appends it to flash,
// updating ino.areaID/ino.offset to the new location.
func (mnt *Mount) writeInodeRecord(ino *Inode) error {
	name := []byte(ino.Name())
	buf := encodeInode(&diskInode{
		id:         ino.id,
		seq:        ino.seq,
		parentID:   ino.parentID,
		flags:      ino.flags,
		filenameLn: ino.filenameLen,
		filename:   name,
	})
	area, off, err := mnt.reserve(uint32(len(buf)))
	if err != nil {
		return err
	}
	if err := mnt.medium.WriteAt(area, off, buf); err != nil {
		return newErr("write_inode", ErrIO, err)
	}
	ino.areaID = uint16(area)
	ino.offset = off
	return nil
}

// writeBlockRecord encodes and appends a block record, returning nothing:
// b.areaID/b.offset are updated in place.
func (mnt *Mount) writeBlockRecord(b *Block, data []byte) error {
	buf := encodeBlock(&diskBlock{
		id:      b.id,
		seq:     b.seq,
		rank:    b.rank,
		inodeID: b.inodeID,
		flags:   b.flags,
		dataLen: b.dataLen,
		data:    data,
	})
	area, off, err := mnt.reserve(uint32(len(buf)))
	if err != nil {
		return err
	}
	if err := mnt.medium.WriteAt(area, off, buf); err != nil {
		return newErr("write_block", ErrIO, err)
	}
	b.areaID = uint16(area)
	b.offset = off
	return nil
}

// deleteBlockRecord writes a tombstone for b (same id, bumped seq, DELETED
// flag set, empty payload) so both GC's liveness scan and restore's
// highest-seq resolution recognize it as dead, spec.md §4.E
// delete_list_from_disk, then releases its RAM bookkeeping. Used when a
// block is superseded by an overwrite or dropped by a truncate — without
// this, gc.go's liveness scan (which checks each block's own flags, not
// whether any inode still references it) would keep relocating it forever.
func (mnt *Mount) deleteBlockRecord(b *Block) error {
	b.flags |= BlockFlagDeleted
	b.seq++
	b.dataLen = 0
	if err := mnt.writeBlockRecord(b, nil); err != nil {
		return err
	}
	mnt.index.removeID(b.id)
	mnt.blockPool.free()
	return nil
}

// readInodeRecord reads back a full inode record (header + filename) from
// its current location.
func (mnt *Mount) readInodeRecord(area uint16, offset uint32) (*diskInode, error) {
	hdr := make([]byte, diskInodeHeaderSize)
	if err := mnt.medium.ReadAt(int(area), offset, hdr); err != nil {
		return nil, newErr("read_inode", ErrIO, err)
	}
	rec, ok := decodeInode(hdr)
	if !ok {
		return nil, newErr("read_inode", ErrCorrupt, nil)
	}
	if rec.filenameLn > 0 {
		name := make([]byte, rec.filenameLn)
		if err := mnt.medium.ReadAt(int(area), offset+diskInodeHeaderSize, name); err != nil {
			return nil, newErr("read_inode", ErrIO, err)
		}
		rec.filename = name
	}
	return rec, nil
}

// readBlockRecord reads back a full block record (header + payload).
func (mnt *Mount) readBlockRecord(area uint16, offset uint32) (*diskBlock, error) {
	hdr := make([]byte, diskBlockHeaderSize)
	if err := mnt.medium.ReadAt(int(area), offset, hdr); err != nil {
		return nil, newErr("read_block", ErrIO, err)
	}
	rec, ok := decodeBlock(hdr)
	if !ok {
		return nil, newErr("read_block", ErrCorrupt, nil)
	}
	if rec.dataLen > 0 {
		data := make([]byte, rec.dataLen)
		if err := mnt.medium.ReadAt(int(area), offset+diskBlockHeaderSize, data); err != nil {
			return nil, newErr("read_block", ErrIO, err)
		}
		rec.data = data
	}
	return rec, nil
}

// PoolUsage reports how much of each fixed-capacity resource pool
// (component K) is currently allocated, for diagnostics (cmd/ffsutil's
// info subcommand).
type PoolUsage struct {
	InodesUsed, InodesCap int
	BlocksUsed, BlocksCap int
	FilesUsed, FilesCap   int
}

func (mnt *Mount) PoolUsage() PoolUsage {
	mnt.lock()
	defer mnt.unlock()
	return PoolUsage{
		InodesUsed: mnt.inodePool.len(), InodesCap: mnt.inodePoolSize,
		BlocksUsed: mnt.blockPool.len(), BlocksCap: mnt.blockPoolSize,
		FilesUsed: mnt.filePool.len(), FilesCap: mnt.filePoolSize,
	}
}

// FreeSpace sums free bytes across every non-scratch area (area.go's
// totalFree), for diagnostics.
func (mnt *Mount) FreeSpace() uint32 {
	mnt.lock()
	defer mnt.unlock()
	return mnt.am.totalFree()
}

// lock/unlock make the "single task serializes all entry points" rule
// (spec.md §5) mechanical: the exported Mount methods take mnt.mu first
// and release it before returning, never holding it across a GC retry's
// caller-visible boundary. ReadDir and Walk (dir.go) take no lock.
func (mnt *Mount) lock()   { mnt.mu.Lock() }
func (mnt *Mount) unlock() { mnt.mu.Unlock() }

package ffs

// Block is the in-RAM representation of a disk block record (component E).
// Blocks point back to their owning inode by id, not by an owning Go
// pointer cycle — DESIGN NOTES "Cyclic ownership": inode id is already a
// stable handle, so the inode->block and block->inode links are both
// non-owning references into the index.
type Block struct {
	object

	inodeID uint32
	rank    uint32
	flags   BlockFlags
	dataLen uint16
}

func (b *Block) InodeID() uint32 { return b.inodeID }
func (b *Block) Rank() uint32    { return b.rank }
func (b *Block) DataLen() uint16 { return b.dataLen }

// readData fetches this block's payload from the medium via the area it
// currently lives in (which may have moved under GC — Block.Area()/Offset()
// are always kept current, invariant 1).
func (b *Block) readData(mnt *Mount) ([]byte, error) {
	rec, err := mnt.readBlockRecord(b.areaID, b.offset)
	if err != nil {
		return nil, err
	}
	return rec.data, nil
}

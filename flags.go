package ffs

// Fixed layout constants (spec.md §6). These sizes and magic values are
// part of the on-disk format and must never change without a format
// version bump.
const (
	BlockSize        = 512
	ShortFilenameLen = 16
	HashSize         = 256
	MaxAreas         = 32
	BlockMaxDataSz   = 2048

	IDNone = 0xFFFFFFFF

	areaIDScratch       = 0xFFFF
	areaOffsetIsScratch = 23
)

// Magic constants identifying each record type at the start of its
// on-disk encoding, so a linear scanner can resync cheaply.
var (
	areaMagic  = [4]uint32{0xb98a31e2, 0x7fb0428c, 0xace08253, 0xb185fc8e}
	blockMagic = uint32(0x53ba23b9)
	inodeMagic = uint32(0x925f8bc0)
)

// diskInodeHeaderSize is sizeof(struct ffs_disk_inode) before the filename.
const diskInodeHeaderSize = 4 + 4 + 4 + 4 + 2 + 1 + 4 // magic,id,seq,parent_id,flags,filename_len,ecc

// diskBlockHeaderSize is sizeof(struct ffs_disk_block) before the data.
const diskBlockHeaderSize = 4 + 4 + 4 + 4 + 4 + 2 + 2 + 2 + 4 // magic,id,seq,rank,inode_id,reserved16,flags,data_len,ecc

// BlockDataLen is the maximum payload a single block record can carry in
// one BlockSize-aligned slot.
const BlockDataLen = BlockSize - diskBlockHeaderSize

// diskAreaHeaderSize is sizeof(struct ffs_disk_area): 4 magics + length +
// reserved16 + seq + is_scratch.
const diskAreaHeaderSize = 4*4 + 4 + 2 + 1 + 1

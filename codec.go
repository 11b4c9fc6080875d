package ffs

import (
	"encoding/binary"
	"hash/crc32"
)

// diskInode is the on-disk encoding of an inode record (spec.md §3 "Disk
// inode record"), decoded with the same sequential binary.Read-style field
// reads the teacher uses in inode.go, but written out explicitly rather
// than via reflection since the layout here is fixed (squashfs's
// Superblock.UnmarshalBinary uses reflect.Value field-walking because its
// header has many same-typed fields in a row; ours has only seven, so a
// straight field list reads clearer).
type diskInode struct {
	id         uint32
	seq        uint32
	parentID   uint32
	flags      InodeFlags
	filenameLn uint8
	ecc        uint32
	filename   []byte
}

// diskBlock is the on-disk encoding of a block record (spec.md §3 "Disk
// block record").
type diskBlock struct {
	id      uint32
	seq     uint32
	rank    uint32
	inodeID uint32
	flags   BlockFlags
	dataLen uint16
	ecc     uint32
	data    []byte
}

// eccOf computes the reserved ECC word as a CRC-32 (IEEE) over the header
// bytes preceding it, per DESIGN NOTES "ECC field". Magic alone gates
// whether a record is considered present: decodeInode and decodeBlock read
// the stored ECC word but do not verify it.
func eccOf(b []byte) uint32 {
	return crc32.ChecksumIEEE(b)
}

func encodeInode(ino *diskInode) []byte {
	buf := make([]byte, diskInodeHeaderSize+len(ino.filename))
	binary.LittleEndian.PutUint32(buf[0:], inodeMagic)
	binary.LittleEndian.PutUint32(buf[4:], ino.id)
	binary.LittleEndian.PutUint32(buf[8:], ino.seq)
	binary.LittleEndian.PutUint32(buf[12:], ino.parentID)
	binary.LittleEndian.PutUint16(buf[16:], uint16(ino.flags))
	buf[18] = ino.filenameLn
	binary.LittleEndian.PutUint32(buf[19:], eccOf(buf[:19]))
	copy(buf[diskInodeHeaderSize:], ino.filename)
	return buf
}

// decodeInode parses a disk inode record starting at buf[0]. buf must be
// at least diskInodeHeaderSize bytes; the caller is responsible for having
// read filenameLn further bytes once known (the two-phase read in
// mount.go's readInodeRecord).
func decodeInode(buf []byte) (*diskInode, bool) {
	if len(buf) < diskInodeHeaderSize {
		return nil, false
	}
	if binary.LittleEndian.Uint32(buf[0:]) != inodeMagic {
		return nil, false
	}
	ino := &diskInode{
		id:         binary.LittleEndian.Uint32(buf[4:]),
		seq:        binary.LittleEndian.Uint32(buf[8:]),
		parentID:   binary.LittleEndian.Uint32(buf[12:]),
		flags:      InodeFlags(binary.LittleEndian.Uint16(buf[16:])),
		filenameLn: buf[18],
		ecc:        binary.LittleEndian.Uint32(buf[19:]),
	}
	return ino, true
}

func encodeBlock(b *diskBlock) []byte {
	buf := make([]byte, diskBlockHeaderSize+len(b.data))
	binary.LittleEndian.PutUint32(buf[0:], blockMagic)
	binary.LittleEndian.PutUint32(buf[4:], b.id)
	binary.LittleEndian.PutUint32(buf[8:], b.seq)
	binary.LittleEndian.PutUint32(buf[12:], b.rank)
	binary.LittleEndian.PutUint32(buf[16:], b.inodeID)
	binary.LittleEndian.PutUint16(buf[20:], 0) // reserved16
	binary.LittleEndian.PutUint16(buf[22:], uint16(b.flags))
	binary.LittleEndian.PutUint16(buf[24:], b.dataLen)
	binary.LittleEndian.PutUint32(buf[26:], eccOf(buf[:26]))
	copy(buf[diskBlockHeaderSize:], b.data)
	return buf
}

func decodeBlock(buf []byte) (*diskBlock, bool) {
	if len(buf) < diskBlockHeaderSize {
		return nil, false
	}
	if binary.LittleEndian.Uint32(buf[0:]) != blockMagic {
		return nil, false
	}
	b := &diskBlock{
		id:      binary.LittleEndian.Uint32(buf[4:]),
		seq:     binary.LittleEndian.Uint32(buf[8:]),
		rank:    binary.LittleEndian.Uint32(buf[12:]),
		inodeID: binary.LittleEndian.Uint32(buf[16:]),
		flags:   BlockFlags(binary.LittleEndian.Uint16(buf[22:])),
		dataLen: binary.LittleEndian.Uint16(buf[24:]),
		ecc:     binary.LittleEndian.Uint32(buf[26:]),
	}
	return b, true
}

// diskAreaHeader is the on-disk encoding of an area header (spec.md §3
// "Disk area header").
type diskAreaHeader struct {
	length    uint32
	seq       uint8
	isScratch bool
}

func encodeAreaHeader(h *diskAreaHeader) []byte {
	buf := make([]byte, diskAreaHeaderSize)
	for i, m := range areaMagic {
		binary.LittleEndian.PutUint32(buf[i*4:], m)
	}
	binary.LittleEndian.PutUint32(buf[16:], h.length)
	binary.LittleEndian.PutUint16(buf[20:], 0) // reserved16
	buf[22] = h.seq
	if h.isScratch {
		buf[areaOffsetIsScratch] = 1
	}
	return buf
}

func decodeAreaHeader(buf []byte) (*diskAreaHeader, bool) {
	if len(buf) < diskAreaHeaderSize {
		return nil, false
	}
	for i, m := range areaMagic {
		if binary.LittleEndian.Uint32(buf[i*4:]) != m {
			return nil, false
		}
	}
	return &diskAreaHeader{
		length:    binary.LittleEndian.Uint32(buf[16:]),
		seq:       buf[22],
		isScratch: buf[areaOffsetIsScratch] != 0,
	}, true
}

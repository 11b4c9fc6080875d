package ffs

// object is the base every persistent in-RAM object embeds: the
// disk-identity half of the tagged union described in DESIGN NOTES
// "Tagged object union" (Inode and Block share this base instead of an
// inheritance hierarchy; Type() is the discriminant).
type object struct {
	id     uint32
	seq    uint32
	areaID uint16
	offset uint32
	typ    ObjType
}

func (o *object) ID() uint32     { return o.id }
func (o *object) Seq() uint32    { return o.seq }
func (o *object) Type() ObjType  { return o.typ }
func (o *object) Area() uint16   { return o.areaID }
func (o *object) Offset() uint32 { return o.offset }

// baseObj is what the hash index (component D) stores and iterates: enough
// to satisfy invariants 1-2 (area_id/offset addresses a valid record of
// matching id/seq; highest seq wins) without the index caring whether the
// object behind it is an *Inode or a *Block.
type baseObj interface {
	ID() uint32
	Seq() uint32
	Type() ObjType
	Area() uint16
	Offset() uint32
}

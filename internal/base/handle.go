package base

// BlockHandle is a byte range inside a segment file: (offset, size).
type BlockHandle struct {
	Offset uint64
	Size   uint32
}

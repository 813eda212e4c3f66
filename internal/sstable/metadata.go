// Package sstable implements the immutable segment (SSTable) subsystem:
// metadata, the combined data+index+bloom file layout (§6.1), the point-read
// algorithm (§4.J), cursors (§4.K), and the writer that builds new segments
// (§4.K MultiWriter).
package sstable

import (
	"encoding/binary"
	"time"

	"github.com/nilotpaldev/strata/internal/base"
	"github.com/nilotpaldev/strata/pkg/options"

	strataerrors "github.com/nilotpaldev/strata/pkg/errors"
)

// Metadata is the persisted-per-segment record described in §3.
type Metadata struct {
	ID                  uint64
	CreatedAt           int64
	FileSize            uint64
	UncompressedSize     uint64
	Compression         options.Compression
	DataBlockSize       uint32
	IndexBlockSize      uint32
	DataBlockCount      uint32
	IndexBlockCount     uint32
	ItemCount           uint64
	KeyCount            uint64
	TombstoneCount      uint64
	RangeTombstoneCount uint64
	KeyRange            base.KeyRange
	MinSeqNo            base.SeqNo
	MaxSeqNo            base.SeqNo
}

// encode serializes metadata into a flat, length-prefixed byte form. This
// rides through the same block codec as data/index blocks (the "properties
// block" idiom — see SPEC_FULL.md) so new fields can be appended later without
// touching the trailer format.
func (m Metadata) encode() []byte {
	var buf []byte

	var fixed [8*8 + 4*4 + 1]byte
	binary.BigEndian.PutUint64(fixed[0:8], m.ID)
	binary.BigEndian.PutUint64(fixed[8:16], uint64(m.CreatedAt))
	binary.BigEndian.PutUint64(fixed[16:24], m.FileSize)
	binary.BigEndian.PutUint64(fixed[24:32], m.UncompressedSize)
	binary.BigEndian.PutUint64(fixed[32:40], m.ItemCount)
	binary.BigEndian.PutUint64(fixed[40:48], m.KeyCount)
	binary.BigEndian.PutUint64(fixed[48:56], m.TombstoneCount)
	binary.BigEndian.PutUint64(fixed[56:64], m.RangeTombstoneCount)
	binary.BigEndian.PutUint32(fixed[64:68], m.DataBlockSize)
	binary.BigEndian.PutUint32(fixed[68:72], m.IndexBlockSize)
	binary.BigEndian.PutUint32(fixed[72:76], m.DataBlockCount)
	binary.BigEndian.PutUint32(fixed[76:80], m.IndexBlockCount)
	fixed[80] = byte(m.Compression)
	buf = append(buf, fixed[:]...)

	var seqnos [16]byte
	binary.BigEndian.PutUint64(seqnos[0:8], uint64(m.MinSeqNo))
	binary.BigEndian.PutUint64(seqnos[8:16], uint64(m.MaxSeqNo))
	buf = append(buf, seqnos[:]...)

	buf = appendLenPrefixed(buf, m.KeyRange.Min)
	buf = appendLenPrefixed(buf, m.KeyRange.Max)

	return buf
}

func appendLenPrefixed(dst []byte, b []byte) []byte {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(b)))
	dst = append(dst, lenBuf[:]...)
	return append(dst, b...)
}

func readLenPrefixed(src []byte, offset int) ([]byte, int, error) {
	if len(src) < offset+4 {
		return nil, 0, strataerrors.NewDeserializeError(nil, "metadata").
			WithDetail("reason", "truncated length prefix")
	}
	n := int(binary.BigEndian.Uint32(src[offset : offset+4]))
	offset += 4
	if len(src) < offset+n {
		return nil, 0, strataerrors.NewDeserializeError(nil, "metadata").
			WithDetail("reason", "truncated field body")
	}
	out := make([]byte, n)
	copy(out, src[offset:offset+n])
	return out, offset + n, nil
}

// decodeMetadata parses the flat byte form written by encode.
func decodeMetadata(buf []byte) (Metadata, error) {
	const fixedLen = 8*8 + 4*4 + 1
	if len(buf) < fixedLen+16 {
		return Metadata{}, strataerrors.NewDeserializeError(nil, "metadata").
			WithDetail("reason", "truncated metadata block")
	}

	m := Metadata{
		ID:                  binary.BigEndian.Uint64(buf[0:8]),
		CreatedAt:           int64(binary.BigEndian.Uint64(buf[8:16])),
		FileSize:            binary.BigEndian.Uint64(buf[16:24]),
		UncompressedSize:    binary.BigEndian.Uint64(buf[24:32]),
		ItemCount:           binary.BigEndian.Uint64(buf[32:40]),
		KeyCount:            binary.BigEndian.Uint64(buf[40:48]),
		TombstoneCount:      binary.BigEndian.Uint64(buf[48:56]),
		RangeTombstoneCount: binary.BigEndian.Uint64(buf[56:64]),
		DataBlockSize:       binary.BigEndian.Uint32(buf[64:68]),
		IndexBlockSize:      binary.BigEndian.Uint32(buf[68:72]),
		DataBlockCount:      binary.BigEndian.Uint32(buf[72:76]),
		IndexBlockCount:     binary.BigEndian.Uint32(buf[76:80]),
		Compression:         options.Compression(buf[80]),
	}

	offset := fixedLen
	m.MinSeqNo = base.SeqNo(binary.BigEndian.Uint64(buf[offset : offset+8]))
	m.MaxSeqNo = base.SeqNo(binary.BigEndian.Uint64(buf[offset+8 : offset+16]))
	offset += 16

	minKey, offset, err := readLenPrefixed(buf, offset)
	if err != nil {
		return Metadata{}, err
	}
	maxKey, _, err := readLenPrefixed(buf, offset)
	if err != nil {
		return Metadata{}, err
	}
	m.KeyRange = base.NewKeyRange(minKey, maxKey)

	return m, nil
}

func nowUnix() int64 {
	return time.Now().Unix()
}

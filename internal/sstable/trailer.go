package sstable

import (
	"encoding/binary"

	strataerrors "github.com/nilotpaldev/strata/pkg/errors"
)

// trailerSize is the fixed footer written at the end of every segment file
// (§6.1): a region offset table followed by a magic number and a format
// version, so a reader can locate every region with a single tail read
// before it has decoded anything else.
const trailerSize = 64

const trailerMagic uint32 = 0x5354_5254 // "STRT"
const trailerVersion uint32 = 1

// trailer is the decoded region offset table. The index-block region, TLI,
// metadata and file-size fields are always populated; bloom is 0 when the
// segment carries no filter. The range-tombstone and prefix-index offsets
// are always written as 0.
type trailer struct {
	IndexBlockRegionOffset uint64
	TLIOffset              uint64
	BloomOffset            uint64
	RangeTombstoneOffset   uint64
	PrefixIndexOffset      uint64
	MetadataOffset         uint64
	FileSize               uint64
}

func (t trailer) encode() []byte {
	var buf [trailerSize]byte
	binary.BigEndian.PutUint64(buf[0:8], t.IndexBlockRegionOffset)
	binary.BigEndian.PutUint64(buf[8:16], t.TLIOffset)
	binary.BigEndian.PutUint64(buf[16:24], t.BloomOffset)
	binary.BigEndian.PutUint64(buf[24:32], t.RangeTombstoneOffset)
	binary.BigEndian.PutUint64(buf[32:40], t.PrefixIndexOffset)
	binary.BigEndian.PutUint64(buf[40:48], t.MetadataOffset)
	binary.BigEndian.PutUint64(buf[48:56], t.FileSize)
	binary.BigEndian.PutUint32(buf[56:60], trailerMagic)
	binary.BigEndian.PutUint32(buf[60:64], trailerVersion)
	return buf[:]
}

func decodeTrailer(buf []byte) (trailer, error) {
	if len(buf) != trailerSize {
		return trailer{}, strataerrors.NewDeserializeError(nil, "trailer").
			WithDetail("reason", "wrong trailer size")
	}

	magic := binary.BigEndian.Uint32(buf[56:60])
	if magic != trailerMagic {
		return trailer{}, strataerrors.NewDeserializeError(nil, "trailer").
			WithDetail("reason", "bad magic")
	}

	version := binary.BigEndian.Uint32(buf[60:64])
	if version != trailerVersion {
		return trailer{}, strataerrors.NewInvalidVersionError("segment_trailer", version, trailerVersion)
	}

	return trailer{
		IndexBlockRegionOffset: binary.BigEndian.Uint64(buf[0:8]),
		TLIOffset:              binary.BigEndian.Uint64(buf[8:16]),
		BloomOffset:            binary.BigEndian.Uint64(buf[16:24]),
		RangeTombstoneOffset:   binary.BigEndian.Uint64(buf[24:32]),
		PrefixIndexOffset:      binary.BigEndian.Uint64(buf[32:40]),
		MetadataOffset:         binary.BigEndian.Uint64(buf[40:48]),
		FileSize:               binary.BigEndian.Uint64(buf[48:56]),
	}, nil
}

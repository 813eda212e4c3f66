package encoding

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/nilotpaldev/strata/pkg/options"

	strataerrors "github.com/nilotpaldev/strata/pkg/errors"
)

// FrameHeaderSize is the fixed size, in bytes, of a block frame's header:
// u32 uncompressed_size | u32 compressed_size | u8 compression | u32 crc32.
const FrameHeaderSize = 4 + 4 + 1 + 4

// EncodeBlockFrame appends the framed envelope for a block whose payload,
// once decompressed, is uncompressedSize bytes, to dst. compressedPayload
// is exactly what will be written to disk (already run through whichever
// codec `compression` names). The CRC32 (IEEE polynomial, matching the
// checksum every LevelDB/RocksDB-family format on-disk layout in the
// retrieval pack uses) is computed over compressedPayload.
func EncodeBlockFrame(dst []byte, uncompressedSize int, compressedPayload []byte, compression options.Compression) []byte {
	var header [FrameHeaderSize]byte
	binary.BigEndian.PutUint32(header[0:4], uint32(uncompressedSize))
	binary.BigEndian.PutUint32(header[4:8], uint32(len(compressedPayload)))
	header[8] = byte(compression)
	binary.BigEndian.PutUint32(header[9:13], crc32.ChecksumIEEE(compressedPayload))

	dst = append(dst, header[:]...)
	dst = append(dst, compressedPayload...)
	return dst
}

// DecodedFrame is the parsed, CRC-verified header plus the still-compressed
// payload bytes of one block frame.
type DecodedFrame struct {
	UncompressedSize int
	Compression      options.Compression
	Payload          []byte
}

// DecodeBlockFrame parses and CRC-verifies one framed block from the front
// of src, returning the frame and the number of bytes consumed. It does
// NOT decompress the payload — that is internal/block's job, since it owns
// the concrete codec bindings.
func DecodeBlockFrame(src []byte) (DecodedFrame, int, error) {
	if len(src) < FrameHeaderSize {
		return DecodedFrame{}, 0, strataerrors.NewDeserializeError(nil, "block_frame").
			WithDetail("reason", "truncated header")
	}

	uncompressedSize := int(binary.BigEndian.Uint32(src[0:4]))
	compressedSize := int(binary.BigEndian.Uint32(src[4:8]))
	compression := options.Compression(src[8])
	wantCRC := binary.BigEndian.Uint32(src[9:13])

	if len(src) < FrameHeaderSize+compressedSize {
		return DecodedFrame{}, 0, strataerrors.NewDeserializeError(nil, "block_frame").
			WithDetail("reason", "truncated payload")
	}

	payload := src[FrameHeaderSize : FrameHeaderSize+compressedSize]
	gotCRC := crc32.ChecksumIEEE(payload)
	if gotCRC != wantCRC {
		return DecodedFrame{}, 0, strataerrors.NewDeserializeError(nil, "block_frame").
			WithDetail("reason", "crc mismatch").
			WithDetail("wantCRC", wantCRC).
			WithDetail("gotCRC", gotCRC)
	}

	payloadCopy := make([]byte, len(payload))
	copy(payloadCopy, payload)

	return DecodedFrame{
		UncompressedSize: uncompressedSize,
		Compression:      compression,
		Payload:          payloadCopy,
	}, FrameHeaderSize + compressedSize, nil
}

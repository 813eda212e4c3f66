// Package block implements the self-describing on-disk unit described in
// §4.G: a compressed frame (internal/encoding) wrapping a packed sequence
// of length-prefixed items plus a trailer of item offsets for binary
// search, specialized into ValueBlock (data) and IndexBlock (block-handle
// summaries).
package block

import (
	"encoding/binary"

	strataerrors "github.com/nilotpaldev/strata/pkg/errors"
)

// PackItems concatenates items and appends a trailer: one big-endian u32
// offset per item (into the concatenated region), followed by a final u32
// item count. This lets a reader binary-search item N's start without
// decoding items 0..N-1 first.
func PackItems(items [][]byte) []byte {
	offsets := make([]uint32, len(items))
	var body []byte

	for i, item := range items {
		offsets[i] = uint32(len(body))
		body = append(body, item...)
	}

	trailer := make([]byte, len(offsets)*4+4)
	for i, off := range offsets {
		binary.BigEndian.PutUint32(trailer[i*4:i*4+4], off)
	}
	binary.BigEndian.PutUint32(trailer[len(offsets)*4:], uint32(len(items)))

	return append(body, trailer...)
}

// UnpackItems splits a packed payload back into its constituent item byte
// ranges, using the trailer written by PackItems.
func UnpackItems(payload []byte) ([][]byte, error) {
	if len(payload) == 0 {
		return nil, nil
	}
	if len(payload) < 4 {
		return nil, strataerrors.NewDeserializeError(nil, "block_trailer").
			WithDetail("reason", "truncated item count")
	}

	count := int(binary.BigEndian.Uint32(payload[len(payload)-4:]))
	trailerSize := count*4 + 4
	if len(payload) < trailerSize {
		return nil, strataerrors.NewDeserializeError(nil, "block_trailer").
			WithDetail("reason", "truncated offset table").
			WithDetail("itemCount", count)
	}

	itemsEnd := len(payload) - trailerSize
	offsetTable := payload[itemsEnd : len(payload)-4]

	items := make([][]byte, count)
	for i := 0; i < count; i++ {
		start := int(binary.BigEndian.Uint32(offsetTable[i*4 : i*4+4]))
		end := itemsEnd
		if i+1 < count {
			end = int(binary.BigEndian.Uint32(offsetTable[(i+1)*4 : (i+1)*4+4]))
		}
		if start > end || end > itemsEnd {
			return nil, strataerrors.NewDeserializeError(nil, "block_trailer").
				WithDetail("reason", "offset out of range").
				WithDetail("itemIndex", i)
		}
		items[i] = payload[start:end]
	}

	return items, nil
}

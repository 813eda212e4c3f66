package block

import (
	"github.com/nilotpaldev/strata/internal/encoding"
	"github.com/nilotpaldev/strata/pkg/options"
)

// Encode packs items, compresses the packed payload under kind, and frames
// it per §4.D, returning bytes ready to append to a segment file.
func Encode(items [][]byte, kind options.Compression) ([]byte, error) {
	packed := PackItems(items)

	compressed, err := compress(kind, packed)
	if err != nil {
		return nil, err
	}

	return encoding.EncodeBlockFrame(nil, len(packed), compressed, kind), nil
}

// DecompressFrame verifies and unframes raw, decompresses the payload, but
// stops short of splitting it into items. This is the unit BlockCache
// stores: decompressed bytes, reusable across repeated item lookups
// without repeating disk I/O or decompression (§4.E).
func DecompressFrame(raw []byte) (payload []byte, consumed int, err error) {
	frame, n, err := encoding.DecodeBlockFrame(raw)
	if err != nil {
		return nil, 0, err
	}

	packed, err := decompress(frame.Compression, frame.Payload, frame.UncompressedSize)
	if err != nil {
		return nil, 0, err
	}

	return packed, n, nil
}

// Decode verifies and unframes raw (per §4.D), decompresses the payload,
// and splits it back into item byte ranges. Returns the item list and the
// number of bytes of raw consumed.
func Decode(raw []byte) ([][]byte, int, error) {
	packed, n, err := DecompressFrame(raw)
	if err != nil {
		return nil, 0, err
	}

	items, err := UnpackItems(packed)
	if err != nil {
		return nil, 0, err
	}

	return items, n, nil
}

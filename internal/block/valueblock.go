package block

import (
	"bytes"

	"github.com/nilotpaldev/strata/internal/base"
	"github.com/nilotpaldev/strata/internal/encoding"
	"github.com/nilotpaldev/strata/pkg/options"
)

// ValueBlock is the decoded form of a data block: a sequence of
// InternalValue items strictly sorted by internal-key order (§4.G).
type ValueBlock struct {
	Items []base.InternalValue
}

// EncodeValueBlock packs, compresses, and frames a value block built from
// items. Callers are responsible for handing items in internal-key order.
func EncodeValueBlock(items []base.InternalValue, kind options.Compression) ([]byte, error) {
	encoded := make([][]byte, len(items))
	for i, item := range items {
		buf, err := encoding.EncodeInternalValue(nil, item)
		if err != nil {
			return nil, err
		}
		encoded[i] = buf
	}
	return Encode(encoded, kind)
}

// DecodeValueBlock reads a value block framed at the front of raw.
func DecodeValueBlock(raw []byte) (ValueBlock, int, error) {
	itemBytes, n, err := Decode(raw)
	if err != nil {
		return ValueBlock{}, 0, err
	}

	vb, err := ParseValueItems(itemBytes)
	if err != nil {
		return ValueBlock{}, 0, err
	}

	return vb, n, nil
}

// ParseValueBlockPayload splits an already-decompressed payload (as stored
// in BlockCache) into a ValueBlock, skipping frame parsing/decompression.
func ParseValueBlockPayload(payload []byte) (ValueBlock, error) {
	itemBytes, err := UnpackItems(payload)
	if err != nil {
		return ValueBlock{}, err
	}
	return ParseValueItems(itemBytes)
}

// ParseValueItems decodes each already-split item byte range into an
// InternalValue.
func ParseValueItems(itemBytes [][]byte) (ValueBlock, error) {
	items := make([]base.InternalValue, len(itemBytes))
	for i, b := range itemBytes {
		v, _, err := encoding.DecodeInternalValue(b)
		if err != nil {
			return ValueBlock{}, err
		}
		items[i] = v
	}
	return ValueBlock{Items: items}, nil
}

// FirstMatch linear-scans the block for the first item whose user key
// equals key. Because items are sorted ascending-key / descending-seqno,
// the first hit is the newest version — this is the fast path's final
// step (§4.J step 4).
func (vb ValueBlock) FirstMatch(key []byte) (base.InternalValue, bool) {
	for _, item := range vb.Items {
		cmp := bytes.Compare(item.Key.UserKey, key)
		if cmp == 0 {
			return item, true
		}
		if cmp > 0 {
			break
		}
	}
	return base.InternalValue{}, false
}

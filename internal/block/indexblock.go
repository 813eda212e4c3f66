package block

import (
	"bytes"
	"encoding/binary"
	"sort"

	"github.com/nilotpaldev/strata/internal/base"
	"github.com/nilotpaldev/strata/pkg/options"

	strataerrors "github.com/nilotpaldev/strata/pkg/errors"
)

// IndexEntry maps the last user key contained in a target block to that
// block's handle (§4.G).
type IndexEntry struct {
	LastUserKey []byte
	Handle      base.BlockHandle
}

// IndexBlock is the decoded form of either an index block (entries point at
// data blocks) or the top-level index (entries point at index blocks) —
// the two layers of TwoLevelBlockIndex share this representation (§4.I).
type IndexBlock struct {
	Entries []IndexEntry
}

func encodeIndexEntry(dst []byte, e IndexEntry) []byte {
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(e.LastUserKey)))
	dst = append(dst, lenBuf[:]...)
	dst = append(dst, e.LastUserKey...)

	var handleBuf [12]byte
	binary.BigEndian.PutUint64(handleBuf[0:8], e.Handle.Offset)
	binary.BigEndian.PutUint32(handleBuf[8:12], e.Handle.Size)
	dst = append(dst, handleBuf[:]...)
	return dst
}

func decodeIndexEntry(src []byte) (IndexEntry, error) {
	if len(src) < 2 {
		return IndexEntry{}, strataerrors.NewDeserializeError(nil, "index_entry").
			WithDetail("reason", "truncated key_len")
	}
	keyLen := int(binary.BigEndian.Uint16(src))
	if len(src) < 2+keyLen+12 {
		return IndexEntry{}, strataerrors.NewDeserializeError(nil, "index_entry").
			WithDetail("reason", "truncated entry body")
	}

	key := make([]byte, keyLen)
	copy(key, src[2:2+keyLen])

	handleOff := 2 + keyLen
	handle := base.BlockHandle{
		Offset: binary.BigEndian.Uint64(src[handleOff : handleOff+8]),
		Size:   binary.BigEndian.Uint32(src[handleOff+8 : handleOff+12]),
	}

	return IndexEntry{LastUserKey: key, Handle: handle}, nil
}

// EncodeIndexBlock packs, compresses, and frames entries, which must
// already be sorted by LastUserKey ascending.
func EncodeIndexBlock(entries []IndexEntry, kind options.Compression) ([]byte, error) {
	encoded := make([][]byte, len(entries))
	for i, e := range entries {
		encoded[i] = encodeIndexEntry(nil, e)
	}
	return Encode(encoded, kind)
}

// DecodeIndexBlock reads an index block framed at the front of raw.
func DecodeIndexBlock(raw []byte) (IndexBlock, int, error) {
	itemBytes, n, err := Decode(raw)
	if err != nil {
		return IndexBlock{}, 0, err
	}

	ib, err := ParseIndexItems(itemBytes)
	if err != nil {
		return IndexBlock{}, 0, err
	}

	return ib, n, nil
}

// ParseIndexBlockPayload splits an already-decompressed payload (as stored
// in BlockCache) into an IndexBlock, skipping frame parsing/decompression.
func ParseIndexBlockPayload(payload []byte) (IndexBlock, error) {
	itemBytes, err := UnpackItems(payload)
	if err != nil {
		return IndexBlock{}, err
	}
	return ParseIndexItems(itemBytes)
}

// ParseIndexItems decodes each already-split item byte range into an IndexEntry.
func ParseIndexItems(itemBytes [][]byte) (IndexBlock, error) {
	entries := make([]IndexEntry, len(itemBytes))
	for i, b := range itemBytes {
		e, err := decodeIndexEntry(b)
		if err != nil {
			return IndexBlock{}, err
		}
		entries[i] = e
	}
	return IndexBlock{Entries: entries}, nil
}

// LowestContaining returns the handle of the first entry whose LastUserKey
// is >= key (partition_point(entry.last_key < key)), and whether one was
// found. Returns found=false if key is past the last entry.
func (ib IndexBlock) LowestContaining(key []byte) (base.BlockHandle, bool) {
	idx := sort.Search(len(ib.Entries), func(i int) bool {
		return bytes.Compare(ib.Entries[i].LastUserKey, key) >= 0
	})
	if idx == len(ib.Entries) {
		return base.BlockHandle{}, false
	}
	return ib.Entries[idx].Handle, true
}

// LastContaining returns the handle of the last entry whose LastUserKey is
// >= key, used by backward cursors (§4.I).
func (ib IndexBlock) LastContaining(key []byte) (base.BlockHandle, bool) {
	found := false
	var handle base.BlockHandle
	for _, e := range ib.Entries {
		if bytes.Compare(e.LastUserKey, key) >= 0 {
			handle = e.Handle
			found = true
		}
	}
	return handle, found
}

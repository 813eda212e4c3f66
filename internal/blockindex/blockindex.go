// Package blockindex implements the two-level block index described in
// §4.I: a top-level index (TLI), always memory-resident after open,
// chasing down into per-region index blocks that in turn point at data
// blocks.
package blockindex

import (
	"bytes"
	"sort"

	"github.com/nilotpaldev/strata/internal/base"
	blk "github.com/nilotpaldev/strata/internal/block"
	"github.com/nilotpaldev/strata/internal/cache"
	"github.com/nilotpaldev/strata/internal/fdtable"
)

// CachePolicy controls whether a block-index lookup populates the shared
// BlockCache on a miss.
type CachePolicy uint8

const (
	// CachePolicyRead uses the cache but never populates it on miss.
	CachePolicyRead CachePolicy = iota
	// CachePolicyWrite populates the cache on miss.
	CachePolicyWrite
)

// TwoLevelBlockIndex is a segment's index: a memory-resident TLI mapping
// each index block's last key to that index block's handle, plus the
// machinery to load index blocks (cache or disk) on demand.
type TwoLevelBlockIndex struct {
	treeID    uint32
	segmentID uint64
	tli       blk.IndexBlock
	cache     *cache.BlockCache
	fdtable   *fdtable.Table
}

// Recover loads the top-level index block at tliHandle and builds a
// TwoLevelBlockIndex around it. The TLI itself is never evicted from
// memory once loaded, matching §4.I.
func Recover(treeID uint32, segmentID uint64, tliHandle base.BlockHandle, fdt *fdtable.Table, c *cache.BlockCache) (*TwoLevelBlockIndex, error) {
	guard, err := fdt.Access(segmentID)
	if err != nil {
		return nil, err
	}

	raw := make([]byte, tliHandle.Size)
	if _, err := guard.ReadAt(raw, int64(tliHandle.Offset)); err != nil {
		return nil, err
	}

	tli, _, err := blk.DecodeIndexBlock(raw)
	if err != nil {
		return nil, err
	}

	return &TwoLevelBlockIndex{
		treeID:    treeID,
		segmentID: segmentID,
		tli:       tli,
		cache:     c,
		fdtable:   fdt,
	}, nil
}

// loadIndexBlock fetches and decodes the index block at handle, consulting
// the shared BlockCache first and honoring policy on miss.
func (ti *TwoLevelBlockIndex) loadIndexBlock(handle base.BlockHandle, policy CachePolicy) (blk.IndexBlock, error) {
	key := cache.Key{TreeID: ti.treeID, SegmentID: ti.segmentID, Offset: handle.Offset}

	if payload, ok := ti.cache.Get(key); ok {
		defer payload.Release()
		return blk.ParseIndexBlockPayload(payload.Bytes())
	}

	guard, err := ti.fdtable.Access(ti.segmentID)
	if err != nil {
		return blk.IndexBlock{}, err
	}

	raw := make([]byte, handle.Size)
	if _, err := guard.ReadAt(raw, int64(handle.Offset)); err != nil {
		return blk.IndexBlock{}, err
	}

	payload, _, err := blk.DecompressFrame(raw)
	if err != nil {
		return blk.IndexBlock{}, err
	}

	if policy == CachePolicyWrite {
		ti.cache.Insert(key, payload)
	}

	return blk.ParseIndexBlockPayload(payload)
}

// tliIndexFor returns the index into ti.tli.Entries of the first entry
// whose LastUserKey >= key, and whether one was found.
func (ti *TwoLevelBlockIndex) tliIndexFor(key []byte) (int, bool) {
	idx := sort.Search(len(ti.tli.Entries), func(i int) bool {
		return bytes.Compare(ti.tli.Entries[i].LastUserKey, key) >= 0
	})
	if idx == len(ti.tli.Entries) {
		return 0, false
	}
	return idx, true
}

// GetLowestDataBlockHandleContainingItem locates the lowest data block
// whose last key is >= key: partition_point on the TLI, then partition_point
// within the resolved index block (§4.I). Returns found=false if key is
// past the last entry.
func (ti *TwoLevelBlockIndex) GetLowestDataBlockHandleContainingItem(key []byte, policy CachePolicy) (base.BlockHandle, bool, error) {
	tliIdx, ok := ti.tliIndexFor(key)
	if !ok {
		return base.BlockHandle{}, false, nil
	}

	indexBlock, err := ti.loadIndexBlock(ti.tli.Entries[tliIdx].Handle, policy)
	if err != nil {
		return base.BlockHandle{}, false, err
	}

	handle, found := indexBlock.LowestContaining(key)
	return handle, found, nil
}

// GetLastDataBlockHandleContainingItem is like
// GetLowestDataBlockHandleContainingItem but picks the last qualifying
// entry, used by backward cursors (§4.I).
func (ti *TwoLevelBlockIndex) GetLastDataBlockHandleContainingItem(key []byte) (base.BlockHandle, bool, error) {
	tliIdx, ok := ti.tliIndexFor(key)
	if !ok {
		return base.BlockHandle{}, false, nil
	}

	indexBlock, err := ti.loadIndexBlock(ti.tli.Entries[tliIdx].Handle, CachePolicyRead)
	if err != nil {
		return base.BlockHandle{}, false, err
	}

	handle, found := indexBlock.LastContaining(key)
	return handle, found, nil
}

package sstable

import (
	"os"

	"github.com/nilotpaldev/strata/internal/base"
	blk "github.com/nilotpaldev/strata/internal/block"
	"github.com/nilotpaldev/strata/internal/bloom"
	"github.com/nilotpaldev/strata/internal/cache"
	"github.com/nilotpaldev/strata/internal/fdtable"
	"github.com/nilotpaldev/strata/internal/blockindex"
	"github.com/nilotpaldev/strata/pkg/seginfo"

	strataerrors "github.com/nilotpaldev/strata/pkg/errors"
)

// Segment is one immutable on-disk SSTable: a combined data region, the
// two-level block index, an optional bloom filter, and persisted metadata,
// closed over the file-wide trailer described in §6.1.
type Segment struct {
	TreeID    uint32
	ID        uint64
	Metadata  Metadata
	index     *blockindex.TwoLevelBlockIndex
	filter    *bloom.Filter
	cache     *cache.BlockCache
	fdtable   *fdtable.Table
}

// Recover opens the segment file for id under folder, parses its trailer and
// metadata, and builds its block index (TLI only — child index blocks and
// data blocks load lazily). Failure modes: InvalidVersionError for an
// unrecognized trailer/bloom version, DeserializeError for truncated or
// corrupt regions, or a StorageError for I/O failures.
func Recover(folder string, treeID uint32, id uint64, blockCache *cache.BlockCache, descriptorTable *fdtable.Table) (*Segment, error) {
	path := seginfo.PathFor(folder, id)

	info, err := os.Stat(path)
	if err != nil {
		return nil, strataerrors.NewStorageError(err, strataerrors.ErrorCodeIO, "failed to stat segment file").
			WithSegmentID(int(id)).WithPath(path)
	}
	fileSize := uint64(info.Size())

	descriptorTable.Insert(id, path)
	guard, err := descriptorTable.Access(id)
	if err != nil {
		return nil, err
	}

	if fileSize < trailerSize {
		return nil, strataerrors.NewDeserializeError(nil, "segment_file").
			WithDetail("reason", "file shorter than trailer")
	}

	trailerBuf := make([]byte, trailerSize)
	if _, err := guard.ReadAt(trailerBuf, int64(fileSize-trailerSize)); err != nil {
		return nil, strataerrors.NewStorageError(err, strataerrors.ErrorCodeIO, "failed to read segment trailer").
			WithSegmentID(int(id)).WithPath(path)
	}
	tr, err := decodeTrailer(trailerBuf)
	if err != nil {
		return nil, err
	}

	metadataEnd := fileSize - trailerSize
	metadataBuf := make([]byte, metadataEnd-tr.MetadataOffset)
	if _, err := guard.ReadAt(metadataBuf, int64(tr.MetadataOffset)); err != nil {
		return nil, strataerrors.NewStorageError(err, strataerrors.ErrorCodeIO, "failed to read segment metadata").
			WithSegmentID(int(id)).WithPath(path)
	}
	items, _, err := blk.Decode(metadataBuf)
	if err != nil {
		return nil, err
	}
	if len(items) != 1 {
		return nil, strataerrors.NewDeserializeError(nil, "segment_metadata").
			WithDetail("reason", "expected exactly one metadata item")
	}
	metadata, err := decodeMetadata(items[0])
	if err != nil {
		return nil, err
	}
	// FileSize isn't known until the trailer is written, which happens after
	// the metadata block is encoded, so the persisted metadata always
	// carries FileSize=0; the trailer's FileSize is authoritative.
	metadata.FileSize = tr.FileSize

	tliEnd := tr.MetadataOffset
	if tr.BloomOffset > 0 {
		tliEnd = tr.BloomOffset
	}
	tliHandle := base.BlockHandle{Offset: tr.TLIOffset, Size: uint32(tliEnd - tr.TLIOffset)}

	index, err := blockindex.Recover(treeID, id, tliHandle, descriptorTable, blockCache)
	if err != nil {
		return nil, err
	}

	var filter *bloom.Filter
	if tr.BloomOffset > 0 {
		bloomBuf := make([]byte, tr.MetadataOffset-tr.BloomOffset)
		if _, err := guard.ReadAt(bloomBuf, int64(tr.BloomOffset)); err != nil {
			return nil, strataerrors.NewStorageError(err, strataerrors.ErrorCodeIO, "failed to read bloom filter").
				WithSegmentID(int(id)).WithPath(path)
		}
		filter, err = bloom.FromBytes(bloomBuf)
		if err != nil {
			return nil, err
		}
	}

	return &Segment{
		TreeID:   treeID,
		ID:       id,
		Metadata: metadata,
		index:    index,
		filter:   filter,
		cache:    blockCache,
		fdtable:  descriptorTable,
	}, nil
}

// CheckKeyRangeOverlap reports whether b intersects this segment's key
// range, the cheap filter every read path applies before touching the index.
func (s *Segment) CheckKeyRangeOverlap(b base.Bounds) bool {
	return s.Metadata.KeyRange.OverlapsWithBounds(b)
}

// GetLSN returns the highest sequence number recorded in this segment.
func (s *Segment) GetLSN() base.SeqNo {
	return s.Metadata.MaxSeqNo
}

// TombstoneCount returns the number of tombstone (full or weak) records
// persisted in this segment, used by compaction heuristics.
func (s *Segment) TombstoneCount() uint64 {
	return s.Metadata.TombstoneCount
}

// loadDataBlock fetches and parses the value block at handle, consulting the
// shared cache first.
func (s *Segment) loadDataBlock(handle base.BlockHandle, populateCache bool) (blk.ValueBlock, error) {
	key := cache.Key{TreeID: s.TreeID, SegmentID: s.ID, Offset: handle.Offset}

	if payload, ok := s.cache.Get(key); ok {
		defer payload.Release()
		return blk.ParseValueBlockPayload(payload.Bytes())
	}

	guard, err := s.fdtable.Access(s.ID)
	if err != nil {
		return blk.ValueBlock{}, err
	}

	raw := make([]byte, handle.Size)
	if _, err := guard.ReadAt(raw, int64(handle.Offset)); err != nil {
		return blk.ValueBlock{}, strataerrors.NewStorageError(err, strataerrors.ErrorCodeIO, "failed to read data block").
			WithSegmentID(int(s.ID))
	}

	payload, _, err := blk.DecompressFrame(raw)
	if err != nil {
		return blk.ValueBlock{}, err
	}

	if populateCache {
		s.cache.Insert(key, payload)
	}

	return blk.ParseValueBlockPayload(payload)
}

// Get implements the point-read algorithm (§4.J):
//  1. if snapshotSeqno is older than every record in this segment, short-circuit miss.
//  2. if key falls outside this segment's key range, miss.
//  3. if a bloom filter is present and denies key, miss.
//  4. fast path (snapshotSeqno == nil): lowest data block containing key, linear scan for the first (newest) match.
//  5. snapshot path: a forward Reader from key, returning the first version with seqno < *snapshotSeqno.
func (s *Segment) Get(key []byte, snapshotSeqno *base.SeqNo) (base.InternalValue, bool, error) {
	if snapshotSeqno != nil && s.Metadata.MinSeqNo >= *snapshotSeqno {
		return base.InternalValue{}, false, nil
	}

	if !s.Metadata.KeyRange.ContainsKey(key) {
		return base.InternalValue{}, false, nil
	}

	if s.filter != nil && !s.filter.Contains(key) {
		return base.InternalValue{}, false, nil
	}

	if snapshotSeqno == nil {
		handle, found, err := s.index.GetLowestDataBlockHandleContainingItem(key, blockindex.CachePolicyWrite)
		if err != nil {
			return base.InternalValue{}, false, err
		}
		if !found {
			return base.InternalValue{}, false, nil
		}

		block, err := s.loadDataBlock(handle, true)
		if err != nil {
			return base.InternalValue{}, false, err
		}

		v, ok := block.FirstMatch(key)
		return v, ok, nil
	}

	reader := s.Reader(key)
	for {
		v, ok, err := reader.Next()
		if err != nil {
			return base.InternalValue{}, false, err
		}
		if !ok {
			return base.InternalValue{}, false, nil
		}
		if string(v.Key.UserKey) != string(key) {
			return base.InternalValue{}, false, nil
		}
		if v.Key.SeqNo < *snapshotSeqno {
			return v, true, nil
		}
	}
}

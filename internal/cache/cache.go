// Package cache implements the shared, byte-bounded block cache described
// in §4.E: keyed by (tree_id, segment_id, block_offset), approximate LRU
// eviction, cost tracked by decoded block size rather than entry count.
// Sharded by xxhash of the key to reduce contention between concurrent
// readers, the same hashing/sharding idiom the retrieval pack uses for its
// own descriptor and cache tables.
package cache

import (
	"container/list"
	"sync"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	"github.com/nilotpaldev/strata/internal/base"
)

const shardCount = 16

// Key identifies one cached block.
type Key struct {
	TreeID    uint32
	SegmentID uint64
	Offset    uint64
}

func (k Key) hash() uint64 {
	var buf [20]byte
	buf[0] = byte(k.TreeID)
	buf[1] = byte(k.TreeID >> 8)
	buf[2] = byte(k.TreeID >> 16)
	buf[3] = byte(k.TreeID >> 24)
	for i := 0; i < 8; i++ {
		buf[4+i] = byte(k.SegmentID >> (8 * i))
		buf[12+i] = byte(k.Offset >> (8 * i))
	}
	return xxhash.Sum64(buf[:])
}

type entry struct {
	key   Key
	value base.Slice
}

// BlockCache is a shared, bounded cache of decoded blocks. A capacity of 0
// makes every shard a no-op, matching §4.E's requirement that the cache
// still function — by doing nothing — when disabled.
type BlockCache struct {
	shards []*shard
	log    *zap.SugaredLogger
}

type shard struct {
	mu       sync.Mutex
	ll       *list.List
	elements map[Key]*list.Element
	size     uint64
	capacity uint64
}

// WithCapacityBytes constructs a BlockCache bounded to capacityBytes total,
// split evenly across an internal shard count (§6.3:
// BlockCache::with_capacity_bytes).
func WithCapacityBytes(capacityBytes uint64, log *zap.SugaredLogger) *BlockCache {
	perShard := capacityBytes / shardCount
	shards := make([]*shard, shardCount)
	for i := range shards {
		shards[i] = &shard{
			ll:       list.New(),
			elements: make(map[Key]*list.Element),
			capacity: perShard,
		}
	}
	return &BlockCache{shards: shards, log: log}
}

func (c *BlockCache) shardFor(key Key) *shard {
	return c.shards[key.hash()%shardCount]
}

// Get returns the cached bytes for key, if present, as a Slice handle the
// caller owns: call Release on it once done, the way a reader releases its
// view of a block once it has been parsed into items.
func (c *BlockCache) Get(key Key) (base.Slice, bool) {
	s := c.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.elements[key]
	if !ok {
		return base.Empty(), false
	}
	s.ll.MoveToFront(el)
	return el.Value.(*entry).value.Clone(), true
}

// Insert stores value under key, evicting least-recently-used entries in
// the same shard until the shard fits within its capacity. Duplicate
// concurrent inserts for the same key are tolerated: the later write simply
// replaces the earlier one, and both copies were valid decodes (§4.E).
func (c *BlockCache) Insert(key Key, value []byte) {
	s := c.shardFor(key)
	if s.capacity == 0 {
		return
	}

	slice := base.NewSlice(value)

	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.elements[key]; ok {
		old := el.Value.(*entry)
		s.size -= uint64(old.value.Len())
		old.value.Release()
		old.value = slice
		s.size += uint64(slice.Len())
		s.ll.MoveToFront(el)
	} else {
		el := s.ll.PushFront(&entry{key: key, value: slice})
		s.elements[key] = el
		s.size += uint64(slice.Len())
	}

	for s.size > s.capacity {
		back := s.ll.Back()
		if back == nil {
			break
		}
		victim := back.Value.(*entry)
		s.ll.Remove(back)
		delete(s.elements, victim.key)
		s.size -= uint64(victim.value.Len())
		victim.value.Release()
	}
}

// EvictSegment drops every cached block belonging to (treeID, segmentID),
// called when a segment is retired by compaction (§4.E).
func (c *BlockCache) EvictSegment(treeID uint32, segmentID uint64) {
	for _, s := range c.shards {
		s.mu.Lock()
		for key, el := range s.elements {
			if key.TreeID == treeID && key.SegmentID == segmentID {
				victim := el.Value.(*entry)
				s.ll.Remove(el)
				delete(s.elements, key)
				s.size -= uint64(victim.value.Len())
				victim.value.Release()
			}
		}
		s.mu.Unlock()
	}
}

// Len reports the total number of cached entries, across all shards. Test
// and diagnostics helper.
func (c *BlockCache) Len() int {
	total := 0
	for _, s := range c.shards {
		s.mu.Lock()
		total += len(s.elements)
		s.mu.Unlock()
	}
	return total
}

package cache

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nilotpaldev/strata/pkg/logger"
)

func TestBlockCacheGetInsert(t *testing.T) {
	c := WithCapacityBytes(1<<20, logger.Nop())

	key := Key{TreeID: 1, SegmentID: 2, Offset: 3}
	_, ok := c.Get(key)
	require.False(t, ok)

	c.Insert(key, []byte("decoded block"))
	v, ok := c.Get(key)
	require.True(t, ok)
	require.Equal(t, []byte("decoded block"), v.Bytes())
	v.Release()
}

func TestBlockCacheZeroCapacityIsNoOp(t *testing.T) {
	c := WithCapacityBytes(0, logger.Nop())
	key := Key{TreeID: 1, SegmentID: 1, Offset: 0}

	c.Insert(key, []byte("x"))
	_, ok := c.Get(key)
	require.False(t, ok)
}

func TestBlockCacheEvictsUnderPressure(t *testing.T) {
	c := WithCapacityBytes(shardCount*10, logger.Nop()) // 10 bytes/shard

	// Force every key into the same shard by sharing segment/tree and
	// varying only offset isn't guaranteed to hash identically, so instead
	// assert the aggregate cache never holds more bytes than its budget
	// would allow per shard by inserting many entries and checking it
	// doesn't grow unbounded.
	for i := 0; i < 1000; i++ {
		key := Key{TreeID: 1, SegmentID: 1, Offset: uint64(i)}
		c.Insert(key, []byte("0123456789"))
	}

	require.Less(t, c.Len(), 1000, "cache must evict under capacity pressure")
}

func TestBlockCacheEvictSegment(t *testing.T) {
	c := WithCapacityBytes(1<<20, logger.Nop())

	c.Insert(Key{TreeID: 1, SegmentID: 5, Offset: 0}, []byte("a"))
	c.Insert(Key{TreeID: 1, SegmentID: 5, Offset: 10}, []byte("b"))
	c.Insert(Key{TreeID: 1, SegmentID: 6, Offset: 0}, []byte("c"))

	c.EvictSegment(1, 5)

	_, ok := c.Get(Key{TreeID: 1, SegmentID: 5, Offset: 0})
	require.False(t, ok)
	v, ok := c.Get(Key{TreeID: 1, SegmentID: 6, Offset: 0})
	require.True(t, ok)
	v.Release()
}

package blockindex

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nilotpaldev/strata/internal/base"
	blk "github.com/nilotpaldev/strata/internal/block"
	"github.com/nilotpaldev/strata/internal/cache"
	"github.com/nilotpaldev/strata/internal/fdtable"
	"github.com/nilotpaldev/strata/pkg/logger"
	"github.com/nilotpaldev/strata/pkg/options"
)

// buildFixture writes a tiny segment-shaped file with two data blocks
// (["a","b"] and ["c","d"]), one index block pointing at both, and a TLI
// pointing at the index block. Returns the file path and the TLI handle.
func buildFixture(t *testing.T) (string, base.BlockHandle) {
	t.Helper()

	block1 := mustBlock(t, []string{"a", "b"})
	block2 := mustBlock(t, []string{"c", "d"})

	var file []byte
	h1 := base.BlockHandle{Offset: uint64(len(file)), Size: uint32(len(block1))}
	file = append(file, block1...)
	h2 := base.BlockHandle{Offset: uint64(len(file)), Size: uint32(len(block2))}
	file = append(file, block2...)

	indexBlock, err := blk.EncodeIndexBlock([]blk.IndexEntry{
		{LastUserKey: []byte("b"), Handle: h1},
		{LastUserKey: []byte("d"), Handle: h2},
	}, options.CompressionNone)
	require.NoError(t, err)

	indexHandle := base.BlockHandle{Offset: uint64(len(file)), Size: uint32(len(indexBlock))}
	file = append(file, indexBlock...)

	tli, err := blk.EncodeIndexBlock([]blk.IndexEntry{
		{LastUserKey: []byte("d"), Handle: indexHandle},
	}, options.CompressionNone)
	require.NoError(t, err)

	tliHandle := base.BlockHandle{Offset: uint64(len(file)), Size: uint32(len(tli))}
	file = append(file, tli...)

	dir := t.TempDir()
	path := filepath.Join(dir, "0.sst")
	require.NoError(t, os.WriteFile(path, file, 0o644))

	return path, tliHandle
}

func mustBlock(t *testing.T, keys []string) []byte {
	t.Helper()
	items := make([]base.InternalValue, len(keys))
	for i, k := range keys {
		items[i] = base.NewInternalValue([]byte(k), base.SeqNo(i+1), []byte("v"))
	}
	raw, err := blk.EncodeValueBlock(items, options.CompressionNone)
	require.NoError(t, err)
	return raw
}

func newIndex(t *testing.T, path string, tliHandle base.BlockHandle) *TwoLevelBlockIndex {
	t.Helper()
	fdt := fdtable.New(8, 2, logger.Nop())
	fdt.Insert(1, path)
	c := cache.WithCapacityBytes(1<<20, logger.Nop())

	idx, err := Recover(1, 1, tliHandle, fdt, c)
	require.NoError(t, err)
	return idx
}

func TestTwoLevelBlockIndexLookup(t *testing.T) {
	path, tliHandle := buildFixture(t)
	idx := newIndex(t, path, tliHandle)

	h, found, err := idx.GetLowestDataBlockHandleContainingItem([]byte("a"), CachePolicyWrite)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, uint64(0), h.Offset)

	h, found, err = idx.GetLowestDataBlockHandleContainingItem([]byte("c"), CachePolicyRead)
	require.NoError(t, err)
	require.True(t, found)
	require.True(t, h.Offset > 0)

	_, found, err = idx.GetLowestDataBlockHandleContainingItem([]byte("z"), CachePolicyRead)
	require.NoError(t, err)
	require.False(t, found)
}

func TestForwardBackwardReader(t *testing.T) {
	path, tliHandle := buildFixture(t)
	idx := newIndex(t, path, tliHandle)

	var handles []base.BlockHandle
	it := idx.ForwardReader(nil)
	for {
		h, ok := it.Next()
		if !ok {
			break
		}
		handles = append(handles, h)
	}
	require.NoError(t, it.Err())
	require.Len(t, handles, 2)
	require.Equal(t, uint64(0), handles[0].Offset)

	var reversed []base.BlockHandle
	bit := idx.BackwardReader(nil)
	for {
		h, ok := bit.Next()
		if !ok {
			break
		}
		reversed = append(reversed, h)
	}
	require.NoError(t, bit.Err())
	require.Len(t, reversed, 2)
	require.Equal(t, handles[0].Offset, reversed[len(reversed)-1].Offset)
}

package sstable

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nilotpaldev/strata/internal/base"
	"github.com/nilotpaldev/strata/internal/cache"
	"github.com/nilotpaldev/strata/internal/fdtable"
	"github.com/nilotpaldev/strata/pkg/logger"
	"github.com/nilotpaldev/strata/pkg/options"
)

func testOptions(t *testing.T) *options.Options {
	t.Helper()
	o := options.NewDefaultOptions()
	o.SegmentOptions.Directory = t.TempDir()
	o.SegmentOptions.DataBlockSize = 128
	o.SegmentOptions.IndexBlockSize = 256
	o.SegmentOptions.Size = 1 << 20
	o.SegmentOptions.Compression = options.CompressionZstd
	o.SegmentOptions.BloomEnabled = true
	o.SegmentOptions.BloomFalsePositiveRate = 0.01
	return &o
}

func writeSegment(t *testing.T, items []base.InternalValue) (string, WrittenSegment) {
	t.Helper()
	opts := testOptions(t)

	var nextID uint64
	w, err := NewMultiWriter(opts.SegmentOptions.Directory, 1, opts, func() uint64 {
		nextID++
		return nextID
	}, logger.Nop())
	require.NoError(t, err)

	for _, item := range items {
		require.NoError(t, w.Write(item))
	}

	written, err := w.Finish()
	require.NoError(t, err)
	require.Len(t, written, 1)

	return opts.SegmentOptions.Directory, written[0]
}

func openSegment(t *testing.T, folder string, id uint64) *Segment {
	t.Helper()
	fdt := fdtable.New(32, 4, logger.Nop())
	c := cache.WithCapacityBytes(1<<20, logger.Nop())
	seg, err := Recover(folder, 1, id, c, fdt)
	require.NoError(t, err)
	return seg
}

func manyItems(n int) []base.InternalValue {
	items := make([]base.InternalValue, n)
	for i := 0; i < n; i++ {
		key := []byte(fmt.Sprintf("key-%05d", i))
		items[i] = base.NewInternalValue(key, base.SeqNo(i+1), []byte(fmt.Sprintf("value-%d", i)))
	}
	return items
}

func TestSegmentRoundTripGet(t *testing.T) {
	items := manyItems(200)
	folder, written := writeSegment(t, items)
	seg := openSegment(t, folder, written.ID)

	require.Equal(t, uint64(200), seg.Metadata.ItemCount)
	require.Equal(t, base.SeqNo(1), seg.Metadata.MinSeqNo)
	require.Equal(t, base.SeqNo(200), seg.Metadata.MaxSeqNo)

	for _, item := range items {
		v, ok, err := seg.Get(item.Key.UserKey, nil)
		require.NoError(t, err)
		require.True(t, ok, "expected to find %s", item.Key.UserKey)
		require.Equal(t, item.Value, v.Value)
	}

	_, ok, err := seg.Get([]byte("does-not-exist"), nil)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSegmentKeyRangeOverlapExcludesKeysPastMax(t *testing.T) {
	items := manyItems(50)
	folder, written := writeSegment(t, items)
	seg := openSegment(t, folder, written.ID)

	require.False(t, seg.CheckKeyRangeOverlap(base.Bounds{
		Lo: base.Included([]byte("zzzzz")),
	}))
}

func TestSegmentReaderOrdering(t *testing.T) {
	items := manyItems(64)
	folder, written := writeSegment(t, items)
	seg := openSegment(t, folder, written.ID)

	reader := seg.Reader(nil)
	var got []base.InternalValue
	for {
		v, ok, err := reader.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, v)
	}
	require.Len(t, got, len(items))
	for i, v := range got {
		require.Equal(t, items[i].Key.UserKey, v.Key.UserKey)
	}
}

func TestSegmentBackwardReader(t *testing.T) {
	items := manyItems(64)
	folder, written := writeSegment(t, items)
	seg := openSegment(t, folder, written.ID)

	reader := seg.BackwardReader(nil)
	var got []base.InternalValue
	for {
		v, ok, err := reader.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, v)
	}
	require.Len(t, got, len(items))
	for i, v := range got {
		require.Equal(t, items[len(items)-1-i].Key.UserKey, v.Key.UserKey)
	}
}

func TestSegmentPrefixReader(t *testing.T) {
	items := []base.InternalValue{
		base.NewInternalValue([]byte("user/1"), 1, []byte("a")),
		base.NewInternalValue([]byte("user/2"), 2, []byte("b")),
		base.NewInternalValue([]byte("zzz/1"), 3, []byte("c")),
	}
	folder, written := writeSegment(t, items)
	seg := openSegment(t, folder, written.ID)

	pr := seg.PrefixReader([]byte("user/"))
	var got []string
	for {
		v, ok, err := pr.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, string(v.Key.UserKey))
	}
	require.Equal(t, []string{"user/1", "user/2"}, got)
}

func TestSegmentSnapshotIsolation(t *testing.T) {
	// MultiWriter.Write requires ascending internal-key order, which for a
	// repeated user key means descending seqno (newest first).
	items := []base.InternalValue{
		base.NewInternalValue([]byte("k"), 9, []byte("v9")),
		base.NewInternalValue([]byte("k"), 5, []byte("v5")),
		base.NewInternalValue([]byte("k"), 1, []byte("v1")),
	}
	folder, written := writeSegment(t, items)
	seg := openSegment(t, folder, written.ID)

	snap := base.SeqNo(6)
	v, ok, err := seg.Get([]byte("k"), &snap)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v5"), v.Value)

	tooOld := base.SeqNo(1)
	_, ok, err = seg.Get([]byte("k"), &tooOld)
	require.NoError(t, err)
	require.False(t, ok)
}

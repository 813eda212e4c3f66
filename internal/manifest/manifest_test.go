package manifest

import (
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nilotpaldev/strata/internal/base"
	"github.com/nilotpaldev/strata/internal/cache"
	"github.com/nilotpaldev/strata/internal/fdtable"
	"github.com/nilotpaldev/strata/internal/sstable"
	"github.com/nilotpaldev/strata/pkg/logger"
	"github.com/nilotpaldev/strata/pkg/options"
)

func testManifest(t *testing.T) (*LevelManifest, string, *options.Options) {
	t.Helper()

	manifestDir := t.TempDir()
	segmentDir := t.TempDir()

	o := options.NewDefaultOptions()
	o.SegmentOptions.Directory = segmentDir
	o.SegmentOptions.DataBlockSize = 128
	o.SegmentOptions.IndexBlockSize = 256
	o.SegmentOptions.Size = 1 << 20
	o.SegmentOptions.Compression = options.CompressionNone
	o.SegmentOptions.BloomEnabled = true

	c := cache.WithCapacityBytes(1<<20, logger.Nop())
	fdt := fdtable.New(64, 4, logger.Nop())

	m, err := Recover(manifestDir, segmentDir, 1, c, fdt, logger.Nop())
	require.NoError(t, err)

	return m, segmentDir, &o
}

// flushOneSegment writes a single-item-per-call segment (simulating a small
// memtable flush) and registers it with the manifest at the given level.
func flushOneSegment(t *testing.T, m *LevelManifest, segmentDir string, opts *options.Options, item base.InternalValue, level int) {
	t.Helper()

	id, err := m.NextSegmentID()
	require.NoError(t, err)

	w, err := sstable.NewMultiWriter(segmentDir, 1, opts, func() uint64 { return id }, logger.Nop())
	require.NoError(t, err)
	require.NoError(t, w.Write(item))
	written, err := w.Finish()
	require.NoError(t, err)
	require.Len(t, written, 1)

	require.NoError(t, m.Apply([]Delta{AddSegment(level, id)}))
}

func u64Key(n uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], n)
	return buf[:]
}

func TestLevelDisjointAfterNumericWrites(t *testing.T) {
	m, segmentDir, opts := testManifest(t)

	seq := base.SeqNo(1)
	for flush := 0; flush < 10; flush++ {
		for i := 0; i < 10; i++ {
			n := uint64(flush*10 + i)
			item := base.NewInternalValue(u64Key(n), seq, []byte(fmt.Sprintf("v%d", n)))
			seq++
			flushOneSegment(t, m, segmentDir, opts, item, 0)
		}
	}

	levels := m.Levels()
	require.Len(t, levels, 1)
	require.Equal(t, 100, levels[0].Len())
	require.True(t, levels[0].IsDisjoint())
}

func TestLevelNonDisjointOnAlternatingWrites(t *testing.T) {
	m, segmentDir, opts := testManifest(t)

	seq := base.SeqNo(1)
	for i := 0; i < 10; i++ {
		key := []byte("a")
		if i%2 == 1 {
			key = []byte("z")
		}
		item := base.NewInternalValue(key, seq, []byte("v"))
		seq++
		flushOneSegment(t, m, segmentDir, opts, item, 0)
	}

	levels := m.Levels()
	require.Len(t, levels, 1)
	require.Equal(t, 10, levels[0].Len())
	require.False(t, levels[0].IsDisjoint())
}

func TestLevelManifestNextSegmentIDMonotonic(t *testing.T) {
	m, _, _ := testManifest(t)

	seen := make(map[uint64]bool)
	for i := 0; i < 50; i++ {
		id, err := m.NextSegmentID()
		require.NoError(t, err)
		require.False(t, seen[id], "segment id %d reused", id)
		seen[id] = true
	}
}

func TestLevelManifestApplyRemovesOldSegments(t *testing.T) {
	m, segmentDir, opts := testManifest(t)

	item1 := base.NewInternalValue([]byte("k1"), 1, []byte("v1"))
	flushOneSegment(t, m, segmentDir, opts, item1, 0)

	levels := m.Levels()
	require.Equal(t, 1, levels[0].Len())
	oldID := levels[0].IDs()[0]

	newID, err := m.NextSegmentID()
	require.NoError(t, err)
	w, err := sstable.NewMultiWriter(segmentDir, 1, opts, func() uint64 { return newID }, logger.Nop())
	require.NoError(t, err)
	require.NoError(t, w.Write(item1))
	_, err = w.Finish()
	require.NoError(t, err)

	require.NoError(t, m.Apply([]Delta{
		AddSegment(1, newID),
		RemoveSegment(oldID),
	}))

	levels = m.Levels()
	require.Equal(t, 0, levels[0].Len())
	require.Equal(t, 1, levels[1].Len())
	require.Equal(t, newID, levels[1].IDs()[0])
}

func TestLevelGetSegmentContainingKeyPanicsWhenNotDisjoint(t *testing.T) {
	m, segmentDir, opts := testManifest(t)

	for i := 0; i < 4; i++ {
		key := []byte("a")
		if i%2 == 1 {
			key = []byte("z")
		}
		flushOneSegment(t, m, segmentDir, opts, base.NewInternalValue(key, base.SeqNo(i+1), []byte("v")), 0)
	}

	levels := m.Levels()
	require.False(t, levels[0].IsDisjoint())
	require.Panics(t, func() {
		levels[0].GetSegmentContainingKey([]byte("a"))
	})
}

func TestLevelManifestMarkBusyConflict(t *testing.T) {
	m, segmentDir, opts := testManifest(t)

	flushOneSegment(t, m, segmentDir, opts, base.NewInternalValue([]byte("k"), 1, []byte("v")), 0)
	id := m.Levels()[0].IDs()[0]

	require.NoError(t, m.MarkBusy(0, []uint64{id}))
	require.Error(t, m.MarkBusy(0, []uint64{id}))

	m.UnmarkBusy(0, []uint64{id})
	require.NoError(t, m.MarkBusy(0, []uint64{id}))

	busy := m.BusyLevels()
	require.Equal(t, []uint64{id}, busy[0])
}

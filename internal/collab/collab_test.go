package collab

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nilotpaldev/strata/internal/base"
	"github.com/nilotpaldev/strata/internal/cache"
	"github.com/nilotpaldev/strata/internal/fdtable"
	"github.com/nilotpaldev/strata/internal/manifest"
	"github.com/nilotpaldev/strata/pkg/logger"
)

// fakeMemtable is the simplest possible Memtable: a slice of items, already
// sorted the way internal/sstable.Reader would produce.
type fakeMemtable struct {
	items []base.InternalValue
}

func (m *fakeMemtable) Get(key []byte, seqno *base.SeqNo) (base.InternalValue, bool) {
	for _, it := range m.items {
		if string(it.Key.UserKey) != string(key) {
			continue
		}
		if seqno != nil && it.Key.SeqNo >= *seqno {
			continue
		}
		return it, true
	}
	return base.InternalValue{}, false
}

func (m *fakeMemtable) Iter() MemtableIterator { return &fakeMemtableIterator{items: m.items} }

func (m *fakeMemtable) Size() uint64 {
	var total uint64
	for _, it := range m.items {
		total += uint64(len(it.Key.UserKey)) + uint64(len(it.Value))
	}
	return total
}

type fakeMemtableIterator struct {
	items []base.InternalValue
	pos   int
}

func (it *fakeMemtableIterator) Next() (base.InternalValue, bool, error) {
	if it.pos >= len(it.items) {
		return base.InternalValue{}, false, nil
	}
	v := it.items[it.pos]
	it.pos++
	return v, true, nil
}

func (it *fakeMemtableIterator) Err() error { return nil }

func TestMemtableInterfaceSatisfiedByFake(t *testing.T) {
	var _ Memtable = (*fakeMemtable)(nil)

	m := &fakeMemtable{items: []base.InternalValue{
		base.NewInternalValue([]byte("a"), 1, []byte("v1")),
		base.NewInternalValue([]byte("b"), 2, []byte("v2")),
	}}

	v, ok := m.Get([]byte("a"), nil)
	require.True(t, ok)
	require.Equal(t, []byte("v1"), v.Value)

	_, ok = m.Get([]byte("missing"), nil)
	require.False(t, ok)

	it := m.Iter()
	count := 0
	for {
		_, ok, err := it.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		count++
	}
	require.Equal(t, 2, count)
	require.Positive(t, m.Size())
}

// noCompaction picks a job only when a level holds more than 8 segments, so
// it picks none against a real, empty LevelManifest; it exists to exercise
// the CompactionStrategy seam.
type noCompaction struct{}

func (noCompaction) Pick(m *manifest.LevelManifest) (CompactionChoice, bool) {
	for level, l := range m.Levels() {
		if l.Len() > 8 {
			return CompactionChoice{SourceLevel: level, TargetLevel: level + 1, Inputs: l.IDs()}, true
		}
	}
	return CompactionChoice{}, false
}

func TestCompactionStrategyInterfaceSatisfied(t *testing.T) {
	var _ CompactionStrategy = noCompaction{}

	dir := t.TempDir()
	segDir := t.TempDir()
	c := cache.WithCapacityBytes(1<<20, logger.Nop())
	fdt := fdtable.New(64, 4, logger.Nop())

	m, err := manifest.Recover(dir, segDir, 1, c, fdt, logger.Nop())
	require.NoError(t, err)

	_, ok := noCompaction{}.Pick(m)
	require.False(t, ok)
}

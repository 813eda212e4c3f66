package blockindex

import (
	"bytes"

	blk "github.com/nilotpaldev/strata/internal/block"

	"github.com/nilotpaldev/strata/internal/base"
)

// HandleIterator lazily produces data-block handles in order, loading each
// index block only as the cursor reaches it. Dropping a HandleIterator
// cancels iteration; no in-flight I/O is interrupted, at most one block
// read completes and is discarded (§5).
type HandleIterator struct {
	ti       *TwoLevelBlockIndex
	tliIdx   int
	entries  []blk.IndexEntry
	pos      int
	reverse  bool
	err      error
	exhausted bool
}

// ForwardReader returns data-block handles in ascending order, starting at
// the lowest block whose last key is >= from. If from is nil, iteration
// starts at the first block.
func (ti *TwoLevelBlockIndex) ForwardReader(from []byte) *HandleIterator {
	it := &HandleIterator{ti: ti}

	tliIdx := 0
	if len(from) > 0 {
		idx, ok := ti.tliIndexFor(from)
		if !ok {
			it.exhausted = true
			return it
		}
		tliIdx = idx
	}

	entries, err := ti.loadIndexBlock(ti.tli.Entries[tliIdx].Handle, CachePolicyRead)
	if err != nil {
		it.err = err
		return it
	}

	pos := 0
	if len(from) > 0 {
		for i, e := range entries.Entries {
			if bytes.Compare(e.LastUserKey, from) >= 0 {
				pos = i
				break
			}
			pos = i + 1
		}
	}

	it.tliIdx = tliIdx
	it.entries = entries.Entries
	it.pos = pos
	return it
}

// BackwardReader returns data-block handles in descending order, starting
// at the last data block under the first index block whose last key is
// >= from (under the final index block if from is past every key, and at
// the very last block if from is nil).
func (ti *TwoLevelBlockIndex) BackwardReader(from []byte) *HandleIterator {
	it := &HandleIterator{ti: ti, reverse: true}

	tliIdx := len(ti.tli.Entries) - 1
	if tliIdx < 0 {
		it.exhausted = true
		return it
	}
	if len(from) > 0 {
		idx, ok := ti.tliIndexFor(from)
		if !ok {
			idx = len(ti.tli.Entries) - 1
		}
		tliIdx = idx
	}

	entries, err := ti.loadIndexBlock(ti.tli.Entries[tliIdx].Handle, CachePolicyRead)
	if err != nil {
		it.err = err
		return it
	}

	pos := len(entries.Entries) - 1

	it.tliIdx = tliIdx
	it.entries = entries.Entries
	it.pos = pos
	return it
}

// Next returns the next data-block handle, or ok=false when exhausted (or
// on error — check Err()).
func (it *HandleIterator) Next() (base.BlockHandle, bool) {
	if it.err != nil || it.exhausted {
		return base.BlockHandle{}, false
	}

	if it.reverse {
		for it.pos < 0 {
			it.tliIdx--
			if it.tliIdx < 0 {
				it.exhausted = true
				return base.BlockHandle{}, false
			}
			entries, err := it.ti.loadIndexBlock(it.ti.tli.Entries[it.tliIdx].Handle, CachePolicyRead)
			if err != nil {
				it.err = err
				return base.BlockHandle{}, false
			}
			it.entries = entries.Entries
			it.pos = len(it.entries) - 1
		}
		handle := it.entries[it.pos].Handle
		it.pos--
		return handle, true
	}

	for it.pos >= len(it.entries) {
		it.tliIdx++
		if it.tliIdx >= len(it.ti.tli.Entries) {
			it.exhausted = true
			return base.BlockHandle{}, false
		}
		entries, err := it.ti.loadIndexBlock(it.ti.tli.Entries[it.tliIdx].Handle, CachePolicyRead)
		if err != nil {
			it.err = err
			return base.BlockHandle{}, false
		}
		it.entries = entries.Entries
		it.pos = 0
	}
	handle := it.entries[it.pos].Handle
	it.pos++
	return handle, true
}

// Err returns the error, if any, that ended iteration early.
func (it *HandleIterator) Err() error {
	return it.err
}

package sstable

import (
	"bytes"
	"container/heap"

	"github.com/nilotpaldev/strata/internal/base"
)

// source is one input stream to a MultiReader merge: a segment reader plus
// the newest buffered-but-not-yet-returned item from it.
type source struct {
	reader *Reader
	head   base.InternalValue
	ok     bool
	// rank orders otherwise-equal user keys from newer to older sources
	// (lower rank wins): a lower index in the MultiReader's input list is
	// treated as newer, matching "most recently flushed/compacted first".
	rank int
}

// mergeHeap orders sources by internal-key order (so, for equal user keys,
// higher seqno first), breaking ties by rank so the newest source's version
// is popped first when two segments hold the exact same (key, seqno) pair.
type mergeHeap []*source

func (h mergeHeap) Len() int { return len(h) }
func (h mergeHeap) Less(i, j int) bool {
	a, b := h[i].head.Key, h[j].head.Key
	if c := bytes.Compare(a.UserKey, b.UserKey); c != 0 {
		return c < 0
	}
	if a.SeqNo != b.SeqNo {
		return a.SeqNo > b.SeqNo
	}
	return h[i].rank < h[j].rank
}
func (h mergeHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *mergeHeap) Push(x any)        { *h = append(*h, x.(*source)) }
func (h *mergeHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// MultiReader merges any number of segment Readers into one ascending
// internal-key stream, de-duplicating by user key so only the newest visible
// version of each key is returned (§4.K). Earlier entries in readers are
// treated as newer, the convention used when flattening levels youngest
// first.
type MultiReader struct {
	h         mergeHeap
	lastKey   []byte
	haveLast  bool
	err       error
}

// NewMultiReader builds a MultiReader over readers, ordered newest-first.
func NewMultiReader(readers []*Reader) (*MultiReader, error) {
	mr := &MultiReader{}
	for i, r := range readers {
		v, ok, err := r.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		mr.h = append(mr.h, &source{reader: r, head: v, ok: true, rank: i})
	}
	heap.Init(&mr.h)
	return mr, nil
}

// Next returns the next de-duplicated item in ascending user-key order, or
// ok=false once every source is exhausted.
func (mr *MultiReader) Next() (base.InternalValue, bool, error) {
	if mr.err != nil {
		return base.InternalValue{}, false, mr.err
	}

	for mr.h.Len() > 0 {
		top := mr.h[0]
		v := top.head

		next, ok, err := top.reader.Next()
		if err != nil {
			mr.err = err
			return base.InternalValue{}, false, err
		}
		if ok {
			top.head = next
			heap.Fix(&mr.h, 0)
		} else {
			heap.Pop(&mr.h)
		}

		if mr.haveLast && bytes.Equal(v.Key.UserKey, mr.lastKey) {
			continue
		}

		mr.lastKey = v.Key.UserKey
		mr.haveLast = true
		return v, true, nil
	}

	return base.InternalValue{}, false, nil
}

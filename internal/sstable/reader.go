package sstable

import (
	"bytes"

	"github.com/nilotpaldev/strata/internal/base"
	"github.com/nilotpaldev/strata/internal/blockindex"
)

// Reader is a forward or backward cursor over a segment's items, walking
// data blocks in handle order and the items within each block in turn
// (§4.K). A Reader that hits a corrupt block or I/O failure stops and
// reports the error from the next Next() call; it never retries.
type Reader struct {
	seg      *Segment
	handles  *blockindex.HandleIterator
	from     []byte
	items    []base.InternalValue
	pos      int
	reverse  bool
	err      error
}

// Reader returns a forward cursor starting at the lowest item with user key
// >= from. A nil from starts at the very first item.
func (s *Segment) Reader(from []byte) *Reader {
	return &Reader{seg: s, handles: s.index.ForwardReader(from), from: from}
}

// BackwardReader returns a cursor walking items in descending order, starting
// at the highest item with user key <= from (nil from starts at the last item).
func (s *Segment) BackwardReader(from []byte) *Reader {
	return &Reader{seg: s, handles: s.index.BackwardReader(from), from: from, reverse: true}
}

func (r *Reader) loadNextBlock() bool {
	handle, ok := r.handles.Next()
	if !ok {
		if err := r.handles.Err(); err != nil {
			r.err = err
		}
		return false
	}

	block, err := r.seg.loadDataBlock(handle, false)
	if err != nil {
		r.err = err
		return false
	}

	r.items = block.Items
	if r.reverse {
		r.pos = len(r.items) - 1
	} else {
		r.pos = 0
	}
	return true
}

// Next returns the next item in cursor order, or ok=false when exhausted or
// on error (check Err()).
func (r *Reader) Next() (base.InternalValue, bool, error) {
	if r.err != nil {
		return base.InternalValue{}, false, r.err
	}

	for {
		if r.reverse {
			if r.pos < 0 {
				if !r.loadNextBlock() {
					return base.InternalValue{}, false, r.err
				}
				continue
			}
			v := r.items[r.pos]
			r.pos--
			if len(r.from) > 0 && bytes.Compare(v.Key.UserKey, r.from) > 0 {
				continue
			}
			return v, true, nil
		}

		if r.pos >= len(r.items) {
			if !r.loadNextBlock() {
				return base.InternalValue{}, false, r.err
			}
			continue
		}
		v := r.items[r.pos]
		r.pos++
		if len(r.from) > 0 && bytes.Compare(v.Key.UserKey, r.from) < 0 {
			continue
		}
		return v, true, nil
	}
}

// Err returns the error, if any, that ended iteration early.
func (r *Reader) Err() error {
	return r.err
}

// Range wraps a Reader with a bound check applied on every item: items equal
// to an excluded lower bound are skipped, and iteration stops (not erroring)
// at the first item past the upper bound (§4.K).
type Range struct {
	inner  *Reader
	bounds base.Bounds
	done   bool
}

// RangeReader returns a forward cursor over items within bounds.
func (s *Segment) RangeReader(bounds base.Bounds) *Range {
	var from []byte
	if bounds.Lo.Kind != base.BoundUnbounded {
		from = bounds.Lo.Key
	}
	return &Range{inner: s.Reader(from), bounds: bounds}
}

// Next returns the next in-bounds item, or ok=false once bounds are
// exhausted or an error occurs.
func (rg *Range) Next() (base.InternalValue, bool, error) {
	if rg.done {
		return base.InternalValue{}, false, rg.inner.Err()
	}

	for {
		v, ok, err := rg.inner.Next()
		if err != nil {
			rg.done = true
			return base.InternalValue{}, false, err
		}
		if !ok {
			rg.done = true
			return base.InternalValue{}, false, nil
		}

		if rg.bounds.Lo.Kind == base.BoundExcluded && bytes.Equal(v.Key.UserKey, rg.bounds.Lo.Key) {
			continue
		}

		switch rg.bounds.Hi.Kind {
		case base.BoundIncluded:
			if bytes.Compare(v.Key.UserKey, rg.bounds.Hi.Key) > 0 {
				rg.done = true
				return base.InternalValue{}, false, nil
			}
		case base.BoundExcluded:
			if bytes.Compare(v.Key.UserKey, rg.bounds.Hi.Key) >= 0 {
				rg.done = true
				return base.InternalValue{}, false, nil
			}
		}

		return v, true, nil
	}
}

// Err returns the error, if any, that ended iteration early.
func (rg *Range) Err() error {
	return rg.inner.Err()
}

// PrefixedReader is a Range constrained to [prefix, upperBound(prefix)).
type PrefixedReader struct {
	*Range
}

// PrefixReader returns a cursor over every item whose user key starts with
// prefix (§4.K).
func (s *Segment) PrefixReader(prefix []byte) *PrefixedReader {
	bounds := base.Bounds{Lo: base.Included(prefix)}
	if upper, ok := base.PrefixUpperBound(prefix); ok {
		bounds.Hi = base.Excluded(upper)
	}
	return &PrefixedReader{Range: s.RangeReader(bounds)}
}


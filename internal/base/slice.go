// Package base holds the leaf data types the rest of the storage core is
// built from: the shared byte slice, the MVCC-annotated internal key/value
// pair, and the key-range arithmetic used to decide what a segment or level
// can answer for.
package base

import "sync/atomic"

// Slice is an immutable, shareable byte range. Once constructed its bytes
// are never mutated; cloning shares the same backing array and only bumps a
// reference count, matching §3's "refcounted immutable byte range, cheap to
// clone" requirement. The backing array is owned by whichever layer
// allocated it (usually a decoded value block); Slice itself never frees
// memory. The refcount only counts live handles; BlockCache releases its
// handle on eviction but does not consult the count when choosing what to
// evict.
type Slice struct {
	data refCounted
}

type refCounted struct {
	bytes []byte
	count *atomic.Int32
}

// NewSlice takes ownership of b and returns a Slice with a fresh refcount of 1.
func NewSlice(b []byte) Slice {
	count := &atomic.Int32{}
	count.Store(1)
	return Slice{data: refCounted{bytes: b, count: count}}
}

// Empty returns a zero-length Slice that needs no refcounting.
func Empty() Slice {
	return Slice{}
}

// Bytes returns the underlying byte range. Callers must not mutate it.
func (s Slice) Bytes() []byte {
	return s.data.bytes
}

// Len returns the number of bytes in the slice.
func (s Slice) Len() int {
	return len(s.data.bytes)
}

// Clone returns a new handle sharing the same backing array, incrementing
// the refcount. Cheap: no bytes are copied.
func (s Slice) Clone() Slice {
	if s.data.count != nil {
		s.data.count.Add(1)
	}
	return s
}

// Release decrements the refcount. It is safe to call on a zero-value
// Slice. The backing array is left to the garbage collector once the last
// handle is released; the new count is visible through RefCount and
// nothing else acts on it.
func (s Slice) Release() {
	if s.data.count != nil {
		s.data.count.Add(-1)
	}
}

// RefCount reports the current number of live handles sharing this slice's
// backing array. Intended for tests and cache diagnostics.
func (s Slice) RefCount() int32 {
	if s.data.count == nil {
		return 0
	}
	return s.data.count.Load()
}

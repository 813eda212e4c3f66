// Package manifest implements the level manifest (§4.L/§4.M): the ordered
// collection of segments at one LSM level, and the durable, ordered list of
// levels that tracks the tree's overall shape.
package manifest

import (
	"bytes"
	"sort"

	"github.com/nilotpaldev/strata/internal/base"
	"github.com/nilotpaldev/strata/internal/sstable"
)

// Handle wraps one recovered, opened Segment; the manifest reads the
// segment's identity, key range, and sequence-number span from its
// metadata.
type Handle struct {
	Segment *sstable.Segment
}

func (h Handle) id() uint64              { return h.Segment.ID }
func (h Handle) keyRange() base.KeyRange { return h.Segment.Metadata.KeyRange }
func (h Handle) maxSeqNo() base.SeqNo    { return h.Segment.Metadata.MaxSeqNo }

// Level is an ordered collection of segments at one LSM level (§4.L).
// IsDisjoint and the sort order are recomputed on every insert/remove:
// disjoint levels sort by key_range.min ascending (so overlapping_segments
// and get_segment_containing_key can binary-search); non-disjoint levels
// (conventionally only level 0) sort by seqnos.max descending, so the
// newest segment is always consulted first.
type Level struct {
	segments   []Handle
	isDisjoint bool
}

// NewLevel builds a Level from an initial segment set, computing its
// disjointness and sort order immediately.
func NewLevel(segments []Handle) *Level {
	l := &Level{segments: segments}
	l.resort()
	return l
}

func (l *Level) resort() {
	ranges := make([]base.KeyRange, len(l.segments))
	for i, h := range l.segments {
		ranges[i] = h.keyRange()
	}
	l.isDisjoint = base.IsDisjoint(ranges)

	if l.isDisjoint {
		sort.Slice(l.segments, func(i, j int) bool {
			return bytes.Compare(l.segments[i].keyRange().Min, l.segments[j].keyRange().Min) < 0
		})
	} else {
		sort.Slice(l.segments, func(i, j int) bool {
			return l.segments[i].maxSeqNo() > l.segments[j].maxSeqNo()
		})
	}
}

// Insert adds segment to the level and re-sorts (§4.L).
func (l *Level) Insert(h Handle) {
	l.segments = append(l.segments, h)
	l.resort()
}

// Remove drops the segment with segmentID, if present, and re-sorts.
func (l *Level) Remove(segmentID uint64) {
	out := l.segments[:0]
	for _, h := range l.segments {
		if h.id() != segmentID {
			out = append(out, h)
		}
	}
	l.segments = out
	l.resort()
}

// IsDisjoint reports whether no two segments in this level share a key.
func (l *Level) IsDisjoint() bool { return l.isDisjoint }

// IsEmpty reports whether the level holds no segments.
func (l *Level) IsEmpty() bool { return len(l.segments) == 0 }

// Len returns the number of segments in the level.
func (l *Level) Len() int { return len(l.segments) }

// Size returns the total on-disk size, in bytes, of every segment in the level.
func (l *Level) Size() uint64 {
	var total uint64
	for _, h := range l.segments {
		total += h.Segment.Metadata.FileSize
	}
	return total
}

// IDs returns the segment ids in this level, in the level's current sort order.
func (l *Level) IDs() []uint64 {
	ids := make([]uint64, len(l.segments))
	for i, h := range l.segments {
		ids[i] = h.id()
	}
	return ids
}

// Segments returns the level's segment handles in current sort order. The
// returned slice is a fresh copy — safe for a caller to hold across a later
// mutation of this Level (§5: levels are copy-on-write with respect to
// readers that captured a handle before an update).
func (l *Level) Segments() []Handle {
	out := make([]Handle, len(l.segments))
	copy(out, l.segments)
	return out
}

// OverlappingSegments returns every segment whose key range intersects kr.
func (l *Level) OverlappingSegments(kr base.KeyRange) []Handle {
	var out []Handle
	for _, h := range l.segments {
		if h.keyRange().OverlapsWithKeyRange(kr) {
			out = append(out, h)
		}
	}
	return out
}

// GetSegmentContainingKey returns the segment that may contain k, for a
// disjoint level only: partition_point(segment.key_range.max < k). Panics if
// the level is not disjoint — the caller is responsible for only calling
// this on disjoint levels (§4.L). The returned segment still requires a
// normal Get, since its key range containing k doesn't guarantee the key is
// actually present.
func (l *Level) GetSegmentContainingKey(k []byte) (Handle, bool) {
	if !l.isDisjoint {
		panic("manifest: GetSegmentContainingKey called on a non-disjoint level")
	}

	idx := sort.Search(len(l.segments), func(i int) bool {
		return bytes.Compare(l.segments[i].keyRange().Max, k) >= 0
	})
	if idx == len(l.segments) {
		return Handle{}, false
	}
	return l.segments[idx], true
}

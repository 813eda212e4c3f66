package base

import (
	"bytes"
	"sort"
)

// BoundKind distinguishes the three ways a half-open range endpoint can be
// expressed.
type BoundKind uint8

const (
	BoundUnbounded BoundKind = iota
	BoundIncluded
	BoundExcluded
)

// Bound is one side of a range query.
type Bound struct {
	Kind BoundKind
	Key  []byte
}

// Unbounded returns a Bound with no constraint.
func Unbounded() Bound { return Bound{Kind: BoundUnbounded} }

// Included returns a Bound that includes key itself.
func Included(key []byte) Bound { return Bound{Kind: BoundIncluded, Key: key} }

// Excluded returns a Bound that excludes key itself.
func Excluded(key []byte) Bound { return Bound{Kind: BoundExcluded, Key: key} }

// Bounds is a pair of Bound values describing a (possibly half-open, possibly
// unbounded) range over user keys.
type Bounds struct {
	Lo Bound
	Hi Bound
}

// KeyRange is an inclusive [min, max] interval over user keys, as persisted
// in segment metadata (§3).
type KeyRange struct {
	Min []byte
	Max []byte
}

// NewKeyRange constructs a KeyRange. Callers are responsible for ensuring
// min <= max; KeyRange does not reorder its arguments, matching how segment
// metadata is derived directly from the sorted stream of written keys.
func NewKeyRange(min, max []byte) KeyRange {
	return KeyRange{Min: min, Max: max}
}

// ContainsKey reports whether k falls within [Min, Max] inclusive.
func (r KeyRange) ContainsKey(k []byte) bool {
	return bytes.Compare(k, r.Min) >= 0 && bytes.Compare(k, r.Max) <= 0
}

// OverlapsWithKeyRange reports whether r and other share at least one key,
// per §3: a.min <= b.max && b.min <= a.max.
func (r KeyRange) OverlapsWithKeyRange(other KeyRange) bool {
	return bytes.Compare(r.Min, other.Max) <= 0 && bytes.Compare(other.Min, r.Max) <= 0
}

// OverlapsWithBounds reports whether r intersects the half-open/unbounded
// range described by b.
func (r KeyRange) OverlapsWithBounds(b Bounds) bool {
	switch b.Lo.Kind {
	case BoundIncluded:
		if bytes.Compare(r.Max, b.Lo.Key) < 0 {
			return false
		}
	case BoundExcluded:
		if bytes.Compare(r.Max, b.Lo.Key) <= 0 {
			return false
		}
	}

	switch b.Hi.Kind {
	case BoundIncluded:
		if bytes.Compare(r.Min, b.Hi.Key) > 0 {
			return false
		}
	case BoundExcluded:
		if bytes.Compare(r.Min, b.Hi.Key) >= 0 {
			return false
		}
	}

	return true
}

// IsDisjoint reports whether no two ranges in rs overlap, via sort-by-min
// then adjacent-overlap check — O(n log n), per §4.A.
func IsDisjoint(rs []KeyRange) bool {
	if len(rs) < 2 {
		return true
	}

	sorted := make([]KeyRange, len(rs))
	copy(sorted, rs)
	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i].Min, sorted[j].Min) < 0
	})

	for i := 1; i < len(sorted); i++ {
		if sorted[i-1].OverlapsWithKeyRange(sorted[i]) {
			return false
		}
	}

	return true
}

// PrefixUpperBound returns the lexicographic successor of prefix: the
// smallest byte string greater than every string starting with prefix. It
// returns (nil, false) if prefix consists entirely of 0xff bytes (in which
// case the range is unbounded above), matching the "[p, p+)" construction
// PrefixedReader needs (§4.K).
func PrefixUpperBound(prefix []byte) ([]byte, bool) {
	upper := make([]byte, len(prefix))
	copy(upper, prefix)

	for i := len(upper) - 1; i >= 0; i-- {
		if upper[i] != 0xff {
			upper[i]++
			return upper[:i+1], true
		}
	}

	return nil, false
}

package base

import (
	"bytes"

	strataerrors "github.com/nilotpaldev/strata/pkg/errors"
)

// SeqNo is a 64-bit monotonically-increasing counter assigned at insert
// time. A higher seqno shadows a lower one recorded at the same user key. A
// snapshot at seqno S observes exactly the records with seqno < S.
type SeqNo uint64

// MaxSeqNo is the largest representable sequence number, used as the
// implicit snapshot bound for reads that want to see every committed
// record.
const MaxSeqNo SeqNo = ^SeqNo(0)

// ValueType distinguishes a live value from the two tombstone kinds.
// Tombstone hides every lower-seqno record of the same user key anywhere in
// the tree; WeakTombstone hides only the immediately-next lower-seqno
// record (single-delete semantics). The numeric tags are part of the
// on-disk format (§4.D) and must not be renumbered.
type ValueType uint8

const (
	ValueTypeValue ValueType = iota
	ValueTypeTombstone
	ValueTypeWeakTombstone
)

// ParseValueType decodes a wire byte into a ValueType. Unknown bytes are
// rejected with a DeserializeError rather than silently folded into
// ValueTypeTombstone — a lossy round-trip flagged in the source material as
// a likely bug (§9) that this implementation deliberately does not
// reproduce.
func ParseValueType(b uint8) (ValueType, error) {
	switch ValueType(b) {
	case ValueTypeValue, ValueTypeTombstone, ValueTypeWeakTombstone:
		return ValueType(b), nil
	default:
		return 0, strataerrors.NewDeserializeError(nil, "value_type").
			WithDetail("byte", b)
	}
}

// Byte returns the wire tag for this value type.
func (t ValueType) Byte() uint8 {
	return uint8(t)
}

func (t ValueType) String() string {
	switch t {
	case ValueTypeValue:
		return "Value"
	case ValueTypeTombstone:
		return "Tombstone"
	case ValueTypeWeakTombstone:
		return "WeakTombstone"
	default:
		return "Unknown"
	}
}

// InternalKey is (user_key, seqno, value_type) — the unit everything in the
// segment format is ordered by. Ordering is ascending by user_key, then
// descending by seqno, then ascending by value_type; the consequence is
// that for a fixed user key, the newest version always sorts first.
type InternalKey struct {
	UserKey   []byte
	SeqNo     SeqNo
	ValueType ValueType
}

// NewInternalKey constructs an InternalKey.
func NewInternalKey(userKey []byte, seqno SeqNo, vt ValueType) InternalKey {
	return InternalKey{UserKey: userKey, SeqNo: seqno, ValueType: vt}
}

// CompareInternalKeys orders two internal keys per §3: ascending user_key, descending
// seqno, ascending value_type.
func CompareInternalKeys(a, b InternalKey) int {
	if c := bytes.Compare(a.UserKey, b.UserKey); c != 0 {
		return c
	}
	if a.SeqNo != b.SeqNo {
		if a.SeqNo > b.SeqNo {
			return -1
		}
		return 1
	}
	if a.ValueType != b.ValueType {
		if a.ValueType < b.ValueType {
			return -1
		}
		return 1
	}
	return 0
}

// Less reports whether a sorts before b.
func (a InternalKey) Less(b InternalKey) bool {
	return CompareInternalKeys(a, b) < 0
}

// IsTombstone reports whether this key marks its user key deleted, under
// either tombstone kind.
func (k InternalKey) IsTombstone() bool {
	return k.ValueType == ValueTypeTombstone || k.ValueType == ValueTypeWeakTombstone
}

// InternalValue is (internal_key, user_value). user_value is empty for
// tombstones.
type InternalValue struct {
	Key   InternalKey
	Value []byte
}

// NewInternalValue constructs an InternalValue for a live value.
func NewInternalValue(userKey []byte, seqno SeqNo, value []byte) InternalValue {
	return InternalValue{
		Key:   NewInternalKey(userKey, seqno, ValueTypeValue),
		Value: value,
	}
}

// NewTombstone constructs an InternalValue representing a full tombstone at seqno.
func NewTombstone(userKey []byte, seqno SeqNo) InternalValue {
	return InternalValue{Key: NewInternalKey(userKey, seqno, ValueTypeTombstone)}
}

// NewWeakTombstone constructs an InternalValue representing a single-delete
// tombstone at seqno.
func NewWeakTombstone(userKey []byte, seqno SeqNo) InternalValue {
	return InternalValue{Key: NewInternalKey(userKey, seqno, ValueTypeWeakTombstone)}
}

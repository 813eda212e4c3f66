package base

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInternalKeyOrdering(t *testing.T) {
	newer := NewInternalKey([]byte("a"), 5, ValueTypeValue)
	older := NewInternalKey([]byte("a"), 3, ValueTypeValue)
	require.True(t, newer.Less(older), "higher seqno must sort first for the same user key")

	a := NewInternalKey([]byte("a"), 1, ValueTypeValue)
	b := NewInternalKey([]byte("b"), 1, ValueTypeValue)
	require.True(t, a.Less(b))

	value := NewInternalKey([]byte("a"), 1, ValueTypeValue)
	tombstone := NewInternalKey([]byte("a"), 1, ValueTypeTombstone)
	require.True(t, value.Less(tombstone))
}

func TestParseValueTypeRejectsUnknown(t *testing.T) {
	for _, b := range []uint8{0, 1, 2} {
		vt, err := ParseValueType(b)
		require.NoError(t, err)
		require.Equal(t, b, vt.Byte())
	}

	_, err := ParseValueType(3)
	require.Error(t, err, "unknown value-type bytes must be rejected, not folded into Tombstone")
}

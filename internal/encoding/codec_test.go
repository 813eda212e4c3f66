package encoding

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nilotpaldev/strata/internal/base"
)

// TestInternalValueGoldenEncoding pins scenario S6: a fixed InternalValue
// must serialize to an exact byte sequence.
func TestInternalValueGoldenEncoding(t *testing.T) {
	value := base.InternalValue{
		Key:   base.NewInternalKey([]byte{1, 2, 3}, 1, base.ValueTypeValue),
		Value: []byte{3, 2, 1},
	}

	got, err := EncodeInternalValue(nil, value)
	require.NoError(t, err)

	want := []byte{
		0x00, 0x03, // key_len = 3
		0x01, 0x02, 0x03, // key bytes
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01, // seqno = 1
		0x00,                   // value_type = Value
		0x00, 0x00, 0x00, 0x03, // value_len = 3
		0x03, 0x02, 0x01, // value bytes
	}

	require.Equal(t, want, got)
}

func TestInternalValueRoundTrip(t *testing.T) {
	cases := []base.InternalValue{
		base.NewInternalValue([]byte("hello"), 42, []byte("world")),
		base.NewTombstone([]byte("deleted"), 7),
		base.NewWeakTombstone([]byte("x"), 9999999999),
		base.NewInternalValue([]byte("a"), 0, nil),
	}

	for _, v := range cases {
		encoded, err := EncodeInternalValue(nil, v)
		require.NoError(t, err)

		decoded, n, err := DecodeInternalValue(encoded)
		require.NoError(t, err)
		require.Equal(t, len(encoded), n)
		require.Equal(t, v.Key.UserKey, decoded.Key.UserKey)
		require.Equal(t, v.Key.SeqNo, decoded.Key.SeqNo)
		require.Equal(t, v.Key.ValueType, decoded.Key.ValueType)
		require.Equal(t, v.Value, decoded.Value)
	}
}

func TestEncodeInternalKeyRejectsEmptyKey(t *testing.T) {
	_, err := EncodeInternalKey(nil, base.NewInternalKey(nil, 1, base.ValueTypeValue))
	require.Error(t, err)
}

func TestDecodeInternalKeyRejectsTruncated(t *testing.T) {
	_, _, err := DecodeInternalKey([]byte{0x00})
	require.Error(t, err)
}

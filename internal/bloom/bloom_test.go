package bloom

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBloomNoFalseNegatives(t *testing.T) {
	f := New(1000, 0.01)
	keys := make([][]byte, 1000)
	for i := range keys {
		k := make([]byte, 8)
		binary.BigEndian.PutUint64(k, uint64(i))
		keys[i] = k
		f.Insert(k)
	}

	for _, k := range keys {
		require.True(t, f.Contains(k), "bloom filter must never false-negative")
	}
}

func TestBloomRoundTrip(t *testing.T) {
	f := New(100, 0.01)
	f.Insert([]byte("present"))

	raw, err := f.ToBytes()
	require.NoError(t, err)

	restored, err := FromBytes(raw)
	require.NoError(t, err)
	require.True(t, restored.Contains([]byte("present")))
}

func TestBloomRejectsUnknownVersion(t *testing.T) {
	f := New(10, 0.01)
	raw, err := f.ToBytes()
	require.NoError(t, err)

	binary.BigEndian.PutUint32(raw[:4], 9999)

	_, err = FromBytes(raw)
	require.Error(t, err)
}

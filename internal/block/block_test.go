package block

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nilotpaldev/strata/internal/base"
	"github.com/nilotpaldev/strata/pkg/options"
)

func TestValueBlockRoundTrip(t *testing.T) {
	items := []base.InternalValue{
		base.NewInternalValue([]byte("a"), 3, []byte("1")),
		base.NewInternalValue([]byte("a"), 1, []byte("0")),
		base.NewInternalValue([]byte("b"), 2, []byte("2")),
	}

	for _, kind := range []options.Compression{
		options.CompressionNone,
		options.CompressionLZ4,
		options.CompressionMiniz,
		options.CompressionZstd,
	} {
		raw, err := EncodeValueBlock(items, kind)
		require.NoError(t, err)

		decoded, n, err := DecodeValueBlock(raw)
		require.NoError(t, err)
		require.Equal(t, len(raw), n)
		require.Len(t, decoded.Items, 3)

		v, ok := decoded.FirstMatch([]byte("b"))
		require.True(t, ok)
		require.Equal(t, []byte("2"), v.Value)

		_, ok = decoded.FirstMatch([]byte("zzz"))
		require.False(t, ok)
	}
}

func TestIndexBlockLookup(t *testing.T) {
	entries := []IndexEntry{
		{LastUserKey: []byte("c"), Handle: base.BlockHandle{Offset: 0, Size: 10}},
		{LastUserKey: []byte("k"), Handle: base.BlockHandle{Offset: 10, Size: 10}},
		{LastUserKey: []byte("z"), Handle: base.BlockHandle{Offset: 20, Size: 10}},
	}

	raw, err := EncodeIndexBlock(entries, options.CompressionZstd)
	require.NoError(t, err)

	decoded, _, err := DecodeIndexBlock(raw)
	require.NoError(t, err)

	h, ok := decoded.LowestContaining([]byte("d"))
	require.True(t, ok)
	require.Equal(t, uint64(10), h.Offset)

	h, ok = decoded.LowestContaining([]byte("a"))
	require.True(t, ok)
	require.Equal(t, uint64(0), h.Offset)

	_, ok = decoded.LowestContaining([]byte("zz"))
	require.False(t, ok)

	h, ok = decoded.LastContaining([]byte("a"))
	require.True(t, ok)
	require.Equal(t, uint64(20), h.Offset)
}

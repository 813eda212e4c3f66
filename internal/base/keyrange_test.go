package base

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeyRangeContainsKey(t *testing.T) {
	r := NewKeyRange([]byte("c"), []byte("k"))
	require.True(t, r.ContainsKey([]byte("c")))
	require.True(t, r.ContainsKey([]byte("k")))
	require.True(t, r.ContainsKey([]byte("f")))
	require.False(t, r.ContainsKey([]byte("a")))
	require.False(t, r.ContainsKey([]byte("z")))
}

func TestKeyRangeOverlap(t *testing.T) {
	// S3 scenario.
	r1 := NewKeyRange([]byte("c"), []byte("k"))
	r2 := NewKeyRange([]byte("l"), []byte("z"))

	require.False(t, r1.OverlapsWithKeyRange(NewKeyRange([]byte("a"), []byte("b"))))
	require.False(t, r2.OverlapsWithKeyRange(NewKeyRange([]byte("a"), []byte("b"))))

	require.True(t, r1.OverlapsWithKeyRange(NewKeyRange([]byte("d"), []byte("k"))))
	require.False(t, r2.OverlapsWithKeyRange(NewKeyRange([]byte("d"), []byte("k"))))

	require.True(t, r1.OverlapsWithKeyRange(NewKeyRange([]byte("f"), []byte("x"))))
	require.True(t, r2.OverlapsWithKeyRange(NewKeyRange([]byte("f"), []byte("x"))))
}

func TestIsDisjoint(t *testing.T) {
	disjoint := []KeyRange{
		NewKeyRange([]byte("a"), []byte("b")),
		NewKeyRange([]byte("c"), []byte("d")),
	}
	require.True(t, IsDisjoint(disjoint))

	overlapping := []KeyRange{
		NewKeyRange([]byte("a"), []byte("c")),
		NewKeyRange([]byte("b"), []byte("d")),
	}
	require.False(t, IsDisjoint(overlapping))

	require.True(t, IsDisjoint(nil))
	require.True(t, IsDisjoint([]KeyRange{NewKeyRange([]byte("a"), []byte("a"))}))
}

func TestOverlapsWithBounds(t *testing.T) {
	r := NewKeyRange([]byte("c"), []byte("k"))

	require.True(t, r.OverlapsWithBounds(Bounds{Lo: Unbounded(), Hi: Unbounded()}))
	require.True(t, r.OverlapsWithBounds(Bounds{Lo: Included([]byte("k")), Hi: Unbounded()}))
	require.False(t, r.OverlapsWithBounds(Bounds{Lo: Excluded([]byte("k")), Hi: Unbounded()}))
	require.False(t, r.OverlapsWithBounds(Bounds{Lo: Unbounded(), Hi: Excluded([]byte("c"))}))
}

func TestPrefixUpperBound(t *testing.T) {
	upper, ok := PrefixUpperBound([]byte("ab"))
	require.True(t, ok)
	require.Equal(t, []byte("ac"), upper)

	_, ok = PrefixUpperBound([]byte{0xff, 0xff})
	require.False(t, ok)
}

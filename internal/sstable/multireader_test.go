package sstable

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nilotpaldev/strata/internal/base"
)

func TestMultiReaderMergesAndDedupes(t *testing.T) {
	newer := []base.InternalValue{
		base.NewInternalValue([]byte("b"), 10, []byte("b-new")),
		base.NewInternalValue([]byte("d"), 11, []byte("d-new")),
	}
	older := []base.InternalValue{
		base.NewInternalValue([]byte("a"), 1, []byte("a-old")),
		base.NewInternalValue([]byte("b"), 2, []byte("b-old")),
		base.NewInternalValue([]byte("c"), 3, []byte("c-old")),
	}

	folderA, writtenA := writeSegment(t, older)
	segA := openSegment(t, folderA, writtenA.ID)

	folderB, writtenB := writeSegment(t, newer)
	segB := openSegment(t, folderB, writtenB.ID)

	mr, err := NewMultiReader([]*Reader{segB.Reader(nil), segA.Reader(nil)})
	require.NoError(t, err)

	var got []base.InternalValue
	for {
		v, ok, err := mr.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, v)
	}

	require.Len(t, got, 4)
	require.Equal(t, "a", string(got[0].Key.UserKey))
	require.Equal(t, []byte("a-old"), got[0].Value)
	require.Equal(t, "b", string(got[1].Key.UserKey))
	require.Equal(t, []byte("b-new"), got[1].Value)
	require.Equal(t, "c", string(got[2].Key.UserKey))
	require.Equal(t, []byte("c-old"), got[2].Value)
	require.Equal(t, "d", string(got[3].Key.UserKey))
	require.Equal(t, []byte("d-new"), got[3].Value)
}

package fdtable

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nilotpaldev/strata/pkg/logger"
)

func writeTempSegment(t *testing.T, dir string, id uint64, contents string) string {
	t.Helper()
	path := filepath.Join(dir, "seg")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

// TestOpenFilesPressure mirrors scenario S5: with a tiny handle budget,
// repeated access across many segments must keep succeeding rather than
// exhausting descriptors.
func TestOpenFilesPressure(t *testing.T) {
	dir := t.TempDir()
	table := New(1, 1, logger.Nop())

	const segmentCount = 2048
	for i := uint64(0); i < segmentCount; i++ {
		path := filepath.Join(dir, "seg")
		_ = path
		p := filepath.Join(dir, "segfile")
		_ = os.WriteFile(p, []byte("x"), 0o644)
		table.Insert(i, p)
	}

	for round := 0; round < 5; round++ {
		for i := uint64(0); i < segmentCount; i++ {
			guard, err := table.Access(i)
			require.NoError(t, err)
			buf := make([]byte, 1)
			n, err := guard.ReadAt(buf, 0)
			require.NoError(t, err)
			require.Equal(t, 1, n)
		}
	}
}

func TestAccessUnregisteredSegmentFails(t *testing.T) {
	table := New(4, 2, logger.Nop())
	_, err := table.Access(42)
	require.Error(t, err)
}

func TestRemoveClosesHandles(t *testing.T) {
	dir := t.TempDir()
	path := writeTempSegment(t, dir, 1, "data")

	table := New(4, 1, logger.Nop())
	table.Insert(1, path)

	_, err := table.Access(1)
	require.NoError(t, err)

	table.Remove(1)

	_, err = table.Access(1)
	require.Error(t, err, "segment must be unregistered after Remove")
}

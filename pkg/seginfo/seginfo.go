// Package seginfo names and discovers segment files on disk.
//
// Filename format: NNNNNNNNNNNNNNNNNNNN.sst
//
// Where NNNNNNNNNNNNNNNNNNNN is the segment id, zero-padded to 20 digits (the
// full width of a uint64). Unlike the teacher's Bitcask segments, a segment
// id here is assigned once by the LevelManifest's monotonic allocator
// (§4.M) and never reused, so no embedded timestamp is needed for
// uniqueness or ordering: lexicographic order over these filenames is
// numeric order over segment ids.
package seginfo

import (
	"fmt"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/nilotpaldev/strata/pkg/filesys"
)

const extension = ".sst"

// GenerateName returns the on-disk filename for segment id.
func GenerateName(id uint64) string {
	return fmt.Sprintf("%020d%s", id, extension)
}

// ParseSegmentID extracts the segment id encoded in fullPath's filename.
func ParseSegmentID(fullPath string) (uint64, error) {
	_, filename := filepath.Split(fullPath)

	if !strings.HasSuffix(filename, extension) {
		return 0, fmt.Errorf("filename %s does not end with expected extension %s", filename, extension)
	}

	idStr := strings.TrimSuffix(filename, extension)
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse segment id %q as integer: %w", idStr, err)
	}

	return id, nil
}

// ListSegmentPaths returns every segment file under segmentDir, sorted
// ascending by segment id (lexicographic sort over zero-padded filenames
// produces numeric order).
func ListSegmentPaths(segmentDir string) ([]string, error) {
	searchPattern := filepath.Join(segmentDir, "*"+extension)

	matches, err := filesys.ReadDir(searchPattern)
	if err != nil {
		return nil, fmt.Errorf("failed to read segment directory with pattern %s: %w", searchPattern, err)
	}

	slices.Sort(matches)
	return matches, nil
}

// HighestSegmentID scans segmentDir and returns the highest segment id
// present, and whether any segment files exist at all. Manifest recovery
// does not call it; the id allocator's high-water mark is restored from the
// manifest snapshot and log only.
func HighestSegmentID(segmentDir string) (id uint64, found bool, err error) {
	paths, err := ListSegmentPaths(segmentDir)
	if err != nil {
		return 0, false, err
	}
	if len(paths) == 0 {
		return 0, false, nil
	}

	last := paths[len(paths)-1]
	parsed, err := ParseSegmentID(last)
	if err != nil {
		return 0, false, fmt.Errorf("failed to parse segment id from %s: %w", last, err)
	}

	return parsed, true, nil
}

// PathFor joins segmentDir and the filename for id.
func PathFor(segmentDir string, id uint64) string {
	return filepath.Join(segmentDir, GenerateName(id))
}

package manifest

import (
	"encoding/binary"
	"os"

	strataerrors "github.com/nilotpaldev/strata/pkg/errors"
)

const snapshotVersion uint32 = 1

// snapshotState is the flattened form of a LevelManifest written to disk:
// just enough to rebuild every Level's segment-id membership and the
// id-allocator high-water mark. Everything else (key ranges, seqno spans,
// file sizes) is recoverable straight from each segment's own file (its
// metadata block and trailer), so
// it is never duplicated into the manifest (§6.2).
type snapshotState struct {
	nextSegmentID uint64
	levels        [][]uint64 // levels[i] = segment ids at level i, in no particular order
}

func encodeSnapshot(s snapshotState) []byte {
	buf := make([]byte, 0, 16+len(s.levels)*4)

	var header [16]byte
	binary.BigEndian.PutUint32(header[0:4], snapshotVersion)
	binary.BigEndian.PutUint64(header[4:12], s.nextSegmentID)
	binary.BigEndian.PutUint32(header[12:16], uint32(len(s.levels)))
	buf = append(buf, header[:]...)

	for _, ids := range s.levels {
		var countBuf [4]byte
		binary.BigEndian.PutUint32(countBuf[:], uint32(len(ids)))
		buf = append(buf, countBuf[:]...)

		for _, id := range ids {
			var idBuf [8]byte
			binary.BigEndian.PutUint64(idBuf[:], id)
			buf = append(buf, idBuf[:]...)
		}
	}

	return buf
}

func decodeSnapshot(buf []byte) (snapshotState, error) {
	if len(buf) < 16 {
		return snapshotState{}, strataerrors.NewDeserializeError(nil, "manifest_snapshot").
			WithDetail("reason", "truncated header")
	}

	version := binary.BigEndian.Uint32(buf[0:4])
	if version != snapshotVersion {
		return snapshotState{}, strataerrors.NewInvalidVersionError("manifest_snapshot", version, snapshotVersion)
	}

	s := snapshotState{
		nextSegmentID: binary.BigEndian.Uint64(buf[4:12]),
	}
	levelCount := int(binary.BigEndian.Uint32(buf[12:16]))
	offset := 16

	s.levels = make([][]uint64, levelCount)
	for i := 0; i < levelCount; i++ {
		if len(buf) < offset+4 {
			return snapshotState{}, strataerrors.NewDeserializeError(nil, "manifest_snapshot").
				WithDetail("reason", "truncated level count")
		}
		count := int(binary.BigEndian.Uint32(buf[offset : offset+4]))
		offset += 4

		ids := make([]uint64, count)
		for j := 0; j < count; j++ {
			if len(buf) < offset+8 {
				return snapshotState{}, strataerrors.NewDeserializeError(nil, "manifest_snapshot").
					WithDetail("reason", "truncated segment id")
			}
			ids[j] = binary.BigEndian.Uint64(buf[offset : offset+8])
			offset += 8
		}
		s.levels[i] = ids
	}

	return s, nil
}

func readSnapshot(path string) (snapshotState, bool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return snapshotState{}, false, nil
		}
		return snapshotState{}, false, strataerrors.NewStorageError(err, strataerrors.ErrorCodeIO, "failed to read manifest snapshot").
			WithPath(path)
	}
	s, err := decodeSnapshot(raw)
	if err != nil {
		return snapshotState{}, false, err
	}
	return s, true, nil
}

// applyDeltaToState folds one replayed delta into state, used both by
// recovery (replaying the log atop the last snapshot) and by Apply.
func applyDeltaToState(state *snapshotState, d Delta) {
	switch d.kind {
	case deltaSetLevelCount:
		for len(state.levels) < d.level {
			state.levels = append(state.levels, nil)
		}

	case deltaAddSegment:
		for len(state.levels) <= d.level {
			state.levels = append(state.levels, nil)
		}
		state.levels[d.level] = append(state.levels[d.level], d.segmentID)
		if d.segmentID >= state.nextSegmentID {
			state.nextSegmentID = d.segmentID + 1
		}

	case deltaRemoveSegment:
		for i, ids := range state.levels {
			out := ids[:0]
			for _, id := range ids {
				if id != d.segmentID {
					out = append(out, id)
				}
			}
			state.levels[i] = out
		}

	case deltaAllocateID:
		if d.segmentID >= state.nextSegmentID {
			state.nextSegmentID = d.segmentID + 1
		}
	}
}

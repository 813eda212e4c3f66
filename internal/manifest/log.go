package manifest

import (
	"encoding/binary"
	"os"

	strataerrors "github.com/nilotpaldev/strata/pkg/errors"
)

// deltaKind tags one manifest log entry (§6.2).
type deltaKind uint8

const (
	deltaAddSegment deltaKind = iota
	deltaRemoveSegment
	deltaSetLevelCount
	deltaAllocateID
)

// Delta is one atomic change to the tree shape, as accepted by Apply. A
// single call to Apply may batch several deltas (e.g. "move these segments
// from L0 into L1, retire their L0 originals") so the whole batch becomes
// durable together.
type Delta struct {
	kind      deltaKind
	level     int
	segmentID uint64
}

// AddSegment returns a delta that places an already-written segment into level.
func AddSegment(level int, segmentID uint64) Delta {
	return Delta{kind: deltaAddSegment, level: level, segmentID: segmentID}
}

// RemoveSegment returns a delta that retires segmentID from whichever level holds it.
func RemoveSegment(segmentID uint64) Delta {
	return Delta{kind: deltaRemoveSegment, segmentID: segmentID}
}

// SetLevelCount returns a delta that ensures at least n levels exist.
func SetLevelCount(n int) Delta {
	return Delta{kind: deltaSetLevelCount, level: n}
}

// allocateIDDelta records that id has been handed to a caller, durably
// advancing the allocator's high-water mark before the id is used, so a
// crash between allocation and the segment's eventual AddSegment can never
// result in the id being reused (§4.M).
func allocateIDDelta(id uint64) Delta {
	return Delta{kind: deltaAllocateID, segmentID: id}
}

const deltaWireSize = 1 + 8 + 8 // kind | level (as int64) | segmentID

func encodeDelta(d Delta) []byte {
	var buf [deltaWireSize]byte
	buf[0] = byte(d.kind)
	binary.BigEndian.PutUint64(buf[1:9], uint64(int64(d.level)))
	binary.BigEndian.PutUint64(buf[9:17], d.segmentID)
	return buf[:]
}

func decodeDelta(buf []byte) (Delta, error) {
	if len(buf) != deltaWireSize {
		return Delta{}, strataerrors.NewDeserializeError(nil, "manifest_delta").
			WithDetail("reason", "truncated delta record")
	}
	return Delta{
		kind:      deltaKind(buf[0]),
		level:     int(int64(binary.BigEndian.Uint64(buf[1:9]))),
		segmentID: binary.BigEndian.Uint64(buf[9:17]),
	}, nil
}

// appendDeltas opens logPath for append (creating it if absent), writes
// every delta in order, and fsyncs before returning, so a crash after this
// call returns never loses the batch (§6.2).
func appendDeltas(logPath string, deltas []Delta) error {
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return strataerrors.NewStorageError(err, strataerrors.ErrorCodeIO, "failed to open manifest log").
			WithPath(logPath)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return strataerrors.NewStorageError(err, strataerrors.ErrorCodeIO, "failed to stat manifest log").
			WithPath(logPath)
	}
	if tail := info.Size() % deltaWireSize; tail != 0 {
		if err := f.Truncate(info.Size() - tail); err != nil {
			return strataerrors.NewStorageError(err, strataerrors.ErrorCodeIO, "failed to drop torn manifest record").
				WithPath(logPath)
		}
	}

	for _, d := range deltas {
		if _, err := f.Write(encodeDelta(d)); err != nil {
			return strataerrors.NewStorageError(err, strataerrors.ErrorCodeIO, "failed to append manifest delta").
				WithPath(logPath)
		}
	}

	return f.Sync()
}

// replayLog reads every complete delta record from logPath. A final
// truncated record (a crash mid-append) is silently dropped rather than
// treated as corruption, since appendDeltas never leaves a partial record
// followed by more data.
func replayLog(logPath string) ([]Delta, error) {
	raw, err := os.ReadFile(logPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, strataerrors.NewStorageError(err, strataerrors.ErrorCodeIO, "failed to read manifest log").
			WithPath(logPath)
	}

	var deltas []Delta
	for off := 0; off+deltaWireSize <= len(raw); off += deltaWireSize {
		d, err := decodeDelta(raw[off : off+deltaWireSize])
		if err != nil {
			return nil, err
		}
		deltas = append(deltas, d)
	}
	return deltas, nil
}

package manifest

import (
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"go.uber.org/zap"

	"github.com/nilotpaldev/strata/internal/base"
	"github.com/nilotpaldev/strata/internal/cache"
	"github.com/nilotpaldev/strata/internal/fdtable"
	"github.com/nilotpaldev/strata/internal/sstable"

	strataerrors "github.com/nilotpaldev/strata/pkg/errors"
	"github.com/nilotpaldev/strata/pkg/filesys"
	"github.com/nilotpaldev/strata/pkg/seginfo"
)

const (
	snapshotFileName = "MANIFEST.snapshot"
	logFileName      = "MANIFEST.log"

	// snapshotEveryApplies bounds how long the log can grow before Apply
	// folds it back into a fresh snapshot and truncates it, keeping replay
	// time bounded on the next recovery.
	snapshotEveryApplies = 64
)

// LevelManifest holds an ordered list of Levels (index = LSM level number,
// 0 = newest) and durably tracks the tree's shape (§4.M). Readers take a
// read guard just long enough to clone the segment handles they need, then
// release it before doing any I/O (§5) — Levels() does exactly that.
type LevelManifest struct {
	mu sync.RWMutex

	dir        string
	segmentDir string
	treeID     uint32
	blockCache *cache.BlockCache
	fdtable    *fdtable.Table
	log        *zap.SugaredLogger

	levels               []*Level
	nextSegmentID        uint64
	appliesSinceSnapshot int

	busyMu sync.Mutex
	busy   map[int]map[uint64]struct{}
}

func (m *LevelManifest) snapshotPath() string { return filepath.Join(m.dir, snapshotFileName) }
func (m *LevelManifest) logPath() string      { return filepath.Join(m.dir, logFileName) }

// Recover opens (or initializes) the manifest rooted at dir, replaying the
// log on top of the latest snapshot and recovering every referenced segment
// from segmentDir (§6.2). Segment recovery for different levels runs
// concurrently, since each segment's own file is independent.
func Recover(dir, segmentDir string, treeID uint32, blockCache *cache.BlockCache, fdt *fdtable.Table, log *zap.SugaredLogger) (*LevelManifest, error) {
	if err := filesys.CreateDir(dir, 0o755, true); err != nil {
		return nil, err
	}
	if err := filesys.CreateDir(segmentDir, 0o755, true); err != nil {
		return nil, err
	}

	m := &LevelManifest{
		dir:        dir,
		segmentDir: segmentDir,
		treeID:     treeID,
		blockCache: blockCache,
		fdtable:    fdt,
		log:        log,
		busy:       make(map[int]map[uint64]struct{}),
	}

	state, _, err := readSnapshot(m.snapshotPath())
	if err != nil {
		return nil, err
	}

	deltas, err := replayLog(m.logPath())
	if err != nil {
		return nil, err
	}
	for _, d := range deltas {
		applyDeltaToState(&state, d)
	}

	levels, err := m.recoverLevels(state.levels)
	if err != nil {
		return nil, err
	}

	m.levels = levels
	m.nextSegmentID = state.nextSegmentID
	return m, nil
}

// recoverLevels opens every segment named in levelIDs, one goroutine group
// per level, and builds the corresponding Level objects.
func (m *LevelManifest) recoverLevels(levelIDs [][]uint64) ([]*Level, error) {
	levels := make([]*Level, len(levelIDs))

	var g errgroup.Group
	for i, ids := range levelIDs {
		i, ids := i, ids
		g.Go(func() error {
			handles := make([]Handle, len(ids))

			var hg errgroup.Group
			for j, id := range ids {
				j, id := j, id
				hg.Go(func() error {
					seg, err := sstable.Recover(m.segmentDir, m.treeID, id, m.blockCache, m.fdtable)
					if err != nil {
						return strataerrors.NewSegmentRecoveryError(err, i, id)
					}
					handles[j] = Handle{Segment: seg}
					return nil
				})
			}
			if err := hg.Wait(); err != nil {
				return err
			}

			levels[i] = NewLevel(handles)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return levels, nil
}

// Levels returns a point-in-time snapshot of every level's segment handles.
// The manifest may move on to a new set of Level objects immediately after
// this call returns; the caller's copy remains valid and immutable (§5).
func (m *LevelManifest) Levels() []*Level {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Level, len(m.levels))
	copy(out, m.levels)
	return out
}

// NextSegmentID durably allocates and returns the next segment id. The
// allocation is fsynced to the manifest log before this call returns, so a
// crash immediately after can never cause the id to be handed out again
// (§4.M).
func (m *LevelManifest) NextSegmentID() (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextSegmentID
	if err := appendDeltas(m.logPath(), []Delta{allocateIDDelta(id)}); err != nil {
		return 0, err
	}
	m.nextSegmentID = id + 1
	return id, nil
}

// Apply durably applies a batch of deltas — new segments, retired segments,
// level-count growth — as one atomic update: the deltas are appended and
// fsynced to the log (and, periodically, folded into a fresh snapshot)
// before the in-memory level list is swapped in and before any replaced
// segment's file is retired from the descriptor table / cache (§4.M, §6.2).
func (m *LevelManifest) Apply(deltas []Delta) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := appendDeltas(m.logPath(), deltas); err != nil {
		return err
	}

	state := m.flatten()
	for _, d := range deltas {
		applyDeltaToState(&state, d)
	}

	levels, err := m.recoverLevels(state.levels)
	if err != nil {
		return err
	}

	removed := m.removedSegmentIDs(state)

	m.levels = levels
	m.nextSegmentID = state.nextSegmentID
	m.appliesSinceSnapshot++

	for _, id := range removed {
		m.fdtable.Remove(id)
		m.blockCache.EvictSegment(m.treeID, id)
		if err := filesys.DeleteFile(seginfo.PathFor(m.segmentDir, id)); err != nil {
			m.log.Warnw("failed to delete retired segment file", "segmentID", id, "error", err)
		}
	}

	if m.appliesSinceSnapshot >= snapshotEveryApplies {
		if err := m.writeSnapshotLocked(state); err != nil {
			return err
		}
	}

	if m.log != nil {
		m.log.Infow("applied manifest deltas", "count", len(deltas), "levels", len(levels))
	}
	return nil
}

func (m *LevelManifest) flatten() snapshotState {
	state := snapshotState{nextSegmentID: m.nextSegmentID, levels: make([][]uint64, len(m.levels))}
	for i, l := range m.levels {
		state.levels[i] = l.IDs()
	}
	return state
}

func (m *LevelManifest) removedSegmentIDs(newState snapshotState) []uint64 {
	before := make(map[uint64]struct{})
	for _, l := range m.levels {
		for _, id := range l.IDs() {
			before[id] = struct{}{}
		}
	}
	for _, ids := range newState.levels {
		for _, id := range ids {
			delete(before, id)
		}
	}
	out := make([]uint64, 0, len(before))
	for id := range before {
		out = append(out, id)
	}
	return out
}

// writeSnapshotLocked durably writes state as the new base snapshot (write,
// fsync, rename — filesys.WriteFileSync) and truncates the delta log, since
// every delta up to this point is now folded in. Called with mu held.
func (m *LevelManifest) writeSnapshotLocked(state snapshotState) error {
	if err := filesys.WriteFileSync(m.snapshotPath(), 0o644, encodeSnapshot(state)); err != nil {
		return err
	}
	if err := filesys.WriteFileSync(m.logPath(), 0o644, nil); err != nil {
		return err
	}
	m.appliesSinceSnapshot = 0
	return nil
}

// IterSegments returns the read projection for a point read: every level's
// segments, narrowed to those that could possibly hold a record visible at
// snapshotSeqno (a segment entirely written after the snapshot cannot hold
// anything the snapshot should see). Level order and each level's internal
// order (newest-first for non-disjoint L0, min-key-ascending otherwise) are
// preserved (§4.M).
func (m *LevelManifest) IterSegments(snapshotSeqno *base.SeqNo) []*Level {
	levels := m.Levels()
	if snapshotSeqno == nil {
		return levels
	}

	out := make([]*Level, len(levels))
	for i, l := range levels {
		var kept []Handle
		for _, h := range l.Segments() {
			if h.Segment.Metadata.MinSeqNo < *snapshotSeqno {
				kept = append(kept, h)
			}
		}
		out[i] = NewLevel(kept)
	}
	return out
}

// BusyLevels returns the set of segment ids currently reserved as
// compaction input at each level, so a second compaction picker can avoid
// racing on the same inputs (§4.M).
func (m *LevelManifest) BusyLevels() map[int][]uint64 {
	m.busyMu.Lock()
	defer m.busyMu.Unlock()

	out := make(map[int][]uint64, len(m.busy))
	for level, ids := range m.busy {
		list := make([]uint64, 0, len(ids))
		for id := range ids {
			list = append(list, id)
		}
		out[level] = list
	}
	return out
}

// MarkBusy reserves segmentIDs at level as compaction input. It fails, with
// none of segmentIDs reserved, if any of them is already reserved by another
// in-flight compaction at that level.
func (m *LevelManifest) MarkBusy(level int, segmentIDs []uint64) error {
	m.busyMu.Lock()
	defer m.busyMu.Unlock()

	for _, id := range segmentIDs {
		if _, busy := m.busy[level][id]; busy {
			return strataerrors.NewBusyConflictError(level, id)
		}
	}

	if m.busy[level] == nil {
		m.busy[level] = make(map[uint64]struct{})
	}
	for _, id := range segmentIDs {
		m.busy[level][id] = struct{}{}
	}
	return nil
}

// UnmarkBusy releases a prior MarkBusy reservation, called once the
// compaction that claimed segmentIDs has applied its result (or aborted).
func (m *LevelManifest) UnmarkBusy(level int, segmentIDs []uint64) {
	m.busyMu.Lock()
	defer m.busyMu.Unlock()

	for _, id := range segmentIDs {
		delete(m.busy[level], id)
	}
}

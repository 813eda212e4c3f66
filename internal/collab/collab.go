// Package collab declares the interfaces the storage core consumes but does
// not implement: the memtable a tree layer keeps in front of the segment
// subsystem, the write-ahead log that backs it, and the compaction strategy
// that decides how to fold segments together. The core only needs to call
// through these seams; a tree layer built on top of this module supplies the
// concrete implementations.
package collab

import (
	"github.com/nilotpaldev/strata/internal/base"
	"github.com/nilotpaldev/strata/internal/manifest"
)

// MemtableIterator walks a Memtable's entries in ascending internal-key
// order, mirroring the segment cursors in internal/sstable so a tree layer
// can merge a memtable iterator and a sstable.MultiReader with the same
// calling convention.
type MemtableIterator interface {
	// Next advances to the next entry and returns it. ok is false once the
	// iterator is exhausted; Err reports whether exhaustion was clean.
	Next() (item base.InternalValue, ok bool, err error)
	Err() error
}

// Memtable is the in-memory, write-buffering structure a tree layer keeps in
// front of the segment subsystem. The core never implements one — it only
// reads the sealed memtables a tree layer hands it when merging a point read
// or range scan across both memory and disk (spec.md §6.4).
type Memtable interface {
	// Get returns the newest value for key visible at seqno. A nil seqno
	// means "no snapshot constraint" — the absolute newest version.
	Get(key []byte, seqno *base.SeqNo) (base.InternalValue, bool)

	// Iter returns a forward cursor over every entry in the memtable,
	// ascending by user key then descending by sequence number, matching
	// the ordering internal/sstable.Reader produces.
	Iter() MemtableIterator

	// Size reports the memtable's approximate in-memory footprint in bytes,
	// the signal a tree layer uses to decide when to seal and flush it.
	Size() uint64
}

// WriteAheadLog durably records every mutation before it lands in a
// Memtable, so a crash can replay the log to rebuild memtable state that was
// never flushed to a segment. The core never opens or reads one directly:
// it is purely a memtable-side concern (spec.md §6.4).
type WriteAheadLog interface {
	// Append durably records item, returning once the write is fsynced.
	Append(item base.InternalValue) error

	// Close flushes and closes the underlying log file.
	Close() error
}

// CompactionChoice names one compaction job: fold Inputs (segment ids) at
// SourceLevel into TargetLevel, replacing them with whatever new segments
// the merge produces.
type CompactionChoice struct {
	SourceLevel int
	TargetLevel int
	Inputs      []uint64
}

// CompactionStrategy is a pure decision function over the manifest's current
// shape: given the manifest, decide whether any compaction should run next,
// and if so, which segments it should consume (spec.md §6.4: `pick(&LevelManifest)
// → Option<CompactionChoice>`). It only reads the manifest (Levels/BusyLevels)
// and never mutates it — the caller applies the choice (merge, then
// manifest.Apply the resulting deltas) and is responsible for calling
// LevelManifest.MarkBusy/UnmarkBusy around the work so concurrent picks
// don't race on the same inputs.
type CompactionStrategy interface {
	Pick(m *manifest.LevelManifest) (CompactionChoice, bool)
}

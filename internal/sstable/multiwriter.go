package sstable

import (
	"os"

	"go.uber.org/zap"

	"github.com/nilotpaldev/strata/internal/base"
	blk "github.com/nilotpaldev/strata/internal/block"
	"github.com/nilotpaldev/strata/internal/bloom"
	"github.com/nilotpaldev/strata/internal/encoding"
	"github.com/nilotpaldev/strata/pkg/options"
	"github.com/nilotpaldev/strata/pkg/seginfo"

	strataerrors "github.com/nilotpaldev/strata/pkg/errors"
)

// WrittenSegment describes one segment file MultiWriter finished, ready to
// be handed to the level manifest as an insert delta (§4.M).
type WrittenSegment struct {
	ID       uint64
	Path     string
	Metadata Metadata
}

// MultiWriter builds one or more segment files from a stream of
// already-sorted InternalValue records (a memtable flush, or a compaction
// merge), rotating to a new segment whenever the current one exceeds the
// configured target size (§4.K MultiWriter::write).
type MultiWriter struct {
	folder  string
	treeID  uint32
	opts    *options.Options
	nextID  func() uint64
	log     *zap.SugaredLogger

	file *os.File
	path string
	id   uint64
	off  uint64

	indexRegionStart uint64

	dataBuf     []base.InternalValue
	dataBufSize int

	indexBuf     []blk.IndexEntry
	indexBufSize int

	tliEntries []blk.IndexEntry

	filter *bloom.Filter

	dataBlockCount int
	itemCount      uint64
	tombstoneCount uint64
	haveSeq        bool
	minSeq, maxSeq base.SeqNo
	minKey, maxKey []byte

	finished []WrittenSegment
}

// NewMultiWriter constructs a writer that allocates segment ids via nextID
// (normally the level manifest's id allocator) and writes files under
// folder.
func NewMultiWriter(folder string, treeID uint32, opts *options.Options, nextID func() uint64, log *zap.SugaredLogger) (*MultiWriter, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	w := &MultiWriter{folder: folder, treeID: treeID, opts: opts, nextID: nextID, log: log}
	if err := w.startSegment(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *MultiWriter) startSegment() error {
	id := w.nextID()
	path := seginfo.PathFor(w.folder, id)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return strataerrors.NewStorageError(err, strataerrors.ErrorCodeIO, "failed to create segment file").
			WithSegmentID(int(id)).WithPath(path)
	}

	w.file = f
	w.path = path
	w.id = id
	w.off = 0
	w.indexRegionStart = 0
	w.dataBuf = nil
	w.dataBufSize = 0
	w.indexBuf = nil
	w.indexBufSize = 0
	w.tliEntries = nil
	w.dataBlockCount = 0
	w.itemCount = 0
	w.tombstoneCount = 0
	w.haveSeq = false
	w.minKey = nil
	w.maxKey = nil

	if w.opts.SegmentOptions.BloomEnabled {
		w.filter = bloom.New(estimateItemCount(w.opts), w.opts.SegmentOptions.BloomFalsePositiveRate)
	} else {
		w.filter = nil
	}

	return nil
}

// estimateItemCount sizes the bloom filter off the segment's target byte
// size, assuming a conservative average record size; oversizing the filter
// is cheap, undersizing raises the false-positive rate above target.
func estimateItemCount(opts *options.Options) uint {
	const assumedAvgRecordSize = 64
	n := opts.SegmentOptions.Size / assumedAvgRecordSize
	if n == 0 {
		n = 1024
	}
	return uint(n)
}

func (w *MultiWriter) write(dst []byte) error {
	n, err := w.file.Write(dst)
	if err != nil {
		return strataerrors.NewStorageError(err, strataerrors.ErrorCodeIO, "failed to write segment data").
			WithSegmentID(int(w.id)).WithPath(w.path)
	}
	w.off += uint64(n)
	return nil
}

// Write appends item to the segment currently being built. item must arrive
// in ascending internal-key order relative to every prior call.
func (w *MultiWriter) Write(item base.InternalValue) error {
	if w.minKey == nil {
		w.minKey = item.Key.UserKey
	}
	w.maxKey = item.Key.UserKey

	if !w.haveSeq {
		w.minSeq, w.maxSeq = item.Key.SeqNo, item.Key.SeqNo
		w.haveSeq = true
	} else {
		if item.Key.SeqNo < w.minSeq {
			w.minSeq = item.Key.SeqNo
		}
		if item.Key.SeqNo > w.maxSeq {
			w.maxSeq = item.Key.SeqNo
		}
	}

	if item.Key.IsTombstone() {
		w.tombstoneCount++
	}
	w.itemCount++

	if w.filter != nil {
		w.filter.Insert(item.Key.UserKey)
	}

	w.dataBuf = append(w.dataBuf, item)
	w.dataBufSize += encoding.InternalKeySize(len(item.Key.UserKey)) + 4 + len(item.Value)

	if w.dataBufSize >= int(w.opts.SegmentOptions.DataBlockSize) {
		if err := w.flushDataBlock(); err != nil {
			return err
		}
	}

	if w.off >= w.opts.SegmentOptions.Size {
		if err := w.rotate(); err != nil {
			return err
		}
	}

	return nil
}

func (w *MultiWriter) flushDataBlock() error {
	if len(w.dataBuf) == 0 {
		return nil
	}

	lastKey := w.dataBuf[len(w.dataBuf)-1].Key.UserKey

	raw, err := blk.EncodeValueBlock(w.dataBuf, w.opts.SegmentOptions.Compression)
	if err != nil {
		return err
	}

	handle := base.BlockHandle{Offset: w.off, Size: uint32(len(raw))}
	if err := w.write(raw); err != nil {
		return err
	}

	entry := blk.IndexEntry{LastUserKey: lastKey, Handle: handle}
	w.indexBuf = append(w.indexBuf, entry)
	w.indexBufSize += 2 + len(lastKey) + 12
	w.dataBlockCount++

	w.dataBuf = nil
	w.dataBufSize = 0

	if w.indexBufSize >= int(w.opts.SegmentOptions.IndexBlockSize) {
		return w.flushIndexBlock()
	}
	return nil
}

func (w *MultiWriter) flushIndexBlock() error {
	if len(w.indexBuf) == 0 {
		return nil
	}

	lastKey := w.indexBuf[len(w.indexBuf)-1].LastUserKey

	raw, err := blk.EncodeIndexBlock(w.indexBuf, w.opts.SegmentOptions.Compression)
	if err != nil {
		return err
	}

	handle := base.BlockHandle{Offset: w.off, Size: uint32(len(raw))}
	if err := w.write(raw); err != nil {
		return err
	}

	if w.indexRegionStart == 0 {
		w.indexRegionStart = handle.Offset
	}

	w.tliEntries = append(w.tliEntries, blk.IndexEntry{LastUserKey: lastKey, Handle: handle})

	w.indexBuf = nil
	w.indexBufSize = 0
	return nil
}

// rotate finishes the current segment and starts a new one, used when the
// target segment size is exceeded mid-stream.
func (w *MultiWriter) rotate() error {
	if err := w.finishSegment(); err != nil {
		return err
	}
	return w.startSegment()
}

func (w *MultiWriter) finishSegment() error {
	if err := w.flushDataBlock(); err != nil {
		return err
	}
	if err := w.flushIndexBlock(); err != nil {
		return err
	}

	if len(w.tliEntries) == 0 {
		// An empty segment (no items written); nothing to finish.
		w.file.Close()
		os.Remove(w.path)
		return nil
	}

	tr := trailer{IndexBlockRegionOffset: w.indexRegionStart}

	tliRaw, err := blk.EncodeIndexBlock(w.tliEntries, w.opts.SegmentOptions.Compression)
	if err != nil {
		return err
	}
	tr.TLIOffset = w.off
	if err := w.write(tliRaw); err != nil {
		return err
	}

	if w.filter != nil {
		filterBytes, err := w.filter.ToBytes()
		if err != nil {
			return err
		}
		tr.BloomOffset = w.off
		if err := w.write(filterBytes); err != nil {
			return err
		}
	}

	metadata := Metadata{
		ID:               w.id,
		CreatedAt:        nowUnix(),
		Compression:      w.opts.SegmentOptions.Compression,
		DataBlockSize:    w.opts.SegmentOptions.DataBlockSize,
		IndexBlockSize:   w.opts.SegmentOptions.IndexBlockSize,
		DataBlockCount:   uint32(w.dataBlockCount),
		IndexBlockCount:  uint32(len(w.tliEntries)),
		ItemCount:        w.itemCount,
		KeyCount:         w.itemCount,
		TombstoneCount:   w.tombstoneCount,
		KeyRange:         base.NewKeyRange(w.minKey, w.maxKey),
		MinSeqNo:         w.minSeq,
		MaxSeqNo:         w.maxSeq,
	}

	// FileSize isn't known until after the trailer is written, so the
	// metadata block itself is always encoded with FileSize=0; Recover
	// backfills it from the trailer's FileSize, which is set below.
	metaRaw, err := blk.Encode([][]byte{metadata.encode()}, w.opts.SegmentOptions.Compression)
	if err != nil {
		return err
	}
	tr.MetadataOffset = w.off
	if err := w.write(metaRaw); err != nil {
		return err
	}

	metadata.FileSize = w.off + trailerSize
	tr.FileSize = metadata.FileSize

	if err := w.write(tr.encode()); err != nil {
		return err
	}

	if err := w.file.Sync(); err != nil {
		return strataerrors.NewStorageError(err, strataerrors.ErrorCodeIO, "failed to sync segment file").
			WithSegmentID(int(w.id)).WithPath(w.path)
	}
	if err := w.file.Close(); err != nil {
		return strataerrors.NewStorageError(err, strataerrors.ErrorCodeIO, "failed to close segment file").
			WithSegmentID(int(w.id)).WithPath(w.path)
	}

	w.finished = append(w.finished, WrittenSegment{ID: w.id, Path: w.path, Metadata: metadata})
	if w.log != nil {
		w.log.Infow("finished segment", "segmentID", w.id, "items", metadata.ItemCount, "fileSize", metadata.FileSize)
	}
	return nil
}

// Finish flushes the segment currently being built and returns every
// segment produced across the writer's lifetime.
func (w *MultiWriter) Finish() ([]WrittenSegment, error) {
	if err := w.finishSegment(); err != nil {
		return nil, err
	}
	return w.finished, nil
}

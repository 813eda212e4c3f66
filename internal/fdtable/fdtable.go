// Package fdtable implements the bounded, sharded pool of open segment file
// handles described in §4.F. Sharding lets up to `concurrency` independent
// handles exist for the same segment, so parallel read cursors never
// contend on a single handle's state; every read goes through ReadAt, which
// is safe for concurrent use on the same *os.File without a seek race —
// the positional-read equivalent of "always seek before reading".
package fdtable

import (
	"container/list"
	"os"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	strataerrors "github.com/nilotpaldev/strata/pkg/errors"
)

// Guard wraps one open handle for a segment, pooled and owned by the Table
// that issued it. Callers just read through it; the Table decides when the
// underlying file is closed (on Remove, LRU eviction, or Close).
type Guard struct {
	file *os.File
}

// ReadAt reads len(buf) bytes starting at off, safe to call concurrently
// from multiple goroutines sharing this Guard.
func (g Guard) ReadAt(buf []byte, off int64) (int, error) {
	return g.file.ReadAt(buf, off)
}

type shardEntry struct {
	segmentID uint64
	file      *os.File
}

type shard struct {
	mu       sync.Mutex
	ll       *list.List
	elements map[uint64]*list.Element
}

// Table is a bounded pool of open file handles, keyed by segment id and
// sharded to reduce contention (§4.F).
type Table struct {
	mu          sync.RWMutex
	paths       map[uint64]string
	shards      []*shard
	maxPerShard int
	roundRobin  atomic.Uint64
	log         *zap.SugaredLogger
}

// New constructs a Table bounded to maxOpen total live handles, split
// across concurrency shards (§6.3: FileDescriptorTable::new(max_open, concurrency)).
func New(maxOpen, concurrency int, log *zap.SugaredLogger) *Table {
	if concurrency < 1 {
		concurrency = 1
	}
	shards := make([]*shard, concurrency)
	for i := range shards {
		shards[i] = &shard{ll: list.New(), elements: make(map[uint64]*list.Element)}
	}

	maxPerShard := maxOpen / concurrency
	if maxPerShard < 1 {
		maxPerShard = 1
	}

	return &Table{
		paths:       make(map[uint64]string),
		shards:      shards,
		maxPerShard: maxPerShard,
		log:         log,
	}
}

// Insert registers path as the file backing segmentID. It does not open a
// handle; handles are opened lazily on first Access.
func (t *Table) Insert(segmentID uint64, path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.paths[segmentID] = path
}

// Remove closes every open handle for segmentID and forgets its path,
// called when a segment is retired.
func (t *Table) Remove(segmentID uint64) {
	t.mu.Lock()
	delete(t.paths, segmentID)
	t.mu.Unlock()

	for _, s := range t.shards {
		s.mu.Lock()
		if el, ok := s.elements[segmentID]; ok {
			entry := el.Value.(*shardEntry)
			s.ll.Remove(el)
			delete(s.elements, segmentID)
			entry.file.Close()
		}
		s.mu.Unlock()
	}
}

// Access returns a handle guard for segmentID, opening a new handle (in a
// shard chosen to spread load) if none is cached, and evicting the
// least-recently-used handle in that shard if it's at capacity.
func (t *Table) Access(segmentID uint64) (Guard, error) {
	t.mu.RLock()
	path, ok := t.paths[segmentID]
	t.mu.RUnlock()
	if !ok {
		return Guard{}, strataerrors.NewStorageError(nil, strataerrors.ErrorCodeIO, "segment not registered in descriptor table").
			WithSegmentID(int(segmentID))
	}

	s := t.shards[t.shardIndex(segmentID)]

	s.mu.Lock()
	if el, ok := s.elements[segmentID]; ok {
		s.ll.MoveToFront(el)
		entry := el.Value.(*shardEntry)
		s.mu.Unlock()
		return Guard{file: entry.file}, nil
	}
	s.mu.Unlock()

	file, err := os.Open(path)
	if err != nil {
		return Guard{}, strataerrors.NewStorageError(err, strataerrors.ErrorCodeIO, "failed to open segment file").
			WithSegmentID(int(segmentID)).
			WithPath(path)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.elements[segmentID]; ok {
		// Lost the race to open this segment's handle in this shard;
		// keep the winner, close ours.
		file.Close()
		s.ll.MoveToFront(el)
		return Guard{file: el.Value.(*shardEntry).file}, nil
	}

	el := s.ll.PushFront(&shardEntry{segmentID: segmentID, file: file})
	s.elements[segmentID] = el

	for s.ll.Len() > t.maxPerShard {
		back := s.ll.Back()
		if back == nil {
			break
		}
		victim := back.Value.(*shardEntry)
		s.ll.Remove(back)
		delete(s.elements, victim.segmentID)
		victim.file.Close()
		if t.log != nil {
			t.log.Debugw("evicted least-recently-used segment handle", "segmentID", victim.segmentID)
		}
	}

	return Guard{file: file}, nil
}

// shardIndex spreads access across shards by hashing the segment id
// together with a rotating counter, so repeated calls for the same segment
// don't all pile onto one shard.
func (t *Table) shardIndex(segmentID uint64) int {
	n := t.roundRobin.Add(1)
	var buf [16]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(segmentID >> (8 * i))
		buf[8+i] = byte(n >> (8 * i))
	}
	return int(xxhash.Sum64(buf[:]) % uint64(len(t.shards)))
}

// Close closes every open handle across all shards.
func (t *Table) Close() {
	for _, s := range t.shards {
		s.mu.Lock()
		for el := s.ll.Front(); el != nil; el = el.Next() {
			el.Value.(*shardEntry).file.Close()
		}
		s.ll.Init()
		s.elements = make(map[uint64]*list.Element)
		s.mu.Unlock()
	}
}

// Package options provides data structures and functions for configuring
// the storage core. It defines parameters that control block sizing,
// compression, the bloom filter, the shared caches, and segment rotation,
// following the functional-options pattern used throughout this module.
package options

import (
	"strings"
	"time"

	strataerrors "github.com/nilotpaldev/strata/pkg/errors"
)

// Compression identifies the codec used to frame a block's payload on disk.
// The tag itself is persisted per block (§4.D), so old segments remain
// readable even after the default changes.
type Compression uint8

const (
	CompressionNone Compression = iota
	CompressionLZ4
	CompressionMiniz
	CompressionZstd
)

// segmentOptions defines configurable parameters for each segment.
// It provides fine-grained control over segment behavior, performance, and resource utilization.
type segmentOptions struct {
	// Defines the target size a segment can grow to before MultiWriter
	// rotates to a new one.
	//
	//  - Default: 1GB
	//  - Maximum: 4GB
	//  - Minimum: 512MB
	Size uint64 `json:"targetSegmentSize"`

	// Specifies where segment files are stored.
	//
	// Default: "/var/lib/strata/segments"
	Directory string `json:"directory"`

	// Defines the filename prefix for segment files. Final filename will
	// be the zero-padded segment id plus the ".sst" extension; Prefix is
	// kept for parity with the directory layout conventions but segment
	// ids themselves are globally unique so no embedded timestamp is used.
	//
	// Default: "segment"
	Prefix string `json:"prefix"`

	// DataBlockSize is the target uncompressed size, in bytes, of a data
	// block before MultiWriter rotates to a new one (§4.G).
	//
	// Default: 4KiB
	DataBlockSize uint32 `json:"dataBlockSize"`

	// IndexBlockSize is the target uncompressed size, in bytes, of an
	// index block before the writer rotates to a new one (§4.I).
	//
	// Default: 4KiB
	IndexBlockSize uint32 `json:"indexBlockSize"`

	// Compression selects the codec new blocks are written with.
	//
	// Default: CompressionZstd
	Compression Compression `json:"compression"`

	// BloomEnabled toggles whether MultiWriter builds a bloom filter
	// alongside the segment (§4.H). Disabling it trades false-positive
	// avoidance for a smaller file.
	//
	// Default: true
	BloomEnabled bool `json:"bloomEnabled"`

	// BloomFalsePositiveRate is the target false-positive rate the bloom
	// filter is sized for.
	//
	// Default: 0.01
	BloomFalsePositiveRate float64 `json:"bloomFalsePositiveRate"`
}

// cacheOptions configures the shared block cache and file-descriptor table.
type cacheOptions struct {
	// BlockCacheCapacityBytes bounds the BlockCache by decoded-byte size,
	// not entry count (§4.E). 0 makes the cache a no-op.
	//
	// Default: 64MiB
	BlockCacheCapacityBytes uint64 `json:"blockCacheCapacityBytes"`

	// MaxOpenFiles bounds the FileDescriptorTable's total live handles
	// across all segments (§4.F).
	//
	// Default: 512
	MaxOpenFiles int `json:"maxOpenFiles"`

	// FdTableConcurrency is the shard count the FileDescriptorTable is
	// split into to reduce contention between readers.
	//
	// Default: 8
	FdTableConcurrency int `json:"fdTableConcurrency"`
}

// Options defines the configuration parameters for the storage core.
// It provides control over storage layout, compression, and the shared
// caches.
type Options struct {
	// Specifies the base path where files will be stored.
	//
	// Default: "/var/lib/strata"
	DataDir string `json:"dataDir"`

	// Defines how often the compaction process is invited to run. This
	// core never runs compaction itself (it's an external collaborator,
	// §6.4); the interval is carried through so the tree layer can wire
	// its picker on the same cadence the teacher used for its own
	// maintenance loop.
	//
	// Default: 5h
	CompactInterval time.Duration `json:"compactInterval"`

	// Configures segment management: target size, naming, block sizes,
	// compression, and bloom filter sizing.
	SegmentOptions *segmentOptions `json:"segmentOptions"`

	// Configures the shared block cache and file-descriptor table.
	CacheOptions *cacheOptions `json:"cacheOptions"`
}

// OptionFunc is a function type that modifies the storage core's configuration.
type OptionFunc func(*Options)

// WithDefaultOptions applies a predefined set of default configuration values to the Options struct.
func WithDefaultOptions() OptionFunc {
	return func(o *Options) {
		opts := NewDefaultOptions()
		o.DataDir = opts.DataDir
		o.SegmentOptions = opts.SegmentOptions
		o.CacheOptions = opts.CacheOptions
		o.CompactInterval = opts.CompactInterval
	}
}

// WithDataDir sets the primary data directory.
func WithDataDir(directory string) OptionFunc {
	return func(o *Options) {
		directory = strings.TrimSpace(directory)
		if directory != "" {
			o.DataDir = directory
		}
	}
}

// WithCompactInterval sets the interval at which the tree layer is invited to run compaction.
func WithCompactInterval(interval time.Duration) OptionFunc {
	return func(o *Options) {
		if interval > 0 {
			o.CompactInterval = interval
		}
	}
}

// WithSegmentDir sets the directory specifically for storing segment files.
func WithSegmentDir(directory string) OptionFunc {
	return func(o *Options) {
		directory = strings.TrimSpace(directory)
		if directory != "" {
			o.SegmentOptions.Directory = directory
		}
	}
}

// WithSegmentPrefix sets the file name prefix for segment files.
func WithSegmentPrefix(prefix string) OptionFunc {
	return func(o *Options) {
		prefix = strings.TrimSpace(prefix)
		if prefix != "" {
			o.SegmentOptions.Prefix = prefix
		}
	}
}

// WithSegmentSize sets the target size of individual segment files before MultiWriter rotates.
func WithSegmentSize(size uint64) OptionFunc {
	return func(o *Options) {
		if size > MinSegmentSize && size < MaxSegmentSize {
			o.SegmentOptions.Size = size
		}
	}
}

// WithDataBlockSize sets the target uncompressed size of a data block.
func WithDataBlockSize(size uint32) OptionFunc {
	return func(o *Options) {
		if size > 0 {
			o.SegmentOptions.DataBlockSize = size
		}
	}
}

// WithIndexBlockSize sets the target uncompressed size of an index block.
func WithIndexBlockSize(size uint32) OptionFunc {
	return func(o *Options) {
		if size > 0 {
			o.SegmentOptions.IndexBlockSize = size
		}
	}
}

// WithCompression selects the codec new blocks are written with.
func WithCompression(kind Compression) OptionFunc {
	return func(o *Options) {
		o.SegmentOptions.Compression = kind
	}
}

// WithBloomFilter toggles the bloom filter and sets its target false-positive rate.
func WithBloomFilter(enabled bool, fpRate float64) OptionFunc {
	return func(o *Options) {
		o.SegmentOptions.BloomEnabled = enabled
		if fpRate > 0 && fpRate < 1 {
			o.SegmentOptions.BloomFalsePositiveRate = fpRate
		}
	}
}

// WithBlockCacheCapacity sets the BlockCache's byte-bounded capacity. 0 disables caching.
func WithBlockCacheCapacity(bytes uint64) OptionFunc {
	return func(o *Options) {
		o.CacheOptions.BlockCacheCapacityBytes = bytes
	}
}

// WithMaxOpenFiles sets the FileDescriptorTable's maximum live handle count.
func WithMaxOpenFiles(max int) OptionFunc {
	return func(o *Options) {
		if max > 0 {
			o.CacheOptions.MaxOpenFiles = max
		}
	}
}

// WithFdTableConcurrency sets the FileDescriptorTable's shard count.
func WithFdTableConcurrency(shards int) OptionFunc {
	return func(o *Options) {
		if shards > 0 {
			o.CacheOptions.FdTableConcurrency = shards
		}
	}
}

// Validate checks that o's fields are within the ranges the storage core
// requires, returning a *strataerrors.ValidationError describing the first
// violation found. A constructor taking Options (e.g. NewMultiWriter) should
// call this before trusting the values it was handed.
func (o *Options) Validate() error {
	if o.SegmentOptions == nil {
		return strataerrors.NewRequiredFieldError("segmentOptions")
	}
	if o.CacheOptions == nil {
		return strataerrors.NewRequiredFieldError("cacheOptions")
	}

	seg := o.SegmentOptions
	if seg.Size == 0 {
		return strataerrors.NewRequiredFieldError("segmentOptions.targetSegmentSize")
	}
	if strings.TrimSpace(seg.Directory) == "" {
		return strataerrors.NewRequiredFieldError("segmentOptions.directory")
	}
	if seg.DataBlockSize == 0 {
		return strataerrors.NewRequiredFieldError("segmentOptions.dataBlockSize")
	}
	if seg.IndexBlockSize == 0 {
		return strataerrors.NewRequiredFieldError("segmentOptions.indexBlockSize")
	}
	if seg.BloomEnabled && (seg.BloomFalsePositiveRate <= 0 || seg.BloomFalsePositiveRate >= 1) {
		return strataerrors.NewFieldRangeError("segmentOptions.bloomFalsePositiveRate", seg.BloomFalsePositiveRate, 0, 1)
	}

	cache := o.CacheOptions
	if cache.MaxOpenFiles <= 0 {
		return strataerrors.NewFieldRangeError("cacheOptions.maxOpenFiles", cache.MaxOpenFiles, 1, nil)
	}
	if cache.FdTableConcurrency <= 0 {
		return strataerrors.NewFieldRangeError("cacheOptions.fdTableConcurrency", cache.FdTableConcurrency, 1, nil)
	}

	return nil
}

package options

import "time"

const (
	// DefaultDataDir specifies the default base directory where the storage
	// core will keep its data files. If no other directory is specified
	// during initialization, this path will be used.
	DefaultDataDir = "/var/lib/strata"

	// DefaultCompactInterval defines the default cadence at which the tree
	// layer is invited to run compaction. By default, every 5 hours.
	DefaultCompactInterval = time.Hour * 5

	// MinSegmentSize represents the minimum allowed target size for a
	// segment file in bytes (512MB).
	MinSegmentSize uint64 = 512 * 1024 * 1024

	// MaxSegmentSize represents the maximum allowed target size for a
	// segment file in bytes (4GB).
	MaxSegmentSize uint64 = 4 * 1024 * 1024 * 1024

	// DefaultSegmentSize specifies the default target size for a new
	// segment file in bytes (1GB) before MultiWriter rotates.
	DefaultSegmentSize uint64 = 1 * 1024 * 1024 * 1024

	// DefaultSegmentDirectory specifies the default subdirectory within the
	// main data directory where segment files will be stored.
	DefaultSegmentDirectory = "/segments"

	// DefaultSegmentPrefix defines the default prefix used when naming a
	// segment's containing directory entries.
	DefaultSegmentPrefix = "segment"

	// DefaultDataBlockSize is the default target uncompressed size of a
	// data block (4KiB).
	DefaultDataBlockSize uint32 = 4 * 1024

	// DefaultIndexBlockSize is the default target uncompressed size of an
	// index block (4KiB).
	DefaultIndexBlockSize uint32 = 4 * 1024

	// DefaultBloomFalsePositiveRate is the default false-positive rate the
	// bloom filter is sized for.
	DefaultBloomFalsePositiveRate = 0.01

	// DefaultBlockCacheCapacityBytes is the default BlockCache byte budget (64MiB).
	DefaultBlockCacheCapacityBytes uint64 = 64 * 1024 * 1024

	// DefaultMaxOpenFiles is the default FileDescriptorTable handle budget.
	DefaultMaxOpenFiles = 512

	// DefaultFdTableConcurrency is the default FileDescriptorTable shard count.
	DefaultFdTableConcurrency = 8
)

// defaultOptions holds the default configuration settings for a storage core instance.
var defaultOptions = Options{
	DataDir:         DefaultDataDir,
	CompactInterval: DefaultCompactInterval,
	SegmentOptions: &segmentOptions{
		Size:                   DefaultSegmentSize,
		Prefix:                 DefaultSegmentPrefix,
		Directory:              DefaultDataDir + DefaultSegmentDirectory,
		DataBlockSize:          DefaultDataBlockSize,
		IndexBlockSize:         DefaultIndexBlockSize,
		Compression:            CompressionZstd,
		BloomEnabled:           true,
		BloomFalsePositiveRate: DefaultBloomFalsePositiveRate,
	},
	CacheOptions: &cacheOptions{
		BlockCacheCapacityBytes: DefaultBlockCacheCapacityBytes,
		MaxOpenFiles:            DefaultMaxOpenFiles,
		FdTableConcurrency:      DefaultFdTableConcurrency,
	},
}

// NewDefaultOptions returns a fresh copy of the default Options tree.
func NewDefaultOptions() Options {
	clone := defaultOptions
	segCopy := *defaultOptions.SegmentOptions
	cacheCopy := *defaultOptions.CacheOptions
	clone.SegmentOptions = &segCopy
	clone.CacheOptions = &cacheCopy
	return clone
}

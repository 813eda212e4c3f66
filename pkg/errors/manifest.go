package errors

// ManifestError provides specialized error handling for level-manifest
// operations: recovering a level's segments, replaying the delta log, and
// reserving segments as compaction input.
type ManifestError struct {
	*baseError

	// level identifies which LSM level was being processed, if applicable.
	level int

	// segmentID identifies which segment was involved, if applicable.
	segmentID uint64

	// operation names the manifest operation in progress (e.g. "recover",
	// "apply", "mark_busy").
	operation string
}

// NewManifestError creates a new manifest-specific error with the provided context.
func NewManifestError(err error, code ErrorCode, msg string) *ManifestError {
	return &ManifestError{
		baseError: NewBaseError(err, code, msg),
	}
}

// Override base error methods to return *ManifestError instead of *baseError.

func (me *ManifestError) WithMessage(msg string) *ManifestError {
	me.baseError.WithMessage(msg)
	return me
}

func (me *ManifestError) WithCode(code ErrorCode) *ManifestError {
	me.baseError.WithCode(code)
	return me
}

func (me *ManifestError) WithDetail(key string, value any) *ManifestError {
	me.baseError.WithDetail(key, value)
	return me
}

// WithLevel records which LSM level was being processed.
func (me *ManifestError) WithLevel(level int) *ManifestError {
	me.level = level
	return me
}

// WithSegmentID records which segment was involved.
func (me *ManifestError) WithSegmentID(segmentID uint64) *ManifestError {
	me.segmentID = segmentID
	return me
}

// WithOperation records which manifest operation was in progress.
func (me *ManifestError) WithOperation(operation string) *ManifestError {
	me.operation = operation
	return me
}

// Level returns the LSM level associated with the error.
func (me *ManifestError) Level() int { return me.level }

// SegmentID returns the segment id associated with the error.
func (me *ManifestError) SegmentID() uint64 { return me.segmentID }

// Operation returns the manifest operation that was in progress.
func (me *ManifestError) Operation() string { return me.operation }

// NewSegmentRecoveryError wraps a failure to recover a segment named by the
// manifest's log or snapshot.
func NewSegmentRecoveryError(cause error, level int, segmentID uint64) *ManifestError {
	return NewManifestError(cause, ErrorCodeManifestSegmentMissing, "failed to recover segment referenced by manifest").
		WithLevel(level).
		WithSegmentID(segmentID).
		WithOperation("recover")
}

// NewBusyConflictError reports that a segment is already reserved as
// compaction input at level.
func NewBusyConflictError(level int, segmentID uint64) *ManifestError {
	return NewManifestError(nil, ErrorCodeManifestBusyConflict, "segment already reserved by another compaction").
		WithLevel(level).
		WithSegmentID(segmentID).
		WithOperation("mark_busy")
}

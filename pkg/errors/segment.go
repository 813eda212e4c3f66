package errors

import (
	cockroacherr "github.com/cockroachdb/errors"
)

// SerializeError reports that a value handed to the on-disk codec cannot be
// represented in the wire format: an oversized key or value, or an enum
// variant with no assigned tag.
type SerializeError struct {
	*baseError
	kind string
	size int
}

// NewSerializeError wraps cause (if any) with stack context and builds a
// SerializeError describing what couldn't be encoded.
func NewSerializeError(cause error, kind string) *SerializeError {
	if cause != nil {
		cause = cockroacherr.Wrapf(cause, "serialize %s", kind)
	}
	return &SerializeError{
		baseError: NewBaseError(cause, ErrorCodeSerialize, "value cannot be serialized"),
		kind:      kind,
	}
}

func (se *SerializeError) WithSize(size int) *SerializeError {
	se.size = size
	return se
}

func (se *SerializeError) Kind() string { return se.kind }
func (se *SerializeError) Size() int    { return se.size }

// DeserializeError reports corrupt on-disk bytes: a truncated length prefix,
// a CRC mismatch, or an unknown value-type tag. Per the segment's format
// invariant, this is fatal for the affected segment; the manifest is
// expected to mark the segment unreadable rather than retry.
type DeserializeError struct {
	*baseError
	kind   string
	offset int64
}

func NewDeserializeError(cause error, kind string) *DeserializeError {
	if cause != nil {
		cause = cockroacherr.Wrapf(cause, "deserialize %s", kind)
	}
	return &DeserializeError{
		baseError: NewBaseError(cause, ErrorCodeDeserialize, "on-disk data is corrupt"),
		kind:      kind,
	}
}

func (de *DeserializeError) WithOffset(offset int64) *DeserializeError {
	de.offset = offset
	return de
}

func (de *DeserializeError) Kind() string   { return de.kind }
func (de *DeserializeError) Offset() int64  { return de.offset }

// DecompressError reports that a block's compressed payload failed to
// inflate under its declared compression kind. Treated as corruption, same
// severity class as DeserializeError.
type DecompressError struct {
	*baseError
	compression string
}

func NewDecompressError(cause error, compression string) *DecompressError {
	if cause != nil {
		cause = cockroacherr.Wrapf(cause, "decompress block (%s)", compression)
	}
	return &DecompressError{
		baseError:   NewBaseError(cause, ErrorCodeDecompress, "block failed to decompress"),
		compression: compression,
	}
}

func (de *DecompressError) Compression() string { return de.compression }

// InvalidVersionError reports an on-disk format version this build doesn't
// understand: a trailer, bloom header, or manifest snapshot. Fatal at open
// time — there is no meaningful partial recovery.
type InvalidVersionError struct {
	*baseError
	component string
	got       uint32
	want      uint32
}

func NewInvalidVersionError(component string, got, want uint32) *InvalidVersionError {
	return &InvalidVersionError{
		baseError: NewBaseError(nil, ErrorCodeInvalidVersion, "unsupported on-disk format version").
			WithDetail("component", component).
			WithDetail("gotVersion", got).
			WithDetail("wantVersion", want),
		component: component,
		got:       got,
		want:      want,
	}
}

func (ve *InvalidVersionError) Component() string { return ve.component }
func (ve *InvalidVersionError) Got() uint32       { return ve.got }
func (ve *InvalidVersionError) Want() uint32      { return ve.want }

// IsSerializeError reports whether err (or any error it wraps) is a SerializeError.
func IsSerializeError(err error) bool {
	var target *SerializeError
	return cockroacherr.As(err, &target)
}

// IsDeserializeError reports whether err (or any error it wraps) is a DeserializeError.
func IsDeserializeError(err error) bool {
	var target *DeserializeError
	return cockroacherr.As(err, &target)
}

// IsDecompressError reports whether err (or any error it wraps) is a DecompressError.
func IsDecompressError(err error) bool {
	var target *DecompressError
	return cockroacherr.As(err, &target)
}

// IsInvalidVersionError reports whether err (or any error it wraps) is an InvalidVersionError.
func IsInvalidVersionError(err error) bool {
	var target *InvalidVersionError
	return cockroacherr.As(err, &target)
}

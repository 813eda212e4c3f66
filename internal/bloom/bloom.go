// Package bloom wraps bits-and-blooms/bloom/v3 behind the per-segment
// membership pre-filter described in §4.H: fixed size, k hash functions
// selected from a target false-positive rate, with a small versioned
// header prepended to the library's own serialization so a reader can
// raise InvalidVersion before handing bytes to the library's codec.
package bloom

import (
	"bytes"
	"encoding/binary"

	boom "github.com/bits-and-blooms/bloom/v3"

	strataerrors "github.com/nilotpaldev/strata/pkg/errors"
)

// wireVersion is bumped whenever the on-disk header layout changes.
const wireVersion uint32 = 1

const headerSize = 4 // u32 version

// Filter is a per-segment bloom filter. False negatives are forbidden;
// false positives are allowed (§4.J step 3).
type Filter struct {
	inner *boom.BloomFilter
}

// New sizes a filter for expectedItems elements at the given target
// false-positive rate, via the library's own k/m estimation.
func New(expectedItems uint, fpRate float64) *Filter {
	return &Filter{inner: boom.NewWithEstimates(expectedItems, fpRate)}
}

// Insert adds key to the filter.
func (f *Filter) Insert(key []byte) {
	f.inner.Add(key)
}

// Contains reports whether key may be present. A false answer is
// authoritative; a true answer requires confirmation against the real data.
func (f *Filter) Contains(key []byte) bool {
	return f.inner.Test(key)
}

// ToBytes serializes the filter with a versioned header in front of the
// library's native wire format.
func (f *Filter) ToBytes() ([]byte, error) {
	var buf bytes.Buffer

	var header [headerSize]byte
	binary.BigEndian.PutUint32(header[:], wireVersion)
	buf.Write(header[:])

	if _, err := f.inner.WriteTo(&buf); err != nil {
		return nil, strataerrors.NewSerializeError(err, "bloom_filter")
	}

	return buf.Bytes(), nil
}

// FromBytes parses a filter previously produced by ToBytes. It fails with
// InvalidVersionError if the header version is unknown, matching §4.H's
// requirement that the segment loader reject bloom headers it doesn't
// understand rather than guess at the body layout.
func FromBytes(raw []byte) (*Filter, error) {
	if len(raw) < headerSize {
		return nil, strataerrors.NewDeserializeError(nil, "bloom_filter").
			WithDetail("reason", "truncated header")
	}

	version := binary.BigEndian.Uint32(raw[:headerSize])
	if version != wireVersion {
		return nil, strataerrors.NewInvalidVersionError("bloom_filter", version, wireVersion)
	}

	inner := &boom.BloomFilter{}
	if _, err := inner.ReadFrom(bytes.NewReader(raw[headerSize:])); err != nil {
		return nil, strataerrors.NewDeserializeError(err, "bloom_filter")
	}

	return &Filter{inner: inner}, nil
}

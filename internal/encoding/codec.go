// Package encoding implements the fixed-endian, length-prefixed on-disk
// wire format for internal keys, internal values, and the framed block
// envelope (§4.D). All integers are big-endian.
package encoding

import (
	"encoding/binary"
	"math"

	"github.com/nilotpaldev/strata/internal/base"
	strataerrors "github.com/nilotpaldev/strata/pkg/errors"
)

// MaxKeyLen is the largest representable user key length: keys are
// length-prefixed with a u16.
const MaxKeyLen = math.MaxUint16

// MaxValueLen is the largest representable user value length: values are
// length-prefixed with a u32.
const MaxValueLen = math.MaxUint32

// InternalKeySize returns the number of bytes EncodeInternalKey will write
// for a key with the given user-key length.
func InternalKeySize(userKeyLen int) int {
	return 2 + userKeyLen + 8 + 1
}

// EncodeInternalKey appends key's wire form to dst and returns the result:
// u16 key_len | key_bytes | u64 seqno | u8 type.
func EncodeInternalKey(dst []byte, key base.InternalKey) ([]byte, error) {
	if len(key.UserKey) == 0 {
		return nil, strataerrors.NewSerializeError(nil, "internal_key").
			WithDetail("reason", "empty user key")
	}
	if len(key.UserKey) > MaxKeyLen {
		return nil, strataerrors.NewSerializeError(nil, "internal_key").
			WithSize(len(key.UserKey)).
			WithDetail("reason", "key exceeds 2^16-1 bytes")
	}

	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(key.UserKey)))
	dst = append(dst, lenBuf[:]...)
	dst = append(dst, key.UserKey...)

	var seqnoBuf [8]byte
	binary.BigEndian.PutUint64(seqnoBuf[:], uint64(key.SeqNo))
	dst = append(dst, seqnoBuf[:]...)

	dst = append(dst, key.ValueType.Byte())
	return dst, nil
}

// DecodeInternalKey parses an InternalKey from the front of src, returning
// the key and the number of bytes consumed.
func DecodeInternalKey(src []byte) (base.InternalKey, int, error) {
	if len(src) < 2 {
		return base.InternalKey{}, 0, strataerrors.NewDeserializeError(nil, "internal_key").
			WithDetail("reason", "truncated key_len")
	}
	keyLen := int(binary.BigEndian.Uint16(src))
	offset := 2

	if len(src) < offset+keyLen+8+1 {
		return base.InternalKey{}, 0, strataerrors.NewDeserializeError(nil, "internal_key").
			WithDetail("reason", "truncated key body")
	}

	userKey := make([]byte, keyLen)
	copy(userKey, src[offset:offset+keyLen])
	offset += keyLen

	seqno := base.SeqNo(binary.BigEndian.Uint64(src[offset : offset+8]))
	offset += 8

	vt, err := base.ParseValueType(src[offset])
	if err != nil {
		return base.InternalKey{}, 0, err
	}
	offset++

	return base.InternalKey{UserKey: userKey, SeqNo: seqno, ValueType: vt}, offset, nil
}

// EncodeInternalValue appends value's wire form to dst:
// internal_key | u32 value_len | value_bytes.
func EncodeInternalValue(dst []byte, value base.InternalValue) ([]byte, error) {
	dst, err := EncodeInternalKey(dst, value.Key)
	if err != nil {
		return nil, err
	}

	if len(value.Value) > MaxValueLen {
		return nil, strataerrors.NewSerializeError(nil, "internal_value").
			WithSize(len(value.Value)).
			WithDetail("reason", "value exceeds 2^32-1 bytes")
	}

	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(value.Value)))
	dst = append(dst, lenBuf[:]...)
	dst = append(dst, value.Value...)
	return dst, nil
}

// DecodeInternalValue parses an InternalValue from the front of src,
// returning the value and the number of bytes consumed.
func DecodeInternalValue(src []byte) (base.InternalValue, int, error) {
	key, offset, err := DecodeInternalKey(src)
	if err != nil {
		return base.InternalValue{}, 0, err
	}

	if len(src) < offset+4 {
		return base.InternalValue{}, 0, strataerrors.NewDeserializeError(nil, "internal_value").
			WithDetail("reason", "truncated value_len")
	}
	valueLen := int(binary.BigEndian.Uint32(src[offset : offset+4]))
	offset += 4

	if len(src) < offset+valueLen {
		return base.InternalValue{}, 0, strataerrors.NewDeserializeError(nil, "internal_value").
			WithDetail("reason", "truncated value body")
	}

	value := make([]byte, valueLen)
	copy(value, src[offset:offset+valueLen])
	offset += valueLen

	return base.InternalValue{Key: key, Value: value}, offset, nil
}

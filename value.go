package yocto

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/hupe1980/yocto/internal/ubytes"
)

// Value is a field value. Values compare as unsigned byte strings, shorter
// first on a common prefix, and every index orders by that comparison.
//
// The typed constructors encode so that byte order matches numeric order.
type Value []byte

// Compare returns -1, 0 or 1 as v sorts before, equal to or after o.
func (v Value) Compare(o Value) int { return ubytes.Compare(v, o) }

// Equal reports whether v and o hold the same bytes.
func (v Value) Equal(o Value) bool { return ubytes.Equal(v, o) }

// String returns a UTF-8 string value.
func String(s string) Value { return Value(s) }

// Bytes returns a value holding a copy of b.
func Bytes(b []byte) Value { return append(Value{}, b...) }

// Int encodes a signed 32-bit integer in 4 bytes.
func Int(v int32) Value {
	return binary.BigEndian.AppendUint32(nil, uint32(v)^(1<<31))
}

// Long encodes a signed 64-bit integer in 8 bytes.
func Long(v int64) Value {
	return binary.BigEndian.AppendUint64(nil, uint64(v)^(1<<63))
}

// Uint encodes an unsigned 32-bit integer in 4 bytes.
func Uint(v uint32) Value { return binary.BigEndian.AppendUint32(nil, v) }

// Ulong encodes an unsigned 64-bit integer in 8 bytes.
func Ulong(v uint64) Value { return binary.BigEndian.AppendUint64(nil, v) }

// Bool encodes false as 0 and true as 1.
func Bool(v bool) Value {
	if v {
		return Value{1}
	}
	return Value{0}
}

// Float64 encodes a float in 8 bytes. Negative numbers sort before
// positive ones; -0 sorts before +0. NaNs sort after +Inf (or before -Inf
// when their sign bit is set).
func Float64(f float64) Value {
	bits := math.Float64bits(f)
	if bits&(1<<63) != 0 {
		bits = ^bits
	} else {
		bits ^= 1 << 63
	}
	return binary.BigEndian.AppendUint64(nil, bits)
}

func (v Value) fixed(n int, kind string) error {
	if len(v) != n {
		return fmt.Errorf("%w: %s value has %d bytes, want %d", ErrMalformed, kind, len(v), n)
	}
	return nil
}

// AsInt decodes a value produced by Int.
func (v Value) AsInt() (int32, error) {
	if err := v.fixed(4, "int"); err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(v) ^ (1 << 31)), nil
}

// AsLong decodes a value produced by Long.
func (v Value) AsLong() (int64, error) {
	if err := v.fixed(8, "long"); err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(v) ^ (1 << 63)), nil
}

// AsUint decodes a value produced by Uint.
func (v Value) AsUint() (uint32, error) {
	if err := v.fixed(4, "uint"); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(v), nil
}

// AsUlong decodes a value produced by Ulong.
func (v Value) AsUlong() (uint64, error) {
	if err := v.fixed(8, "ulong"); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(v), nil
}

// AsBool decodes a value produced by Bool.
func (v Value) AsBool() (bool, error) {
	if err := v.fixed(1, "bool"); err != nil {
		return false, err
	}
	return v[0] != 0, nil
}

// AsFloat64 decodes a value produced by Float64.
func (v Value) AsFloat64() (float64, error) {
	if err := v.fixed(8, "float64"); err != nil {
		return 0, err
	}
	bits := binary.BigEndian.Uint64(v)
	if bits&(1<<63) != 0 {
		bits ^= 1 << 63
	} else {
		bits = ^bits
	}
	return math.Float64frombits(bits), nil
}

package datapoint

import (
	"encoding/hex"
	"strconv"
)

// Kind identifies which member of the Value union is set.
type Kind uint8

// Value kinds. KindUndefined is the zero value.
const (
	KindUndefined Kind = iota
	KindBool
	KindInt
	KindBytes
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindBytes:
		return "bytes"
	default:
		return "undefined"
	}
}

// Value is a decoded datapoint value: a boolean, an integer, a byte
// sequence, or undefined.
type Value struct {
	kind Kind
	b    bool
	i    int64
	raw  []byte
}

// Undefined returns the undefined value.
func Undefined() Value { return Value{} }

// Bool wraps a boolean.
func Bool(v bool) Value { return Value{kind: KindBool, b: v} }

// Int wraps an integer.
func Int(v int64) Value { return Value{kind: KindInt, i: v} }

// Bytes wraps a byte sequence. The slice is copied.
func Bytes(v []byte) Value {
	cp := make([]byte, len(v))
	copy(cp, v)
	return Value{kind: KindBytes, raw: cp}
}

// Kind reports which member is set.
func (v Value) Kind() Kind { return v.kind }

// IsUndefined reports whether v carries nothing.
func (v Value) IsUndefined() bool { return v.kind == KindUndefined }

// AsBool returns the boolean member.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsInt returns the integer member.
func (v Value) AsInt() (int64, bool) { return v.i, v.kind == KindInt }

// AsBytes returns a copy of the byte member.
func (v Value) AsBytes() ([]byte, bool) {
	if v.kind != KindBytes {
		return nil, false
	}
	cp := make([]byte, len(v.raw))
	copy(cp, v.raw)
	return cp, true
}

// Numeric returns the value as an integer for numeric interpretation.
// Booleans map to 0/1. Bytes and undefined are not numeric.
func (v Value) Numeric() (int64, bool) {
	switch v.kind {
	case KindInt:
		return v.i, true
	case KindBool:
		if v.b {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// Equal reports whether two values have the same kind and content.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindBool:
		return v.b == o.b
	case KindInt:
		return v.i == o.i
	case KindBytes:
		if len(v.raw) != len(o.raw) {
			return false
		}
		for i := range v.raw {
			if v.raw[i] != o.raw[i] {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// String formats the value for logs.
func (v Value) String() string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindBytes:
		return "0x" + hex.EncodeToString(v.raw)
	default:
		return "undefined"
	}
}

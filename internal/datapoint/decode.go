package datapoint

import (
	"encoding/binary"
	"fmt"
)

// Supported integer widths in bytes.
const (
	width8  = 1
	width16 = 2
	width32 = 4
)

// Decode turns a frame into a typed value.
//
// Decoding rules by tag:
//   - bool: first byte, non-zero is true
//   - uint: big-endian across the whole payload (1, 2 or 4 bytes)
//   - enum: first byte as ordinal
//   - raw or unrecognised: width inference for 1, 2 or 4 bytes,
//     otherwise the untouched bytes
//
// A uint-tagged payload of an unsupported width is returned as bytes, the
// same as raw. A frame without an id, or with an empty payload, decodes to
// undefined. Decode never panics.
func Decode(f Frame) Decoded {
	if !f.HasID {
		return Decoded{}
	}

	out := Decoded{ID: f.ID, HasID: true}
	if len(f.Payload) == 0 {
		return out
	}

	switch f.Tag {
	case TagBool:
		v, err := DecodeBool(f.Payload)
		if err == nil {
			out.Value = Bool(v)
		}
	case TagEnum:
		v, err := DecodeEnum(f.Payload)
		if err == nil {
			out.Value = Int(int64(v))
		}
	default:
		// uint, raw and anything the vendor mislabelled share width inference
		out.Value = inferWidth(f.Payload)
	}

	return out
}

// inferWidth reads 1/2/4-byte payloads as big-endian unsigned integers and
// passes anything else through as bytes.
func inferWidth(data []byte) Value {
	v, err := DecodeUint(data)
	if err != nil {
		return Bytes(data)
	}
	return Int(int64(v))
}

// DecodeBool decodes a boolean datapoint.
//
// Parameters:
//   - data: payload (at least 1 byte)
//
// Returns:
//   - bool: true when the first byte is non-zero
//   - error: if data is empty
func DecodeBool(data []byte) (bool, error) {
	if len(data) < 1 {
		return false, fmt.Errorf("%w: bool requires 1 byte, got %d", ErrDecodingFailed, len(data))
	}
	return data[0] != 0, nil
}

// DecodeEnum decodes an enum datapoint to its ordinal.
func DecodeEnum(data []byte) (uint8, error) {
	if len(data) < 1 {
		return 0, fmt.Errorf("%w: enum requires 1 byte, got %d", ErrDecodingFailed, len(data))
	}
	return data[0], nil
}

// DecodeUint decodes a big-endian unsigned integer of width 1, 2 or 4.
//
// Parameters:
//   - data: payload of exactly 1, 2 or 4 bytes
//
// Returns:
//   - uint32: decoded value
//   - error: if the width is unsupported
func DecodeUint(data []byte) (uint32, error) {
	switch len(data) {
	case width8:
		return uint32(data[0]), nil
	case width16:
		return uint32(binary.BigEndian.Uint16(data)), nil
	case width32:
		return binary.BigEndian.Uint32(data), nil
	default:
		return 0, fmt.Errorf("%w: uint requires 1, 2 or 4 bytes, got %d", ErrDecodingFailed, len(data))
	}
}

// EncodeBool encodes a boolean datapoint payload.
func EncodeBool(v bool) []byte {
	if v {
		return []byte{0x01}
	}
	return []byte{0x00}
}

// EncodeUint encodes v as a big-endian unsigned integer of the given width.
func EncodeUint(v uint32, width int) ([]byte, error) {
	switch width {
	case width8:
		if v > 0xFF {
			return nil, fmt.Errorf("%w: %d does not fit in 1 byte", ErrEncodingFailed, v)
		}
		return []byte{byte(v)}, nil
	case width16:
		if v > 0xFFFF {
			return nil, fmt.Errorf("%w: %d does not fit in 2 bytes", ErrEncodingFailed, v)
		}
		out := make([]byte, width16)
		binary.BigEndian.PutUint16(out, uint16(v))
		return out, nil
	case width32:
		out := make([]byte, width32)
		binary.BigEndian.PutUint32(out, v)
		return out, nil
	default:
		return nil, fmt.Errorf("%w: unsupported width %d", ErrEncodingFailed, width)
	}
}

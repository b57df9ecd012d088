package datapoint

import (
	"fmt"
	"strings"
)

// TypeTag is the datapoint type byte as sent on the wire.
type TypeTag uint8

// Known type tags. Anything else is treated as unrecognised and follows the
// raw decoding rule.
const (
	TagRaw  TypeTag = 0x00 // Opaque bytes
	TagBool TypeTag = 0x01 // 1 byte, non-zero is true
	TagUint TypeTag = 0x02 // Big-endian unsigned, 1/2/4 bytes
	TagEnum TypeTag = 0x04 // 1 byte ordinal
)

// String returns the lower-case tag name, or "unknown(0xNN)".
func (t TypeTag) String() string {
	switch t {
	case TagRaw:
		return "raw"
	case TagBool:
		return "bool"
	case TagUint:
		return "uint"
	case TagEnum:
		return "enum"
	default:
		return fmt.Sprintf("unknown(0x%02x)", uint8(t))
	}
}

// ParseTypeTag converts a tag name ("bool", "uint", "value", "enum", "raw")
// to its TypeTag. Unrecognised names map to TagRaw and ok=false.
func ParseTypeTag(name string) (tag TypeTag, ok bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "bool", "boolean":
		return TagBool, true
	case "uint", "value", "number":
		return TagUint, true
	case "enum":
		return TagEnum, true
	case "raw", "":
		return TagRaw, true
	default:
		return TagRaw, false
	}
}

// Frame is one datapoint as received from the transport.
// The zero Frame has no id.
type Frame struct {
	ID      int
	HasID   bool
	Tag     TypeTag
	Payload []byte
}

// NewFrame builds a frame with an id.
func NewFrame(id int, tag TypeTag, payload []byte) Frame {
	return Frame{ID: id, HasID: true, Tag: tag, Payload: payload}
}

// Decoded is the result of decoding a Frame.
type Decoded struct {
	ID    int
	HasID bool
	Value Value
}

// String formats the decoded value for logs.
func (d Decoded) String() string {
	if !d.HasID {
		return "dp?=" + d.Value.String()
	}
	return fmt.Sprintf("dp%d=%s", d.ID, d.Value.String())
}

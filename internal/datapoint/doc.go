// Package datapoint decodes Tuya-style proprietary datapoint frames carried
// over the Zigbee 0xEF00 cluster into typed values.
//
// A datapoint frame is a (id, type tag, payload) triple. Decoding is purely
// structural: this package has no knowledge of what a datapoint means, only
// how its bytes are laid out. Interpretation is the job of internal/profile
// and internal/dispatch.
//
// # Totality
//
// Decode never panics and never returns an error. Malformed input resolves to
// the undefined value, which callers treat as "nothing to report":
//
//	d := datapoint.Decode(datapoint.NewFrame(101, datapoint.TagUint, payload))
//	if d.Value.IsUndefined() {
//	    return // nothing to do for this event
//	}
//
// The strict helpers (DecodeBool, DecodeUint, DecodeEnum) return errors
// wrapping ErrDecodingFailed for callers that want to know why.
//
// # Wire format
//
// Multi-datapoint reports are parsed with ParseFrames. Integers are big-endian.
//
//	seq(2) | dp(1) type(1) len(2) data(len) | dp(1) type(1) len(2) data(len) | ...
package datapoint

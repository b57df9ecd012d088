package datapoint

import (
	"encoding/binary"
	"fmt"
)

// Report layout constants.
const (
	// seqBytes is the length of the sequence number that prefixes a report.
	seqBytes = 2

	// recordHeaderBytes is dp(1) + type(1) + len(2).
	recordHeaderBytes = 4

	// maxRecordPayload bounds a single datapoint payload.
	maxRecordPayload = 0xFFFF
)

// ParseFrames splits a 0xEF00 data report into frames.
//
// The report starts with a 2-byte sequence number followed by zero or more
// records. On truncation the frames parsed so far are returned together with
// an error wrapping ErrTruncatedFrame, so callers can still dispatch the
// complete records.
//
// Parameters:
//   - buf: raw report payload
//
// Returns:
//   - uint16: sequence number (0 when buf is shorter than the header)
//   - []Frame: parsed frames in wire order
//   - error: if the report is truncated
func ParseFrames(buf []byte) (uint16, []Frame, error) {
	if len(buf) < seqBytes {
		return 0, nil, fmt.Errorf("%w: report needs %d header bytes, got %d", ErrTruncatedFrame, seqBytes, len(buf))
	}

	seq := binary.BigEndian.Uint16(buf[:seqBytes])
	data := buf[seqBytes:]

	var frames []Frame
	for len(data) > 0 {
		if len(data) < recordHeaderBytes {
			return seq, frames, fmt.Errorf("%w: %d trailing bytes", ErrTruncatedFrame, len(data))
		}

		id := int(data[0])
		tag := TypeTag(data[1])
		n := int(binary.BigEndian.Uint16(data[2:recordHeaderBytes]))
		data = data[recordHeaderBytes:]

		if len(data) < n {
			return seq, frames, fmt.Errorf("%w: dp%d declares %d bytes, %d available", ErrTruncatedFrame, id, n, len(data))
		}

		payload := make([]byte, n)
		copy(payload, data[:n])
		data = data[n:]

		frames = append(frames, NewFrame(id, tag, payload))
	}

	return seq, frames, nil
}

// AppendFrame appends one encoded record to a report buffer.
// Start a report with AppendSeq.
func AppendFrame(buf []byte, f Frame) ([]byte, error) {
	if !f.HasID || f.ID < 0 || f.ID > 0xFF {
		return buf, fmt.Errorf("%w: datapoint id must be 0-255", ErrEncodingFailed)
	}
	if len(f.Payload) > maxRecordPayload {
		return buf, fmt.Errorf("%w: payload of %d bytes too large", ErrEncodingFailed, len(f.Payload))
	}

	var hdr [recordHeaderBytes]byte
	hdr[0] = byte(f.ID)
	hdr[1] = byte(f.Tag)
	binary.BigEndian.PutUint16(hdr[2:], uint16(len(f.Payload)))

	buf = append(buf, hdr[:]...)
	return append(buf, f.Payload...), nil
}

// AppendSeq appends the 2-byte sequence header.
func AppendSeq(buf []byte, seq uint16) []byte {
	return binary.BigEndian.AppendUint16(buf, seq)
}

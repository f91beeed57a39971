package types

import "encoding/binary"

// TimestampSize is the width in bytes of a Timestamp (128 bits).
const TimestampSize = 16

// Timestamp is a 128-bit little-endian count of milliseconds since the
// Unix epoch, matching the block header's wire width. Only the low 64
// bits are ever populated: no millisecond clock reading overflows a
// uint64 within the lifetime of this chain, but the header field is
// carried at full width for wire compatibility.
type Timestamp [TimestampSize]byte

// NewTimestamp builds a Timestamp from a millisecond count.
func NewTimestamp(ms uint64) Timestamp {
	var t Timestamp
	binary.LittleEndian.PutUint64(t[:8], ms)
	return t
}

// Millis returns the low 64 bits as a millisecond count.
func (t Timestamp) Millis() uint64 {
	return binary.LittleEndian.Uint64(t[:8])
}

// IsZero reports whether t is the zero timestamp.
func (t Timestamp) IsZero() bool {
	return t == Timestamp{}
}

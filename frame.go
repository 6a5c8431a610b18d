package n2k

import "time"

// Frame is an immutable value carrying an N2K identifier and 0-8 bytes of
// CAN payload. See spec §3.
type Frame struct {
	ID      Identifier
	Payload []byte
}

// DefaultFrame is the zero-value frame, suitable for buffer preallocation
// (e.g. sizing the ring shared between ClientHandle and EventLoop).
var DefaultFrame = Frame{ID: NewIdentifier(0, 0, 0, 0)}

// RawFrame is the wire-level counterpart of Frame used by Transport
// implementations: it carries the raw CAN identifier (11-bit standard or
// 29-bit extended, per Extended), a receipt timestamp, and 0-8 payload
// bytes, mirroring the teacher's RawFrame/RawMessage timestamping
// convention. Transports exchange RawFrame with the EventLoop, which
// discards any standard-ID frame per spec §4.7/§6 and converts the rest to
// Frame before handing them to the application.
type RawFrame struct {
	Time     time.Time
	Extended bool
	ID       uint32
	Payload  [8]byte
	Length   uint8
}

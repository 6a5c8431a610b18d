package n2k

// FastPacket is an 8-byte Fast Packet frame payload, laid out per spec §3:
// byte 0 is group_no:4|frame_no:4; if frame_no is 0, byte 1 is total_len and
// bytes 2-7 are the first 6 data bytes, otherwise bytes 1-7 are the next 7
// data bytes.
type FastPacket [8]byte

// FrameNo is the index of this frame within its group, starting at 0.
func (p FastPacket) FrameNo() uint8 { return p[0] & 0x0F }

// GroupNo is the 4-bit rotating batch tag shared by every frame of one
// logical message.
func (p FastPacket) GroupNo() uint8 { return p[0] >> 4 }

// IsFirst reports whether this is the first frame of its group.
func (p FastPacket) IsFirst() bool { return p.FrameNo() == 0 }

// TotalLen returns the declared total payload length and true, if this is
// the first frame of its group.
func (p FastPacket) TotalLen() (uint8, bool) {
	if p.IsFirst() {
		return p[1], true
	}
	return 0, false
}

// Data returns this frame's data bytes: 6 for the first frame, 7 otherwise.
func (p FastPacket) Data() []byte {
	if p.IsFirst() {
		return p[2:]
	}
	return p[1:]
}

// FastPacketSegmenter produces, frame by frame, the Fast Packet sequence
// that encodes a payload. Construct with NewFastPacketSegmenter and pull
// frames with Next until it reports done, per spec §4.4.
type FastPacketSegmenter struct {
	payload []byte
	groupNo uint8
	frameNo uint8
	started bool
}

// NewFastPacketSegmenter begins segmenting payload (at most 255 bytes) under
// the given 4-bit group_no.
func NewFastPacketSegmenter(payload []byte, groupNo uint8) *FastPacketSegmenter {
	if len(payload) > 255 {
		panic("n2k: fast packet payload longer than 255 bytes")
	}
	if groupNo > 0x0F {
		panic("n2k: fast packet group_no must fit in 4 bits")
	}
	return &FastPacketSegmenter{payload: payload, groupNo: groupNo & 0x0F}
}

// Next produces the next frame of the sequence, or ok=false once the
// sequence is exhausted. A zero-length payload still yields exactly one
// frame (total_len = 0).
func (s *FastPacketSegmenter) Next() (FastPacket, bool) {
	if s.started && len(s.payload) == 0 {
		return FastPacket{}, false
	}

	var frame FastPacket
	frame[0] = (s.groupNo << 4) | (s.frameNo & 0x0F)

	if s.frameNo == 0 {
		frame[1] = uint8(len(s.payload))
		n := copy(frame[2:], s.payload)
		s.payload = s.payload[n:]
	} else {
		n := copy(frame[1:], s.payload)
		s.payload = s.payload[n:]
	}

	s.started = true
	s.frameNo++
	return frame, true
}

// Frames drains the segmenter into a slice, for callers that don't need
// laziness (e.g. tests).
func (s *FastPacketSegmenter) Frames() []FastPacket {
	var out []FastPacket
	for {
		f, ok := s.Next()
		if !ok {
			return out
		}
		out = append(out, f)
	}
}

// FastPacketReader reassembles one PGN's Fast Packet frames into a message
// of type T. It holds a fixed-size buffer sized to encodedLen and tracks the
// group currently being assembled. See spec §4.3.
type FastPacketReader[T any] struct {
	encodedLen int
	decode     func([]byte) (T, error)

	buf     []byte
	groupNo uint8 // 0xFF: no group in progress, since 4-bit group_no never reaches it
	bufPos  int
}

// NewFastPacketReader constructs a reader for messages of type T, which
// encode/decode to exactly encodedLen bytes.
func NewFastPacketReader[T any](encodedLen int, decode func([]byte) (T, error)) *FastPacketReader[T] {
	return &FastPacketReader[T]{
		encodedLen: encodedLen,
		decode:     decode,
		buf:        make([]byte, encodedLen),
		groupNo:    0xFF,
	}
}

// FastPacketResult is the outcome of a completed reassembly: either a
// decoded message or the error decode returned.
type FastPacketResult[T any] struct {
	Value T
	Err   error
}

// Read feeds one Fast Packet frame into the reassembly state machine. It
// returns ok=false when the frame did not complete a message (including
// every silently-dropped case: group mismatch, out-of-order frame number,
// or a length-mismatched first frame). ok=true means the buffer has just
// been fully reassembled and decode was invoked; result.Err carries any
// decode failure.
func (r *FastPacketReader[T]) Read(p FastPacket) (result FastPacketResult[T], ok bool) {
	if p.GroupNo() != r.groupNo {
		total, isFirst := p.TotalLen()
		if !isFirst || int(total) != r.encodedLen {
			return FastPacketResult[T]{}, false
		}
		r.bufPos = 0
		r.groupNo = p.GroupNo()
	}

	// frame_no is 4 bits wide, so frames past 15 wrap around to 0.
	expectedFrameNo := uint8((r.bufPos+1)/7) & 0x0F
	if p.FrameNo() != expectedFrameNo {
		return FastPacketResult[T]{}, false
	}

	// Only the group's first frame carries total_len; a wrapped frame_no 0
	// later in the group carries 7 data bytes.
	data := p[1:]
	if r.bufPos == 0 {
		data = p[2:]
	}
	remaining := r.encodedLen - r.bufPos
	if len(data) > remaining {
		data = data[:remaining]
	}
	copy(r.buf[r.bufPos:], data)
	r.bufPos += len(data)

	if r.bufPos != r.encodedLen {
		return FastPacketResult[T]{}, false
	}

	value, err := r.decode(r.buf)
	return FastPacketResult[T]{Value: value, Err: err}, true
}

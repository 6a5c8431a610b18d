package n2k

import (
	"context"
	"fmt"
	"sync"
)

// ClientHandle is the producer side of the ring shared with an EventLoop: it
// queues outbound frames for the loop to stamp with the currently claimed
// source address and transmit. Obtain one from NewEventLoop. Safe for
// concurrent use by multiple goroutines: frames go through a channel and the
// group_no counter is guarded by a mutex. See spec §3/§4.7.
type ClientHandle struct {
	tx      chan<- Frame
	mu      sync.Mutex
	groupNo uint8
}

// Send enqueues a single, already-complete frame. The identifier's source
// field is overwritten by the loop before transmission; callers should pass
// src=0. Send blocks while the ring is full, until the loop makes room or
// ctx is cancelled.
func (h *ClientHandle) Send(ctx context.Context, f Frame) error {
	select {
	case h.tx <- f:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SendFastPacket encodes msg, segments it into Fast Packet frames under the
// handle's next group_no (an 8-bit counter that wraps, truncated to 4 bits
// per frame), and enqueues them in order. The target identifier is built as
// (prio, msg.PGN(), src=0, dest); the loop stamps the real source address
// onto every frame immediately before sending it. See spec §4.7.
func (h *ClientHandle) SendFastPacket(ctx context.Context, msg Message, prio uint8, dest uint8) error {
	buf := make([]byte, msg.EncodedLen())
	msg.Encode(buf)

	id := NewIdentifier(prio, msg.PGN(), 0, dest)
	h.mu.Lock()
	groupNo := h.groupNo
	h.groupNo++
	h.mu.Unlock()

	seg := NewFastPacketSegmenter(buf, groupNo&0x0F)
	for {
		fp, ok := seg.Next()
		if !ok {
			return nil
		}
		f := Frame{ID: id, Payload: append([]byte(nil), fp[:]...)}
		if err := h.Send(ctx, f); err != nil {
			return fmt.Errorf("n2k: send fast packet frame: %w", err)
		}
	}
}

package n2k

import (
	"context"
	"testing"
	"time"
)

func TestClientHandle_Send(t *testing.T) {
	ring := make(chan Frame, 1)
	h := &ClientHandle{tx: ring}

	f := Frame{ID: NewIdentifier(3, 130816, 0, 0xFF), Payload: []byte{1, 2}}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := h.Send(ctx, f); err != nil {
		t.Fatalf("Send: %v", err)
	}

	got := <-ring
	if got.ID != f.ID || string(got.Payload) != string(f.Payload) {
		t.Fatalf("got %+v, want %+v", got, f)
	}
}

func TestClientHandle_Send_ContextCancelled(t *testing.T) {
	ring := make(chan Frame) // unbuffered and nobody drains it
	h := &ClientHandle{tx: ring}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := h.Send(ctx, Frame{})
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

type fixedMessage struct {
	pgn uint32
	buf []byte
}

func (m fixedMessage) PGN() uint32     { return m.pgn }
func (m fixedMessage) EncodedLen() int { return len(m.buf) }
func (m fixedMessage) Encode(out []byte) {
	copy(out, m.buf)
}

func TestClientHandle_SendFastPacket_OrderedAndGroupNoAdvances(t *testing.T) {
	ring := make(chan Frame, 8)
	h := &ClientHandle{tx: ring}

	msg := fixedMessage{pgn: 130816, buf: []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := h.SendFastPacket(ctx, msg, 3, 0xFF); err != nil {
		t.Fatalf("SendFastPacket: %v", err)
	}
	close(ring)

	var frames []Frame
	for f := range ring {
		frames = append(frames, f)
	}
	if len(frames) != 2 {
		t.Fatalf("got %d frames, want 2", len(frames))
	}
	if frames[0].ID.PGN() != msg.pgn || frames[1].ID.PGN() != msg.pgn {
		t.Fatalf("frames carry wrong PGN")
	}
	if FastPacket(frames[0].Payload).FrameNo() != 0 || FastPacket(frames[1].Payload).FrameNo() != 1 {
		t.Fatalf("frames out of order: %v", frames)
	}
	if h.groupNo != 1 {
		t.Fatalf("groupNo = %d, want 1 after one SendFastPacket call", h.groupNo)
	}
}

func TestClientHandle_SendFastPacket_GroupNoWraps(t *testing.T) {
	ring := make(chan Frame, 64)
	h := &ClientHandle{tx: ring, groupNo: 0xFF}

	msg := fixedMessage{pgn: 130816, buf: []byte{1}}
	ctx := context.Background()
	if err := h.SendFastPacket(ctx, msg, 0, 0xFF); err != nil {
		t.Fatalf("SendFastPacket: %v", err)
	}
	if h.groupNo != 0 {
		t.Fatalf("groupNo = %d, want wraparound to 0", h.groupNo)
	}
}

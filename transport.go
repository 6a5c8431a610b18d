package n2k

import "context"

// Transport is the sole external boundary of this package: a bidirectional
// frame transport that the EventLoop drives. Implementations wrap a
// physical CAN transceiver, a CAN-to-serial gateway, or (for tests) an
// in-memory bus. Both methods may block/suspend until ctx is cancelled; see
// spec §6 and the concrete implementations under transport/.
type Transport interface {
	// Send transmits one frame.
	Send(ctx context.Context, f RawFrame) error
	// Receive blocks until one frame is available.
	Receive(ctx context.Context) (RawFrame, error)
}

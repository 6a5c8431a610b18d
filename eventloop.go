package n2k

import (
	"context"
	"sync"
	"time"

	"github.com/j1939dev/n2k-core/internal/logging"
)

// claimPriority is the CAN priority ISO 11783 assigns to Address Claim
// traffic.
const claimPriority uint8 = 6

// EventLoop is the cooperative single-task driver described in spec §4.7: it
// owns the Transport, runs the address-claim FSM, and multiplexes outbound
// frames queued via a ClientHandle against inbound frames from the
// Transport. Construct with NewEventLoop and drive it by calling Poll (or
// Run) repeatedly from one goroutine; see SPEC_FULL.md §5 for why a second,
// strictly mechanical "pump" goroutine exists alongside it.
type EventLoop struct {
	name      DeviceName
	src       uint8
	transport Transport
	recorder  Recorder

	claim        addressClaimState
	claimElapsed bool

	rx <-chan Frame

	recvC    chan recvResult
	pumpOnce sync.Once

	// onClaim, if set, is invoked for every inbound ISO Address Claim this
	// loop observes, regardless of which source address it targets. It
	// exists so a supplemental bus-discovery layer (see the discovery
	// package) can track other devices without the core loop surfacing
	// claim traffic to the application, which spec §4.7 forbids.
	onClaim func(src uint8, name DeviceName)
}

// SetClaimObserver installs fn to be called with every inbound ISO Address
// Claim's source and name, before the claim FSM processes it. fn must not
// block. Pass nil to remove the observer.
func (l *EventLoop) SetClaimObserver(fn func(src uint8, name DeviceName)) {
	l.onClaim = fn
}

type recvResult struct {
	frame RawFrame
	err   error
}

// NewEventLoop constructs a loop that will attempt to claim initialSrc (and
// arbitrate away from it on collision) under the given device name, driving
// transport. ringCapacity sizes the fixed-capacity ring shared with the
// returned ClientHandle. recorder may be nil.
func NewEventLoop(name DeviceName, initialSrc uint8, transport Transport, ringCapacity int, recorder Recorder) (*EventLoop, *ClientHandle) {
	if initialSrc < MinSrc || initialSrc > MaxSrc {
		panic("n2k: initial src out of range")
	}
	if recorder == nil {
		recorder = noopRecorder{}
	}
	ring := make(chan Frame, ringCapacity)
	loop := &EventLoop{
		name:      name,
		src:       initialSrc,
		transport: transport,
		recorder:  recorder,
		rx:        ring,
		recvC:     make(chan recvResult),
	}
	handle := &ClientHandle{tx: ring}
	return loop, handle
}

// Src returns the loop's currently claimed (or being-claimed) source
// address.
func (l *EventLoop) Src() uint8 { return l.src }

// Poll runs the loop until the next inbound application-level frame: it
// drives the claim FSM (sending claims and absorbing contesting claims as
// needed), transmits queued application frames once the claim timer has
// elapsed, and returns the first inbound frame that is not an ISO Address
// Claim. It blocks until such a frame arrives, an error occurs, or ctx is
// cancelled. See spec §4.7.
func (l *EventLoop) Poll(ctx context.Context) (Frame, error) {
	if !l.claim.isStarted() {
		if err := l.sendClaim(ctx, l.src); err != nil {
			return Frame{}, err
		}
		l.claim.restart()
		l.claimElapsed = false
		l.recorder.AddressClaimStarted()
	}
	l.ensurePump(ctx)

	for {
		var timerC <-chan time.Time
		var sendPath <-chan Frame
		if l.claimElapsed {
			sendPath = l.rx
		} else {
			timerC = l.claim.timerC
		}

		select {
		case <-ctx.Done():
			return Frame{}, ctx.Err()

		case <-timerC:
			l.claimElapsed = true

		case f := <-sendPath:
			f.ID.SetSource(l.src)
			if err := l.sendRaw(ctx, f); err != nil {
				return Frame{}, err
			}
			l.recorder.FrameSent()

		case res := <-l.recvC:
			if res.err != nil {
				return Frame{}, transportErr(res.err)
			}
			if !res.frame.Extended {
				l.recorder.FrameDiscardedStandardID()
				logging.L().Debug("frame_discarded_standard_id", "can_id", res.frame.ID)
				continue
			}
			l.recorder.FrameReceived()
			id := IdentifierFromCANID(res.frame.ID)
			payload := append([]byte(nil), res.frame.Payload[:res.frame.Length]...)

			if id.PGN() == PGNISOAddressClaim {
				if err := l.handleAddressClaim(ctx, id, payload); err != nil {
					return Frame{}, err
				}
				continue
			}
			return Frame{ID: id, Payload: payload}, nil
		}
	}
}

// Run calls Poll in a loop, invoking onFrame for every inbound
// application-level frame, until ctx is cancelled or either Poll or onFrame
// returns an error.
func (l *EventLoop) Run(ctx context.Context, onFrame func(Frame) error) error {
	for {
		f, err := l.Poll(ctx)
		if err != nil {
			return err
		}
		if err := onFrame(f); err != nil {
			return err
		}
	}
}

// handleAddressClaim implements the "any state" transition of spec §4.6 for
// an inbound ISO Address Claim.
func (l *EventLoop) handleAddressClaim(ctx context.Context, id Identifier, payload []byte) error {
	claimant, err := DecodeISOAddressClaim(payload)
	if err != nil {
		// Unreachable per spec §4.8: decoding 8 bytes into a DeviceName
		// cannot fail.
		return nil
	}

	if l.onClaim != nil {
		l.onClaim(id.Source(), claimant.Name)
	}

	if id.Source() != l.src {
		return nil
	}

	switch {
	case l.name < claimant.Name:
		return l.sendClaim(ctx, l.src)

	case l.name == claimant.Name:
		l.recorder.AddressClaimCollisionIgnored()
		logging.L().Warn("address_claim_name_collision", "src", l.src, "name", uint64(l.name))
		return nil

	default:
		l.src = incrSrc(l.src)
		if err := l.sendClaim(ctx, l.src); err != nil {
			return err
		}
		l.claim.restart()
		l.claimElapsed = false
		l.recorder.AddressClaimRestarted()
		logging.L().Debug("address_claim_restarted", "new_src", l.src)
		return nil
	}
}

// sendClaim transmits an ISO Address Claim for src under our name.
func (l *EventLoop) sendClaim(ctx context.Context, src uint8) error {
	msg := ISOAddressClaim{Name: l.name}
	buf := make([]byte, msg.EncodedLen())
	msg.Encode(buf)
	id := NewIdentifier(claimPriority, PGNISOAddressClaim, src, DestinationBroadcast)
	return l.sendRaw(ctx, Frame{ID: id, Payload: buf})
}

// sendRaw stamps nothing further and hands f straight to the transport.
func (l *EventLoop) sendRaw(ctx context.Context, f Frame) error {
	var raw RawFrame
	raw.Extended = true
	raw.ID = f.ID.AsCANID()
	raw.Length = uint8(len(f.Payload))
	copy(raw.Payload[:], f.Payload)
	if err := l.transport.Send(ctx, raw); err != nil {
		return transportErr(err)
	}
	return nil
}

// ensurePump starts, at most once per loop, the goroutine that turns the
// blocking Transport.Receive into values Poll can select on. This goroutine
// performs no application logic: it exists only because Go's select cannot
// wait on a plain blocking call. See SPEC_FULL.md §5.
func (l *EventLoop) ensurePump(ctx context.Context) {
	l.pumpOnce.Do(func() {
		go l.pump(ctx)
	})
}

func (l *EventLoop) pump(ctx context.Context) {
	for {
		raw, err := l.transport.Receive(ctx)
		select {
		case l.recvC <- recvResult{frame: raw, err: err}:
		case <-ctx.Done():
			return
		}
	}
}

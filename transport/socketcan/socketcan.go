// Package socketcan implements n2k.Transport over a Linux SocketCAN raw
// socket. It is grounded on the same golang.org/x/sys/unix primitives and
// CAN-frame-on-the-wire layout as the socketcan package it was adapted from.
package socketcan

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/j1939dev/n2k-core"
)

const (
	canRaw = 1

	// canIDEFFFlag is bit 31 of the socketCAN wire identifier: 0 = standard
	// 11-bit, 1 = extended 29-bit.
	canIDEFFFlag = uint32(1 << 31)
	// canIDRTRFlag is bit 30: remote transmission request.
	canIDRTRFlag = uint32(1 << 30)
	// canIDERRFlag is bit 29: error frame.
	canIDERRFlag = uint32(1 << 29)
	// canIDMask masks the three flag bits out of the socketCAN identifier,
	// leaving the 29-bit (or 11-bit) CAN identifier.
	canIDMask = uint32(1<<29) - 1
)

func isContinuableSocketErr(err error) bool {
	return errors.Is(err, syscall.EWOULDBLOCK) || errors.Is(err, syscall.EINTR)
}

// Transport is an n2k.Transport backed by a bound SocketCAN raw socket.
type Transport struct {
	socketFD int
	timeNow  func() time.Time

	// readPollInterval bounds how long a single blocking read may run
	// before Receive rechecks ctx for cancellation.
	readPollInterval time.Duration
}

// Open binds a SocketCAN raw socket to the named interface (e.g. "can0").
// The interface must already be up; see BringUp.
func Open(ifName string) (*Transport, error) {
	ifi, err := net.InterfaceByName(ifName)
	if err != nil {
		return nil, fmt.Errorf("socketcan: bad interface %q: %w", ifName, err)
	}

	fd, err := unix.Socket(unix.AF_CAN, unix.SOCK_RAW, canRaw)
	if err != nil {
		return nil, fmt.Errorf("socketcan: create socket: %w", err)
	}

	addr := &unix.SockaddrCAN{Ifindex: ifi.Index}
	if err := unix.Bind(fd, addr); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("socketcan: bind %q: %w", ifName, err)
	}

	return &Transport{
		socketFD:         fd,
		timeNow:          time.Now,
		readPollInterval: 50 * time.Millisecond,
	}, nil
}

// Close releases the underlying socket.
func (t *Transport) Close() error {
	return unix.Close(t.socketFD)
}

func (t *Transport) setReadTimeout(d time.Duration) error {
	tv := unix.NsecToTimeval(d.Nanoseconds())
	return unix.SetsockoptTimeval(t.socketFD, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv)
}

// Send implements n2k.Transport.
func (t *Transport) Send(ctx context.Context, f n2k.RawFrame) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	canFrame := make([]byte, 16)
	canID := f.ID
	if f.Extended {
		canID |= canIDEFFFlag
	}
	binary.LittleEndian.PutUint32(canFrame[0:4], canID)
	canFrame[4] = f.Length
	copy(canFrame[8:], f.Payload[:f.Length])

	_, err := unix.Write(t.socketFD, canFrame)
	return err
}

// Receive implements n2k.Transport. It polls the socket in short bursts so
// ctx cancellation is honored promptly even though the underlying read is a
// blocking syscall.
func (t *Transport) Receive(ctx context.Context) (n2k.RawFrame, error) {
	for {
		if err := ctx.Err(); err != nil {
			return n2k.RawFrame{}, err
		}

		if err := t.setReadTimeout(t.readPollInterval); err != nil {
			return n2k.RawFrame{}, err
		}

		canFrame := make([]byte, 16)
		_, err := unix.Read(t.socketFD, canFrame)
		if err != nil {
			if isContinuableSocketErr(err) {
				continue
			}
			return n2k.RawFrame{}, err
		}

		rawID := binary.LittleEndian.Uint32(canFrame[0:4])
		if rawID&canIDRTRFlag != 0 {
			continue
		}
		if rawID&canIDERRFlag != 0 {
			continue
		}

		f := n2k.RawFrame{
			Time:     t.timeNow(),
			Extended: rawID&canIDEFFFlag != 0,
			ID:       rawID & canIDMask,
			Length:   canFrame[4],
		}
		copy(f.Payload[:], canFrame[8:8+f.Length])
		return f, nil
	}
}

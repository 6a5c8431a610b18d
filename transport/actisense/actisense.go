// Package actisense implements n2k.Transport over an Actisense NGT-1
// USB-to-NMEA2000 gateway reached via a serial port, using the DLE/STX/ETX
// framing and checksum the NGT-1 firmware speaks. Adapted from the
// DLE-escaping state machine and CRC of the actisense reader this package
// was grounded on.
package actisense

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/tarm/serial"

	"github.com/j1939dev/n2k-core"
)

const (
	stx = 0x02
	etx = 0x03
	dle = 0x10

	cmdN2KMessageReceived = 0x93
	cmdN2KMessageSend     = 0x94

	// maxMessageSize bounds one de-escaped Actisense message; large enough
	// for any single N2K Fast Packet frame plus its NGT-1 envelope.
	maxMessageSize = 64
)

// Open opens the named serial port at baud (typically 115200 for an NGT-1)
// and wraps it as a Transport.
func Open(name string, baud int) (*Transport, error) {
	port, err := serial.OpenPort(&serial.Config{Name: name, Baud: baud, ReadTimeout: 50 * time.Millisecond})
	if err != nil {
		return nil, fmt.Errorf("actisense: open %q: %w", name, err)
	}
	return NewTransport(port), nil
}

// Transport is an n2k.Transport backed by an io.ReadWriteCloser speaking the
// Actisense NGT-1 protocol.
type Transport struct {
	device  io.ReadWriteCloser
	timeNow func() time.Time
}

// NewTransport wraps an already-open device, for tests or non-serial
// transports that still speak the NGT-1 wire protocol.
func NewTransport(device io.ReadWriteCloser) *Transport {
	return &Transport{device: device, timeNow: time.Now}
}

// Close releases the underlying device.
func (t *Transport) Close() error {
	return t.device.Close()
}

type frameState uint8

const (
	waitingStartOfMessage frameState = iota
	readingMessageData
	processingEscapeSequence
)

// Receive implements n2k.Transport by reading and de-escaping one NGT-1
// frame. Frames with an unrecognized command byte are skipped transparently;
// Receive only returns once it has a complete N2K_MSG_RECEIVED frame or ctx
// is cancelled.
func (t *Transport) Receive(ctx context.Context) (n2k.RawFrame, error) {
	message := make([]byte, maxMessageSize)
	messageByteIndex := 0

	buf := make([]byte, 1)
	var previousByte, currentByte byte

	state := waitingStartOfMessage
	for {
		select {
		case <-ctx.Done():
			return n2k.RawFrame{}, ctx.Err()
		default:
		}

		n, err := t.device.Read(buf)
		if err != nil {
			return n2k.RawFrame{}, err
		}
		if n == 0 {
			continue
		}
		previousByte, currentByte = currentByte, buf[0]

		switch state {
		case waitingStartOfMessage:
			if previousByte == dle && currentByte == stx {
				state = readingMessageData
			}

		case readingMessageData:
			if currentByte == dle {
				state = processingEscapeSequence
				continue
			}
			if messageByteIndex < len(message) {
				message[messageByteIndex] = currentByte
				messageByteIndex++
			}

		case processingEscapeSequence:
			if currentByte == dle {
				state = readingMessageData
				if messageByteIndex < len(message) {
					message[messageByteIndex] = currentByte
					messageByteIndex++
				}
				continue
			}
			if currentByte == etx {
				raw := message[:messageByteIndex]
				state = waitingStartOfMessage
				messageByteIndex = 0
				if len(raw) > 0 && raw[0] == cmdN2KMessageReceived {
					frame, err := decodeReceived(raw, t.timeNow())
					if err != nil {
						continue
					}
					return frame, nil
				}
				continue
			}
			state = waitingStartOfMessage
			messageByteIndex = 0
		}
	}
}

// decodeReceived parses an N2K_MSG_RECEIVED payload into a RawFrame.
// Layout: cmd, len, priority, pgn:3 (LE), destination, source, timestamp:4
// (LE), data_len, data..., crc.
func decodeReceived(raw []byte, now time.Time) (n2k.RawFrame, error) {
	if len(raw) < 13 {
		return n2k.RawFrame{}, errors.New("actisense: message too short")
	}
	if crc(raw) != 0 {
		return n2k.RawFrame{}, errors.New("actisense: bad checksum")
	}

	data := raw[2:]
	priority := data[0]
	pgn := uint32(data[1]) | uint32(data[2])<<8 | uint32(data[3])<<16
	dest := data[4]
	src := data[5]
	length := data[10]
	if int(length) > len(data)-11 {
		return n2k.RawFrame{}, errors.New("actisense: declared length exceeds message")
	}

	id := n2k.NewIdentifier(priority&0x7, pgn, src, dest)
	f := n2k.RawFrame{Time: now, Extended: true, ID: id.AsCANID(), Length: length}
	copy(f.Payload[:], data[11:11+length])
	return f, nil
}

// Send implements n2k.Transport by framing f as an N2K_MSG_SEND message.
// Unlike received frames, the NGT-1 assigns the timestamp itself, so the
// written payload omits it: priority, pgn:3 (LE), destination, len, data.
func (t *Transport) Send(ctx context.Context, f n2k.RawFrame) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	id := n2k.IdentifierFromCANID(f.ID)
	payload := make([]byte, 0, 6+f.Length)
	payload = append(payload, id.Priority())
	pgn := id.PGN()
	payload = append(payload, byte(pgn), byte(pgn>>8), byte(pgn>>16))
	payload = append(payload, id.Destination())
	payload = append(payload, f.Length)
	payload = append(payload, f.Payload[:f.Length]...)

	body := append([]byte{cmdN2KMessageSend, byte(len(payload))}, payload...)
	crcByte := crc(body)
	packet := make([]byte, 0, len(body)+5)
	packet = append(packet, dle, stx)
	packet = append(packet, body...)
	packet = append(packet, crcByte, dle, etx)

	_, err := t.device.Write(packet)
	return err
}

// crc sums the unescaped bytes of a message; a well-formed message (with its
// trailing checksum byte included) sums to zero modulo 256.
func crc(data []byte) uint8 {
	sum := uint16(0)
	for _, b := range data {
		sum += uint16(b)
	}
	return uint8(256 - sum%256)
}

package actisense

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	n2k "github.com/j1939dev/n2k-core"
)

// fakeDevice is an io.ReadWriteCloser that serves Read from a fixed buffer
// one byte at a time and records everything written to it.
type fakeDevice struct {
	in      *bytes.Reader
	written bytes.Buffer
}

func newFakeDevice(data []byte) *fakeDevice {
	return &fakeDevice{in: bytes.NewReader(data)}
}

func (d *fakeDevice) Read(p []byte) (int, error) {
	return d.in.Read(p)
}

func (d *fakeDevice) Write(p []byte) (int, error) {
	return d.written.Write(p)
}

func (d *fakeDevice) Close() error { return nil }

func buildFrame(body []byte) []byte {
	full := append(append([]byte(nil), body...), crc(body))
	packet := []byte{dle, stx}
	packet = append(packet, full...)
	packet = append(packet, dle, etx)
	return packet
}

func TestCRC_ZeroSumsWithAppendedChecksum(t *testing.T) {
	body := []byte{0x93, 0x05, 0x01, 0x02, 0x03, 0x04, 0x05}
	full := append(append([]byte(nil), body...), crc(body))

	var sum uint16
	for _, b := range full {
		sum += uint16(b)
	}
	assert.Zero(t, sum%256)
}

func TestReceive_ParsesN2KMessageReceived(t *testing.T) {
	data := []byte{
		cmdN2KMessageReceived, // cmd
		0,                     // len byte, unused by decodeReceived
		0x02,                  // priority
		0x01, 0xf8, 0x01,      // pgn LE = 0x1f801 = 129025
		0xff,       // destination
		0x7f,       // source
		0, 0, 0, 0, // timestamp, ignored
		0x03,                   // data length
		0xaa, 0xbb, 0xcc,       // data
	}
	packet := buildFrame(data)

	dev := newFakeDevice(packet)
	tr := NewTransport(dev)
	tr.timeNow = func() time.Time { return time.Unix(100, 0).UTC() }

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	frame, err := tr.Receive(ctx)
	require.NoError(t, err)

	id := n2k.IdentifierFromCANID(frame.ID)
	assert.Equal(t, uint8(2), id.Priority())
	assert.Equal(t, uint32(129025), id.PGN())
	assert.Equal(t, uint8(0x7f), id.Source())
	assert.True(t, frame.Extended)
	assert.Equal(t, uint8(3), frame.Length)
	assert.Equal(t, []byte{0xaa, 0xbb, 0xcc}, frame.Payload[:3])
}

func TestReceive_ContextCancelledWhileWaiting(t *testing.T) {
	dev := newFakeDevice(nil)
	tr := NewTransport(dev)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := tr.Receive(ctx)
	assert.Error(t, err)
}

func TestSend_FramesAndChecksumsCorrectly(t *testing.T) {
	dev := newFakeDevice(nil)
	tr := NewTransport(dev)

	id := n2k.NewIdentifier(3, 130816, 0, 0xFF)
	f := n2k.RawFrame{ID: id.AsCANID(), Extended: true, Length: 2, Payload: [8]byte{0x11, 0x22}}

	require.NoError(t, tr.Send(context.Background(), f))

	written := dev.written.Bytes()
	require.True(t, len(written) >= 4)
	assert.Equal(t, byte(dle), written[0])
	assert.Equal(t, byte(stx), written[1])
	assert.Equal(t, byte(dle), written[len(written)-2])
	assert.Equal(t, byte(etx), written[len(written)-1])

	body := written[2 : len(written)-3]
	checksumByte := written[len(written)-3]
	full := append(append([]byte(nil), body...), checksumByte)
	var sum uint16
	for _, b := range full {
		sum += uint16(b)
	}
	assert.Zero(t, sum%256, "checksum should make the frame sum to zero mod 256")
	assert.Equal(t, byte(cmdN2KMessageSend), body[0])
}

var _ io.ReadWriteCloser = (*fakeDevice)(nil)

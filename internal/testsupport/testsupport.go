// Package testsupport holds small test doubles shared across this module's
// package tests, adapted from the queued-result mock reader/writer and
// UTC-time helper this module's tests were grounded on.
package testsupport

import (
	"context"
	"time"

	n2k "github.com/j1939dev/n2k-core"
)

// UTCTime builds a UTC time.Time from a Unix timestamp, avoiding
// timezone-dependent test flakiness.
func UTCTime(sec int64) time.Time {
	return time.Unix(sec, 0).In(time.UTC)
}

// ReceiveResult is one queued outcome for MockTransport.Receive.
type ReceiveResult struct {
	Frame n2k.RawFrame
	Err   error
}

// MockTransport is a queue-driven n2k.Transport double: Receive replays
// Receives in order (blocking on an empty queue until ctx is cancelled),
// and Send records every frame it was given.
type MockTransport struct {
	Receives []ReceiveResult
	SendErr  error

	Sent []n2k.RawFrame

	recvIndex int
	notify    chan struct{}
}

// NewMockTransport constructs a MockTransport that will yield recvs in
// order, then block until ctx is cancelled.
func NewMockTransport(recvs ...ReceiveResult) *MockTransport {
	return &MockTransport{Receives: recvs, notify: make(chan struct{}, 1)}
}

func (m *MockTransport) Send(ctx context.Context, f n2k.RawFrame) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.Sent = append(m.Sent, f)
	return m.SendErr
}

func (m *MockTransport) Receive(ctx context.Context) (n2k.RawFrame, error) {
	if m.recvIndex < len(m.Receives) {
		r := m.Receives[m.recvIndex]
		m.recvIndex++
		return r.Frame, r.Err
	}
	<-ctx.Done()
	return n2k.RawFrame{}, ctx.Err()
}

// Push appends a Receive outcome the transport will yield after any already
// queued.
func (m *MockTransport) Push(r ReceiveResult) {
	m.Receives = append(m.Receives, r)
}

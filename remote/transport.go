// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package remote carries envelopes between a client port and a service port
// living in another process. Two schemes are supported: tcp, which writes
// length-prefixed frames, and ws, which writes one websocket binary message
// per envelope. Frames may be compressed with zstd.
package remote

import (
	"context"

	"github.com/remactgo/remact/codec"
)

// ReadyState is the state of a client transport
type ReadyState int32

const (
	// ReadyStateConnecting while the connection is being opened
	ReadyStateConnecting ReadyState = iota
	// ReadyStateOpen when envelopes can be sent
	ReadyStateOpen
	// ReadyStateClosing while the connection is being closed
	ReadyStateClosing
	// ReadyStateClosed when the connection is closed or was never opened
	ReadyStateClosed
)

// String returns the state name
func (s ReadyState) String() string {
	switch s {
	case ReadyStateConnecting:
		return "Connecting"
	case ReadyStateOpen:
		return "Open"
	case ReadyStateClosing:
		return "Closing"
	default:
		return "Closed"
	}
}

// ClientTransport is the client side of one connection to a service
type ClientTransport interface {
	// Open connects to the service. onEnvelope is called for every envelope
	// received, in order, on a transport goroutine. onClose is called once
	// when the service or the network ends the connection.
	Open(ctx context.Context, onEnvelope func(*codec.Envelope), onClose func(error)) error
	// SendToService writes an envelope to the service
	SendToService(ctx context.Context, envelope *codec.Envelope) error
	// ServiceURI returns the URI this transport connects to
	ServiceURI() string
	// ReadyState returns the connection state
	ReadyState() ReadyState
	// Close ends the connection. onClose is not called.
	Close() error
}

// Session is the service side of one client connection
type Session interface {
	// ID identifies the session for the lifetime of the process
	ID() string
	// RemoteAddr returns the client network address
	RemoteAddr() string
	// SendToClient writes an envelope to the client
	SendToClient(ctx context.Context, envelope *codec.Envelope) error
	// Close ends the connection
	Close() error
}

// SessionHandler receives the traffic of the sessions of a service.
// Envelopes of one session are delivered in order on one goroutine.
type SessionHandler interface {
	// OnEnvelope is called for every envelope received on a session
	OnEnvelope(session Session, envelope *codec.Envelope)
	// OnSessionClosed is called once when a session ends
	OnSessionClosed(session Session, err error)
}

// ServiceTransport is the service side transport of one service port
type ServiceTransport interface {
	// ServiceURI returns the URI clients connect to, built from the advertised host name
	ServiceURI() string
	// Addresses returns alternative URIs of the service, e.g. one per IP address
	Addresses() []string
	// Serve starts routing the sessions opened for this service to handler
	Serve(handler SessionHandler) error
	// Close stops serving and closes the open sessions of this service
	Close() error
}

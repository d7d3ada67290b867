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

package remote

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/flowchartsman/retry"
	"github.com/gorilla/websocket"
	"go.uber.org/atomic"

	"github.com/remactgo/remact/address"
	"github.com/remactgo/remact/codec"
	gerrors "github.com/remactgo/remact/errors"
	"github.com/remactgo/remact/log"
)

// Client is the client side transport of one connection to a service.
// A closed client can be opened again.
type Client struct {
	uri     string
	address *address.Address
	cfg     *config
	codec   *frameCodec
	logger  log.Logger
	state   *atomic.Int32

	mu      sync.Mutex
	wire    wire
	closing *atomic.Bool
}

var _ ClientTransport = (*Client)(nil)

// NewClient creates a transport connecting to serviceURI, e.g. tcp://host:port/service
func NewClient(serviceURI string, opts ...Option) (*Client, error) {
	addr, err := address.Parse(serviceURI)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", gerrors.ErrInvalidURI, err)
	}

	cfg := newConfig(opts...)
	return &Client{
		uri:     serviceURI,
		address: addr,
		cfg:     cfg,
		codec:   cfg.newCodec(),
		logger:  cfg.logger,
		state:   atomic.NewInt32(int32(ReadyStateClosed)),
		closing: atomic.NewBool(false),
	}, nil
}

// ServiceURI implements ClientTransport
func (c *Client) ServiceURI() string {
	return c.uri
}

// ReadyState implements ClientTransport
func (c *Client) ReadyState() ReadyState {
	return ReadyState(c.state.Load())
}

// Open implements ClientTransport
func (c *Client) Open(ctx context.Context, onEnvelope func(*codec.Envelope), onClose func(error)) error {
	if !c.state.CompareAndSwap(int32(ReadyStateClosed), int32(ReadyStateConnecting)) {
		return gerrors.ErrAlreadyConnecting
	}
	c.closing.Store(false)

	var w wire
	retrier := retry.NewRetrier(c.cfg.dialRetries, 50*time.Millisecond, time.Second)
	err := retrier.RunContext(ctx, func(ctx context.Context) error {
		var err error
		w, err = c.dial(ctx)
		return err
	})
	if err != nil {
		c.state.Store(int32(ReadyStateClosed))
		return gerrors.NewErrCouldNotStartConnect(c.uri, err)
	}

	c.mu.Lock()
	if c.closing.Load() {
		c.mu.Unlock()
		_ = w.close()
		c.state.Store(int32(ReadyStateClosed))
		return gerrors.ErrTransportClosed
	}
	c.wire = w
	c.state.Store(int32(ReadyStateOpen))
	c.mu.Unlock()

	go c.readLoop(w, onEnvelope, onClose)
	return nil
}

// SendToService implements ClientTransport
func (c *Client) SendToService(ctx context.Context, envelope *codec.Envelope) error {
	c.mu.Lock()
	w := c.wire
	c.mu.Unlock()

	if w == nil || c.ReadyState() != ReadyStateOpen {
		return gerrors.ErrTransportClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if envelope.Destination == "" {
		envelope.Destination = c.address.Service()
	}

	frame, err := c.codec.encode(envelope)
	if err != nil {
		return err
	}
	return w.writeFrame(frame)
}

// Close implements ClientTransport. The read loop ends in the background.
func (c *Client) Close() error {
	c.closing.Store(true)

	c.mu.Lock()
	w := c.wire
	c.wire = nil
	c.mu.Unlock()

	if w == nil {
		return nil
	}

	c.state.Store(int32(ReadyStateClosing))
	if err := w.close(); err != nil && !isClosedError(err) {
		return err
	}
	return nil
}

func (c *Client) dial(ctx context.Context) (wire, error) {
	switch c.address.Scheme() {
	case address.SchemeWS:
		target := url.URL{Scheme: "ws", Host: c.address.HostPort(), Path: "/" + c.address.Service()}
		dialer := websocket.Dialer{HandshakeTimeout: c.cfg.dialTimeout}
		conn, resp, err := dialer.DialContext(ctx, target.String(), nil)
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		if err != nil {
			return nil, err
		}
		return newWSWire(conn, c.cfg.writeTimeout, c.codec.maxFrameSize), nil
	case address.SchemeTCP:
		dialer := net.Dialer{Timeout: c.cfg.dialTimeout}
		conn, err := dialer.DialContext(ctx, "tcp", c.address.HostPort())
		if err != nil {
			return nil, err
		}
		return newTCPWire(conn, c.cfg.writeTimeout, c.codec.maxFrameSize), nil
	default:
		return nil, fmt.Errorf("%w: %s", address.ErrUnsupportedScheme, c.address.Scheme())
	}
}

func (c *Client) readLoop(w wire, onEnvelope func(*codec.Envelope), onClose func(error)) {
	var readErr error
	for {
		frame, err := w.readFrame()
		if err != nil {
			if !isClosedError(err) {
				readErr = err
			}
			break
		}

		envelope, err := c.codec.decode(frame)
		if err != nil {
			c.logger.Warnf("invalid frame from %s: %v", c.uri, err)
			readErr = err
			break
		}
		if onEnvelope != nil {
			onEnvelope(envelope)
		}
	}

	_ = w.close()

	c.mu.Lock()
	if c.wire == w {
		c.wire = nil
	}
	c.mu.Unlock()

	c.state.Store(int32(ReadyStateClosed))
	if !c.closing.Load() && onClose != nil {
		onClose(readErr)
	}
}

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
	"errors"
	"io"
	"net"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/atomic"

	"github.com/remactgo/remact/codec"
	gerrors "github.com/remactgo/remact/errors"
)

// session is the service side of one client connection
type session struct {
	id     string
	wire   wire
	codec  *frameCodec
	closed *atomic.Bool
	once   sync.Once
}

var _ Session = (*session)(nil)

func newSession(w wire, fc *frameCodec) *session {
	return &session{
		id:     uuid.NewString(),
		wire:   w,
		codec:  fc,
		closed: atomic.NewBool(false),
	}
}

// ID implements Session
func (s *session) ID() string {
	return s.id
}

// RemoteAddr implements Session
func (s *session) RemoteAddr() string {
	return s.wire.remoteAddr()
}

// SendToClient implements Session
func (s *session) SendToClient(ctx context.Context, envelope *codec.Envelope) error {
	if s.closed.Load() {
		return gerrors.ErrTransportClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	frame, err := s.codec.encode(envelope)
	if err != nil {
		return err
	}
	return s.wire.writeFrame(frame)
}

// Close implements Session
func (s *session) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		err = s.wire.close()
	})
	return err
}

// isClosedError reports errors that only mean the peer went away
func isClosedError(err error) bool {
	return err == nil ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, net.ErrClosed) ||
		websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}

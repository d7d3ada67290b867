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
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// wire moves frames over one network connection
type wire interface {
	writeFrame(frame []byte) error
	readFrame() ([]byte, error)
	remoteAddr() string
	close() error
}

// tcpWire writes length-prefixed frames on a TCP connection
type tcpWire struct {
	conn         net.Conn
	mu           sync.Mutex
	writeTimeout time.Duration
	maxFrameSize int
}

var _ wire = (*tcpWire)(nil)

func newTCPWire(conn net.Conn, writeTimeout time.Duration, maxFrameSize int) *tcpWire {
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		_ = tcpConn.SetNoDelay(true)
	}
	return &tcpWire{conn: conn, writeTimeout: writeTimeout, maxFrameSize: maxFrameSize}
}

func (w *tcpWire) writeFrame(frame []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.writeTimeout > 0 {
		if err := w.conn.SetWriteDeadline(time.Now().Add(w.writeTimeout)); err != nil {
			return err
		}
	}
	return writeLengthPrefixed(w.conn, frame)
}

func (w *tcpWire) readFrame() ([]byte, error) {
	return readLengthPrefixed(w.conn, w.maxFrameSize)
}

func (w *tcpWire) remoteAddr() string {
	return w.conn.RemoteAddr().String()
}

func (w *tcpWire) close() error {
	return w.conn.Close()
}

// wsWire writes one binary websocket message per frame
type wsWire struct {
	conn         *websocket.Conn
	mu           sync.Mutex
	writeTimeout time.Duration
}

var _ wire = (*wsWire)(nil)

func newWSWire(conn *websocket.Conn, writeTimeout time.Duration, maxFrameSize int) *wsWire {
	conn.SetReadLimit(int64(maxFrameSize))
	return &wsWire{conn: conn, writeTimeout: writeTimeout}
}

func (w *wsWire) writeFrame(frame []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.writeTimeout > 0 {
		if err := w.conn.SetWriteDeadline(time.Now().Add(w.writeTimeout)); err != nil {
			return err
		}
	}
	return w.conn.WriteMessage(websocket.BinaryMessage, frame)
}

func (w *wsWire) readFrame() ([]byte, error) {
	for {
		messageType, data, err := w.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if messageType == websocket.BinaryMessage {
			return data, nil
		}
	}
}

func (w *wsWire) remoteAddr() string {
	return w.conn.RemoteAddr().String()
}

func (w *wsWire) close() error {
	w.mu.Lock()
	deadline := time.Now().Add(time.Second)
	_ = w.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	w.mu.Unlock()
	return w.conn.Close()
}

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
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"

	"github.com/remactgo/remact/address"
	"github.com/remactgo/remact/codec"
	"github.com/remactgo/remact/internal/xsync"
	"github.com/remactgo/remact/log"
)

// ErrServiceAlreadyHosted is returned when registering a service name twice on a host
var ErrServiceAlreadyHosted = errors.New("remote: service already hosted")

// Host is one listener shared by every service of a process.
// TCP connections are routed by the destination of their first envelope,
// websocket connections by their URL path.
type Host struct {
	scheme     string
	listener   net.Listener
	httpServer *http.Server
	upgrader   websocket.Upgrader
	cfg        *config
	codec      *frameCodec
	logger     log.Logger
	handlers   *xsync.Map[string, SessionHandler]

	mu       sync.Mutex
	sessions map[*session]string
	wg       sync.WaitGroup
	closed   bool

	started *atomic.Bool
}

// NewHost listens on listenAddr. The host serves nothing until Start is called.
func NewHost(scheme, listenAddr string, opts ...Option) (*Host, error) {
	cfg := newConfig(opts...)
	scheme = strings.ToLower(scheme)
	if scheme != address.SchemeTCP && scheme != address.SchemeWS {
		return nil, fmt.Errorf("%w: %s", address.ErrUnsupportedScheme, scheme)
	}

	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return nil, fmt.Errorf("remote: failed to listen on %s: %w", listenAddr, err)
	}

	h := &Host{
		scheme:   scheme,
		listener: listener,
		cfg:      cfg,
		codec:    cfg.newCodec(),
		logger:   cfg.logger,
		handlers: xsync.NewMap[string, SessionHandler](),
		sessions: make(map[*session]string),
		started:  atomic.NewBool(false),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	return h, nil
}

// Addr returns the address the host listens on
func (h *Host) Addr() *net.TCPAddr {
	return h.listener.Addr().(*net.TCPAddr)
}

// Port returns the port the host listens on
func (h *Host) Port() int {
	return h.Addr().Port
}

// Scheme returns the scheme of the host
func (h *Host) Scheme() string {
	return h.scheme
}

// Start accepts connections in the background. Calling Start twice is a no-op.
func (h *Host) Start() {
	if !h.started.CompareAndSwap(false, true) {
		return
	}

	if h.scheme == address.SchemeWS {
		h.httpServer = &http.Server{
			Handler:           http.HandlerFunc(h.serveHTTP),
			ReadHeaderTimeout: 5 * time.Second,
			ErrorLog:          h.logger.StdLogger(),
		}
		go func() {
			if err := h.httpServer.Serve(h.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				h.logger.Errorf("websocket host on %s stopped: %v", h.listener.Addr(), err)
			}
		}()
		return
	}

	go h.acceptLoop()
}

// Register routes the sessions of service name to handler
func (h *Host) Register(name string, handler SessionHandler) error {
	if _, added := h.handlers.SetIfAbsent(strings.ToLower(name), handler); !added {
		return fmt.Errorf("%w: %s", ErrServiceAlreadyHosted, name)
	}
	return nil
}

// Deregister stops routing service name and closes its sessions
func (h *Host) Deregister(name string) {
	name = strings.ToLower(name)
	h.handlers.Delete(name)

	h.mu.Lock()
	toClose := make([]*session, 0)
	for s, service := range h.sessions {
		if service == name {
			toClose = append(toClose, s)
		}
	}
	h.mu.Unlock()

	for _, s := range toClose {
		_ = s.Close()
	}
}

// Services returns the number of services registered
func (h *Host) Services() int {
	return h.handlers.Len()
}

// Close stops listening, closes every session and waits for their read loops to end
func (h *Host) Close(ctx context.Context) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	sessions := make([]*session, 0, len(h.sessions))
	for s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.Unlock()

	var err error
	if h.httpServer != nil {
		err = h.httpServer.Close()
	} else {
		err = h.listener.Close()
	}
	if err != nil && !isClosedError(err) {
		h.logger.Warnf("failed to close host listener %s: %v", h.listener.Addr(), err)
	}

	eg, _ := errgroup.WithContext(ctx)
	for _, s := range sessions {
		eg.Go(s.Close)
	}
	if err := eg.Wait(); err != nil && !isClosedError(err) {
		h.logger.Debugf("closing sessions of host %s: %v", h.listener.Addr(), err)
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// enter registers a connection handling goroutine unless the host is closing
func (h *Host) enter() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.wg.Add(1)
	return true
}

func (h *Host) acceptLoop() {
	for {
		conn, err := h.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			h.logger.Warnf("failed to accept connection on %s: %v", h.listener.Addr(), err)
			time.Sleep(10 * time.Millisecond)
			continue
		}

		if !h.enter() {
			_ = conn.Close()
			return
		}

		go func() {
			defer h.wg.Done()
			h.serveTCP(conn)
		}()
	}
}

func (h *Host) serveTCP(conn net.Conn) {
	w := newTCPWire(conn, h.cfg.writeTimeout, h.codec.maxFrameSize)

	// the first envelope tells which service the connection is for
	_ = conn.SetReadDeadline(time.Now().Add(h.cfg.dialTimeout))
	frame, err := w.readFrame()
	_ = conn.SetReadDeadline(time.Time{})
	if err != nil {
		if !isClosedError(err) {
			h.logger.Warnf("failed to read first frame from %s: %v", w.remoteAddr(), err)
		}
		_ = w.close()
		return
	}

	first, err := h.codec.decode(frame)
	if err != nil {
		h.logger.Warnf("invalid first frame from %s: %v", w.remoteAddr(), err)
		_ = w.close()
		return
	}

	name := strings.ToLower(first.Destination)
	handler, ok := h.handlers.Get(name)
	if !ok {
		h.logger.Warnf("connection from %s to unknown service (%s) closed", w.remoteAddr(), first.Destination)
		_ = w.close()
		return
	}

	h.serveSession(w, name, handler, first)
}

func (h *Host) serveHTTP(rw http.ResponseWriter, r *http.Request) {
	name := strings.ToLower(strings.Trim(r.URL.Path, "/"))
	handler, ok := h.handlers.Get(name)
	if !ok {
		http.NotFound(rw, r)
		return
	}

	if !h.enter() {
		http.Error(rw, "host is closing", http.StatusServiceUnavailable)
		return
	}
	defer h.wg.Done()

	conn, err := h.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		h.logger.Warnf("websocket upgrade from %s failed: %v", r.RemoteAddr, err)
		return
	}

	h.serveSession(newWSWire(conn, h.cfg.writeTimeout, h.codec.maxFrameSize), name, handler, nil)
}

// serveSession reads the frames of one connection until it ends
func (h *Host) serveSession(w wire, name string, handler SessionHandler, first *codec.Envelope) {
	s := newSession(w, h.codec)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = s.Close()
		return
	}
	h.sessions[s] = name
	h.mu.Unlock()

	var readErr error
	if first != nil {
		handler.OnEnvelope(s, first)
	}

	for {
		frame, err := w.readFrame()
		if err != nil {
			if !isClosedError(err) && !s.closed.Load() {
				readErr = err
			}
			break
		}

		envelope, err := h.codec.decode(frame)
		if err != nil {
			readErr = err
			h.logger.Warnf("invalid frame from %s for service (%s): %v", w.remoteAddr(), name, err)
			break
		}
		handler.OnEnvelope(s, envelope)
	}

	_ = s.Close()
	h.mu.Lock()
	delete(h.sessions, s)
	h.mu.Unlock()

	handler.OnSessionClosed(s, readErr)
}

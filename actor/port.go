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

package actor

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"

	"github.com/remactgo/remact/codec"
	gerrors "github.com/remactgo/remact/errors"
	"github.com/remactgo/remact/internal/metric"
	"github.com/remactgo/remact/log"
)

// MessageHandler handles a message on the loop of its port. It returns nil
// when it handled the message and the message otherwise.
type MessageHandler func(ctx context.Context, msg *Message) *Message

// Sendable is a port messages can be posted to from any goroutine
type Sendable interface {
	PostInput(msg *Message)
}

// Dispatchable is a port that runs handlers for the messages it receives
type Dispatchable interface {
	Dispatch(ctx context.Context, msg *Message) error
}

// ConnectManaged is a port with a connection lifecycle
type ConnectManaged interface {
	IsOpen() bool
	Disconnect()
}

var (
	_ Sendable       = (*Port)(nil)
	_ Dispatchable   = (*Port)(nil)
	_ ConnectManaged = (*Port)(nil)
)

// messageSink carries messages posted to a port that is only the local
// representation of a port living elsewhere: a client stub of a service, or
// the remote service of a proxy.
type messageSink interface {
	deliver(ctx context.Context, msg *Message) error
}

// Port is a named endpoint sending and receiving messages.
//
// Unless multithreaded, a port binds to the Loop of the context it is first
// used with and refuses to be used from any other loop afterwards.
type Port struct {
	mu   sync.RWMutex
	info *ActorInfo

	open                  *atomic.Bool
	multithreaded         bool
	checkOwner            bool
	loop                  *atomic.Pointer[Loop]
	home                  *atomic.Pointer[Loop]
	lastRequestIDSent     *atomic.Int64
	lastRequestIDReceived *atomic.Int64
	maxRequestID          int64
	clientID              *atomic.Int64
	lastActivity          *atomic.Int64

	dispatcher     *Dispatcher
	defaultHandler MessageHandler
	// system handles runtime messages before the dispatcher
	system MessageHandler
	// onReceive runs first for every dispatched message
	onReceive func(msg *Message)

	session  any
	redirect messageSink
	stub     bool

	logger     log.Logger
	metric     *metric.PortMetric
	serializer codec.Serializer
}

func newPort(name string, isServiceName bool, cfg *portConfig) *Port {
	if name == "" {
		name = "anonymous-" + uuid.NewString()
	}

	p := &Port{
		info: &ActorInfo{
			Name:           name,
			AppName:        cfg.appName,
			AppInstance:    cfg.appInstance,
			ProcessID:      os.Getpid(),
			HostName:       cfg.hostName,
			IsServiceName:  isServiceName,
			TimeoutSeconds: int((cfg.timeout + time.Second - 1) / time.Second),
		},
		open:                  atomic.NewBool(false),
		multithreaded:         cfg.multithreaded,
		checkOwner:            cfg.checkOwner,
		loop:                  atomic.NewPointer[Loop](nil),
		home:                  atomic.NewPointer[Loop](nil),
		lastRequestIDSent:     atomic.NewInt64(RequestIDBaseline),
		lastRequestIDReceived: atomic.NewInt64(RequestIDBaseline),
		maxRequestID:          MaxRequestID,
		clientID:              atomic.NewInt64(0),
		lastActivity:          atomic.NewInt64(time.Now().UnixNano()),
		dispatcher:            cfg.dispatcher,
		defaultHandler:        cfg.defaultHandler,
		logger:                cfg.logger,
		serializer:            cfg.serializer,
	}

	portMetric, err := metric.NewPortMetric(metric.NewProvider(cfg.meterProvider).Meter())
	if err != nil {
		p.logger.Warnf("port (%s) runs without metrics: %v", name, err)
	}
	p.metric = portMetric
	return p
}

// newStub creates the local representation of a port living elsewhere
func newStub(info *ActorInfo, sink messageSink, logger log.Logger, serializer codec.Serializer) *Port {
	p := &Port{
		info:                  info.WithUsage(UsageUndefined),
		open:                  atomic.NewBool(true),
		multithreaded:         true,
		loop:                  atomic.NewPointer[Loop](nil),
		lastRequestIDSent:     atomic.NewInt64(RequestIDBaseline),
		lastRequestIDReceived: atomic.NewInt64(RequestIDBaseline),
		maxRequestID:          MaxRequestID,
		clientID:              atomic.NewInt64(int64(info.ClientID)),
		lastActivity:          atomic.NewInt64(time.Now().UnixNano()),
		redirect:              sink,
		stub:                  true,
		logger:                logger,
		serializer:            serializer,
	}
	return p
}

// Name returns the port name
func (p *Port) Name() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.info.Name
}

// URI returns the port URI, empty for ports that are not reachable remotely
func (p *Port) URI() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.info.URI
}

// Info returns a copy of the port identity
func (p *Port) Info() *ActorInfo {
	p.mu.RLock()
	defer p.mu.RUnlock()
	info := p.info.Clone()
	info.ClientID = p.ClientID()
	return info
}

// ClientID returns the id a service assigned to this client, 0 when unknown
func (p *Port) ClientID() int {
	return int(p.clientID.Load())
}

// IsOpen returns true when the port can exchange messages
func (p *Port) IsOpen() bool {
	return p.open.Load()
}

// IsMultithreaded returns true when the port accepts calls from any goroutine
func (p *Port) IsMultithreaded() bool {
	return p.multithreaded
}

// Loop returns the loop the port is bound to, nil when unbound
func (p *Port) Loop() *Loop {
	return p.loop.Load()
}

// LastRequestIDSent returns the id of the last request sent
func (p *Port) LastRequestIDSent() int {
	return int(p.lastRequestIDSent.Load())
}

// LastRequestIDReceived returns the request id of the last response received
func (p *Port) LastRequestIDReceived() int {
	return int(p.lastRequestIDReceived.Load())
}

// OutstandingResponsesCount returns how many requests still wait for their response
func (p *Port) OutstandingResponsesCount() int {
	count := p.lastRequestIDSent.Load() - p.lastRequestIDReceived.Load()
	if count < 0 {
		return 0
	}
	return int(count)
}

// Dispatcher returns the dispatcher of the port, nil when none is set
func (p *Port) Dispatcher() *Dispatcher {
	return p.dispatcher
}

// Context returns the session state attached to the port
func (p *Port) Context() any {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.session
}

// SetContext attaches session state to the port
func (p *Port) SetContext(session any) {
	p.mu.Lock()
	p.session = session
	p.mu.Unlock()
}

// String returns the port name
func (p *Port) String() string {
	return fmt.Sprintf("Port(%s)", p.Name())
}

// PostInput hands a message to the port. It is safe to call from any goroutine.
func (p *Port) PostInput(msg *Message) {
	if sink := p.sink(); sink != nil {
		if err := sink.deliver(context.Background(), msg); err != nil {
			log.Trace(p.logger, log.MarkWarning, "%s could not forward %s: %v", p, msg, err)
			p.reject(msg, ErrorCodeNotConnected, err)
		}
		return
	}

	if p.stub {
		p.reject(msg, ErrorCodeNotConnected, gerrors.ErrNotConnected)
		return
	}

	if !p.open.Load() {
		p.reject(msg, ErrorCodeNotConnected, gerrors.ErrNotConnected)
		return
	}

	log.Trace(p.logger, log.MarkPostInput, "%s %s", p, msg)
	if p.multithreaded {
		p.dispatch(context.Background(), msg)
		return
	}

	loop := p.loop.Load()
	if loop == nil {
		log.Trace(p.logger, log.MarkError, "%s: %v", p, gerrors.ErrNoSyncContext)
		p.reject(msg, ErrorCodeCouldNotDispatch, gerrors.ErrNoSyncContext)
		return
	}

	if err := loop.Post(func(ctx context.Context) { p.dispatch(ctx, msg) }); err != nil {
		p.reject(msg, ErrorCodeNotConnected, err)
	}
}

// Dispatch runs the handlers of the port for msg on the calling goroutine.
// ctx must belong to the loop of the port unless the port is multithreaded.
func (p *Port) Dispatch(ctx context.Context, msg *Message) error {
	if err := p.bind(ctx); err != nil {
		return err
	}
	p.dispatch(ctx, msg)
	return nil
}

// Disconnect closes the port, releases its loop and drops its redirection
func (p *Port) Disconnect() {
	p.open.Store(false)
	p.loop.Store(nil)
	p.mu.Lock()
	p.redirect = nil
	p.mu.Unlock()
}

// bind checks the affinity of ctx with the port, binding the port to the
// loop of ctx on first use
func (p *Port) bind(ctx context.Context) error {
	if p.multithreaded {
		return nil
	}

	loop := LoopFromContext(ctx)
	if loop == nil {
		return gerrors.ErrNoSyncContext
	}
	if p.loop.CompareAndSwap(nil, loop) {
		p.home.Store(loop)
		return nil
	}
	if p.loop.Load() != loop {
		return gerrors.ErrWrongSyncContext
	}
	return nil
}

// send delivers a message to this port: forwarded when the port represents
// a port living elsewhere, posted otherwise
func (p *Port) send(ctx context.Context, msg *Message) error {
	if sink := p.sink(); sink != nil {
		return sink.deliver(ctx, msg)
	}
	if p.stub {
		return gerrors.ErrNotConnected
	}
	p.PostInput(msg)
	return nil
}

// deliver implements messageSink, a port can be the redirection of a stub
func (p *Port) deliver(_ context.Context, msg *Message) error {
	p.PostInput(msg)
	return nil
}

func (p *Port) sink() messageSink {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.redirect
}

func (p *Port) setSink(sink messageSink) {
	p.mu.Lock()
	p.redirect = sink
	p.mu.Unlock()
}

func (p *Port) setClientID(id int) {
	p.clientID.Store(int64(id))
}

func (p *Port) setURI(uri string, addresses []string) {
	p.mu.Lock()
	p.info.URI = uri
	p.info.Addresses = addresses
	p.mu.Unlock()
}

// nextRequestID increments the request counter, wrapping to RequestIDBaseline
func (p *Port) nextRequestID() int {
	for {
		last := p.lastRequestIDSent.Load()
		next := last + 1
		if next > p.maxRequestID || next <= RequestIDBaseline {
			next = RequestIDBaseline + 1
		}
		if p.lastRequestIDSent.CompareAndSwap(last, next) {
			return int(next)
		}
	}
}

// resetRequestIDs restarts the request counters from RequestIDBaseline
func (p *Port) resetRequestIDs() {
	p.lastRequestIDSent.Store(RequestIDBaseline)
	p.lastRequestIDReceived.Store(RequestIDBaseline)
}

func (p *Port) recordSent(ctx context.Context, msg *Message) {
	if p != nil && p.metric != nil {
		p.metric.RecordSent(ctx, p.Name(), msg.messageType.String())
	}
}

func (p *Port) touch() {
	p.lastActivity.Store(time.Now().UnixNano())
}

func (p *Port) idleSince() time.Duration {
	return time.Since(time.Unix(0, p.lastActivity.Load()))
}

// reject answers a message that cannot be dispatched
func (p *Port) reject(msg *Message, code ErrorCode, cause error) {
	if p.metric != nil {
		p.metric.RecordFailure(context.Background(), p.Name())
	}

	if p.orphan(msg, cause) {
		return
	}
	if !msg.unanswered() || msg.source == nil || msg.source == p {
		log.Trace(p.logger, log.MarkPostInput, "%s dropped %s: %v", p, msg, cause)
		return
	}

	errMsg := NewErrorMessage(code, "%s cannot handle %s: %v", p.Name(), msg.method, cause)
	if err := msg.SendResponse(context.Background(), errMsg); err != nil {
		log.Trace(p.logger, log.MarkWarning, "%s could not reject %s: %v", p, msg, err)
	}
}

// orphan fails the continuation carried by a response the port can no longer
// receive. The continuation gets a NotConnected error on home, the loop the
// port was last bound to, which outlives Disconnect. It returns false when
// msg carries no continuation.
func (p *Port) orphan(msg *Message, cause error) bool {
	if !msg.IsResponse() && !msg.IsError() {
		return false
	}
	home := p.home.Load()
	if home == nil && !p.multithreaded {
		return false
	}
	continuation := msg.destinationContinuation.take()
	if continuation == nil {
		return false
	}

	errMsg := NewErrorMessage(ErrorCodeNotConnected, "%s closed before request %d was answered: %v",
		p.Name(), msg.requestID, cause)
	rsp := &Message{
		messageType:             MessageTypeError,
		payload:                 errMsg,
		clientID:                msg.clientID,
		requestID:               msg.requestID,
		source:                  msg.source,
		destination:             p,
		method:                  msg.method,
		destinationContinuation: newOneshot(continuation),
	}
	log.Trace(p.logger, log.MarkWarning, "%s lost %s: %v", p, msg, cause)
	if p.multithreaded {
		p.dispatch(context.Background(), rsp)
		return true
	}
	if err := home.Post(func(ctx context.Context) { p.dispatch(ctx, rsp) }); err != nil {
		// the loop is gone, nobody can observe the affinity anymore
		p.dispatch(context.Background(), rsp)
	}
	return true
}

// dispatch runs, on the loop of the port, the continuation of the message,
// then the runtime handler, the dispatcher and the default handler until
// one of them handles it. A request left unanswered gets a ReadyMessage.
func (p *Port) dispatch(ctx context.Context, msg *Message) {
	start := time.Now()
	msg.Bind(ctx)
	p.touch()

	if msg.requestID > 0 && (msg.IsResponse() || msg.IsError()) {
		p.lastRequestIDReceived.Store(int64(msg.requestID))
	}

	defer func() {
		if r := recover(); r != nil {
			p.recover(ctx, msg, r)
		}
		if p.metric != nil {
			p.metric.RecordReceived(ctx, p.Name(), msg.messageType.String(), time.Since(start))
		}
	}()

	log.Trace(p.logger, log.MarkReceive, "%s %s", p, msg)
	if p.onReceive != nil {
		p.onReceive(msg)
	}

	remaining := msg
	if continuation := msg.destinationContinuation.take(); continuation != nil {
		remaining = continuation(ctx, remaining)
	}
	if remaining != nil && p.system != nil {
		remaining = p.system(ctx, remaining)
	}
	if remaining != nil && p.dispatcher != nil {
		remaining = p.dispatcher.dispatch(ctx, p, remaining)
	}
	if remaining != nil && p.defaultHandler != nil {
		remaining = p.defaultHandler(ctx, remaining)
	}
	if remaining != nil && !remaining.IsRequest() {
		log.Trace(p.logger, log.MarkInfo, "%s did not handle %s", p, remaining)
	}

	if msg.unanswered() {
		if err := msg.SendResponse(ctx, new(ReadyMessage)); err != nil {
			log.Trace(p.logger, log.MarkWarning, "%s could not answer %s: %v", p, msg, err)
		}
	}
}

// recover turns a handler panic into an error response
func (p *Port) recover(ctx context.Context, msg *Message, r any) {
	if p.metric != nil {
		p.metric.RecordFailure(ctx, p.Name())
	}

	errMsg := newPanicErrorMessage(p.Name(), r)
	if !msg.unanswered() {
		log.Trace(p.logger, log.MarkError, "%s: %v\n%s", p, errMsg, errMsg.StackTrace)
		return
	}
	if err := msg.SendResponse(ctx, errMsg); err != nil {
		log.Trace(p.logger, log.MarkError, "%s could not report %v: %v", p, errMsg, err)
	}
}

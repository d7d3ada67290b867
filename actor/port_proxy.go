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
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/remactgo/remact/address"
	gerrors "github.com/remactgo/remact/errors"
	"github.com/remactgo/remact/future"
	"github.com/remactgo/remact/internal/ticker"
	"github.com/remactgo/remact/internal/xsync"
	"github.com/remactgo/remact/log"
	"github.com/remactgo/remact/remote"
)

type linkKind int

const (
	linkNone linkKind = iota
	linkLocal
	linkRemote
	linkByName
)

// PortProxy is the client side of a connection to a service port, in the
// same process or in another one.
//
// A proxy is linked to its service first, then connected with ConnectAsync
// on the loop it will be used from. Requests are sent with SendReceive or
// SendReceiveAsync and their responses are handled on that loop.
type PortProxy struct {
	*Port
	cfg *portConfig

	state  *atomic.Int32
	gen    *atomic.Int64
	opened *atomic.Bool
	// requests waiting for their response, by request id
	pending *xsync.Map[int, *Message]

	mu          sync.Mutex
	link        linkKind
	local       *PortService
	uri         string
	serviceName string
	catalog     *CatalogClient
	lastLoop    *Loop
	// client represents the proxy to the service
	client *Port
	// service represents the service to the proxy
	service     *Port
	serviceInfo *ActorInfo
	transport   remote.ClientTransport
	addresses   []string
	attempt     int
	connecting  future.Completable[*ActorInfo]
	timer       *time.Timer
	stopTest    func()
}

var _ ConnectManaged = (*PortProxy)(nil)

// NewPortProxy creates an unlinked proxy. An empty name gives the proxy a unique one.
func NewPortProxy(name string, opts ...Option) *PortProxy {
	cfg := newPortConfig(opts...)
	p := &PortProxy{
		Port:    newPort(name, false, cfg),
		cfg:     cfg,
		state:   atomic.NewInt32(int32(PortStateUnlinked)),
		gen:     atomic.NewInt64(0),
		opened:  atomic.NewBool(false),
		pending: xsync.NewMap[int, *Message](),
		catalog: cfg.catalog,
	}
	p.onReceive = p.received
	p.client = newStub(p.Port.Info(), p.Port, cfg.logger, cfg.serializer)
	return p
}

// State returns the connection state
func (p *PortProxy) State() PortState {
	return PortState(p.state.Load())
}

// ServiceInfo returns the identity of the connected service, nil before the first connection
func (p *PortProxy) ServiceInfo() *ActorInfo {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.serviceInfo == nil {
		return nil
	}
	return p.serviceInfo.Clone()
}

// LinkToService links the proxy to a service of the same process
func (p *PortProxy) LinkToService(service *PortService) error {
	if service == nil {
		return fmt.Errorf("%w: service is nil", gerrors.ErrInvalidArgument)
	}
	return p.setLink(linkLocal, func() { p.local = service })
}

// LinkToRemoteService links the proxy to the service listening at uri
func (p *PortProxy) LinkToRemoteService(uri string) error {
	if _, err := address.Parse(uri); err != nil {
		return fmt.Errorf("%w: %w", gerrors.ErrInvalidURI, err)
	}
	return p.setLink(linkRemote, func() { p.uri = uri })
}

// LinkToServiceByName links the proxy to the service registered under name.
// The address is looked up with catalog, or the catalog of the proxy options
// when catalog is nil, every time the proxy connects.
func (p *PortProxy) LinkToServiceByName(name string, catalog *CatalogClient) error {
	if name == "" {
		return gerrors.ErrNameRequired
	}
	if catalog == nil {
		catalog = p.cfg.catalog
	}
	if catalog == nil {
		return fmt.Errorf("%w: no catalog client to look up %s", gerrors.ErrNotConnectedToCatalog, name)
	}
	return p.setLink(linkByName, func() {
		p.serviceName = name
		p.catalog = catalog
	})
}

func (p *PortProxy) setLink(kind linkKind, apply func()) error {
	switch p.State() {
	case PortStateConnecting, PortStateOk:
		return gerrors.ErrAlreadyConnecting
	}

	p.mu.Lock()
	p.link = kind
	p.local = nil
	p.uri = ""
	p.serviceName = ""
	p.catalog = p.cfg.catalog
	apply()
	p.mu.Unlock()
	return nil
}

// ConnectAsync connects the proxy to its service. ctx must carry the loop
// the proxy is used from, unless the proxy is multithreaded. The future
// completes with the identity of the service, the client id included.
func (p *PortProxy) ConnectAsync(ctx context.Context) future.Future[*ActorInfo] {
	if err := p.bind(ctx); err != nil {
		return future.Failed[*ActorInfo](err)
	}
	completable := future.NewCompletable[*ActorInfo]()
	p.connect(ctx, completable)
	return completable.Future()
}

// Reconnect connects a proxy that was connected before, on the loop it was
// last connected from. It fails with ErrNeverOpened otherwise.
func (p *PortProxy) Reconnect(ctx context.Context) future.Future[*ActorInfo] {
	if !p.opened.Load() {
		return future.Failed[*ActorInfo](gerrors.ErrNeverOpened)
	}

	completable := future.NewCompletable[*ActorInfo]()
	task := func(ctx context.Context) {
		if err := p.bind(ctx); err != nil {
			completable.Failure(err)
			return
		}
		p.connect(ctx, completable)
	}

	if p.multithreaded {
		task(ctx)
		return completable.Future()
	}

	p.mu.Lock()
	loop := p.lastLoop
	p.mu.Unlock()
	if LoopFromContext(ctx) == loop {
		task(ctx)
	} else if err := loop.Post(task); err != nil {
		completable.Failure(err)
	}
	return completable.Future()
}

// SetState moves the proxy to state: Ok and Connecting reconnect,
// Disconnected disconnects and Faulted aborts the communication.
func (p *PortProxy) SetState(ctx context.Context, state PortState) error {
	if p.State() == state {
		return nil
	}

	switch state {
	case PortStateOk, PortStateConnecting:
		if result := p.Reconnect(ctx).Result(); result != nil {
			return result.Failure()
		}
		return nil
	case PortStateDisconnected:
		p.Disconnect()
		return nil
	case PortStateFaulted:
		p.AbortCommunication()
		return nil
	default:
		return fmt.Errorf("%w: cannot move to %s", gerrors.ErrInvalidArgument, state)
	}
}

// SendReceive sends a request to the service. continuation, when not nil,
// handles the response on the loop of the proxy. Responses not handled by
// the continuation go to the dispatcher and the default handler.
func (p *PortProxy) SendReceive(ctx context.Context, method string, payload any, continuation Continuation) error {
	if err := p.bind(ctx); err != nil {
		return err
	}
	if p.State() != PortStateOk {
		return gerrors.ErrNotConnected
	}

	client, service := p.ends()
	return p.post(ctx, service, newRequest(p.Port, client, service, method, payload, continuation))
}

// Notify sends a notification to the service
func (p *PortProxy) Notify(ctx context.Context, method string, payload any) error {
	if err := p.bind(ctx); err != nil {
		return err
	}
	if p.State() != PortStateOk {
		return gerrors.ErrNotConnected
	}

	client, service := p.ends()
	return p.post(ctx, service, newNotification(client, service, method, payload))
}

// SendReceiveAsync sends a request and returns the future of its response
// payload. The future fails with the *ErrorMessage the service answered, or
// with UnexpectedResponsePayloadType when the response is not a T.
func SendReceiveAsync[T any](ctx context.Context, proxy *PortProxy, method string, payload any) future.Future[T] {
	completable := future.NewCompletable[T]()
	err := proxy.SendReceive(ctx, method, payload, func(_ context.Context, rsp *Message) *Message {
		if rsp.IsError() {
			if errMsg := rsp.ErrorPayload(); errMsg != nil {
				completable.Failure(errMsg)
				return nil
			}
		}

		value, ok := ConvertPayload[T](rsp)
		if !ok {
			completable.Failure(NewErrorMessage(ErrorCodeUnexpectedResponsePayloadType,
				"%s answered %s with %s", portName(rsp.source), method, payloadName(rsp.payload)))
			return nil
		}
		completable.Success(value)
		return nil
	})
	if err != nil {
		completable.Failure(err)
	}
	return completable.Future()
}

// Disconnect closes the connection. A connected proxy first sends the service
// a disconnect request, spending at most DisconnectGrace on the send without
// waiting for the answer. It is safe to call from any goroutine.
func (p *PortProxy) Disconnect() {
	state := p.State()
	if state == PortStateOk {
		p.sendDisconnectRequest()
	}
	if state != PortStateUnlinked || p.opened.Load() {
		p.state.Store(int32(PortStateDisconnected))
	}
	p.gen.Inc()

	errMsg := NewErrorMessage(ErrorCodeNotConnected, "%s disconnected", p.Name())
	if completable := p.teardown(); completable != nil {
		completable.Failure(errMsg)
	}
	p.run(func(ctx context.Context) { p.failPending(ctx) })
	log.Trace(p.logger, log.MarkConnect, "%s disconnected", p)
}

// AbortCommunication closes the connection without telling the service and
// leaves the proxy Faulted. It is safe to call from any goroutine.
func (p *PortProxy) AbortCommunication() {
	p.fault(NewErrorMessage(ErrorCodeNotConnected, "%s aborted the communication", p.Name()))
}

// ends returns the ports representing both ends of the connection
func (p *PortProxy) ends() (client, service *Port) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.client, p.service
}

// post sends msg to the service
func (p *PortProxy) post(ctx context.Context, service *Port, msg *Message) error {
	if msg.IsRequest() {
		p.pending.Set(msg.requestID, msg)
	}

	log.Trace(p.logger, log.MarkSend, "%s %s", p, msg)
	p.recordSent(ctx, msg)
	if err := service.send(ctx, msg); err != nil {
		p.pending.Delete(msg.requestID)
		return fmt.Errorf("%w: %w", gerrors.ErrCouldNotStartSend, err)
	}
	return nil
}

// received runs first for every message dispatched to the proxy
func (p *PortProxy) received(msg *Message) {
	if msg.requestID > 0 && (msg.IsResponse() || msg.IsError()) {
		p.pending.Delete(msg.requestID)
	}
}

// run executes task on the loop the proxy was last connected from
func (p *PortProxy) run(task Task) {
	if p.multithreaded {
		task(context.Background())
		return
	}

	p.mu.Lock()
	loop := p.lastLoop
	p.mu.Unlock()
	if loop == nil {
		return
	}
	if err := loop.Post(task); err != nil {
		log.Trace(p.logger, log.MarkWarning, "%s: %v", p, err)
	}
}

func (p *PortProxy) configurator() Configurator {
	if p.cfg.configurator != nil {
		return p.cfg.configurator
	}
	return DefaultConfigurator()
}

func (p *PortProxy) sendDisconnectRequest() {
	client, service := p.ends()
	if service == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), DisconnectGrace)
	defer cancel()

	req := newRequest(p.Port, client, service, "", p.Info().WithUsage(ClientDisconnectRequest), nil)
	log.Trace(p.logger, log.MarkSend, "%s %s", p, req)
	if err := service.send(ctx, req); err != nil {
		log.Trace(p.logger, log.MarkWarning, "%s could not say goodbye to %s: %v", p, service.Name(), err)
	}
}

// fault leaves the proxy Faulted, fails what waits on the connection and
// reports errMsg to the default handler
func (p *PortProxy) fault(errMsg *ErrorMessage) {
	p.state.Store(int32(PortStateFaulted))
	p.gen.Inc()

	log.Trace(p.logger, log.MarkError, "%s faulted: %v", p, errMsg)
	completable := p.teardown()
	p.run(func(ctx context.Context) {
		p.failPending(ctx)
		p.report(ctx, errMsg)
	})
	if completable != nil {
		completable.Failure(errMsg)
	}
}

// teardown releases the connection and returns the pending connect future
func (p *PortProxy) teardown() future.Completable[*ActorInfo] {
	p.mu.Lock()
	p.stopTimer()
	stopTest := p.stopTest
	p.stopTest = nil
	transport := p.transport
	p.transport = nil
	completable := p.connecting
	p.connecting = nil
	catalog := p.catalog
	p.mu.Unlock()

	if stopTest != nil {
		stopTest()
	}
	if transport != nil {
		if err := transport.Close(); err != nil {
			log.Trace(p.logger, log.MarkWarning, "%s: %v", p, err)
		}
	}

	p.open.Store(false)
	p.loop.Store(nil)
	if catalog != nil {
		catalog.removeClient(p)
	}
	return completable
}

// failPending answers the requests still waiting for a response with NotConnected
func (p *PortProxy) failPending(ctx context.Context) {
	pending := p.pending.Values()
	p.pending.Reset()
	sortByRequestID(pending)

	for _, req := range pending {
		continuation := req.takeSourceContinuation()
		if continuation == nil {
			continue
		}

		errMsg := NewErrorMessage(ErrorCodeNotConnected, "%s lost the connection before request %d was answered",
			p.Name(), req.requestID)
		rsp := &Message{
			messageType:             MessageTypeError,
			payload:                 errMsg,
			clientID:                req.clientID,
			requestID:               req.requestID,
			source:                  req.destination,
			destination:             p.Port,
			method:                  req.method,
			destinationContinuation: newOneshot(continuation),
		}
		if req.markAnswered(rsp) {
			p.dispatch(ctx, rsp)
		}
	}
	p.lastRequestIDReceived.Store(p.lastRequestIDSent.Load())
}

// report hands a connection failure to the handlers of the proxy
func (p *PortProxy) report(ctx context.Context, errMsg *ErrorMessage) {
	_, service := p.ends()
	p.dispatch(ctx, newNotification(service, p.Port, "", errMsg))
}

// stopTimer stops the connect timer. p.mu must be held.
func (p *PortProxy) stopTimer() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

func (p *PortProxy) startChannelTest(gen int64) {
	stop := ticker.Every(p.cfg.timeout/2, func() {
		p.run(func(ctx context.Context) { p.channelTest(ctx, gen) })
	})

	p.mu.Lock()
	if p.gen.Load() != gen {
		p.mu.Unlock()
		stop()
		return
	}
	p.stopTest = stop
	p.mu.Unlock()
}

// channelTest aborts a connection that stays silent while requests wait for
// their response, and pings the service when nothing was received for
// half the timeout
func (p *PortProxy) channelTest(ctx context.Context, gen int64) {
	if p.gen.Load() != gen || p.State() != PortStateOk {
		return
	}

	silence := p.idleSince()
	if p.OutstandingResponsesCount() > 0 {
		if silence > p.cfg.timeout {
			p.fault(NewErrorMessage(ErrorCodeReqOrRspTimeout, "%s got no message from its service for %s",
				p.Name(), silence.Round(time.Millisecond)))
		}
		return
	}
	if silence < p.cfg.timeout/2 {
		return
	}

	client, service := p.ends()
	ping := newRequest(p.Port, client, service, "", new(ReadyMessage), func(_ context.Context, rsp *Message) *Message {
		if errMsg := rsp.ErrorPayload(); rsp.IsError() && errMsg != nil && p.gen.Load() == gen {
			p.fault(errMsg)
		}
		return nil
	})
	if err := p.post(ctx, service, ping); err != nil {
		p.fault(toErrorMessage(err, ErrorCodeNotConnected))
	}
}

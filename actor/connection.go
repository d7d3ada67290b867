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
	"cmp"
	"context"
	"slices"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/remactgo/remact/address"
	"github.com/remactgo/remact/codec"
	gerrors "github.com/remactgo/remact/errors"
	"github.com/remactgo/remact/future"
	"github.com/remactgo/remact/log"
)

// connect runs on the loop of the proxy. A connection goes through a
// catalog lookup when linked by name, then tries the candidate addresses one
// after the other until a service answers the connect request.
func (p *PortProxy) connect(ctx context.Context, completable future.Completable[*ActorInfo]) {
	p.mu.Lock()
	link := p.link
	p.mu.Unlock()
	if link == linkNone {
		completable.Failure(gerrors.ErrNotLinked)
		return
	}

	for {
		state := p.state.Load()
		if state == int32(PortStateConnecting) || state == int32(PortStateOk) {
			completable.Failure(gerrors.ErrAlreadyConnecting)
			return
		}
		if p.state.CompareAndSwap(state, int32(PortStateConnecting)) {
			break
		}
	}

	gen := p.gen.Inc()
	p.opened.Store(true)
	p.open.Store(true)
	p.touch()

	p.mu.Lock()
	p.lastLoop = p.Loop()
	p.connecting = completable
	p.attempt = 0
	p.addresses = nil
	local, uri, name, catalog := p.local, p.uri, p.serviceName, p.catalog
	p.mu.Unlock()

	switch link {
	case linkLocal:
		log.Trace(p.logger, log.MarkConnect, "%s connecting to %s", p, local.Name())
		p.mu.Lock()
		p.service = local.Port
		p.mu.Unlock()
		p.sendConnectRequest(ctx, gen)
	case linkRemote:
		log.Trace(p.logger, log.MarkConnect, "%s connecting to %s", p, uri)
		p.mu.Lock()
		p.addresses = []string{uri}
		p.mu.Unlock()
		p.connectRemote(gen)
	case linkByName:
		log.Trace(p.logger, log.MarkCatalog, "%s looking up %s", p, name)
		p.lookup(gen, name, catalog)
	}
}

// connectingWith returns true while the connection attempt gen is running
func (p *PortProxy) connectingWith(gen int64) bool {
	return p.gen.Load() == gen && p.State() == PortStateConnecting
}

func (p *PortProxy) lookup(gen int64, name string, catalog *CatalogClient) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), p.cfg.timeout)
		info, err := catalog.Lookup(ctx, name)
		cancel()

		p.run(func(context.Context) {
			if !p.connectingWith(gen) {
				return
			}
			if err != nil {
				p.fault(toErrorMessage(err, ErrorCodeCatalogNotRunning))
				return
			}

			p.mu.Lock()
			p.addresses = candidates(info)
			p.mu.Unlock()
			p.connectRemote(gen)
		})
	}()
}

// connectRemote opens a transport to the current candidate address
func (p *PortProxy) connectRemote(gen int64) {
	p.mu.Lock()
	if p.attempt >= len(p.addresses) {
		p.mu.Unlock()
		p.fault(NewErrorMessage(ErrorCodeCouldNotStartConnect, "%s has no address to connect to", p.Name()))
		return
	}
	uri := p.addresses[p.attempt]
	p.mu.Unlock()

	transport, err := p.configurator().DoClientConfiguration(uri)
	if err != nil {
		p.attemptFailed(gen, toErrorMessage(err, ErrorCodeCouldNotStartConnect))
		return
	}

	onEnvelope := func(envelope *codec.Envelope) { p.receiveEnvelope(gen, envelope) }
	onClose := func(err error) { p.connectionLost(gen, err) }

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), p.cfg.timeout)
		err := transport.Open(ctx, onEnvelope, onClose)
		cancel()

		p.run(func(ctx context.Context) {
			if !p.connectingWith(gen) {
				_ = transport.Close()
				return
			}
			if err != nil {
				p.attemptFailed(gen, toErrorMessage(err, ErrorCodeCouldNotStartConnect))
				return
			}

			name := address.ServiceOf(uri)
			sink := &serviceSink{
				transport:  transport,
				client:     p.client,
				service:    name,
				serializer: p.serializer,
			}
			info := &ActorInfo{Name: name, URI: uri, IsServiceName: true}

			p.mu.Lock()
			p.transport = transport
			p.service = newStub(info, sink, p.logger, p.serializer)
			p.mu.Unlock()
			p.sendConnectRequest(ctx, gen)
		})
	}()
}

func (p *PortProxy) sendConnectRequest(ctx context.Context, gen int64) {
	client, service := p.ends()
	req := newRequest(p.Port, client, service, "", p.Info().WithUsage(ClientConnectRequest), p.onConnectResponse(gen))

	timeout := p.cfg.timeout
	p.mu.Lock()
	p.stopTimer()
	p.timer = time.AfterFunc(timeout, func() {
		p.run(func(context.Context) {
			p.attemptFailed(gen, NewErrorMessage(ErrorCodeReqOrRspTimeout,
				"%s got no answer to its connect request within %s", service.Name(), timeout))
		})
	})
	p.mu.Unlock()

	if err := p.post(ctx, service, req); err != nil {
		p.attemptFailed(gen, toErrorMessage(err, ErrorCodeCouldNotStartSend))
	}
}

func (p *PortProxy) onConnectResponse(gen int64) Continuation {
	return func(_ context.Context, rsp *Message) *Message {
		if !p.connectingWith(gen) {
			return nil
		}

		if info, ok := ConvertPayload[*ActorInfo](rsp); ok && info != nil && info.Usage == ServiceConnectResponse {
			p.connected(gen, info)
			return nil
		}

		errMsg := rsp.ErrorPayload()
		if errMsg == nil {
			errMsg = NewErrorMessage(ErrorCodeConnectionRejected, "%s answered the connect request with %s",
				portName(rsp.source), payloadName(rsp.payload))
		}
		p.attemptFailed(gen, errMsg)
		return nil
	}
}

// attemptFailed moves on to the next candidate address, or faults the proxy
// when none is left
func (p *PortProxy) attemptFailed(gen int64, errMsg *ErrorMessage) {
	if !p.connectingWith(gen) {
		return
	}

	p.mu.Lock()
	p.stopTimer()
	transport := p.transport
	p.transport = nil
	p.attempt++
	next := p.link != linkLocal && p.attempt < len(p.addresses)
	p.mu.Unlock()

	if transport != nil {
		_ = transport.Close()
	}
	p.pending.Reset()
	p.lastRequestIDReceived.Store(p.lastRequestIDSent.Load())

	if next {
		log.Trace(p.logger, log.MarkConnect, "%s trying the next address after: %v", p, errMsg)
		p.connectRemote(gen)
		return
	}
	p.fault(errMsg)
}

func (p *PortProxy) connected(gen int64, info *ActorInfo) {
	p.mu.Lock()
	p.stopTimer()
	p.serviceInfo = info.Clone()
	completable := p.connecting
	p.connecting = nil
	client, catalog := p.client, p.catalog
	p.mu.Unlock()

	p.setClientID(info.ClientID)
	client.setClientID(info.ClientID)
	p.resetRequestIDs()
	p.pending.Reset()
	p.state.Store(int32(PortStateOk))
	p.startChannelTest(gen)
	if catalog != nil {
		catalog.addClient(p)
	}

	log.Trace(p.logger, log.MarkConnect, "%s connected to %s as client %d", p, info.Name, info.ClientID)
	if completable != nil {
		completable.Success(info.Clone())
	}
}

// receiveEnvelope runs on the transport goroutine for every envelope the
// remote service sends
func (p *PortProxy) receiveEnvelope(gen int64, envelope *codec.Envelope) {
	if p.gen.Load() != gen {
		return
	}

	_, service := p.ends()
	msg, err := fromEnvelope(p.serializer, envelope, service, p.Port)
	if err != nil {
		log.Trace(p.logger, log.MarkError, "%s: %v", p, err)
		return
	}

	if msg.requestID > 0 && (msg.IsResponse() || msg.IsError()) {
		if req, ok := p.pending.Get(msg.requestID); ok && req.markAnswered(msg) {
			msg.destinationContinuation = newOneshot(req.takeSourceContinuation())
		}
	}
	p.PostInput(msg)
}

// connectionLost runs when the service or the network ends the connection
func (p *PortProxy) connectionLost(gen int64, err error) {
	if p.gen.Load() != gen {
		return
	}

	errMsg := NewErrorMessage(ErrorCodeNotConnected, "%s lost its connection: %v", p.Name(), err)
	switch p.State() {
	case PortStateConnecting:
		p.run(func(context.Context) { p.attemptFailed(gen, errMsg) })
	case PortStateOk:
		p.fault(errMsg)
	}
}

// candidates returns the URIs a service can be reached at, host name first
func candidates(info *ActorInfo) []string {
	seen := mapset.NewThreadUnsafeSet[string]()
	uris := make([]string, 0, len(info.Addresses)+1)
	for _, uri := range append([]string{info.URI}, info.Addresses...) {
		if uri == "" || !seen.Add(uri) {
			continue
		}
		uris = append(uris, uri)
	}
	return uris
}

func sortByRequestID(messages []*Message) {
	slices.SortFunc(messages, func(a, b *Message) int {
		return cmp.Compare(a.requestID, b.requestID)
	})
}
